// Package provider defines the image-generation provider contract and its adapters.
package provider

import (
	"context"
	"errors"
)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// ErrUnavailable is returned when the provider is not configured or not ready.
var ErrUnavailable = errors.New("image provider is not available")

// Result is the outcome of one provider call. A call that reaches the provider but
// yields no image is reported as Success=false with Error set, not as a Go error.
type Result struct {
	Success  bool
	Buffer   []byte
	MimeType string
	Error    string
	Metadata map[string]string
}

// Failed builds an unsuccessful result.
func Failed(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

// Info describes a provider.
type Info struct {
	Name             string
	Version          string
	SupportedFormats []string
	MaxPromptLength  int
}

// Provider generates and edits images.
type Provider interface {
	// IsAvailable reports whether the provider is configured and ready.
	IsAvailable() bool

	// Generate creates an image from a text prompt.
	Generate(ctx context.Context, prompt string) (*Result, error)

	// Edit transforms image according to prompt.
	Edit(ctx context.Context, prompt string, image []byte, mimeType string) (*Result, error)

	// Info returns provider metadata.
	Info() Info
}

// =============================================================================
// UNAVAILABLE PROVIDER
// =============================================================================

// Unavailable stands in when no API key is configured. Every call fails with ErrUnavailable.
type Unavailable struct {
	Reason string
}

func (u Unavailable) IsAvailable() bool { return false }

func (u Unavailable) Generate(context.Context, string) (*Result, error) {
	return nil, u.err()
}

func (u Unavailable) Edit(context.Context, string, []byte, string) (*Result, error) {
	return nil, u.err()
}

func (u Unavailable) Info() Info {
	return Info{Name: "unavailable"}
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return errors.Join(ErrUnavailable, errors.New(u.Reason))
}
