// Package imaging holds the request model shared by handlers, the provider adapter and the
// regeneration orchestrator, plus the prompt validation and sanitization rules.
package imaging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// OperationType selects the provider operation for a request.
type OperationType string

const (
	TypeGenerate OperationType = "generate"
	TypeEdit     OperationType = "edit"
)

// Metadata keys written on requests.
const (
	MetaOperation = "operation" // generate, edit or regenerate
	MetaAttempt   = "attempt"
	MetaSource    = "source" // id of the request a regeneration was derived from
)

// OperationRegenerate tags a request re-run by the regeneration orchestrator.
const OperationRegenerate = "regenerate"

// Request is one image generation or edit.
type Request struct {
	ID        string
	Type      OperationType
	Prompt    string
	Image     []byte // source image for edits
	MimeType  string
	SubjectID string
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewGenerateRequest creates a text-to-image request.
func NewGenerateRequest(subjectID, prompt string) *Request {
	return &Request{
		ID:        uuid.NewString(),
		Type:      TypeGenerate,
		Prompt:    prompt,
		SubjectID: subjectID,
		Metadata:  map[string]string{MetaOperation: string(TypeGenerate)},
		CreatedAt: time.Now(),
	}
}

// NewEditRequest creates an image edit request. An empty mimeType is sniffed from the bytes.
func NewEditRequest(subjectID, prompt string, image []byte, mimeType string) *Request {
	if mimeType == "" {
		mimeType = DetectMimeType(image)
	}
	return &Request{
		ID:        uuid.NewString(),
		Type:      TypeEdit,
		Prompt:    prompt,
		Image:     image,
		MimeType:  mimeType,
		SubjectID: subjectID,
		Metadata:  map[string]string{MetaOperation: string(TypeEdit)},
		CreatedAt: time.Now(),
	}
}

// Clone returns a copy with its own metadata map. Image bytes are shared.
func (r *Request) Clone() *Request {
	c := *r
	c.Metadata = make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

// Operation returns the operation tag recorded in metadata.
func (r *Request) Operation() string {
	if op, ok := r.Metadata[MetaOperation]; ok {
		return op
	}
	return string(r.Type)
}

// SetMeta sets a metadata value, allocating the map if needed.
func (r *Request) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// DetectMimeType sniffs an image content type from its leading bytes.
func DetectMimeType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return http.DetectContentType(data)
}
