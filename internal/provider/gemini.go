package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"imagebot/internal/logging"
)

// =============================================================================
// GEMINI IMAGE PROVIDER
// =============================================================================

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxConcurrent int
}

// DefaultGeminiConfig returns sensible defaults. The API key is left empty.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:         "gemini-2.5-flash-image",
		Timeout:       120 * time.Second,
		MaxConcurrent: 4,
	}
}

// generateFunc matches genai's Models.GenerateContent.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider generates and edits images through the Gemini API.
type GeminiProvider struct {
	cfg      GeminiConfig
	generate generateFunc
	sem      *semaphore.Weighted
}

// NewGeminiProvider creates a provider backed by a genai client.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", ErrUnavailable)
	}
	cfg = withGeminiDefaults(cfg)

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientCfg.HTTPOptions = genai.HTTPOptions{Timeout: &timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Provider("Gemini provider ready: model=%s max_concurrent=%d", cfg.Model, cfg.MaxConcurrent)
	return newGeminiProvider(cfg, client.Models.GenerateContent), nil
}

func newGeminiProvider(cfg GeminiConfig, fn generateFunc) *GeminiProvider {
	cfg = withGeminiDefaults(cfg)
	return &GeminiProvider{
		cfg:      cfg,
		generate: fn,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

func withGeminiDefaults(cfg GeminiConfig) GeminiConfig {
	def := DefaultGeminiConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	return cfg
}

// IsAvailable reports whether a client was configured.
func (g *GeminiProvider) IsAvailable() bool {
	return g != nil && g.generate != nil
}

// Info returns provider metadata.
func (g *GeminiProvider) Info() Info {
	return Info{
		Name:             "gemini",
		Version:          g.cfg.Model,
		SupportedFormats: []string{"image/png", "image/jpeg", "image/webp"},
		MaxPromptLength:  2000,
	}
}

// Generate creates an image from prompt.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (*Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	return g.call(ctx, "generate", parts)
}

// Edit sends the source image together with the instruction.
func (g *GeminiProvider) Edit(ctx context.Context, prompt string, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return Failed("no source image supplied"), nil
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	return g.call(ctx, "edit", parts)
}

func (g *GeminiProvider) call(ctx context.Context, op string, parts []*genai.Part) (*Result, error) {
	if !g.IsAvailable() {
		return nil, ErrUnavailable
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("timeout waiting for provider slot: %w", err)
	}
	defer g.sem.Release(1)

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.generate(ctx, g.cfg.Model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		msg := NormalizeError(err)
		logging.ProviderWarn("Gemini %s failed after %s: %s", op, time.Since(start), msg)
		return nil, fmt.Errorf("gemini %s: %s", op, msg)
	}

	res := extractImage(resp)
	if res.Metadata == nil {
		res.Metadata = make(map[string]string)
	}
	res.Metadata["model"] = g.cfg.Model
	res.Metadata["operation"] = op
	res.Metadata["duration_ms"] = fmt.Sprintf("%d", time.Since(start).Milliseconds())

	if res.Success {
		logging.Provider("Gemini %s returned %d bytes (%s) in %s", op, len(res.Buffer), res.MimeType, time.Since(start))
	} else {
		logging.ProviderWarn("Gemini %s returned no image: %s", op, res.Error)
	}
	return res, nil
}

// extractImage pulls the first inline image out of a response.
func extractImage(resp *genai.GenerateContentResponse) *Result {
	if resp == nil {
		return Failed("empty response from provider")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return Failed(fmt.Sprintf("prompt blocked by provider: %s", strings.ToLower(string(fb.BlockReason))))
	}
	if len(resp.Candidates) == 0 {
		return Failed("provider returned no candidates")
	}

	var text []string
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		switch cand.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonImageSafety:
			return Failed(fmt.Sprintf("content blocked by safety filters (%s)", strings.ToLower(string(cand.FinishReason))))
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				res := &Result{Success: true, Buffer: part.InlineData.Data, MimeType: mime}
				if len(text) > 0 {
					res.Metadata = map[string]string{"text": strings.Join(text, "\n")}
				}
				return res
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				text = append(text, t)
			}
		}
	}

	if len(text) > 0 {
		return Failed("provider returned text instead of an image: " + strings.Join(text, " "))
	}
	return Failed("provider returned no image data")
}
