package imaging

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidationResult reports whether a request may be sent to the provider.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Summary joins the errors into one user-facing line.
func (v ValidationResult) Summary() string {
	return strings.Join(v.Errors, "; ")
}

// Validator checks and normalizes requests before they reach the provider.
type Validator interface {
	Validate(req *Request) ValidationResult
	Sanitize(req *Request) *Request
}

// Rules configures RuleValidator.
type Rules struct {
	MinPromptLength  int
	MaxPromptLength  int
	AllowedMimeTypes []string
	MaxImageBytes    int
}

// DefaultRules returns sensible defaults.
func DefaultRules() Rules {
	return Rules{
		MinPromptLength:  3,
		MaxPromptLength:  2000,
		AllowedMimeTypes: []string{"image/png", "image/jpeg", "image/webp", "image/gif"},
		MaxImageBytes:    10 << 20,
	}
}

// RuleValidator is the default Validator.
type RuleValidator struct {
	rules Rules
}

// NewRuleValidator creates a validator, filling unset limits from DefaultRules.
func NewRuleValidator(rules Rules) *RuleValidator {
	def := DefaultRules()
	if rules.MaxPromptLength <= 0 {
		rules.MaxPromptLength = def.MaxPromptLength
	}
	if rules.MinPromptLength < 0 {
		rules.MinPromptLength = 0
	}
	if len(rules.AllowedMimeTypes) == 0 {
		rules.AllowedMimeTypes = def.AllowedMimeTypes
	}
	if rules.MaxImageBytes <= 0 {
		rules.MaxImageBytes = def.MaxImageBytes
	}
	return &RuleValidator{rules: rules}
}

// Rules returns the effective rules.
func (v *RuleValidator) Rules() Rules {
	return v.rules
}

// Validate checks the prompt and, for edits, the source image.
func (v *RuleValidator) Validate(req *Request) ValidationResult {
	res := ValidationResult{}
	if req == nil {
		res.Errors = append(res.Errors, "request is missing")
		return res
	}

	prompt := strings.TrimSpace(req.Prompt)
	n := len([]rune(prompt))
	switch {
	case n == 0:
		res.Errors = append(res.Errors, "Prompt cannot be empty")
	case n < v.rules.MinPromptLength:
		res.Errors = append(res.Errors, fmt.Sprintf("Prompt must be at least %d characters", v.rules.MinPromptLength))
	case n > v.rules.MaxPromptLength:
		res.Errors = append(res.Errors, fmt.Sprintf("Prompt exceeds %d characters", v.rules.MaxPromptLength))
	case n > v.rules.MaxPromptLength*9/10:
		res.Warnings = append(res.Warnings, "Prompt is close to the maximum length")
	}

	switch req.Type {
	case TypeGenerate:
	case TypeEdit:
		if len(req.Image) == 0 {
			res.Errors = append(res.Errors, "An image is required for editing")
			break
		}
		if len(req.Image) > v.rules.MaxImageBytes {
			res.Errors = append(res.Errors, fmt.Sprintf("Image exceeds %d bytes", v.rules.MaxImageBytes))
		}
		if !v.mimeAllowed(req.MimeType) {
			res.Errors = append(res.Errors, fmt.Sprintf("Unsupported image type %q", req.MimeType))
		}
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("Unknown operation %q", req.Type))
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func (v *RuleValidator) mimeAllowed(mime string) bool {
	for _, m := range v.rules.AllowedMimeTypes {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy with control characters removed, whitespace collapsed and the
// prompt truncated to the maximum length.
func (v *RuleValidator) Sanitize(req *Request) *Request {
	if req == nil {
		return nil
	}
	out := req.Clone()

	var b strings.Builder
	b.Grow(len(req.Prompt))
	space := false
	for _, r := range req.Prompt {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	prompt := b.String()
	if runes := []rune(prompt); len(runes) > v.rules.MaxPromptLength {
		prompt = strings.TrimSpace(string(runes[:v.rules.MaxPromptLength]))
	}
	out.Prompt = prompt
	out.MimeType = strings.ToLower(strings.TrimSpace(out.MimeType))
	return out
}
