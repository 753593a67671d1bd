package imaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestValidateGenerate(t *testing.T) {
	v := NewRuleValidator(DefaultRules())

	tests := []struct {
		name    string
		prompt  string
		valid   bool
		message string
	}{
		{"ok", "a red fox in the snow", true, ""},
		{"empty", "   ", false, "Prompt cannot be empty"},
		{"too short", "ab", false, "at least 3"},
		{"too long", strings.Repeat("x", 2001), false, "exceeds 2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(NewGenerateRequest("u1", tt.prompt))
			assert.Equal(t, tt.valid, res.IsValid)
			if tt.message != "" {
				assert.Contains(t, res.Summary(), tt.message)
			}
		})
	}
}

func TestValidateWarnsNearLimit(t *testing.T) {
	v := NewRuleValidator(Rules{MaxPromptLength: 100})
	res := v.Validate(NewGenerateRequest("u1", strings.Repeat("y", 95)))
	assert.True(t, res.IsValid)
	assert.Len(t, res.Warnings, 1)
}

func TestValidateEdit(t *testing.T) {
	v := NewRuleValidator(Rules{MaxImageBytes: 16})

	ok := NewEditRequest("u1", "make it blue", pngHeader, "")
	assert.Equal(t, "image/png", ok.MimeType)
	assert.True(t, v.Validate(ok).IsValid)

	missing := NewEditRequest("u1", "make it blue", nil, "image/png")
	assert.Contains(t, v.Validate(missing).Summary(), "image is required")

	big := NewEditRequest("u1", "make it blue", make([]byte, 32), "image/png")
	assert.Contains(t, v.Validate(big).Summary(), "exceeds 16 bytes")

	text := NewEditRequest("u1", "make it blue", []byte("plain text"), "")
	res := v.Validate(text)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Summary(), "Unsupported image type")
}

func TestValidateUnknownType(t *testing.T) {
	v := NewRuleValidator(DefaultRules())
	res := v.Validate(&Request{Type: "upscale", Prompt: "bigger please"})
	assert.False(t, res.IsValid)
	assert.False(t, v.Validate(nil).IsValid)
}

func TestSanitize(t *testing.T) {
	v := NewRuleValidator(Rules{MaxPromptLength: 12})

	req := NewGenerateRequest("u1", "  a\tcat \x00\x07 on\n\n a   mat  ")
	req.MimeType = " IMAGE/PNG "
	out := v.Sanitize(req)

	require.NotSame(t, req, out)
	assert.Equal(t, "a cat on a m", out.Prompt)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, req.ID, out.ID)

	out.SetMeta("k", "v")
	_, leaked := req.Metadata["k"]
	assert.False(t, leaked, "sanitize must not share metadata with the input")
	assert.Nil(t, v.Sanitize(nil))
}

func TestRequestMetadata(t *testing.T) {
	req := NewGenerateRequest("u1", "prompt")
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "generate", req.Operation())

	req.SetMeta(MetaOperation, OperationRegenerate)
	assert.Equal(t, "regenerate", req.Operation())

	bare := &Request{Type: TypeEdit}
	assert.Equal(t, "edit", bare.Operation())
	bare.SetMeta(MetaAttempt, "2")
	assert.Equal(t, "2", bare.Metadata[MetaAttempt])
}
