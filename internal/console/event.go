package console

import (
	"context"
	"sync"

	"imagebot/internal/dispatch"
)

// Event is a dispatch.Event backed by one console line.
type Event struct {
	input    *Input
	subject  string
	context  string
	files    []dispatch.Attachment
	renderer *Renderer

	mu        sync.Mutex
	responded bool
}

func (e *Event) Category() dispatch.Category { return e.input.Category }
func (e *Event) Token() string               { return e.input.Token }
func (e *Event) SubjectID() string           { return e.subject }
func (e *Event) ContextID() string           { return e.context }
func (e *Event) Option(name string) string   { return e.input.Options[name] }

func (e *Event) Attachments() []dispatch.Attachment { return e.files }

func (e *Event) HasResponded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.responded
}

// Respond prints the first reply. A terminal has no message to edit, so a second
// Respond renders like an Amend.
func (e *Event) Respond(ctx context.Context, r dispatch.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	amend := e.responded
	e.responded = true
	e.mu.Unlock()
	return e.renderer.Render(r, amend)
}

func (e *Event) Amend(ctx context.Context, r dispatch.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	e.responded = true
	e.mu.Unlock()
	return e.renderer.Render(r, true)
}
