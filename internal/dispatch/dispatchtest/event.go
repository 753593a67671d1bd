// Package dispatchtest provides an in-memory dispatch.Event for tests.
package dispatchtest

import (
	"context"
	"sync"

	"imagebot/internal/dispatch"
)

// Sent is one reply recorded by an Event.
type Sent struct {
	Amend bool
	Reply dispatch.Reply
}

// Event records every reply sent to it.
type Event struct {
	Cat     dispatch.Category
	Tok     string
	Subject string
	Context string
	Options map[string]string
	Files   []dispatch.Attachment

	// RespondErr and AmendErr are returned by Respond and Amend when set.
	RespondErr error
	AmendErr   error

	mu        sync.Mutex
	responded bool
	sent      []Sent
}

// Command builds a command event.
func Command(name, subject string, opts map[string]string) *Event {
	return &Event{Cat: dispatch.CategoryCommand, Tok: name, Subject: subject, Options: opts}
}

// Action builds a widget action event.
func Action(token, subject string) *Event {
	return &Event{Cat: dispatch.CategoryAction, Tok: token, Subject: subject}
}

// Form builds a form submission event.
func Form(token, subject string, fields map[string]string) *Event {
	return &Event{Cat: dispatch.CategoryForm, Tok: token, Subject: subject, Options: fields}
}

func (e *Event) Category() dispatch.Category { return e.Cat }
func (e *Event) Token() string               { return e.Tok }
func (e *Event) SubjectID() string           { return e.Subject }
func (e *Event) ContextID() string           { return e.Context }

func (e *Event) HasResponded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.responded
}

// MarkResponded simulates an event that was already answered.
func (e *Event) MarkResponded() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responded = true
}

func (e *Event) Option(name string) string { return e.Options[name] }

func (e *Event) Attachments() []dispatch.Attachment { return e.Files }

func (e *Event) Respond(_ context.Context, r dispatch.Reply) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.RespondErr != nil {
		return e.RespondErr
	}
	e.responded = true
	e.sent = append(e.sent, Sent{Reply: r})
	return nil
}

func (e *Event) Amend(_ context.Context, r dispatch.Reply) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.AmendErr != nil {
		return e.AmendErr
	}
	e.sent = append(e.sent, Sent{Amend: true, Reply: r})
	return nil
}

// Sent returns a copy of the recorded replies.
func (e *Event) Sent() []Sent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Sent, len(e.sent))
	copy(out, e.sent)
	return out
}

// Last returns the most recent reply, or a zero Sent.
func (e *Event) Last() Sent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sent) == 0 {
		return Sent{}
	}
	return e.sent[len(e.sent)-1]
}
