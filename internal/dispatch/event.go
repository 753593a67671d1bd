package dispatch

import "context"

// Category is the kind of inbound event.
type Category string

const (
	CategoryCommand Category = "command"
	CategoryAction  Category = "action"
	CategoryForm    Category = "form"
)

// Valid reports whether c is one of the routed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCommand, CategoryAction, CategoryForm:
		return true
	}
	return false
}

// Attachment is a file sent along with an event.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// Button is an interactive component whose Token is routed back as an action event.
type Button struct {
	Label string
	Token string
}

// Form asks the originator for input. Its Token is routed back as a form event.
type Form struct {
	Token  string
	Title  string
	Fields []FormField
}

// FormField is one input in a Form.
type FormField struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
}

// Reply is a message sent back to the originator of an event.
type Reply struct {
	Content   string
	Ephemeral bool // visible only to the originator

	Image     []byte
	ImageMime string
	ImageName string

	Buttons []Button
	Form    *Form
}

// Event is one inbound interaction. Implementations are supplied by the event source.
type Event interface {
	Category() Category
	// Token is the command name for commands and the opaque action token otherwise.
	Token() string
	SubjectID() string
	ContextID() string
	HasResponded() bool

	// Option returns a named argument or form field, or "" when absent.
	Option(name string) string
	Attachments() []Attachment

	// Respond sends the first response. Amend replaces or follows up on it.
	Respond(ctx context.Context, r Reply) error
	Amend(ctx context.Context, r Reply) error
}

// Send sends r as the first response, or amends the existing one if the event was
// already answered.
func Send(ctx context.Context, ev Event, r Reply) error {
	if ev.HasResponded() {
		return ev.Amend(ctx, r)
	}
	return ev.Respond(ctx, r)
}
