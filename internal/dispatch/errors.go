package dispatch

import "errors"

// Dispatch errors.
var (
	// ErrNoHandler indicates no handler matched a token.
	ErrNoHandler = errors.New("dispatch: no handler for token")

	// ErrEmptyPrefix indicates a registration with an empty prefix.
	ErrEmptyPrefix = errors.New("dispatch: prefix must not be empty")

	// ErrNilHandler indicates a registration without a handler.
	ErrNilHandler = errors.New("dispatch: handler must not be nil")

	// ErrHandlerPanic indicates the handler panicked.
	ErrHandlerPanic = errors.New("dispatch: handler panic")

	// ErrUnknownCategory indicates an event with an unsupported category.
	ErrUnknownCategory = errors.New("dispatch: unknown event category")
)
