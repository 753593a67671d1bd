package regenerate

import (
	"imagebot/internal/imaging"
	"imagebot/internal/provider"
)

// Trigger records who caused the successful attempt.
type Trigger string

const (
	TriggerUser      Trigger = "user"
	TriggerAutomatic Trigger = "automatic"
)

// FailureKind classifies a failed chain.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureValidation means the request was rejected before reaching the provider.
	FailureValidation
	// FailureUnavailable means the provider was not configured or ready.
	FailureUnavailable
	// FailureExhausted means a retryable failure persisted through every allowed attempt.
	FailureExhausted
	// FailureTerminal means the failure did not match any retry keyword.
	FailureTerminal
	// FailureCanceled means the context ended while waiting between attempts.
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureUnavailable:
		return "unavailable"
	case FailureExhausted:
		return "exhausted"
	case FailureTerminal:
		return "terminal"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result is the outcome of one regeneration chain.
type Result struct {
	Success          bool
	Result           *provider.Result
	Error            string
	AttemptNumber    int
	PreviousAttempts []string
	Trigger          Trigger
	MaxRetries       int
	Kind             FailureKind

	// Validation is set when a validator ran.
	Validation *imaging.ValidationResult
	// Request is the last request sent (or the rejected one).
	Request *imaging.Request
}
