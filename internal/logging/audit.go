package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Dispatch events
	AuditActionRoute    AuditEventType = "action_route"
	AuditActionComplete AuditEventType = "action_complete"
	AuditActionError    AuditEventType = "action_error"
	AuditActionUnknown  AuditEventType = "action_unknown"

	// Cooldown gate
	AuditCooldownBlock AuditEventType = "cooldown_block"

	// Regeneration chain
	AuditRegenerateAttempt  AuditEventType = "regenerate_attempt"
	AuditRegenerateComplete AuditEventType = "regenerate_complete"

	// Error recovery at the dispatch boundary
	AuditErrorRecovery AuditEventType = "error_recovery"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// AuditEvent represents one structured audit log entry.
type AuditEvent struct {
	EventType AuditEventType
	Category  string        // Event category (command/action/form)
	Subject   string        // Originating user
	Target    string        // Token or command name
	Success   bool          // Operation succeeded
	Duration  time.Duration // Handler duration if measured
	Error     string        // Error message if failed
	Fields    map[string]interface{}
}

// AuditLogger writes audit events to the audit category.
type AuditLogger struct {
	subject string
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithSubject creates an audit logger scoped to a subject
func AuditWithSubject(subject string) *AuditLogger {
	return &AuditLogger{subject: subject}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	l := Get(CategoryAudit).Zap()

	if event.Subject == "" {
		event.Subject = a.subject
	}

	fields := make([]zap.Field, 0, 7+len(event.Fields))
	fields = append(fields,
		zap.String("event", string(event.EventType)),
		zap.String("subject", event.Subject),
		zap.String("target", event.Target),
		zap.Bool("success", event.Success),
	)
	if event.Category != "" {
		fields = append(fields, zap.String("cat", event.Category))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("dur", event.Duration))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	l.Info("audit", fields...)
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// ActionRouted records that an event was resolved to a handler.
func (a *AuditLogger) ActionRouted(category, target string) {
	a.Log(AuditEvent{EventType: AuditActionRoute, Category: category, Target: target, Success: true})
}

// ActionCompleted records the outcome of a handler invocation.
func (a *AuditLogger) ActionCompleted(category, target string, dur time.Duration, err error) {
	ev := AuditEvent{
		EventType: AuditActionComplete,
		Category:  category,
		Target:    target,
		Success:   err == nil,
		Duration:  dur,
	}
	if err != nil {
		ev.EventType = AuditActionError
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// ActionUnknown records an event whose token resolved to nothing.
func (a *AuditLogger) ActionUnknown(category, target string) {
	a.Log(AuditEvent{EventType: AuditActionUnknown, Category: category, Target: target})
}

// CooldownBlocked records a command rejected by the cooldown gate.
func (a *AuditLogger) CooldownBlocked(command string, remaining float64) {
	a.Log(AuditEvent{
		EventType: AuditCooldownBlock,
		Category:  "command",
		Target:    command,
		Fields:    map[string]interface{}{"remaining_s": remaining},
	})
}

// RegenerateAttempt records one attempt of a regeneration chain.
func (a *AuditLogger) RegenerateAttempt(requestID string, attempt int, err string) {
	a.Log(AuditEvent{
		EventType: AuditRegenerateAttempt,
		Target:    requestID,
		Success:   err == "",
		Error:     err,
		Fields:    map[string]interface{}{"attempt": attempt},
	})
}

// RegenerateCompleted records the end of a regeneration chain.
func (a *AuditLogger) RegenerateCompleted(requestID string, success bool, attempts int, trigger string) {
	a.Log(AuditEvent{
		EventType: AuditRegenerateComplete,
		Target:    requestID,
		Success:   success,
		Fields:    map[string]interface{}{"attempts": attempts, "trigger": trigger},
	})
}

// ErrorRecovered records a fault caught at the dispatch boundary.
func (a *AuditLogger) ErrorRecovered(category, target string, err error, notified bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: AuditErrorRecovery,
		Category:  category,
		Target:    target,
		Success:   notified,
		Error:     msg,
	})
}
