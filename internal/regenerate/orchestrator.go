// Package regenerate re-runs failed image generations and edits with a bounded,
// keyword-classified retry policy.
package regenerate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"imagebot/internal/imaging"
	"imagebot/internal/logging"
	"imagebot/internal/provider"
)

// Orchestrator executes one regeneration chain per call. It holds no state between calls.
type Orchestrator struct {
	cfg       Config
	provider  provider.Provider
	validator imaging.Validator
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithValidator sanitizes and validates each request before the first attempt.
func WithValidator(v imaging.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithSleeper replaces the delay between attempts.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// NewOrchestrator creates an orchestrator around p.
func NewOrchestrator(p provider.Provider, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg.normalized(),
		provider: p,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective policy.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Execute starts a new chain at attempt 1.
func (o *Orchestrator) Execute(ctx context.Context, req *imaging.Request) Result {
	return o.ExecuteFrom(ctx, req, 1, nil)
}

// ExecuteFrom continues a chain at attempt with the given failure history.
// The history slice is copied; the caller's slice is never modified.
func (o *Orchestrator) ExecuteFrom(ctx context.Context, req *imaging.Request, attempt int, previous []string) Result {
	if attempt < 1 {
		attempt = 1
	}
	history := append(make([]string, 0, len(previous)+o.cfg.MaxAttempts()), previous...)

	res := Result{
		AttemptNumber:    attempt,
		PreviousAttempts: history,
		MaxRetries:       o.cfg.MaxRetries,
		Request:          req,
	}

	if attempt > o.cfg.MaxAttempts() {
		res.Error = fmt.Sprintf("Maximum retry attempts exceeded (%d)", o.cfg.MaxRetries)
		res.Kind = FailureExhausted
		return o.finish(res)
	}
	if req == nil {
		res.Error = "no request to regenerate"
		res.Kind = FailureValidation
		return o.finish(res)
	}
	if o.provider == nil || !o.provider.IsAvailable() {
		res.Error = provider.ErrUnavailable.Error()
		res.Kind = FailureUnavailable
		return o.finish(res)
	}

	if o.validator != nil {
		req = o.validator.Sanitize(req)
		v := o.validator.Validate(req)
		res.Validation = &v
		res.Request = req
		if !v.IsValid {
			res.Error = "Validation failed: " + v.Summary()
			res.Kind = FailureValidation
			return o.finish(res)
		}
	}

	for {
		attemptReq := req.Clone()
		attemptReq.SetMeta(imaging.MetaOperation, imaging.OperationRegenerate)
		attemptReq.SetMeta(imaging.MetaAttempt, strconv.Itoa(attempt))
		if _, ok := attemptReq.Metadata[imaging.MetaSource]; !ok {
			attemptReq.SetMeta(imaging.MetaSource, req.ID)
		}
		res.Request = attemptReq
		res.AttemptNumber = attempt

		start := time.Now()
		pr, err := o.invoke(ctx, attemptReq)
		if err == nil && pr != nil && pr.Success {
			res.Success = true
			res.Result = pr
			res.Trigger = TriggerUser
			if attempt > 1 {
				res.Trigger = TriggerAutomatic
			}
			logging.RetryDebug("Attempt %d for %s succeeded in %s", attempt, req.ID, time.Since(start))
			return o.finish(res)
		}

		msg := failureMessage(pr, err)
		res.Result = pr
		res.Error = msg
		res.PreviousAttempts = append(res.PreviousAttempts, msg)
		logging.AuditWithSubject(req.SubjectID).RegenerateAttempt(req.ID, attempt, msg)

		if !o.cfg.IsRetryable(msg, attempt) {
			res.Kind = FailureTerminal
			if o.cfg.EnableAutoRetry && matchesKeyword(msg, o.cfg.AutoRetryKeywords) {
				res.Kind = FailureExhausted
			}
			logging.RetryWarn("Attempt %d/%d for %s failed, not retrying: %s", attempt, o.cfg.MaxAttempts(), req.ID, msg)
			return o.finish(res)
		}

		logging.Retry("Attempt %d/%d for %s failed, retrying in %s: %s", attempt, o.cfg.MaxAttempts(), req.ID, o.cfg.RetryDelay, msg)
		if err := o.sleep(ctx, o.cfg.RetryDelay); err != nil {
			res.Kind = FailureCanceled
			res.Error = fmt.Sprintf("%s (retry aborted: %v)", msg, err)
			return o.finish(res)
		}
		attempt++
	}
}

// invoke runs the provider operation, converting panics into errors.
func (o *Orchestrator) invoke(ctx context.Context, req *imaging.Request) (res *provider.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	switch req.Type {
	case imaging.TypeEdit:
		return o.provider.Edit(ctx, req.Prompt, req.Image, req.MimeType)
	case imaging.TypeGenerate:
		return o.provider.Generate(ctx, req.Prompt)
	default:
		return nil, fmt.Errorf("unsupported operation %q", req.Type)
	}
}

func (o *Orchestrator) finish(res Result) Result {
	id, subject := "", ""
	if res.Request != nil {
		id, subject = res.Request.ID, res.Request.SubjectID
		if src, ok := res.Request.Metadata[imaging.MetaSource]; ok {
			id = src
		}
	}
	logging.AuditWithSubject(subject).RegenerateCompleted(id, res.Success, len(res.PreviousAttempts), string(res.Trigger))
	if !res.Success {
		logging.RetryDebug("Chain for %s ended: kind=%s attempts=%d error=%s", id, res.Kind, len(res.PreviousAttempts), res.Error)
	}
	return res
}

func failureMessage(res *provider.Result, err error) string {
	if err != nil {
		return provider.NormalizeError(err)
	}
	if res == nil {
		return "provider returned no result"
	}
	if res.Error != "" {
		return res.Error
	}
	return "generation failed"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
