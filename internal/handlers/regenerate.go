package handlers

import (
	"context"
	"fmt"

	"imagebot/internal/dispatch"
	"imagebot/internal/logging"
	"imagebot/internal/regenerate"
)

// handleRegenerate re-runs a stored request through the retry orchestrator.
func (s *Service) handleRegenerate(ctx context.Context, ev dispatch.Event) error {
	id := generationID(ev.Token(), ActionRegenerate)
	g, ok := s.history.Get(id)
	if !ok || g.Request == nil {
		return ev.Respond(ctx, dispatch.Reply{Content: msgExpired, Ephemeral: true})
	}

	req := g.Request.Clone()
	req.SubjectID = ev.SubjectID()
	if err := ev.Respond(ctx, dispatch.Reply{Content: fmt.Sprintf("Regenerating: %q ...", truncate(req.Prompt, 80))}); err != nil {
		return fmt.Errorf("acknowledge regenerate %s: %w", id, err)
	}

	res := s.regen.Execute(ctx, req)
	if !res.Success {
		logging.HandlersWarn("Regenerate %s failed (%s) after %d attempt(s): %s", id, res.Kind, len(res.PreviousAttempts), res.Error)
		return ev.Amend(ctx, dispatch.Reply{
			Content: regenerateFailureText(res),
			Buttons: []dispatch.Button{{Label: "Try again", Token: ActionRegenerate + g.ID}},
		})
	}

	next := s.history.Put(&Generation{
		Request:  res.Request,
		Image:    res.Result.Buffer,
		MimeType: res.Result.MimeType,
		Attempts: len(res.PreviousAttempts) + 1,
	})
	caption := fmt.Sprintf("%q", truncate(req.Prompt, 200))
	if res.Trigger == regenerate.TriggerAutomatic {
		caption += fmt.Sprintf(" (succeeded on attempt %d)", res.AttemptNumber)
	}
	return ev.Amend(ctx, imageReply(next, caption))
}

func regenerateFailureText(res regenerate.Result) string {
	switch res.Kind {
	case regenerate.FailureUnavailable:
		return msgUnavailable
	case regenerate.FailureValidation:
		return res.Error
	}
	return fmt.Sprintf("Regeneration failed after %d attempt(s): %s", len(res.PreviousAttempts), res.Error)
}
