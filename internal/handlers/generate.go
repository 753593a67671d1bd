package handlers

import (
	"context"
	"fmt"

	"imagebot/internal/dispatch"
	"imagebot/internal/imaging"
	"imagebot/internal/logging"
	"imagebot/internal/provider"
)

// =============================================================================
// GENERATE AND EDIT
// =============================================================================

func (s *Service) handleImagine(ctx context.Context, ev dispatch.Event) error {
	req := imaging.NewGenerateRequest(ev.SubjectID(), ev.Option(OptionPrompt))
	return s.run(ctx, ev, req, "Generating")
}

func (s *Service) handleEdit(ctx context.Context, ev dispatch.Event) error {
	var img *dispatch.Attachment
	atts := ev.Attachments()
	for i := range atts {
		if len(atts[i].Data) > 0 {
			img = &atts[i]
			break
		}
	}
	if img == nil {
		return ev.Respond(ctx, dispatch.Reply{Content: msgNoImage, Ephemeral: true})
	}
	req := imaging.NewEditRequest(ev.SubjectID(), ev.Option(OptionPrompt), img.Data, img.MimeType)
	return s.run(ctx, ev, req, "Editing")
}

// handleEditButton answers an Edit button with a form prefilled from the original prompt.
func (s *Service) handleEditButton(ctx context.Context, ev dispatch.Event) error {
	id := generationID(ev.Token(), ActionEdit)
	g, ok := s.history.Get(id)
	if !ok {
		return ev.Respond(ctx, dispatch.Reply{Content: msgExpired, Ephemeral: true})
	}
	return ev.Respond(ctx, dispatch.Reply{
		Ephemeral: true,
		Form: &dispatch.Form{
			Token: FormEditModal + g.ID,
			Title: "Edit image",
			Fields: []dispatch.FormField{{
				Name:        OptionPrompt,
				Label:       "Describe the change",
				Placeholder: "make the sky stormy",
			}},
		},
	})
}

// handleEditForm applies the submitted instruction to a stored image.
func (s *Service) handleEditForm(ctx context.Context, ev dispatch.Event) error {
	id := generationID(ev.Token(), FormEditModal)
	g, ok := s.history.Get(id)
	if !ok {
		return ev.Respond(ctx, dispatch.Reply{Content: msgExpired, Ephemeral: true})
	}
	req := imaging.NewEditRequest(ev.SubjectID(), ev.Option(OptionPrompt), g.Image, g.MimeType)
	req.SetMeta(imaging.MetaSource, g.ID)
	return s.run(ctx, ev, req, "Editing")
}

// run validates req, acknowledges the event, calls the provider once and amends the
// acknowledgement with the image or the failure.
func (s *Service) run(ctx context.Context, ev dispatch.Event, req *imaging.Request, verb string) error {
	if !s.provider.IsAvailable() {
		return ev.Respond(ctx, dispatch.Reply{Content: msgUnavailable, Ephemeral: true})
	}

	req = s.validator.Sanitize(req)
	if v := s.validator.Validate(req); !v.IsValid {
		return ev.Respond(ctx, dispatch.Reply{Content: "Invalid request: " + v.Summary(), Ephemeral: true})
	}

	if err := ev.Respond(ctx, dispatch.Reply{Content: fmt.Sprintf("%s: %q ...", verb, truncate(req.Prompt, 80))}); err != nil {
		return fmt.Errorf("acknowledge %s: %w", req.ID, err)
	}

	var (
		res *provider.Result
		err error
	)
	switch req.Type {
	case imaging.TypeEdit:
		res, err = s.provider.Edit(ctx, req.Prompt, req.Image, req.MimeType)
	default:
		res, err = s.provider.Generate(ctx, req.Prompt)
	}

	if err != nil || res == nil || !res.Success {
		msg := failureText(res, err)
		logging.HandlersWarn("%s failed for %s: %s", req.Operation(), req.SubjectID, msg)
		g := s.history.Put(&Generation{ID: req.ID, Request: req})
		return ev.Amend(ctx, dispatch.Reply{
			Content: fmt.Sprintf("%s failed: %s", verb, msg),
			Buttons: []dispatch.Button{{Label: "Try again", Token: ActionRegenerate + g.ID}},
		})
	}

	g := s.history.Put(&Generation{ID: req.ID, Request: req, Image: res.Buffer, MimeType: res.MimeType, Attempts: 1})
	logging.Handlers("%s %s done for %s (%d bytes)", req.Operation(), g.ID, req.SubjectID, len(g.Image))
	return ev.Amend(ctx, imageReply(g, fmt.Sprintf("%q", truncate(req.Prompt, 200))))
}

func failureText(res *provider.Result, err error) string {
	switch {
	case err != nil:
		return provider.NormalizeError(err)
	case res == nil:
		return "no result"
	case res.Error != "":
		return res.Error
	}
	return "unknown error"
}
