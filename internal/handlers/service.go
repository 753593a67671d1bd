// Package handlers implements the bot's commands, button actions and form submissions
// and binds them into a dispatch.Coordinator.
package handlers

import (
	"fmt"
	"strings"
	"time"

	"imagebot/internal/dispatch"
	"imagebot/internal/imaging"
	"imagebot/internal/logging"
	"imagebot/internal/provider"
	"imagebot/internal/regenerate"
)

// Command names.
const (
	CommandImagine = "imagine"
	CommandEdit    = "edit"
	CommandHelp    = "help"
	CommandStatus  = "status"
)

// Token prefixes. Action and form tokens end with a generation ID.
const (
	ActionRegenerate = "regenerate_"
	ActionEdit       = "edit_"
	FormEditModal    = "edit_modal_"
)

// Option and form field names.
const (
	OptionPrompt = "prompt"
	OptionImage  = "image"
)

// User-facing messages.
const (
	msgUnavailable = "The image provider is not configured. Set GEMINI_API_KEY and try again."
	msgExpired     = "That image is no longer available. Run /imagine again."
	msgNoImage     = "Attach an image to edit."
)

// BotInfo identifies the running bot in /status.
type BotInfo struct {
	Name    string
	Version string
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Provider     provider.Provider
	Orchestrator *regenerate.Orchestrator
	Validator    imaging.Validator
	History      *History
	Coordinator  *dispatch.Coordinator
}

// Service holds handler state.
type Service struct {
	provider  provider.Provider
	regen     *regenerate.Orchestrator
	validator imaging.Validator
	history   *History
	coord     *dispatch.Coordinator
	info      BotInfo
	started   time.Time
}

// New creates the handler service. Missing optional deps get defaults.
func New(deps Deps, info BotInfo) *Service {
	s := &Service{
		provider:  deps.Provider,
		regen:     deps.Orchestrator,
		validator: deps.Validator,
		history:   deps.History,
		coord:     deps.Coordinator,
		info:      info,
		started:   time.Now(),
	}
	if s.provider == nil {
		s.provider = provider.Unavailable{}
	}
	if s.validator == nil {
		s.validator = imaging.NewRuleValidator(imaging.DefaultRules())
	}
	if s.regen == nil {
		s.regen = regenerate.NewOrchestrator(s.provider, regenerate.DefaultConfig(), regenerate.WithValidator(s.validator))
	}
	if s.history == nil {
		s.history = NewHistory(0, 0)
	}
	if s.info.Name == "" {
		s.info.Name = "imagebot"
	}
	return s
}

// History returns the generation store.
func (s *Service) History() *History {
	return s.history
}

// Register binds every handler into the coordinator. cooldowns overrides per-command
// cooldowns by name.
func (s *Service) Register(cooldowns map[string]time.Duration) error {
	if s.coord == nil {
		return fmt.Errorf("handlers: coordinator is required")
	}

	for _, cmd := range s.commands() {
		if d, ok := cooldowns[cmd.Name]; ok {
			cmd.Cooldown = d
		}
		if err := s.coord.RegisterCommand(cmd); err != nil {
			return err
		}
	}

	// Form and action registries are separate, so "edit_" does not shadow "edit_modal_".
	if err := s.coord.RegisterAction(ActionRegenerate, dispatch.HandlerFunc(s.handleRegenerate), "Retry a generation"); err != nil {
		return err
	}
	if err := s.coord.RegisterAction(ActionEdit, dispatch.HandlerFunc(s.handleEditButton), "Open the edit form"); err != nil {
		return err
	}
	if err := s.coord.RegisterForm(FormEditModal, dispatch.HandlerFunc(s.handleEditForm), "Submit an edit"); err != nil {
		return err
	}

	logging.Handlers("Registered %d commands, %d actions, %d forms",
		s.coord.Commands().Len(), s.coord.Actions().Len(), s.coord.Forms().Len())
	return nil
}

func (s *Service) commands() []dispatch.Command {
	defaults := DefaultCooldowns()
	return []dispatch.Command{
		{Name: CommandImagine, Description: "Generate an image from a prompt", Cooldown: defaults[CommandImagine], Handler: dispatch.HandlerFunc(s.handleImagine)},
		{Name: CommandEdit, Description: "Edit an attached image", Cooldown: defaults[CommandEdit], Handler: dispatch.HandlerFunc(s.handleEdit)},
		{Name: CommandHelp, Description: "List available commands", Cooldown: defaults[CommandHelp], Handler: dispatch.HandlerFunc(s.handleHelp)},
		{Name: CommandStatus, Description: "Show provider and bot status", Cooldown: defaults[CommandStatus], Handler: dispatch.HandlerFunc(s.handleStatus)},
	}
}

// DefaultCooldowns returns the built-in cooldown of each command. Zero means the
// coordinator default.
func DefaultCooldowns() map[string]time.Duration {
	return map[string]time.Duration{
		CommandImagine: 5 * time.Second,
		CommandEdit:    5 * time.Second,
		CommandHelp:    0,
		CommandStatus:  dispatch.NoCooldown,
	}
}

// generationID strips prefix from an action or form token.
func generationID(token, prefix string) string {
	return strings.TrimPrefix(token, prefix)
}

// imageReply builds the reply carrying a finished image and its follow-up buttons.
func imageReply(g *Generation, caption string) dispatch.Reply {
	return dispatch.Reply{
		Content:   caption,
		Image:     g.Image,
		ImageMime: g.MimeType,
		ImageName: g.ID + extensionFor(g.MimeType),
		Buttons: []dispatch.Button{
			{Label: "Regenerate", Token: ActionRegenerate + g.ID},
			{Label: "Edit", Token: ActionEdit + g.ID},
		},
	}
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
