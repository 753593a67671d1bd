package main

import (
	"context"

	"imagebot/internal/config"
	"imagebot/internal/cooldown"
	"imagebot/internal/dispatch"
	"imagebot/internal/handlers"
	"imagebot/internal/imaging"
	"imagebot/internal/logging"
	"imagebot/internal/provider"
	"imagebot/internal/regenerate"
)

// app is the wired bot: provider, coordinator and handlers.
type app struct {
	provider provider.Provider
	coord    *dispatch.Coordinator
	service  *handlers.Service
}

// buildApp wires every component from cfg and registers the handlers.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	prov := buildProvider(ctx, cfg)

	validator := imaging.NewRuleValidator(cfg.ValidationRules())
	orch := regenerate.NewOrchestrator(prov, cfg.RegenerationPolicy(), regenerate.WithValidator(validator))

	coord := dispatch.NewCoordinator(cooldown.NewLedger(), dispatch.WithDefaultCooldown(cfg.GetDefaultCooldown()))
	svc := handlers.New(handlers.Deps{
		Provider:     prov,
		Orchestrator: orch,
		Validator:    validator,
		History:      handlers.NewHistory(cfg.History.MaxEntries, cfg.GetHistoryTTL()),
		Coordinator:  coord,
	}, handlers.BotInfo{Name: cfg.Bot.Name, Version: cfg.Bot.Version})

	if err := svc.Register(cfg.GetCommandCooldowns()); err != nil {
		coord.Close()
		return nil, err
	}

	logging.Boot("Bot %s ready: provider=%s available=%v commands=%d",
		cfg.Bot.Name, prov.Info().Name, prov.IsAvailable(), coord.Commands().Len())
	return &app{provider: prov, coord: coord, service: svc}, nil
}

// buildProvider returns the configured provider, or an Unavailable stand-in so the
// bot still starts and answers with a clear message.
func buildProvider(ctx context.Context, cfg *config.Config) provider.Provider {
	if !cfg.HasAPIKey() {
		logging.ProviderWarn("No API key configured; image commands will report the provider as unavailable")
		return provider.Unavailable{Reason: "no API key configured"}
	}
	p, err := provider.NewGeminiProvider(ctx, cfg.GeminiConfig())
	if err != nil {
		logging.ProviderWarn("Gemini provider unavailable: %v", err)
		return provider.Unavailable{Reason: err.Error()}
	}
	return p
}

// reloadDispatch applies a reloaded config to the running coordinator.
func (a *app) reloadDispatch(next *config.Config) {
	next.ApplyDispatch(a.coord, handlers.DefaultCooldowns())
	logging.Config("Applied cooldowns: default=%s overrides=%d", next.GetDefaultCooldown(), len(next.GetCommandCooldowns()))
}

func (a *app) Close() {
	a.coord.Close()
}
