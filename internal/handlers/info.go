package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"imagebot/internal/dispatch"
)

func (s *Service) handleHelp(ctx context.Context, ev dispatch.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s commands:\n", s.info.Name)
	for _, c := range s.coord.CommandList() {
		fmt.Fprintf(&b, "  /%-8s %s", c.Name, c.Description)
		if c.Cooldown > 0 {
			fmt.Fprintf(&b, " (cooldown %s)", c.Cooldown)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Buttons under each image let you regenerate or edit it.")
	return ev.Respond(ctx, dispatch.Reply{Content: b.String(), Ephemeral: true})
}

func (s *Service) handleStatus(ctx context.Context, ev dispatch.Event) error {
	info := s.provider.Info()
	st := s.coord.Stats()
	cfg := s.regen.Config()

	avail := "unavailable"
	if s.provider.IsAvailable() {
		avail = "ready"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, up %s\n", s.info.Name, s.info.Version, time.Since(s.started).Round(time.Second))
	fmt.Fprintf(&b, "Provider: %s %s (%s)\n", info.Name, info.Version, avail)
	fmt.Fprintf(&b, "Retries: max %d, auto %t, delay %s\n", cfg.MaxRetries, cfg.EnableAutoRetry, cfg.RetryDelay)
	fmt.Fprintf(&b, "Routed %d, executed %d, cooldown blocks %d, unrecognized %d, faults %d\n",
		st.Routed, st.Executed, st.Blocked, st.Unrecognized, st.Faults)
	fmt.Fprintf(&b, "Active cooldowns: %d\n", st.Cooldown.Active)
	fmt.Fprintf(&b, "Stored images: %d", s.history.Len())
	return ev.Respond(ctx, dispatch.Reply{Content: b.String(), Ephemeral: true})
}
