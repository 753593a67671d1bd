// Package dispatch routes inbound chat events to registered handlers.
//
// A Coordinator owns one ActionRegistry per event category and a cooldown ledger.
// Commands are matched by exact name and gated by a per-command cooldown; actions and
// forms are resolved by prefix. Handler errors and panics stop at Route: they are logged
// and the originator gets a generic error notice.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"imagebot/internal/cooldown"
	"imagebot/internal/logging"
)

// =============================================================================
// NOTICES
// =============================================================================

const (
	// CooldownNotice is formatted with the remaining seconds and the command name.
	CooldownNotice     = "Please wait %.1fs before using /%s again."
	UnrecognizedNotice = "This action is not recognized."
	ErrorNotice        = "There was an error processing your request."
)

// =============================================================================
// COMMANDS
// =============================================================================

// DefaultCommandCooldown applies to commands that do not set one.
const DefaultCommandCooldown = 3 * time.Second

// NoCooldown disables the cooldown gate for a command.
const NoCooldown time.Duration = -1

// Command is a named command with an optional per-subject cooldown.
type Command struct {
	Name        string
	Description string
	// Cooldown of zero means the coordinator default. Use NoCooldown to disable.
	Cooldown time.Duration
	Handler  Handler
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string
	Description string
	Cooldown    time.Duration // effective; <= 0 means no gate
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Stats summarizes coordinator activity.
type Stats struct {
	Commands RegistryStats
	Actions  RegistryStats
	Forms    RegistryStats
	Cooldown cooldown.Stats

	Routed       uint64
	Executed     uint64
	Blocked      uint64 // commands rejected by the cooldown gate
	Unrecognized uint64 // actions and forms without a handler
	Dropped      uint64 // unknown commands and categories
	Faults       uint64 // handler errors and panics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDefaultCooldown sets the cooldown for commands that do not specify one.
func WithDefaultCooldown(d time.Duration) Option {
	return func(c *Coordinator) { c.defaultCooldown = d }
}

// Coordinator is the single entry point for inbound events.
type Coordinator struct {
	commands *ActionRegistry
	actions  *ActionRegistry
	forms    *ActionRegistry
	ledger   *cooldown.Ledger

	mu              sync.RWMutex
	defaultCooldown time.Duration
	cooldowns       map[string]time.Duration // per-command, as registered or overridden

	routed, executed, blocked, unrecognized, dropped, faults atomic.Uint64
}

// NewCoordinator creates a coordinator around ledger. A nil ledger gets a fresh one.
func NewCoordinator(ledger *cooldown.Ledger, opts ...Option) *Coordinator {
	if ledger == nil {
		ledger = cooldown.NewLedger()
	}
	c := &Coordinator{
		commands:        NewActionRegistry("command"),
		actions:         NewActionRegistry("action"),
		forms:           NewActionRegistry("form"),
		ledger:          ledger,
		defaultCooldown: DefaultCommandCooldown,
		cooldowns:       make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commands returns the command registry.
func (c *Coordinator) Commands() *ActionRegistry { return c.commands }

// Actions returns the action registry.
func (c *Coordinator) Actions() *ActionRegistry { return c.actions }

// Forms returns the form registry.
func (c *Coordinator) Forms() *ActionRegistry { return c.forms }

// Ledger returns the cooldown ledger.
func (c *Coordinator) Ledger() *cooldown.Ledger { return c.ledger }

// RegisterCommand adds or replaces a command.
func (c *Coordinator) RegisterCommand(cmd Command) error {
	if err := c.commands.Register(cmd.Name, cmd.Handler, cmd.Description); err != nil {
		return fmt.Errorf("register command %q: %w", cmd.Name, err)
	}
	c.mu.Lock()
	c.cooldowns[cmd.Name] = cmd.Cooldown
	c.mu.Unlock()
	return nil
}

// RegisterAction binds a widget action prefix.
func (c *Coordinator) RegisterAction(prefix string, h Handler, description ...string) error {
	return c.actions.Register(prefix, h, description...)
}

// RegisterForm binds a form submission prefix.
func (c *Coordinator) RegisterForm(prefix string, h Handler, description ...string) error {
	return c.forms.Register(prefix, h, description...)
}

// SetCommandCooldown overrides the cooldown of a registered command.
// Zero restores the default; NoCooldown disables the gate.
func (c *Coordinator) SetCommandCooldown(name string, d time.Duration) bool {
	if !c.commands.Has(name) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldowns[name] != d {
		logging.Dispatch("Cooldown for /%s set to %s", name, d)
	}
	c.cooldowns[name] = d
	return true
}

// SetDefaultCooldown changes the cooldown used by commands without their own.
func (c *Coordinator) SetDefaultCooldown(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultCooldown = d
}

// CommandCooldown returns the effective cooldown for a command.
func (c *Coordinator) CommandCooldown(name string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveCooldownLocked(name)
}

func (c *Coordinator) effectiveCooldownLocked(name string) time.Duration {
	d := c.cooldowns[name]
	switch {
	case d == 0:
		return c.defaultCooldown
	case d < 0:
		return 0
	}
	return d
}

// CommandList returns registered commands in registration order.
func (c *Coordinator) CommandList() []CommandInfo {
	entries := c.commands.Entries()
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CommandInfo, len(entries))
	for i, e := range entries {
		out[i] = CommandInfo{
			Name:        e.Prefix,
			Description: e.Description,
			Cooldown:    c.effectiveCooldownLocked(e.Prefix),
		}
	}
	return out
}

// Route dispatches one event. It never returns an error and never panics on a
// handler's behalf; failures are logged and reported to the originator.
func (c *Coordinator) Route(ctx context.Context, ev Event) {
	c.routed.Add(1)
	category := ev.Category()
	token := ev.Token()
	audit := logging.AuditWithSubject(ev.SubjectID())

	var entry HandlerEntry
	switch category {
	case CategoryCommand:
		e, ok := c.commands.Lookup(token)
		if !ok {
			c.dropped.Add(1)
			logging.DispatchWarn("Unknown command /%s from %s, dropping", token, ev.SubjectID())
			audit.ActionUnknown(string(category), token)
			return
		}
		if !c.gate(ctx, ev, token) {
			return
		}
		entry = e

	case CategoryAction, CategoryForm:
		reg := c.actions
		if category == CategoryForm {
			reg = c.forms
		}
		e, err := reg.Match(token)
		if err != nil {
			c.unrecognized.Add(1)
			logging.DispatchWarn("%v (from %s)", err, ev.SubjectID())
			audit.ActionUnknown(string(category), token)
			c.notify(ctx, ev, Reply{Content: UnrecognizedNotice, Ephemeral: true})
			return
		}
		entry = e

	default:
		c.dropped.Add(1)
		logging.DispatchWarn("%v: %q (token %q)", ErrUnknownCategory, category, token)
		return
	}

	audit.ActionRouted(string(category), token)
	start := time.Now()
	err := c.invoke(ctx, entry, ev)
	audit.ActionCompleted(string(category), token, time.Since(start), err)
	if err == nil {
		c.executed.Add(1)
		logging.DispatchDebug("Handled %s %q via %q in %s", category, token, entry.Prefix, time.Since(start))
		return
	}

	c.faults.Add(1)
	logging.DispatchError("Handler %q failed for %s %q: %v", entry.Prefix, category, token, err)
	notified := c.notify(ctx, ev, Reply{Content: ErrorNotice, Ephemeral: true})
	audit.ErrorRecovered(string(category), token, err, notified)
}

// gate applies the command cooldown. It returns false when the command must not run.
func (c *Coordinator) gate(ctx context.Context, ev Event, name string) bool {
	c.mu.RLock()
	ttl := c.effectiveCooldownLocked(name)
	c.mu.RUnlock()

	st := c.ledger.Acquire(ev.SubjectID(), name, ttl)
	if !st.OnCooldown {
		return true
	}

	c.blocked.Add(1)
	logging.Dispatch("/%s on cooldown for %s (%.1fs left)", name, ev.SubjectID(), st.RemainingSeconds)
	logging.AuditWithSubject(ev.SubjectID()).CooldownBlocked(name, st.RemainingSeconds)
	c.notify(ctx, ev, Reply{Content: fmt.Sprintf(CooldownNotice, st.RemainingSeconds, name), Ephemeral: true})
	return false
}

// invoke runs the handler, converting a panic into ErrHandlerPanic.
func (c *Coordinator) invoke(ctx context.Context, entry HandlerEntry, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			logging.DispatchError("Handler %q panicked: %v\n%s", entry.Prefix, r, stack[:n])
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return entry.Handler.Handle(ctx, ev)
}

// notify sends a best-effort notice. Failures are logged, never returned.
func (c *Coordinator) notify(ctx context.Context, ev Event, r Reply) (sent bool) {
	defer func() {
		if p := recover(); p != nil {
			logging.DispatchError("Notify panicked for %s: %v", ev.SubjectID(), p)
			sent = false
		}
	}()
	if err := Send(ctx, ev, r); err != nil {
		logging.DispatchWarn("Failed to notify %s: %v", ev.SubjectID(), err)
		return false
	}
	return true
}

// Stats returns a snapshot of coordinator and ledger counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Commands:     c.commands.Stats(),
		Actions:      c.actions.Stats(),
		Forms:        c.forms.Stats(),
		Cooldown:     c.ledger.Stats(),
		Routed:       c.routed.Load(),
		Executed:     c.executed.Load(),
		Blocked:      c.blocked.Load(),
		Unrecognized: c.unrecognized.Load(),
		Dropped:      c.dropped.Load(),
		Faults:       c.faults.Load(),
	}
}

// Close stops pending cooldown timers.
func (c *Coordinator) Close() {
	c.ledger.Close()
}
