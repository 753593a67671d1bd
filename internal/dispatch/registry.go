package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"imagebot/internal/logging"
)

// Handler processes one routed event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// HandlerEntry binds a prefix to a handler.
type HandlerEntry struct {
	Prefix      string
	Handler     Handler
	Description string
}

// RegistryStats summarizes a registry.
type RegistryStats struct {
	Count    int
	Prefixes []string
}

// ActionRegistry resolves tokens to handlers by prefix.
//
// Entries keep their registration order and Resolve returns the first entry whose prefix
// starts the token, not the longest one. Register more specific prefixes first:
// with "edit_" registered before "edit_confirm_", the token "edit_confirm_42" resolves to
// "edit_".
type ActionRegistry struct {
	mu      sync.RWMutex
	name    string
	entries []HandlerEntry
}

// NewActionRegistry creates an empty registry. The name only appears in logs.
func NewActionRegistry(name string) *ActionRegistry {
	return &ActionRegistry{name: name}
}

// Name returns the registry name.
func (r *ActionRegistry) Name() string {
	return r.name
}

// Register appends an entry, or replaces an existing entry with the same prefix in place.
func (r *ActionRegistry) Register(prefix string, h Handler, description ...string) error {
	if prefix == "" {
		return ErrEmptyPrefix
	}
	if h == nil {
		return ErrNilHandler
	}

	entry := HandlerEntry{Prefix: prefix, Handler: h, Description: strings.Join(description, " ")}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].Prefix == prefix {
			logging.DispatchWarn("%s registry: replacing handler for prefix %q", r.name, prefix)
			r.entries[i] = entry
			return nil
		}
	}
	r.entries = append(r.entries, entry)
	logging.DispatchDebug("%s registry: registered prefix %q", r.name, prefix)
	return nil
}

// Resolve returns the first entry, in registration order, whose prefix starts token.
func (r *ActionRegistry) Resolve(token string) (HandlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if strings.HasPrefix(token, e.Prefix) {
			return e, true
		}
	}
	return HandlerEntry{}, false
}

// Match is Resolve with an error: it wraps ErrNoHandler when nothing matches.
func (r *ActionRegistry) Match(token string) (HandlerEntry, error) {
	if e, ok := r.Resolve(token); ok {
		return e, nil
	}
	return HandlerEntry{}, fmt.Errorf("%w: %q in %s registry", ErrNoHandler, token, r.name)
}

// Lookup returns the entry registered under exactly prefix.
func (r *ActionRegistry) Lookup(prefix string) (HandlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Prefix == prefix {
			return e, true
		}
	}
	return HandlerEntry{}, false
}

// Unregister removes the entry for prefix, keeping the order of the rest.
func (r *ActionRegistry) Unregister(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.Prefix == prefix {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all entries.
func (r *ActionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Has reports whether prefix is registered.
func (r *ActionRegistry) Has(prefix string) bool {
	_, ok := r.Lookup(prefix)
	return ok
}

// ListPrefixes returns prefixes in registration order.
func (r *ActionRegistry) ListPrefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Prefix
	}
	return out
}

// Entries returns a copy of the entries in registration order.
func (r *ActionRegistry) Entries() []HandlerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HandlerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Stats returns the entry count and ordered prefixes.
func (r *ActionRegistry) Stats() RegistryStats {
	prefixes := r.ListPrefixes()
	return RegistryStats{Count: len(prefixes), Prefixes: prefixes}
}
