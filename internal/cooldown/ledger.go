// Package cooldown implements the per-(action, subject) rate gate used by the command path.
//
// Every permitted use records a last-use timestamp and schedules a one-shot timer that
// deletes the entry once its TTL elapses, so the ledger cleans itself up even when no
// further traffic arrives for a key. A TTL <= 0 disables the gate for that call.
package cooldown

import (
	"math"
	"sort"
	"sync"
	"time"

	"imagebot/internal/logging"
)

// Status is the result of a cooldown check.
type Status struct {
	OnCooldown bool
	// RemainingSeconds is rounded up to one decimal place. Zero when not on cooldown.
	RemainingSeconds float64
}

// Remaining returns RemainingSeconds as a duration.
func (s Status) Remaining() time.Duration {
	return time.Duration(s.RemainingSeconds * float64(time.Second))
}

// ActiveEntry describes one live cooldown.
type ActiveEntry struct {
	Subject   string
	Action    string
	ExpiresAt time.Time
}

// Stats summarizes ledger activity.
type Stats struct {
	Active  int
	Set     uint64 // permitted uses recorded
	Blocked uint64 // checks that reported OnCooldown
	Expired uint64 // entries removed by their timer or a sweep
	Cleared uint64 // entries removed manually
}

type key struct {
	action  string
	subject string
}

type entry struct {
	lastUseAt time.Time
	ttl       time.Duration
	timer     Timer
	gen       uint64
}

func (e *entry) expiresAt() time.Time {
	return e.lastUseAt.Add(e.ttl)
}

// Ledger tracks last-use timestamps per (action, subject) pair.
// It is safe for concurrent use; Acquire makes check-then-set atomic.
type Ledger struct {
	mu      sync.Mutex
	clock   Clock
	entries map[key]*entry
	gen     uint64
	stats   Stats
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		clock:   RealClock(),
		entries: make(map[key]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckCooldown reports whether subject is still cooling down for action.
func (l *Ledger) CheckCooldown(subject, action string, ttl time.Duration) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked(subject, action, ttl)
}

// SetCooldown records a permitted use of action by subject.
func (l *Ledger) SetCooldown(subject, action string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setLocked(subject, action, ttl)
}

// Acquire checks the gate and, when it is open, records the use under the same lock.
// The returned status is the check result: OnCooldown means nothing was recorded.
func (l *Ledger) Acquire(subject, action string, ttl time.Duration) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.checkLocked(subject, action, ttl)
	if !st.OnCooldown {
		l.setLocked(subject, action, ttl)
	}
	return st
}

func (l *Ledger) checkLocked(subject, action string, ttl time.Duration) Status {
	if ttl <= 0 {
		return Status{}
	}

	e, ok := l.entries[key{action: action, subject: subject}]
	if !ok {
		return Status{}
	}

	now := l.clock.Now()
	expiresAt := e.lastUseAt.Add(ttl)
	if !now.Before(expiresAt) {
		return Status{}
	}

	l.stats.Blocked++
	remaining := math.Ceil(expiresAt.Sub(now).Seconds()*10) / 10
	return Status{OnCooldown: true, RemainingSeconds: remaining}
}

func (l *Ledger) setLocked(subject, action string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	k := key{action: action, subject: subject}
	if old, ok := l.entries[k]; ok && old.timer != nil {
		old.timer.Stop()
	}

	l.gen++
	gen := l.gen
	e := &entry{
		lastUseAt: l.clock.Now(),
		ttl:       ttl,
		gen:       gen,
	}
	e.timer = l.clock.AfterFunc(ttl, func() { l.expire(k, gen) })
	l.entries[k] = e
	l.stats.Set++

	logging.CooldownDebug("set cooldown action=%s subject=%s ttl=%s", action, subject, ttl)
}

// expire deletes the entry only if it is still the one the timer was scheduled for.
func (l *Ledger) expire(k key, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[k]
	if !ok || e.gen != gen {
		return
	}
	delete(l.entries, k)
	l.stats.Expired++
	logging.CooldownDebug("cooldown expired action=%s subject=%s", k.action, k.subject)
}

// ClearCooldown removes the entry immediately. Returns false if there was none.
func (l *Ledger) ClearCooldown(subject, action string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{action: action, subject: subject}
	e, ok := l.entries[k]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(l.entries, k)
	l.stats.Cleared++
	return true
}

// ListActive returns live entries ordered by expiry.
func (l *Ledger) ListActive() []ActiveEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	out := make([]ActiveEntry, 0, len(l.entries))
	for k, e := range l.entries {
		if !now.Before(e.expiresAt()) {
			continue
		}
		out = append(out, ActiveEntry{Subject: k.subject, Action: k.action, ExpiresAt: e.expiresAt()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			if out[i].Action == out[j].Action {
				return out[i].Subject < out[j].Subject
			}
			return out[i].Action < out[j].Action
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// SweepExpired drops entries whose TTL has elapsed but whose timer has not fired yet.
func (l *Ledger) SweepExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for k, e := range l.entries {
		if now.Before(e.expiresAt()) {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(l.entries, k)
		removed++
	}
	l.stats.Expired += uint64(removed)
	return removed
}

// Len returns the number of stored entries, including ones awaiting their timer.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats returns a snapshot of ledger counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Active = len(l.entries)
	return s
}

// Close stops every pending timer and empties the ledger.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(l.entries, k)
	}
}
