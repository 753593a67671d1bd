package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"imagebot/internal/imaging"
)

// Generation is one produced image and the request that produced it.
type Generation struct {
	ID        string
	Request   *imaging.Request
	Image     []byte
	MimeType  string
	Attempts  int
	CreatedAt time.Time
}

// History remembers recent generations so follow-up actions can find them.
// It is bounded by count and age; the oldest entries go first.
type History struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	order      []string
	items      map[string]*Generation
}

// NewHistory creates a store. maxEntries <= 0 means 100; ttl <= 0 keeps entries until evicted by count.
func NewHistory(maxEntries int, ttl time.Duration) *History {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &History{
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		items:      make(map[string]*Generation),
	}
}

// Put stores g, assigning an ID and timestamp when missing, and returns it.
func (h *History) Put(g *Generation) *Generation {
	h.mu.Lock()
	defer h.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = h.now()
	}
	if _, exists := h.items[g.ID]; !exists {
		h.order = append(h.order, g.ID)
	}
	h.items[g.ID] = g
	h.pruneLocked()
	return g
}

// Get returns a live generation by ID.
func (h *History) Get(id string) (*Generation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked()
	g, ok := h.items[id]
	return g, ok
}

// Len returns the number of stored generations.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked()
	return len(h.items)
}

func (h *History) pruneLocked() {
	drop := 0
	if over := len(h.order) - h.maxEntries; over > 0 {
		drop = over
	}
	if h.ttl > 0 {
		cutoff := h.now().Add(-h.ttl)
		for drop < len(h.order) && h.items[h.order[drop]].CreatedAt.Before(cutoff) {
			drop++
		}
	}
	if drop == 0 {
		return
	}
	for _, id := range h.order[:drop] {
		delete(h.items, id)
	}
	h.order = append([]string(nil), h.order[drop:]...)
}
