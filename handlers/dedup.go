package handlers

import (
	"sync"
	"time"
)

// LINE retries webhook deliveries; an event seen twice inside the TTL
// must not trigger a second answer.
const dedupTTL = 300 * time.Second

// Dedup remembers recently processed event ids. Safe for concurrent use.
type Dedup struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewDedup() *Dedup {
	return &Dedup{
		entries: make(map[string]time.Time),
		ttl:     dedupTTL,
		now:     time.Now,
	}
}

// Seen records the event id and reports whether it was already recorded
// inside the TTL. Empty ids are never duplicates.
func (d *Dedup) Seen(eventID string) bool {
	if eventID == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, seenAt := range d.entries {
		if now.Sub(seenAt) > d.ttl {
			delete(d.entries, id)
		}
	}

	if seenAt, ok := d.entries[eventID]; ok && now.Sub(seenAt) <= d.ttl {
		return true
	}
	d.entries[eventID] = now
	return false
}
