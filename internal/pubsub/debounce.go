package pubsub

import (
	"sort"
	"sync"
	"time"
)

const (
	debouncePruneThreshold = 100
	debouncePruneKeep      = 50
)

// Debouncer suppresses repeat firings per key within a caller-supplied
// window. Distinct keys never interfere with each other.
type Debouncer struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	now       func() time.Time
}

func NewDebouncer() *Debouncer {
	return &Debouncer{
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

// Fire invokes fn unless the key fired within the window, and reports whether
// it did. A suppressed call does not reset the window; the next firing is
// measured from the last accepted one, so a steady stream of triggers yields
// one firing per window rather than none.
func (d *Debouncer) Fire(key string, window time.Duration, fn func()) bool {
	d.mu.Lock()

	now := d.now()
	if last, ok := d.lastFired[key]; ok && now.Sub(last) < window {
		d.mu.Unlock()
		return false
	}

	d.lastFired[key] = now
	if len(d.lastFired) > debouncePruneThreshold {
		d.prune()
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// prune keeps the most recently fired keys so the map stays bounded no matter
// how many distinct keys pass through. Caller holds the mutex.
func (d *Debouncer) prune() {
	type entry struct {
		key string
		at  time.Time
	}

	entries := make([]entry, 0, len(d.lastFired))
	for key, at := range d.lastFired {
		entries = append(entries, entry{key: key, at: at})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})

	kept := make(map[string]time.Time, debouncePruneKeep)
	for _, e := range entries[:debouncePruneKeep] {
		kept[e.key] = e.at
	}
	d.lastFired = kept
}
