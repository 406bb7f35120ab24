// Package dedupe defines the contract for the accept-once decision on
// event ids.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen event ids so each distinct event is accepted at
// most once.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when the id was already seen. The check and
	// the insert are a single logical step: two concurrent calls for the
	// same id resolve to exactly one "new" answer.
	SeenAndRecord(ctx context.Context, id string) (bool, error)

	// Unrecord removes an id from the seen set so a redelivery can retry
	// it. Used when an id was marked seen but its event failed to persist.
	Unrecord(ctx context.Context, id string) error
}

// memoryDeduper is a bounded in-process Deduper. Ids are kept in a map
// with a FIFO ring for eviction; once maxEntries is reached the oldest
// id is forgotten. maxEntries <= 0 disables eviction.
type memoryDeduper struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	order      []string
	next       int
	maxEntries int
}

// NewMemoryDeduper creates a bounded in-memory deduper.
func NewMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		seen:       make(map[string]struct{}),
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxEntries > 0 {
		d.order = make([]string, d.maxEntries)
	}
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true, nil
	}

	if d.maxEntries > 0 {
		if old := d.order[d.next]; old != "" {
			delete(d.seen, old)
		}
		d.order[d.next] = id
		d.next = (d.next + 1) % d.maxEntries
	}
	d.seen[id] = struct{}{}
	return false, nil
}

func (d *memoryDeduper) Unrecord(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.seen, id)
	// The ring slot keeps the stale id; eviction of an already-deleted
	// id is a no-op, so no sweep is needed.
	return nil
}

// Size returns the number of ids currently recorded.
func (d *memoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
