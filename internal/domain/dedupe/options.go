// Package dedupe defines the contract for the accept-once decision on
// event ids.
package dedupe

const defaultMaxEntries = 50000

// Option applies a configuration option to the memory deduper.
type Option func(*memoryDeduper)

// WithMaxEntries bounds the number of ids kept in memory. Entries
// beyond the bound evict the oldest id first. A value <= 0 disables
// eviction.
func WithMaxEntries(n int) Option {
	return func(d *memoryDeduper) {
		d.maxEntries = n
	}
}
