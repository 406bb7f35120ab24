package store

import "time"

// Default persisted-state layout.
const (
	defaultRecordPrefix = "post:"
	defaultSeenSet      = "posts"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithRecordPrefix sets the key prefix for canonical records.
func WithRecordPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.recordPrefix = prefix
		}
	}
}

// WithSeenSet sets the base name of the subject-scoped seen-id set.
func WithSeenSet(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.seenSet = name
		}
	}
}

// WithClock overrides the acceptance-time source for the recency index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
