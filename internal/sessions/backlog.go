package sessions

import (
	"context"

	"github.com/okian/feedrelay/internal/domain/record"
	"github.com/okian/feedrelay/pkg/logger"
)

// RecordSource is the slice of the event store the backlog reads from.
type RecordSource interface {
	// SortedRecent returns the stored records of the n most recently
	// accepted events, newest first.
	SortedRecent(ctx context.Context, n int) ([]string, error)
}

// Backlog serves the most recent N accepted events, decoded to field
// maps, newest first. N is fixed at construction, never per request.
type Backlog struct {
	source RecordSource
	n      int

	logger logger.Logger
}

// NewBacklog creates a Backlog bounded to n records.
func NewBacklog(source RecordSource, n int, opts ...BacklogOption) *Backlog {
	b := &Backlog{
		source: source,
		n:      n,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("backlog")
	}
	return b
}

// BacklogOption applies a configuration option to the Backlog.
type BacklogOption func(*Backlog)

// WithBacklogLogger sets a custom logger for the backlog.
func WithBacklogLogger(l logger.Logger) BacklogOption {
	return func(b *Backlog) {
		if l != nil {
			b.logger = l
		}
	}
}

// Recent implements BacklogFetcher. An undecodable stored record is
// skipped rather than sinking the whole snapshot.
func (b *Backlog) Recent(ctx context.Context) ([]map[string]any, error) {
	raw, err := b.source.SortedRecent(ctx, b.n)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		fields, err := record.DecodeString(s)
		if err != nil {
			b.logger.Warn(ctx, "skipping undecodable backlog record", logger.Error(err))
			continue
		}
		out = append(out, fields)
	}
	return out, nil
}
