// Package worker drains the relay queue and fans accepted events out to
// live subscriber sessions.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/feedrelay/internal/adapters/mq/queue"
	"github.com/okian/feedrelay/internal/domain/record"
	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

// Source defines how the worker receives deliveries.
type Source interface {
	Consume(ctx context.Context) <-chan queue.Delivery
}

// Broadcaster fans a decoded event out to every connected session.
// Broadcast to zero sessions is a no-op success; per-session failures
// never surface here.
type Broadcaster interface {
	Broadcast(ctx context.Context, fields map[string]any)
}

// Worker runs the drain loop for the process lifetime: pull one
// message, decode it, broadcast it, then acknowledge it. A redelivered
// message is simply broadcast again; subscribers treat repeated
// identical events as idempotent display updates.
type Worker struct {
	source      Source
	broadcaster Broadcaster
	name        string

	done chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(source Source, broadcaster Broadcaster, opts ...Option) *Worker {
	w := &Worker{
		source:      source,
		broadcaster: broadcaster,
		name:        "relay-worker",
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run drains deliveries until ctx is canceled. Shutdown stops pulling
// new messages; an in-flight broadcast is neither rolled back nor
// redelivered by us (the queue keeps anything unacked).
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for d := range w.source.Consume(ctx) {
		w.process(ctx, d)
	}
}

// Done is closed once the drain loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) process(ctx context.Context, d queue.Delivery) {
	fields, err := record.DecodeEnvelope(d.Body)
	if err != nil {
		// A malformed message can never become well-formed on
		// redelivery: acknowledge and drop it.
		metrics.RecordQueueMalformed()
		w.logger.Warn(ctx, "dropping malformed relay message",
			logger.String("messageID", d.ID),
			logger.Error(err),
		)
		w.ack(ctx, d)
		return
	}

	w.broadcaster.Broadcast(ctx, fields)
	w.ack(ctx, d)
}

func (w *Worker) ack(ctx context.Context, d queue.Delivery) {
	if err := d.Ack(ctx); err != nil {
		// The queue will redeliver; the duplicate broadcast that follows
		// is the documented degradation, not a correctness violation.
		w.logger.Warn(ctx, "ack failed; message will be redelivered",
			logger.String("messageID", d.ID),
			logger.Error(fmt.Errorf("ack: %w", err)),
		)
		return
	}
	metrics.RecordQueueAcked()
}
