// Package ingest turns raw upstream events into at-most-one canonical
// record write and at-most-one relay queue emission per logical event
// id.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/feedrelay/internal/domain/dedupe"
	"github.com/okian/feedrelay/internal/domain/model"
	"github.com/okian/feedrelay/internal/domain/record"
	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

// RecordStore is the slice of the event store the ingestor writes to.
type RecordStore interface {
	// RecordExists is the authoritative "already persisted" check; the
	// seen set can fall out of sync with it after a partial failure.
	RecordExists(ctx context.Context, id string) (bool, error)
	SaveRecord(ctx context.Context, id, encoded string) error
}

// Enqueuer places relay message bodies on the at-least-once queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, body string) error
}

// Ingestor decides new-vs-duplicate, persists canonical records, and
// emits accepted events to the relay queue. Clients are injected once
// at construction and shared across concurrent calls.
type Ingestor struct {
	deduper dedupe.Deduper
	store   RecordStore
	queue   Enqueuer

	logger logger.Logger
}

// New creates an Ingestor.
func New(deduper dedupe.Deduper, store RecordStore, queue Enqueuer, opts ...Option) *Ingestor {
	in := &Ingestor{
		deduper: deduper,
		store:   store,
		queue:   queue,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.logger == nil {
		in.logger = logger.Get().Named("ingest")
	}
	return in
}

// Ingest processes a batch of raw events; a single event is just a
// one-element batch. Events are independent: each is ingested
// concurrently, the call returns once every outcome has resolved, and
// one event's failure never rolls back or blocks its siblings. The
// joined error carries every per-event failure.
func (in *Ingestor) Ingest(ctx context.Context, events ...model.RawEvent) error {
	if len(events) == 0 {
		return nil
	}

	errs := make([]error, len(events))
	var wg sync.WaitGroup
	wg.Add(len(events))
	for i, raw := range events {
		go func(i int, raw model.RawEvent) {
			defer wg.Done()
			errs[i] = in.ingestOne(ctx, raw)
		}(i, raw)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ingest batch: %w", err)
	}
	return nil
}

// ingestOne runs the accept pipeline for one event:
// tombstone gate, atomic seen-check, authoritative record-existence
// check, persist, enqueue. Persistence always precedes queue emission.
func (in *Ingestor) ingestOne(ctx context.Context, raw model.RawEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordIngestLatency(float64(time.Since(start).Milliseconds()))
	}()

	if raw.Tombstone() {
		// Deletions are not retracted downstream; acknowledge and move on.
		metrics.RecordEventTombstone()
		in.logger.Debug(ctx, "tombstone acknowledged", logger.String("eventID", raw.ID.String()))
		return nil
	}

	id := raw.ID.String()
	if id == "" {
		metrics.RecordIngestError()
		return ErrMissingID
	}

	seen, err := in.deduper.SeenAndRecord(ctx, id)
	if err != nil {
		// Store unavailable: the event counts as not-yet-ingested and
		// rides on upstream redelivery.
		metrics.RecordIngestError()
		return fmt.Errorf("event %s: %w", id, err)
	}
	if seen {
		metrics.RecordEventDuplicate()
		in.logger.Debug(ctx, "duplicate skipped", logger.String("eventID", id))
		return nil
	}

	exists, err := in.store.RecordExists(ctx, id)
	if err != nil {
		in.unrecord(ctx, id)
		metrics.RecordIngestError()
		return fmt.Errorf("event %s: %w", id, err)
	}
	if exists {
		// The seen set lost this id (crash between set-insert and
		// record-write on an earlier run) but the record is there.
		metrics.RecordEventDuplicate()
		in.logger.Debug(ctx, "record already persisted", logger.String("eventID", id))
		return nil
	}

	event := raw.Event()
	encoded, err := record.Marshal(event)
	if err != nil {
		in.unrecord(ctx, id)
		metrics.RecordIngestError()
		return fmt.Errorf("event %s: %w", id, err)
	}

	if err := in.store.SaveRecord(ctx, id, encoded); err != nil {
		in.unrecord(ctx, id)
		metrics.RecordIngestError()
		return fmt.Errorf("event %s: %w", id, err)
	}

	body, err := record.MarshalEnvelope(event)
	if err != nil {
		metrics.RecordIngestError()
		return fmt.Errorf("event %s: %w", id, err)
	}
	if err := in.queue.Enqueue(ctx, body); err != nil {
		// The record is persisted, so the seen mark stays; the event is
		// visible in storage but was never relayed. Surface it so the
		// caller can decide whether to re-drive.
		metrics.RecordIngestError()
		return fmt.Errorf("%w: event %s: %v", ErrNotRelayed, id, err)
	}

	metrics.RecordEventAccepted()
	in.logger.Debug(ctx, "event accepted", logger.String("eventID", id))
	return nil
}

// unrecord releases the seen mark after a failure that left no record
// behind, so a redelivery can retry the event.
func (in *Ingestor) unrecord(ctx context.Context, id string) {
	if err := in.deduper.Unrecord(ctx, id); err != nil {
		in.logger.Warn(ctx, "could not release seen mark",
			logger.String("eventID", id),
			logger.Error(err),
		)
	}
}
