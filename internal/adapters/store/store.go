// Package store is the Event Store client adapter. The store itself is
// an external Redis; this package only issues the commands the relay
// pipeline needs: set membership for dedup, canonical record reads and
// writes, and a recency index for the backlog.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/feedrelay/internal/domain/dedupe"
	"github.com/okian/feedrelay/pkg/metrics"
)

// NewClient connects a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return client, nil
}

// Store wraps one long-lived Redis client with the persisted-state
// layout for a single subject: one seen-id set, one record key per
// event id under a fixed prefix, and one acceptance-time index.
type Store struct {
	rdb          *redis.Client
	recordPrefix string
	seenSet      string
	subject      string

	now func() time.Time
}

// New creates a Store for the given subject on an already-connected
// client.
func New(rdb *redis.Client, subject string, opts ...Option) *Store {
	s := &Store{
		rdb:          rdb,
		recordPrefix: defaultRecordPrefix,
		seenSet:      defaultSeenSet,
		subject:      subject,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordKey derives the canonical record key for an event id.
func (s *Store) RecordKey(id string) string {
	return s.recordPrefix + id
}

// seenSetKey is the subject-scoped dedup set.
func (s *Store) seenSetKey() string {
	return s.seenSet + ":" + s.subject
}

// indexKey is the subject-scoped acceptance-order index.
func (s *Store) indexKey() string {
	return s.seenSetKey() + ":index"
}

// AddIfAbsent atomically adds id to the subject's seen set. Returns
// true when the id was newly added, false when it was already a member.
// SADD's added-count makes the membership check and the insert a single
// step, so two concurrent ingests of one id get exactly one true.
func (s *Store) AddIfAbsent(ctx context.Context, id string) (bool, error) {
	added, err := s.rdb.SAdd(ctx, s.seenSetKey(), id).Result()
	if err != nil {
		metrics.RecordStoreError()
		return false, fmt.Errorf("%w: sadd %s: %v", ErrUnavailable, id, err)
	}
	return added > 0, nil
}

// IsMember reports whether id is in the subject's seen set.
func (s *Store) IsMember(ctx context.Context, id string) (bool, error) {
	member, err := s.rdb.SIsMember(ctx, s.seenSetKey(), id).Result()
	if err != nil {
		metrics.RecordStoreError()
		return false, fmt.Errorf("%w: sismember %s: %v", ErrUnavailable, id, err)
	}
	return member, nil
}

// RemoveMember takes id back out of the seen set so a redelivery can
// retry an event that failed to persist.
func (s *Store) RemoveMember(ctx context.Context, id string) error {
	if err := s.rdb.SRem(ctx, s.seenSetKey(), id).Err(); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: srem %s: %v", ErrUnavailable, id, err)
	}
	return nil
}

// RecordExists reports whether the canonical record for id has been
// persisted. This is the authoritative "already persisted" signal; the
// seen set is only an optimization in front of it.
func (s *Store) RecordExists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.RecordKey(id)).Result()
	if err != nil {
		metrics.RecordStoreError()
		return false, fmt.Errorf("%w: exists %s: %v", ErrUnavailable, id, err)
	}
	return n > 0, nil
}

// SaveRecord persists the encoded canonical record under the id's
// record key and stamps the id into the acceptance-order index.
func (s *Store) SaveRecord(ctx context.Context, id, encoded string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.RecordKey(id), encoded, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(s.now().UnixNano()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: save %s: %v", ErrUnavailable, id, err)
	}
	return nil
}

// SortedRecent returns the stored records of the n most recently
// accepted events, newest first. Fewer than n come back only when fewer
// than n events have ever been accepted for the subject.
func (s *Store) SortedRecent(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := s.rdb.ZRevRange(ctx, s.indexKey(), 0, int64(n)-1).Result()
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("%w: zrevrange: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.RecordKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("%w: mget: %v", ErrUnavailable, err)
	}
	records := make([]string, 0, len(vals))
	for _, v := range vals {
		// An indexed id without a record means a write raced a crash;
		// the backlog just skips it.
		if sv, ok := v.(string); ok {
			records = append(records, sv)
		}
	}
	return records, nil
}

// Deduper returns a dedupe.Deduper backed by the subject's seen set.
func (s *Store) Deduper() dedupe.Deduper {
	return &storeDeduper{s: s}
}

type storeDeduper struct {
	s *Store
}

func (d *storeDeduper) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	added, err := d.s.AddIfAbsent(ctx, id)
	if err != nil {
		return false, err
	}
	return !added, nil
}

func (d *storeDeduper) Unrecord(ctx context.Context, id string) error {
	return d.s.RemoveMember(ctx, id)
}
