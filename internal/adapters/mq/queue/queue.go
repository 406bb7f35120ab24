// Package queue is the Relay Queue client adapter: an at-least-once
// message queue over a Redis stream with a consumer group. Messages
// stay pending until acknowledged and get reclaimed on the next
// consumer start, so an unacked message is never silently dropped.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

const bodyField = "body"

// Delivery is one dequeued message. Ack must be called after the
// message has been processed; until then the queue may redeliver it.
type Delivery struct {
	ID   string
	Body string
	Ack  func(ctx context.Context) error
}

// Queue produces and consumes relay messages on one stream.
type Queue struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string

	block      time.Duration
	batch      int64
	minIdle    time.Duration
	retryDelay time.Duration

	logger logger.Logger
}

// New creates a Queue on an already-connected client.
func New(rdb *redis.Client, opts ...Option) *Queue {
	q := &Queue{
		rdb:        rdb,
		stream:     defaultStream,
		group:      defaultGroup,
		consumer:   defaultConsumer,
		block:      defaultBlock,
		batch:      defaultBatch,
		minIdle:    defaultMinIdle,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = logger.Get().Named("queue")
	}
	return q
}

// Init ensures the stream and its consumer group exist. Safe to call on
// every start.
func (q *Queue) Init(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: create group: %v", ErrUnavailable, err)
	}
	return nil
}

// Enqueue places one message body on the stream.
func (q *Queue) Enqueue(ctx context.Context, body string) error {
	err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{bodyField: body},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: xadd: %v", ErrUnavailable, err)
	}
	metrics.RecordQueueEnqueued()
	return nil
}

// Consume returns a channel of deliveries. It first reclaims messages
// left pending by a previous consumer run, then follows the stream
// until ctx is canceled, at which point the channel closes. Each
// delivery counts toward at-least-once: an unacked message comes back
// on the next consumer start.
func (q *Queue) Consume(ctx context.Context) <-chan Delivery {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		q.reclaim(ctx, out)
		q.follow(ctx, out)
	}()
	return out
}

// reclaim drains messages delivered earlier but never acknowledged.
func (q *Queue) reclaim(ctx context.Context, out chan<- Delivery) {
	start := "0-0"
	for {
		if ctx.Err() != nil {
			return
		}
		msgs, next, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.minIdle,
			Start:    start,
			Count:    q.batch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				q.logger.Warn(ctx, "pending reclaim failed", logger.Error(err))
			}
			return
		}
		for _, m := range msgs {
			if !q.deliver(ctx, out, m) {
				return
			}
		}
		if len(msgs) == 0 || next == "0-0" {
			return
		}
		start = next
	}
}

// follow reads new messages for the process lifetime.
func (q *Queue) follow(ctx context.Context, out chan<- Delivery) {
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.batch,
			Block:    q.block,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue // block window elapsed with nothing new
			}
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn(ctx, "stream read failed", logger.Error(err))
			select {
			case <-time.After(q.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				if !q.deliver(ctx, out, m) {
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(ctx context.Context, out chan<- Delivery, m redis.XMessage) bool {
	body, _ := m.Values[bodyField].(string)
	id := m.ID
	d := Delivery{
		ID:   id,
		Body: body,
		Ack: func(ctx context.Context) error {
			if err := q.rdb.XAck(ctx, q.stream, q.group, id).Err(); err != nil {
				return fmt.Errorf("%w: xack %s: %v", ErrUnavailable, id, err)
			}
			return nil
		},
	}
	select {
	case out <- d:
		metrics.RecordQueueDelivered()
		return true
	case <-ctx.Done():
		return false
	}
}
