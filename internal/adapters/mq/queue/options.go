package queue

import (
	"time"

	"github.com/okian/feedrelay/pkg/logger"
)

// Default queue configuration.
const (
	defaultStream     = "relay:events"
	defaultGroup      = "relay"
	defaultConsumer   = "relay-worker"
	defaultBlock      = 2 * time.Second
	defaultBatch      = 16
	defaultMinIdle    = time.Duration(0)
	defaultRetryDelay = time.Second
)

// Option applies a configuration option to the Queue.
type Option func(*Queue)

// WithStream sets the stream key.
func WithStream(stream string) Option {
	return func(q *Queue) {
		if stream != "" {
			q.stream = stream
		}
	}
}

// WithGroup sets the consumer group name.
func WithGroup(group string) Option {
	return func(q *Queue) {
		if group != "" {
			q.group = group
		}
	}
}

// WithConsumer sets this process's consumer name within the group.
func WithConsumer(consumer string) Option {
	return func(q *Queue) {
		if consumer != "" {
			q.consumer = consumer
		}
	}
}

// WithBlock bounds how long one stream read waits for new messages.
func WithBlock(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.block = d
		}
	}
}

// WithBatch sets how many messages one read may return.
func WithBatch(n int64) Option {
	return func(q *Queue) {
		if n > 0 {
			q.batch = n
		}
	}
}

// WithMinIdle sets how long a pending message must have been idle
// before the reclaim pass takes it over.
func WithMinIdle(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.minIdle = d
		}
	}
}

// WithRetryDelay sets the pause after a failed stream read.
func WithRetryDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.retryDelay = d
		}
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(l logger.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}
