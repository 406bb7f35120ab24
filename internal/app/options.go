package service

import "github.com/okian/feedrelay/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRedisAddr sets the Redis address backing the pipeline.
func WithRedisAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.redisAddr = addr
		}
	}
}

// WithRedisPassword sets the Redis AUTH password.
func WithRedisPassword(password string) Option {
	return func(s *Service) {
		s.redisPassword = password
	}
}

// WithRedisDB selects the logical Redis database.
func WithRedisDB(db int) Option {
	return func(s *Service) {
		if db >= 0 {
			s.redisDB = db
		}
	}
}

// WithSubject scopes deduplication to one producer's stream.
func WithSubject(subject string) Option {
	return func(s *Service) {
		if subject != "" {
			s.subject = subject
		}
	}
}

// WithBacklogCount bounds the backlog served to connecting subscribers.
func WithBacklogCount(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.backlogCount = n
		}
	}
}

// WithRecordPrefix namespaces persisted record keys.
func WithRecordPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.recordPrefix = prefix
		}
	}
}

// WithSeenSet names the dedup set key family.
func WithSeenSet(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.seenSet = name
		}
	}
}

// WithQueueStream names the relay stream.
func WithQueueStream(stream string) Option {
	return func(s *Service) {
		if stream != "" {
			s.queueStream = stream
		}
	}
}

// WithQueueGroup names the relay consumer group.
func WithQueueGroup(group string) Option {
	return func(s *Service) {
		if group != "" {
			s.queueGroup = group
		}
	}
}
