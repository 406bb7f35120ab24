// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RedisAddr points at the Redis instance backing dedup, records and
	// the relay queue.
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword is optional; empty means no AUTH.
	RedisPassword string `koanf:"redis_password"`

	// RedisDB selects the logical Redis database.
	RedisDB int `koanf:"redis_db"`

	// SubjectID scopes the dedup set to one producer's stream.
	SubjectID string `koanf:"subject_id"`

	// BacklogCount bounds how many recent events a connecting
	// subscriber receives.
	BacklogCount int `koanf:"backlog_count"`

	// RecordPrefix namespaces persisted record keys.
	RecordPrefix string `koanf:"record_prefix"`

	// SeenSet names the dedup set key family.
	SeenSet string `koanf:"seen_set"`

	// QueueStream and QueueGroup identify the relay stream and its
	// consumer group.
	QueueStream string `koanf:"queue_stream"`
	QueueGroup  string `koanf:"queue_group"`

	// SessionBuffer bounds the per-subscriber outbound frame queue.
	SessionBuffer int `koanf:"session_buffer"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":9080",
		RedisAddr:     "127.0.0.1:6379",
		RedisDB:       0,
		SubjectID:     "0",
		BacklogCount:  10,
		RecordPrefix:  "post:",
		SeenSet:       "posts",
		QueueStream:   "relay:events",
		QueueGroup:    "relay",
		SessionBuffer: 32,
	}
}
