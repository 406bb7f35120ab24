// Package service assembles the relay pipeline: Redis-backed dedup and
// record store, the relay queue, the subscriber registry, and the
// worker that bridges them.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/feedrelay/internal/adapters/mq/queue"
	"github.com/okian/feedrelay/internal/adapters/mq/worker"
	"github.com/okian/feedrelay/internal/adapters/store"
	"github.com/okian/feedrelay/internal/ingest"
	"github.com/okian/feedrelay/internal/sessions"
	"github.com/okian/feedrelay/pkg/logger"
)

// Service implements the dependencies required by the HTTP API: event
// ingestion and the subscriber session registry.
type Service struct {
	mu sync.Mutex

	// Core components
	rdb      *redis.Client
	store    *store.Store
	queue    *queue.Queue
	registry *sessions.Registry
	ingestor *ingest.Ingestor
	worker   *worker.Worker

	// Configuration
	redisAddr     string
	redisPassword string
	redisDB       int
	subject       string
	backlogCount  int
	recordPrefix  string
	seenSet       string
	queueStream   string
	queueGroup    string

	// State
	started    bool
	workerStop context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		redisAddr:    "127.0.0.1:6379",
		subject:      "0",
		backlogCount: 10,
		recordPrefix: "post:",
		seenSet:      "posts",
		queueStream:  "relay:events",
		queueGroup:   "relay",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start connects to Redis and brings up the pipeline components. It is
// idempotent; a started service stays started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting relay service...")

	rdb, err := store.NewClient(ctx, s.redisAddr, s.redisPassword, s.redisDB)
	if err != nil {
		return err
	}
	s.rdb = rdb

	s.store = store.New(rdb, s.subject,
		store.WithRecordPrefix(s.recordPrefix),
		store.WithSeenSet(s.seenSet),
	)

	s.queue = queue.New(rdb,
		queue.WithStream(s.queueStream),
		queue.WithGroup(s.queueGroup),
		queue.WithConsumer("relay-"+uuid.NewString()),
	)
	if err := s.queue.Init(ctx); err != nil {
		_ = rdb.Close()
		return err
	}

	backlog := sessions.NewBacklog(s.store, s.backlogCount)
	s.registry = sessions.New(backlog)

	s.ingestor = ingest.New(s.store.Deduper(), s.store, s.queue)

	s.worker = worker.New(s.queue, s.registry)
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.workerStop = cancel
	go s.worker.Run(workerCtx)

	s.started = true
	s.logger.Info(ctx, "relay service started",
		logger.String("redisAddr", s.redisAddr),
		logger.String("subject", s.subject),
		logger.Int("backlogCount", s.backlogCount),
	)

	return nil
}

// Stop drains the worker and closes the Redis connection.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping relay service...")

	s.workerStop()
	<-s.worker.Done()

	if s.rdb != nil {
		_ = s.rdb.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "relay service stopped")
}

// Ingestor exposes the ingest pipeline for the HTTP layer.
func (s *Service) Ingestor() *ingest.Ingestor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestor
}

// Registry exposes the subscriber session registry.
func (s *Service) Registry() *sessions.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}
