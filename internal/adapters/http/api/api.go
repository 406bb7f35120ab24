// Package api exposes the service over HTTP: event ingestion, the
// subscriber WebSocket endpoint, and health/metrics.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/feedrelay/internal/domain/model"
	"github.com/okian/feedrelay/internal/ingest"
	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

// Ingestor accepts raw producer events.
type Ingestor interface {
	Ingest(ctx context.Context, events ...model.RawEvent) error
}

// Server wires the HTTP routes to the ingest pipeline and the
// WebSocket handler.
type Server struct {
	ingestor Ingestor
	wsh      http.Handler
	logger   logger.Logger
}

// New creates an API server.
func New(ingestor Ingestor, wsHandler http.Handler, opts ...Option) *Server {
	s := &Server{
		ingestor: ingestor,
		wsh:      wsHandler,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Routes mounts all endpoints on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Post("/events", s.handleEvents)
	r.Get("/ws", s.wsh.ServeHTTP)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		metrics.GetRegistry(),
		promhttp.HandlerOpts{},
	))
	return r
}

// handleEvents accepts either a single event object or an array of
// them, feeds them through ingestion, and reports per-batch outcome.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := decodeEvents(r)
	if err != nil {
		s.logger.Warn(r.Context(), "rejecting events payload", logger.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.ingestor.Ingest(r.Context(), events...); err != nil {
		if errors.Is(err, ingest.ErrMissingID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error(r.Context(), "ingest failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ingest failed"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(events)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeEvents normalizes the request body into a slice of raw events.
// Numbers stay as json.Number so large identifiers survive intact.
func decodeEvents(r *http.Request) ([]model.RawEvent, error) {
	br := bufio.NewReader(r.Body)
	first, err := firstByte(br)
	if err != nil {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var events []model.RawEvent
		if err := dec.Decode(&events); err != nil {
			return nil, errors.Join(ErrMalformedBody, err)
		}
		if len(events) == 0 {
			return nil, ErrEmptyBody
		}
		return events, nil
	}

	var event model.RawEvent
	if err := dec.Decode(&event); err != nil {
		return nil, errors.Join(ErrMalformedBody, err)
	}
	return []model.RawEvent{event}, nil
}

// firstByte peeks past leading whitespace without consuming input.
func firstByte(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		buf, err := br.Peek(i)
		if err != nil || len(buf) < i {
			return 0, ErrEmptyBody
		}
		switch buf[i-1] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return buf[i-1], nil
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
