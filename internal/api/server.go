// Package api exposes the HTTP intake for scraped records.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/ingest"
	"github.com/fanworks/storygraph/internal/metrics"
	"github.com/fanworks/storygraph/internal/normalize"
	"github.com/fanworks/storygraph/internal/record"
)

const maxBodyBytes = 8 << 20

// Server wires HTTP handlers to the router and the ingest queue.
type Server struct {
	mux    chi.Router
	router *normalize.Router
	queue  *ingest.Queue
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(router *normalize.Router, queue *ingest.Queue, logger *zap.Logger) *Server {
	s := &Server{
		router: router,
		queue:  queue,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/records", s.submitRecord)
		r.Post("/records/batch", s.submitBatch)
	})

	s.mux = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

// submitRecord processes one record synchronously and returns the id of
// the entity it resolved to.
func (s *Server) submitRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "unreadable body")
		return
	}
	rec, err := record.Decode(body)
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.router.Process(r.Context(), rec)
	switch {
	case err == nil:
		writeJSON(s.logger, w, http.StatusOK, map[string]string{"id": id})
	case normalize.Rejected(err):
		writeError(s.logger, w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("record processing failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "processing failed")
	}
}

// submitBatch enqueues a batch of records for the worker pool and
// returns immediately. Decode failures reject the whole batch before
// anything is queued.
func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "unreadable body")
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "body must be a JSON array of records")
		return
	}
	records := make([]record.Record, 0, len(raw))
	for i, msg := range raw {
		rec, err := record.Decode(msg)
		if err != nil {
			writeError(s.logger, w, http.StatusBadRequest, "record "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		records = append(records, rec)
	}

	reqID := requestID(r.Context())
	for _, rec := range records {
		item := ingest.Item{RequestID: reqID, Record: rec}
		if err := s.queue.Enqueue(r.Context(), item); err != nil {
			if errors.Is(err, ingest.ErrQueueClosed) {
				writeError(s.logger, w, http.StatusServiceUnavailable, "shutting down")
				return
			}
			writeError(s.logger, w, http.StatusRequestTimeout, err.Error())
			return
		}
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]any{"accepted": len(records)})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
