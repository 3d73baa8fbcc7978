// Package status serves the line status API: a JSON snapshot of every
// tracker, the pipeline health numbers, the most recent records, persisted
// daily totals, and the manual daily-reset trigger that replaced the
// station keyboard.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/clock"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/pipeline"
	"github.com/takelwerk/dipwatch/internal/recorder"
	"github.com/takelwerk/dipwatch/internal/shift"
	"github.com/takelwerk/dipwatch/internal/storage"
	"github.com/takelwerk/dipwatch/internal/track"
)

// Server exposes the status HTTP API for one tracked line.
type Server struct {
	line     *track.Line
	queue    *pipeline.Queue
	consumer *pipeline.Consumer
	recorder *recorder.Writer
	store    storage.Store
	clk      clock.Clock
	server   *http.Server
	router   *mux.Router
	logger   zerolog.Logger
}

// NewServer creates a status server bound to addr. The consumer and
// recorder may be nil when the pipeline is not running (config checks,
// tests); the corresponding fields are zero in responses. A nil store
// leaves the totals endpoint unavailable.
func NewServer(addr string, line *track.Line, queue *pipeline.Queue, consumer *pipeline.Consumer, rec *recorder.Writer, store storage.Store, clk clock.Clock, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		line:     line,
		queue:    queue,
		consumer: consumer,
		recorder: rec,
		store:    store,
		clk:      clk,
		router:   router,
		logger:   logger.With().Str("component", "status").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(loggingMiddleware(s.logger))

	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/records", s.handleRecords).Methods("GET")
	s.router.HandleFunc("/api/totals", s.handleTotals).Methods("GET")
	s.router.HandleFunc("/api/reset", s.handleReset).Methods("POST")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the status HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting status server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Status server error")
		}
	}()

	return nil
}

// Stop gracefully stops the status HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping status server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}

	return nil
}

// pipelineStatus is the pipeline health portion of the status response.
type pipelineStatus struct {
	QueueDepth int     `json:"queue_depth"`
	FPS        float64 `json:"fps"`
}

// statusResponse is the full GET /api/status payload. The embedded
// track.Status contributes the in_use, zones, freetime, and glove fields.
type statusResponse struct {
	track.Status
	Pipeline      pipelineStatus          `json:"pipeline"`
	RecentRecords []storage.SessionRecord `json:"recent_records"`
	Timestamp     time.Time               `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.clk.Now()

	resp := statusResponse{
		Status:        s.line.Snapshot(now),
		RecentRecords: s.recentRecords(),
		Timestamp:     now,
	}
	resp.Pipeline.QueueDepth = s.queue.Len()
	if s.consumer != nil {
		resp.Pipeline.FPS = s.consumer.FPS()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records := s.recentRecords()

	if raw := r.URL.Query().Get("counter"); raw != "" {
		counter, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid counter (expected a zone number)")
			return
		}
		filtered := records[:0]
		for _, rec := range records {
			if rec.ZoneNumber == counter {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No storage configured")
		return
	}

	logDate := shift.LogDate(s.clk.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
			return
		}
		logDate = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	totals, err := s.store.Records().DailyTotals(ctx, logDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query daily totals")
		writeError(w, http.StatusInternalServerError, "Failed to query daily totals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"log_date": logDate.Format("2006-01-02"),
		"totals":   totals,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	now := s.clk.Now()
	s.line.ForceResetAll(now)
	metrics.DailyResets.Inc()

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Manual daily reset triggered")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Daily counters reset",
		"reset_at": now,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

func (s *Server) recentRecords() []storage.SessionRecord {
	if s.recorder == nil {
		return []storage.SessionRecord{}
	}
	return s.recorder.Recent()
}

// loggingMiddleware logs every request with its status and duration.
func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("Status request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
