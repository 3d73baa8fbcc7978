package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Pipeline metrics
	FramesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_frames_received_total",
			Help: "Total frames received from the source",
		},
	)

	FramesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_frames_processed_total",
			Help: "Total frames run through detection and tracking",
		},
	)

	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_frames_dropped_total",
			Help: "Total frames dropped before processing",
		},
		[]string{"reason"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_queue_depth",
			Help: "Frames currently waiting in the pipeline queue",
		},
	)

	FrameProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dipwatch_frame_processing_duration_seconds",
			Help:    "Per-frame detection and tracking duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	ProcessingFPS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_processing_fps",
			Help: "Frames processed per second, smoothed over the last interval",
		},
	)

	// Detection metrics
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_detections_total",
			Help: "Total detections accepted by the tracking engine",
		},
		[]string{"class"},
	)

	// Tracking metrics
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_sessions_started_total",
			Help: "Total tracking sessions opened",
		},
		[]string{"counter"},
	)

	RecordsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dipwatch_records_emitted_total",
			Help: "Total session records emitted on exit transitions",
		},
		[]string{"counter", "remark"},
	)

	InUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_in_use",
			Help: "1 when any zone holds material or a glove is present",
		},
	)

	FreetimeActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_freetime_active",
			Help: "1 while a line-wide idle session is open",
		},
	)

	DailyResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_daily_resets_total",
			Help: "Total daily counter resets, scheduled and manual",
		},
	)

	// Recorder metrics
	RecorderQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dipwatch_recorder_queue_depth",
			Help: "Records currently waiting for the storage writer",
		},
	)

	RecorderDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_recorder_dropped_total",
			Help: "Records dropped because the writer queue was full",
		},
	)

	RecorderWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_recorder_write_failures_total",
			Help: "Record writes that failed and were not retried",
		},
	)

	// Watchdog metrics
	WatchdogStalls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dipwatch_watchdog_stalls_total",
			Help: "Pipeline stalls detected by the watchdog",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		FramesReceived,
		FramesProcessed,
		FramesDropped,
		QueueDepth,
		FrameProcessingDuration,
		ProcessingFPS,
		DetectionsTotal,
		SessionsStarted,
		RecordsEmitted,
		InUse,
		FreetimeActive,
		DailyResets,
		RecorderQueueDepth,
		RecorderDropped,
		RecorderWriteFailures,
		WatchdogStalls,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
