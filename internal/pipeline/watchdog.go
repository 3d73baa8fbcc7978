package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/clock"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/systemd"
)

// Watchdog detects a frozen pipeline. Producer and consumer call Touch
// on every frame; if neither has touched within the stall threshold the
// watchdog drains the queue and resets its timer. It never restarts the
// loops and never touches tracker state: a drained queue plus a live
// source is enough to recover from every freeze the camera rig produces.
type Watchdog struct {
	queue          *Queue
	checkInterval  time.Duration
	stallThreshold time.Duration
	clk            clock.Clock
	notifySystemd  bool

	lastActivity atomic.Int64 // unix nanos

	logger zerolog.Logger
}

// NewWatchdog creates a watchdog over the given queue.
func NewWatchdog(queue *Queue, checkInterval, stallThreshold time.Duration, clk clock.Clock, logger zerolog.Logger) *Watchdog {
	w := &Watchdog{
		queue:          queue,
		checkInterval:  checkInterval,
		stallThreshold: stallThreshold,
		clk:            clk,
		notifySystemd:  systemd.IsSystemdService(),
		logger:         logger.With().Str("component", "watchdog").Logger(),
	}
	w.Touch()
	return w
}

// Touch records pipeline activity. Safe from any goroutine.
func (w *Watchdog) Touch() {
	w.lastActivity.Store(w.clk.Now().UnixNano())
}

// Run checks pipeline health until the context is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info().
		Dur("check_interval", w.checkInterval).
		Dur("stall_threshold", w.stallThreshold).
		Msg("Watchdog started")

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Watchdog stopped")
			return
		case <-ticker.C:
			w.checkOnce()
		}
	}
}

// checkOnce runs one health check and reports whether the pipeline was
// healthy.
func (w *Watchdog) checkOnce() bool {
	idle := w.clk.Now().Sub(time.Unix(0, w.lastActivity.Load()))
	if idle <= w.stallThreshold {
		if w.notifySystemd {
			if err := systemd.NotifyWatchdog(); err != nil {
				w.logger.Warn().Err(err).Msg("Failed to notify systemd watchdog")
			}
		}
		return true
	}

	w.logger.Error().
		Dur("idle", idle).
		Msg("Pipeline stall detected, attempting recovery")

	dropped := w.queue.Drain()
	metrics.FramesDropped.WithLabelValues("stall_recovery").Add(float64(dropped))
	metrics.WatchdogStalls.Inc()
	w.Touch()

	w.logger.Info().
		Int("frames_dropped", dropped).
		Msg("Stall recovery completed")
	return false
}
