package track

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/clock"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// ResetScheduler fires the daily counter reset at a configured wall-clock
// time and prunes records older than the retention window. The reset goes
// through Line.ForceResetAll, so it serializes against frame updates and
// can never clobber an in-flight session.
type ResetScheduler struct {
	line      *Line
	store     storage.Store
	resetTime time.Time // only hour and minute are used
	retention time.Duration
	clk       clock.Clock
	logger    zerolog.Logger
	stopChan  chan struct{}
}

// NewResetScheduler creates a scheduler. resetTime is "HH:MM". store may
// be nil when the daemon runs without persistence.
func NewResetScheduler(line *Line, store storage.Store, resetTime string, retention time.Duration, clk clock.Clock, logger zerolog.Logger) (*ResetScheduler, error) {
	parsedTime, err := time.Parse("15:04", resetTime)
	if err != nil {
		return nil, err
	}

	return &ResetScheduler{
		line:      line,
		store:     store,
		resetTime: parsedTime,
		retention: retention,
		clk:       clk,
		logger:    logger.With().Str("component", "reset-scheduler").Logger(),
		stopChan:  make(chan struct{}),
	}, nil
}

// Start begins the reset scheduler
func (rs *ResetScheduler) Start() {
	go rs.run()
	rs.logger.Info().
		Str("reset_time", rs.resetTime.Format("15:04")).
		Dur("retention", rs.retention).
		Msg("Daily reset scheduler started")
}

// Stop stops the reset scheduler
func (rs *ResetScheduler) Stop() {
	close(rs.stopChan)
	rs.logger.Info().Msg("Daily reset scheduler stopped")
}

// run is the main scheduler loop
func (rs *ResetScheduler) run() {
	for {
		nextReset := rs.calculateNextReset()
		waitDuration := nextReset.Sub(rs.clk.Now())

		rs.logger.Info().
			Time("next_reset", nextReset).
			Dur("wait_duration", waitDuration).
			Msg("Scheduled next daily reset")

		select {
		case <-time.After(waitDuration):
			rs.performReset()
		case <-rs.stopChan:
			return
		}
	}
}

// calculateNextReset returns the next occurrence of the configured
// reset time.
func (rs *ResetScheduler) calculateNextReset() time.Time {
	now := rs.clk.Now()

	todayReset := time.Date(
		now.Year(), now.Month(), now.Day(),
		rs.resetTime.Hour(), rs.resetTime.Minute(), 0, 0,
		now.Location(),
	)

	if now.After(todayReset) {
		return todayReset.AddDate(0, 0, 1)
	}
	return todayReset
}

// performReset resets every daily counter and prunes expired records.
func (rs *ResetScheduler) performReset() {
	now := rs.clk.Now()
	rs.logger.Info().Msg("Performing daily reset")

	rs.line.ForceResetAll(now)
	metrics.DailyResets.Inc()

	if rs.store == nil || rs.retention <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := now.Add(-rs.retention)
	deleted, err := rs.store.Records().DeleteBefore(ctx, cutoff)
	if err != nil {
		rs.logger.Error().Err(err).Msg("Failed to clean up expired records")
		return
	}

	rs.logger.Info().
		Int("records_deleted", deleted).
		Str("cutoff_date", cutoff.Format("2006-01-02")).
		Msg("Daily reset complete, expired records cleaned up")
}
