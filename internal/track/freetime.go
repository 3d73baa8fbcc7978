package track

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// Reasons a freetime session can end, carried in the session log line.
const (
	endReasonMaterial = "material_detected"
	endReasonGlove    = "glove_detected"
	endReasonShutdown = "system_shutdown"
)

// FreetimeTracker watches the whole line. When every zone has been empty
// for the activation threshold it opens an idle session; a single frame
// with material anywhere closes it immediately. There is deliberately no
// debounce on the ending edge.
type FreetimeTracker struct {
	area      string
	threshold time.Duration

	state         FreetimeState
	allEmptySince time.Time
	startedAt     time.Time

	timer  *DailyTimer
	sink   RecordSink
	logger zerolog.Logger
}

// NewFreetimeTracker creates the line-wide idle tracker.
func NewFreetimeTracker(area string, threshold time.Duration, sink RecordSink, now time.Time, logger zerolog.Logger) *FreetimeTracker {
	return &FreetimeTracker{
		area:      area,
		threshold: threshold,
		state:     FreetimeInactive,
		timer:     NewDailyTimer(now),
		sink:      sink,
		logger:    logger.With().Str("tracker", "freetime").Logger(),
	}
}

// Update advances the tracker for one frame. allZonesEmpty reports
// whether no material detection landed in any zone this frame.
func (f *FreetimeTracker) Update(now time.Time, allZonesEmpty bool) {
	if !allZonesEmpty {
		f.End(now, endReasonMaterial)
		f.allEmptySince = time.Time{}
		return
	}

	if f.allEmptySince.IsZero() {
		f.allEmptySince = now
		return
	}
	if f.state == FreetimeActive {
		return
	}
	if now.Sub(f.allEmptySince) >= f.threshold {
		f.activate(now)
	}
}

func (f *FreetimeTracker) activate(now time.Time) {
	f.state = FreetimeActive
	f.startedAt = now
	f.timer.StartSession(now)
	metrics.SessionsStarted.WithLabelValues("freetime").Inc()
	metrics.FreetimeActive.Set(1)

	f.logger.Info().
		Str("started_at", now.Format("15:04:05")).
		Msg("Freetime started")
}

// End closes an active idle session and emits its record. Idempotent; the
// glove tracker calls this directly when a glove preempts freetime, and
// shutdown calls it to flush an in-flight session. The empty-since anchor
// is left alone so idle time resumes counting unless material shows up.
func (f *FreetimeTracker) End(now time.Time, reason string) {
	if f.state != FreetimeActive || f.startedAt.IsZero() {
		return
	}

	sessionDuration := f.timer.EndSession(now)
	rec := newRecord(f.area, freetimeZoneNumber, storage.RemarkFreetime, f.startedAt, now, sessionDuration)
	f.sink.Enqueue(rec)
	metrics.RecordsEmitted.WithLabelValues("freetime", string(rec.Remark)).Inc()
	metrics.FreetimeActive.Set(0)

	f.logger.Info().
		Str("session", FormatDuration(sessionDuration)).
		Str("daily_total", FormatDuration(f.timer.DailyTotal(now))).
		Str("reason", reason).
		Msg("Freetime ended")

	f.state = FreetimeInactive
	f.startedAt = time.Time{}
}

// ForceReset zeroes the daily accumulator without ending an open session.
func (f *FreetimeTracker) ForceReset(now time.Time) {
	prev := f.timer.DailyTotal(now)
	f.timer.ForceReset(now)
	f.logger.Info().
		Str("previous_total", FormatDuration(prev)).
		Msg("Daily total reset")
}

// Active reports whether an idle session is currently open.
func (f *FreetimeTracker) Active() bool {
	return f.state == FreetimeActive
}

// DailyTotal returns today's accumulated idle time including any open session.
func (f *FreetimeTracker) DailyTotal(now time.Time) time.Duration {
	return f.timer.DailyTotal(now)
}

// Status returns a snapshot of the tracker for the status API.
func (f *FreetimeTracker) Status(now time.Time) FreetimeStatus {
	return FreetimeStatus{
		Active:         f.state == FreetimeActive,
		SessionSeconds: int64(f.timer.CurrentSessionDuration(now) / time.Second),
		DailySeconds:   int64(f.timer.DailyTotal(now) / time.Second),
	}
}
