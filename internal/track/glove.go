package track

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/geom"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// freetimePreempter is the narrow slice of the freetime tracker the glove
// tracker needs: query idle state at glove entry and preempt it.
type freetimePreempter interface {
	Active() bool
	End(now time.Time, reason string)
}

// GloveTracker runs the glove-presence state machine over the glove work
// area. A glove session is billable only when it preempted an active
// freetime session; gloves worn while material is being processed leave
// no record at all.
type GloveTracker struct {
	area          string
	zoneNumber    int
	region        geom.Region
	lossThreshold time.Duration

	state              GloveState
	startedAt          time.Time
	lastSeen           time.Time
	precededByFreetime bool

	freetime freetimePreempter
	timer    *DailyTimer
	sink     RecordSink
	logger   zerolog.Logger
}

// NewGloveTracker creates the glove tracker. zoneNumber is the reserved
// zone id stamped on glove records.
func NewGloveTracker(area string, zoneNumber int, region geom.Region, lossThreshold time.Duration, freetime freetimePreempter, sink RecordSink, now time.Time, logger zerolog.Logger) *GloveTracker {
	return &GloveTracker{
		area:          area,
		zoneNumber:    zoneNumber,
		region:        region,
		lossThreshold: lossThreshold,
		state:         GloveAbsent,
		freetime:      freetime,
		timer:         NewDailyTimer(now),
		sink:          sink,
		logger:        logger.With().Str("tracker", "glove").Logger(),
	}
}

// Update advances the state machine for one frame. detected reports
// whether a glove detection landed inside the work area this frame.
func (g *GloveTracker) Update(now time.Time, detected bool) {
	if detected {
		g.lastSeen = now
		if g.state == GloveAbsent {
			g.enter(now)
		}
		return
	}

	if g.state != GlovePresent || g.lastSeen.IsZero() {
		return
	}
	if now.Sub(g.lastSeen) >= g.lossThreshold {
		g.exit(now)
	}
}

func (g *GloveTracker) enter(now time.Time) {
	// The dip-to-use transition is only billable when the line was idle:
	// capture that fact at the entry edge, before freetime is preempted.
	g.precededByFreetime = g.freetime.Active()
	if g.precededByFreetime {
		g.freetime.End(now, endReasonGlove)
		g.timer.StartSession(now)
	}

	g.state = GlovePresent
	g.startedAt = now
	metrics.SessionsStarted.WithLabelValues("glove").Inc()

	g.logger.Info().
		Str("entry_time", now.Format("15:04:05")).
		Bool("was_freetime", g.precededByFreetime).
		Msg("Glove detected")
}

func (g *GloveTracker) exit(now time.Time) {
	if g.state != GlovePresent || g.startedAt.IsZero() {
		return
	}

	if g.precededByFreetime {
		sessionDuration := g.timer.EndSession(now)
		rec := newRecord(g.area, g.zoneNumber, storage.RemarkInUse, g.startedAt, now, sessionDuration)
		g.sink.Enqueue(rec)
		metrics.RecordsEmitted.WithLabelValues("glove", string(rec.Remark)).Inc()

		g.logger.Info().
			Str("session", FormatDuration(sessionDuration)).
			Str("daily_total", FormatDuration(g.timer.DailyTotal(now))).
			Msg("Glove exited, logged as in_use")
	} else {
		g.logger.Info().Msg("Glove exited, not logged (no preceding freetime)")
	}

	g.state = GloveAbsent
	g.startedAt = time.Time{}
	g.lastSeen = time.Time{}
	g.precededByFreetime = false
}

// ForceExit closes an open glove session immediately, bypassing the loss
// threshold. The conditional-logging rule still applies. Safe to call
// when no glove is present.
func (g *GloveTracker) ForceExit(now time.Time) {
	g.exit(now)
}

// ForceReset zeroes the daily accumulator without touching an open session.
func (g *GloveTracker) ForceReset(now time.Time) {
	prev := g.timer.DailyTotal(now)
	g.timer.ForceReset(now)
	g.logger.Info().
		Str("previous_total", FormatDuration(prev)).
		Msg("Daily total reset")
}

// Present reports whether a glove is currently detected.
func (g *GloveTracker) Present() bool {
	return g.state == GlovePresent
}

// DailyTotal returns today's accumulated billable glove time including
// any open preceded-by-freetime session.
func (g *GloveTracker) DailyTotal(now time.Time) time.Duration {
	return g.timer.DailyTotal(now)
}

// Contains reports whether a point falls inside the glove work area.
func (g *GloveTracker) Contains(p geom.Point) bool {
	return g.region.Contains(p)
}

// Status returns a snapshot of the tracker for the status API.
func (g *GloveTracker) Status(now time.Time) GloveStatus {
	return GloveStatus{
		Present:            g.state == GlovePresent,
		PrecededByFreetime: g.precededByFreetime,
		SessionSeconds:     int64(g.timer.CurrentSessionDuration(now) / time.Second),
		DailySeconds:       int64(g.timer.DailyTotal(now) / time.Second),
	}
}
