package track

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/geom"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// ZoneDef describes a single material zone on the line.
type ZoneDef struct {
	Number int
	Name   string
	Region geom.Region
}

// ZoneTracker runs the occupancy state machine for one material zone.
// Entry is immediate; exit is debounced by the loss threshold so that
// single missed frames do not split a dip run into multiple records.
type ZoneTracker struct {
	def           ZoneDef
	area          string
	lossThreshold time.Duration

	state     ZoneState
	entryTime time.Time
	lastSeen  time.Time

	timer  *DailyTimer
	sink   RecordSink
	logger zerolog.Logger
}

// NewZoneTracker creates a tracker for one zone. The sink receives one
// record per completed occupancy run.
func NewZoneTracker(def ZoneDef, area string, lossThreshold time.Duration, sink RecordSink, now time.Time, logger zerolog.Logger) *ZoneTracker {
	return &ZoneTracker{
		def:           def,
		area:          area,
		lossThreshold: lossThreshold,
		state:         ZoneEmpty,
		timer:         NewDailyTimer(now),
		sink:          sink,
		logger:        logger.With().Int("zone", def.Number).Str("zone_name", def.Name).Logger(),
	}
}

// Update advances the state machine for one frame. present reports
// whether a material detection landed inside this zone's region.
func (z *ZoneTracker) Update(now time.Time, present bool) {
	if present {
		z.lastSeen = now
		if z.state == ZoneEmpty {
			z.enter(now)
		}
		return
	}

	if z.state != ZoneOccupied || z.lastSeen.IsZero() {
		return
	}
	if now.Sub(z.lastSeen) >= z.lossThreshold {
		z.exit(now)
	}
}

func (z *ZoneTracker) enter(now time.Time) {
	z.state = ZoneOccupied
	z.entryTime = now
	z.timer.StartSession(now)
	metrics.SessionsStarted.WithLabelValues(z.def.Name).Inc()

	z.logger.Info().
		Str("entry_time", now.Format("15:04:05")).
		Msg("Material entered zone")
}

func (z *ZoneTracker) exit(now time.Time) {
	if z.state != ZoneOccupied || z.entryTime.IsZero() {
		return
	}

	sessionDuration := z.timer.EndSession(now)
	rec := newRecord(z.area, z.def.Number, storage.RemarkInUse, z.entryTime, now, sessionDuration)
	z.sink.Enqueue(rec)
	metrics.RecordsEmitted.WithLabelValues(z.def.Name, string(rec.Remark)).Inc()

	z.logger.Info().
		Str("session", FormatDuration(sessionDuration)).
		Str("daily_total", FormatDuration(z.timer.DailyTotal(now))).
		Msg("Material exited zone")

	z.state = ZoneEmpty
	z.entryTime = time.Time{}
	z.lastSeen = time.Time{}
}

// ForceExit closes an open occupancy run immediately, bypassing the loss
// threshold. Used on shutdown so in-flight runs are not lost. Safe to
// call when the zone is empty.
func (z *ZoneTracker) ForceExit(now time.Time) {
	z.exit(now)
}

// ForceReset zeroes the daily accumulator without touching an open run.
func (z *ZoneTracker) ForceReset(now time.Time) {
	prev := z.timer.DailyTotal(now)
	z.timer.ForceReset(now)
	z.logger.Info().
		Str("previous_total", FormatDuration(prev)).
		Msg("Daily total reset")
}

// Occupied reports whether the zone currently holds material.
func (z *ZoneTracker) Occupied() bool {
	return z.state == ZoneOccupied
}

// DailyTotal returns today's accumulated occupancy including any open run.
func (z *ZoneTracker) DailyTotal(now time.Time) time.Duration {
	return z.timer.DailyTotal(now)
}

// Number returns the zone's configured number.
func (z *ZoneTracker) Number() int {
	return z.def.Number
}

// Contains reports whether a point falls inside the zone's region.
func (z *ZoneTracker) Contains(p geom.Point) bool {
	return z.def.Region.Contains(p)
}

// Status returns a snapshot of the zone for the status API.
func (z *ZoneTracker) Status(now time.Time) ZoneStatus {
	return ZoneStatus{
		Number:         z.def.Number,
		Name:           z.def.Name,
		Occupied:       z.state == ZoneOccupied,
		SessionSeconds: int64(z.timer.CurrentSessionDuration(now) / time.Second),
		DailySeconds:   int64(z.timer.DailyTotal(now) / time.Second),
	}
}
