package track

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/geom"
)

// LineConfig carries everything the orchestrator needs at construction.
// The caller (config package) has already validated geometry and
// thresholds.
type LineConfig struct {
	Area               string
	Zones              []ZoneDef
	GloveRegion        geom.Region
	GloveZoneNumber    int
	MaterialClassID    int
	GloveClassID       int
	MinConfidence      float64
	LossThreshold      time.Duration
	GloveLossThreshold time.Duration
	FreetimeThreshold  time.Duration
}

// Line owns every tracker on one dipping line and serializes all state
// mutation behind a single mutex. Frame updates, the midnight reset, the
// manual reset, and the shutdown drain all pass through it; the lock is
// never held across I/O because record emission is a non-blocking
// enqueue.
type Line struct {
	mu sync.Mutex

	area          string
	materialClass int
	gloveClass    int
	minConfidence float64

	zones    []*ZoneTracker
	freetime *FreetimeTracker
	glove    *GloveTracker

	logger zerolog.Logger
}

// NewLine builds the tracker set. Zone order matters: the first zone
// containing a detection's center claims it.
func NewLine(cfg LineConfig, sink RecordSink, now time.Time, logger zerolog.Logger) *Line {
	l := &Line{
		area:          cfg.Area,
		materialClass: cfg.MaterialClassID,
		gloveClass:    cfg.GloveClassID,
		minConfidence: cfg.MinConfidence,
		logger:        logger.With().Str("component", "line").Logger(),
	}

	for _, def := range cfg.Zones {
		l.zones = append(l.zones, NewZoneTracker(def, cfg.Area, cfg.LossThreshold, sink, now, l.logger))
	}
	l.freetime = NewFreetimeTracker(cfg.Area, cfg.FreetimeThreshold, sink, now, l.logger)
	l.glove = NewGloveTracker(cfg.Area, cfg.GloveZoneNumber, cfg.GloveRegion, cfg.GloveLossThreshold, l.freetime, sink, now, l.logger)

	l.logger.Info().
		Int("zones", len(l.zones)).
		Str("area", cfg.Area).
		Msg("Line trackers initialized")
	return l
}

// Update routes one frame's detections to the trackers. An empty
// detection list behaves exactly like a frame where nothing was seen.
func (l *Line) Update(now time.Time, dets []detect.Detection) {
	l.mu.Lock()
	defer l.mu.Unlock()

	zonePresent := make([]bool, len(l.zones))
	gloveSeen := false

	for _, det := range dets {
		if det.Confidence <= l.minConfidence {
			continue
		}
		center := det.Box.Center()

		switch det.ClassID {
		case l.materialClass:
			// First zone containing the center claims the detection.
			for i, z := range l.zones {
				if z.Contains(center) {
					zonePresent[i] = true
					break
				}
			}
		case l.gloveClass:
			if l.glove.Contains(center) {
				gloveSeen = true
			}
		}
	}

	allEmpty := true
	for i, z := range l.zones {
		z.Update(now, zonePresent[i])
		if zonePresent[i] {
			allEmpty = false
		}
	}
	l.freetime.Update(now, allEmpty)
	l.glove.Update(now, gloveSeen)
}

// ForceResetAll zeroes every daily accumulator. Open sessions keep their
// in-flight time. The midnight scheduler and the manual reset endpoint
// both land here, serialized against frame updates by the mutex.
func (l *Line) ForceResetAll(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, z := range l.zones {
		z.ForceReset(now)
	}
	l.freetime.ForceReset(now)
	l.glove.ForceReset(now)

	l.logger.Info().Str("area", l.area).Msg("Daily reset completed")
}

// Shutdown drains every open session so nothing in flight is lost, then
// logs each counter's final daily total. Terminal records flow through
// the same sink as live ones.
func (l *Line) Shutdown(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, z := range l.zones {
		z.ForceExit(now)
	}
	l.freetime.End(now, endReasonShutdown)
	l.glove.ForceExit(now)

	for _, z := range l.zones {
		l.logger.Info().
			Int("zone", z.Number()).
			Str("daily_total", FormatDuration(z.DailyTotal(now))).
			Msg("Final daily total")
	}
	l.logger.Info().
		Str("daily_total", FormatDuration(l.freetime.DailyTotal(now))).
		Msg("Final freetime total")
	l.logger.Info().
		Str("daily_total", FormatDuration(l.glove.DailyTotal(now))).
		Msg("Final glove total")
}

// InUse reports whether any zone holds material or a glove is present.
func (l *Line) InUse() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, z := range l.zones {
		if z.Occupied() {
			return true
		}
	}
	return l.glove.Present()
}

// FreetimeActive reports whether a line-wide idle session is open.
func (l *Line) FreetimeActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.freetime.Active()
}

// Snapshot returns the full tracker state for the status API.
func (l *Line) Snapshot(now time.Time) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked(now)
}

func (l *Line) snapshotLocked(now time.Time) Status {
	st := Status{
		Zones:    make([]ZoneStatus, 0, len(l.zones)),
		Freetime: l.freetime.Status(now),
		Glove:    l.glove.Status(now),
	}
	for _, z := range l.zones {
		zs := z.Status(now)
		st.Zones = append(st.Zones, zs)
		if zs.Occupied {
			st.InUse = true
		}
	}
	if st.Glove.Present {
		st.InUse = true
	}
	return st
}
