package track

import (
	"time"

	"github.com/takelwerk/dipwatch/internal/shift"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// Zone number reserved for line-wide idle records. Zones and the glove
// area carry their configured numbers.
const freetimeZoneNumber = 0

// RecordSink receives the session records emitted on exit transitions.
// Enqueue must not block: the per-frame path calls it while holding the
// Line lock.
type RecordSink interface {
	Enqueue(rec storage.SessionRecord)
}

// SinkFunc adapts a function to the RecordSink interface.
type SinkFunc func(rec storage.SessionRecord)

// Enqueue calls f(rec).
func (f SinkFunc) Enqueue(rec storage.SessionRecord) {
	f(rec)
}

// ZoneState is the occupancy state of one zone.
type ZoneState int

const (
	ZoneEmpty ZoneState = iota
	ZoneOccupied
)

// String returns the state name for logs and status output.
func (s ZoneState) String() string {
	if s == ZoneOccupied {
		return "occupied"
	}
	return "empty"
}

// FreetimeState is the state of the line-idle tracker.
type FreetimeState int

const (
	FreetimeInactive FreetimeState = iota
	FreetimeActive
)

// String returns the state name for logs and status output.
func (s FreetimeState) String() string {
	if s == FreetimeActive {
		return "active"
	}
	return "inactive"
}

// GloveState is the presence state of the glove tracker.
type GloveState int

const (
	GloveAbsent GloveState = iota
	GlovePresent
)

// String returns the state name for logs and status output.
func (s GloveState) String() string {
	if s == GlovePresent {
		return "present"
	}
	return "absent"
}

// ZoneStatus is a point-in-time snapshot of one zone for the status API.
type ZoneStatus struct {
	Number         int    `json:"number"`
	Name           string `json:"name"`
	Occupied       bool   `json:"occupied"`
	SessionSeconds int64  `json:"session_seconds"`
	DailySeconds   int64  `json:"daily_seconds"`
}

// FreetimeStatus is a snapshot of the line-idle tracker.
type FreetimeStatus struct {
	Active         bool  `json:"active"`
	SessionSeconds int64 `json:"session_seconds"`
	DailySeconds   int64 `json:"daily_seconds"`
}

// GloveStatus is a snapshot of the glove tracker.
type GloveStatus struct {
	Present            bool  `json:"present"`
	PrecededByFreetime bool  `json:"preceded_by_freetime"`
	SessionSeconds     int64 `json:"session_seconds"`
	DailySeconds       int64 `json:"daily_seconds"`
}

// Status aggregates all tracker snapshots for the status API.
type Status struct {
	InUse    bool           `json:"in_use"`
	Zones    []ZoneStatus   `json:"zones"`
	Freetime FreetimeStatus `json:"freetime"`
	Glove    GloveStatus    `json:"glove"`
}

// newRecord assembles a session record the way the plant's legacy table
// expects it: the formatted duration is the timer-reported session length,
// duration_seconds is recomputed from the timestamp pair, shift and log
// date derive from the session start.
func newRecord(area string, zoneNumber int, remark storage.Remark, timeIn, createdAt time.Time, sessionDuration time.Duration) storage.SessionRecord {
	return storage.SessionRecord{
		ID:              storage.NewRecordID(),
		Area:            area,
		Duration:        FormatDuration(sessionDuration),
		DurationSeconds: int(createdAt.Sub(timeIn) / time.Second),
		TimeIn:          timeIn,
		Shift:           shift.At(timeIn).String(),
		Remark:          remark,
		ZoneNumber:      zoneNumber,
		LogDate:         shift.LogDate(timeIn),
		CreatedAt:       createdAt,
	}
}
