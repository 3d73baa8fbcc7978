package track

import (
	"fmt"
	"time"
)

// DailyTimer accumulates in-use time for one counter across a single
// calendar day. Date rollover is detected lazily when a session starts,
// or forced by the reset scheduler. The timer does no locking of its own;
// the Line serializes all access to it.
type DailyTimer struct {
	accumulated  time.Duration
	sessionStart time.Time
	active       bool
	lastReset    time.Time // midnight of the day the accumulator belongs to
}

// NewDailyTimer creates a timer whose accumulator belongs to now's date.
func NewDailyTimer(now time.Time) *DailyTimer {
	return &DailyTimer{lastReset: dateOf(now)}
}

// StartSession opens a session at now. It is a no-op if a session is
// already open. Opening a session on a later calendar date than the last
// reset zeroes the accumulator first.
func (t *DailyTimer) StartSession(now time.Time) {
	if t.active {
		return
	}
	t.sessionStart = now
	t.active = true
	if dateOf(now).After(t.lastReset) {
		t.accumulated = 0
		t.lastReset = dateOf(now)
	}
}

// EndSession closes the open session, adds its duration to the daily
// accumulator and returns it. Returns 0 if no session is open.
func (t *DailyTimer) EndSession(now time.Time) time.Duration {
	if !t.active {
		return 0
	}
	duration := now.Sub(t.sessionStart)
	t.accumulated += duration
	t.active = false
	t.sessionStart = time.Time{}
	return duration
}

// CurrentSessionDuration returns the live elapsed time of the open
// session, or 0 if none is open.
func (t *DailyTimer) CurrentSessionDuration(now time.Time) time.Duration {
	if !t.active {
		return 0
	}
	return now.Sub(t.sessionStart)
}

// DailyTotal returns the accumulated time plus the open session, if any.
func (t *DailyTimer) DailyTotal(now time.Time) time.Duration {
	total := t.accumulated
	if t.active {
		total += now.Sub(t.sessionStart)
	}
	return total
}

// ForceReset zeroes the accumulator and stamps the reset date. An open
// session keeps its start time, so its in-flight interval lands in the
// fresh accumulator when it ends.
func (t *DailyTimer) ForceReset(now time.Time) {
	t.accumulated = 0
	t.lastReset = dateOf(now)
}

// Active reports whether a session is currently open.
func (t *DailyTimer) Active() bool {
	return t.active
}

// SessionStart returns the start of the open session, zero if none.
func (t *DailyTimer) SessionStart() time.Time {
	return t.sessionStart
}

// FormatDuration renders d as zero-padded HH:MM:SS, truncated to whole
// seconds. Hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
