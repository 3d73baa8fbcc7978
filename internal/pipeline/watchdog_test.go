package pipeline

import (
	"testing"
	"time"

	"github.com/takelwerk/dipwatch/internal/clock"
)

func newTestWatchdog(t *testing.T) (*Watchdog, *Queue, *clock.TestClock) {
	t.Helper()
	clk := &clock.TestClock{CurrentTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	q := NewQueue(8, testLogger())
	wd := NewWatchdog(q, 5*time.Second, 15*time.Second, clk, testLogger())
	return wd, q, clk
}

func TestWatchdog_HealthyPipeline(t *testing.T) {
	wd, q, clk := newTestWatchdog(t)
	q.Push(frame(1))

	clk.Advance(10 * time.Second)
	if !wd.checkOnce() {
		t.Error("checkOnce() = false for 10s of idle time, want healthy")
	}
	if got := q.Len(); got != 1 {
		t.Errorf("Len() = %d after healthy check, want 1", got)
	}
}

func TestWatchdog_StallDrainsQueue(t *testing.T) {
	wd, q, clk := newTestWatchdog(t)
	for seq := uint64(1); seq <= 3; seq++ {
		q.Push(frame(seq))
	}

	clk.Advance(16 * time.Second)
	if wd.checkOnce() {
		t.Error("checkOnce() = true for 16s of idle time, want stall")
	}
	if got := q.Len(); got != 0 {
		t.Errorf("Len() = %d after stall recovery, want 0", got)
	}

	// Recovery resets the activity timestamp, so the next check passes.
	clk.Advance(10 * time.Second)
	if !wd.checkOnce() {
		t.Error("checkOnce() = false right after recovery, want healthy")
	}
}

func TestWatchdog_TouchResetsIdleTime(t *testing.T) {
	wd, _, clk := newTestWatchdog(t)

	clk.Advance(10 * time.Second)
	wd.Touch()
	clk.Advance(10 * time.Second)

	if !wd.checkOnce() {
		t.Error("checkOnce() = false 10s after Touch, want healthy")
	}
}
