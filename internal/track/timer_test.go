package track

import (
	"testing"
	"time"
)

func TestDailyTimer_SessionAccumulation(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(start)

	timer.StartSession(start)
	got := timer.EndSession(start.Add(5 * time.Minute))
	if got != 5*time.Minute {
		t.Errorf("EndSession() = %v, want %v", got, 5*time.Minute)
	}

	timer.StartSession(start.Add(10 * time.Minute))
	timer.EndSession(start.Add(12 * time.Minute))

	if got := timer.DailyTotal(start.Add(12 * time.Minute)); got != 7*time.Minute {
		t.Errorf("DailyTotal() = %v, want %v", got, 7*time.Minute)
	}
}

func TestDailyTimer_DailyTotalIncludesOpenSession(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(start)

	timer.StartSession(start)
	at := start.Add(90 * time.Second)

	if got := timer.CurrentSessionDuration(at); got != 90*time.Second {
		t.Errorf("CurrentSessionDuration() = %v, want %v", got, 90*time.Second)
	}
	if got := timer.DailyTotal(at); got != 90*time.Second {
		t.Errorf("DailyTotal() = %v, want %v", got, 90*time.Second)
	}
}

func TestDailyTimer_EndWithoutStart(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(start)

	if got := timer.EndSession(start.Add(time.Minute)); got != 0 {
		t.Errorf("EndSession() without open session = %v, want 0", got)
	}
}

// A new session on a later calendar date discards the previous day's
// accumulated total before counting.
func TestDailyTimer_RolloverOnStartAfterMidnight(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(day1)

	timer.StartSession(day1)
	timer.EndSession(day1.Add(30 * time.Minute))

	day2 := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	timer.StartSession(day2)
	at := day2.Add(10 * time.Second)

	if got := timer.DailyTotal(at); got != 10*time.Second {
		t.Errorf("DailyTotal() after rollover = %v, want %v", got, 10*time.Second)
	}
}

// The rollover check only runs when a session starts. A timer that is
// merely queried across midnight keeps reporting yesterday's total until
// the scheduled reset fires.
func TestDailyTimer_NoRolloverWithoutNewSession(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(day1)

	timer.StartSession(day1)
	timer.EndSession(day1.Add(30 * time.Minute))

	day2 := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	if got := timer.DailyTotal(day2); got != 30*time.Minute {
		t.Errorf("DailyTotal() across midnight = %v, want %v", got, 30*time.Minute)
	}
}

// ForceReset zeroes the accumulator but must not clobber a session that
// is still open: the session keeps its original start and contributes its
// full duration when it ends.
func TestDailyTimer_ForceResetPreservesOpenSession(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	timer := NewDailyTimer(start)

	timer.StartSession(start)
	timer.EndSession(start.Add(5 * time.Minute))

	open := start.Add(20 * time.Minute)
	timer.StartSession(open)
	timer.ForceReset(open.Add(2 * time.Minute))

	got := timer.EndSession(open.Add(8 * time.Minute))
	if got != 8*time.Minute {
		t.Errorf("EndSession() after mid-session reset = %v, want %v", got, 8*time.Minute)
	}
	if total := timer.DailyTotal(open.Add(8 * time.Minute)); total != 8*time.Minute {
		t.Errorf("DailyTotal() after mid-session reset = %v, want %v", total, 8*time.Minute)
	}
}

// ForceReset stamps the reset date. A session that spans the midnight
// reset lands its full duration on the new day, and the next session
// start must not wipe it with a second rollover.
func TestDailyTimer_ForceResetStampsDate(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	timer := NewDailyTimer(day1)
	timer.StartSession(day1)

	midnight := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	timer.ForceReset(midnight)
	timer.EndSession(midnight.Add(30 * time.Minute))

	timer.StartSession(midnight.Add(time.Hour))
	timer.EndSession(midnight.Add(time.Hour + 5*time.Minute))

	if got := timer.DailyTotal(midnight.Add(2 * time.Hour)); got != 45*time.Minute {
		t.Errorf("DailyTotal() after spanning reset = %v, want %v", got, 45*time.Minute)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "00:00:00"},
		{"seconds only", 59 * time.Second, "00:00:59"},
		{"minute wrap", 61 * time.Second, "00:01:01"},
		{"hour wrap", 3661 * time.Second, "01:01:01"},
		{"day boundary", 86399 * time.Second, "23:59:59"},
		{"hours not wrapped", 25 * time.Hour, "25:00:00"},
		{"sub-second truncated", 1900 * time.Millisecond, "00:00:01"},
		{"negative clamped", -5 * time.Second, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
