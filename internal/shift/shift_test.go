package shift

import (
	"testing"
	"time"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 3, 12, hour, min, sec, 0, time.Local)
}

func TestAt(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want Shift
	}{
		{"morning handover 07:09:59", at(7, 9, 59), Shift3},
		{"shift 1 start 07:10:00", at(7, 10, 0), Shift1},
		{"mid shift 1", at(12, 0, 0), Shift1},
		{"shift 1 end 15:59:59", at(15, 59, 59), Shift1},
		{"shift 2 start 16:00:00", at(16, 0, 0), Shift2},
		{"evening", at(22, 30, 0), Shift2},
		{"midnight", at(0, 0, 0), Shift2},
		{"overnight tail 00:15:00", at(0, 15, 0), Shift2},
		{"overnight tail 00:15:59", at(0, 15, 59), Shift2},
		{"shift 3 start 00:16:00", at(0, 16, 0), Shift3},
		{"early morning", at(4, 0, 0), Shift3},
		{"before handover 07:00", at(7, 0, 0), Shift3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := At(tt.t); got != tt.want {
				t.Errorf("At(%s) = %v, want %v", tt.t.Format("15:04:05"), got, tt.want)
			}
		})
	}
}

func TestLogDate(t *testing.T) {
	today := time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name string
		t    time.Time
		want time.Time
	}{
		{"day shift keeps calendar date", at(10, 0, 0), today},
		{"evening keeps calendar date", at(20, 0, 0), today},
		{"overnight tail 00:15 maps back", at(0, 15, 0), yesterday},
		{"shift 3 00:16 maps back", at(0, 16, 0), yesterday},
		{"shift 3 early morning maps back", at(5, 0, 0), yesterday},
		{"shift 1 start maps to today", at(7, 10, 0), today},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogDate(tt.t); !got.Equal(tt.want) {
				t.Errorf("LogDate(%s) = %s, want %s",
					tt.t.Format("15:04:05"), got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestShiftString(t *testing.T) {
	tests := []struct {
		s    Shift
		want string
	}{
		{Shift1, "Shift_1"},
		{Shift2, "Shift_2"},
		{Shift3, "Shift_3"},
		{Shift(0), "Shift_unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Shift(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
