// Package shift maps timestamps to the plant's work shifts and to the
// business day ("log date") their records belong to. The mapping is pure
// arithmetic on the timestamp's wall clock in its own location.
//
// Shift 1 runs 07:10 to 15:59, shift 2 runs 16:00 to 00:15 the next
// morning, shift 3 runs 00:16 to 07:09. Records from the overnight
// stretch of shift 2 and from all of shift 3 are attributed to the
// previous calendar day, the day their shift started.
package shift

import "time"

// Shift identifies one of the three work shifts.
type Shift int

const (
	Shift1 Shift = iota + 1
	Shift2
	Shift3
)

// String returns the shift label used in persisted records.
func (s Shift) String() string {
	switch s {
	case Shift1:
		return "Shift_1"
	case Shift2:
		return "Shift_2"
	case Shift3:
		return "Shift_3"
	default:
		return "Shift_unknown"
	}
}

// At returns the shift the given timestamp falls in.
func At(t time.Time) Shift {
	hour, minute := t.Hour(), t.Minute()
	switch {
	case (hour == 7 && minute >= 10) || (hour > 7 && hour < 16):
		return Shift1
	case hour >= 16 || (hour == 0 && minute <= 15):
		return Shift2
	default:
		return Shift3
	}
}

// LogDate returns the business day the timestamp belongs to, as midnight
// in the timestamp's location. Early-morning timestamps that still belong
// to the previous day's overnight shifts map to the previous date.
func LogDate(t time.Time) time.Time {
	s := At(t)
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if s == Shift3 || (s == Shift2 && t.Hour() == 0 && t.Minute() <= 15) {
		return date.AddDate(0, 0, -1)
	}
	return date
}
