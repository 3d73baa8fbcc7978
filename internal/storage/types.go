package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Remark classifies what a session record measured.
type Remark string

const (
	// RemarkInUse marks time a station held material, or glove time that
	// interrupted line idle.
	RemarkInUse Remark = "in_use"
	// RemarkFreetime marks line-wide idle time.
	RemarkFreetime Remark = "freetime"
)

// UnmarshalJSON implements json.Unmarshaler to normalize and validate remarks.
func (r *Remark) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	normalized := Remark(strings.ToLower(s))

	switch normalized {
	case RemarkInUse, RemarkFreetime:
		*r = normalized
		return nil
	default:
		return fmt.Errorf("invalid remark: %s (must be in_use or freetime)", s)
	}
}

// MarshalJSON implements json.Marshaler to ensure lowercase output.
func (r Remark) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// SessionRecord is one completed tracking session, created on an exit
// transition and handed to the record writer. Field semantics follow the
// plant's legacy reporting table: Duration is the timer-reported session
// length formatted HH:MM:SS, DurationSeconds is recomputed from the
// CreatedAt/TimeIn pair, Shift and LogDate are derived from TimeIn.
type SessionRecord struct {
	ID              string    `json:"id"`
	Area            string    `json:"area"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	TimeIn          time.Time `json:"time_in"`
	Shift           string    `json:"shift"`
	Remark          Remark    `json:"remark"`
	ZoneNumber      int       `json:"zone_number"`
	LogDate         time.Time `json:"log_date"`
	CreatedAt       time.Time `json:"created_at"`
}
