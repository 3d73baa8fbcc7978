package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Records() RecordStore
}

// RecordStore persists the session records emitted on tracker exit
// transitions. Records are immutable once written.
type RecordStore interface {
	Insert(ctx context.Context, rec SessionRecord) error
	Get(ctx context.Context, id string) (*SessionRecord, error)
	ListByLogDate(ctx context.Context, logDate time.Time) ([]SessionRecord, error)
	// DailyTotals sums duration_seconds per counter (keyed by zone number)
	// for one log date.
	DailyTotals(ctx context.Context, logDate time.Time) (map[int]int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
