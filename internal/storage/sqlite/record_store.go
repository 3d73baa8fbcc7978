package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/takelwerk/dipwatch/internal/storage"
)

const dateLayout = "2006-01-02"

type recordStore struct {
	db *sql.DB
}

// Insert writes one session record
func (s *recordStore) Insert(ctx context.Context, rec storage.SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_records
			(id, area, duration, duration_seconds, time_in, shift, remark, zone_number, log_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Area,
		rec.Duration,
		rec.DurationSeconds,
		rec.TimeIn.Format(time.RFC3339Nano),
		rec.Shift,
		string(rec.Remark),
		rec.ZoneNumber,
		rec.LogDate.Format(dateLayout),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID
func (s *recordStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, area, duration, duration_seconds, time_in, shift, remark, zone_number, log_date, created_at
		FROM session_records WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return rec, err
}

// ListByLogDate returns all records attributed to one business day
func (s *recordStore) ListByLogDate(ctx context.Context, logDate time.Time) ([]storage.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, area, duration, duration_seconds, time_in, shift, remark, zone_number, log_date, created_at
		FROM session_records WHERE log_date = ? ORDER BY created_at
	`, logDate.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []storage.SessionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DailyTotals returns summed duration_seconds per zone number for one
// business day.
func (s *recordStore) DailyTotals(ctx context.Context, logDate time.Time) (map[int]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT zone_number, SUM(duration_seconds)
		FROM session_records WHERE log_date = ? GROUP BY zone_number
	`, logDate.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int]int64)
	for rows.Next() {
		var zone int
		var seconds int64
		if err := rows.Scan(&zone, &seconds); err != nil {
			return nil, err
		}
		totals[zone] = seconds
	}
	return totals, rows.Err()
}

// DeleteBefore removes all records with a log date before the cutoff date
func (s *recordStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM session_records WHERE log_date < ?",
		cutoff.Format(dateLayout))
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	return int(deleted), err
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*storage.SessionRecord, error) {
	var rec storage.SessionRecord
	var remark, timeIn, logDate, createdAt string

	if err := row.Scan(&rec.ID, &rec.Area, &rec.Duration, &rec.DurationSeconds,
		&timeIn, &rec.Shift, &remark, &rec.ZoneNumber, &logDate, &createdAt); err != nil {
		return nil, err
	}

	var err error
	rec.Remark = storage.Remark(remark)
	if rec.TimeIn, err = time.Parse(time.RFC3339Nano, timeIn); err != nil {
		return nil, fmt.Errorf("failed to parse time_in: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.LogDate, err = time.ParseInLocation(dateLayout, logDate, rec.TimeIn.Location()); err != nil {
		return nil, fmt.Errorf("failed to parse log_date: %w", err)
	}
	return &rec, nil
}
