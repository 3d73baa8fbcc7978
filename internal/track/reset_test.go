package track

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/takelwerk/dipwatch/internal/clock"
	"github.com/takelwerk/dipwatch/internal/config"
	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/storage"
	"github.com/takelwerk/dipwatch/internal/storage/sqlite"
)

func openTestStore(t *testing.T) storage.Store {
	t.Helper()

	st, err := sqlite.Open(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "dipwatch-test.db")})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return st
}

func TestNewResetScheduler_RejectsBadTime(t *testing.T) {
	clk := &clock.TestClock{CurrentTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)}
	_, err := NewResetScheduler(nil, nil, "25:99", 0, clk, testLogger())
	if err == nil {
		t.Error("NewResetScheduler() accepted invalid reset time")
	}
}

func TestCalculateNextReset(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		resetTime string
		want      time.Time
	}{
		{
			"midnight reset from midday",
			time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			"00:00",
			time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			"exactly at reset time",
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			"00:00",
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			"evening reset still ahead",
			time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			"23:30",
			time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC),
		},
		{
			"evening reset already passed",
			time.Date(2026, 3, 10, 23, 40, 0, 0, time.UTC),
			"23:30",
			time.Date(2026, 3, 11, 23, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := &clock.TestClock{CurrentTime: tt.now}
			rs, err := NewResetScheduler(nil, nil, tt.resetTime, 0, clk, testLogger())
			if err != nil {
				t.Fatalf("NewResetScheduler() error = %v", err)
			}
			if got := rs.calculateNextReset(); !got.Equal(tt.want) {
				t.Errorf("calculateNextReset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPerformReset_ResetsLineAndPrunes(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)

	sink := &captureSink{}
	line := newTestLine(sink, start)

	// Accumulate a finished run.
	for s := 0; s <= 4; s++ {
		line.Update(start.Add(time.Duration(s)*time.Second), []detect.Detection{det(50, 50, 0, 0.9)})
	}
	line.Update(start.Add(6*time.Second), nil)

	store := openTestStore(t)
	defer store.Close()

	ctx := context.Background()
	oldRec := storage.SessionRecord{
		ID:              storage.NewRecordID(),
		Area:            "Lacquering",
		Duration:        "00:10:00",
		DurationSeconds: 600,
		TimeIn:          now.AddDate(0, 0, -120),
		Shift:           "Shift_1",
		Remark:          storage.RemarkInUse,
		ZoneNumber:      1,
		LogDate:         now.AddDate(0, 0, -120),
		CreatedAt:       now.AddDate(0, 0, -120),
	}
	freshRec := oldRec
	freshRec.ID = storage.NewRecordID()
	freshRec.TimeIn = now.AddDate(0, 0, -1)
	freshRec.LogDate = now.AddDate(0, 0, -1)
	freshRec.CreatedAt = now.AddDate(0, 0, -1)

	for _, rec := range []storage.SessionRecord{oldRec, freshRec} {
		if err := store.Records().Insert(ctx, rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	clk := &clock.TestClock{CurrentTime: now}
	rs, err := NewResetScheduler(line, store, "00:00", 90*24*time.Hour, clk, testLogger())
	if err != nil {
		t.Fatalf("NewResetScheduler() error = %v", err)
	}

	rs.performReset()

	snap := line.Snapshot(now)
	for _, zs := range snap.Zones {
		if zs.DailySeconds != 0 {
			t.Errorf("zone %d DailySeconds after reset = %d, want 0", zs.Number, zs.DailySeconds)
		}
	}

	if _, err := store.Records().Get(ctx, oldRec.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(old) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Records().Get(ctx, freshRec.ID); err != nil {
		t.Errorf("Get(fresh) error = %v, want record retained", err)
	}
}

func TestPerformReset_WithoutStore(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	line := newTestLine(sink, now.Add(-time.Hour))

	clk := &clock.TestClock{CurrentTime: now}
	rs, err := NewResetScheduler(line, nil, "00:00", 90*24*time.Hour, clk, testLogger())
	if err != nil {
		t.Fatalf("NewResetScheduler() error = %v", err)
	}

	rs.performReset()
}

func TestResetScheduler_StartStop(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sink := &captureSink{}
	line := newTestLine(sink, now)

	clk := &clock.TestClock{CurrentTime: now}
	rs, err := NewResetScheduler(line, nil, "00:00", 0, clk, testLogger())
	if err != nil {
		t.Fatalf("NewResetScheduler() error = %v", err)
	}

	rs.Start()
	rs.Stop()
}
