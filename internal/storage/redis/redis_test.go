package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/takelwerk/dipwatch/internal/config"
	"github.com/takelwerk/dipwatch/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so we use it directly
	cfg := config.RedisConfig{
		Host:         mr.Addr(), // Full address "host:port"
		Port:         0,         // Not used when host contains port
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func testRecord(id string, zone int, remark storage.Remark, timeIn time.Time, seconds int) storage.SessionRecord {
	createdAt := timeIn.Add(time.Duration(seconds) * time.Second)
	return storage.SessionRecord{
		ID:              id,
		Area:            "bak_alkali",
		Duration:        "00:00:05",
		DurationSeconds: seconds,
		TimeIn:          timeIn,
		Shift:           "Shift_1",
		Remark:          remark,
		ZoneNumber:      zone,
		LogDate:         time.Date(timeIn.Year(), timeIn.Month(), timeIn.Day(), 0, 0, 0, 0, timeIn.Location()),
		CreatedAt:       createdAt,
	}
}

func TestRecordStore_InsertAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	records := store.Records()

	timeIn := time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)
	rec := testRecord("rec-1", 1, storage.RemarkInUse, timeIn, 5)

	if err := records.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := records.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Area != rec.Area {
		t.Errorf("Area = %q, want %q", got.Area, rec.Area)
	}
	if got.DurationSeconds != rec.DurationSeconds {
		t.Errorf("DurationSeconds = %d, want %d", got.DurationSeconds, rec.DurationSeconds)
	}
	if got.Remark != storage.RemarkInUse {
		t.Errorf("Remark = %q, want %q", got.Remark, storage.RemarkInUse)
	}
	if got.ZoneNumber != 1 {
		t.Errorf("ZoneNumber = %d, want 1", got.ZoneNumber)
	}
	if !got.TimeIn.Equal(rec.TimeIn) {
		t.Errorf("TimeIn = %v, want %v", got.TimeIn, rec.TimeIn)
	}
	if !got.LogDate.Equal(rec.LogDate) {
		t.Errorf("LogDate = %v, want %v", got.LogDate, rec.LogDate)
	}
}

func TestRecordStore_GetMissing(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	_, err := store.Records().Get(context.Background(), "no-such-record")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get of missing record = %v, want ErrNotFound", err)
	}
}

func TestRecordStore_ListByLogDate(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	records := store.Records()

	day1 := time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)
	day2 := time.Date(2025, 3, 13, 10, 0, 0, 0, time.Local)

	for _, rec := range []storage.SessionRecord{
		testRecord("rec-1", 1, storage.RemarkInUse, day1, 5),
		testRecord("rec-2", 2, storage.RemarkInUse, day1.Add(time.Hour), 10),
		testRecord("rec-3", 1, storage.RemarkInUse, day2, 7),
	} {
		if err := records.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) failed: %v", rec.ID, err)
		}
	}

	got, err := records.ListByLogDate(ctx, day1)
	if err != nil {
		t.Fatalf("ListByLogDate failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListByLogDate returned %d records, want 2", len(got))
	}

	empty, err := records.ListByLogDate(ctx, day1.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("ListByLogDate for empty day failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByLogDate for empty day returned %d records, want 0", len(empty))
	}
}

func TestRecordStore_DailyTotals(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	records := store.Records()

	day := time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)

	for _, rec := range []storage.SessionRecord{
		testRecord("rec-1", 1, storage.RemarkInUse, day, 5),
		testRecord("rec-2", 1, storage.RemarkInUse, day.Add(time.Hour), 10),
		testRecord("rec-3", 0, storage.RemarkFreetime, day.Add(2*time.Hour), 30),
	} {
		if err := records.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) failed: %v", rec.ID, err)
		}
	}

	totals, err := records.DailyTotals(ctx, day)
	if err != nil {
		t.Fatalf("DailyTotals failed: %v", err)
	}

	if totals[1] != 15 {
		t.Errorf("totals[1] = %d, want 15", totals[1])
	}
	if totals[0] != 30 {
		t.Errorf("totals[0] = %d, want 30", totals[0])
	}
}

func TestRecordStore_DeleteBefore(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	records := store.Records()

	oldDay := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)
	newDay := time.Date(2025, 3, 12, 10, 0, 0, 0, time.Local)

	for _, rec := range []storage.SessionRecord{
		testRecord("old-1", 1, storage.RemarkInUse, oldDay, 5),
		testRecord("old-2", 2, storage.RemarkInUse, oldDay.Add(time.Hour), 5),
		testRecord("new-1", 1, storage.RemarkInUse, newDay, 5),
	} {
		if err := records.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) failed: %v", rec.ID, err)
		}
	}

	deleted, err := records.DeleteBefore(ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteBefore deleted %d records, want 2", deleted)
	}

	if _, err := records.Get(ctx, "old-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("old record should be gone, got err %v", err)
	}
	if _, err := records.Get(ctx, "new-1"); err != nil {
		t.Errorf("recent record should survive, got err %v", err)
	}

	remaining, err := records.ListByLogDate(ctx, oldDay)
	if err != nil {
		t.Fatalf("ListByLogDate after delete failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("old day still lists %d records, want 0", len(remaining))
	}
}
