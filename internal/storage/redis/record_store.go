package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/takelwerk/dipwatch/internal/storage"
)

const dateLayout = "2006-01-02"

type recordStore struct {
	client *redis.Client
}

// Insert atomically writes a record, its log-date index entry and its
// contribution to the daily totals.
func (s *recordStore) Insert(ctx context.Context, rec storage.SessionRecord) error {
	script := redis.NewScript(insertRecordScript)

	logDate := rec.LogDate.Format(dateLayout)
	recordKey := fmt.Sprintf("dipwatch:record:%s", rec.ID)
	dateIndex := fmt.Sprintf("dipwatch:records:date:%s", logDate)
	totalsKey := fmt.Sprintf("dipwatch:totals:%s", logDate)

	keys := []string{recordKey, dateIndex, totalsKey}
	args := []interface{}{
		rec.ID,
		rec.Area,
		rec.Duration,
		rec.DurationSeconds,
		rec.TimeIn.Format(time.RFC3339Nano),
		rec.Shift,
		string(rec.Remark),
		rec.ZoneNumber,
		logDate,
		rec.CreatedAt.Format(time.RFC3339Nano),
	}

	return script.Run(ctx, s.client, keys, args...).Err()
}

// Get retrieves a record by ID
func (s *recordStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	recordKey := fmt.Sprintf("dipwatch:record:%s", id)

	data, err := s.client.HGetAll(ctx, recordKey).Result()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	return parseSessionRecord(data)
}

// ListByLogDate returns all records attributed to one business day
func (s *recordStore) ListByLogDate(ctx context.Context, logDate time.Time) ([]storage.SessionRecord, error) {
	dateIndex := fmt.Sprintf("dipwatch:records:date:%s", logDate.Format(dateLayout))

	recordIDs, err := s.client.SMembers(ctx, dateIndex).Result()
	if err != nil {
		return nil, err
	}

	if len(recordIDs) == 0 {
		return []storage.SessionRecord{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(recordIDs))

	for i, id := range recordIDs {
		recordKey := fmt.Sprintf("dipwatch:record:%s", id)
		cmds[i] = pipe.HGetAll(ctx, recordKey)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	records := make([]storage.SessionRecord, 0, len(recordIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		rec, err := parseSessionRecord(data)
		if err == nil {
			records = append(records, *rec)
		}
	}

	return records, nil
}

// DailyTotals returns summed duration_seconds per zone number for one
// business day.
func (s *recordStore) DailyTotals(ctx context.Context, logDate time.Time) (map[int]int64, error) {
	totalsKey := fmt.Sprintf("dipwatch:totals:%s", logDate.Format(dateLayout))

	data, err := s.client.HGetAll(ctx, totalsKey).Result()
	if err != nil {
		return nil, err
	}

	totals := make(map[int]int64, len(data))
	for field, value := range data {
		zone, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		totals[zone] = seconds
	}

	return totals, nil
}

// DeleteBefore removes all records with a log date before the cutoff date.
// Redis TTLs expire old keys on their own after 90 days; this exists for
// explicit retention shorter than that.
func (s *recordStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	var cursor uint64
	var deletedCount int

	for {
		var keys []string
		var err error
		keys, cursor, err = s.client.Scan(ctx, cursor, "dipwatch:records:date:*", 100).Result()
		if err != nil {
			return deletedCount, err
		}

		for _, indexKey := range keys {
			dateStr := strings.TrimPrefix(indexKey, "dipwatch:records:date:")
			date, err := time.ParseInLocation(dateLayout, dateStr, cutoff.Location())
			if err != nil {
				continue
			}
			if !date.Before(cutoffDate) {
				continue
			}

			recordIDs, err := s.client.SMembers(ctx, indexKey).Result()
			if err != nil {
				return deletedCount, err
			}

			if len(recordIDs) > 0 {
				recordKeys := make([]string, len(recordIDs))
				for i, id := range recordIDs {
					recordKeys[i] = fmt.Sprintf("dipwatch:record:%s", id)
				}
				deleted, err := s.client.Del(ctx, recordKeys...).Result()
				if err != nil {
					return deletedCount, err
				}
				deletedCount += int(deleted)
			}

			totalsKey := fmt.Sprintf("dipwatch:totals:%s", dateStr)
			if err := s.client.Del(ctx, indexKey, totalsKey).Err(); err != nil {
				return deletedCount, err
			}
		}

		if cursor == 0 {
			break
		}
	}

	return deletedCount, nil
}
