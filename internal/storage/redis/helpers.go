package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/takelwerk/dipwatch/internal/storage"
)

// parseSessionRecord converts a Redis hash to a SessionRecord
func parseSessionRecord(data map[string]string) (*storage.SessionRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	timeIn, err := time.Parse(time.RFC3339Nano, data["time_in"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse time_in: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	logDate, err := time.ParseInLocation(dateLayout, data["log_date"], timeIn.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to parse log_date: %w", err)
	}

	durationSeconds, err := strconv.Atoi(data["duration_seconds"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_seconds: %w", err)
	}

	zoneNumber, err := strconv.Atoi(data["zone_number"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse zone_number: %w", err)
	}

	return &storage.SessionRecord{
		ID:              data["id"],
		Area:            data["area"],
		Duration:        data["duration"],
		DurationSeconds: durationSeconds,
		TimeIn:          timeIn,
		Shift:           data["shift"],
		Remark:          storage.Remark(data["remark"]),
		ZoneNumber:      zoneNumber,
		LogDate:         logDate,
		CreatedAt:       createdAt,
	}, nil
}
