package redis

const (
	// insertRecordScript atomically writes a session record, adds it to its
	// log-date index and folds its seconds into the daily totals hash.
	insertRecordScript = `
local record_key = KEYS[1]     -- dipwatch:record:{recordID}
local date_index = KEYS[2]     -- dipwatch:records:date:{logDate}
local totals_key = KEYS[3]     -- dipwatch:totals:{logDate}

local record_id = ARGV[1]
local area = ARGV[2]
local duration = ARGV[3]
local duration_seconds = tonumber(ARGV[4])
local time_in = ARGV[5]
local shift = ARGV[6]
local remark = ARGV[7]
local zone_number = ARGV[8]
local log_date = ARGV[9]
local created_at = ARGV[10]

-- Set record fields
redis.call('HSET', record_key,
  'id', record_id,
  'area', area,
  'duration', duration,
  'duration_seconds', duration_seconds,
  'time_in', time_in,
  'shift', shift,
  'remark', remark,
  'zone_number', zone_number,
  'log_date', log_date,
  'created_at', created_at
)

-- Index by log date and fold into daily totals
redis.call('SADD', date_index, record_id)
redis.call('HINCRBY', totals_key, zone_number, duration_seconds)

-- Set TTL to 90 days (7776000 seconds)
redis.call('EXPIRE', record_key, 7776000)
redis.call('EXPIRE', date_index, 7776000)
redis.call('EXPIRE', totals_key, 7776000)

return 'OK'
`
)
