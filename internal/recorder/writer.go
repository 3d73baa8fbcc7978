// Package recorder moves session records from the frame path to storage.
// The tracking engine enqueues records synchronously under its lock, so
// everything here is built around one rule: intake never blocks.
package recorder

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/storage"
)

const (
	// lastRecordTTL bounds how long the status API shows a counter's
	// last record after the counter goes quiet.
	lastRecordTTL = 24 * time.Hour

	drainTimeout = 10 * time.Second

	lastRecordCacheSize = 16
)

// Writer owns the bounded record queue and the single goroutine that
// writes to storage. A full queue drops the record: persistence failures
// are reported, never retried, and never stall the tracking engine.
type Writer struct {
	store        storage.Store
	queue        chan storage.SessionRecord
	writeTimeout time.Duration
	last         *expirable.LRU[string, storage.SessionRecord]
	logger       zerolog.Logger
	done         chan struct{}
}

// NewWriter creates a record writer. store may be nil, in which case
// records are logged and discarded (log-only mode).
func NewWriter(store storage.Store, queueSize int, writeTimeout time.Duration, logger zerolog.Logger) *Writer {
	return &Writer{
		store:        store,
		queue:        make(chan storage.SessionRecord, queueSize),
		writeTimeout: writeTimeout,
		last:         expirable.NewLRU[string, storage.SessionRecord](lastRecordCacheSize, nil, lastRecordTTL),
		logger:       logger.With().Str("component", "recorder").Logger(),
		done:         make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (w *Writer) Start() {
	go w.run()

	if w.store == nil {
		w.logger.Warn().Msg("No store configured, records will be logged only")
		return
	}
	w.logger.Info().
		Int("queue_size", cap(w.queue)).
		Dur("write_timeout", w.writeTimeout).
		Msg("Record writer started")
}

// Enqueue hands a record to the writer without blocking. When the queue
// is full the record is dropped and counted; the caller holds the
// tracking lock and must not wait on storage.
func (w *Writer) Enqueue(rec storage.SessionRecord) {
	w.last.Add(counterKey(rec), rec)

	select {
	case w.queue <- rec:
		metrics.RecorderQueueDepth.Set(float64(len(w.queue)))
	default:
		metrics.RecorderDropped.Inc()
		w.logger.Error().
			Str("record_id", rec.ID).
			Int("queue_size", cap(w.queue)).
			Msg("Record queue full, dropping record")
	}
}

// Recent returns the last record seen per counter, newest first.
func (w *Writer) Recent() []storage.SessionRecord {
	recs := w.last.Values()
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}

// Stop closes intake and waits for queued records to land. Callers stop
// the tracking engine first so no Enqueue can race the close.
func (w *Writer) Stop() {
	close(w.queue)
	select {
	case <-w.done:
		w.logger.Info().Msg("Record writer stopped")
	case <-time.After(drainTimeout):
		w.logger.Warn().
			Int("pending", len(w.queue)).
			Msg("Record writer drain timed out")
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for rec := range w.queue {
		metrics.RecorderQueueDepth.Set(float64(len(w.queue)))
		w.write(rec)
	}
}

func (w *Writer) write(rec storage.SessionRecord) {
	if w.store == nil {
		w.logger.Info().
			Str("area", rec.Area).
			Int("zone_number", rec.ZoneNumber).
			Str("remark", string(rec.Remark)).
			Str("duration", rec.Duration).
			Str("shift", rec.Shift).
			Msg("Session record (log-only)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.store.Records().Insert(ctx, rec); err != nil {
		metrics.RecorderWriteFailures.Inc()
		w.logger.Error().
			Err(err).
			Str("record_id", rec.ID).
			Int("zone_number", rec.ZoneNumber).
			Str("remark", string(rec.Remark)).
			Msg("Failed to persist session record")
		return
	}

	w.logger.Debug().
		Str("record_id", rec.ID).
		Int("zone_number", rec.ZoneNumber).
		Str("remark", string(rec.Remark)).
		Str("duration", rec.Duration).
		Msg("Session record persisted")
}

func counterKey(rec storage.SessionRecord) string {
	return strconv.Itoa(rec.ZoneNumber)
}
