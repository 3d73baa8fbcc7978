// Package pipeline connects the frame source to the tracking engine: a
// bounded queue between a producer and a consumer goroutine, watched by a
// stall detector. The producer must never block on a slow consumer; when
// the queue fills, the oldest half is sacrificed to keep tracking close
// to live.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/metrics"
)

// Queue is the bounded frame buffer between producer and consumer.
type Queue struct {
	frames chan detect.Frame
	logger zerolog.Logger
}

// NewQueue creates a queue holding up to capacity frames.
func NewQueue(capacity int, logger zerolog.Logger) *Queue {
	return &Queue{
		frames: make(chan detect.Frame, capacity),
		logger: logger.With().Str("component", "queue").Logger(),
	}
}

// Push enqueues a frame without ever blocking. On overflow the oldest
// half of the queue is dropped to make room, so the consumer resumes
// near the live edge instead of working through a stale backlog.
func (q *Queue) Push(frame detect.Frame) {
	select {
	case q.frames <- frame:
		metrics.QueueDepth.Set(float64(len(q.frames)))
		return
	default:
	}

	dropped := 0
	for i := 0; i < cap(q.frames)/2; i++ {
		select {
		case <-q.frames:
			dropped++
		default:
		}
	}
	metrics.FramesDropped.WithLabelValues("queue_overflow").Add(float64(dropped))
	q.logger.Warn().
		Int("dropped", dropped).
		Int("capacity", cap(q.frames)).
		Msg("Frame queue overflow, dropped oldest frames")

	select {
	case q.frames <- frame:
	default:
		// Only possible if another producer raced us for the space.
		metrics.FramesDropped.WithLabelValues("queue_overflow").Inc()
	}
	metrics.QueueDepth.Set(float64(len(q.frames)))
}

// Pop dequeues the next frame, waiting up to timeout. The second return
// is false on timeout or context cancellation.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (detect.Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-q.frames:
		metrics.QueueDepth.Set(float64(len(q.frames)))
		return frame, true
	case <-timer.C:
		return detect.Frame{}, false
	case <-ctx.Done():
		return detect.Frame{}, false
	}
}

// Len returns the number of frames currently queued.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Drain discards all queued frames and returns how many were dropped.
// Used by the watchdog's stall recovery.
func (q *Queue) Drain() int {
	dropped := 0
	for {
		select {
		case <-q.frames:
			dropped++
		default:
			metrics.QueueDepth.Set(0)
			return dropped
		}
	}
}
