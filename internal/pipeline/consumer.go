package pipeline

import (
	"context"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/metrics"
	"github.com/takelwerk/dipwatch/internal/track"
)

const fpsInterval = 5 * time.Second

// Consumer pops frames, runs detection, and feeds the tracking engine.
// Frames carry their capture timestamp, so tracking stays correct even
// when the queue introduces lag.
type Consumer struct {
	queue      *Queue
	detector   detect.Detector
	line       *track.Line
	watchdog   *Watchdog
	popTimeout time.Duration

	fpsBits atomic.Uint64

	logger zerolog.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(queue *Queue, detector detect.Detector, line *track.Line, watchdog *Watchdog, popTimeout time.Duration, logger zerolog.Logger) *Consumer {
	return &Consumer{
		queue:      queue,
		detector:   detector,
		line:       line,
		watchdog:   watchdog,
		popTimeout: popTimeout,
		logger:     logger.With().Str("component", "consumer").Logger(),
	}
}

// FPS returns the most recent processing rate.
func (c *Consumer) FPS() float64 {
	return math.Float64frombits(c.fpsBits.Load())
}

// Run processes frames until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info().
		Dur("pop_timeout", c.popTimeout).
		Msg("Frame consumer started")

	processed := 0
	windowStart := time.Now()

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("Frame consumer stopped")
			return
		}

		frame, ok := c.queue.Pop(ctx, c.popTimeout)
		if !ok {
			if ctx.Err() != nil {
				c.logger.Info().Msg("Frame consumer stopped")
				return
			}
			c.logger.Warn().
				Dur("timeout", c.popTimeout).
				Msg("No frames received")
			continue
		}

		started := time.Now()
		dets, err := c.detector.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("Frame consumer stopped")
				return
			}
			c.logger.Error().
				Err(err).
				Uint64("frame_seq", frame.Seq).
				Msg("Detection failed")
			continue
		}

		for _, det := range dets {
			metrics.DetectionsTotal.WithLabelValues(strconv.Itoa(det.ClassID)).Inc()
		}

		c.line.Update(frame.CapturedAt, dets)
		c.watchdog.Touch()

		metrics.FramesProcessed.Inc()
		metrics.FrameProcessingDuration.Observe(time.Since(started).Seconds())
		if c.line.InUse() {
			metrics.InUse.Set(1)
		} else {
			metrics.InUse.Set(0)
		}

		processed++
		if elapsed := time.Since(windowStart); elapsed >= fpsInterval {
			fps := float64(processed) / elapsed.Seconds()
			metrics.ProcessingFPS.Set(fps)
			c.fpsBits.Store(math.Float64bits(fps))
			processed = 0
			windowStart = time.Now()
		}
	}
}
