package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/takelwerk/dipwatch/internal/detect"
	"github.com/takelwerk/dipwatch/internal/metrics"
)

const sourceErrorBackoff = 500 * time.Millisecond

// Producer pulls frames from the source and feeds the queue, sampling
// every Nth frame. Reconnection is the source's concern; the producer
// only backs off briefly when a read fails.
type Producer struct {
	source       detect.Source
	queue        *Queue
	watchdog     *Watchdog
	processEvery int
	logger       zerolog.Logger
}

// NewProducer creates a producer. processEvery=2 enqueues every second
// frame; values below 2 enqueue everything.
func NewProducer(source detect.Source, queue *Queue, watchdog *Watchdog, processEvery int, logger zerolog.Logger) *Producer {
	return &Producer{
		source:       source,
		queue:        queue,
		watchdog:     watchdog,
		processEvery: processEvery,
		logger:       logger.With().Str("component", "producer").Logger(),
	}
}

// Run pulls frames until the context is cancelled or the source is
// exhausted.
func (p *Producer) Run(ctx context.Context) {
	p.logger.Info().
		Int("process_every", p.processEvery).
		Msg("Frame producer started")

	var counter uint64
	for {
		frame, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				p.logger.Info().Msg("Frame producer stopped")
				return
			}
			if errors.Is(err, io.EOF) {
				p.logger.Info().Msg("Frame source exhausted")
				return
			}

			p.logger.Error().Err(err).Msg("Failed to read frame")
			select {
			case <-ctx.Done():
				return
			case <-time.After(sourceErrorBackoff):
			}
			continue
		}

		metrics.FramesReceived.Inc()
		p.watchdog.Touch()

		counter++
		if p.processEvery > 1 && counter%uint64(p.processEvery) != 0 {
			continue
		}
		p.queue.Push(frame)
	}
}
