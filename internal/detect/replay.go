package detect

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Replay feeds the pipeline from a recorded detection log instead of a
// live camera and model. It implements both Source and Detector: Next
// paces frames by their recorded offsets, Detect returns the detections
// recorded for the frame. Useful for soak tests and demos.
//
// The log is JSON lines, one frame per line:
//
//	{"offset_ms": 1500, "detections": [{"box": [120,220,180,300], "class_id": 0, "confidence": 0.91}]}
type Replay struct {
	entries []replayEntry
	loop    bool

	// Producer-side state. Next is not safe for concurrent use; the
	// pipeline has a single producer.
	seq   uint64
	base  time.Time
	index int
}

type replayEntry struct {
	offset     time.Duration
	detections []Detection
}

type replayLine struct {
	OffsetMS   int64             `json:"offset_ms"`
	Detections []replayDetection `json:"detections"`
}

type replayDetection struct {
	Box        [4]float64 `json:"box"`
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
}

// NewReplay loads a detection log from path. With loop set the log
// repeats from the start once exhausted; otherwise Next returns io.EOF.
func NewReplay(path string, loop bool) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()

	var entries []replayEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line replayLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("replay log line %d: %w", lineNo, err)
		}
		entry := replayEntry{offset: time.Duration(line.OffsetMS) * time.Millisecond}
		for _, d := range line.Detections {
			entry.detections = append(entry.detections, Detection{
				Box:        Box{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
				ClassID:    d.ClassID,
				Confidence: d.Confidence,
			})
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay log: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("replay log %s contains no frames", path)
	}

	return &Replay{entries: entries, loop: loop}, nil
}

// Next returns the next recorded frame, sleeping until the frame's
// recorded offset is due relative to the first call.
func (r *Replay) Next(ctx context.Context) (Frame, error) {
	if r.index >= len(r.entries) {
		if !r.loop {
			return Frame{}, io.EOF
		}
		r.index = 0
		r.base = time.Time{}
	}

	entry := r.entries[r.index]
	if r.base.IsZero() {
		r.base = time.Now()
	}
	due := r.base.Add(entry.offset)

	if wait := time.Until(due); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	frame := Frame{Seq: r.seq, CapturedAt: due}
	r.seq++
	r.index++
	return frame, nil
}

// Detect returns the detections recorded for the frame's sequence number.
func (r *Replay) Detect(_ context.Context, frame Frame) ([]Detection, error) {
	entry := r.entries[int(frame.Seq)%len(r.entries)]
	return entry.detections, nil
}
