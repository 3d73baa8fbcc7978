// Package detect defines the frame and detection types exchanged with the
// video and inference collaborators. The engine consumes detections as a
// black box: where they come from and how the model runs is outside this
// repository.
package detect

import (
	"context"
	"time"

	"github.com/takelwerk/dipwatch/internal/geom"
)

// Box is a detection bounding box in frame pixel coordinates.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Center returns the center point of the box, the position used for all
// zone containment tests.
func (b Box) Center() geom.Point {
	return geom.Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Detection is one detected object in one frame.
type Detection struct {
	Box        Box
	ClassID    int
	Confidence float64
}

// Frame is one video frame handed through the pipeline. The pixel payload
// is opaque to the engine; only the capture timestamp drives tracking.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Data       []byte
	Width      int
	Height     int
}

// Source produces frames, typically from a camera stream. Implementations
// own their reconnection behavior; Next blocks until a frame is available,
// the source is exhausted (io.EOF), or ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Detector runs inference on a frame and returns zero or more detections.
// An empty result means nothing was detected and is not an error.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}
