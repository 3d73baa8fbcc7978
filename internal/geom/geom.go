// Package geom provides the planar geometry used to test detection
// positions against configured station regions. Coordinates are pixel
// positions in the analyzed frame.
package geom

// Point represents a 2D pixel position.
type Point struct {
	X float64
	Y float64
}

// Region is any area of the frame that can be tested for containment.
// Containment is inclusive: a point on the region boundary is inside.
type Region interface {
	Contains(p Point) bool
}

// Rect is an axis-aligned rectangle given by two corner points.
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Contains reports whether p lies within the rectangle, bounds inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// Polygon is a closed polygon given by its vertices in order. The closing
// edge from the last vertex back to the first is implicit.
type Polygon []Point

// Contains reports whether p lies inside the polygon using ray casting,
// with points on an edge or vertex counting as inside.
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}

	inside := false
	j := len(poly) - 1

	for i := 0; i < len(poly); i++ {
		if onSegment(p, poly[i], poly[j]) {
			return true
		}
		if ((poly[i].Y > p.Y) != (poly[j].Y > p.Y)) &&
			(p.X < (poly[j].X-poly[i].X)*(p.Y-poly[i].Y)/(poly[j].Y-poly[i].Y)+poly[i].X) {
			inside = !inside
		}
		j = i
	}

	return inside
}

const segmentEpsilon = 1e-9

// onSegment reports whether p lies on the segment from a to b.
func onSegment(p, a, b Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross > segmentEpsilon || cross < -segmentEpsilon {
		return false
	}
	if p.X < min(a.X, b.X)-segmentEpsilon || p.X > max(a.X, b.X)+segmentEpsilon {
		return false
	}
	if p.Y < min(a.Y, b.Y)-segmentEpsilon || p.Y > max(a.Y, b.Y)+segmentEpsilon {
		return false
	}
	return true
}
