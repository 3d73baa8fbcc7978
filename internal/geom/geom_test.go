package geom

import "testing"

func TestRectContains(t *testing.T) {
	r := Rect{X1: 100, Y1: 200, X2: 400, Y2: 500}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{250, 350}, true},
		{"top-left corner", Point{100, 200}, true},
		{"bottom-right corner", Point{400, 500}, true},
		{"on left edge", Point{100, 300}, true},
		{"on bottom edge", Point{250, 500}, true},
		{"left of rect", Point{99.9, 300}, false},
		{"right of rect", Point{400.1, 300}, false},
		{"above rect", Point{250, 199.9}, false},
		{"below rect", Point{250, 500.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Rect.Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPolygonContains(t *testing.T) {
	// Unit-ish square, vertices in order.
	square := Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{5, 5}, true},
		{"on vertex", Point{0, 0}, true},
		{"on horizontal edge", Point{5, 0}, true},
		{"on vertical edge", Point{10, 5}, true},
		{"outside left", Point{-1, 5}, false},
		{"outside right", Point{11, 5}, false},
		{"outside diagonal", Point{10.5, 10.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := square.Contains(tt.p); got != tt.want {
				t.Errorf("Polygon.Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPolygonContainsConcave(t *testing.T) {
	// L-shaped region: the notch at the top right is outside.
	l := Polygon{{0, 0}, {10, 0}, {10, 5}, {5, 5}, {5, 10}, {0, 10}}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"lower arm", Point{8, 2}, true},
		{"upper arm", Point{2, 8}, true},
		{"inside corner", Point{4, 4}, true},
		{"in the notch", Point{8, 8}, false},
		{"notch boundary", Point{5, 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Contains(tt.p); got != tt.want {
				t.Errorf("Polygon.Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPolygonDegenerate(t *testing.T) {
	if (Polygon{}).Contains(Point{1, 1}) {
		t.Error("empty polygon should contain nothing")
	}
	if (Polygon{{0, 0}, {10, 10}}).Contains(Point{5, 5}) {
		t.Error("two-vertex polygon should contain nothing")
	}
}
