// Package geo provides planar geometry over latitude/longitude pairs.
//
// Distances are plain Euclidean distances in degree space. This is a
// deliberate approximation: it is only used to rank facilities against each
// other, never to report physical distances.
package geo

import "math"

// Point is a coordinate pair. X carries latitude, Y carries longitude.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the planar distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Sub returns a - b.
func Sub(a, b Point) Point {
	return Point{X: a.X - b.X, Y: a.Y - b.Y}
}

// Add returns a + b.
func Add(a, b Point) Point {
	return Point{X: a.X + b.X, Y: a.Y + b.Y}
}

// Scale returns p multiplied by s.
func Scale(p Point, s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Norm returns the length of p.
func Norm(p Point) float64 {
	return math.Hypot(p.X, p.Y)
}

// Direction returns the unit vector pointing from `from` to `to`.
// ok is false when the points coincide and no direction exists.
func Direction(from, to Point) (unit Point, ok bool) {
	d := Sub(to, from)
	n := Norm(d)
	if n == 0 {
		return Point{}, false
	}
	return Scale(d, 1/n), true
}
