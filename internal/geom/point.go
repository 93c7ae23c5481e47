// Package geom provides the screen-space and world-space primitives shared by the
// detectors, the depth estimator and the collision detector.
package geom

import "math"

// Point2 is a point in pixel space. X grows to the right, Y grows downward.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between two screen points.
func (p Point2) Dist(q Point2) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Scale multiplies both coordinates independently.
func (p Point2) Scale(sx, sy float64) Point2 {
	return Point2{X: p.X * sx, Y: p.Y * sy}
}
