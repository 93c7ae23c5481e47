package geom

import "math"

// BoundingBox is an axis-aligned rectangle in pixel space.
// Min is inclusive, Max is exclusive.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// BoxAround returns a box of the given size centred on c.
func BoxAround(c Point2, w, h float64) BoundingBox {
	return BoundingBox{
		MinX: c.X - w/2,
		MinY: c.Y - h/2,
		MaxX: c.X + w/2,
		MaxY: c.Y + h/2,
	}
}

// Width returns the horizontal extent, never negative.
func (b BoundingBox) Width() float64 {
	return math.Max(0, b.MaxX-b.MinX)
}

// Height returns the vertical extent, never negative.
func (b BoundingBox) Height() float64 {
	return math.Max(0, b.MaxY-b.MinY)
}

// Area returns Width * Height.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the centre point of the box.
func (b BoundingBox) Center() Point2 {
	return Point2{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// EquivalentDiameter is the mean of width and height, the diameter of a round
// blob that would produce this box.
func (b BoundingBox) EquivalentDiameter() float64 {
	return (b.Width() + b.Height()) / 2
}

// AspectRatio returns the short side divided by the long side: 1.0 for a
// square box, approaching 0 for a thin smear. Empty boxes return 0.
func (b BoundingBox) AspectRatio() float64 {
	w, h := b.Width(), b.Height()
	long := math.Max(w, h)
	if long == 0 {
		return 0
	}
	return math.Min(w, h) / long
}

// Scale maps the box into another pixel space.
func (b BoundingBox) Scale(sx, sy float64) BoundingBox {
	return BoundingBox{MinX: b.MinX * sx, MinY: b.MinY * sy, MaxX: b.MaxX * sx, MaxY: b.MaxY * sy}
}

// IoU calculates the intersection over union with another box.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	x1 := math.Max(b.MinX, other.MinX)
	y1 := math.Max(b.MinY, other.MinY)
	x2 := math.Min(b.MaxX, other.MaxX)
	y2 := math.Min(b.MaxY, other.MaxY)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := b.Area() + other.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
