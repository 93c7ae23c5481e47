package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the tolerance used for parallel and zero-length checks.
const Epsilon = 1e-9

// ErrInvalidPlane is returned when a plane region cannot describe a finite patch.
var ErrInvalidPlane = errors.New("invalid plane region")

// Ray is a half-line starting at Origin. Dir need not be unit length.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// At returns the point Origin + Dir*t.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// Plane is an infinite plane through Point with the given Normal.
type Plane struct {
	Point  r3.Vec `json:"point"`
	Normal r3.Vec `json:"normal"`
}

// Normalized returns the plane with a unit normal. A zero normal yields
// ErrInvalidPlane.
func (pl Plane) Normalized() (Plane, error) {
	n, ok := Unit(pl.Normal)
	if !ok {
		return Plane{}, ErrInvalidPlane
	}
	return Plane{Point: pl.Point, Normal: n}, nil
}

// SignedDistance returns the distance from p to the plane, positive on the
// side the normal points to. Normal is assumed to be unit length.
func (pl Plane) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, pl.Point), pl.Normal)
}

// IntersectRay returns the ray parameter where r meets the plane. ok is false
// when the ray is parallel to the plane or the hit lies behind the origin.
func (pl Plane) IntersectRay(r Ray) (t float64, ok bool) {
	denom := r3.Dot(r.Dir, pl.Normal)
	if math.Abs(denom) < Epsilon {
		return 0, false
	}
	t = r3.Dot(r3.Sub(pl.Point, r.Origin), pl.Normal) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Unit returns v scaled to length one, or ok=false for a (near) zero vector.
func Unit(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n < Epsilon {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// PlaneRegion is a finite rectangular patch of a plane: the net's physical
// extent. Width runs along Normal x Up, Height along Up.
type PlaneRegion struct {
	Origin r3.Vec  `json:"origin"`
	Normal r3.Vec  `json:"normal"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Up     r3.Vec  `json:"up"`
}

// Plane returns the infinite plane containing the region.
func (pr PlaneRegion) Plane() Plane {
	n, _ := Unit(pr.Normal)
	return Plane{Point: pr.Origin, Normal: n}
}

// RegionFrame is the orthonormal frame cached for a validated PlaneRegion.
type RegionFrame struct {
	Origin     r3.Vec
	Normal     r3.Vec
	Right      r3.Vec
	Up         r3.Vec
	HalfWidth  float64
	HalfHeight float64
}

// Frame validates the region and builds its local frame. The up axis is made
// orthogonal to the normal, so callers may pass a roughly vertical vector.
func (pr PlaneRegion) Frame() (RegionFrame, error) {
	if pr.Width <= 0 || pr.Height <= 0 {
		return RegionFrame{}, ErrInvalidPlane
	}
	n, ok := Unit(pr.Normal)
	if !ok {
		return RegionFrame{}, ErrInvalidPlane
	}
	upInPlane := r3.Sub(pr.Up, r3.Scale(r3.Dot(pr.Up, n), n))
	up, ok := Unit(upInPlane)
	if !ok {
		return RegionFrame{}, ErrInvalidPlane
	}
	return RegionFrame{
		Origin:     pr.Origin,
		Normal:     n,
		Right:      r3.Cross(up, n),
		Up:         up,
		HalfWidth:  pr.Width / 2,
		HalfHeight: pr.Height / 2,
	}, nil
}

// SignedDistance returns the distance of p along the frame normal.
func (f RegionFrame) SignedDistance(p r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, f.Origin), f.Normal)
}

// Local returns p's in-plane coordinates relative to the region centre.
func (f RegionFrame) Local(p r3.Vec) (u, v float64) {
	d := r3.Sub(p, f.Origin)
	return r3.Dot(d, f.Right), r3.Dot(d, f.Up)
}

// Contains reports whether p projects inside the rectangle grown by margin on
// every edge. The distance along the normal is not checked.
func (f RegionFrame) Contains(p r3.Vec, margin float64) bool {
	u, v := f.Local(p)
	return math.Abs(u) <= f.HalfWidth+margin && math.Abs(v) <= f.HalfHeight+margin
}

// Project drops p onto the plane along the normal.
func (f RegionFrame) Project(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(f.SignedDistance(p), f.Normal))
}
