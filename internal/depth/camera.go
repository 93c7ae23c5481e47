// Package depth lifts screen-space detections into world space.
package depth

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

// ErrInvalidCamera is returned when a camera cannot project screen points.
var ErrInvalidCamera = errors.New("invalid camera")

// Camera is a pinhole camera pose plus intrinsics. Right, Up and Forward are
// world-space unit axes; pixel y grows downward, so it maps to -Up.
type Camera struct {
	Position r3.Vec  `json:"position"`
	Right    r3.Vec  `json:"right"`
	Up       r3.Vec  `json:"up"`
	Forward  r3.Vec  `json:"forward"`
	Fx       float64 `json:"fx"`
	Fy       float64 `json:"fy"`
	Cx       float64 `json:"cx"`
	Cy       float64 `json:"cy"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// NewCamera builds a camera at position looking along forward with a
// horizontal field of view in degrees. up only needs to be roughly vertical.
func NewCamera(position, forward, up r3.Vec, hfovDegrees float64, width, height int) (Camera, error) {
	if width <= 0 || height <= 0 || hfovDegrees <= 0 || hfovDegrees >= 180 {
		return Camera{}, ErrInvalidCamera
	}
	f, ok := geom.Unit(forward)
	if !ok {
		return Camera{}, ErrInvalidCamera
	}
	right, ok := geom.Unit(r3.Cross(f, up))
	if !ok {
		return Camera{}, ErrInvalidCamera
	}
	focal := float64(width) / 2 / math.Tan(hfovDegrees*math.Pi/360)
	return Camera{
		Position: position,
		Right:    right,
		Up:       r3.Cross(right, f),
		Forward:  f,
		Fx:       focal,
		Fy:       focal,
		Cx:       float64(width) / 2,
		Cy:       float64(height) / 2,
		Width:    width,
		Height:   height,
	}, nil
}

// Validate checks that the camera can project points.
func (c Camera) Validate() error {
	if c.Fx <= 0 || c.Fy <= 0 || c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidCamera
	}
	if r3.Norm(c.Forward) < geom.Epsilon || r3.Norm(c.Right) < geom.Epsilon || r3.Norm(c.Up) < geom.Epsilon {
		return ErrInvalidCamera
	}
	return nil
}

// Ray returns the world ray through screen point pt. Dir is unit length.
func (c Camera) Ray(pt geom.Point2) geom.Ray {
	x := (pt.X - c.Cx) / c.Fx
	y := (pt.Y - c.Cy) / c.Fy
	dir := r3.Add(c.Forward, r3.Sub(r3.Scale(x, c.Right), r3.Scale(y, c.Up)))
	unit, _ := geom.Unit(dir)
	return geom.Ray{Origin: c.Position, Dir: unit}
}

// Project maps a world point to screen space. ok is false for points behind
// the camera.
func (c Camera) Project(p r3.Vec) (geom.Point2, bool) {
	d := r3.Sub(p, c.Position)
	z := r3.Dot(d, c.Forward)
	if z <= geom.Epsilon {
		return geom.Point2{}, false
	}
	return geom.Point2{
		X: c.Cx + c.Fx*r3.Dot(d, c.Right)/z,
		Y: c.Cy - c.Fy*r3.Dot(d, c.Up)/z,
	}, true
}

// Scaled returns the camera with intrinsics rescaled for a frame resized by
// (sx, sy), as happens when frames are downsampled before detection.
func (c Camera) Scaled(sx, sy float64) Camera {
	c.Fx *= sx
	c.Fy *= sy
	c.Cx *= sx
	c.Cy *= sy
	c.Width = int(math.Round(float64(c.Width) * sx))
	c.Height = int(math.Round(float64(c.Height) * sy))
	return c
}
