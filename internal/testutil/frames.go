// Package testutil builds synthetic camera frames for detector and pipeline tests.
package testutil

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Common fixture colors.
var (
	Black      = color.NRGBA{A: 255}
	White      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Gray       = color.NRGBA{R: 96, G: 96, B: 96, A: 255}
	Shuttle    = color.NRGBA{R: 230, G: 240, B: 40, A: 255} // saturated yellow-green
	CourtGreen = color.NRGBA{R: 20, G: 110, B: 60, A: 255}
)

// SolidFrame returns a w x h frame filled with c.
func SolidFrame(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

// WithBlock returns a copy of base with an n x n square of c whose top-left
// corner is (x, y). Pixels outside base are clipped.
func WithBlock(base *image.NRGBA, x, y, n int, c color.NRGBA) *image.NRGBA {
	return WithRect(base, x, y, n, n, c)
}

// WithRect returns a copy of base with a w x h rectangle of c at (x, y).
func WithRect(base *image.NRGBA, x, y, w, h int, c color.NRGBA) *image.NRGBA {
	out := imaging.Clone(base)
	r := image.Rect(x, y, x+w, y+h).Intersect(out.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			out.SetNRGBA(px, py, c)
		}
	}
	return out
}

// WithDisk returns a copy of base with a filled disk of c centred on (cx, cy).
func WithDisk(base *image.NRGBA, cx, cy, radius int, c color.NRGBA) *image.NRGBA {
	out := imaging.Clone(base)
	r2 := radius * radius
	for py := cy - radius; py <= cy+radius; py++ {
		for px := cx - radius; px <= cx+radius; px++ {
			dx, dy := px-cx, py-cy
			if dx*dx+dy*dy > r2 || !image.Pt(px, py).In(out.Bounds()) {
				continue
			}
			out.SetNRGBA(px, py, c)
		}
	}
	return out
}

// Sequence returns frames of a block of size n moving from (x0, y) by dx per
// frame over a solid background, starting with an empty background frame.
func Sequence(w, h, n, x0, y, dx, count int, bg, fg color.NRGBA) []*image.NRGBA {
	base := SolidFrame(w, h, bg)
	frames := []*image.NRGBA{base}
	for i := 0; i < count; i++ {
		frames = append(frames, WithBlock(base, x0+i*dx, y, n, fg))
	}
	return frames
}
