package capture

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// MatToNRGBA converts a BGR or grayscale Mat into an NRGBA image the
// detectors can read directly.
func MatToNRGBA(mat gocv.Mat) (*image.NRGBA, error) {
	if mat.Empty() {
		return nil, ErrReadFailed
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return imaging.Clone(img), nil
}

// Downsample shrinks img to width pixels wide, keeping the aspect ratio,
// with a box filter. It returns a copy unchanged in size when width is not
// positive or not smaller than the image. The second value is the scale
// factor applied to both axes.
func Downsample(img image.Image, width int) (*image.NRGBA, float64) {
	w := img.Bounds().Dx()
	if width <= 0 || width >= w {
		return imaging.Clone(img), 1
	}
	out := imaging.Resize(img, width, 0, imaging.Box)
	return out, float64(out.Bounds().Dx()) / float64(w)
}
