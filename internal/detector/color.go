package detector

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

// ColorThresholdConfig describes the target color and acceptable blob size.
// Hue, saturation and value are all in [0, 1].
type ColorThresholdConfig struct {
	TargetHue     float64
	HueTolerance  float64
	MinSaturation float64
	MinValue      float64
	MinMatches    int
	MinDiameter   float64 // pixels
	MaxDiameter   float64 // pixels
	Stride        int
}

// DefaultColorThresholdConfig targets a saturated yellow-green training shuttle.
func DefaultColorThresholdConfig() ColorThresholdConfig {
	return ColorThresholdConfig{
		TargetHue:     0.17,
		HueTolerance:  0.05,
		MinSaturation: 0.45,
		MinValue:      0.35,
		MinMatches:    6,
		MinDiameter:   2,
		MaxDiameter:   40,
		Stride:        1,
	}
}

// ColorThreshold finds a blob of the target color in a single frame.
type ColorThreshold struct {
	config ColorThresholdConfig
}

// NewColorThreshold creates a ColorThreshold detector.
func NewColorThreshold(config ColorThresholdConfig) *ColorThreshold {
	if config.Stride <= 0 {
		config.Stride = 1
	}
	return &ColorThreshold{config: config}
}

// Method implements Detector.
func (d *ColorThreshold) Method() Method { return MethodColorThreshold }

// Detect classifies every sampled pixel and reports the matching blob.
// Confidence is the aspect ratio of the blob's box: round objects score near 1,
// smears near 0.
func (d *ColorThreshold) Detect(frame *image.NRGBA, timestamp float64) ([]Observation, error) {
	if frame == nil {
		return nil, nil
	}

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := d.config.Stride

	var matches int
	var sumX, sumY float64
	box := geom.BoundingBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}

	for y := 0; y < h; y += stride {
		for x := 0; x < w; x += stride {
			i := frame.PixOffset(b.Min.X+x, b.Min.Y+y)
			if !d.matches(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2]) {
				continue
			}
			matches++
			fx, fy := float64(x), float64(y)
			sumX += fx + 0.5
			sumY += fy + 0.5
			box.MinX = math.Min(box.MinX, fx)
			box.MinY = math.Min(box.MinY, fy)
			box.MaxX = math.Max(box.MaxX, fx+float64(stride))
			box.MaxY = math.Max(box.MaxY, fy+float64(stride))
		}
	}

	if matches == 0 || matches < d.config.MinMatches {
		return nil, nil
	}

	diameter := box.EquivalentDiameter()
	if diameter < d.config.MinDiameter || (d.config.MaxDiameter > 0 && diameter > d.config.MaxDiameter) {
		return nil, nil
	}

	return []Observation{{
		ScreenPoint: geom.Point2{X: sumX / float64(matches), Y: sumY / float64(matches)},
		Box:         box,
		Confidence:  box.AspectRatio(),
		Timestamp:   timestamp,
		Method:      MethodColorThreshold,
	}}, nil
}

func (d *ColorThreshold) matches(r, g, b uint8) bool {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hue, sat, val := c.Hsv()
	if sat < d.config.MinSaturation || val < d.config.MinValue {
		return false
	}
	return HueDistance(hue/360, d.config.TargetHue) <= d.config.HueTolerance
}

// HueDistance returns the distance between two hues in [0, 1], taking the
// shorter way around the 0/1 wraparound.
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	d = math.Mod(d, 1)
	if d > 0.5 {
		d = 1 - d
	}
	return d
}

// Close is a no-op.
func (d *ColorThreshold) Close() error {
	return nil
}
