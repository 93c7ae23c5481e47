package detector

import (
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/monitoring"
)

// FrameDeltaConfig holds the thresholds for consecutive-frame differencing.
type FrameDeltaConfig struct {
	// DiffThreshold is the per-channel absolute difference (0-255) a pixel
	// must exceed to count as changed.
	DiffThreshold uint8
	// MinPixels is the smallest changed-pixel count treated as an object.
	MinPixels int
	// MaxPixels is the largest changed-pixel count treated as an object.
	MaxPixels int
	// MaxCoverage is the changed fraction of sampled pixels above which the
	// frame is considered corrupted by camera shake or a lighting change.
	MaxCoverage float64
	// Stride samples every Nth pixel on both axes.
	Stride int
	// SaturationPixels is the changed-pixel count at which confidence reaches 1.
	SaturationPixels int
	// MaxBoxFraction clamps the reported box side to a fraction of frame width.
	MaxBoxFraction float64
}

// DefaultFrameDeltaConfig returns thresholds tuned for a ~160px wide buffer.
func DefaultFrameDeltaConfig() FrameDeltaConfig {
	return FrameDeltaConfig{
		DiffThreshold:    30,
		MinPixels:        4,
		MaxPixels:        4000,
		MaxCoverage:      0.25,
		Stride:           1,
		SaturationPixels: 64,
		MaxBoxFraction:   0.25,
	}
}

// FrameDelta detects a moving object as the centroid of pixels that changed
// since the previous frame.
type FrameDelta struct {
	config FrameDeltaConfig
	prev   *image.NRGBA
	mu     sync.Mutex
}

// NewFrameDelta creates a FrameDelta detector. Non-positive stride is treated as 1.
func NewFrameDelta(config FrameDeltaConfig) *FrameDelta {
	if config.Stride <= 0 {
		config.Stride = 1
	}
	if config.SaturationPixels <= 0 {
		config.SaturationPixels = 1
	}
	return &FrameDelta{config: config}
}

// Method implements Detector.
func (d *FrameDelta) Method() Method { return MethodFrameDelta }

// Detect compares frame against the stored baseline.
//
// The first frame, or a frame whose size differs from the baseline, only
// becomes the new baseline. Every call replaces the baseline regardless of
// outcome.
func (d *FrameDelta) Detect(frame *image.NRGBA, timestamp float64) ([]Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil {
		return nil, nil
	}

	prev := d.prev
	d.prev = imaging.Clone(frame)

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if prev == nil || prev.Bounds().Dx() != w || prev.Bounds().Dy() != h {
		return nil, nil
	}

	stride := d.config.Stride
	threshold := int(d.config.DiffThreshold)

	var marked, sampled int
	var sumX, sumY float64
	for y := 0; y < h; y += stride {
		for x := 0; x < w; x += stride {
			sampled++
			ci := frame.PixOffset(b.Min.X+x, b.Min.Y+y)
			pi := prev.PixOffset(x, y)
			if !channelsDiffer(frame.Pix[ci:ci+3], prev.Pix[pi:pi+3], threshold) {
				continue
			}
			marked++
			sumX += float64(x) + 0.5
			sumY += float64(y) + 0.5
		}
	}

	if sampled == 0 || marked == 0 {
		return nil, nil
	}

	coverage := float64(marked) / float64(sampled)
	if coverage > d.config.MaxCoverage {
		monitoring.Logf("frame delta: global motion, %.1f%% of frame changed", coverage*100)
		return nil, nil
	}
	if marked < d.config.MinPixels || marked > d.config.MaxPixels {
		return nil, nil
	}

	centroid := geom.Point2{X: sumX / float64(marked), Y: sumY / float64(marked)}
	side := math.Sqrt(float64(marked)) * float64(stride)
	if maxSide := d.config.MaxBoxFraction * float64(w); maxSide > 0 && side > maxSide {
		side = maxSide
	}

	return []Observation{{
		ScreenPoint: centroid,
		Box:         geom.BoxAround(centroid, side, side),
		Confidence:  math.Min(1, float64(marked)/float64(d.config.SaturationPixels)),
		Timestamp:   timestamp,
		Method:      MethodFrameDelta,
	}}, nil
}

// channelsDiffer reports whether any of the R, G, B bytes differ by more than threshold.
func channelsDiffer(a, b []uint8, threshold int) bool {
	for i := 0; i < 3; i++ {
		diff := int(a[i]) - int(b[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > threshold {
			return true
		}
	}
	return false
}

// Reset drops the baseline so the next frame starts a new comparison.
func (d *FrameDelta) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = nil
}

// Close releases the baseline.
func (d *FrameDelta) Close() error {
	d.Reset()
	return nil
}
