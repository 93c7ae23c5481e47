// Package detector turns downsampled pixel buffers into screen-space observations
// of the tracked object.
package detector

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

// Method identifies which detector produced an observation.
type Method string

const (
	// MethodFrameDelta marks observations from consecutive-frame differencing.
	MethodFrameDelta Method = "frame_delta"
	// MethodColorThreshold marks observations from HSV color matching.
	MethodColorThreshold Method = "color_threshold"
	// MethodMLModel marks observations from the neural region proposal path.
	MethodMLModel Method = "ml_model"
)

// Observation is one detector's report for a single frame.
type Observation struct {
	ScreenPoint    geom.Point2      `json:"screen_point"`
	WorldPoint     *r3.Vec          `json:"world_point,omitempty"`
	Box            geom.BoundingBox `json:"box"`
	Confidence     float64          `json:"confidence"`
	Timestamp      float64          `json:"timestamp"` // seconds
	Method         Method           `json:"method"`
	DepthEstimated bool             `json:"depth_estimated"`
}

// Detector defines the interface shared by every detection variant.
type Detector interface {
	// Detect analyzes a frame and returns observations ordered by descending
	// confidence. Returns an empty slice when nothing qualifies.
	Detect(frame *image.NRGBA, timestamp float64) ([]Observation, error)

	// Method reports which variant this detector is.
	Method() Method

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration for every detector variant. Only the section
// matching Kind is used.
type Config struct {
	Kind           Method
	FrameDelta     FrameDeltaConfig
	ColorThreshold ColorThresholdConfig
	Region         RegionConfig
}

// DefaultConfig returns a Config selecting the frame-delta detector.
func DefaultConfig() Config {
	return Config{
		Kind:           MethodFrameDelta,
		FrameDelta:     DefaultFrameDeltaConfig(),
		ColorThreshold: DefaultColorThresholdConfig(),
		Region:         DefaultRegionConfig(),
	}
}

// New builds the detector variant selected by config.Kind. The region
// proposal variant needs a model; pass nil for the other variants.
func New(config Config, model Model) (Detector, error) {
	switch config.Kind {
	case MethodFrameDelta, "":
		return NewFrameDelta(config.FrameDelta), nil
	case MethodColorThreshold:
		return NewColorThreshold(config.ColorThreshold), nil
	case MethodMLModel:
		if model == nil {
			return nil, fmt.Errorf("detector %q requires a model", config.Kind)
		}
		return NewRegionProposal(config.Region, model), nil
	default:
		return nil, fmt.Errorf("unknown detector kind %q", config.Kind)
	}
}
