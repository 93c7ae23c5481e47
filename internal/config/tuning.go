// Package config loads the tuning file that sets every detection, depth,
// tracking and collision threshold.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/detector"
	"github.com/GauravRai2002/ARBadminton/internal/tracking"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the flat set of numeric thresholds. Every field is
// optional; unset fields keep the component defaults.
type TuningConfig struct {
	// Pipeline
	Detector        *string `json:"detector,omitempty"` // frame_delta, color_threshold or ml_model
	ProcessEveryN   *int    `json:"process_every_n,omitempty"`
	DownsampleWidth *int    `json:"downsample_width,omitempty"`

	// Frame delta
	DiffThreshold *int     `json:"diff_threshold,omitempty"`
	MinPixels     *int     `json:"min_pixels,omitempty"`
	MaxPixels     *int     `json:"max_pixels,omitempty"`
	MaxCoverage   *float64 `json:"max_coverage,omitempty"`

	// Color threshold
	TargetHue       *float64 `json:"target_hue,omitempty"`
	HueTolerance    *float64 `json:"hue_tolerance,omitempty"`
	MinSaturation   *float64 `json:"min_saturation,omitempty"`
	MinValue        *float64 `json:"min_value,omitempty"`
	MinBlobDiameter *float64 `json:"min_blob_diameter,omitempty"`
	MaxBlobDiameter *float64 `json:"max_blob_diameter,omitempty"`

	// Region proposal
	ModelPath        *string  `json:"model_path,omitempty"`
	ScoreThreshold   *float64 `json:"score_threshold,omitempty"`
	IoUThreshold     *float64 `json:"iou_threshold,omitempty"`
	ClassID          *int     `json:"class_id,omitempty"`
	InferenceTimeout *string  `json:"inference_timeout,omitempty"` // duration string like "150ms"

	// Depth
	DefaultDepth        *float64 `json:"default_depth,omitempty"`
	ObjectDiameter      *float64 `json:"object_diameter,omitempty"`
	ReferenceDiameterPx *float64 `json:"reference_diameter_px,omitempty"`
	ReferenceDistance   *float64 `json:"reference_distance,omitempty"`

	// Tracking
	ProcessNoise     *float64 `json:"process_noise,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`
	MaxSpeed         *float64 `json:"max_speed,omitempty"`
	StaleAfter       *string  `json:"stale_after,omitempty"`
	HistorySize      *int     `json:"history_size,omitempty"`
	RelocateDistance *float64 `json:"relocate_distance,omitempty"`

	// Collision
	HalfThickness *float64 `json:"half_thickness,omitempty"`
	EdgeMargin    *float64 `json:"edge_margin,omitempty"`
	Cooldown      *string  `json:"cooldown,omitempty"`
	FallbackSpeed *float64 `json:"fallback_speed,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func unit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func positive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, *v)
	}
	return nil
}

func duration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be non-negative, got %s", name, *v)
	}
	return nil
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.Detector != nil {
		switch detector.Method(*c.Detector) {
		case detector.MethodFrameDelta, detector.MethodColorThreshold, detector.MethodMLModel:
		default:
			return fmt.Errorf("unknown detector %q", *c.Detector)
		}
		if detector.Method(*c.Detector) == detector.MethodMLModel && c.GetModelPath() == "" {
			return fmt.Errorf("detector %q requires model_path", *c.Detector)
		}
	}
	if c.ProcessEveryN != nil && *c.ProcessEveryN < 1 {
		return fmt.Errorf("process_every_n must be at least 1, got %d", *c.ProcessEveryN)
	}
	if c.DownsampleWidth != nil && *c.DownsampleWidth < 0 {
		return fmt.Errorf("downsample_width must be non-negative, got %d", *c.DownsampleWidth)
	}
	if c.DiffThreshold != nil && (*c.DiffThreshold < 1 || *c.DiffThreshold > 255) {
		return fmt.Errorf("diff_threshold must be between 1 and 255, got %d", *c.DiffThreshold)
	}
	if c.MinPixels != nil && c.MaxPixels != nil && *c.MinPixels > *c.MaxPixels {
		return fmt.Errorf("min_pixels %d exceeds max_pixels %d", *c.MinPixels, *c.MaxPixels)
	}
	if c.MinBlobDiameter != nil && c.MaxBlobDiameter != nil && *c.MinBlobDiameter > *c.MaxBlobDiameter {
		return fmt.Errorf("min_blob_diameter %f exceeds max_blob_diameter %f", *c.MinBlobDiameter, *c.MaxBlobDiameter)
	}
	if c.HistorySize != nil && *c.HistorySize < 2 {
		return fmt.Errorf("history_size must be at least 2, got %d", *c.HistorySize)
	}

	for _, check := range []error{
		unit("max_coverage", c.MaxCoverage),
		unit("target_hue", c.TargetHue),
		unit("hue_tolerance", c.HueTolerance),
		unit("min_saturation", c.MinSaturation),
		unit("min_value", c.MinValue),
		unit("score_threshold", c.ScoreThreshold),
		unit("iou_threshold", c.IoUThreshold),
		positive("default_depth", c.DefaultDepth),
		positive("object_diameter", c.ObjectDiameter),
		positive("reference_diameter_px", c.ReferenceDiameterPx),
		positive("reference_distance", c.ReferenceDistance),
		positive("process_noise", c.ProcessNoise),
		positive("measurement_noise", c.MeasurementNoise),
		positive("max_speed", c.MaxSpeed),
		positive("relocate_distance", c.RelocateDistance),
		duration("inference_timeout", c.InferenceTimeout),
		duration("stale_after", c.StaleAfter),
		duration("cooldown", c.Cooldown),
	} {
		if check != nil {
			return check
		}
	}
	if c.HalfThickness != nil && *c.HalfThickness < 0 {
		return fmt.Errorf("half_thickness must be non-negative, got %f", *c.HalfThickness)
	}
	return nil
}

func parseDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetDetector returns the selected detector variant or the default.
func (c *TuningConfig) GetDetector() detector.Method {
	if c.Detector == nil || *c.Detector == "" {
		return detector.MethodFrameDelta
	}
	return detector.Method(*c.Detector)
}

// GetProcessEveryN returns the process_every_n value or the default.
func (c *TuningConfig) GetProcessEveryN() int {
	if c.ProcessEveryN == nil {
		return 1
	}
	return *c.ProcessEveryN
}

// GetDownsampleWidth returns the downsample_width value or the default.
// Zero disables downsampling.
func (c *TuningConfig) GetDownsampleWidth() int {
	if c.DownsampleWidth == nil {
		return 160
	}
	return *c.DownsampleWidth
}

// GetModelPath returns the model_path value or the default.
func (c *TuningConfig) GetModelPath() string {
	if c.ModelPath == nil {
		return ""
	}
	return *c.ModelPath
}

// GetInferenceTimeout parses and returns InferenceTimeout.
func (c *TuningConfig) GetInferenceTimeout() time.Duration {
	return parseDuration(c.InferenceTimeout, detector.DefaultRegionConfig().InferenceTimeout)
}

// GetStaleAfter parses and returns StaleAfter.
func (c *TuningConfig) GetStaleAfter() time.Duration {
	def := time.Duration(tracking.DefaultConfig().StaleAfter * float64(time.Second))
	return parseDuration(c.StaleAfter, def)
}

// GetCooldown parses and returns Cooldown.
func (c *TuningConfig) GetCooldown() time.Duration {
	def := time.Duration(collision.DefaultConfig().Cooldown * float64(time.Second))
	return parseDuration(c.Cooldown, def)
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// DetectorConfig returns the detector configuration with overrides applied.
func (c *TuningConfig) DetectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.Kind = c.GetDetector()

	if c.DiffThreshold != nil {
		cfg.FrameDelta.DiffThreshold = uint8(*c.DiffThreshold)
	}
	setInt(&cfg.FrameDelta.MinPixels, c.MinPixels)
	setInt(&cfg.FrameDelta.MaxPixels, c.MaxPixels)
	setFloat(&cfg.FrameDelta.MaxCoverage, c.MaxCoverage)

	setFloat(&cfg.ColorThreshold.TargetHue, c.TargetHue)
	setFloat(&cfg.ColorThreshold.HueTolerance, c.HueTolerance)
	setFloat(&cfg.ColorThreshold.MinSaturation, c.MinSaturation)
	setFloat(&cfg.ColorThreshold.MinValue, c.MinValue)
	setFloat(&cfg.ColorThreshold.MinDiameter, c.MinBlobDiameter)
	setFloat(&cfg.ColorThreshold.MaxDiameter, c.MaxBlobDiameter)

	setFloat(&cfg.Region.ScoreThreshold, c.ScoreThreshold)
	setFloat(&cfg.Region.IoUThreshold, c.IoUThreshold)
	setInt(&cfg.Region.ClassID, c.ClassID)
	cfg.Region.InferenceTimeout = c.GetInferenceTimeout()
	return cfg
}

// DepthConfig returns the depth configuration with overrides applied.
func (c *TuningConfig) DepthConfig() depth.Config {
	cfg := depth.DefaultConfig()
	setFloat(&cfg.DefaultDepth, c.DefaultDepth)
	setFloat(&cfg.ObjectDiameter, c.ObjectDiameter)
	setFloat(&cfg.ReferenceDiameterPx, c.ReferenceDiameterPx)
	setFloat(&cfg.ReferenceDistance, c.ReferenceDistance)
	return cfg
}

// TrackingConfig returns the tracking configuration with overrides applied.
func (c *TuningConfig) TrackingConfig() tracking.Config {
	cfg := tracking.DefaultConfig()
	setFloat(&cfg.ProcessNoise, c.ProcessNoise)
	setFloat(&cfg.MeasurementNoise, c.MeasurementNoise)
	setFloat(&cfg.MaxSpeed, c.MaxSpeed)
	setInt(&cfg.HistorySize, c.HistorySize)
	setFloat(&cfg.RelocateDistance, c.RelocateDistance)
	cfg.StaleAfter = c.GetStaleAfter().Seconds()
	return cfg
}

// CollisionConfig returns the collision configuration with overrides applied.
func (c *TuningConfig) CollisionConfig() collision.Config {
	cfg := collision.DefaultConfig()
	setFloat(&cfg.HalfThickness, c.HalfThickness)
	setFloat(&cfg.EdgeMargin, c.EdgeMargin)
	setFloat(&cfg.FallbackSpeed, c.FallbackSpeed)
	cfg.Cooldown = c.GetCooldown().Seconds()
	return cfg
}
