package depth

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

// Mode reports which path produced a world point.
type Mode string

const (
	// ModeSurface means the camera ray hit a known surface plane.
	ModeSurface Mode = "surface"
	// ModeSize means the distance came from the object's apparent size.
	ModeSize Mode = "size"
	// ModeAssumed means the point sits at the default depth along the ray.
	ModeAssumed Mode = "assumed"
)

// Config holds depth estimation constants. Distances are in meters.
type Config struct {
	DefaultDepth       float64
	FallbackConfidence float64
	SizeConfidence     float64

	// Size-based estimation: an object ReferenceObjectDiameter wide appears
	// ReferenceDiameterPx wide at ReferenceDistance.
	ObjectDiameter          float64
	ReferenceObjectDiameter float64
	ReferenceDiameterPx     float64
	ReferenceDistance       float64
	MinDistance             float64
	MaxDistance             float64
}

// DefaultConfig returns constants for a feather shuttle seen by a phone camera.
func DefaultConfig() Config {
	return Config{
		DefaultDepth:            2.0,
		FallbackConfidence:      0.4,
		SizeConfidence:          0.6,
		ObjectDiameter:          0.066,
		ReferenceObjectDiameter: 0.066,
		ReferenceDiameterPx:     60,
		ReferenceDistance:       1.0,
		MinDistance:             0.5,
		MaxDistance:             10,
	}
}

// Result is a screen point lifted into world space.
type Result struct {
	Point      r3.Vec
	Distance   float64 // along the camera ray
	Confidence float64
	Estimated  bool
	Mode       Mode
}

// Estimator maps screen points to world points.
type Estimator struct {
	config Config
}

// NewEstimator creates an Estimator.
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Config returns the estimator's constants.
func (e *Estimator) Config() Config {
	return e.config
}

// Estimate intersects the ray through pt with the nearest surface in front of
// the camera. Without a hit the point is placed at DefaultDepth and flagged as
// estimated.
func (e *Estimator) Estimate(pt geom.Point2, cam Camera, surfaces []geom.Plane) Result {
	ray := cam.Ray(pt)

	best := math.Inf(1)
	for _, s := range surfaces {
		n, ok := geom.Unit(s.Normal)
		if !ok {
			continue
		}
		t, ok := geom.Plane{Point: s.Point, Normal: n}.IntersectRay(ray)
		if ok && t > geom.Epsilon && t < best {
			best = t
		}
	}
	if !math.IsInf(best, 1) {
		return Result{Point: ray.At(best), Distance: best, Confidence: 1, Mode: ModeSurface}
	}

	return Result{
		Point:      ray.At(e.config.DefaultDepth),
		Distance:   e.config.DefaultDepth,
		Confidence: e.config.FallbackConfidence,
		Estimated:  true,
		Mode:       ModeAssumed,
	}
}

// EstimateFromSize places pt along its ray at the distance implied by an
// apparent diameter in pixels. It falls back to Estimate without surfaces
// when the diameter is unusable.
func (e *Estimator) EstimateFromSize(pt geom.Point2, cam Camera, apparentDiameterPx float64) Result {
	dist, ok := e.DistanceFromSize(apparentDiameterPx)
	if !ok {
		return e.Estimate(pt, cam, nil)
	}
	ray := cam.Ray(pt)
	return Result{
		Point:      ray.At(dist),
		Distance:   dist,
		Confidence: e.config.SizeConfidence,
		Estimated:  true,
		Mode:       ModeSize,
	}
}

// DistanceFromSize converts an apparent diameter into a distance using the
// inverse size relationship, clamped to [MinDistance, MaxDistance].
func (e *Estimator) DistanceFromSize(apparentDiameterPx float64) (float64, bool) {
	c := e.config
	if apparentDiameterPx <= 0 || c.ReferenceObjectDiameter <= 0 || math.IsNaN(apparentDiameterPx) {
		return 0, false
	}
	expectedPx := c.ReferenceDiameterPx * c.ObjectDiameter / c.ReferenceObjectDiameter
	dist := c.ReferenceDistance * expectedPx / apparentDiameterPx
	return math.Max(c.MinDistance, math.Min(c.MaxDistance, dist)), true
}
