// Package collision decides when a filtered trajectory passes through the
// net region and which side it came from.
package collision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/monitoring"
)

// State is the detector's position in its lifecycle.
type State int

const (
	// StateUninitialized means no plane is set; every observation is ignored.
	StateUninitialized State = iota
	// StateArmed means a plane is set but there is no previous position.
	StateArmed
	// StateTracking means each new position forms a segment with the last.
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateArmed:
		return "armed"
	case StateTracking:
		return "tracking"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the crossing thresholds. Distances are in world units.
type Config struct {
	// MinSegment is the shortest motion tested for a crossing.
	MinSegment float64
	// HalfThickness is the depth tolerance band around the plane.
	HalfThickness float64
	// EdgeMargin grows the region on every edge.
	EdgeMargin float64
	// Cooldown is the minimum time in seconds between two events.
	Cooldown float64
	// FallbackSide and FallbackSpeed are assigned to screen-ray events.
	FallbackSide  Side
	FallbackSpeed float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinSegment:    1e-4,
		HalfThickness: 0.05,
		EdgeMargin:    0,
		Cooldown:      0.5,
		FallbackSide:  SideA,
		FallbackSpeed: 5,
	}
}

// Sample is one filtered track state.
type Sample struct {
	Position  r3.Vec
	Velocity  r3.Vec
	Timestamp float64 // seconds

	// Measurement is the raw position the filter was fed, when known.
	// A filtered position that stops inside the band only counts as a hit
	// when the measurement reached or passed the plane.
	Measurement *r3.Vec
}

// Detector checks consecutive samples against a plane region. It is not
// safe for concurrent use.
type Detector struct {
	config Config
	state  State
	region geom.PlaneRegion
	frame  geom.RegionFrame
	prev   Sample

	lastEvent float64
	hasEvent  bool
}

// NewDetector creates a Detector with no plane.
func NewDetector(config Config) *Detector {
	return &Detector{config: config}
}

// State returns the lifecycle state.
func (d *Detector) State() State {
	return d.state
}

// Region returns the active plane region. ok is false when none is set.
func (d *Detector) Region() (geom.PlaneRegion, bool) {
	return d.region, d.state != StateUninitialized
}

// Frame returns the cached orthonormal frame of the active region.
func (d *Detector) Frame() (geom.RegionFrame, bool) {
	return d.frame, d.state != StateUninitialized
}

// SetPlane replaces the region wholesale. An invalid region leaves the
// detector uninitialized until a valid one is set.
func (d *Detector) SetPlane(region geom.PlaneRegion) error {
	frame, err := region.Frame()
	if err != nil {
		d.state = StateUninitialized
		d.region = geom.PlaneRegion{}
		d.frame = geom.RegionFrame{}
		return fmt.Errorf("set plane: %w", err)
	}
	d.region = region
	d.frame = frame
	d.state = StateArmed
	d.hasEvent = false
	return nil
}

// ResetTrack forgets the previous position so no segment spans a track
// discontinuity.
func (d *Detector) ResetTrack() {
	if d.state == StateTracking {
		d.state = StateArmed
	}
}

// Reset forgets the previous position and the cooldown, keeping the plane.
// Call it when sample timestamps restart.
func (d *Detector) Reset() {
	d.ResetTrack()
	d.hasEvent = false
	d.lastEvent = 0
}

// Observe tests the segment from the previous sample to s. It returns the
// event and true when an accepted crossing occurs.
func (d *Detector) Observe(s Sample) (*Event, bool) {
	switch d.state {
	case StateUninitialized:
		return nil, false
	case StateArmed:
		d.prev = s
		d.state = StateTracking
		return nil, false
	}

	segment := r3.Sub(s.Position, d.prev.Position)
	if r3.Norm(segment) < d.config.MinSegment {
		return nil, false
	}

	prev := d.prev
	d.prev = s
	if d.coolingDown(s.Timestamp) {
		return nil, false
	}

	d0 := d.frame.SignedDistance(prev.Position)
	d1 := d.frame.SignedDistance(s.Position)
	ht := d.config.HalfThickness

	var contact r3.Vec
	switch {
	case (d0 > 0 && d1 < 0) || (d0 < 0 && d1 > 0):
		contact = r3.Add(prev.Position, r3.Scale(d0/(d0-d1), segment))
	case math.Abs(d1) <= ht && math.Abs(d0) > ht && d.measuredThrough(d0, s):
		contact = d.frame.Project(s.Position)
	default:
		return nil, false
	}

	if !d.frame.Contains(contact, d.config.EdgeMargin) {
		u, v := d.frame.Local(contact)
		monitoring.Logf("collision: crossing at (%.2f, %.2f) outside region", u, v)
		return nil, false
	}

	side := SideA
	if d0 < 0 {
		side = SideB
	}

	speed := r3.Norm(s.Velocity)
	dir, ok := geom.Unit(s.Velocity)
	if !ok {
		dir, _ = geom.Unit(segment)
		if dt := s.Timestamp - prev.Timestamp; dt > 0 {
			speed = r3.Norm(segment) / dt
		}
	}

	d.markEvent(s.Timestamp)
	return newEvent(contact, side, speed, dir, s.Timestamp, false), true
}

// ObserveScreenRay is the fallback for detections without reliable depth.
// It tests the camera ray against the finite region and reports a synthetic
// event with the configured fallback side and speed.
func (d *Detector) ObserveScreenRay(ray geom.Ray, timestamp float64) (*Event, bool) {
	if d.state == StateUninitialized || d.coolingDown(timestamp) {
		return nil, false
	}

	t, ok := geom.Plane{Point: d.frame.Origin, Normal: d.frame.Normal}.IntersectRay(ray)
	if !ok {
		return nil, false
	}
	contact := ray.At(t)
	if !d.frame.Contains(contact, d.config.EdgeMargin) {
		return nil, false
	}

	dir, _ := geom.Unit(ray.Dir)
	d.markEvent(timestamp)
	return newEvent(contact, d.config.FallbackSide, d.config.FallbackSpeed, dir, timestamp, true), true
}

// measuredThrough reports whether the raw measurement of s lies on the
// plane or on the side opposite to d0.
func (d *Detector) measuredThrough(d0 float64, s Sample) bool {
	if s.Measurement == nil {
		return false
	}
	dm := d.frame.SignedDistance(*s.Measurement)
	return (d0 > 0 && dm <= 0) || (d0 < 0 && dm >= 0)
}

func (d *Detector) coolingDown(timestamp float64) bool {
	return d.hasEvent && timestamp-d.lastEvent < d.config.Cooldown
}

func (d *Detector) markEvent(timestamp float64) {
	d.lastEvent = timestamp
	d.hasEvent = true
}
