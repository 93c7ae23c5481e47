// Package tracking smooths noisy world-space observations into a single
// object track with a constant-velocity Kalman-style filter.
package tracking

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/monitoring"
)

// Config holds the filter constants. Distances are in world units, times in
// seconds.
type Config struct {
	ProcessNoise            float64
	MeasurementNoise        float64
	InitialPositionVariance float64
	InitialVelocityVariance float64
	MaxSpeed                float64 // units per second
	StaleAfter              float64
	HistorySize             int
	MinDt                   float64
	// A measurement at least RelocateConfidence that lands farther than
	// RelocateDistance from the predicted position starts a new track.
	RelocateDistance   float64
	RelocateConfidence float64
}

// DefaultConfig returns the default filter constants.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:            0.01,
		MeasurementNoise:        0.05,
		InitialPositionVariance: 1,
		InitialVelocityVariance: 1,
		MaxSpeed:                60,
		StaleAfter:              0.5,
		HistorySize:             32,
		MinDt:                   1e-4,
		RelocateDistance:        2.0,
		RelocateConfidence:      0.8,
	}
}

// ResetReason explains why the track restarted.
type ResetReason string

const (
	ReasonNone          ResetReason = ""
	ReasonNewTrack      ResetReason = "new_track"
	ReasonStale         ResetReason = "stale"
	ReasonVelocitySpike ResetReason = "velocity_spike"
	ReasonRelocated     ResetReason = "relocated"
)

// State is a snapshot of the filter.
type State struct {
	Position         r3.Vec  `json:"position"`
	Velocity         r3.Vec  `json:"velocity"`
	PositionVariance float64 `json:"position_variance"`
	VelocityVariance float64 `json:"velocity_variance"`
	Timestamp        float64 `json:"timestamp"`
}

// Speed returns the magnitude of the velocity.
func (s State) Speed() float64 {
	return r3.Norm(s.Velocity)
}

// Update is the outcome of feeding one measurement to the Estimator.
type Update struct {
	State State
	// Reset is true when the track restarted from the raw measurement.
	// Downstream consumers must not connect this state to earlier ones.
	Reset  bool
	Reason ResetReason
	// Accepted is false when the measurement was discarded, e.g. out of order.
	Accepted bool
}

// Estimator is a single-target track filter. It is not safe for concurrent
// use; the pipeline serializes access.
type Estimator struct {
	config      Config
	state       State
	initialized bool
	history     *History
}

// NewEstimator creates an Estimator with no active track.
func NewEstimator(config Config) *Estimator {
	return &Estimator{
		config:  config,
		history: NewHistory(config.HistorySize),
	}
}

// Initialized reports whether a track is active.
func (e *Estimator) Initialized() bool {
	return e.initialized
}

// State returns the current filter state.
func (e *Estimator) State() State {
	return e.state
}

// History returns the filtered samples of the current track, oldest first.
func (e *Estimator) History() []Sample {
	return e.history.Samples()
}

// Predict advances the filter by dt seconds without a measurement.
func (e *Estimator) Predict(dt float64) {
	q := e.config.ProcessNoise
	e.state.Position = r3.Add(e.state.Position, r3.Scale(dt, e.state.Velocity))
	e.state.PositionVariance += e.state.VelocityVariance*dt*dt + q
	e.state.VelocityVariance += q
}

// Update feeds one measurement taken at timestamp (seconds).
func (e *Estimator) Update(measurement r3.Vec, confidence, timestamp float64) Update {
	if !e.initialized {
		return e.reset(measurement, timestamp, ReasonNewTrack)
	}

	dt := timestamp - e.state.Timestamp
	if dt < 0 {
		monitoring.Logf("tracking: dropping out-of-order sample (dt=%.4fs)", dt)
		return Update{State: e.state}
	}
	if dt > e.config.StaleAfter {
		return e.reset(measurement, timestamp, ReasonStale)
	}
	if confidence >= e.config.RelocateConfidence &&
		r3.Norm(r3.Sub(measurement, e.PredictPosition(dt))) > e.config.RelocateDistance {
		return e.reset(measurement, timestamp, ReasonRelocated)
	}

	previous := e.state.Position
	e.Predict(dt)

	gain := e.state.PositionVariance / (e.state.PositionVariance + e.config.MeasurementNoise)
	innovation := r3.Sub(measurement, e.state.Position)
	e.state.Position = r3.Add(e.state.Position, r3.Scale(gain, innovation))
	if dt > e.config.MinDt {
		e.state.Velocity = r3.Scale(1/dt, r3.Sub(measurement, previous))
	}
	e.state.PositionVariance *= 1 - gain
	e.state.Timestamp = timestamp

	if speed := e.state.Speed(); speed > e.config.MaxSpeed {
		monitoring.Logf("tracking: velocity spike %.1f > %.1f, restarting track", speed, e.config.MaxSpeed)
		return e.reset(measurement, timestamp, ReasonVelocitySpike)
	}

	e.history.Push(Sample{Position: e.state.Position, Timestamp: timestamp})
	return Update{State: e.state, Accepted: true}
}

// Expire drops the track when no measurement arrived for longer than
// StaleAfter before now. It reports whether a track was dropped.
func (e *Estimator) Expire(now float64) bool {
	if !e.initialized || now-e.state.Timestamp <= e.config.StaleAfter {
		return false
	}
	e.Reset()
	return true
}

// Reset drops the active track.
func (e *Estimator) Reset() {
	e.initialized = false
	e.state = State{}
	e.history.Clear()
}

// PredictPosition extrapolates the current position by s seconds. It does
// not change the filter.
func (e *Estimator) PredictPosition(s float64) r3.Vec {
	return r3.Add(e.state.Position, r3.Scale(s, e.state.Velocity))
}

// AverageVelocity returns the mean per-step velocity over the history. ok is
// false until two samples at least MinDt apart are held.
func (e *Estimator) AverageVelocity() (r3.Vec, bool) {
	return e.history.AverageVelocity(e.config.MinDt)
}

// PredictedPath returns n future positions spaced spacing seconds apart. It
// uses the history's average velocity when available, otherwise the filter
// velocity.
func (e *Estimator) PredictedPath(n int, spacing float64) []r3.Vec {
	if n <= 0 || !e.initialized {
		return nil
	}
	v, ok := e.AverageVelocity()
	if !ok {
		v = e.state.Velocity
	}
	path := make([]r3.Vec, n)
	for i := range path {
		path[i] = r3.Add(e.state.Position, r3.Scale(float64(i+1)*spacing, v))
	}
	return path
}

func (e *Estimator) reset(measurement r3.Vec, timestamp float64, reason ResetReason) Update {
	if reason != ReasonNewTrack {
		monitoring.Logf("tracking: track reset (%s)", reason)
	}
	e.initialized = true
	e.state = State{
		Position:         measurement,
		PositionVariance: e.config.InitialPositionVariance,
		VelocityVariance: e.config.InitialVelocityVariance,
		Timestamp:        timestamp,
	}
	e.history.Clear()
	e.history.Push(Sample{Position: measurement, Timestamp: timestamp})
	return Update{State: e.state, Reset: true, Reason: reason, Accepted: true}
}
