package tracking

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Sample is one filtered position in the history.
type Sample struct {
	Position  r3.Vec  `json:"position"`
	Timestamp float64 `json:"timestamp"`
}

// History is a fixed-capacity FIFO of filtered samples. The oldest sample is
// evicted when a new one arrives at capacity.
type History struct {
	buf   []Sample
	start int
	n     int
}

// NewHistory creates a History holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{buf: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when full.
func (h *History) Push(s Sample) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of samples held.
func (h *History) Len() int { return h.n }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Clear drops every sample.
func (h *History) Clear() {
	h.start, h.n = 0, 0
}

// Samples returns the samples oldest first.
func (h *History) Samples() []Sample {
	out := make([]Sample, h.n)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// AverageVelocity returns the mean of the per-step displacement/dt over the
// buffer. Steps shorter than minDt are skipped. ok is false when no step
// qualifies.
func (h *History) AverageVelocity(minDt float64) (r3.Vec, bool) {
	samples := h.Samples()
	var vx, vy, vz []float64
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp - samples[i-1].Timestamp
		if dt <= minDt {
			continue
		}
		d := r3.Sub(samples[i].Position, samples[i-1].Position)
		vx = append(vx, d.X/dt)
		vy = append(vy, d.Y/dt)
		vz = append(vz, d.Z/dt)
	}
	if len(vx) == 0 {
		return r3.Vec{}, false
	}
	return r3.Vec{X: stat.Mean(vx, nil), Y: stat.Mean(vy, nil), Z: stat.Mean(vz, nil)}, true
}
