package tracking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(Sample{Position: r3.Vec{X: float64(i)}, Timestamp: float64(i)})
	}

	want := []Sample{
		{Position: r3.Vec{X: 2}, Timestamp: 2},
		{Position: r3.Vec{X: 3}, Timestamp: 3},
		{Position: r3.Vec{X: 4}, Timestamp: 4},
	}
	if diff := cmp.Diff(want, h.Samples()); diff != "" {
		t.Errorf("Samples() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())

	h.Clear()
	assert.Empty(t, h.Samples())
}

func TestHistory_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 2, NewHistory(0).Cap())
}

func TestHistory_AverageVelocity(t *testing.T) {
	h := NewHistory(8)
	_, ok := h.AverageVelocity(1e-4)
	assert.False(t, ok)

	h.Push(Sample{Position: r3.Vec{}, Timestamp: 0})
	h.Push(Sample{Position: r3.Vec{X: 1}, Timestamp: 0.5})
	// Zero dt steps are skipped.
	h.Push(Sample{Position: r3.Vec{X: 1}, Timestamp: 0.5})
	h.Push(Sample{Position: r3.Vec{X: 5, Z: 1}, Timestamp: 1.5})

	v, ok := h.AverageVelocity(1e-4)
	require.True(t, ok)
	assert.InDelta(t, 3, v.X, 1e-12)
	assert.InDelta(t, 0, v.Y, 1e-12)
	assert.InDelta(t, 0.5, v.Z, 1e-12)
}
