package collision

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Side names the half-space the object arrived from.
type Side string

const (
	// SideA is the half-space the plane normal points into.
	SideA Side = "A"
	// SideB is the opposite half-space.
	SideB Side = "B"
)

// Event is one accepted crossing of the net region.
type Event struct {
	ID                string  `json:"id"`
	ContactPoint      r3.Vec  `json:"contact_point"`
	Side              Side    `json:"side"`
	ImpactSpeed       float64 `json:"impact_speed"`
	ApproachDirection r3.Vec  `json:"approach_direction"`
	TimestampMillis   int64   `json:"timestamp_ms"`
	// Synthetic marks events from the screen-ray fallback, whose side and
	// speed are assumed rather than measured.
	Synthetic bool `json:"synthetic"`
}

func newEvent(contact r3.Vec, side Side, speed float64, dir r3.Vec, timestamp float64, synthetic bool) *Event {
	return &Event{
		ID:                uuid.NewString(),
		ContactPoint:      contact,
		Side:              side,
		ImpactSpeed:       speed,
		ApproachDirection: dir,
		TimestampMillis:   int64(math.Round(timestamp * 1000)),
		Synthetic:         synthetic,
	}
}
