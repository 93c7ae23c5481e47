package app

import (
	"bytes"
	"image/jpeg"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/detector"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/testutil"
)

func TestRenderOverlay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	cam := testCamera(t)
	net := netAt(2)
	centre := geom.Point2{X: 320, Y: 240}
	st := Status{
		Camera: &cam,
		Net:    &net,
		Observation: &detector.Observation{
			ScreenPoint: centre,
			Box:         geom.BoxAround(centre, 20, 20),
		},
		Path:      []r3.Vec{{X: 3, Z: 1.5}, {X: 2.5, Y: 0.2, Z: 1.5}, {X: -1}},
		LastEvent: &collision.Event{Side: collision.SideB, ImpactSpeed: 12.5},
	}

	// A half-size frame exercises the camera rescale.
	frame := testutil.SolidFrame(320, 240, testutil.CourtGreen)
	data, err := RenderOverlay(frame, st)
	if err != nil {
		t.Fatalf("RenderOverlay() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("overlay is not a JPEG: %v", err)
	}
	if got := img.Bounds().Dx(); got != 320 {
		t.Errorf("overlay width = %d, want 320", got)
	}
}

func TestRenderOverlay_NoPlacement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	data, err := RenderOverlay(testutil.SolidFrame(64, 48, testutil.Black), Status{})
	if err != nil {
		t.Fatalf("RenderOverlay() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("expected JPEG bytes")
	}
}
