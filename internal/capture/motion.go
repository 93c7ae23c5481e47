package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Activity gate constants.
const (
	// ActivityBlurSize is the Gaussian kernel size. It is kept small so a
	// shuttle a few pixels wide still registers.
	ActivityBlurSize = 5
	// ActivityDiffThreshold is the binary threshold for grayscale differences.
	ActivityDiffThreshold = 25
)

// ActivityGate decides whether anything in the scene is moving, so the
// capture loop can drop to a low frame rate between rallies.
type ActivityGate struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewActivityGate creates an ActivityGate. threshold is the percentage of
// pixels that must change to count as activity.
func NewActivityGate(threshold float64) *ActivityGate {
	return &ActivityGate{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. It returns whether the scene
// is active and the changed percentage. The first frame only sets the
// baseline.
func (g *ActivityGate) Detect(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: ActivityBlurSize, Y: ActivityBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized || blurred.Rows() != g.prevGray.Rows() || blurred.Cols() != g.prevGray.Cols() {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, ActivityDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100
	blurred.CopyTo(&g.prevGray)

	return changed > g.threshold, changed
}

// Reset drops the baseline.
func (g *ActivityGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initialized = false
}

// Close releases the baseline Mat.
func (g *ActivityGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prevGray.Close()
	g.prevGray = gocv.NewMat()
	g.initialized = false
}

// Rate switches between an idle and an active frame rate. The rate goes up
// on the first active frame and back down after IdleAfter without activity.
type Rate struct {
	IdleFPS   int
	ActiveFPS int
	IdleAfter time.Duration

	active     bool
	lastActive time.Time
}

// DefaultRate returns a Rate idling at 5 FPS and tracking at 30 FPS.
func DefaultRate() *Rate {
	return &Rate{IdleFPS: 5, ActiveFPS: 30, IdleAfter: 2 * time.Second}
}

// Active reports whether the rate is in active mode.
func (r *Rate) Active() bool {
	return r.active
}

// FPS returns the current rate.
func (r *Rate) FPS() int {
	if r.active {
		return r.ActiveFPS
	}
	return r.IdleFPS
}

// Observe records one frame's activity at now and returns the rate to use.
// changed is true when the mode switched.
func (r *Rate) Observe(activity bool, now time.Time) (fps int, changed bool) {
	switch {
	case activity:
		r.lastActive = now
		if !r.active {
			r.active = true
			changed = true
		}
	case r.active && now.Sub(r.lastActive) > r.IdleAfter:
		r.active = false
		changed = true
	}
	return r.FPS(), changed
}
