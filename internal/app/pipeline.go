package app

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/GauravRai2002/ARBadminton/internal/capture"
	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/detector"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/tracking"
)

// PathPreview is the number of predicted positions kept for the overlay.
const PathPreview = 8

// PipelineConfig holds frame scheduling options.
type PipelineConfig struct {
	// ProcessEveryN processes one frame out of every N offered.
	ProcessEveryN int
	// DownsampleWidth is the width frames are shrunk to before detection.
	DownsampleWidth int
}

// DefaultPipelineConfig processes every frame at 160 pixels wide.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{ProcessEveryN: 1, DownsampleWidth: 160}
}

// Pipeline runs detection, depth, tracking and collision checks for one
// frame at a time. All stages share one lock so no two frames interleave.
type Pipeline struct {
	mu sync.Mutex

	detector  detector.Detector
	depth     *depth.Estimator
	tracker   *tracking.Estimator
	collision *collision.Detector
	config    PipelineConfig

	camera   *depth.Camera
	surfaces []geom.Plane
	frames   uint64

	last      *detector.Observation
	lastEvent *collision.Event

	onCollision []func(collision.Event)
	onReset     []func(tracking.Update)
}

// NewPipeline wires the processing stages together. The pipeline owns det
// and closes it in Close.
func NewPipeline(det detector.Detector, est *depth.Estimator, tracker *tracking.Estimator, col *collision.Detector, config PipelineConfig) *Pipeline {
	if config.ProcessEveryN < 1 {
		config.ProcessEveryN = 1
	}
	return &Pipeline{
		detector:  det,
		depth:     est,
		tracker:   tracker,
		collision: col,
		config:    config,
	}
}

// OnCollision registers a callback for accepted collision events. Callbacks
// run on the processing goroutine after the frame is complete.
func (p *Pipeline) OnCollision(fn func(collision.Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCollision = append(p.onCollision, fn)
}

// OnReset registers a callback for track restarts.
func (p *Pipeline) OnReset(fn func(tracking.Update)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReset = append(p.onReset, fn)
}

// SetPlane places the net. An invalid region disarms collision checks.
func (p *Pipeline) SetPlane(region geom.PlaneRegion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collision.SetPlane(region)
}

// SetCamera sets the camera pose and intrinsics used to lift screen points.
func (p *Pipeline) SetCamera(cam depth.Camera) error {
	if err := cam.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.camera = &cam
	return nil
}

// SetSurfaces replaces the known world surfaces used for depth. Screen
// points whose ray meets one of them get a measured world position. An
// empty list clears them.
func (p *Pipeline) SetSurfaces(surfaces []geom.Plane) error {
	planes := make([]geom.Plane, 0, len(surfaces))
	for i, s := range surfaces {
		pl, err := s.Normalized()
		if err != nil {
			return fmt.Errorf("surface %d: %w", i, err)
		}
		planes = append(planes, pl)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces = planes
	return nil
}

// Reset drops the track, the collision cooldown and the detector's
// baseline while keeping placement. Timestamps may restart afterwards.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker.Reset()
	p.collision.Reset()
	if r, ok := p.detector.(interface{ Reset() }); ok {
		r.Reset()
	}
	p.frames = 0
	p.last = nil
}

// Method reports the active detector variant.
func (p *Pipeline) Method() detector.Method {
	return p.detector.Method()
}

// ProcessFrame runs one frame through every stage and returns the
// observation the track was fed, or nil. It is a no-op until both the
// camera and the net are placed.
func (p *Pipeline) ProcessFrame(img image.Image, timestamp float64) *detector.Observation {
	p.mu.Lock()
	if p.camera == nil || p.collision.State() == collision.StateUninitialized {
		p.mu.Unlock()
		return nil
	}

	p.frames++
	if (p.frames-1)%uint64(p.config.ProcessEveryN) != 0 {
		p.mu.Unlock()
		return nil
	}

	small, _ := capture.Downsample(img, p.config.DownsampleWidth)
	observations, err := p.detector.Detect(small, timestamp)
	if err != nil {
		p.mu.Unlock()
		// A busy model drops the frame; the next one will be tried.
		if !errors.Is(err, detector.ErrModelBusy) {
			log.Printf("Detection failed: %v", err)
		}
		return nil
	}

	best := pickBest(observations)
	if best == nil {
		if p.tracker.Expire(timestamp) {
			p.collision.ResetTrack()
		}
		p.mu.Unlock()
		return nil
	}

	// Detectors report downsampled pixels; the camera is calibrated for
	// its own resolution.
	cam := p.camera
	sx := float64(cam.Width) / float64(small.Bounds().Dx())
	sy := float64(cam.Height) / float64(small.Bounds().Dy())
	best.ScreenPoint = best.ScreenPoint.Scale(sx, sy)
	best.Box = best.Box.Scale(sx, sy)

	events, resets := p.process(best)
	p.mu.Unlock()

	p.notify(events, resets)
	return best
}

// ProcessObservation feeds an observation produced elsewhere. A missing
// WorldPoint is lifted through the camera, which must then be set.
func (p *Pipeline) ProcessObservation(obs detector.Observation) *detector.Observation {
	p.mu.Lock()
	if p.collision.State() == collision.StateUninitialized ||
		(obs.WorldPoint == nil && p.camera == nil) {
		p.mu.Unlock()
		return nil
	}

	events, resets := p.process(&obs)
	p.mu.Unlock()

	p.notify(events, resets)
	return &obs
}

// process must be called with p.mu held.
func (p *Pipeline) process(obs *detector.Observation) ([]collision.Event, []tracking.Update) {
	var (
		events []collision.Event
		resets []tracking.Update
	)
	p.last = obs

	if obs.WorldPoint == nil {
		res := p.locate(obs)
		wp := res.Point
		obs.WorldPoint = &wp
		obs.DepthEstimated = res.Estimated

		if res.Mode == depth.ModeAssumed {
			// Depth is a guess, so segments between guesses mean nothing.
			// Test the camera ray against the net instead.
			p.collision.ResetTrack()
			if ev, ok := p.collision.ObserveScreenRay(p.camera.Ray(obs.ScreenPoint), obs.Timestamp); ok {
				events = append(events, *ev)
			}
			p.recordEvents(events)
			return events, resets
		}
	}

	up := p.tracker.Update(*obs.WorldPoint, obs.Confidence, obs.Timestamp)
	if !up.Accepted {
		return nil, nil
	}
	if up.Reset {
		p.collision.ResetTrack()
		resets = append(resets, up)
	}

	measured := *obs.WorldPoint
	ev, ok := p.collision.Observe(collision.Sample{
		Position:    up.State.Position,
		Velocity:    up.State.Velocity,
		Timestamp:   up.State.Timestamp,
		Measurement: &measured,
	})
	if ok {
		events = append(events, *ev)
	}
	p.recordEvents(events)
	return events, resets
}

// locate lifts a screen observation into world space. Surfaces win, then
// apparent size for detectors with a tight box, then the default depth.
func (p *Pipeline) locate(obs *detector.Observation) depth.Result {
	cam := *p.camera
	res := p.depth.Estimate(obs.ScreenPoint, cam, p.surfaces)
	if res.Mode != depth.ModeAssumed || obs.Method == detector.MethodFrameDelta {
		return res
	}
	return p.depth.EstimateFromSize(obs.ScreenPoint, cam, obs.Box.EquivalentDiameter())
}

func (p *Pipeline) recordEvents(events []collision.Event) {
	if len(events) > 0 {
		ev := events[len(events)-1]
		p.lastEvent = &ev
	}
}

func (p *Pipeline) notify(events []collision.Event, resets []tracking.Update) {
	if len(events) == 0 && len(resets) == 0 {
		return
	}

	p.mu.Lock()
	onCollision := append([]func(collision.Event)(nil), p.onCollision...)
	onReset := append([]func(tracking.Update)(nil), p.onReset...)
	p.mu.Unlock()

	for _, up := range resets {
		for _, fn := range onReset {
			fn(up)
		}
	}
	for _, ev := range events {
		log.Printf("Net hit: side %s at %.1f m/s", ev.Side, ev.ImpactSpeed)
		for _, fn := range onCollision {
			fn(ev)
		}
	}
}

func pickBest(observations []detector.Observation) *detector.Observation {
	if len(observations) == 0 {
		return nil
	}
	best := observations[0]
	for _, o := range observations[1:] {
		if o.Confidence > best.Confidence {
			best = o
		}
	}
	return &best
}

// Status is a snapshot of the pipeline for overlays and the API.
type Status struct {
	Detector    detector.Method       `json:"detector"`
	Collision   string                `json:"collision_state"`
	Frames      uint64                `json:"frames"`
	Tracking    bool                  `json:"tracking"`
	Track       *tracking.State       `json:"track,omitempty"`
	Path        []r3.Vec              `json:"path,omitempty"`
	Observation *detector.Observation `json:"observation,omitempty"`
	LastEvent   *collision.Event      `json:"last_event,omitempty"`
	Camera      *depth.Camera         `json:"camera,omitempty"`
	Net         *geom.PlaneRegion     `json:"net,omitempty"`
	Surfaces    []geom.Plane          `json:"surfaces,omitempty"`
}

// Status returns a copy of the pipeline state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Detector:  p.detector.Method(),
		Collision: p.collision.State().String(),
		Frames:    p.frames,
		Tracking:  p.tracker.Initialized(),
	}
	if s.Tracking {
		st := p.tracker.State()
		s.Track = &st
		s.Path = p.tracker.PredictedPath(PathPreview, 1.0/30)
	}
	if p.last != nil {
		obs := *p.last
		s.Observation = &obs
	}
	if p.lastEvent != nil {
		ev := *p.lastEvent
		s.LastEvent = &ev
	}
	if p.camera != nil {
		cam := *p.camera
		s.Camera = &cam
	}
	if region, ok := p.collision.Region(); ok {
		s.Net = &region
	}
	if len(p.surfaces) > 0 {
		s.Surfaces = append([]geom.Plane(nil), p.surfaces...)
	}
	return s
}

// Close releases the detector.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detector.Close()
}
