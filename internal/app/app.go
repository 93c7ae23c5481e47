// Package app wires capture, the processing pipeline and collision feedback
// into the running ARBadminton service.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GauravRai2002/ARBadminton/internal/capture"
	"github.com/GauravRai2002/ARBadminton/internal/collision"
	"github.com/GauravRai2002/ARBadminton/internal/config"
	"github.com/GauravRai2002/ARBadminton/internal/depth"
	"github.com/GauravRai2002/ARBadminton/internal/detector"
	"github.com/GauravRai2002/ARBadminton/internal/geom"
	"github.com/GauravRai2002/ARBadminton/internal/plugin"
	"github.com/GauravRai2002/ARBadminton/internal/store"
	"github.com/GauravRai2002/ARBadminton/internal/tracking"
)

// Model input resolution for the region proposal detector.
const (
	ModelInputWidth  = 640
	ModelInputHeight = 640
)

// DefaultPluginTimeout bounds one feedback plugin run.
const DefaultPluginTimeout = 2 * time.Second

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	PluginDir     string
	Capture       capture.Config
	Tuning        *config.TuningConfig
	MotionThresh  float64
	PluginTimeout time.Duration

	// Camera and Detector replace the ones built from Capture and Tuning.
	Camera   capture.Camera
	Detector detector.Detector
}

// Frame is a captured image with its capture time in seconds since Start.
type Frame struct {
	Image     *image.NRGBA
	Timestamp float64
}

// App is the main application that runs the capture loop, the pipeline and
// collision feedback.
type App struct {
	config     Config
	camera     capture.Camera
	gate       *capture.ActivityGate
	rate       *capture.Rate
	pipeline   *Pipeline
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	frames *Mailbox[Frame]
	events *Mailbox[collision.Event]

	mu        sync.RWMutex
	enabled   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   time.Time
	sessionID string
	lastEvent *collision.Event

	subMu       sync.RWMutex
	subscribers map[int]func(collision.Event)
	nextSub     int

	viewers    atomic.Int32
	jpegMu     sync.RWMutex
	latestJPEG []byte

	droppedFrames atomic.Uint64
}

// New creates an App. Net, camera and surface placement saved in the store
// are restored.
func New(cfg Config) (*App, error) {
	if cfg.Tuning == nil {
		cfg.Tuning = config.EmptyTuningConfig()
	}
	if cfg.PluginTimeout <= 0 {
		cfg.PluginTimeout = DefaultPluginTimeout
	}
	motionThreshold := cfg.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 0.5 // percent of pixels changed
	}

	det := cfg.Detector
	if det == nil {
		var err error
		det, err = buildDetector(cfg.Tuning)
		if err != nil {
			return nil, err
		}
	}

	cam := cfg.Camera
	if cam == nil {
		cam = capture.NewCamera(cfg.Capture)
	}

	pipeline := NewPipeline(
		det,
		depth.NewEstimator(cfg.Tuning.DepthConfig()),
		tracking.NewEstimator(cfg.Tuning.TrackingConfig()),
		collision.NewDetector(cfg.Tuning.CollisionConfig()),
		PipelineConfig{
			ProcessEveryN:   cfg.Tuning.GetProcessEveryN(),
			DownsampleWidth: cfg.Tuning.GetDownsampleWidth(),
		},
	)

	a := &App{
		config:      cfg,
		camera:      cam,
		gate:        capture.NewActivityGate(motionThreshold),
		rate:        capture.DefaultRate(),
		pipeline:    pipeline,
		pluginMgr:   plugin.NewManager(cfg.PluginDir),
		pluginExec:  plugin.NewExecutor(cfg.PluginTimeout),
		frames:      NewMailbox[Frame](),
		events:      NewMailbox[collision.Event](),
		enabled:     true,
		subscribers: make(map[int]func(collision.Event)),
	}

	pipeline.OnCollision(func(ev collision.Event) {
		if a.events.Offer(ev) {
			log.Printf("Feedback is behind, dropped a pending collision event")
		}
	})
	pipeline.OnReset(func(up tracking.Update) {
		if up.Reason != tracking.ReasonNewTrack {
			log.Printf("Track reset: %s", up.Reason)
		}
	})

	if err := a.restorePlacement(); err != nil {
		return nil, err
	}
	return a, nil
}

func buildDetector(tuning *config.TuningConfig) (detector.Detector, error) {
	cfg := tuning.DetectorConfig()
	if cfg.Kind != detector.MethodMLModel {
		return detector.New(cfg, nil)
	}
	model, err := detector.NewGocvModel(tuning.GetModelPath(), ModelInputWidth, ModelInputHeight)
	if err != nil {
		return nil, fmt.Errorf("load detector model: %w", err)
	}
	return detector.New(cfg, model)
}

func (a *App) restorePlacement() error {
	if a.config.Store == nil {
		return nil
	}
	settings := a.config.Store.Settings()

	var region geom.PlaneRegion
	switch err := settings.Get(store.SettingNet, &region); {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load net placement: %w", err)
	default:
		if err := a.pipeline.SetPlane(region); err != nil {
			log.Printf("Ignoring saved net placement: %v", err)
		}
	}

	var cam depth.Camera
	switch err := settings.Get(store.SettingCamera, &cam); {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load camera placement: %w", err)
	default:
		if err := a.pipeline.SetCamera(cam); err != nil {
			log.Printf("Ignoring saved camera placement: %v", err)
		}
	}

	var surfaces []geom.Plane
	switch err := settings.Get(store.SettingSurfaces, &surfaces); {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load surfaces: %w", err)
	default:
		if err := a.pipeline.SetSurfaces(surfaces); err != nil {
			log.Printf("Ignoring saved surfaces: %v", err)
		}
	}
	return nil
}

// SetNet places the net and saves the placement.
func (a *App) SetNet(region geom.PlaneRegion) error {
	if err := a.pipeline.SetPlane(region); err != nil {
		return err
	}
	if a.config.Store != nil {
		return a.config.Store.Settings().Put(store.SettingNet, region)
	}
	return nil
}

// SetCameraPose sets the camera pose and intrinsics and saves them.
func (a *App) SetCameraPose(cam depth.Camera) error {
	if err := a.pipeline.SetCamera(cam); err != nil {
		return err
	}
	if a.config.Store != nil {
		return a.config.Store.Settings().Put(store.SettingCamera, cam)
	}
	return nil
}

// SetSurfaces replaces the known world surfaces and saves them.
func (a *App) SetSurfaces(surfaces []geom.Plane) error {
	if err := a.pipeline.SetSurfaces(surfaces); err != nil {
		return err
	}
	if a.config.Store != nil {
		return a.config.Store.Settings().Put(store.SettingSurfaces, a.Surfaces())
	}
	return nil
}

// Surfaces returns the known world surfaces with unit normals.
func (a *App) Surfaces() []geom.Plane {
	return a.pipeline.Status().Surfaces
}

// Placement returns the current net region and camera, nil where unset.
func (a *App) Placement() (*geom.PlaneRegion, *depth.Camera) {
	st := a.pipeline.Status()
	return st.Net, st.Camera
}

// SetEnabled enables or disables detection. Frames are still captured while
// disabled but never processed.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning reports whether the capture loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and a new session, then runs the capture,
// processing and feedback goroutines until Stop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.rate.IdleFPS)

	if a.config.Store != nil {
		sess, err := a.config.Store.Sessions().Start(string(a.pipeline.Method()))
		if err != nil {
			a.camera.Close()
			return fmt.Errorf("start session: %w", err)
		}
		a.sessionID = sess.ID
	}

	// Frame timestamps restart at zero, so nothing from a previous run may
	// be compared against them.
	a.pipeline.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.started = time.Now()

	a.wg.Add(3)
	go a.captureLoop(ctx)
	go a.processLoop(ctx)
	go a.feedbackLoop(ctx)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the goroutines, closes the camera and ends the session.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	sessionID := a.sessionID
	a.sessionID = ""
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.gate.Reset()
	a.rate = capture.DefaultRate()

	if a.config.Store != nil && sessionID != "" {
		if err := a.config.Store.Sessions().End(sessionID); err != nil {
			log.Printf("Error ending session: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Close stops the app and releases the detector and activity gate.
func (a *App) Close() error {
	a.Stop()
	a.gate.Close()
	return a.pipeline.Close()
}

// Pipeline returns the processing pipeline.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Camera returns the capture source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// SessionID returns the open session, or "" when stopped or without a store.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// LastEvent returns the most recent delivered collision.
func (a *App) LastEvent() (collision.Event, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastEvent == nil {
		return collision.Event{}, false
	}
	return *a.lastEvent, true
}

// Subscribe registers fn for every delivered collision. The returned
// function removes it.
func (a *App) Subscribe(fn func(collision.Event)) func() {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subscribers, id)
	}
}

// AddViewer marks a debug stream client. Overlays are rendered only while
// at least one viewer is attached. Call the returned function on detach.
func (a *App) AddViewer() func() {
	a.viewers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { a.viewers.Add(-1) })
	}
}

// LatestJPEG returns the most recent annotated frame, or nil.
func (a *App) LatestJPEG() []byte {
	a.jpegMu.RLock()
	defer a.jpegMu.RUnlock()
	return a.latestJPEG
}

// DroppedFrames returns how many captured frames were replaced before the
// pipeline took them.
func (a *App) DroppedFrames() uint64 {
	return a.droppedFrames.Load()
}
