// Package capture reads frames from a camera or a recorded rally and gates
// processing on scene activity.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the source yields no frame, e.g. at the
	// end of a recording.
	ErrReadFailed = errors.New("failed to read frame")
)

// Config selects the capture source.
type Config struct {
	// Device is a device index ("0") or a video file path.
	Device string
	Width  int
	Height int
	FPS    int
}

// DefaultConfig returns the settings for the first attached camera.
func DefaultConfig() Config {
	return Config{Device: "0", Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// Camera defines the interface for frame sources.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next BGR frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl reads from a device or file through OpenCV.
type cameraImpl struct {
	config  Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera for config. Zero fields take the defaults.
func NewCamera(config Config) Camera {
	def := DefaultConfig()
	if config.Device == "" {
		config.Device = def.Device
	}
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = def.Width, def.Height
	}
	if config.FPS <= 0 {
		config.FPS = def.FPS
	}
	return &cameraImpl{config: config}
}

// Open opens the source and requests the configured resolution and rate.
// File sources ignore the requests.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("open capture %q: %w", c.config.Device, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	c.capture = capture
	c.running = true
	return nil
}

// Close releases the source.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false
	return err
}

// ReadFrame reads a single frame. The caller is responsible for closing the
// returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrReadFailed
	}
	return &mat, nil
}

// SetFPS sets the requested capture rate. Values <= 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.FPS
}

// IsOpen reports whether the source is open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
