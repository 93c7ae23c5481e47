package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back in-memory frames for testing.
type MockCamera struct {
	frames  []image.Image
	index   int
	loop    bool
	fps     int
	reads   int
	mu      sync.Mutex
	running bool
}

// NewMockCamera creates a MockCamera over frames. With loop set, playback
// restarts after the last frame; otherwise ReadFrame returns ErrReadFailed.
func NewMockCamera(frames []image.Image, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open implements Camera.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

// Close implements Camera.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame converts the next frame into a BGR Mat.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrReadFailed
		}
		c.index = 0
	}

	img := c.frames[c.index]
	c.index++
	c.reads++

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	return &mat, nil
}

// SetFPS records the requested rate.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS returns the last requested rate.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen implements Camera.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames were served.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetFrames replaces the frame sequence and restarts playback.
func (c *MockCamera) SetFrames(frames []image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}
