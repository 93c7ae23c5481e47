package detector

import (
	"context"
	"image"
	"sync"
	"time"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	observations []Observation
	err          error
	calls        int
	mu           sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObservations sets the observations that will be returned by Detect.
// Their timestamps are overwritten with the frame timestamp.
func (m *MockDetector) SetObservations(observations []Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = observations
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Method implements Detector.
func (m *MockDetector) Method() Method { return MethodFrameDelta }

// Detect returns the pre-configured observations or error.
func (m *MockDetector) Detect(frame *image.NRGBA, timestamp float64) ([]Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.observations == nil {
		return nil, nil
	}

	out := make([]Observation, len(m.observations))
	copy(out, m.observations)
	for i := range out {
		out[i].Timestamp = timestamp
	}
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// MockModel is a Model returning a fixed output after an optional delay.
type MockModel struct {
	Width, Height int
	Output        RawOutput
	Err           error
	Delay         time.Duration
	Closed        bool
}

// InputSize implements Model.
func (m *MockModel) InputSize() (int, int) { return m.Width, m.Height }

// Infer implements Model.
func (m *MockModel) Infer(ctx context.Context, img image.Image) (RawOutput, error) {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Err != nil {
		return RawOutput{}, m.Err
	}
	return m.Output, nil
}

// Close implements Model.
func (m *MockModel) Close() error {
	m.Closed = true
	return nil
}
