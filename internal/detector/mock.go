package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	ellipse *Ellipse
	err     error
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetEllipse sets the outline that will be returned by Detect.
func (m *MockDetector) SetEllipse(e *Ellipse) {
	m.ellipse = e
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls reports how many times Detect has run.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured outline or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Ellipse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.ellipse == nil {
		return nil, nil
	}
	e := *m.ellipse
	return &e, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// CenteredCircle returns an outline for a circle of the given radius centered at (cx, cy).
func CenteredCircle(cx, cy, radius float64) *Ellipse {
	return &Ellipse{
		Center: [2]float64{cx, cy},
		Axes:   [2]float64{radius, radius},
		Angle:  0,
	}
}
