// Package detector finds the pupil in a single eye-camera frame.
package detector

import "gocv.io/x/gocv"

// Ellipse is a fitted pupil outline in pixel space.
type Ellipse struct {
	Center [2]float64 `json:"center"`
	Axes   [2]float64 `json:"axes"`
	Angle  float64    `json:"angle"`
}

// Detector defines the interface for single-frame pupil detection.
type Detector interface {
	// Detect analyzes a BGR or grayscale frame and returns the fitted outline,
	// or nil when nothing qualifies.
	Detect(frame *gocv.Mat) (*Ellipse, error)

	// Close releases any resources held by the detector.
	Close() error
}

// SelectionPolicy decides which surviving contour becomes the pupil.
type SelectionPolicy int

const (
	// SelectLast keeps the last qualifying contour in enumeration order.
	SelectLast SelectionPolicy = iota
	// SelectLargest keeps the qualifying contour with the largest area.
	SelectLargest
)

// String returns the policy name used in config files and flags.
func (p SelectionPolicy) String() string {
	switch p {
	case SelectLargest:
		return "largest"
	default:
		return "last"
	}
}

// ParseSelectionPolicy maps a policy name back to its value.
// Unknown names yield SelectLast and false.
func ParseSelectionPolicy(name string) (SelectionPolicy, bool) {
	switch name {
	case "last", "":
		return SelectLast, true
	case "largest":
		return SelectLargest, true
	default:
		return SelectLast, false
	}
}

// Config holds the contour pipeline parameters.
type Config struct {
	// BlurSize is the Gaussian kernel size (odd, square).
	BlurSize int

	// CannyLow and CannyHigh are the hysteresis thresholds for edge detection.
	CannyLow  float32
	CannyHigh float32

	// MinArea is the exclusive lower bound on contour area in pixels².
	MinArea float64

	// Selection picks among contours that pass the area filter.
	Selection SelectionPolicy
}

// DefaultConfig returns the fixed pipeline parameters.
func DefaultConfig() Config {
	return Config{
		BlurSize:  7,
		CannyLow:  100,
		CannyHigh: 200,
		MinArea:   100,
		Selection: SelectLast,
	}
}
