package detector

import (
	"image"
	"math"

	"github.com/ayusman/pupiltrack/internal/capture"
	"gocv.io/x/gocv"
)

// ContourDetector fits a circle to the outline of the dark pupil blob.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur (7x7, sigma derived from kernel)
// 3. Canny edge detection (100/200)
// 4. External contours only
// 5. Drop contours with area <= 100
// 6. Pick one contour per the selection policy
// 7. Minimum enclosing circle -> center, (r, r), angle 0
type ContourDetector struct {
	config Config
}

// NewContourDetector creates a ContourDetector. Zero-valued fields in config
// are replaced with their defaults.
func NewContourDetector(config Config) *ContourDetector {
	def := DefaultConfig()
	if config.BlurSize <= 0 {
		config.BlurSize = def.BlurSize
	}
	if config.CannyLow <= 0 {
		config.CannyLow = def.CannyLow
	}
	if config.CannyHigh <= 0 {
		config.CannyHigh = def.CannyHigh
	}
	if config.MinArea <= 0 {
		config.MinArea = def.MinArea
	}
	return &ContourDetector{config: config}
}

// Config returns the effective configuration.
func (d *ContourDetector) Config() Config {
	return d.config
}

// DetectFrame decodes f and runs Detect on the result.
// A frame that cannot be decoded yields capture.ErrInvalidFrame.
func (d *ContourDetector) DetectFrame(f capture.Frame) (*Ellipse, error) {
	mat, err := f.Decode()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	return d.Detect(mat)
}

// Detect runs the contour pipeline on frame.
func (d *ContourDetector) Detect(frame *gocv.Mat) (*Ellipse, error) {
	if frame == nil || frame.Empty() {
		return nil, capture.ErrInvalidFrame
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
	k := d.config.BlurSize
	gocv.GaussianBlur(gray, &blurred, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, d.config.CannyLow, d.config.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	areas := make([]float64, contours.Size())
	for i := range areas {
		areas[i] = gocv.ContourArea(contours.At(i))
	}

	best := selectContour(areas, d.config.MinArea, d.config.Selection)
	if best < 0 {
		return nil, nil
	}

	x, y, radius := gocv.MinEnclosingCircle(contours.At(best))

	// The radius is reported in whole pixels; the center keeps sub-pixel precision.
	r := math.Trunc(float64(radius))

	return &Ellipse{
		Center: [2]float64{float64(x), float64(y)},
		Axes:   [2]float64{r, r},
		Angle:  0,
	}, nil
}

// selectContour returns the index of the contour chosen by policy among those
// whose area exceeds minArea, or -1 when none qualify.
func selectContour(areas []float64, minArea float64, policy SelectionPolicy) int {
	best := -1
	for i, area := range areas {
		if area <= minArea {
			continue
		}
		if policy == SelectLargest && best >= 0 && area <= areas[best] {
			continue
		}
		best = i
	}
	return best
}

// Close is a no-op; the detector holds no native resources between calls.
func (d *ContourDetector) Close() error {
	return nil
}
