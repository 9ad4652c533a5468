// Package capture provides frame acquisition for the pupil detectors using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings. Eye cameras run small and fast.
const (
	DefaultFPS    = 30
	DefaultWidth  = 400
	DefaultHeight = 400
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Source yields frames for the detection loop.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller must Close it.
	ReadFrame() (Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Camera reads frames from a capture device or video file using GoCV.
type Camera struct {
	device  string
	width   int
	height  int
	capture *gocv.VideoCapture
	opened  time.Time
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for the given device. The device is either a
// numeric index ("0") or a path/URL understood by OpenCV.
func NewCamera(device string, width, height int) *Camera {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Camera{
		device: device,
		width:  width,
		height: height,
		fps:    DefaultFPS,
	}
}

// Open opens the device and starts the frame clock.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return err
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.opened = time.Now()
	c.running = true

	return nil
}

// Close closes the device and releases resources.
func (c *Camera) Close() error {
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

// ReadFrame reads a single frame. Timestamps are seconds since Open,
// taken from the monotonic clock.
func (c *Camera) ReadFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return Frame{}, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return Frame{}, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return Frame{}, errors.New("captured frame is empty")
	}

	return FromMat(&mat, time.Since(c.opened).Seconds()), nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *Camera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *Camera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
