package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidFrame is returned when a frame carries no decodable pixels.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a single video frame handed to the detectors.
// Exactly one of Buffer (compressed, e.g. JPEG) or Mat (raw BGR pixels) is expected.
// A frame must not be mutated while a detection call is using it.
type Frame struct {
	Width     int
	Height    int
	Timestamp float64
	Buffer    []byte
	Mat       *gocv.Mat
}

// FromMat wraps a decoded Mat as a Frame, taking the dimensions from the Mat.
// The Frame takes ownership of mat; release it with Close.
func FromMat(mat *gocv.Mat, timestamp float64) Frame {
	return Frame{
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: timestamp,
		Mat:       mat,
	}
}

// FromBuffer wraps an encoded image as a Frame.
func FromBuffer(buf []byte, width, height int, timestamp float64) Frame {
	return Frame{
		Width:     width,
		Height:    height,
		Timestamp: timestamp,
		Buffer:    buf,
	}
}

// Decode returns a BGR copy of the frame's pixels.
// The caller is responsible for closing the returned Mat.
func (f Frame) Decode() (*gocv.Mat, error) {
	if f.Mat != nil {
		if f.Mat.Empty() {
			return nil, fmt.Errorf("%w: empty mat", ErrInvalidFrame)
		}
		mat := f.Mat.Clone()
		return &mat, nil
	}

	if len(f.Buffer) == 0 {
		return nil, fmt.Errorf("%w: no pixel data", ErrInvalidFrame)
	}

	mat, err := gocv.IMDecode(f.Buffer, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: buffer did not decode", ErrInvalidFrame)
	}

	return &mat, nil
}

// Encode returns the frame as JPEG bytes, reusing Buffer when present.
func (f Frame) Encode() ([]byte, error) {
	if len(f.Buffer) > 0 {
		return f.Buffer, nil
	}
	if f.Mat == nil || f.Mat.Empty() {
		return nil, fmt.Errorf("%w: no pixel data", ErrInvalidFrame)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *f.Mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the frame's Mat, if any.
func (f *Frame) Close() error {
	if f.Mat == nil {
		return nil
	}
	err := f.Mat.Close()
	f.Mat = nil
	return err
}
