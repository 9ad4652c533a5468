// Package testdata renders synthetic eye-camera frames for tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	iris  = color.RGBA{R: 170, G: 170, B: 170, A: 0}
	pupil = color.RGBA{R: 20, G: 20, B: 20, A: 0}
)

// Circle describes a filled dark disc drawn onto a frame.
type Circle struct {
	X, Y, R int
}

// BlankFrame returns a uniform light frame with no edges.
// The caller is responsible for closing the returned Mat.
func BlankFrame(width, height int) *gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(float64(iris.B), float64(iris.G), float64(iris.R), 0))
	return &mat
}

// PupilFrame returns a light frame with one dark disc per circle.
// The caller is responsible for closing the returned Mat.
func PupilFrame(width, height int, circles ...Circle) *gocv.Mat {
	mat := BlankFrame(width, height)
	for _, c := range circles {
		gocv.Circle(mat, image.Pt(c.X, c.Y), c.R, pupil, -1)
	}
	return mat
}

// PupilJPEG renders PupilFrame and encodes it as JPEG.
func PupilJPEG(width, height int, circles ...Circle) ([]byte, error) {
	mat := PupilFrame(width, height, circles...)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// LoadSequence renders one frame per circle, for playback through a mock camera.
// On error all frames created so far are released.
func LoadSequence(width, height int, circles []Circle) ([]*gocv.Mat, error) {
	frames := make([]*gocv.Mat, 0, len(circles))
	for _, c := range circles {
		if c.R <= 0 {
			for _, f := range frames {
				f.Close()
			}
			return nil, fmt.Errorf("circle at (%d,%d) has radius %d", c.X, c.Y, c.R)
		}
		frames = append(frames, PupilFrame(width, height, c))
	}
	return frames, nil
}
