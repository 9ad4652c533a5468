// Package geometry converts pixel-space points into frame-relative coordinates.
package geometry

// Point is a 2D point in either pixel or normalized space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size holds frame dimensions in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Normalize expresses p as a fraction of the frame dimensions.
// When flipY is set the y axis is inverted so the origin moves from the
// top-left corner to the bottom-left corner.
//
// Precondition: size.Width > 0 and size.Height > 0.
// Points outside the frame produce values outside [0,1]; that is not an error.
func Normalize(p Point, size Size, flipY bool) Point {
	x := p.X / size.Width
	y := p.Y / size.Height
	if flipY {
		y = 1 - y
	}
	return Point{X: x, Y: y}
}

// Array returns the point as an [x, y] pair.
func (p Point) Array() [2]float64 {
	return [2]float64{p.X, p.Y}
}
