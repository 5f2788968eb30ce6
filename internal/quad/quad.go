// Package quad builds the interleaved vertex data shared by the OpenGL and
// WebGPU batches.
package quad

import "image/color"

const (
	FloatsPerVertex = 6 // x, y, r, g, b, a
	VerticesPerQuad = 6
	FloatsPerQuad   = FloatsPerVertex * VerticesPerQuad
)

// Append appends two counter-clockwise triangles covering the rectangle
// with its lower-left corner at (x,y).
func Append(v []float32, x, y, width, height float32, c color.RGBA) []float32 {
	r, g, b, a := Normalize(c)
	x2, y2 := x+width, y+height
	return append(v,
		x, y, r, g, b, a,
		x2, y, r, g, b, a,
		x2, y2, r, g, b, a,
		x2, y2, r, g, b, a,
		x, y2, r, g, b, a,
		x, y, r, g, b, a,
	)
}

// Normalize converts c to floating point channels in [0,1].
func Normalize(c color.RGBA) (r, g, b, a float32) {
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255
}
