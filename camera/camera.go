// Package camera provides orthographic and perspective cameras whose
// combined view×projection matrix can be handed to a batch.
package camera

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// base holds the state shared by both camera types.
type base struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Up        mgl32.Vec3

	Near, Far float32

	ViewportWidth  float32
	ViewportHeight float32

	projection mgl32.Mat4
	view       mgl32.Mat4
	combined   mgl32.Mat4
}

func (c *base) updateView() {
	c.view = mgl32.LookAtV(c.Position, c.Position.Add(c.Direction), c.Up)
	c.combined = c.projection.Mul4(c.view)
}

// Projection returns the projection matrix computed by the last Update.
func (c *base) Projection() mgl32.Mat4 { return c.projection }

// View returns the view matrix computed by the last Update.
func (c *base) View() mgl32.Mat4 { return c.view }

// Combined returns projection×view as computed by the last Update.
func (c *base) Combined() mgl32.Mat4 { return c.combined }

// Translate moves the camera by (x,y,z). Call Update afterwards.
func (c *base) Translate(x, y, z float32) {
	c.Position = c.Position.Add(mgl32.Vec3{x, y, z})
}

// Project maps a world coordinate into window coordinates inside the
// given viewport, with the origin at the lower-left corner.
func (c *base) Project(world mgl32.Vec3, x, y, width, height int) mgl32.Vec3 {
	return mgl32.Project(world, c.view, c.projection, x, y, width, height)
}

// Unproject maps a window coordinate (lower-left origin, z in [0,1]) back
// into world space.
func (c *base) Unproject(win mgl32.Vec3, x, y, width, height int) (mgl32.Vec3, error) {
	world, err := mgl32.UnProject(win, c.view, c.projection, x, y, width, height)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("unproject %v: %w", win, err)
	}
	return world, nil
}

// Orthographic is a camera with a parallel projection, typically used for
// 2D rendering.
type Orthographic struct {
	base
	Zoom float32
}

// NewOrthographic returns an orthographic camera whose viewport is
// width×height world units, centred on the viewport.
func NewOrthographic(width, height float32) *Orthographic {
	c := &Orthographic{
		base: base{
			Direction:      mgl32.Vec3{0, 0, -1},
			Up:             mgl32.Vec3{0, 1, 0},
			Near:           0,
			Far:            100,
			ViewportWidth:  width,
			ViewportHeight: height,
		},
		Zoom: 1,
	}
	c.Position = mgl32.Vec3{width / 2, height / 2, 0}
	c.Update()
	return c
}

// SetToOrtho resets the camera to show a width×height viewport with the
// origin in the lower-left corner, or the upper-left corner when yDown is
// true.
func (c *Orthographic) SetToOrtho(yDown bool, width, height float32) {
	if yDown {
		c.Up = mgl32.Vec3{0, -1, 0}
		c.Direction = mgl32.Vec3{0, 0, 1}
	} else {
		c.Up = mgl32.Vec3{0, 1, 0}
		c.Direction = mgl32.Vec3{0, 0, -1}
	}
	c.Position = mgl32.Vec3{c.Zoom * width / 2, c.Zoom * height / 2, 0}
	c.ViewportWidth = width
	c.ViewportHeight = height
	c.Update()
}

// Update recomputes the projection, view and combined matrices.
func (c *Orthographic) Update() {
	halfW := c.Zoom * c.ViewportWidth / 2
	halfH := c.Zoom * c.ViewportHeight / 2
	c.projection = mgl32.Ortho(-halfW, halfW, -halfH, halfH, c.Near, c.Far)
	c.updateView()
}

// Perspective is a camera with a perspective projection.
type Perspective struct {
	base
	// FieldOfView is the vertical field of view in degrees.
	FieldOfView float32
}

// NewPerspective returns a perspective camera at the origin looking down -Z.
func NewPerspective(fieldOfView, width, height float32) *Perspective {
	c := &Perspective{
		base: base{
			Direction:      mgl32.Vec3{0, 0, -1},
			Up:             mgl32.Vec3{0, 1, 0},
			Near:           1,
			Far:            100,
			ViewportWidth:  width,
			ViewportHeight: height,
		},
		FieldOfView: fieldOfView,
	}
	c.Update()
	return c
}

// LookAt points the camera at target, keeping Up orthogonal to the new
// direction.
func (c *Perspective) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return
	}
	c.Direction = dir.Normalize()
	right := c.Direction.Cross(c.Up)
	if right.Len() == 0 {
		return
	}
	c.Up = right.Cross(c.Direction).Normalize()
}

// Update recomputes the projection, view and combined matrices.
func (c *Perspective) Update() {
	aspect := c.ViewportWidth / c.ViewportHeight
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.FieldOfView), aspect, c.Near, c.Far)
	c.updateView()
}
