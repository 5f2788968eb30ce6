// Package graphics provides scoped helpers that bracket GPU resource
// lifecycles (batches, shader programs and framebuffers) and a
// screenshot writer for the current back buffer.
//
// Every helper calls Begin exactly once, runs the callback, and calls End
// exactly once, even when the callback returns an error or panics.
package graphics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Resource represents anything with a Begin/End lifecycle.
type Resource interface {
	Begin()
	End()
}

// ShaderProgram represents a shader program that is bound by Begin
// and unbound by End.
type ShaderProgram interface {
	Resource
}

// FrameBuffer represents an off-screen render target that is bound by
// Begin and unbound by End.
type FrameBuffer interface {
	Resource
}

// Batch represents a render batch with a settable projection matrix.
type Batch interface {
	Resource
	SetProjectionMatrix(m mgl32.Mat4)
}

// Camera represents anything exposing a precomputed view×projection matrix.
type Camera interface {
	Combined() mgl32.Mat4
}

// BackBuffer represents a readable color buffer.
//
// ReadPixels returns tightly packed RGBA8 rows starting at the lower-left
// corner, the same layout glReadPixels produces.
type BackBuffer interface {
	BackBufferSize() (width, height int)
	ReadPixels(x, y, width, height int) ([]byte, error)
}
