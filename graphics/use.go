package graphics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Use calls r.Begin, runs fn with r, and calls r.End.
// End runs even if fn returns an error or panics; fn's error is
// returned unchanged.
func Use[R Resource](r R, fn func(R) error) error {
	r.Begin()
	defer r.End()
	return fn(r)
}

// UseValue is like Use but also returns the value produced by fn.
func UseValue[R Resource, T any](r R, fn func(R) (T, error)) (T, error) {
	r.Begin()
	defer r.End()
	return fn(r)
}

// UseShader binds the shader program for the duration of fn.
func UseShader[S ShaderProgram](s S, fn func(S) error) error {
	return Use(s, fn)
}

// UseFrameBuffer binds the framebuffer for the duration of fn.
func UseFrameBuffer[F FrameBuffer](f F, fn func(F) error) error {
	return Use(f, fn)
}

// BatchOption configures how a batch is started.
type BatchOption func(*batchOptions)

type batchOptions struct {
	projection *mgl32.Mat4
	camera     Camera
}

// WithProjection sets the batch projection matrix to m before Begin.
func WithProjection(m mgl32.Mat4) BatchOption {
	return func(o *batchOptions) {
		o.projection = &m
		o.camera = nil
	}
}

// WithCamera sets the batch projection matrix to c.Combined() before Begin.
// The combined matrix is read when the batch is started, so call the
// camera's Update first if it has moved.
//
// A nil c is ignored. A typed nil, such as a nil *camera.Orthographic, is a
// programmer error: Combined panics before the batch is begun, so no End is
// owed.
func WithCamera(c Camera) BatchOption {
	return func(o *batchOptions) {
		if c == nil {
			return
		}
		o.camera = c
		o.projection = nil
	}
}

// BeginBatch installs the projection requested by opts, if any, and then
// calls b.Begin. Later options override earlier ones. Without options the
// projection matrix is left untouched.
func BeginBatch(b Batch, opts ...BatchOption) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.projection != nil:
		b.SetProjectionMatrix(*o.projection)
	case o.camera != nil:
		b.SetProjectionMatrix(o.camera.Combined())
	}
	b.Begin()
}

// UseBatch starts b with BeginBatch, runs fn, and always calls b.End.
//
// Example:
//
//	err := graphics.UseBatch(batch, func(b *opengl.Batch) error {
//		b.FillRect(0, 0, 32, 32, color.RGBA{R: 255, A: 255})
//		return nil
//	}, graphics.WithCamera(cam))
func UseBatch[B Batch](b B, fn func(B) error, opts ...BatchOption) error {
	BeginBatch(b, opts...)
	defer b.End()
	return fn(b)
}
