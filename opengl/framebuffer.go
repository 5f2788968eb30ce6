package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gmlewis/gfxscope/graphics"
)

// FrameBuffer is an off-screen RGBA8 render target with an optional depth
// buffer. Begin binds it and sets the viewport to its size; End restores
// the framebuffer and viewport that were current before Begin.
type FrameBuffer struct {
	fbo     uint32
	texture uint32
	depth   uint32
	width   int
	height  int

	prevFBO      int32
	prevViewport [4]int32
}

var (
	_ graphics.FrameBuffer = &FrameBuffer{}
	_ graphics.BackBuffer  = &FrameBuffer{}
)

// NewFrameBuffer creates a width×height framebuffer.
func NewFrameBuffer(width, height int, hasDepth bool) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid framebuffer size %vx%v", width, height)
	}
	f := &FrameBuffer{width: width, height: height}

	gl.GenTextures(1, &f.texture)
	gl.BindTexture(gl.TEXTURE_2D, f.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.GenFramebuffers(1, &f.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, f.texture, 0)

	if hasDepth {
		gl.GenRenderbuffers(1, &f.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, f.depth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(width), int32(height))
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, f.depth)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		f.Dispose()
		return nil, fmt.Errorf("framebuffer incomplete: status 0x%x", status)
	}

	graphics.Logger().Debug("framebuffer created", "fbo", f.fbo, "width", width, "height", height, "depth", hasDepth)
	return f, nil
}

// Texture returns the color attachment so the result can be drawn elsewhere.
func (f *FrameBuffer) Texture() uint32 { return f.texture }

func (f *FrameBuffer) Begin() {
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &f.prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &f.prevViewport[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.Viewport(0, 0, int32(f.width), int32(f.height))
}

func (f *FrameBuffer) End() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(f.prevFBO))
	gl.Viewport(f.prevViewport[0], f.prevViewport[1], f.prevViewport[2], f.prevViewport[3])
}

// BackBufferSize returns the framebuffer dimensions.
func (f *FrameBuffer) BackBufferSize() (width, height int) {
	return f.width, f.height
}

// ReadPixels reads an area of the color attachment. It may be called
// whether or not the framebuffer is bound.
func (f *FrameBuffer) ReadPixels(x, y, width, height int) ([]byte, error) {
	var prev int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.fbo)
	defer gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prev))
	return readPixels(x, y, width, height)
}

// Dispose releases the GL objects.
func (f *FrameBuffer) Dispose() {
	if f.depth != 0 {
		gl.DeleteRenderbuffers(1, &f.depth)
		f.depth = 0
	}
	if f.texture != 0 {
		gl.DeleteTextures(1, &f.texture)
		f.texture = 0
	}
	if f.fbo != 0 {
		gl.DeleteFramebuffers(1, &f.fbo)
		f.fbo = 0
	}
}
