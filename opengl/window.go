// Package opengl implements the graphics resources (shader programs,
// framebuffers, batches and the window back buffer) on top of OpenGL 4.1
// core.
//
// All calls must happen on the goroutine that created the Window.
package opengl

import (
	"fmt"
	"image/color"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gmlewis/gfxscope/graphics"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Window is a glfw window with a current OpenGL context.
type Window struct {
	window *glfw.Window
}

var _ graphics.BackBuffer = &Window{}

// NewWindow creates a width×height window and makes its context current.
// A window that is not visible is still usable for off-screen rendering
// and screenshots.
func NewWindow(width, height int, title string, visible bool) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw.Init: %v", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if !visible {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}
	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("CreateWindow(%v,%v): %v", width, height, err)
	}
	w.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("gl.Init: %v", err)
	}

	graphics.Logger().Info("OpenGL context ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return &Window{window: w}, nil
}

// BackBufferSize returns the framebuffer size in pixels, which may differ
// from the window size on high-DPI displays.
func (w *Window) BackBufferSize() (width, height int) {
	return w.window.GetFramebufferSize()
}

// ReadPixels reads an area of the default framebuffer.
func (w *Window) ReadPixels(x, y, width, height int) ([]byte, error) {
	var prev int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	defer gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prev))
	return readPixels(x, y, width, height)
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() { w.window.SwapBuffers() }

// PollEvents processes pending window events.
func (w *Window) PollEvents() { glfw.PollEvents() }

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

// Close destroys the window and terminates glfw.
func (w *Window) Close() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
		glfw.Terminate()
	}
}

// Clear clears the bound color and depth buffers to c.
func Clear(c color.RGBA) {
	gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// readPixels reads from the bound read framebuffer.
func readPixels(x, y, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid read area %vx%v", width, height)
	}
	pix := make([]byte, width*height*4)
	var alignment int32
	gl.GetIntegerv(gl.PACK_ALIGNMENT, &alignment)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	defer gl.PixelStorei(gl.PACK_ALIGNMENT, alignment)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pix[0]))
	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("gl.ReadPixels: GL ERROR: %v", e)
	}
	return pix, nil
}
