package opengl

import (
	"fmt"
	"image/color"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gmlewis/gfxscope/graphics"
	"github.com/gmlewis/gfxscope/internal/quad"
)

// Batch collects solid rectangles and draws them with as few draw calls as
// possible. Geometry is flushed on End, when the projection changes while
// drawing, and when the batch is full.
type Batch struct {
	shader   *ShaderProgram
	vao      uint32
	vbo      uint32
	maxQuads int

	vertices   []float32
	projection mgl32.Mat4
	drawing    bool

	// RenderCalls counts draw calls since the last Begin.
	RenderCalls int
}

var _ graphics.Batch = &Batch{}

// NewBatch returns a batch that holds up to maxQuads rectangles between
// flushes. The projection matrix starts as the identity.
func NewBatch(maxQuads int) (*Batch, error) {
	if maxQuads <= 0 {
		return nil, fmt.Errorf("invalid batch size %v", maxQuads)
	}
	shader, err := NewShaderProgram(batchVertexShader, batchFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("batch shader: %w", err)
	}

	b := &Batch{
		shader:     shader,
		maxQuads:   maxQuads,
		vertices:   make([]float32, 0, maxQuads*quad.FloatsPerQuad),
		projection: mgl32.Ident4(),
	}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, maxQuads*quad.FloatsPerQuad*4, nil, gl.DYNAMIC_DRAW)

	posAttrib := uint32(shader.AttributeLocation("a_position"))
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, quad.FloatsPerVertex*4, gl.PtrOffset(0))

	colorAttrib := uint32(shader.AttributeLocation("a_color"))
	gl.EnableVertexAttribArray(colorAttrib)
	gl.VertexAttribPointer(colorAttrib, 4, gl.FLOAT, false, quad.FloatsPerVertex*4, gl.PtrOffset(2*4))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	return b, nil
}

// ProjectionMatrix returns the current projection.
func (b *Batch) ProjectionMatrix() mgl32.Mat4 { return b.projection }

// SetProjectionMatrix replaces the projection. Pending geometry is drawn
// with the old projection first.
func (b *Batch) SetProjectionMatrix(m mgl32.Mat4) {
	if b.drawing {
		b.flush()
	}
	b.projection = m
	if b.drawing {
		b.shader.SetUniformMatrix("u_projTrans", m)
	}
}

// Begin prepares the batch for drawing. It panics if the batch is already
// drawing.
func (b *Batch) Begin() {
	if b.drawing {
		panic("opengl: Batch.End must be called before Begin")
	}
	b.RenderCalls = 0

	gl.DepthMask(false)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	b.shader.Begin()
	b.shader.SetUniformMatrix("u_projTrans", b.projection)
	b.drawing = true
}

// End draws any pending geometry and restores GL state. It panics if the
// batch is not drawing.
func (b *Batch) End() {
	if !b.drawing {
		panic("opengl: Batch.Begin must be called before End")
	}
	b.flush()
	b.drawing = false

	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
	b.shader.End()
}

// IsDrawing reports whether the batch is between Begin and End.
func (b *Batch) IsDrawing() bool { return b.drawing }

// FillRect queues a solid rectangle with its lower-left corner at (x,y).
func (b *Batch) FillRect(x, y, width, height float32, c color.RGBA) {
	if !b.drawing {
		panic("opengl: Batch.Begin must be called before FillRect")
	}
	if len(b.vertices) >= b.maxQuads*quad.FloatsPerQuad {
		b.flush()
	}
	b.vertices = quad.Append(b.vertices, x, y, width, height, c)
}

func (b *Batch) flush() {
	if len(b.vertices) == 0 {
		return
	}
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(b.vertices)*4, gl.Ptr(b.vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(b.vertices)/quad.FloatsPerVertex))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	b.vertices = b.vertices[:0]
	b.RenderCalls++
}

// Dispose releases the GL objects and the batch shader.
func (b *Batch) Dispose() {
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
		b.vbo = 0
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	b.shader.Dispose()
}

const batchVertexShader = "#version 330\nuniform mat4 u_projTrans;\nin vec2 a_position;\nin vec4 a_color;\nout vec4 v_color;\nvoid main() {\n\tv_color = a_color;\n\tgl_Position = u_projTrans * vec4(a_position, 0.0, 1.0);\n}"

const batchFragmentShader = "#version 330\nprecision highp float;\nin vec4 v_color;\nout vec4 outputColor;\nvoid main() {\n\toutputColor = v_color;\n}"
