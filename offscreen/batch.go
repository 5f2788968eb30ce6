package offscreen

import (
	"fmt"
	"image/color"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gmlewis/gfxscope/graphics"
	"github.com/gmlewis/gfxscope/internal/quad"
)

const (
	// uniformSlotSize is the default minUniformBufferOffsetAlignment.
	uniformSlotSize = 256
	// maxFlushesPerPass bounds the projection slots in the uniform buffer.
	maxFlushesPerPass = 64
)

// Batch draws solid rectangles into the render pass of a Target. It must
// be used between the target's Begin and End. Colors are written without
// blending.
//
// Every flush within one render pass gets its own region of the vertex
// buffer and its own projection slot, because queue writes land before the
// pass is submitted. A pass may hold at most maxQuads rectangles in total.
type Batch struct {
	target *Target

	pipeline      *wgpu.RenderPipeline
	bindGroup     *wgpu.BindGroup
	vertexBuffer  *wgpu.Buffer
	uniformBuffer *wgpu.Buffer
	maxQuads      int

	vertices   []float32
	projection mgl32.Mat4
	drawing    bool
	cursor     cursor

	// RenderCalls counts draw calls since the last Begin.
	RenderCalls int
}

var _ graphics.Batch = &Batch{}

// NewBatch builds the quad pipeline for t.
func NewBatch(t *Target, maxQuads int) (*Batch, error) {
	if maxQuads <= 0 {
		return nil, fmt.Errorf("invalid batch size %v", maxQuads)
	}
	b := &Batch{
		target:     t,
		maxQuads:   maxQuads,
		vertices:   make([]float32, 0, maxQuads*quad.FloatsPerQuad),
		projection: mgl32.Ident4(),
	}
	device := t.Device()

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: batchShader,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module: %w", err)
	}
	defer shaderModule.Release()

	b.vertexBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Batch Vertex Buffer",
		Size:  uint64(maxQuads * quad.FloatsPerQuad * 4),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create vertex buffer: %w", err)
	}

	b.uniformBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Batch Uniform Buffer",
		Size:  uniformSlotSize * maxFlushesPerPass,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create uniform buffer: %w", err)
	}

	bindGroupLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   16 * 4,
				},
			},
		},
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create bind group layout: %w", err)
	}
	defer bindGroupLayout.Release()

	b.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.uniformBuffer,
				Size:    16 * 4,
			},
		},
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create bind group: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	b.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: quad.FloatsPerVertex * 4,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x2,
							Offset:         0,
							ShaderLocation: 0,
						},
						{
							Format:         wgpu.VertexFormatFloat32x4,
							Offset:         2 * 4,
							ShaderLocation: 1,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    t.Format(),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		b.Dispose()
		return nil, fmt.Errorf("failed to create render pipeline: %w", err)
	}

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
}

// Begin starts collecting rectangles. The target must be between its own
// Begin and End. It panics if the batch is already drawing.
func (b *Batch) Begin() {
	if b.drawing {
		panic("offscreen: Batch.End must be called before Begin")
	}
	if b.target.Pass() == nil {
		b.target.fail(fmt.Errorf("batch begun outside a render pass"))
	}
	b.RenderCalls = 0
	b.drawing = true
}

// End draws any pending geometry. It panics if the batch is not drawing.
func (b *Batch) End() {
	if !b.drawing {
		panic("offscreen: Batch.Begin must be called before End")
	}
	b.flush()
	b.drawing = false
}

// FillRect queues a solid rectangle with its lower-left corner at (x,y).
func (b *Batch) FillRect(x, y, width, height float32, c color.RGBA) {
	if !b.drawing {
		panic("offscreen: Batch.Begin must be called before FillRect")
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
	defer func() { b.vertices = b.vertices[:0] }()

	pass := b.target.Pass()
	if pass == nil {
		return
	}
	vertexOffset, slot, ok := b.cursor.reserve(b.target.passID, len(b.vertices), b.maxQuads*quad.FloatsPerQuad, maxFlushesPerPass)
	if !ok {
		b.target.fail(fmt.Errorf("batch overflow: more than %v quads or %v flushes in one render pass", b.maxQuads, maxFlushesPerPass))
		return
	}
	uniformOffset := uint64(slot * uniformSlotSize)

	queue := b.target.Queue()
	queue.WriteBuffer(b.uniformBuffer, uniformOffset, wgpu.ToBytes(b.projection[:]))
	queue.WriteBuffer(b.vertexBuffer, vertexOffset, wgpu.ToBytes(b.vertices))

	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGroup, []uint32{uint32(uniformOffset)})
	pass.SetVertexBuffer(0, b.vertexBuffer, vertexOffset, uint64(len(b.vertices)*4))
	pass.Draw(uint32(len(b.vertices)/quad.FloatsPerVertex), 1, 0, 0)
	b.RenderCalls++
}

// Dispose releases the pipeline and buffers.
func (b *Batch) Dispose() {
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.vertexBuffer != nil {
		b.vertexBuffer.Release()
		b.vertexBuffer = nil
	}
}

// cursor tracks where the next flush of a render pass writes in the vertex
// and uniform buffers.
type cursor struct {
	passID int
	floats int
	slots  int
}

// reserve claims room for n floats and one projection slot in pass passID,
// starting over when the pass changes.
func (c *cursor) reserve(passID, n, maxFloats, maxSlots int) (vertexOffset uint64, slot int, ok bool) {
	if passID != c.passID {
		*c = cursor{passID: passID}
	}
	if c.floats+n > maxFloats || c.slots >= maxSlots {
		return 0, 0, false
	}
	vertexOffset, slot = uint64(c.floats*4), c.slots
	c.floats += n
	c.slots++
	return vertexOffset, slot, true
}

// mgl32 projections target OpenGL clip space, z in [-w,w]. WebGPU clips z
// to [0,w], so the vertex shader remaps it.
const batchShader = `
struct Uniforms {
    projection: mat4x4f,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) color: vec4f,
};

@vertex
fn vs_main(@location(0) pos: vec2f, @location(1) color: vec4f) -> VertexOutput {
    var out: VertexOutput;
    var p = uniforms.projection * vec4f(pos, 0.0, 1.0);
    p.z = 0.5 * (p.z + p.w);
    out.position = p;
    out.color = color;
    return out;
}

@fragment
fn fs_main(@location(0) color: vec4f) -> @location(0) vec4f {
    return color;
}
`
