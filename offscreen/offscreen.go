// Package offscreen provides a WebGPU render target that needs no window.
// It implements graphics.FrameBuffer and graphics.BackBuffer, so it can be
// bracketed with graphics.UseFrameBuffer and captured with
// graphics.TakeScreenshot.
package offscreen

import (
	"fmt"
	"image/color"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gmlewis/gfxscope/graphics"
)

// Target is an RGBA8 texture rendered through a WebGPU render pass.
//
// Begin opens a command encoder and a render pass on the texture; End
// finishes the pass and submits it. Begin and End cannot return errors, so
// failures are kept and reported by Err and by the next ReadPixels.
type Target struct {
	width       int
	height      int
	bytesPerRow uint32

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	texture    *wgpu.Texture
	view       *wgpu.TextureView
	readBuffer *wgpu.Buffer

	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	passID  int
	clear   *wgpu.Color
	err     error
}

var (
	_ graphics.FrameBuffer = &Target{}
	_ graphics.BackBuffer  = &Target{}
)

// New creates a width×height target on the default adapter.
func New(width, height int) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %vx%v", width, height)
	}
	t := &Target{width: width, height: height}

	t.instance = wgpu.CreateInstance(nil)
	if t.instance == nil {
		return nil, fmt.Errorf("failed to create wgpu instance")
	}

	var err error
	t.adapter, err = t.instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to request wgpu adapter: %w", err)
	}

	t.device, err = t.adapter.RequestDevice(nil)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to request wgpu device: %w", err)
	}
	t.queue = t.device.GetQueue()

	t.texture, err = t.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Offscreen Target",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to create target texture: %w", err)
	}
	t.view, err = t.texture.CreateView(nil)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to create texture view: %w", err)
	}

	t.bytesPerRow = alignedBytesPerRow(width)
	t.readBuffer, err = t.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Read Buffer",
		Size:  uint64(t.bytesPerRow * uint32(height)),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to create read buffer: %w", err)
	}

	graphics.Logger().Debug("offscreen target created", "width", width, "height", height, "bytesPerRow", t.bytesPerRow)
	return t, nil
}

// Device returns the device, for creating pipelines and buffers.
func (t *Target) Device() *wgpu.Device { return t.device }

// Queue returns the device queue.
func (t *Target) Queue() *wgpu.Queue { return t.queue }

// Format is the texture format pipelines must target.
func (t *Target) Format() wgpu.TextureFormat { return wgpu.TextureFormatRGBA8Unorm }

// Pass returns the render pass opened by Begin, or nil outside Begin/End.
func (t *Target) Pass() *wgpu.RenderPassEncoder { return t.pass }

// Err returns the first error raised by Begin or End.
func (t *Target) Err() error { return t.err }

// Clear makes the next Begin clear the texture to c instead of keeping
// its contents.
func (t *Target) Clear(c color.RGBA) {
	t.clear = &wgpu.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

func (t *Target) Begin() {
	if t.encoder != nil {
		panic("offscreen: Target.End must be called before Begin")
	}

	encoder, err := t.device.CreateCommandEncoder(nil)
	if err != nil {
		t.fail(fmt.Errorf("failed to create command encoder: %w", err))
		return
	}
	t.encoder = encoder

	attachment := wgpu.RenderPassColorAttachment{
		View:    t.view,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if t.clear != nil {
		attachment.LoadOp = wgpu.LoadOpClear
		attachment.ClearValue = *t.clear
		t.clear = nil
	}
	t.passID++
	t.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
}

func (t *Target) End() {
	if t.encoder == nil {
		return
	}
	defer func() {
		t.encoder.Release()
		t.encoder = nil
	}()

	if t.pass != nil {
		err := t.pass.End()
		t.pass.Release()
		t.pass = nil
		if err != nil {
			t.fail(fmt.Errorf("failed to end render pass: %w", err))
			return
		}
	}

	commandBuffer, err := t.encoder.Finish(nil)
	if err != nil {
		t.fail(fmt.Errorf("failed to finish command encoder: %w", err))
		return
	}
	t.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (t *Target) fail(err error) {
	graphics.Logger().Warn("offscreen target", "error", err)
	if t.err == nil {
		t.err = err
	}
}

// BackBufferSize returns the texture dimensions.
func (t *Target) BackBufferSize() (width, height int) {
	return t.width, t.height
}

// ReadPixels copies the texture back to the CPU and returns the requested
// area with rows ordered from the bottom, matching glReadPixels.
func (t *Target) ReadPixels(x, y, width, height int) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.encoder != nil {
		return nil, fmt.Errorf("ReadPixels called between Begin and End")
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return nil, fmt.Errorf("read area (%v,%v) %vx%v outside %vx%v target", x, y, width, height, t.width, t.height)
	}

	encoder, err := t.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	encoder.CopyTextureToBuffer(
		t.texture.AsImageCopy(),
		&wgpu.ImageCopyBuffer{
			Buffer: t.readBuffer,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  t.bytesPerRow,
				RowsPerImage: uint32(t.height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(t.width),
			Height:             uint32(t.height),
			DepthOrArrayLayers: 1,
		},
	)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to finish copy encoder: %w", err)
	}
	t.queue.Submit(commandBuffer)
	commandBuffer.Release()

	size := uint64(t.bytesPerRow * uint32(t.height))
	done := make(chan struct{})
	var mapStatus wgpu.BufferMapAsyncStatus
	t.readBuffer.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
		close(done)
	})
	for mapped := false; !mapped; {
		t.device.Poll(false, nil)
		select {
		case <-done:
			mapped = true
		default:
		}
	}
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("failed to map read buffer: %v", mapStatus)
	}

	data := t.readBuffer.GetMappedRange(0, uint(size))
	pix := extractRows(data, t.bytesPerRow, t.height, x, y, width, height)
	t.readBuffer.Unmap()

	return pix, nil
}

// Close releases every GPU object.
func (t *Target) Close() {
	if t.readBuffer != nil {
		t.readBuffer.Release()
		t.readBuffer = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
	if t.device != nil {
		t.device.Release()
		t.device = nil
	}
	if t.adapter != nil {
		t.adapter.Release()
		t.adapter = nil
	}
	if t.instance != nil {
		t.instance.Release()
		t.instance = nil
	}
}

// alignedBytesPerRow rounds a row of RGBA8 pixels up to the 256-byte
// alignment WebGPU requires for texture-to-buffer copies.
func alignedBytesPerRow(width int) uint32 {
	return (uint32(width*4) + 255) &^ 255
}

// extractRows copies the area at (x,y) (lower-left origin) out of padded,
// top-down texture rows and returns it tightly packed, bottom row first.
func extractRows(data []byte, bytesPerRow uint32, texHeight, x, y, width, height int) []byte {
	rowLen := width * 4
	pix := make([]byte, rowLen*height)
	for r := 0; r < height; r++ {
		texRow := texHeight - 1 - (y + r)
		start := texRow*int(bytesPerRow) + x*4
		copy(pix[r*rowLen:(r+1)*rowLen], data[start:start+rowLen])
	}
	return pix
}
