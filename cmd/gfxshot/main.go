// Command gfxshot renders a small test scene and writes a screenshot of
// it. The scene is drawn off-screen unless -view is given, in which case
// the visible window's back buffer is captured.
//
// Usage:
//
//	gfxshot -width 640 -height 480 -out scene.png
//	gfxshot -view -out window.tif
//	gfxshot -backend webgpu -out scene.bmp
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"os"

	"github.com/gmlewis/gfxscope/camera"
	"github.com/gmlewis/gfxscope/graphics"
	"github.com/gmlewis/gfxscope/offscreen"
	"github.com/gmlewis/gfxscope/opengl"
)

var background = color.RGBA{R: 0x20, G: 0x24, B: 0x30, A: 0xff}

func main() {
	var (
		width   = flag.Int("width", 640, "back buffer width in pixels")
		height  = flag.Int("height", 480, "back buffer height in pixels")
		out     = flag.String("out", "screenshot.png", "output file (.png, .bmp, .tif)")
		flip    = flag.Bool("flip", true, "flip rows so the image is upright")
		backend = flag.String("backend", "gl", "rendering backend: gl or webgpu")
		view    = flag.Bool("view", false, "render to the visible OpenGL window and capture its back buffer")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	graphics.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var err error
	switch *backend {
	case "gl":
		err = runGL(*width, *height, *out, *flip, *view)
	case "webgpu":
		err = runWebGPU(*width, *height, *out, *flip)
	default:
		err = fmt.Errorf("unknown backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("gfxshot: %v", err)
	}

	log.Printf("Screenshot saved to %s (%dx%d)\n", *out, *width, *height)
}

func runGL(width, height int, out string, flip, view bool) error {
	win, err := opengl.NewWindow(width, height, "gfxshot", view)
	if err != nil {
		return err
	}
	defer win.Close()

	batch, err := opengl.NewBatch(256)
	if err != nil {
		return err
	}
	defer batch.Dispose()

	cam := camera.NewOrthographic(float32(width), float32(height))
	draw := func(b *opengl.Batch) error {
		drawScene(b, float32(width), float32(height))
		return nil
	}

	if view {
		opengl.Clear(background)
		if err := graphics.UseBatch(batch, draw, graphics.WithCamera(cam)); err != nil {
			return err
		}
		// Read before SwapBuffers: the back buffer is undefined afterwards.
		if err := graphics.TakeScreenshot(win, out, flip); err != nil {
			return err
		}
		win.SwapBuffers()
		win.PollEvents()
		return nil
	}

	fb, err := opengl.NewFrameBuffer(width, height, false)
	if err != nil {
		return err
	}
	defer fb.Dispose()

	err = graphics.UseFrameBuffer(fb, func(fb *opengl.FrameBuffer) error {
		opengl.Clear(background)
		return graphics.UseBatch(batch, draw, graphics.WithCamera(cam))
	})
	if err != nil {
		return err
	}

	return graphics.TakeScreenshot(fb, out, flip)
}

// rectFiller is the drawing surface shared by both backends' batches.
type rectFiller interface {
	FillRect(x, y, width, height float32, c color.RGBA)
}

// drawScene draws a row of bars whose heights grow left to right, so a
// flipped screenshot is easy to spot.
func drawScene(b rectFiller, width, height float32) {
	const bars = 8
	barW := width / (2*bars + 1)
	margin := height / (2*bars + 1)
	for i := 0; i < bars; i++ {
		x := barW * float32(2*i+1)
		h := (height - 2*margin) * float32(i+1) / bars
		c := color.RGBA{R: uint8(255 * i / (bars - 1)), G: 0x80, B: uint8(255 - 255*i/(bars-1)), A: 0xff}
		b.FillRect(x, margin, barW, h, c)
	}
}

func runWebGPU(width, height int, out string, flip bool) error {
	target, err := offscreen.New(width, height)
	if err != nil {
		return err
	}
	defer target.Close()

	batch, err := offscreen.NewBatch(target, 256)
	if err != nil {
		return err
	}
	defer batch.Dispose()

	cam := camera.NewOrthographic(float32(width), float32(height))

	target.Clear(background)
	err = graphics.UseFrameBuffer(target, func(*offscreen.Target) error {
		return graphics.UseBatch(batch, func(b *offscreen.Batch) error {
			drawScene(b, float32(width), float32(height))
			return nil
		}, graphics.WithCamera(cam))
	})
	if err != nil {
		return err
	}
	if err := target.Err(); err != nil {
		return err
	}

	return graphics.TakeScreenshot(target, out, flip)
}
