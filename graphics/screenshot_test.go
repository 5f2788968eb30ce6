package graphics

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// fakeBackBuffer stores rows lower-left first, like glReadPixels.
type fakeBackBuffer struct {
	width, height int
	err           error
	reads         int
}

func (f *fakeBackBuffer) BackBufferSize() (int, int) { return f.width, f.height }

func (f *fakeBackBuffer) ReadPixels(x, y, width, height int) ([]byte, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	pix := make([]byte, width*height*4)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			c := f.colorAt(col, row)
			i := (row*width + col) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return pix, nil
}

// colorAt returns the color of the pixel at column x of GL row y.
func (f *fakeBackBuffer) colorAt(x, y int) color.RGBA {
	return color.RGBA{R: uint8(40 * x), G: uint8(60 * y), B: 200, A: 255}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	b := img.Bounds()
	return color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
}

func checkOrientation(t *testing.T, img image.Image, bb *fakeBackBuffer, flip bool) {
	t.Helper()
	b := img.Bounds()
	if b.Dx() != bb.width || b.Dy() != bb.height {
		t.Fatalf("image size = %vx%v, want %vx%v", b.Dx(), b.Dy(), bb.width, bb.height)
	}
	for y := 0; y < bb.height; y++ {
		glRow := y
		if flip {
			glRow = bb.height - y - 1
		}
		for x := 0; x < bb.width; x++ {
			if got, want := rgbaAt(img, x, y), bb.colorAt(x, glRow); got != want {
				t.Errorf("pixel (%v,%v) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCapture(t *testing.T) {
	for _, flip := range []bool{true, false} {
		bb := &fakeBackBuffer{width: 4, height: 3}
		img, err := Capture(bb, flip)
		if err != nil {
			t.Fatalf("Capture(flip=%v): %v", flip, err)
		}
		checkOrientation(t, img, bb, flip)
	}
}

func TestCaptureInvalidSize(t *testing.T) {
	bb := &fakeBackBuffer{width: 0, height: 4}
	if _, err := Capture(bb, true); err == nil {
		t.Fatal("Capture succeeded on an empty back buffer")
	}
	if bb.reads != 0 {
		t.Errorf("ReadPixels called %v times, want 0", bb.reads)
	}
}

type shortBackBuffer struct{}

func (shortBackBuffer) BackBufferSize() (int, int)                { return 4, 4 }
func (shortBackBuffer) ReadPixels(x, y, w, h int) ([]byte, error) { return make([]byte, 10), nil }

func TestCaptureShortRead(t *testing.T) {
	if _, err := Capture(shortBackBuffer{}, true); err == nil {
		t.Fatal("Capture succeeded on a short pixel read")
	}
}

func TestTakeScreenshot(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		flip   bool
		decode func([]byte) (image.Image, error)
	}{
		{
			name:   "png flipped",
			file:   "screenshot.png",
			flip:   true,
			decode: func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		},
		{
			name:   "png unflipped",
			file:   "screenshot.png",
			decode: func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		},
		{
			name:   "no extension",
			file:   "screenshot",
			flip:   true,
			decode: func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
		},
		{
			name:   "bmp",
			file:   "screenshot.BMP",
			flip:   true,
			decode: func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
		},
		{
			name:   "tiff",
			file:   "screenshot.tif",
			flip:   true,
			decode: func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb := &fakeBackBuffer{width: 4, height: 4}
			path := filepath.Join(t.TempDir(), tt.file)

			if err := TakeScreenshot(bb, path, tt.flip); err != nil {
				t.Fatalf("TakeScreenshot: %v", err)
			}

			buf, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			img, err := tt.decode(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			checkOrientation(t, img, bb, tt.flip)
		})
	}
}

func TestTakeScreenshotTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.png")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 1<<16), 0644); err != nil {
		t.Fatal(err)
	}

	bb := &fakeBackBuffer{width: 2, height: 2}
	if err := TakeScreenshot(bb, path, true); err != nil {
		t.Fatalf("TakeScreenshot: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("file is not a clean PNG: %v", err)
	}
}

func TestTakeScreenshotErrors(t *testing.T) {
	readErr := errors.New("gl: context lost")
	bb := &fakeBackBuffer{width: 4, height: 4, err: readErr}
	path := filepath.Join(t.TempDir(), "screenshot.png")

	if err := TakeScreenshot(bb, path, true); err != readErr {
		t.Errorf("TakeScreenshot error = %v, want %v", err, readErr)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat after failed read = %v, want not exist", err)
	}

	bb = &fakeBackBuffer{width: 4, height: 4}
	missing := filepath.Join(t.TempDir(), "no-such-dir", "screenshot.png")
	err := TakeScreenshot(bb, missing, true)
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("TakeScreenshot error = %v, want *fs.PathError for a missing directory", err)
	}
}

// TestTakeScreenshotEncodeError writes to /dev/full, which accepts the
// file but fails every write with ENOSPC.
func TestTakeScreenshotEncodeError(t *testing.T) {
	const path = "/dev/full"
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Skipf("%v not writable: %v", path, err)
	}
	f.Close()

	bb := &fakeBackBuffer{width: 4, height: 4}
	err = TakeScreenshot(bb, path, true)
	if !errors.Is(err, syscall.ENOSPC) {
		t.Errorf("TakeScreenshot error = %v, want ENOSPC", err)
	}
	if bb.reads != 1 {
		t.Errorf("ReadPixels called %v times, want 1", bb.reads)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteScreenshot(t *testing.T) {
	bb := &fakeBackBuffer{width: 3, height: 5}
	var buf bytes.Buffer
	if err := WriteScreenshot(&buf, bb, ScreenshotOptions{Flip: true, Compression: png.BestSpeed}); err != nil {
		t.Fatalf("WriteScreenshot: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	checkOrientation(t, img, bb, true)

	writeErr := errors.New("disk full")
	if err := WriteScreenshot(failingWriter{writeErr}, bb, ScreenshotOptions{}); err != writeErr {
		t.Errorf("WriteScreenshot error = %v, want %v", err, writeErr)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"shot.png":     PNG,
		"shot":         PNG,
		"shot.jpg":     PNG,
		"dir.bmp/shot": PNG,
		"shot.bmp":     BMP,
		"SHOT.TIFF":    TIFF,
		"a/b/shot.tif": TIFF,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", path, got, want)
		}
	}
}
