package graphics

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an image file format for screenshots.
type Format int

const (
	PNG Format = iota
	BMP
	TIFF
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromPath picks the format matching the file extension of path.
// Unknown or missing extensions fall back to PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return BMP
	case ".tif", ".tiff":
		return TIFF
	}
	return PNG
}

// ScreenshotOptions controls how a screenshot is encoded.
type ScreenshotOptions struct {
	// Flip turns the lower-left origin rows of the back buffer into an
	// upright, top-down image.
	Flip bool
	// Format is the output encoding.
	Format Format
	// Compression applies to PNG only. The zero value is png.DefaultCompression.
	Compression png.CompressionLevel
}

// Capture reads the whole back buffer into an image.
func Capture(bb BackBuffer, flip bool) (*image.RGBA, error) {
	width, height := bb.BackBufferSize()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid back buffer size %vx%v", width, height)
	}

	pix, err := bb.ReadPixels(0, 0, width, height)
	if err != nil {
		return nil, err
	}
	stride := width * 4
	if len(pix) < stride*height {
		return nil, fmt.Errorf("short pixel read: got %v bytes, want %v", len(pix), stride*height)
	}

	rgba := &image.RGBA{
		Pix:    make([]uint8, stride*height),
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}
	for y := 0; y < height; y++ {
		src := y
		if flip {
			src = height - y - 1
		}
		copy(rgba.Pix[y*stride:(y+1)*stride], pix[src*stride:(src+1)*stride])
	}
	return rgba, nil
}

// WriteScreenshot captures the back buffer and encodes it to w.
func WriteScreenshot(w io.Writer, bb BackBuffer, opts ScreenshotOptions) error {
	img, err := Capture(bb, opts.Flip)
	if err != nil {
		return err
	}
	return encode(w, img, opts)
}

func encode(w io.Writer, img image.Image, opts ScreenshotOptions) error {
	switch opts.Format {
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		enc := &png.Encoder{CompressionLevel: opts.Compression}
		return enc.Encode(w, img)
	}
}

// TakeScreenshot writes the whole back buffer to path, creating or
// truncating the file. The format follows the file extension.
//
// The pixels are read before the file is opened, so a failed read leaves
// any existing file untouched.
func TakeScreenshot(bb BackBuffer, path string, flip bool) error {
	img, err := Capture(bb, flip)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	opts := ScreenshotOptions{Flip: flip, Format: FormatFromPath(path)}
	if err := encode(f, img, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	b := img.Bounds()
	Logger().Debug("wrote screenshot", "path", path, "format", opts.Format, "width", b.Dx(), "height", b.Dy(), "flip", flip)
	return nil
}
