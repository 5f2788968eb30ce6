package offscreen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAlignedBytesPerRow(t *testing.T) {
	tests := []struct {
		width int
		want  uint32
	}{
		{width: 1, want: 256},
		{width: 64, want: 256},
		{width: 65, want: 512},
		{width: 800, want: 3328},
	}
	for _, tt := range tests {
		if got := alignedBytesPerRow(tt.width); got != tt.want {
			t.Errorf("alignedBytesPerRow(%v) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

// paddedTexture builds top-down texture rows where every pixel encodes its
// own column and top-down row.
func paddedTexture(width, height int, bytesPerRow uint32) []byte {
	data := make([]byte, int(bytesPerRow)*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			i := row*int(bytesPerRow) + col*4
			data[i], data[i+1], data[i+2], data[i+3] = byte(col), byte(row), 0, 255
		}
		// Fill padding so it is obvious if it leaks into the result.
		for i := row*int(bytesPerRow) + width*4; i < (row+1)*int(bytesPerRow); i++ {
			data[i] = 0xee
		}
	}
	return data
}

func TestExtractRowsFull(t *testing.T) {
	const width, height = 3, 2
	bpr := alignedBytesPerRow(width)
	data := paddedTexture(width, height, bpr)

	got := extractRows(data, bpr, height, 0, 0, width, height)
	want := []byte{
		// bottom row (top-down row 1)
		0, 1, 0, 255, 1, 1, 0, 255, 2, 1, 0, 255,
		// top row (top-down row 0)
		0, 0, 0, 255, 1, 0, 0, 255, 2, 0, 0, 255,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extractRows mismatch (-want +got):\n%v", diff)
	}
}

func TestExtractRowsSubArea(t *testing.T) {
	const width, height = 4, 4
	bpr := alignedBytesPerRow(width)
	data := paddedTexture(width, height, bpr)

	// 2x1 area starting at column 1 of the second row from the bottom,
	// which is top-down row 2.
	got := extractRows(data, bpr, height, 1, 1, 2, 1)
	want := []byte{1, 2, 0, 255, 2, 2, 0, 255}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extractRows mismatch (-want +got):\n%v", diff)
	}
}

func TestCursorReserve(t *testing.T) {
	var c cursor

	off, slot, ok := c.reserve(1, 36, 72, 2)
	if !ok || off != 0 || slot != 0 {
		t.Fatalf("first reserve = (%v,%v,%v), want (0,0,true)", off, slot, ok)
	}
	off, slot, ok = c.reserve(1, 36, 72, 2)
	if !ok || off != 36*4 || slot != 1 {
		t.Fatalf("second reserve = (%v,%v,%v), want (144,1,true)", off, slot, ok)
	}
	if _, _, ok := c.reserve(1, 1, 72, 4); ok {
		t.Error("reserve succeeded past the vertex capacity")
	}
	if _, _, ok := c.reserve(1, 0, 1000, 2); ok {
		t.Error("reserve succeeded past the slot capacity")
	}

	off, slot, ok = c.reserve(2, 36, 72, 2)
	if !ok || off != 0 || slot != 0 {
		t.Errorf("reserve in a new pass = (%v,%v,%v), want (0,0,true)", off, slot, ok)
	}
}
