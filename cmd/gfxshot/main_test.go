package main

import (
	"image/color"
	"testing"
)

type rect struct {
	x, y, w, h float32
	c          color.RGBA
}

type recordingFiller struct {
	rects []rect
}

func (r *recordingFiller) FillRect(x, y, width, height float32, c color.RGBA) {
	r.rects = append(r.rects, rect{x: x, y: y, w: width, h: height, c: c})
}

func TestDrawScene(t *testing.T) {
	tests := []struct {
		name          string
		width, height float32
	}{
		{name: "landscape", width: 640, height: 480},
		{name: "portrait", width: 100, height: 400},
		{name: "square", width: 17, height: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f recordingFiller
			drawScene(&f, tt.width, tt.height)

			if len(f.rects) != 8 {
				t.Fatalf("drawScene drew %v bars, want 8", len(f.rects))
			}
			for i, r := range f.rects {
				if r.x < 0 || r.y < 0 || r.x+r.w > tt.width || r.y+r.h > tt.height+1e-3 {
					t.Errorf("bar %v = %+v, outside %vx%v", i, r, tt.width, tt.height)
				}
				if r.c.A != 0xff {
					t.Errorf("bar %v alpha = %v, want opaque", i, r.c.A)
				}
				if i == 0 {
					continue
				}
				prev := f.rects[i-1]
				if r.h <= prev.h {
					t.Errorf("bar %v height %v, want taller than bar %v (%v)", i, r.h, i-1, prev.h)
				}
				if r.x <= prev.x+prev.w {
					t.Errorf("bar %v at x=%v overlaps bar %v", i, r.x, i-1)
				}
				if r.y != prev.y {
					t.Errorf("bar %v base %v, want %v", i, r.y, prev.y)
				}
			}
		})
	}
}
