package imageio

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// numbered returns a w x h image whose red channel encodes x and green
// channel encodes y.
func numbered(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestUpright(t *testing.T) {
	src := numbered(3, 2) // w=3, h=2
	tests := []struct {
		orientation int
		w, h        int
		// source pixel expected at destination (0,0) and (w-1,0)
		topLeft, topRight [2]int
	}{
		{1, 3, 2, [2]int{0, 0}, [2]int{2, 0}},
		{2, 3, 2, [2]int{2, 0}, [2]int{0, 0}},
		{3, 3, 2, [2]int{2, 1}, [2]int{0, 1}},
		{4, 3, 2, [2]int{0, 1}, [2]int{2, 1}},
		{5, 2, 3, [2]int{0, 0}, [2]int{0, 1}},
		{6, 2, 3, [2]int{0, 1}, [2]int{0, 0}},
		{7, 2, 3, [2]int{2, 1}, [2]int{2, 0}},
		{8, 2, 3, [2]int{2, 0}, [2]int{2, 1}},
		{9, 3, 2, [2]int{0, 0}, [2]int{2, 0}},
	}
	for _, tt := range tests {
		got := Upright(src, tt.orientation)
		b := got.Bounds()
		if b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("orientation %d: size %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.w, tt.h)
			continue
		}
		for _, c := range []struct {
			x    int
			want [2]int
		}{{0, tt.topLeft}, {tt.w - 1, tt.topRight}} {
			r, g, _, _ := got.At(c.x, 0).RGBA()
			if int(r>>8) != c.want[0] || int(g>>8) != c.want[1] {
				t.Errorf("orientation %d: pixel (%d,0) from source (%d,%d), want %v",
					tt.orientation, c.x, r>>8, g>>8, c.want)
			}
		}
	}
}

// withOrientation inserts a minimal EXIF APP1 segment carrying the
// orientation tag right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, orientation uint16) []byte {
	t.Helper()
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8))
	binary.Write(&tiff, binary.BigEndian, uint16(1)) // one IFD entry
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112))
	binary.Write(&tiff, binary.BigEndian, uint16(3)) // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, orientation)
	binary.Write(&tiff, binary.BigEndian, uint16(0))
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 230, G: 20, B: 20, A: 255}
			if x >= w/2 {
				c = color.RGBA{R: 20, G: 20, B: 230, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r>>8 > 150 && b>>8 < 100
}

func isBlue(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return b>>8 > 150 && r>>8 < 100
}

func TestLoadRotatesOrientedJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, halves(40, 20), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	plain := buf.Bytes()
	if got := Orientation(plain); got != 1 {
		t.Fatalf("Orientation without EXIF = %d, want 1", got)
	}

	data := withOrientation(t, plain, 6)
	if got := Orientation(data); got != 6 {
		t.Fatalf("Orientation = %d, want 6", got)
	}
	img, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Fatalf("expected portrait 20x40, got %dx%d", b.Dx(), b.Dy())
	}
	// Rotating clockwise puts the left (red) half on top.
	if !isRed(img.At(10, 5)) || !isBlue(img.At(10, 34)) {
		t.Fatalf("unexpected colors top=%v bottom=%v", img.At(10, 5), img.At(10, 34))
	}
}
