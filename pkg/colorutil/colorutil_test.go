package colorutil

import "testing"

func TestMeanShiftFilterFlattensNoise(t *testing.T) {
	const w, h = 12, 6
	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			base := uint8(40)
			if x >= w/2 {
				base = 220
			}
			// +-3 ripple well inside the color radius
			jitter := uint8((x + y) % 3)
			pix[i], pix[i+1], pix[i+2] = base+jitter, base+jitter, base+jitter
		}
	}

	out := MeanShiftFilter(pix, w, h, 2, 20)
	if len(out) != len(pix) {
		t.Fatalf("unexpected output size %d", len(out))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			want := 40
			if x >= w/2 {
				want = 220
			}
			if d := int(out[i]) - want; d < -3 || d > 3 {
				t.Fatalf("pixel (%d,%d) = %d, want about %d", x, y, out[i], want)
			}
		}
	}
}

func TestMeanShiftFilterKeepsInputIntact(t *testing.T) {
	pix := []uint8{10, 20, 30, 200, 210, 220}
	orig := append([]uint8(nil), pix...)
	MeanShiftFilter(pix, 2, 1, 5, 20)
	for i := range pix {
		if pix[i] != orig[i] {
			t.Fatal("input buffer was modified")
		}
	}
}
