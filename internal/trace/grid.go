// Package trace follows the tear line across a binary edge image.
package trace

import (
	"math"

	"tornedge/pkg/geometry"
)

// Grid is a read-only binary image. At reports whether (x, y) is a
// foreground (edge) pixel; coordinates outside the grid are background.
type Grid interface {
	Width() int
	Height() int
	At(x, y int) bool
}

// Bitmap is an in-memory Grid.
type Bitmap struct {
	W, H int
	Pix  []bool
}

// NewBitmap allocates an all-background bitmap.
func NewBitmap(w, h int) *Bitmap {
	return &Bitmap{W: w, H: h, Pix: make([]bool, w*h)}
}

// ParseBitmap builds a bitmap from rows of text where '#' marks foreground.
// Rows shorter than the longest are padded with background.
func ParseBitmap(rows ...string) *Bitmap {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	b := NewBitmap(w, len(rows))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			if r[x] == '#' {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

func (b *Bitmap) Width() int  { return b.W }
func (b *Bitmap) Height() int { return b.H }

func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return false
	}
	return b.Pix[y*b.W+x]
}

// Set marks (x, y). Out-of-range coordinates are ignored.
func (b *Bitmap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	b.Pix[y*b.W+x] = v
}

// Foreground lists every foreground pixel in row-major order.
func Foreground(g Grid) []geometry.PointInt {
	var pts []geometry.PointInt
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if g.At(x, y) {
				pts = append(pts, geometry.PointInt{X: x, Y: y})
			}
		}
	}
	return pts
}

// Nearest returns the point closest to target by Euclidean distance. The
// first of several equidistant points wins. ok is false for an empty list.
func Nearest(points []geometry.PointInt, target geometry.Point2D) (geometry.PointInt, bool) {
	if len(points) == 0 {
		return geometry.PointInt{}, false
	}
	best := points[0]
	bestDist := math.Inf(1)
	for _, p := range points {
		d := p.ToFloat().Distance(target)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}
