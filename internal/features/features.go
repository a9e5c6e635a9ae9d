// Package features turns a traced tear contour into a FeatureSet: the shape
// curve, a height ratio, an angle at the middle of the tear and two position
// bits.
package features

import (
	"errors"
	"fmt"
	"math"

	"tornedge/internal/trace"
	"tornedge/pkg/geometry"
)

var (
	// ErrEmptyContour is returned for a contour without points.
	ErrEmptyContour = errors.New("features: empty contour")
	// ErrZeroWidth is returned when both ends of the contour share a column.
	ErrZeroWidth = errors.New("features: contour has zero width")
	// ErrShortContour is returned for contours too short to give a shape
	// derivative.
	ErrShortContour = errors.New("features: contour shorter than 3 points")
)

// MinContour is the shortest contour whose shape curve can be matched.
const MinContour = 3

const (
	heightDigits = 5
	cosineDigits = 10
)

// Position holds the two orientation bits of a tear.
type Position [2]int

// FeatureSet is the fingerprint of one fragment. It is created once and only
// read afterwards.
type FeatureSet struct {
	ShapeX   []float64 `json:"fs_x"`
	ShapeY   []float64 `json:"fs_y"`
	Height   float64   `json:"fh"`
	Angle    float64   `json:"fa"`
	Position Position  `json:"fp"`
}

// Extract computes every feature of c. edges is the edge image the contour
// was traced on; it is consulted by the angle feature only.
func Extract(c trace.Contour, edges trace.Grid) (FeatureSet, error) {
	if len(c) == 0 {
		return FeatureSet{}, ErrEmptyContour
	}
	if len(c) < MinContour {
		return FeatureSet{}, fmt.Errorf("%d points: %w", len(c), ErrShortContour)
	}
	fh, err := Height(c)
	if err != nil {
		return FeatureSet{}, err
	}
	fa, err := Angle(c, edges)
	if err != nil {
		return FeatureSet{}, err
	}
	fp, err := PositionOf(c)
	if err != nil {
		return FeatureSet{}, err
	}
	xs, ys := Shape(c)
	return FeatureSet{
		ShapeX:   xs,
		ShapeY:   ys,
		Height:   fh,
		Angle:    fa,
		Position: fp,
	}, nil
}

// Shape returns the raw coordinate sequences of the contour.
func Shape(c trace.Contour) (xs, ys []float64) {
	return c.Xs(), c.Ys()
}

// Downsample keeps every n-th point of c plus the last point.
func Downsample(c trace.Contour, every int) trace.Contour {
	if every <= 1 || len(c) == 0 {
		return append(trace.Contour(nil), c...)
	}
	out := make(trace.Contour, 0, len(c)/every+1)
	for i := 0; i < len(c); i += every {
		out = append(out, c[i])
	}
	if (len(c)-1)%every != 0 {
		out = append(out, c[len(c)-1])
	}
	return out
}

// Lowest returns the first point with the greatest y.
func Lowest(c trace.Contour) geometry.PointInt {
	low := c[0]
	for _, p := range c {
		if p.Y > low.Y {
			low = p
		}
	}
	return low
}

// Highest returns the first point with the smallest y.
func Highest(c trace.Contour) geometry.PointInt {
	high := c[0]
	for _, p := range c {
		if p.Y < high.Y {
			high = p
		}
	}
	return high
}

// Height is the vertical extent of the tear divided by its horizontal span
// between the two ends, rounded to five decimals.
func Height(c trace.Contour) (float64, error) {
	if len(c) == 0 {
		return 0, ErrEmptyContour
	}
	left, right := c[0], c[len(c)-1]
	width := math.Abs(float64(left.X - right.X))
	if width == 0 {
		return 0, ErrZeroWidth
	}
	extent := math.Abs(float64(Lowest(c).Y - Highest(c).Y))
	return roundTo(extent/width, heightDigits), nil
}

// PositionOf reports whether the left end sits higher than the right end and
// whether the lowest point lies left of the highest point.
func PositionOf(c trace.Contour) (Position, error) {
	if len(c) == 0 {
		return Position{}, ErrEmptyContour
	}
	var fp Position
	if c[0].Y < c[len(c)-1].Y {
		fp[0] = 1
	}
	if Lowest(c).X < Highest(c).X {
		fp[1] = 1
	}
	return fp, nil
}

// LeftmostInRow returns the leftmost foreground pixel of edges that lies in
// p's row strictly left of p. p itself is returned when there is none.
func LeftmostInRow(edges trace.Grid, p geometry.PointInt) geometry.PointInt {
	if edges == nil {
		return p
	}
	for x := 0; x < p.X; x++ {
		if edges.At(x, p.Y) {
			return geometry.PointInt{X: x, Y: p.Y}
		}
	}
	return p
}

// Angle is the angle in degrees at the middle point of the contour between
// the ray to the leftmost edge pixel in the lowest point's row and the ray to
// the lowest point.
func Angle(c trace.Contour, edges trace.Grid) (float64, error) {
	if len(c) == 0 {
		return 0, ErrEmptyContour
	}
	middle := c[len(c)/2]
	lowest := Lowest(c)
	return AngleAt(middle, LeftmostInRow(edges, lowest), lowest), nil
}

// AngleAt returns the angle in degrees at vertex between the rays to a and b.
// Zero vector components are replaced by machine epsilon.
func AngleAt(vertex, a, b geometry.PointInt) float64 {
	ax := nonZero(float64(a.X - vertex.X))
	ay := nonZero(float64(a.Y - vertex.Y))
	bx := nonZero(float64(b.X - vertex.X))
	by := nonZero(float64(b.Y - vertex.Y))

	cos := (ax*bx + ay*by) / (math.Hypot(ax, ay) * math.Hypot(bx, by))
	cos = math.Max(-1, math.Min(1, roundTo(cos, cosineDigits)))
	return math.Acos(cos) * 180 / math.Pi
}

const machineEpsilon = 2.220446049250313e-16

func nonZero(v float64) float64 {
	if v == 0 {
		return machineEpsilon
	}
	return v
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
