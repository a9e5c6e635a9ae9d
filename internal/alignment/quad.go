// Package alignment rectifies the paper silhouette to an axis-aligned
// rectangle and reports the original top corners, which double as hints for
// the ends of the tear.
package alignment

import (
	"errors"
	"sort"

	"tornedge/pkg/geometry"
)

// ErrTooFewVertices is returned when the simplified silhouette has fewer
// than four vertices.
var ErrTooFewVertices = errors.New("alignment: silhouette has fewer than 4 vertices")

// Quad holds the four silhouette corners picked from the simplified polygon.
type Quad struct {
	LeftTop, LeftBottom, RightTop, RightBottom geometry.Point2D
}

// PickCorners sorts the polygon by x, takes the two leftmost and two
// rightmost vertices and orders each pair by y.
func PickCorners(poly []geometry.Point2D) (Quad, error) {
	if len(poly) < 4 {
		return Quad{}, ErrTooFewVertices
	}
	pts := append([]geometry.Point2D(nil), poly...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	lt, lb := byY(pts[0], pts[1])
	rt, rb := byY(pts[len(pts)-2], pts[len(pts)-1])
	return Quad{LeftTop: lt, LeftBottom: lb, RightTop: rt, RightBottom: rb}, nil
}

func byY(a, b geometry.Point2D) (top, bottom geometry.Point2D) {
	if b.Y < a.Y {
		return b, a
	}
	return a, b
}

// Topmost returns the first vertex with the smallest y.
func Topmost(poly []geometry.Point2D) geometry.Point2D {
	top := poly[0]
	for _, p := range poly[1:] {
		if p.Y < top.Y {
			top = p
		}
	}
	return top
}

// SourcePoints rebuilds the top edge as the mirror of the bottom edge slope
// through the topmost vertex and intersects it with the side edges. The
// result is ordered left-top, right-top, left-bottom, right-bottom, with the
// rebuilt corners truncated to whole pixels.
func SourcePoints(q Quad, top geometry.Point2D) [4]geometry.Point2D {
	bottom := geometry.LineThrough(q.LeftBottom, q.RightBottom)
	left := geometry.LineThrough(q.LeftTop, q.LeftBottom)
	right := geometry.LineThrough(q.RightTop, q.RightBottom)
	topEdge := geometry.LineWithSlope(top, -bottom.Slope)

	lc, ok := topEdge.Intersect(left)
	if !ok {
		lc = q.LeftTop
	}
	rc, ok := topEdge.Intersect(right)
	if !ok {
		rc = q.RightTop
	}
	return [4]geometry.Point2D{
		lc.Truncate().ToFloat(),
		rc.Truncate().ToFloat(),
		q.LeftBottom,
		q.RightBottom,
	}
}

// TargetPoints maps the source points to an axis-aligned rectangle whose
// sides sit at the second smallest and second largest x and y of the source.
func TargetPoints(src [4]geometry.Point2D) [4]geometry.Point2D {
	xs := []float64{src[0].X, src[1].X, src[2].X, src[3].X}
	ys := []float64{src[0].Y, src[1].Y, src[2].Y, src[3].Y}
	sort.Float64s(xs)
	sort.Float64s(ys)
	l, r := xs[1], xs[2]
	t, b := ys[1], ys[2]
	return [4]geometry.Point2D{
		{X: l, Y: t},
		{X: r, Y: t},
		{X: l, Y: b},
		{X: r, Y: b},
	}
}
