// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// slopeEpsilon perturbs one x coordinate when two points share the same x,
// so a slope can still be computed for a (nearly) vertical edge.
const slopeEpsilon = 1e-8

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Round converts to the nearest integer pixel coordinate.
func (p Point2D) Round() PointInt {
	return PointInt{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Truncate converts to an integer pixel coordinate by dropping the fraction.
func (p Point2D) Truncate() PointInt {
	return PointInt{X: int(p.X), Y: int(p.Y)}
}

// PointInt represents a 2D point with integer coordinates (a pixel location).
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// ImagePoint converts to an image.Point for drawing calls.
func (p PointInt) ImagePoint() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

// Chebyshev returns the chessboard distance to another pixel. Two pixels are
// 8-adjacent when this is 1.
func (p PointInt) Chebyshev(other PointInt) int {
	dx := p.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := p.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Line is a non-vertical line y = Slope*x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// LineThrough returns the line through two points. When both points share the
// same x, the first is nudged by a negligible epsilon instead of failing.
func LineThrough(p1, p2 Point2D) Line {
	x1 := p1.X
	if x1-p2.X == 0 {
		x1 += slopeEpsilon
	}
	slope := (p1.Y - p2.Y) / (x1 - p2.X)
	return Line{Slope: slope, Intercept: p1.Y - slope*x1}
}

// LineWithSlope returns the line with the given slope passing through p.
func LineWithSlope(p Point2D, slope float64) Line {
	return Line{Slope: slope, Intercept: p.Y - slope*p.X}
}

// Intersect returns the crossing point of two lines, false when parallel.
func (l Line) Intersect(other Line) (Point2D, bool) {
	denom := l.Slope - other.Slope
	if math.Abs(denom) < 1e-12 {
		return Point2D{}, false
	}
	x := (other.Intercept - l.Intercept) / denom
	y := (l.Slope*other.Intercept - l.Intercept*other.Slope) / denom
	return Point2D{X: x, Y: y}, true
}

// DistanceToLine returns the perpendicular distance from p to the infinite
// line through a and b.
func DistanceToLine(p, a, b Point2D) float64 {
	ux, uy := b.X-a.X, b.Y-a.Y
	norm := math.Sqrt(ux*ux + uy*uy)
	if norm == 0 {
		return p.Distance(a)
	}
	vx, vy := p.X-a.X, p.Y-a.Y
	return math.Abs(ux*vy-uy*vx) / norm
}
