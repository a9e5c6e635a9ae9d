// Package endpoint locates the left and right ends of a tear.
//
// Two strategies are available. The corner strategy reuses the top corners
// reported by the alignment step. The line strategy looks for corner points
// that sit on clusters of near-vertical Hough lines along the paper sides.
package endpoint

import (
	"errors"
	"math"

	"tornedge/pkg/geometry"
)

var (
	// ErrNoLines is returned when the Hough transform finds no lines at all.
	ErrNoLines = errors.New("endpoint: no lines found")
	// ErrNoCandidates is returned when no corner qualifies as a tear end.
	ErrNoCandidates = errors.New("endpoint: no tear end candidates")
)

// Side selects the left or right paper edge.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// lineReach is how far the segment endpoints sit from the foot of the
// normal when a polar line is turned into two points.
const lineReach = 1000

// PolarLine is a Hough line in normal form.
type PolarLine struct {
	Rho   float64
	Theta float64
}

// EndPoints returns two points on the line lineReach pixels either side of
// the foot of its normal, truncated to whole pixels.
func (l PolarLine) EndPoints() (geometry.Point2D, geometry.Point2D) {
	a, b := math.Cos(l.Theta), math.Sin(l.Theta)
	x0, y0 := a*l.Rho, b*l.Rho
	p1 := geometry.Point2D{X: x0 - lineReach*b, Y: y0 + lineReach*a}
	p2 := geometry.Point2D{X: x0 + lineReach*b, Y: y0 - lineReach*a}
	return p1.Truncate().ToFloat(), p2.Truncate().ToFloat()
}

// IsVertical reports whether theta lies within tol of 0 or pi.
func (l PolarLine) IsVertical(tol float64) bool {
	return (l.Theta > -tol && l.Theta < tol) || (l.Theta > math.Pi-tol && l.Theta < math.Pi+tol)
}

// VerticalParams controls how the vertical-angle tolerance widens.
type VerticalParams struct {
	Start, Step, Max float64
	MinLines         int
}

// DefaultVerticalParams returns the tolerance schedule for receipt photos.
func DefaultVerticalParams() VerticalParams {
	return VerticalParams{Start: 0.08, Step: 0.02, Max: 0.2, MinLines: 15}
}

// VerticalLines returns the lines within the smallest tolerance of the
// schedule that yields at least MinLines lines, or the lines at the widest
// tolerance when none does.
func VerticalLines(lines []PolarLine, p VerticalParams) []PolarLine {
	var out []PolarLine
	// The small epsilon keeps the last step from being lost to rounding.
	for tol := p.Start; tol <= p.Max+1e-9; tol += p.Step {
		out = out[:0]
		for _, l := range lines {
			if l.IsVertical(tol) {
				out = append(out, l)
			}
		}
		if len(out) >= p.MinLines {
			break
		}
	}
	return out
}

// BandParams controls the side search band.
type BandParams struct {
	Divisions int // equal-width columns the image is split into
	Start     int // columns searched initially from the chosen edge
	MinLines  int
}

// DefaultBandParams returns the band schedule for receipt photos.
func DefaultBandParams() BandParams {
	return BandParams{Divisions: 10, Start: 2, MinLines: 10}
}

// SideLines keeps the lines that reach into the band next to the chosen
// image edge, widening the band one column at a time until MinLines lines
// are found or the band covers the whole image.
func SideLines(lines []PolarLine, side Side, width int, p BandParams) []PolarLine {
	var out []PolarLine
	for cols := p.Start; cols <= p.Divisions; cols++ {
		out = out[:0]
		for _, l := range lines {
			if inBand(l, side, width, cols, p.Divisions) {
				out = append(out, l)
			}
		}
		if len(out) >= p.MinLines {
			break
		}
	}
	return out
}

func inBand(l PolarLine, side Side, width, cols, divisions int) bool {
	p1, p2 := l.EndPoints()
	w := float64(width)
	if side == Left {
		edge := w * float64(cols) / float64(divisions)
		return p1.X < edge || p2.X < edge
	}
	edge := w * float64(divisions-cols) / float64(divisions)
	return p1.X >= edge || p2.X >= edge
}

// VoteParams controls candidate selection.
type VoteParams struct {
	MaxDistance float64 // pixels between a corner and a line
	MinVotes    int
}

// DefaultVoteParams returns the voting thresholds for receipt photos.
func DefaultVoteParams() VoteParams {
	return VoteParams{MaxDistance: 7, MinVotes: 5}
}

// Candidates returns the points that lie within MaxDistance of at least
// MinVotes lines, in input order.
func Candidates(points []geometry.Point2D, lines []PolarLine, p VoteParams) []geometry.Point2D {
	var out []geometry.Point2D
	for _, pt := range points {
		votes := 0
		for _, l := range lines {
			a, b := l.EndPoints()
			if geometry.DistanceToLine(pt, a, b) <= p.MaxDistance {
				votes++
			}
		}
		if votes >= p.MinVotes {
			out = append(out, pt)
		}
	}
	return out
}

// Highest returns the first point with the smallest y.
func Highest(points []geometry.Point2D) (geometry.Point2D, error) {
	if len(points) == 0 {
		return geometry.Point2D{}, ErrNoCandidates
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Y < best.Y {
			best = p
		}
	}
	return best, nil
}
