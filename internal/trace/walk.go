package trace

import (
	"errors"
	"fmt"

	"tornedge/pkg/geometry"
)

var (
	// ErrNoPath is returned when every route from the start is exhausted
	// before reaching the goal.
	ErrNoPath = errors.New("trace: no edge path from start to goal")
	// ErrStepLimit is returned when the walk exceeds its step budget.
	ErrStepLimit = errors.New("trace: step limit exceeded")
)

// DefaultStepLimit bounds a walk when the caller does not choose a limit.
const DefaultStepLimit = 2_000_000

// Neighbor priority. Image y grows downwards, so "up" is -1.
var walkOrder = [8]geometry.PointInt{
	{X: 1, Y: 0},   // right
	{X: 1, Y: -1},  // upper-right
	{X: 1, Y: 1},   // lower-right
	{X: 0, Y: -1},  // up
	{X: 0, Y: 1},   // down
	{X: -1, Y: -1}, // upper-left
	{X: -1, Y: 1},  // lower-left
	{X: -1, Y: 0},  // left
}

// Contour is the ordered list of pixels along the tear, left to right.
type Contour []geometry.PointInt

// Xs returns the x coordinates as floats.
func (c Contour) Xs() []float64 {
	xs := make([]float64, len(c))
	for i, p := range c {
		xs[i] = float64(p.X)
	}
	return xs
}

// Ys returns the y coordinates as floats.
func (c Contour) Ys() []float64 {
	ys := make([]float64, len(c))
	for i, p := range c {
		ys[i] = float64(p.Y)
	}
	return ys
}

// Walker chases edge pixels with a depth-first walk and explicit backtracking.
type Walker struct {
	// StepLimit caps moves plus backtracks. Zero means DefaultStepLimit.
	StepLimit int
}

// Walk moves from start towards goal. At each pixel the first foreground
// neighbor in priority order that is neither on the current path nor marked
// mistaken is taken, and the pixel being left is appended to the contour.
// A dead end marks the pixel mistaken and pops the contour. The walk ends
// when it stands on goal or has passed goal's column. The returned contour
// holds every pixel left behind, so the final pixel is not included.
func (w Walker) Walk(g Grid, start, goal geometry.PointInt) (Contour, error) {
	limit := w.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}

	path := Contour{}
	onPath := make(map[geometry.PointInt]bool)
	mistaken := make(map[geometry.PointInt]bool)
	cur := start

	for steps := 0; cur != goal && cur.X <= goal.X; steps++ {
		if steps >= limit {
			return nil, fmt.Errorf("walk %v -> %v after %d steps: %w", start, goal, steps, ErrStepLimit)
		}

		next, ok := nextPixel(g, cur, onPath, mistaken)
		if ok {
			path = append(path, cur)
			onPath[cur] = true
			cur = next
			continue
		}

		mistaken[cur] = true
		if len(path) == 0 {
			return nil, fmt.Errorf("walk %v -> %v: %w", start, goal, ErrNoPath)
		}
		cur = path[len(path)-1]
		path = path[:len(path)-1]
		delete(onPath, cur)
	}
	return path, nil
}

func nextPixel(g Grid, cur geometry.PointInt, onPath, mistaken map[geometry.PointInt]bool) (geometry.PointInt, bool) {
	for _, d := range walkOrder {
		n := geometry.PointInt{X: cur.X + d.X, Y: cur.Y + d.Y}
		if !g.At(n.X, n.Y) || onPath[n] || mistaken[n] {
			continue
		}
		return n, true
	}
	return geometry.PointInt{}, false
}

// Trace snaps the endpoint hints to the nearest foreground pixels and walks
// between them.
func (w Walker) Trace(g Grid, left, right geometry.Point2D) (Contour, error) {
	pts := Foreground(g)
	start, ok := Nearest(pts, left)
	if !ok {
		return nil, fmt.Errorf("edge image has no foreground: %w", ErrNoPath)
	}
	goal, _ := Nearest(pts, right)
	return w.Walk(g, start, goal)
}
