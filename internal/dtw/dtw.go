// Package dtw computes dynamic time warping distances between 1-D series
// using absolute difference as the point cost. FastDTW is the multi-level
// approximation that refines a coarse warp path inside a narrow window.
package dtw

import "math"

// Cell is one (i, j) pair of a warp path, indexing x and y respectively.
type Cell struct{ I, J int }

// Path is a warp path from (0,0) to (len(x)-1, len(y)-1).
type Path []Cell

// span is the half-open column range [lo, hi) searched in one row.
type span struct{ lo, hi int }

const (
	fromNone uint8 = iota
	fromUp
	fromLeft
	fromDiag
)

// DTW returns the exact warping distance and path.
func DTW(x, y []float64) (float64, Path) {
	spans := make([]span, len(x))
	for i := range spans {
		spans[i] = span{0, len(y)}
	}
	return windowed(x, y, spans)
}

// FastDTW approximates DTW in linear time. radius widens the projected
// window at every resolution level; 1 is the usual choice.
func FastDTW(x, y []float64, radius int) (float64, Path) {
	if radius < 0 {
		radius = 0
	}
	minSize := radius + 2
	if len(x) < minSize || len(y) < minSize {
		return DTW(x, y)
	}
	_, coarse := FastDTW(reduceByHalf(x), reduceByHalf(y), radius)
	return windowed(x, y, expandWindow(coarse, len(x), len(y), radius))
}

func reduceByHalf(v []float64) []float64 {
	out := make([]float64, 0, len(v)/2)
	for i := 0; i+1 < len(v); i += 2 {
		out = append(out, (v[i]+v[i+1])/2)
	}
	return out
}

// expandWindow projects a coarse path onto the next resolution: every cell
// is grown by radius, each grown cell covers a 2x2 block, and each row keeps
// only its first contiguous run of columns.
func expandWindow(path Path, lenX, lenY, radius int) []span {
	grown := make(map[Cell]bool, len(path)*(2*radius+1)*(2*radius+1))
	for _, c := range path {
		for a := -radius; a <= radius; a++ {
			for b := -radius; b <= radius; b++ {
				grown[Cell{c.I + a, c.J + b}] = true
			}
		}
	}

	window := make(map[Cell]bool, len(grown)*4)
	for c := range grown {
		window[Cell{c.I * 2, c.J * 2}] = true
		window[Cell{c.I * 2, c.J*2 + 1}] = true
		window[Cell{c.I*2 + 1, c.J * 2}] = true
		window[Cell{c.I*2 + 1, c.J*2 + 1}] = true
	}

	spans := make([]span, lenX)
	start := 0
	for i := 0; i < lenX; i++ {
		lo, hi := -1, -1
		for j := start; j < lenY; j++ {
			if window[Cell{i, j}] {
				if lo < 0 {
					lo = j
				}
				hi = j + 1
			} else if lo >= 0 {
				break
			}
		}
		if lo < 0 {
			spans[i] = span{start, start}
			continue
		}
		spans[i] = span{lo, hi}
		start = lo
	}
	return spans
}

// windowed fills the cumulative cost table restricted to spans and walks
// the cheapest predecessors back from the far corner. Ties prefer the step
// from above, then from the left, then the diagonal.
func windowed(x, y []float64, spans []span) (float64, Path) {
	n, m := len(x), len(y)
	if n == 0 || m == 0 {
		return 0, nil
	}

	cost := make([][]float64, n)
	from := make([][]uint8, n)
	for i, s := range spans {
		cost[i] = make([]float64, s.hi-s.lo)
		from[i] = make([]uint8, s.hi-s.lo)
	}

	at := func(i, j int) float64 {
		if i == -1 && j == -1 {
			return 0
		}
		if i < 0 || j < 0 {
			return math.Inf(1)
		}
		s := spans[i]
		if j < s.lo || j >= s.hi {
			return math.Inf(1)
		}
		return cost[i][j-s.lo]
	}

	for i := 0; i < n; i++ {
		s := spans[i]
		for j := s.lo; j < s.hi; j++ {
			d := math.Abs(x[i] - y[j])
			best, dir := at(i-1, j), fromUp
			if v := at(i, j-1); v < best {
				best, dir = v, fromLeft
			}
			if v := at(i-1, j-1); v < best {
				best, dir = v, fromDiag
			}
			if math.IsInf(best, 1) {
				dir = fromNone
			}
			cost[i][j-s.lo] = best + d
			from[i][j-s.lo] = dir
		}
	}

	total := at(n-1, m-1)
	var path Path
	i, j := n-1, m-1
	for i >= 0 && j >= 0 {
		s := spans[i]
		if j < s.lo || j >= s.hi {
			break
		}
		path = append(path, Cell{i, j})
		switch from[i][j-s.lo] {
		case fromUp:
			i--
		case fromLeft:
			j--
		case fromDiag:
			i--
			j--
		default:
			i, j = -1, -1
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return total, path
}
