package matching

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Derivative smooths the first difference of v:
// d[i] = ((v[i]-v[i-1]) + (v[i+1]-v[i-1])/2) / 2 for 1 <= i <= len(v)-2.
func Derivative(v []float64) []float64 {
	if len(v) < 3 {
		return []float64{}
	}
	d := make([]float64, 0, len(v)-2)
	for i := 1; i < len(v)-1; i++ {
		d = append(d, ((v[i]-v[i-1])+(v[i+1]-v[i-1])/2)/2)
	}
	return d
}

// Normalize min-max scales values into [0,1], rounded to digits decimals.
// A constant input maps to all zeros. The input is not modified.
func Normalize(values []float64, digits int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		return out
	}
	p := math.Pow(10, float64(digits))
	for i, v := range values {
		out[i] = math.Round((v-lo)/span*p) / p
	}
	return out
}

// orient mirrors the query curve into the capture orientation of the other
// half: x is reversed, y is reversed and negated.
func orient(xs, ys []float64) ([]float64, []float64) {
	ox := make([]float64, len(xs))
	oy := make([]float64, len(ys))
	for i := range xs {
		ox[len(xs)-1-i] = xs[i]
	}
	for i := range ys {
		oy[len(ys)-1-i] = -ys[i]
	}
	return ox, oy
}

// anchor translates v so that it starts at zero.
func anchor(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	copy(out, v)
	floats.AddConst(-v[0], out)
	return out
}
