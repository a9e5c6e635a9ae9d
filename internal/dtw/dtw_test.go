package dtw

import (
	"math"
	"testing"
)

func TestDTW(t *testing.T) {
	cases := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"stretched", []float64{1, 2, 3}, []float64{1, 2, 2, 3}, 0},
		{"offset", []float64{0, 0}, []float64{1, 1}, 2},
		{"shifted", []float64{1, 2, 3, 4, 5}, []float64{2, 3, 4, 5, 6}, 2},
		{"single", []float64{4}, []float64{1, 7}, 6},
	}
	for _, tc := range cases {
		got, path := DTW(tc.x, tc.y)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s: distance %v want %v", tc.name, got, tc.want)
		}
		checkPath(t, tc.name, path, len(tc.x), len(tc.y))
	}
}

func TestDTWEmpty(t *testing.T) {
	d, path := DTW(nil, []float64{1})
	if d != 0 || path != nil {
		t.Fatalf("got %v %v", d, path)
	}
}

func TestFastDTWMatchesExactOnShortInput(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{3, 1, 2}
	fast, _ := FastDTW(x, y, 1)
	exact, _ := DTW(x, y)
	if fast != exact {
		t.Fatalf("fast %v exact %v", fast, exact)
	}
}

func TestFastDTWIdentical(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		x[i] = math.Sin(float64(i) / 7)
	}
	d, path := FastDTW(x, x, 1)
	if d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
	checkPath(t, "identical", path, len(x), len(x))
}

func TestFastDTWNeverBeatsExact(t *testing.T) {
	x := make([]float64, 97)
	y := make([]float64, 120)
	for i := range x {
		x[i] = math.Sin(float64(i)/5) * 10
	}
	for i := range y {
		y[i] = math.Sin(float64(i)/6+0.3)*10 + 0.5
	}
	fast, path := FastDTW(x, y, 1)
	exact, _ := DTW(x, y)
	if fast < exact-1e-9 {
		t.Fatalf("approximation %v below exact %v", fast, exact)
	}
	if math.IsInf(fast, 0) || math.IsNaN(fast) {
		t.Fatalf("invalid distance %v", fast)
	}
	checkPath(t, "sines", path, len(x), len(y))
}

func checkPath(t *testing.T, name string, p Path, n, m int) {
	t.Helper()
	if len(p) == 0 {
		t.Fatalf("%s: empty path", name)
	}
	if p[0] != (Cell{0, 0}) || p[len(p)-1] != (Cell{n - 1, m - 1}) {
		t.Fatalf("%s: path endpoints %v %v", name, p[0], p[len(p)-1])
	}
	for k := 1; k < len(p); k++ {
		di, dj := p[k].I-p[k-1].I, p[k].J-p[k-1].J
		if di < 0 || dj < 0 || di > 1 || dj > 1 || di+dj == 0 {
			t.Fatalf("%s: invalid step %v -> %v", name, p[k-1], p[k])
		}
	}
}
