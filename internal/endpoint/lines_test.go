package endpoint

import (
	"errors"
	"math"
	"testing"

	"tornedge/internal/alignment"
	"tornedge/pkg/geometry"
)

func vertical(xs ...float64) []PolarLine {
	out := make([]PolarLine, len(xs))
	for i, x := range xs {
		out[i] = PolarLine{Rho: x, Theta: 0}
	}
	return out
}

func repeat(l PolarLine, n int) []PolarLine {
	out := make([]PolarLine, n)
	for i := range out {
		out[i] = l
	}
	return out
}

func TestEndPoints(t *testing.T) {
	a, b := PolarLine{Rho: 10, Theta: 0}.EndPoints()
	if a != (geometry.Point2D{X: 10, Y: 1000}) || b != (geometry.Point2D{X: 10, Y: -1000}) {
		t.Fatalf("got %v %v", a, b)
	}
}

func TestIsVertical(t *testing.T) {
	tests := []struct {
		theta float64
		tol   float64
		want  bool
	}{
		{0, 0.08, true},
		{0.079, 0.08, true},
		{0.08, 0.08, false},
		{math.Pi - 0.05, 0.08, true},
		{math.Pi / 2, 0.2, false},
	}
	for _, tt := range tests {
		if got := (PolarLine{Theta: tt.theta}).IsVertical(tt.tol); got != tt.want {
			t.Errorf("IsVertical(%v, %v) = %v, want %v", tt.theta, tt.tol, got, tt.want)
		}
	}
}

func TestVerticalLinesWidensTolerance(t *testing.T) {
	var lines []PolarLine
	lines = append(lines, repeat(PolarLine{Rho: 1, Theta: 0.05}, 3)...)
	lines = append(lines, repeat(PolarLine{Rho: 2, Theta: 0.11}, 12)...)
	lines = append(lines, repeat(PolarLine{Rho: 3, Theta: 0.15}, 4)...)
	lines = append(lines, repeat(PolarLine{Rho: 4, Theta: 1.5}, 5)...)

	if got := VerticalLines(lines, DefaultVerticalParams()); len(got) != 15 {
		t.Fatalf("expected 15 lines at tolerance 0.12, got %d", len(got))
	}

	p := DefaultVerticalParams()
	p.MinLines = 100
	if got := VerticalLines(lines, p); len(got) != 19 {
		t.Fatalf("expected every line under the cap, got %d", len(got))
	}
}

func TestSideLines(t *testing.T) {
	lines := vertical(5, 15, 60, 95)
	p := BandParams{Divisions: 10, Start: 2, MinLines: 2}

	left := SideLines(lines, Left, 100, p)
	if len(left) != 2 || left[0].Rho != 5 || left[1].Rho != 15 {
		t.Errorf("left = %v", left)
	}
	right := SideLines(lines, Right, 100, p)
	if len(right) != 2 || right[0].Rho != 60 || right[1].Rho != 95 {
		t.Errorf("right = %v", right)
	}
}

func TestCandidates(t *testing.T) {
	lines := vertical(10, 11, 12, 13, 14)
	points := []geometry.Point2D{{X: 30, Y: 5}, {X: 12, Y: 50}, {X: 12, Y: 20}}

	got := Candidates(points, lines, DefaultVoteParams())
	if len(got) != 2 || got[0] != points[1] || got[1] != points[2] {
		t.Fatalf("got %v", got)
	}
	if got := Candidates(points, lines[:4], DefaultVoteParams()); len(got) != 0 {
		t.Fatalf("four votes should not qualify, got %v", got)
	}
}

func TestHighest(t *testing.T) {
	pts := []geometry.Point2D{{X: 1, Y: 9}, {X: 2, Y: 3}, {X: 3, Y: 3}}
	got, err := Highest(pts)
	if err != nil || got != pts[1] {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := Highest(nil); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyCorners, false},
		{"corners", StrategyCorners, false},
		{" Lines ", StrategyLines, false},
		{"hough", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCornerProvider(t *testing.T) {
	c := &alignment.Correction{
		LeftEnd:  geometry.Point2D{X: 3, Y: 4},
		RightEnd: geometry.Point2D{X: 90, Y: 7},
	}
	p, err := NewProvider(StrategyCorners)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	ends, err := p.Ends(c)
	if err != nil {
		t.Fatalf("Ends: %v", err)
	}
	if ends.Left != c.LeftEnd || ends.Right != c.RightEnd {
		t.Fatalf("got %+v", ends)
	}
}
