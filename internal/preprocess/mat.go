package preprocess

import (
	"gocv.io/x/gocv"
)

// WhiteLevel is the gray value from which an edge or mask pixel counts as
// white.
const WhiteLevel = 128

// MatGrid exposes a single-channel 8-bit Mat as a trace.Grid.
type MatGrid struct {
	m gocv.Mat
}

// NewMatGrid wraps m. The Mat must outlive the grid.
func NewMatGrid(m gocv.Mat) MatGrid {
	return MatGrid{m: m}
}

func (g MatGrid) Width() int  { return g.m.Cols() }
func (g MatGrid) Height() int { return g.m.Rows() }

func (g MatGrid) At(x, y int) bool {
	if x < 0 || y < 0 || x >= g.m.Cols() || y >= g.m.Rows() {
		return false
	}
	return g.m.GetUCharAt(y, x) >= WhiteLevel
}

// matFromBytes copies data into a new Mat so the result does not alias the
// Go slice.
func matFromBytes(rows, cols int, mt gocv.MatType, data []byte) (gocv.Mat, error) {
	view, err := gocv.NewMatFromBytes(rows, cols, mt, data)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer view.Close()
	return view.Clone(), nil
}
