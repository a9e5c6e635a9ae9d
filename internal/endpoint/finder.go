package endpoint

import (
	"math"

	"gocv.io/x/gocv"

	"tornedge/pkg/geometry"
)

// Finder detects tear ends from corners and near-vertical lines.
type Finder struct {
	MaxCorners     int
	Quality        float64
	MinDistance    float64
	HoughThreshold int
	Vertical       VerticalParams
	Band           BandParams
	Vote           VoteParams
}

// NewFinder returns a finder with the default tuning.
func NewFinder() *Finder {
	return &Finder{
		MaxCorners:     500,
		Quality:        0.0001,
		MinDistance:    5,
		HoughThreshold: 60,
		Vertical:       DefaultVerticalParams(),
		Band:           DefaultBandParams(),
		Vote:           DefaultVoteParams(),
	}
}

// Detection carries the intermediate results of a Find call for debugging.
type Detection struct {
	Left, Right     geometry.Point2D
	Corners         []geometry.Point2D
	Vertical        []PolarLine
	LeftLines       []PolarLine
	RightLines      []PolarLine
	LeftCandidates  []geometry.Point2D
	RightCandidates []geometry.Point2D
}

// Find runs the line strategy on a BGR or grayscale image.
func (f *Finder) Find(src gocv.Mat) (*Detection, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
	} else {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	corners := f.corners(gray)
	lines := f.lines(gray)
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	d := &Detection{Corners: corners}
	d.Vertical = VerticalLines(lines, f.Vertical)
	d.LeftLines = SideLines(d.Vertical, Left, src.Cols(), f.Band)
	d.RightLines = SideLines(d.Vertical, Right, src.Cols(), f.Band)
	d.LeftCandidates = Candidates(corners, d.LeftLines, f.Vote)
	d.RightCandidates = Candidates(corners, d.RightLines, f.Vote)

	var err error
	if d.Left, err = Highest(d.LeftCandidates); err != nil {
		return d, err
	}
	if d.Right, err = Highest(d.RightCandidates); err != nil {
		return d, err
	}
	return d, nil
}

// corners returns Shi-Tomasi corners truncated to whole pixels, strongest
// first.
func (f *Finder) corners(gray gocv.Mat) []geometry.Point2D {
	out := gocv.NewMat()
	defer out.Close()
	gocv.GoodFeaturesToTrack(gray, &out, f.MaxCorners, f.Quality, f.MinDistance)

	pts := make([]geometry.Point2D, 0, out.Rows())
	for i := 0; i < out.Rows(); i++ {
		v := out.GetVecfAt(i, 0)
		p := geometry.Point2D{X: float64(v[0]), Y: float64(v[1])}
		pts = append(pts, p.Truncate().ToFloat())
	}
	return pts
}

func (f *Finder) lines(gray gocv.Mat) []PolarLine {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 0, 0)

	out := gocv.NewMat()
	defer out.Close()
	gocv.HoughLines(edges, &out, 1, float32(math.Pi/400), f.HoughThreshold)

	lines := make([]PolarLine, 0, out.Rows())
	for i := 0; i < out.Rows(); i++ {
		v := out.GetVecfAt(i, 0)
		lines = append(lines, PolarLine{Rho: float64(v[0]), Theta: float64(v[1])})
	}
	return lines
}
