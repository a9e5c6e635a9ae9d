package preprocess

import (
	"errors"

	"gocv.io/x/gocv"

	"tornedge/pkg/colorutil"
)

// ErrNoContours is returned when a mask holds no white region at all.
var ErrNoContours = errors.New("preprocess: no white region found")

// regionWhiteMin is the gray level a mask pixel needs to belong to a region.
const regionWhiteMin = 205

// LargestRegion keeps only the largest connected white region of a binary
// mask, filled, on a black background. The result is 3-channel BGR.
func LargestRegion(src gocv.Mat) (gocv.Mat, error) {
	gray := toGray(src)
	defer gray.Close()

	// Invert and keep the near-black band, i.e. the originally white pixels.
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(gray, &inverted)

	white := gocv.NewMat()
	defer white.Close()
	gocv.InRangeWithScalar(inverted,
		gocv.NewScalar(0, 0, 0, 0),
		gocv.NewScalar(255-regionWhiteMin, 0, 0, 0),
		&white)

	contours := gocv.FindContours(white, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return gocv.NewMat(), ErrNoContours
	}

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if bestArea < area {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		// Only degenerate (zero-area) contours: fall back to the first one.
		best = 0
	}

	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), src.Rows(), src.Cols(), gocv.MatTypeCV8UC3)
	gocv.DrawContours(&dst, contours, best, colorutil.White, -1)
	return dst, nil
}
