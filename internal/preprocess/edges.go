package preprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// EdgeParams tunes the edge pass that feeds the tear walker.
type EdgeParams struct {
	Low, High   float32
	CloseKernel int
}

// DefaultEdgeParams uses zero hysteresis thresholds so every gradient
// response survives, then bridges single-pixel gaps.
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{Low: 0, High: 0, CloseKernel: 3}
}

// DetectEdges returns a single-channel edge image of src.
func DetectEdges(src gocv.Mat, p EdgeParams) gocv.Mat {
	gray := toGray(src)
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, p.Low, p.High)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: p.CloseKernel, Y: p.CloseKernel})
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.MorphologyEx(edges, &dst, gocv.MorphClose, kernel)
	return dst
}
