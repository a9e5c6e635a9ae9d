package alignment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"tornedge/internal/preprocess"
	"tornedge/pkg/geometry"
)

// Params tunes silhouette detection.
type Params struct {
	DilateKernel     int     // square structuring element size
	DilateIterations int     // dilation passes before contour search
	EpsilonRatio     float64 // Douglas-Peucker tolerance as a fraction of the perimeter
}

// DefaultParams returns the tuning used for receipt photos.
func DefaultParams() Params {
	return Params{
		DilateKernel:     5,
		DilateIterations: 15,
		EpsilonRatio:     0.01,
	}
}

// Correction is the result of rectifying one mask. Image is owned by the
// caller and must be closed.
type Correction struct {
	Image      gocv.Mat
	LeftEnd    geometry.Point2D // original left-top corner
	RightEnd   geometry.Point2D // original right-top corner
	Polygon    []geometry.Point2D
	Quad       Quad
	Source     [4]geometry.Point2D
	Target     [4]geometry.Point2D
	Homography geometry.Homography
}

// Close releases the rectified image.
func (c *Correction) Close() {
	if c != nil {
		c.Image.Close()
	}
}

// Corrector finds the paper quadrilateral in a binary mask and warps the
// mask so that the paper edges are axis aligned.
type Corrector struct {
	params Params
}

// NewCorrector returns a corrector with the given parameters.
func NewCorrector(p Params) *Corrector {
	return &Corrector{params: p}
}

// Correct rectifies src. The output keeps the size of src.
func (c *Corrector) Correct(src gocv.Mat) (*Correction, error) {
	poly, err := c.Silhouette(src)
	if err != nil {
		return nil, err
	}
	quad, err := PickCorners(poly)
	if err != nil {
		return nil, err
	}

	srcPts := SourcePoints(quad, Topmost(poly))
	dstPts := TargetPoints(srcPts)
	h, err := geometry.ComputeHomography(srcPts, dstPts)
	if err != nil {
		return nil, fmt.Errorf("rectify: %w", err)
	}

	return &Correction{
		Image:      WarpPerspective(src, h, src.Cols(), src.Rows()),
		LeftEnd:    quad.LeftTop,
		RightEnd:   quad.RightTop,
		Polygon:    poly,
		Quad:       quad,
		Source:     srcPts,
		Target:     dstPts,
		Homography: h,
	}, nil
}

// Silhouette dilates the mask to merge near-touching regions and returns the
// simplified outline of the largest white area.
func (c *Corrector) Silhouette(src gocv.Mat) ([]geometry.Point2D, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
	} else {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: c.params.DilateKernel, Y: c.params.DilateKernel})
	defer kernel.Close()
	for i := 0; i < c.params.DilateIterations; i++ {
		gocv.Dilate(gray, &gray, kernel)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, 127, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresh, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return nil, preprocess.ErrNoContours
	}

	best, bestArea := 0, -1.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}

	contour := contours.At(best)
	approx := gocv.ApproxPolyDP(contour, c.params.EpsilonRatio*gocv.ArcLength(contour, true), true)
	defer approx.Close()

	pts := approx.ToPoints()
	poly := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		poly[i] = geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
	}
	return poly, nil
}
