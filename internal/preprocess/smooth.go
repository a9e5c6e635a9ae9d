package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"tornedge/pkg/colorutil"
)

// SmoothParams tunes the denoising stage.
type SmoothParams struct {
	BlurKernel    int     // Gaussian kernel size (odd)
	BlurSigma     float64 // Gaussian sigma along x
	SpatialRadius int     // mean-shift spatial window radius
	ColorRadius   float64 // mean-shift color window radius
}

// DefaultSmoothParams returns the tuning used for receipt photos.
func DefaultSmoothParams() SmoothParams {
	return SmoothParams{
		BlurKernel:    15,
		BlurSigma:     1,
		SpatialRadius: 5,
		ColorRadius:   20,
	}
}

// Smooth blurs the photo and then flattens print and paper texture with
// mean-shift color reduction.
func Smooth(src gocv.Mat, p SmoothParams) (gocv.Mat, error) {
	blurred := Blur(src, p)
	defer blurred.Close()
	return ReduceColors(blurred, p)
}

// Blur applies the Gaussian pass only.
func Blur(src gocv.Mat, p SmoothParams) gocv.Mat {
	dst := gocv.NewMat()
	gocv.GaussianBlur(src, &dst, image.Point{X: p.BlurKernel, Y: p.BlurKernel}, p.BlurSigma, 0, gocv.BorderDefault)
	return dst
}

// ReduceColors runs mean-shift filtering on a 3-channel 8-bit image.
func ReduceColors(src gocv.Mat, p SmoothParams) (gocv.Mat, error) {
	if src.Channels() != 3 {
		return gocv.NewMat(), fmt.Errorf("reduce colors: expected 3 channels, got %d", src.Channels())
	}
	filtered := colorutil.MeanShiftFilter(src.ToBytes(), src.Cols(), src.Rows(), p.SpatialRadius, p.ColorRadius)
	dst, err := matFromBytes(src.Rows(), src.Cols(), gocv.MatTypeCV8UC3, filtered)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("reduce colors: %w", err)
	}
	return dst, nil
}
