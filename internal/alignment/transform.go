package alignment

import (
	"image"

	"gocv.io/x/gocv"

	"tornedge/pkg/geometry"
)

// homographyMat copies h into a 3x3 CV_64F Mat.
func homographyMat(h geometry.Homography) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}
	return m
}

// WarpPerspective applies a projective transform to an image.
func WarpPerspective(src gocv.Mat, h geometry.Homography, width, height int) gocv.Mat {
	m := homographyMat(h)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, image.Point{X: width, Y: height})
	return dst
}
