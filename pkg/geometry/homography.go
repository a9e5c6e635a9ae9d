package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when three of the source points are collinear.
var ErrDegenerateQuad = errors.New("geometry: degenerate quadrilateral")

// Homography is a 3x3 projective transform with H[2][2] normalized to 1.
type Homography [3][3]float64

// ComputeHomography solves the projective transform mapping each src point to
// the dst point at the same index. The four source points must be in general
// position (no three collinear).
func ComputeHomography(src, dst [4]Point2D) (Homography, error) {
	if collinearTriple(src) {
		return Homography{}, ErrDegenerateQuad
	}

	// Standard DLT with h33 = 1:
	//   x' = (h11 x + h12 y + h13) / (h31 x + h32 y + 1)
	//   y' = (h21 x + h22 y + h23) / (h31 x + h32 y + 1)
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -x*xp)
		A.Set(i*2, 7, -y*xp)
		B.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -x*yp)
		A.Set(i*2+1, 7, -y*yp)
		B.SetVec(i*2+1, yp)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("solve homography: %w", err)
	}

	return Homography{
		{params.AtVec(0), params.AtVec(1), params.AtVec(2)},
		{params.AtVec(3), params.AtVec(4), params.AtVec(5)},
		{params.AtVec(6), params.AtVec(7), 1},
	}, nil
}

// Apply maps a point through the transform.
func (h Homography) Apply(p Point2D) Point2D {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}

func collinearTriple(pts [4]Point2D) bool {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				a, b, c := pts[i], pts[j], pts[k]
				cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
				if math.Abs(cross) < 1e-9 {
					return true
				}
			}
		}
	}
	return false
}
