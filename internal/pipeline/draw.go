package pipeline

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"tornedge/internal/endpoint"
	"tornedge/internal/trace"
	"tornedge/pkg/geometry"
)

// Frame describes the photo a fragment was extracted from. Drawing sizes
// scale with the frame so annotations stay visible on large photos.
type Frame struct {
	Width, Height int
}

// DrawingRate is the integer scale factor for annotation sizes.
func (f Frame) DrawingRate() int {
	r := f.Width / 1080
	if r < 1 {
		return 1
	}
	return r
}

// DrawPoints draws a circle at each point.
func DrawPoints(img *gocv.Mat, pts []geometry.Point2D, radius int, c color.RGBA) {
	for _, p := range pts {
		gocv.Circle(img, p.Round().ImagePoint(), radius, c, -1)
	}
}

// DrawPolygon draws a closed polygon.
func DrawPolygon(img *gocv.Mat, pts []geometry.Point2D, c color.RGBA, thickness int) {
	for i := range pts {
		a := pts[i].Round().ImagePoint()
		b := pts[(i+1)%len(pts)].Round().ImagePoint()
		gocv.Line(img, a, b, c, thickness)
	}
}

// DrawContour paints each traced pixel.
func DrawContour(img *gocv.Mat, c trace.Contour, col color.RGBA, thickness int) {
	for i := 1; i < len(c); i++ {
		gocv.Line(img, c[i-1].ImagePoint(), c[i].ImagePoint(), col, thickness)
	}
}

// DrawLines draws Hough lines across the image.
func DrawLines(img *gocv.Mat, lines []endpoint.PolarLine, c color.RGBA, thickness int) {
	for _, l := range lines {
		a, b := l.EndPoints()
		gocv.Line(img,
			image.Point{X: int(a.X), Y: int(a.Y)},
			image.Point{X: int(b.X), Y: int(b.Y)},
			c, thickness)
	}
}
