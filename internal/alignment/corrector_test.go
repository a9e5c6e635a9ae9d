package alignment

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"tornedge/internal/preprocess"
)

func TestCorrectAxisAlignedPaper(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 200, 260, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(60, 50, 200, 150), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	corr, err := NewCorrector(DefaultParams()).Correct(img)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	defer corr.Close()

	if corr.Image.Rows() != 200 || corr.Image.Cols() != 260 {
		t.Fatalf("unexpected output size %dx%d", corr.Image.Cols(), corr.Image.Rows())
	}
	// Dilation grows the silhouette by two pixels per pass.
	if math.Abs(corr.LeftEnd.X-30) > 2 || math.Abs(corr.LeftEnd.Y-20) > 2 {
		t.Errorf("left end %v", corr.LeftEnd)
	}
	if math.Abs(corr.RightEnd.X-229) > 2 || math.Abs(corr.RightEnd.Y-20) > 2 {
		t.Errorf("right end %v", corr.RightEnd)
	}
	if corr.Image.GetUCharAt(100, 130*3) != 255 {
		t.Error("paper interior should stay white after rectification")
	}
}

func TestCorrectEmptyMask(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer img.Close()
	if _, err := NewCorrector(DefaultParams()).Correct(img); !errors.Is(err, preprocess.ErrNoContours) {
		t.Fatalf("expected ErrNoContours, got %v", err)
	}
}
