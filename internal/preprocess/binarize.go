package preprocess

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"tornedge/pkg/colorutil"
)

// Mode selects how the paper mask is produced.
type Mode string

const (
	// ModeHSV keeps near-white, low-saturation pixels.
	ModeHSV Mode = "hsv"
	// ModeSegmentation asks a segmentation model for a foreground mask.
	ModeSegmentation Mode = "segmentation"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHSV, ModeSegmentation:
		return Mode(s), nil
	case "":
		return ModeHSV, nil
	}
	return "", fmt.Errorf("binarize mode: unsupported value %q", s)
}

// Segmenter produces a binary foreground mask for an RGB image. mask has one
// byte per pixel in row-major order, 255 for paper and 0 for background,
// and has the same size as the input.
type Segmenter interface {
	Segment(ctx context.Context, rgb []uint8, width, height int) (mask []uint8, err error)
}

// Binarizer turns a smoothed photo into a black/white paper mask.
type Binarizer struct {
	Mode      Mode
	Band      colorutil.HSVRange
	Segmenter Segmenter
}

// NewBinarizer returns a binarizer. seg may be nil in HSV mode.
func NewBinarizer(mode Mode, seg Segmenter) *Binarizer {
	return &Binarizer{Mode: mode, Band: colorutil.PaperBand, Segmenter: seg}
}

// Binarize returns a 3-channel BGR mask, white where the paper is.
func (b *Binarizer) Binarize(ctx context.Context, src gocv.Mat) (gocv.Mat, error) {
	var mask gocv.Mat
	var err error
	switch b.Mode {
	case ModeSegmentation:
		mask, err = b.segment(ctx, src)
	default:
		mask = b.threshold(src)
	}
	if err != nil {
		return gocv.NewMat(), err
	}
	defer mask.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mask, &bgr, gocv.ColorGrayToBGR)
	return bgr, nil
}

func (b *Binarizer) threshold(src gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(b.Band.LowH, b.Band.LowS, b.Band.LowV, 0),
		gocv.NewScalar(b.Band.HighH, b.Band.HighS, b.Band.HighV, 0),
		&mask)
	return mask
}

func (b *Binarizer) segment(ctx context.Context, src gocv.Mat) (gocv.Mat, error) {
	if b.Segmenter == nil {
		return gocv.NewMat(), fmt.Errorf("binarize: segmentation mode without a model")
	}
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)

	fg, err := b.Segmenter.Segment(ctx, rgb.ToBytes(), rgb.Cols(), rgb.Rows())
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("binarize: %w", err)
	}
	if len(fg) != src.Rows()*src.Cols() {
		return gocv.NewMat(), fmt.Errorf("binarize: mask has %d pixels, want %d", len(fg), src.Rows()*src.Cols())
	}
	mask, err := matFromBytes(src.Rows(), src.Cols(), gocv.MatTypeCV8U, fg)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("binarize: mask: %w", err)
	}
	return mask, nil
}

// Denoise closes small holes and specks in a binary mask with a square
// kernel of the given size.
func Denoise(src gocv.Mat, kernelSize int) gocv.Mat {
	gray := toGray(src)
	defer gray.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(gray, &closed, gocv.MorphClose, kernel)

	dst := gocv.NewMat()
	gocv.CvtColor(closed, &dst, gocv.ColorGrayToBGR)
	return dst
}

// Trimap marks a band of the given width around the mask boundary as 128,
// keeps the rest of the paper at 255 and the background at 0.
func Trimap(src gocv.Mat, size int) gocv.Mat {
	gray := toGray(src)
	defer gray.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: size, Y: size})
	defer kernel.Close()

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.MorphologyEx(gray, &gradient, gocv.MorphGradient, kernel)

	// 128 on the boundary band, 255 elsewhere; ANDed with the mask.
	band := gocv.NewMat()
	defer band.Close()
	gocv.Threshold(gradient, &band, 254, 255, gocv.ThresholdBinaryInv)
	gray128 := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 0, 0, 0), gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	defer gray128.Close()
	levels := gocv.NewMat()
	defer levels.Close()
	gocv.BitwiseOr(band, gray128, &levels)

	dst := gocv.NewMat()
	gocv.BitwiseAnd(gray, levels, &dst)
	return dst
}

func toGray(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if src.Channels() == 1 {
		src.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}
