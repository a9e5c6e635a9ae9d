// Package segment runs a two-class paper/background segmentation model
// through ONNX Runtime and converts its scores into a binary mask.
package segment

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrBadOutput is returned when the model output does not look like a
// two-class score map.
var ErrBadOutput = errors.New("segment: unexpected model output")

// Prepare resizes an interleaved RGB buffer to size x size and normalizes it
// to [0,1]. The tensor layout is NHWC when channelsLast is set, NCHW
// otherwise.
func Prepare(rgb []uint8, width, height, size int, channelsLast bool) ([]float32, error) {
	if len(rgb) != width*height*3 {
		return nil, fmt.Errorf("prepare: buffer has %d bytes, want %d", len(rgb), width*height*3)
	}
	src := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(rgb); i, j = i+3, j+4 {
		src.Pix[j] = rgb[i]
		src.Pix[j+1] = rgb[i+1]
		src.Pix[j+2] = rgb[i+2]
		src.Pix[j+3] = 255
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, plane*3)
	for p := 0; p < plane; p++ {
		for c := 0; c < 3; c++ {
			v := float32(dst.Pix[p*4+c]) / 255
			if channelsLast {
				out[p*3+c] = v
			} else {
				out[c*plane+p] = v
			}
		}
	}
	return out, nil
}

// ForegroundMask turns a [1,2,H,W] (or [1,H,W,2] when channelsLast) score
// tensor into a mask that is 255 wherever the foreground score beats the
// background score.
func ForegroundMask(scores []float32, shape []int64, channelsLast bool) ([]uint8, int, int, error) {
	if len(shape) != 4 || shape[0] != 1 {
		return nil, 0, 0, fmt.Errorf("shape %v: %w", shape, ErrBadOutput)
	}
	var h, w int
	if channelsLast {
		if shape[3] != 2 {
			return nil, 0, 0, fmt.Errorf("shape %v: %w", shape, ErrBadOutput)
		}
		h, w = int(shape[1]), int(shape[2])
	} else {
		if shape[1] != 2 {
			return nil, 0, 0, fmt.Errorf("shape %v: %w", shape, ErrBadOutput)
		}
		h, w = int(shape[2]), int(shape[3])
	}
	plane := h * w
	if len(scores) != plane*2 {
		return nil, 0, 0, fmt.Errorf("got %d scores for shape %v: %w", len(scores), shape, ErrBadOutput)
	}

	mask := make([]uint8, plane)
	for p := 0; p < plane; p++ {
		var bg, fg float32
		if channelsLast {
			bg, fg = scores[p*2], scores[p*2+1]
		} else {
			bg, fg = scores[p], scores[plane+p]
		}
		if bg < fg {
			mask[p] = 255
		}
	}
	return mask, h, w, nil
}

// ResizeMask scales a single-channel mask with nearest-neighbor sampling so
// it stays binary.
func ResizeMask(mask []uint8, width, height, toWidth, toHeight int) []uint8 {
	if width == toWidth && height == toHeight {
		return append([]uint8(nil), mask...)
	}
	src := &image.Gray{Pix: mask, Stride: width, Rect: image.Rect(0, 0, width, height)}
	dst := image.NewGray(image.Rect(0, 0, toWidth, toHeight))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix
}
