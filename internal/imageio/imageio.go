// Package imageio decodes uploaded photos and scales them to the working
// size of the pipeline.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Largest photo the pipeline works on; bigger photos are scaled down.
const (
	MaxWidth  = 1080
	MaxHeight = 1440
)

// Decode decodes an image in any registered format and returns the format
// name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// FitSize returns the size of a w x h image scaled down to fit inside
// maxW x maxH with its aspect ratio kept. Images that already fit keep
// their size.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	return nw, nh
}

// Fit scales img down to fit inside maxW x maxH. Images that already fit
// are returned unchanged.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	nw, nh := FitSize(b.Dx(), b.Dy(), maxW, maxH)
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Load decodes data and fits it inside the default working size.
func Load(data []byte) (image.Image, error) {
	return LoadWithin(data, MaxWidth, MaxHeight)
}

// LoadWithin decodes data, turns it upright according to its EXIF
// orientation and fits it inside maxW x maxH.
func LoadWithin(data []byte, maxW, maxH int) (image.Image, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	img = Upright(img, Orientation(data))
	return Fit(img, maxW, maxH), nil
}

// ReadFile loads a photo from disk.
func ReadFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	img, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
