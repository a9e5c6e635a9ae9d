// Package colorutil provides shared color utilities: annotation colors, the
// paper HSV band in the OpenCV convention, and mean-shift color reduction.
package colorutil

import "image/color"

// Annotation colors used by the debug drawings.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange = color.RGBA{R: 255, G: 128, B: 0, A: 255}
	Amber  = color.RGBA{R: 255, G: 192, B: 0, A: 255}
	Violet = color.RGBA{R: 128, G: 0, B: 255, A: 255}
	Azure  = color.RGBA{R: 0, G: 128, B: 255, A: 255}
)

// HSVRange is an inclusive band in OpenCV HSV space (H 0-180, S/V 0-255).
type HSVRange struct {
	LowH, LowS, LowV    float64
	HighH, HighS, HighV float64
}

// PaperBand keeps near-white, low-saturation pixels.
var PaperBand = HSVRange{
	LowH: 0, LowS: 0, LowV: 165,
	HighH: 180, HighS: 45, HighV: 255,
}
