package colorutil

import (
	"runtime"
	"sync"
)

const (
	meanShiftMaxIter = 5
	meanShiftEpsilon = 1
)

// MeanShiftFilter runs single-level mean-shift region merging over an
// interleaved 3-channel buffer (row-major, width*height*3 bytes). Each pixel
// converges towards the mode of the joint spatial (radius sp) and color
// (radius sr) window; the output pixel takes the color of that mode. The
// input is not modified.
func MeanShiftFilter(pix []uint8, width, height, sp int, sr float64) []uint8 {
	out := make([]uint8, len(pix))
	if width <= 0 || height <= 0 || len(pix) < width*height*3 {
		copy(out, pix)
		return out
	}
	sr2 := sr * sr

	// Rows are independent; each worker writes only its own rows of out.
	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	var wg sync.WaitGroup
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				for x := 0; x < width; x++ {
					c := shiftPixel(pix, width, height, x, y, sp, sr2)
					i := (y*width + x) * 3
					out[i], out[i+1], out[i+2] = c[0], c[1], c[2]
				}
			}
		}()
	}
	wg.Wait()
	return out
}

func shiftPixel(pix []uint8, width, height, x0, y0, sp int, sr2 float64) [3]uint8 {
	i := (y0*width + x0) * 3
	c0 := [3]int{int(pix[i]), int(pix[i+1]), int(pix[i+2])}

	for iter := 0; iter < meanShiftMaxIter; iter++ {
		minX, maxX := max(x0-sp, 0), min(x0+sp, width-1)
		minY, maxY := max(y0-sp, 0), min(y0+sp, height-1)

		var sx, sy, s0, s1, s2, count int
		for y := minY; y <= maxY; y++ {
			row := y * width
			for x := minX; x <= maxX; x++ {
				j := (row + x) * 3
				d0 := int(pix[j]) - c0[0]
				d1 := int(pix[j+1]) - c0[1]
				d2 := int(pix[j+2]) - c0[2]
				if float64(d0*d0+d1*d1+d2*d2) > sr2 {
					continue
				}
				sx += x
				sy += y
				s0 += int(pix[j])
				s1 += int(pix[j+1])
				s2 += int(pix[j+2])
				count++
			}
		}
		if count == 0 {
			break
		}

		nx := roundDiv(sx, count)
		ny := roundDiv(sy, count)
		nc := [3]int{roundDiv(s0, count), roundDiv(s1, count), roundDiv(s2, count)}

		shift := abs(nx-x0) + abs(ny-y0) +
			abs(nc[0]-c0[0]) + abs(nc[1]-c0[1]) + abs(nc[2]-c0[2])
		x0, y0, c0 = nx, ny, nc
		if shift <= meanShiftEpsilon {
			break
		}
	}
	return [3]uint8{uint8(c0[0]), uint8(c0[1]), uint8(c0[2])}
}

func roundDiv(sum, n int) int {
	return (sum + n/2) / n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
