// Package canny implements Canny edge detection on 8-bit row-major buffers,
// following OpenCV's conventions: L1 gradient magnitude, four-sector
// non-maximum suppression and 8-connected hysteresis.
//
// gocv only exposes Canny with the default 3x3 aperture, so the tuner runs
// this implementation to honour the 5 and 7 apertures too.
package canny

import (
	"math"
)

const (
	edge    uint8 = 255
	notEdge uint8 = 0
)

// map states during hysteresis
const (
	weak   = 0
	none   = 1
	strong = 2
)

// tan(22.5°) in Q15 fixed point, as in OpenCV.
const tg22 = 13573

// Detect returns a binary edge map (255 = edge) for gray.
// If low > high the two thresholds are swapped.
func Detect(gray []uint8, width, height int, low, high float64, aperture int) ([]uint8, error) {
	dx, dy, err := Sobel(gray, width, height, aperture)
	if err != nil {
		return nil, err
	}

	if low > high {
		low, high = high, low
	}
	lo := int32(math.Floor(low))
	hi := int32(math.Floor(high))

	mag := make([]int32, width*height)
	for i := range mag {
		mag[i] = abs(dx[i]) + abs(dy[i])
	}

	state := suppress(mag, dx, dy, width, height, lo, hi)
	hysteresis(state, width, height)

	out := make([]uint8, width*height)
	for i, s := range state {
		if s == strong {
			out[i] = edge
		} else {
			out[i] = notEdge
		}
	}
	return out, nil
}

// suppress keeps local maxima along the gradient direction and classifies
// them as strong or weak. Magnitude outside the image counts as zero.
func suppress(mag, dx, dy []int32, width, height int, lo, hi int32) []uint8 {
	at := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	state := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m := mag[i]
			state[i] = none
			if m <= lo {
				continue
			}

			xs := int64(abs(dx[i]))
			ys := int64(abs(dy[i])) << 15
			tg22x := xs * tg22

			var maximum bool
			switch {
			case ys < tg22x:
				maximum = m > at(x-1, y) && m >= at(x+1, y)
			case ys > tg22x+(xs<<16):
				maximum = m > at(x, y-1) && m >= at(x, y+1)
			default:
				s := 1
				if (dx[i] ^ dy[i]) < 0 {
					s = -1
				}
				maximum = m > at(x-s, y-1) && m > at(x+s, y+1)
			}
			if !maximum {
				continue
			}

			if m > hi {
				state[i] = strong
			} else {
				state[i] = weak
			}
		}
	}
	return state
}

// hysteresis promotes weak pixels 8-connected to a strong one.
func hysteresis(state []uint8, width, height int) {
	stack := make([]int, 0, 256)
	for i, s := range state {
		if s == strong {
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		for ny := y - 1; ny <= y+1; ny++ {
			if ny < 0 || ny >= height {
				continue
			}
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || nx >= width {
					continue
				}
				j := ny*width + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
