package canny

import (
	"errors"
	"fmt"
)

var ErrUnsupportedAperture = errors.New("unsupported sobel aperture")

// Separable first-derivative kernels, one per aperture: the derivative taps
// run along the differentiated axis and the smoothing taps across it.
var kernels = map[int]struct {
	deriv  []int32
	smooth []int32
}{
	3: {deriv: []int32{-1, 0, 1}, smooth: []int32{1, 2, 1}},
	5: {deriv: []int32{-1, -2, 0, 2, 1}, smooth: []int32{1, 4, 6, 4, 1}},
	7: {deriv: []int32{-1, -4, -5, 0, 5, 4, 1}, smooth: []int32{1, 6, 15, 20, 15, 6, 1}},
}

// Sobel computes horizontal and vertical derivatives of an 8-bit image stored
// row-major. Borders replicate the outermost pixels.
func Sobel(gray []uint8, width, height, aperture int) (dx, dy []int32, err error) {
	k, ok := kernels[aperture]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedAperture, aperture)
	}
	if err := checkSize(gray, width, height); err != nil {
		return nil, nil, err
	}

	dx = separable(gray, width, height, k.deriv, k.smooth)
	dy = separable(gray, width, height, k.smooth, k.deriv)
	return dx, dy, nil
}

// separable correlates rows with rowK then columns with colK.
func separable(src []uint8, width, height int, rowK, colK []int32) []int32 {
	r := len(rowK) / 2
	tmp := make([]int32, width*height)
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			var acc int32
			for i, k := range rowK {
				acc += k * int32(row[clamp(x+i-r, 0, width-1)])
			}
			tmp[y*width+x] = acc
		}
	}

	c := len(colK) / 2
	out := make([]int32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc int32
			for i, k := range colK {
				acc += k * tmp[clamp(y+i-c, 0, height-1)*width+x]
			}
			out[y*width+x] = acc
		}
	}
	return out
}

func checkSize(gray []uint8, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}
	if len(gray) != width*height {
		return fmt.Errorf("buffer holds %d pixels, want %d for %dx%d", len(gray), width*height, width, height)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
