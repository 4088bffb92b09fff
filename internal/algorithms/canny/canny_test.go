package canny

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stepImage has value lo left of column step and hi from column step on.
func stepImage(width, height, step int, lo, hi uint8) []uint8 {
	img := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= step {
				img[y*width+x] = hi
			} else {
				img[y*width+x] = lo
			}
		}
	}
	return img
}

func countEdges(m []uint8) int {
	n := 0
	for _, v := range m {
		if v == edge {
			n++
		}
	}
	return n
}

func TestSobel_StepResponse(t *testing.T) {
	img := stepImage(20, 10, 10, 0, 100)

	dx, dy, err := Sobel(img, 20, 10, 3)
	require.NoError(t, err)
	require.Equal(t, int32(400), dx[5*20+9])
	require.Equal(t, int32(400), dx[5*20+10])
	require.Equal(t, int32(0), dx[5*20+5])
	for _, v := range dy {
		require.Equal(t, int32(0), v)
	}

	dx, _, err = Sobel(img, 20, 10, 5)
	require.NoError(t, err)
	require.Equal(t, int32(300*16), dx[5*20+9])

	dx, _, err = Sobel(img, 20, 10, 7)
	require.NoError(t, err)
	// taps 5,4,1 land on the bright side at column 9
	require.Equal(t, int32((5+4+1)*100*64), dx[5*20+9])
	require.Equal(t, int32((4+1)*100*64), dx[5*20+8])
}

func TestSobel_Errors(t *testing.T) {
	_, _, err := Sobel(make([]uint8, 4), 2, 2, 4)
	require.ErrorIs(t, err, ErrUnsupportedAperture)

	_, _, err = Sobel(make([]uint8, 3), 2, 2, 3)
	require.Error(t, err)

	_, _, err = Sobel(nil, 0, 0, 3)
	require.Error(t, err)
}

func TestDetect_FlatImageHasNoEdges(t *testing.T) {
	img := make([]uint8, 16*16)
	for i := range img {
		img[i] = 77
	}
	out, err := Detect(img, 16, 16, 0, 0, 3)
	require.NoError(t, err)
	require.Zero(t, countEdges(out))
}

func TestDetect_StepGivesSingleColumn(t *testing.T) {
	const w, h = 20, 10
	img := stepImage(w, h, 10, 0, 100)

	out, err := Detect(img, w, h, 10, 30, 3)
	require.NoError(t, err)
	require.Equal(t, h, countEdges(out))
	for y := 0; y < h; y++ {
		require.Equal(t, edge, out[y*w+9], "row %d", y)
	}
}

func TestDetect_SwapsThresholds(t *testing.T) {
	img := stepImage(20, 10, 10, 0, 100)

	a, err := Detect(img, 20, 10, 10, 30, 3)
	require.NoError(t, err)
	b, err := Detect(img, 20, 10, 30, 10, 3)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDetect_ThresholdsAreStrict(t *testing.T) {
	img := stepImage(20, 10, 10, 0, 100)

	// magnitude is exactly 400: not above low
	out, err := Detect(img, 20, 10, 400, 800, 3)
	require.NoError(t, err)
	require.Zero(t, countEdges(out))

	// candidate but never strong
	out, err = Detect(img, 20, 10, 10, 400, 3)
	require.NoError(t, err)
	require.Zero(t, countEdges(out))
}

func TestDetect_ZeroThresholdsOnBinaryInput(t *testing.T) {
	// min-max normalised input only holds 0 and 1
	img := stepImage(12, 6, 6, 0, 1)
	out, err := Detect(img, 12, 6, 0, 0, 3)
	require.NoError(t, err)
	require.Equal(t, 6, countEdges(out))
}

func TestHysteresis_PromotesConnectedWeak(t *testing.T) {
	const w, h = 8, 8
	state := make([]uint8, w*h)
	for i := range state {
		state[i] = none
	}
	state[1*w+1] = strong
	state[2*w+2] = weak
	state[3*w+3] = weak
	state[6*w+6] = weak

	hysteresis(state, w, h)

	require.Equal(t, uint8(strong), state[2*w+2])
	require.Equal(t, uint8(strong), state[3*w+3])
	require.Equal(t, uint8(weak), state[6*w+6])
}

func TestDetect_CornerPixelsParticipate(t *testing.T) {
	// a bright pixel in the corner is a local maximum against the
	// zero magnitude outside the image
	const w, h = 5, 5
	img := make([]uint8, w*h)
	img[0] = 200
	out, err := Detect(img, w, h, 1, 2, 3)
	require.NoError(t, err)
	require.NotZero(t, countEdges(out))
}
