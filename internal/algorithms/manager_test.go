package algorithms

import (
	"context"
	"image"
	"image/color"
	"testing"

	"edge-tuner/internal/opencv/bridge"
	"edge-tuner/internal/opencv/conversion"
	"edge-tuner/internal/opencv/safe"
	"edge-tuner/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type testFrame struct {
	source *safe.Mat
	gray   *safe.Mat
}

func (f *testFrame) Source() *safe.Mat { return f.source }
func (f *testFrame) Gray() *safe.Mat   { return f.gray }

func (f *testFrame) Close() {
	f.source.Close()
	f.gray.Close()
}

// squareFrame is a black 64x64 BGR image with a white square in the middle.
func squareFrame(t *testing.T, withSquare bool) *testFrame {
	t.Helper()

	var shapes []image.Rectangle
	if withSquare {
		shapes = append(shapes, image.Rect(20, 20, 44, 44))
	}
	return shapeFrame(t, 64, shapes...)
}

// lFrame is a black 128x128 image with a white L whose notch faces the
// bottom right corner.
func lFrame(t *testing.T) *testFrame {
	t.Helper()
	return shapeFrame(t, 128, image.Rect(10, 10, 118, 30), image.Rect(10, 10, 30, 118))
}

func shapeFrame(t *testing.T, side int, shapes ...image.Rectangle) *testFrame {
	t.Helper()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), side, side, gocv.MatTypeCV8UC3)
	for _, r := range shapes {
		gocv.Rectangle(&img, r, color.RGBA{R: 255, G: 255, B: 255}, -1)
	}

	source, err := safe.Adopt(img, nil, "source")
	require.NoError(t, err)

	gray, err := conversion.PrepareGray(source)
	require.NoError(t, err)
	graySafe, err := safe.Adopt(gray, nil, "gray")
	require.NoError(t, err)

	return &testFrame{source: source, gray: graySafe}
}

func pixel(t *testing.T, m *safe.Mat, x, y int) color.RGBA {
	t.Helper()

	var img image.Image
	require.NoError(t, m.With(func(mat gocv.Mat) error {
		var err error
		img, err = bridge.MatToImage(mat)
		return err
	}))
	return img.(*image.RGBA).RGBAAt(x, y)
}

// lit counts the output pixels painted with the fill colour.
func lit(t *testing.T, m *safe.Mat) int {
	t.Helper()

	var count int
	require.NoError(t, m.With(func(mat gocv.Mat) error {
		gray, err := conversion.ConvertToGrayscale(mat)
		if err != nil {
			return err
		}
		defer gray.Close()
		count = gocv.CountNonZero(gray)
		return nil
	}))
	return count
}

func run(t *testing.T, m *Manager, frame Frame, p params.Parameters) *Output {
	t.Helper()

	out, err := m.Run(context.Background(), frame, p)
	require.NoError(t, err)
	t.Cleanup(out.Mat.Close)
	return out
}

type recordingAllocator struct {
	untracked
	tags []string
}

func (r *recordingAllocator) NewMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	r.tags = append(r.tags, tag)
	return r.untracked.NewMat(rows, cols, matType, tag)
}

func (r *recordingAllocator) Track(mat gocv.Mat, tag string) (*safe.Mat, error) {
	r.tags = append(r.tags, tag)
	return r.untracked.Track(mat, tag)
}

func TestManager_StageOrder(t *testing.T) {
	m := NewManager()
	require.Equal(t, []string{"blur", "canny", "morphology", "hull", "composite"}, m.Stages())
}

func TestManager_RegisterRejectsDuplicate(t *testing.T) {
	m := NewManager()
	err := m.Register(&blurStage{})
	require.ErrorIs(t, err, ErrDuplicateStage)
	require.Len(t, m.Stages(), 5)
}

func TestManager_RunFillsSquare(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	var observed []string
	m := NewManager(WithStageObserver(func(st StageTiming) { observed = append(observed, st.Name) }))

	out, err := m.Run(context.Background(), frame, params.Default())
	require.NoError(t, err)
	defer out.Mat.Close()

	assert.Equal(t, 1, out.Hulls)
	assert.Equal(t, 64, out.Mat.Rows())
	assert.Equal(t, 64, out.Mat.Cols())
	assert.Equal(t, gocv.MatTypeCV8UC3, out.Mat.Type())
	assert.Len(t, out.Stages, 5)
	assert.Equal(t, m.Stages(), observed)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	assert.Equal(t, white, pixel(t, out.Mat, 32, 32))
	assert.Equal(t, black, pixel(t, out.Mat, 0, 0))
	assert.Equal(t, black, pixel(t, out.Mat, 63, 63))
}

func TestManager_RunBlankImageIsBlack(t *testing.T) {
	frame := squareFrame(t, false)
	defer frame.Close()

	out, err := NewManager().Run(context.Background(), frame, params.Default())
	require.NoError(t, err)
	defer out.Mat.Close()

	for _, pt := range []image.Point{{0, 0}, {32, 32}, {63, 0}} {
		assert.Equal(t, color.RGBA{A: 255}, pixel(t, out.Mat, pt.X, pt.Y))
	}
}

func TestManager_FillColor(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	red := color.RGBA{R: 255, A: 255}
	m := NewManager(WithFillColor(red))
	require.Equal(t, red, m.FillColor())

	out, err := m.Run(context.Background(), frame, params.Default())
	require.NoError(t, err)
	defer out.Mat.Close()

	assert.Equal(t, red, pixel(t, out.Mat, 32, 32))
}

func TestManager_LargerApertures(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	for _, aperture := range []int{5, 7} {
		p := params.Default()
		p.ApertureSize = aperture

		out, err := NewManager().Run(context.Background(), frame, p)
		require.NoError(t, err, "aperture %d", aperture)
		assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, pixel(t, out.Mat, 32, 32))
		out.Mat.Close()
	}
}

func TestManager_RunRejectsInvalidParameters(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	p := params.Default()
	p.ApertureSize = 4

	_, err := NewManager().Run(context.Background(), frame, p)
	require.Error(t, err)
}

func TestManager_RunHonoursCancellation(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManager().Run(ctx, frame, params.Default())
	require.ErrorIs(t, err, context.Canceled)
}

func TestManager_RunRejectsClosedFrame(t *testing.T) {
	frame := squareFrame(t, true)
	frame.Close()

	_, err := NewManager().Run(context.Background(), frame, params.Default())
	require.Error(t, err)
}

func TestFillScalar(t *testing.T) {
	s := fillScalar(color.RGBA{R: 10, G: 20, B: 30, A: 255}, 3)
	assert.Equal(t, 30.0, s.Val1)
	assert.Equal(t, 20.0, s.Val2)
	assert.Equal(t, 10.0, s.Val3)

	s = fillScalar(color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
	assert.Equal(t, 255.0, s.Val1)
}

func TestManager_HullFillsConcavity(t *testing.T) {
	frame := lFrame(t)
	defer frame.Close()

	out := run(t, NewManager(), frame, params.Default())
	require.Equal(t, 1, out.Hulls)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	assert.Equal(t, white, pixel(t, out.Mat, 20, 20), "arm")
	assert.Equal(t, white, pixel(t, out.Mat, 70, 70), "notch inside the hull")
	assert.Equal(t, color.RGBA{A: 255}, pixel(t, out.Mat, 115, 115), "outside the hull")
}

func TestManager_DilationGrowsFilledArea(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	m := NewManager()
	base := lit(t, run(t, m, frame, params.Default()).Mat)

	p := params.Default()
	p.DilationIter = 10
	grown := lit(t, run(t, m, frame, p).Mat)

	assert.Greater(t, grown, base)
}

func TestManager_ErosionRemovesThinEdges(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	p := params.Default()
	p.ErosionIter = 10
	out := run(t, NewManager(), frame, p)

	assert.Zero(t, out.Hulls)
	assert.Zero(t, lit(t, out.Mat))
}

func TestManager_ThresholdAboveNormalisedGradient(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	// the prepared gray is 0/1, so an aperture 3 gradient never exceeds
	// 8 and nothing is strong at high = 5*3
	p := params.Default()
	p.Threshold = 5
	out := run(t, NewManager(), frame, p)

	assert.Zero(t, out.Hulls)
	assert.Zero(t, lit(t, out.Mat))
}

func TestManager_AllocatesThroughAllocator(t *testing.T) {
	frame := squareFrame(t, true)
	defer frame.Close()

	alloc := &recordingAllocator{}
	run(t, NewManager(WithAllocator(alloc)), frame, params.Default())

	assert.Equal(t, []string{"blurred", "edges", "cleaned", "hull_mask", "edge_map"}, alloc.tags)
}
