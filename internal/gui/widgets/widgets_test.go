package widgets

import (
	"image"
	"image/color"
	"testing"
	"time"

	"edge-tuner/internal/algorithms"
	"edge-tuner/internal/params"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/theme"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaption(t *testing.T) {
	aperture, err := params.SliderFor(params.ApertureSize)
	require.NoError(t, err)
	assert.Equal(t, "Apperture Size: 7", Caption(aperture, 2))
	assert.Equal(t, "Apperture Size: ?", Caption(aperture, 3))

	threshold, err := params.SliderFor(params.Threshold)
	require.NoError(t, err)
	assert.Equal(t, "Min Threshold: 42", Caption(threshold, 42))
}

func TestPositionFromFloat(t *testing.T) {
	assert.Equal(t, 0, PositionFromFloat(-2, 8))
	assert.Equal(t, 3, PositionFromFloat(2.6, 8))
	assert.Equal(t, 8, PositionFromFloat(11, 8))
}

func TestFit(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 40, 30))
	assert.Same(t, small, Fit(small, 100, imaging.Lanczos))

	large := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	fitted := Fit(large, 100, imaging.NearestNeighbor)
	assert.Equal(t, 100, fitted.Bounds().Dx())
	assert.Equal(t, 50, fitted.Bounds().Dy())

	assert.Nil(t, Fit(nil, 100, imaging.Lanczos))
}

func TestFormatTiming(t *testing.T) {
	assert.Equal(t, "Render: --", FormatTiming(0, nil))
	assert.Equal(t, "Render: 12ms", FormatTiming(12*time.Millisecond, nil))

	stages := []algorithms.StageTiming{
		{Name: "blur", Duration: time.Millisecond},
		{Name: "canny", Duration: 8 * time.Millisecond},
	}
	assert.Equal(t, "Render: 12ms (canny 8ms)", FormatTiming(12*time.Millisecond, stages))
}

func TestHullStatus(t *testing.T) {
	assert.Equal(t, "Ready: no shapes found", HullStatus(0))
	assert.Equal(t, "Ready: 1 shape", HullStatus(1))
	assert.Equal(t, "Ready: 4 shapes", HullStatus(4))
}

func TestToolbar_FollowsThemeColours(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	a.Settings().SetTheme(theme.DarkTheme())

	tb := NewToolbar()
	assert.Equal(t, theme.Color(theme.ColorNameBackground), tb.background.FillColor)
	assert.Equal(t, theme.Color(theme.ColorNameSeparator), tb.border.StrokeColor)
	assert.NotEqual(t, color.Color(color.RGBA{R: 250, G: 249, B: 245, A: 255}), tb.background.FillColor)
}
