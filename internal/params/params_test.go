package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.Equal(t, 0, p.Threshold)
	require.Equal(t, 3, p.Ratio)
	require.Equal(t, 3, p.ApertureSize)
	require.Equal(t, 1, p.BlurSize)
	require.Equal(t, 0, p.DilationIter)
	require.Equal(t, 0, p.ErosionIter)
	require.NoError(t, p.Validate())
}

func TestSliders_OrderAndRanges(t *testing.T) {
	got := Sliders()
	require.Len(t, got, 6)

	want := []struct {
		field Field
		label string
		max   int
	}{
		{Threshold, "Min Threshold:", 100},
		{Ratio, "Threshold Ratio:", 50},
		{ApertureSize, "Apperture Size:", 2},
		{BlurSize, "Blur Size:", 8},
		{DilationIter, "Dilation Iters:", 10},
		{ErosionIter, "Erosion Iters:", 10},
	}
	for i, w := range want {
		assert.Equal(t, w.field, got[i].Field)
		assert.Equal(t, w.label, got[i].Label)
		assert.Equal(t, w.max, got[i].Max)
	}
}

func TestSliders_ReturnsCopy(t *testing.T) {
	s := Sliders()
	s[0].Max = 1
	require.Equal(t, MaxThreshold, Sliders()[0].Max)
}

func TestSlider_LookupTables(t *testing.T) {
	aperture, err := SliderFor(ApertureSize)
	require.NoError(t, err)
	for pos, want := range []int{3, 5, 7} {
		v, err := aperture.ValueAt(pos)
		require.NoError(t, err)
		require.Equal(t, want, v)
		require.Equal(t, pos, aperture.PositionOf(want))
	}

	blur, err := SliderFor(BlurSize)
	require.NoError(t, err)
	for pos, want := range []int{1, 3, 6, 8, 10, 13, 15, 18, 25} {
		v, err := blur.ValueAt(pos)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
	require.Equal(t, 2, blur.PositionOf(7))
}

func TestSlider_OutOfRange(t *testing.T) {
	s, err := SliderFor(Threshold)
	require.NoError(t, err)

	_, err = s.ValueAt(-1)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = s.ValueAt(101)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestParameters_SetReportsChange(t *testing.T) {
	p := Default()

	changed, err := p.Set(Threshold, 0)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = p.Set(Threshold, 40)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 40, p.Threshold)

	changed, err = p.Set(BlurSize, 3)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 8, p.BlurSize)

	// position 0 maps to aperture 3 which is already the default
	changed, err = p.Set(ApertureSize, 0)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestParameters_SetRejectsBadPosition(t *testing.T) {
	p := Default()
	changed, err := p.Set(ApertureSize, 3)
	require.ErrorIs(t, err, ErrPositionOutOfRange)
	require.False(t, changed)
	require.Equal(t, 3, p.ApertureSize)

	_, err = p.Set(Field(42), 0)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestParameters_Thresholds(t *testing.T) {
	p := Parameters{Threshold: 7, Ratio: 3, ApertureSize: 3, BlurSize: 1}
	require.Equal(t, 7.0, p.Low())
	require.Equal(t, 21.0, p.High())
}

func TestParameters_Position(t *testing.T) {
	p := Parameters{Threshold: 12, Ratio: 3, ApertureSize: 7, BlurSize: 18, DilationIter: 2, ErosionIter: 1}
	require.Equal(t, 12, p.Position(Threshold))
	require.Equal(t, 3, p.Position(Ratio))
	require.Equal(t, 2, p.Position(ApertureSize))
	require.Equal(t, 7, p.Position(BlurSize))
	require.Equal(t, 2, p.Position(DilationIter))
	require.Equal(t, 1, p.Position(ErosionIter))
}

func TestParameters_Validate(t *testing.T) {
	cases := map[string]Parameters{
		"aperture": {ApertureSize: 4, BlurSize: 1},
		"blur":     {ApertureSize: 3, BlurSize: 0},
		"ratio":    {ApertureSize: 3, BlurSize: 1, Ratio: 51},
		"erosion":  {ApertureSize: 3, BlurSize: 1, ErosionIter: -1},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, p.Validate())
		})
	}
}

func TestParameters_Fields(t *testing.T) {
	fields := Default().Fields()
	require.Len(t, fields, 6)
	require.Equal(t, 3, fields["ratio"])
	require.Equal(t, 1, fields["blur_size"])
}
