// Package params holds the six integer parameters of the edge-map pipeline
// and the slider descriptions used to drive them.
package params

import (
	"errors"
	"fmt"
)

var (
	ErrPositionOutOfRange = errors.New("slider position out of range")
	ErrUnknownField       = errors.New("unknown parameter")
)

type Field int

const (
	Threshold Field = iota
	Ratio
	ApertureSize
	BlurSize
	DilationIter
	ErosionIter
)

func (f Field) String() string {
	switch f {
	case Threshold:
		return "threshold"
	case Ratio:
		return "ratio"
	case ApertureSize:
		return "aperture_size"
	case BlurSize:
		return "blur_size"
	case DilationIter:
		return "dilation_iter"
	case ErosionIter:
		return "erosion_iter"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

var (
	apertureValues = []int{3, 5, 7}
	blurValues     = []int{1, 3, 6, 8, 10, 13, 15, 18, 25}
)

const (
	MaxThreshold    = 100
	MaxRatio        = 50
	MaxDilationIter = 10
	MaxErosionIter  = 10
)

// Slider describes one trackbar. Values, when set, maps a position to the
// parameter value; otherwise the position is the value.
type Slider struct {
	Field  Field
	Label  string
	Max    int
	Values []int
}

var sliders = []Slider{
	{Field: Threshold, Label: "Min Threshold:", Max: MaxThreshold},
	{Field: Ratio, Label: "Threshold Ratio:", Max: MaxRatio},
	{Field: ApertureSize, Label: "Apperture Size:", Max: len(apertureValues) - 1, Values: apertureValues},
	{Field: BlurSize, Label: "Blur Size:", Max: len(blurValues) - 1, Values: blurValues},
	{Field: DilationIter, Label: "Dilation Iters:", Max: MaxDilationIter},
	{Field: ErosionIter, Label: "Erosion Iters:", Max: MaxErosionIter},
}

// Sliders returns the trackbars in display order.
func Sliders() []Slider {
	out := make([]Slider, len(sliders))
	copy(out, sliders)
	return out
}

// SliderFor looks up the trackbar controlling field.
func SliderFor(field Field) (Slider, error) {
	for _, s := range sliders {
		if s.Field == field {
			return s, nil
		}
	}
	return Slider{}, fmt.Errorf("%w: %v", ErrUnknownField, field)
}

func (s Slider) ValueAt(pos int) (int, error) {
	if pos < 0 || pos > s.Max {
		return 0, fmt.Errorf("%w: %s position %d not in [0, %d]", ErrPositionOutOfRange, s.Field, pos, s.Max)
	}
	if s.Values != nil {
		return s.Values[pos], nil
	}
	return pos, nil
}

// PositionOf is the inverse of ValueAt. Values missing from a lookup table
// map to the nearest lower entry.
func (s Slider) PositionOf(value int) int {
	if s.Values == nil {
		return clamp(value, 0, s.Max)
	}
	pos := 0
	for i, v := range s.Values {
		if v <= value {
			pos = i
		}
	}
	return pos
}

type Parameters struct {
	Threshold    int
	Ratio        int
	ApertureSize int
	BlurSize     int
	DilationIter int
	ErosionIter  int
}

func Default() Parameters {
	return Parameters{
		Threshold:    0,
		Ratio:        3,
		ApertureSize: 3,
		BlurSize:     1,
		DilationIter: 0,
		ErosionIter:  0,
	}
}

func (p Parameters) Get(field Field) int {
	switch field {
	case Threshold:
		return p.Threshold
	case Ratio:
		return p.Ratio
	case ApertureSize:
		return p.ApertureSize
	case BlurSize:
		return p.BlurSize
	case DilationIter:
		return p.DilationIter
	case ErosionIter:
		return p.ErosionIter
	}
	return 0
}

func (p *Parameters) put(field Field, value int) {
	switch field {
	case Threshold:
		p.Threshold = value
	case Ratio:
		p.Ratio = value
	case ApertureSize:
		p.ApertureSize = value
	case BlurSize:
		p.BlurSize = value
	case DilationIter:
		p.DilationIter = value
	case ErosionIter:
		p.ErosionIter = value
	}
}

// Set applies a slider position and reports whether the stored value changed.
func (p *Parameters) Set(field Field, pos int) (bool, error) {
	slider, err := SliderFor(field)
	if err != nil {
		return false, err
	}
	value, err := slider.ValueAt(pos)
	if err != nil {
		return false, err
	}
	if p.Get(field) == value {
		return false, nil
	}
	p.put(field, value)
	return true, nil
}

// Position returns the slider position that represents the current value.
func (p Parameters) Position(field Field) int {
	slider, err := SliderFor(field)
	if err != nil {
		return 0
	}
	return slider.PositionOf(p.Get(field))
}

// Low and High are the hysteresis thresholds handed to edge detection.
func (p Parameters) Low() float64 {
	return float64(p.Threshold)
}

func (p Parameters) High() float64 {
	return float64(p.Threshold * p.Ratio)
}

func (p Parameters) Validate() error {
	if !contains(apertureValues, p.ApertureSize) {
		return fmt.Errorf("aperture_size must be one of %v, got: %d", apertureValues, p.ApertureSize)
	}
	if p.BlurSize < 1 {
		return fmt.Errorf("blur_size must be at least 1, got: %d", p.BlurSize)
	}
	if p.Threshold < 0 || p.Threshold > MaxThreshold {
		return fmt.Errorf("threshold must be between 0 and %d, got: %d", MaxThreshold, p.Threshold)
	}
	if p.Ratio < 0 || p.Ratio > MaxRatio {
		return fmt.Errorf("ratio must be between 0 and %d, got: %d", MaxRatio, p.Ratio)
	}
	if p.DilationIter < 0 || p.DilationIter > MaxDilationIter {
		return fmt.Errorf("dilation_iter must be between 0 and %d, got: %d", MaxDilationIter, p.DilationIter)
	}
	if p.ErosionIter < 0 || p.ErosionIter > MaxErosionIter {
		return fmt.Errorf("erosion_iter must be between 0 and %d, got: %d", MaxErosionIter, p.ErosionIter)
	}
	return nil
}

// Fields flattens the parameters for structured logging.
func (p Parameters) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(sliders))
	for _, s := range sliders {
		fields[s.Field.String()] = p.Get(s.Field)
	}
	return fields
}

func contains(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
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
