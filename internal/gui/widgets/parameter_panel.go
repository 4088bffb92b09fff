package widgets

import (
	"fmt"
	"math"

	"edge-tuner/internal/params"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"
)

type sliderRow struct {
	param    params.Slider
	position binding.Float
	caption  binding.String
	slider   *widget.Slider
	current  int
}

// ParameterPanel shows one slider per tunable parameter, in the fixed
// trackbar order, each labelled with the value its position maps to.
type ParameterPanel struct {
	container *fyne.Container
	rows      []*sliderRow
	handler   func(params.Field, int)
}

func NewParameterPanel(initial params.Parameters) *ParameterPanel {
	panel := &ParameterPanel{}
	panel.createRows(initial)
	panel.buildLayout()
	return panel
}

func (pp *ParameterPanel) createRows(initial params.Parameters) {
	for _, slider := range params.Sliders() {
		pos := initial.Position(slider.Field)

		row := &sliderRow{
			param:    slider,
			position: binding.NewFloat(),
			caption:  binding.NewString(),
			current:  pos,
		}
		_ = row.position.Set(float64(pos))
		_ = row.caption.Set(Caption(slider, pos))

		row.slider = widget.NewSliderWithData(0, float64(slider.Max), row.position)
		row.slider.Step = 1

		row.position.AddListener(binding.NewDataListener(func() {
			pp.onPositionChanged(row)
		}))

		pp.rows = append(pp.rows, row)
	}
}

func (pp *ParameterPanel) buildLayout() {
	form := container.NewVBox(widget.NewLabel("Parameters:"))
	for _, row := range pp.rows {
		label := widget.NewLabelWithData(row.caption)
		form.Add(container.NewBorder(nil, nil, container.NewGridWrap(fyne.NewSize(180, 36), label), nil, row.slider))
	}
	pp.container = form
}

func (pp *ParameterPanel) onPositionChanged(row *sliderRow) {
	raw, err := row.position.Get()
	if err != nil {
		return
	}
	pos := PositionFromFloat(raw, row.param.Max)
	_ = row.caption.Set(Caption(row.param, pos))

	if pos == row.current {
		return
	}
	row.current = pos

	if pp.handler != nil {
		pp.handler(row.param.Field, pos)
	}
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

func (pp *ParameterPanel) SetParameterChangeHandler(handler func(params.Field, int)) {
	pp.handler = handler
}

// SetPositions moves every slider to represent p without reporting the
// moves as user changes.
func (pp *ParameterPanel) SetPositions(p params.Parameters) {
	for _, row := range pp.rows {
		pos := p.Position(row.param.Field)
		row.current = pos
		_ = row.position.Set(float64(pos))
		_ = row.caption.Set(Caption(row.param, pos))
	}
}

// Caption is the slider label followed by the value pos maps to.
func Caption(slider params.Slider, pos int) string {
	value, err := slider.ValueAt(pos)
	if err != nil {
		return slider.Label + " ?"
	}
	return fmt.Sprintf("%s %d", slider.Label, value)
}

// PositionFromFloat rounds a slider value to a whole position in [0, max].
func PositionFromFloat(v float64, max int) int {
	pos := int(math.Round(v))
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}
