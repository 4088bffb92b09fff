package widgets

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"edge-tuner/internal/algorithms"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

type Toolbar struct {
	container   *fyne.Container
	resetButton *widget.Button
	saveButton  *widget.Button
	statusLabel *widget.Label
	timingLabel *widget.Label
	background  *canvas.Rectangle
	border      *canvas.Rectangle

	resetHandler func()
	saveHandler  func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.resetButton = widget.NewButton("Reset", t.onResetClicked)

	t.saveButton = widget.NewButton("Save Edge Map", t.onSaveClicked)
	t.saveButton.Importance = widget.HighImportance

	t.statusLabel = widget.NewLabel("Ready")
	t.timingLabel = widget.NewLabel(FormatTiming(0, nil))
}

func (t *Toolbar) buildLayout() {
	t.background = canvas.NewRectangle(theme.Color(theme.ColorNameBackground))
	t.border = canvas.NewRectangle(color.Transparent)
	t.border.StrokeWidth = 1.0
	t.border.StrokeColor = theme.Color(theme.ColorNameSeparator)

	leftSection := container.NewHBox(t.resetButton, t.saveButton)
	rightSection := container.NewHBox(t.timingLabel)

	content := container.NewBorder(
		nil, nil,
		leftSection,
		rightSection,
		container.NewHBox(widget.NewSeparator(), t.statusLabel),
	)

	t.container = container.NewStack(
		t.border,
		container.NewPadded(
			container.NewStack(t.background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) onResetClicked() {
	if t.resetHandler != nil {
		t.resetHandler()
	}
}

func (t *Toolbar) onSaveClicked() {
	if t.saveHandler != nil {
		t.saveHandler()
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetResetHandler(handler func()) {
	t.resetHandler = handler
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) Status() string {
	return t.statusLabel.Text
}

func (t *Toolbar) SetTiming(total time.Duration, stages []algorithms.StageTiming) {
	t.timingLabel.SetText(FormatTiming(total, stages))
}

// FormatTiming renders the last render time, with the slowest stage when known.
func FormatTiming(total time.Duration, stages []algorithms.StageTiming) string {
	if total <= 0 {
		return "Render: --"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Render: %s", total.Round(time.Millisecond))

	var slowest algorithms.StageTiming
	for _, st := range stages {
		if st.Duration > slowest.Duration {
			slowest = st
		}
	}
	if slowest.Name != "" {
		fmt.Fprintf(&b, " (%s %s)", slowest.Name, slowest.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// HullStatus is the idle status line for a render that filled n hulls.
func HullStatus(n int) string {
	switch n {
	case 0:
		return "Ready: no shapes found"
	case 1:
		return "Ready: 1 shape"
	default:
		return fmt.Sprintf("Ready: %d shapes", n)
	}
}
