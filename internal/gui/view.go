package gui

import (
	"image"
	"time"

	"edge-tuner/internal/algorithms"
	"edge-tuner/internal/gui/widgets"
	"edge-tuner/internal/params"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

const defaultSaveName = "edge_map.png"

type View struct {
	window     fyne.Window
	controller *Controller

	toolbar        *widgets.Toolbar
	imageDisplay   *widgets.ImageDisplay
	parameterPanel *widgets.ParameterPanel
	mainContainer  *fyne.Container
}

func NewView(window fyne.Window, initial params.Parameters, previewMax int) *View {
	view := &View{
		window: window,
	}

	view.setupComponents(initial, previewMax)
	view.setupLayout()

	return view
}

func (v *View) SetController(controller *Controller) {
	v.controller = controller
	v.setupEventHandlers()
}

func (v *View) setupComponents(initial params.Parameters, previewMax int) {
	v.toolbar = widgets.NewToolbar()
	v.imageDisplay = widgets.NewImageDisplay(previewMax)
	v.parameterPanel = widgets.NewParameterPanel(initial)
}

func (v *View) setupLayout() {
	v.mainContainer = container.NewBorder(
		nil,
		container.NewVBox(v.toolbar.GetContainer(), v.parameterPanel.GetContainer()),
		nil, nil,
		v.imageDisplay.GetContainer(),
	)
}

func (v *View) setupEventHandlers() {
	if v.controller == nil {
		return
	}

	v.toolbar.SetResetHandler(v.controller.Reset)
	v.toolbar.SetSaveHandler(v.controller.SaveEdgeMap)
	v.parameterPanel.SetParameterChangeHandler(v.controller.UpdateParameter)
}

func (v *View) GetMainContainer() *fyne.Container {
	return v.mainContainer
}

func (v *View) SetOriginalImage(img image.Image) {
	v.imageDisplay.SetOriginalImage(img)
}

func (v *View) SetEdgeImage(img image.Image) {
	v.imageDisplay.SetEdgeImage(img)
}

func (v *View) SetPositions(p params.Parameters) {
	v.parameterPanel.SetPositions(p)
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) SetTiming(total time.Duration, stages []algorithms.StageTiming) {
	v.toolbar.SetTiming(total, stages)
}

func (v *View) ShowError(err error) {
	dialog.ShowError(err, v.window)
}

func (v *View) ShowSaveDialog(callback func(fyne.URIWriteCloser, error)) {
	d := dialog.NewFileSave(callback, v.window)
	d.SetFileName(defaultSaveName)
	d.Show()
}

func (v *View) Show() {
	v.window.SetContent(v.mainContainer)
	v.window.Show()
}
