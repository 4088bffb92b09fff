package gui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"edge-tuner/internal/gui/widgets"
	"edge-tuner/internal/logger"
	"edge-tuner/internal/params"
	"edge-tuner/internal/pipeline"

	"fyne.io/fyne/v2"
)

// Coordinator is the part of the pipeline the GUI drives.
type Coordinator interface {
	Frame() *pipeline.Frame
	Parameters() params.Parameters
	SetParameter(field params.Field, pos int) (bool, error)
	Reset() bool
	Result() *pipeline.Result
	OnResult(fn func(*pipeline.Result)) (detach func())
	OnError(fn func(error)) (detach func())
	SaveResultTo(writer io.Writer, format string) error
}

type Controller struct {
	view        *View
	coordinator Coordinator
	logger      logger.Logger
	detachers   []func()
}

func NewController(coord Coordinator, log logger.Logger) *Controller {
	return &Controller{
		coordinator: coord,
		logger:      log,
	}
}

// SetView connects the view and subscribes to render results.
func (c *Controller) SetView(view *View) {
	c.view = view

	if frame := c.coordinator.Frame(); frame != nil {
		view.SetOriginalImage(frame.Image)
	}
	if res := c.coordinator.Result(); res != nil {
		c.showResult(res)
	}

	c.detachers = append(c.detachers,
		c.coordinator.OnResult(func(res *pipeline.Result) {
			fyne.Do(func() { c.showResult(res) })
		}),
		c.coordinator.OnError(func(err error) {
			c.handleError("Render error", err)
		}),
	)
}

// Detach stops delivering coordinator events to the view.
func (c *Controller) Detach() {
	for _, detach := range c.detachers {
		detach()
	}
	c.detachers = nil
}

func (c *Controller) showResult(res *pipeline.Result) {
	c.view.SetEdgeImage(res.Image)
	c.view.SetTiming(res.Duration, res.Stages)
	c.view.SetStatus(widgets.HullStatus(res.Hulls))
}

func (c *Controller) UpdateParameter(field params.Field, pos int) {
	changed, err := c.coordinator.SetParameter(field, pos)
	if err != nil {
		c.handleError("Parameter error", err)
		return
	}
	if changed {
		c.view.SetStatus("Rendering...")
	}
}

func (c *Controller) Reset() {
	if c.coordinator.Reset() {
		c.view.SetStatus("Rendering...")
	}
	c.view.SetPositions(c.coordinator.Parameters())
	c.logger.Info("Controller", "parameters reset", c.coordinator.Parameters().Fields())
}

func (c *Controller) SaveEdgeMap() {
	if c.coordinator.Result() == nil {
		c.handleError("Save error", pipeline.ErrNoResult)
		return
	}

	c.view.ShowSaveDialog(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			c.handleError("File save error", err)
			return
		}
		if writer == nil {
			return
		}

		format := strings.ToLower(writer.URI().Extension())
		if format == "" {
			format = "png"
		}

		c.view.SetStatus("Saving edge map...")
		go c.save(writer, format)
	})
}

func (c *Controller) save(writer fyne.URIWriteCloser, format string) {
	start := time.Now()
	saveErr := c.coordinator.SaveResultTo(writer, format)
	closeErr := writer.Close()

	fyne.Do(func() {
		if err := errors.Join(saveErr, closeErr); err != nil {
			c.handleError("Image save error", fmt.Errorf("saving %s: %w", writer.URI().Path(), err))
			c.view.SetStatus("Save failed")
			return
		}
		c.view.SetStatus("Edge map saved")
		c.logger.Info("Controller", "edge map saved", map[string]interface{}{
			"path":      writer.URI().Path(),
			"format":    format,
			"save_time": time.Since(start),
		})
	})
}

func (c *Controller) handleError(title string, err error) {
	c.logger.Error("Controller", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		c.view.ShowError(err)
	})
}
