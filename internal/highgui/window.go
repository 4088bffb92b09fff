// Package highgui drives the tuner through a plain OpenCV window with one
// trackbar per parameter.
package highgui

import (
	"context"
	"sync"

	"edge-tuner/internal/logger"
	"edge-tuner/internal/opencv/bridge"
	"edge-tuner/internal/params"
	"edge-tuner/internal/pipeline"

	"gocv.io/x/gocv"
)

const (
	WindowName = "Edge Map"

	keyEsc = 27
	keyQ   = 'q'

	defaultPollMillis = 30
)

type Coordinator interface {
	Parameters() params.Parameters
	SetParameter(field params.Field, pos int) (bool, error)
	Result() *pipeline.Result
	OnResult(fn func(*pipeline.Result)) (detach func())
}

// mailbox holds only the newest result; older undisplayed ones are dropped.
type mailbox struct {
	mu     sync.Mutex
	latest *pipeline.Result
}

func (m *mailbox) put(res *pipeline.Result) {
	m.mu.Lock()
	m.latest = res
	m.mu.Unlock()
}

func (m *mailbox) take() *pipeline.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.latest
	m.latest = nil
	return res
}

// positions remembers the last trackbar positions so only moves are reported.
type positions struct {
	fields []params.Field
	last   []int
}

func newPositions(p params.Parameters) *positions {
	sliders := params.Sliders()
	ps := &positions{
		fields: make([]params.Field, len(sliders)),
		last:   make([]int, len(sliders)),
	}
	for i, s := range sliders {
		ps.fields[i] = s.Field
		ps.last[i] = p.Position(s.Field)
	}
	return ps
}

// moved reads every position and returns the indices that changed.
func (ps *positions) moved(read func(i int) int) []int {
	var changed []int
	for i := range ps.fields {
		if pos := read(i); pos != ps.last[i] {
			ps.last[i] = pos
			changed = append(changed, i)
		}
	}
	return changed
}

type Window struct {
	coordinator Coordinator
	logger      logger.Logger
	pollMillis  int
	inbox       mailbox
}

func New(coord Coordinator, log logger.Logger) *Window {
	return &Window{
		coordinator: coord,
		logger:      log,
		pollMillis:  defaultPollMillis,
	}
}

// Run shows the window until ESC or q is pressed, the window is closed or
// ctx is done. It must run on the main thread.
func (w *Window) Run(ctx context.Context) error {
	window := gocv.NewWindow(WindowName)
	defer window.Close()

	current := w.coordinator.Parameters()
	sliders := params.Sliders()
	bars := make([]*gocv.Trackbar, len(sliders))
	for i, s := range sliders {
		bars[i] = window.CreateTrackbar(s.Label, s.Max)
		bars[i].SetPos(current.Position(s.Field))
	}
	tracked := newPositions(current)

	detach := w.coordinator.OnResult(w.inbox.put)
	defer detach()
	if res := w.coordinator.Result(); res != nil {
		w.inbox.put(res)
	}

	w.logger.Info("HighGUI", "window opened", map[string]interface{}{
		"window":    WindowName,
		"trackbars": len(bars),
	})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if res := w.inbox.take(); res != nil {
			w.show(window, res)
		}

		key := window.WaitKey(w.pollMillis)
		if key == keyEsc || key == keyQ {
			w.logger.Info("HighGUI", "quit requested", map[string]interface{}{"key": key})
			return nil
		}
		if !window.IsOpen() {
			w.logger.Info("HighGUI", "window closed", nil)
			return nil
		}

		for _, i := range tracked.moved(func(i int) int { return bars[i].GetPos() }) {
			if _, err := w.coordinator.SetParameter(tracked.fields[i], tracked.last[i]); err != nil {
				w.logger.Warning("HighGUI", "trackbar rejected", map[string]interface{}{
					"field": tracked.fields[i].String(),
					"error": err.Error(),
				})
			}
		}
	}
}

func (w *Window) show(window *gocv.Window, res *pipeline.Result) {
	mat, err := bridge.ImageToMat(res.Image)
	if err != nil {
		w.logger.Error("HighGUI", err, map[string]interface{}{"operation": "show_result"})
		return
	}
	defer mat.Close()

	window.IMShow(mat)
}
