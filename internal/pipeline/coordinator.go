package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"edge-tuner/internal/algorithms"
	"edge-tuner/internal/logger"
	"edge-tuner/internal/opencv/bridge"
	"edge-tuner/internal/opencv/memory"
	"edge-tuner/internal/opencv/safe"
	"edge-tuner/internal/params"

	"gocv.io/x/gocv"
)

var (
	ErrNoImage  = errors.New("no image loaded")
	ErrNoResult = errors.New("no edge map rendered yet")
)

// Result is one rendered edge map.
type Result struct {
	Image    image.Image
	Params   params.Parameters
	Duration time.Duration
	Stages   []algorithms.StageTiming
	// Hulls is the number of filled convex hulls in Image.
	Hulls int
}

type resultListener struct {
	id uint64
	fn func(*Result)
}

type errorListener struct {
	id uint64
	fn func(error)
}

type Option func(*Coordinator)

func WithFillColor(c color.RGBA) Option {
	return func(co *Coordinator) { co.fillColor = c }
}

// WithRenderTimeout bounds a single render.
func WithRenderTimeout(d time.Duration) Option {
	return func(co *Coordinator) { co.timeout = d }
}

// Coordinator owns the loaded frame, the current parameters and the latest
// result. Renders requested while one is running are coalesced: the worker
// always renders the newest parameters and cancels renders that went stale.
type Coordinator struct {
	mu            sync.RWMutex
	frame         *Frame
	params        params.Parameters
	result        *Result
	resultMat     *safe.Mat
	memoryManager *memory.Manager
	logger        logger.Logger
	algorithms    *algorithms.Manager
	loader        *Loader
	saver         *Saver
	fillColor     color.RGBA
	timeout       time.Duration

	listeners      []resultListener
	errorListeners []errorListener
	nextListener   uint64

	requests       chan struct{}
	generation     uint64
	inflightCancel context.CancelFunc
	renderMu       sync.Mutex
	started        bool
	wg             sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(memMgr *memory.Manager, log logger.Logger, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	coord := &Coordinator{
		params:        params.Default(),
		memoryManager: memMgr,
		logger:        log,
		fillColor:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		timeout:       30 * time.Second,
		requests:      make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(coord)
	}

	coord.algorithms = algorithms.NewManager(
		algorithms.WithFillColor(coord.fillColor),
		algorithms.WithAllocator(memMgr),
		algorithms.WithStageObserver(func(st algorithms.StageTiming) {
			log.Debug("PipelineCoordinator", "stage finished", map[string]interface{}{
				"stage":    st.Name,
				"duration": st.Duration,
			})
		}),
	)
	coord.loader = NewLoader(memMgr, log)
	coord.saver = NewSaver(log)

	log.Info("PipelineCoordinator", "initialized", map[string]interface{}{
		"stages": coord.algorithms.Stages(),
	})
	return coord
}

// Load replaces the current frame. The previous result is discarded.
func (c *Coordinator) Load(path string) (*Frame, error) {
	start := time.Now()

	frame, err := c.loader.LoadFile(path)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "load_image",
			"path":      path,
		})
		return nil, err
	}

	c.mu.Lock()
	old, oldMat := c.frame, c.resultMat
	c.frame = frame
	c.result, c.resultMat = nil, nil
	c.generation++
	if c.inflightCancel != nil {
		c.inflightCancel()
	}
	c.mu.Unlock()

	old.release(c.memoryManager)
	c.memoryManager.Release(oldMat)

	c.logger.Info("PipelineCoordinator", "frame ready", map[string]interface{}{
		"path":      path,
		"load_time": time.Since(start),
	})
	return frame, nil
}

func (c *Coordinator) Frame() *Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}

func (c *Coordinator) Parameters() params.Parameters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// SetParameter applies a slider position. A render is requested only when
// the stored value changed.
func (c *Coordinator) SetParameter(field params.Field, pos int) (bool, error) {
	c.mu.Lock()
	changed, err := c.params.Set(field, pos)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warning("PipelineCoordinator", "rejected slider position", map[string]interface{}{
			"field":    field.String(),
			"position": pos,
			"error":    err.Error(),
		})
		return false, err
	}
	if changed {
		c.logger.Debug("PipelineCoordinator", "parameter changed", map[string]interface{}{
			"field": field.String(),
			"value": c.Parameters().Get(field),
		})
		c.RequestRender()
	}
	return changed, nil
}

// SetParameters replaces all six values at once.
func (c *Coordinator) SetParameters(p params.Parameters) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	changed := c.params != p
	c.params = p
	c.mu.Unlock()

	if changed {
		c.RequestRender()
	}
	return changed, nil
}

// Reset restores the default parameters.
func (c *Coordinator) Reset() bool {
	changed, _ := c.SetParameters(params.Default())
	return changed
}

// OnResult registers fn for every published result. The returned func
// detaches it.
func (c *Coordinator) OnResult(fn func(*Result)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, resultListener{id: id, fn: fn})
	return func() { c.removeListener(id) }
}

// OnError registers fn for failures of background renders. The returned
// func detaches it.
func (c *Coordinator) OnError(fn func(error)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListener++
	id := c.nextListener
	c.errorListeners = append(c.errorListeners, errorListener{id: id, fn: fn})
	return func() { c.removeListener(id) }
}

func (c *Coordinator) removeListener(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
	for i, l := range c.errorListeners {
		if l.id == id {
			c.errorListeners = append(c.errorListeners[:i:i], c.errorListeners[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) Result() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Start launches the render worker. Without it RequestRender is a no-op and
// callers render with Render.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	c.wg.Add(1)
	go c.renderLoop()
}

// RequestRender schedules a render of the current parameters and cancels
// any render already in flight.
func (c *Coordinator) RequestRender() {
	c.mu.Lock()
	c.generation++
	if c.inflightCancel != nil {
		c.inflightCancel()
	}
	started := c.started
	c.mu.Unlock()

	if !started {
		return
	}

	select {
	case c.requests <- struct{}{}:
	default:
		// a request is already pending and will pick up the latest values
	}
}

func (c *Coordinator) renderLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.requests:
			c.renderLatest()
		}
	}
}

func (c *Coordinator) renderLatest() {
	_, err := c.Render(c.ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, errStale):
		c.logger.Debug("PipelineCoordinator", "stale render dropped", nil)
	default:
		c.notifyError(err)
	}
}

var errStale = errors.New("render superseded")

// Render synchronously renders the current parameters and publishes the
// result to listeners.
func (c *Coordinator) Render(parent context.Context) (*Result, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	c.mu.Lock()
	frame := c.frame
	p := c.params
	gen := c.generation
	c.inflightCancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inflightCancel = nil
		c.mu.Unlock()
	}()

	if frame == nil {
		return nil, ErrNoImage
	}

	start := time.Now()
	out, err := c.algorithms.Run(ctx, frame, p)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
				"operation":  "render",
				"parameters": p.Fields(),
			})
		}
		return nil, err
	}

	mat := out.Mat

	var img image.Image
	err = mat.With(func(m gocv.Mat) error {
		var convErr error
		img, convErr = bridge.MatToImage(m)
		return convErr
	})
	if err != nil {
		c.memoryManager.Release(mat)
		return nil, fmt.Errorf("edge map conversion failed: %w", err)
	}

	res := &Result{
		Image:    img,
		Params:   p,
		Duration: time.Since(start),
		Stages:   out.Stages,
		Hulls:    out.Hulls,
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.memoryManager.Release(mat)
		return nil, errStale
	}
	oldMat := c.resultMat
	c.result, c.resultMat = res, mat
	listeners := make([]resultListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	c.memoryManager.Release(oldMat)

	c.logger.Info("PipelineCoordinator", "edge map rendered", map[string]interface{}{
		"render_time": res.Duration,
		"hulls":       res.Hulls,
		"parameters":  p.Fields(),
	})

	for _, l := range listeners {
		l.fn(res)
	}
	return res, nil
}

func (c *Coordinator) notifyError(err error) {
	c.mu.RLock()
	listeners := make([]errorListener, len(c.errorListeners))
	copy(listeners, c.errorListeners)
	c.mu.RUnlock()

	for _, l := range listeners {
		l.fn(err)
	}
}

// SaveResult writes the current edge map; the format follows the extension.
func (c *Coordinator) SaveResult(path string) error {
	res := c.Result()
	if res == nil {
		return ErrNoResult
	}
	return c.saver.SaveToPath(path, res.Image)
}

func (c *Coordinator) SaveResultTo(writer io.Writer, format string) error {
	res := c.Result()
	if res == nil {
		return ErrNoResult
	}
	return c.saver.SaveToWriter(writer, res.Image, format)
}

// Shutdown stops the worker and releases every Mat the coordinator holds.
func (c *Coordinator) Shutdown() {
	c.logger.Info("PipelineCoordinator", "shutdown started", nil)

	c.cancel()
	c.wg.Wait()

	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	frame, mat := c.frame, c.resultMat
	c.frame, c.resultMat, c.result = nil, nil, nil
	c.mu.Unlock()

	frame.release(c.memoryManager)
	c.memoryManager.Release(mat)

	c.logger.Info("PipelineCoordinator", "shutdown completed", nil)
}
