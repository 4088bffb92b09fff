package algorithms

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"edge-tuner/internal/opencv/safe"
	"edge-tuner/internal/params"

	"gocv.io/x/gocv"
)

var ErrDuplicateStage = errors.New("stage already registered")

// Frame is the loaded image: the colour source and its prepared gray.
type Frame interface {
	Source() *safe.Mat
	Gray() *safe.Mat
}

// Stage is one step of the edge-map pipeline. Stages read and write the
// shared workspace in registration order.
type Stage interface {
	Name() string
	Apply(ws *Workspace, p params.Parameters) error
}

type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Output is a finished render. Mat is owned by the caller, who must Close it.
type Output struct {
	Mat    *safe.Mat
	Stages []StageTiming
	Hulls  int
}

type Manager struct {
	mu        sync.RWMutex
	stages    []Stage
	names     map[string]struct{}
	fillColor color.RGBA
	observer  func(StageTiming)
	alloc     Allocator
}

type Option func(*Manager)

// WithFillColor sets the colour painted where the hull mask is set.
func WithFillColor(c color.RGBA) Option {
	return func(m *Manager) { m.fillColor = c }
}

// WithAllocator routes every Mat a render creates through a.
func WithAllocator(a Allocator) Option {
	return func(m *Manager) { m.alloc = a }
}

// WithStageObserver reports each stage as soon as it finishes.
func WithStageObserver(fn func(StageTiming)) Option {
	return func(m *Manager) { m.observer = fn }
}

// NewManager returns a manager with the blur, canny, morphology, hull and
// composite stages registered in that order.
func NewManager(opts ...Option) *Manager {
	manager := &Manager{
		names:     make(map[string]struct{}),
		fillColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		alloc:     untracked{},
	}
	for _, opt := range opts {
		opt(manager)
	}

	manager.registerStages()
	return manager
}

func (m *Manager) registerStages() {
	for _, stage := range []Stage{
		&blurStage{},
		&cannyStage{},
		&morphologyStage{},
		&hullStage{},
		&compositeStage{},
	} {
		// built-in names are unique
		_ = m.Register(stage)
	}
}

// Register appends stage to the pipeline.
func (m *Manager) Register(stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.names[stage.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, stage.Name())
	}
	m.names[stage.Name()] = struct{}{}
	m.stages = append(m.stages, stage)
	return nil
}

func (m *Manager) Stages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.stages))
	for i, stage := range m.stages {
		names[i] = stage.Name()
	}
	return names
}

func (m *Manager) FillColor() color.RGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fillColor
}

// Run renders the edge map of frame for p. ctx is checked between stages.
func (m *Manager) Run(ctx context.Context, frame Frame, p params.Parameters) (*Output, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}
	if frame == nil {
		return nil, fmt.Errorf("no frame to process")
	}
	if err := safe.ValidateMatForOperation(frame.Source(), "edge map source"); err != nil {
		return nil, err
	}
	if err := safe.ValidateMatForOperation(frame.Gray(), "edge map gray"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stages := make([]Stage, len(m.stages))
	copy(stages, m.stages)
	fill := m.fillColor
	observer := m.observer
	alloc := m.alloc
	m.mu.RUnlock()

	var output *Output
	err := frame.Source().With(func(src gocv.Mat) error {
		return frame.Gray().With(func(gray gocv.Mat) error {
			ws := newWorkspace(src, gray, fill, alloc)
			defer ws.Close()

			timings := make([]StageTiming, 0, len(stages))
			for _, stage := range stages {
				if err := ctx.Err(); err != nil {
					return err
				}

				start := time.Now()
				if err := stage.Apply(ws, p); err != nil {
					return fmt.Errorf("stage %s: %w", stage.Name(), err)
				}
				timing := StageTiming{Name: stage.Name(), Duration: time.Since(start)}
				timings = append(timings, timing)
				if observer != nil {
					observer(timing)
				}
			}

			if ws.Output == nil || ws.Output.Empty() {
				return fmt.Errorf("pipeline produced no output")
			}
			output = &Output{Mat: ws.takeOutput(), Stages: timings, Hulls: ws.Hulls}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}
