package pipeline

import (
	"errors"
	"fmt"
	"image"

	"edge-tuner/internal/logger"
	"edge-tuner/internal/opencv/bridge"
	"edge-tuner/internal/opencv/conversion"
	"edge-tuner/internal/opencv/memory"
	"edge-tuner/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ErrImageUnreadable is returned when OpenCV cannot read or decode a file.
var ErrImageUnreadable = errors.New("Could not open image")

// Frame is a loaded image ready for rendering.
type Frame struct {
	Path   string
	Width  int
	Height int
	// Image is the source converted for display.
	Image image.Image

	source *safe.Mat
	gray   *safe.Mat
}

func (f *Frame) Source() *safe.Mat { return f.source }

// Gray is the grayscale source normalised to [0, 1].
func (f *Frame) Gray() *safe.Mat { return f.gray }

func (f *Frame) release(mem *memory.Manager) {
	if f == nil {
		return
	}
	mem.Release(f.source)
	mem.Release(f.gray)
}

type Loader struct {
	memoryManager *memory.Manager
	logger        logger.Logger
}

func NewLoader(memMgr *memory.Manager, log logger.Logger) *Loader {
	return &Loader{memoryManager: memMgr, logger: log}
}

// LoadFile reads path as a 3-channel colour image and prepares its gray.
func (l *Loader) LoadFile(path string) (*Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w %s", ErrImageUnreadable, path)
	}

	source, err := l.memoryManager.Track(mat, "source_image")
	if err != nil {
		return nil, fmt.Errorf("failed to track source image: %w", err)
	}

	grayMat, err := conversion.PrepareGray(source)
	if err != nil {
		l.memoryManager.Release(source)
		return nil, fmt.Errorf("failed to prepare grayscale: %w", err)
	}
	gray, err := l.memoryManager.Track(grayMat, "prepared_gray")
	if err != nil {
		l.memoryManager.Release(source)
		return nil, fmt.Errorf("failed to track grayscale: %w", err)
	}

	var display image.Image
	err = source.With(func(m gocv.Mat) error {
		var convErr error
		display, convErr = bridge.MatToImage(m)
		return convErr
	})
	if err != nil {
		l.memoryManager.Release(source)
		l.memoryManager.Release(gray)
		return nil, fmt.Errorf("failed to convert source for display: %w", err)
	}

	frame := &Frame{
		Path:   path,
		Width:  source.Cols(),
		Height: source.Rows(),
		Image:  display,
		source: source,
		gray:   gray,
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"path":     path,
		"width":    frame.Width,
		"height":   frame.Height,
		"channels": source.Channels(),
	})

	return frame, nil
}
