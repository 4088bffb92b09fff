package algorithms

import (
	"image/color"

	"edge-tuner/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Allocator creates and adopts the Mats a render holds so they show up in
// memory accounting. memory.Manager implements it.
type Allocator interface {
	NewMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error)
	Track(mat gocv.Mat, tag string) (*safe.Mat, error)
}

type untracked struct{}

func (untracked) NewMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	return safe.NewMatWithTracker(rows, cols, matType, nil, tag)
}

func (untracked) Track(mat gocv.Mat, tag string) (*safe.Mat, error) {
	return safe.Adopt(mat, nil, tag)
}

// Workspace carries intermediate Mats between stages. Source and Gray are
// borrowed from the frame; every other Mat is owned by the workspace and
// allocated through its Allocator.
type Workspace struct {
	Source gocv.Mat
	Gray   gocv.Mat
	Fill   color.RGBA

	Blurred *safe.Mat
	Edges   *safe.Mat
	Cleaned *safe.Mat
	Mask    *safe.Mat
	Output  *safe.Mat

	// Hulls is the number of convex hulls drawn into Mask.
	Hulls int

	alloc Allocator
}

func newWorkspace(src, gray gocv.Mat, fill color.RGBA, alloc Allocator) *Workspace {
	return &Workspace{
		Source: src,
		Gray:   gray,
		Fill:   fill,
		alloc:  alloc,
	}
}

// keep adopts m under tag and stores it at dst, releasing the Mat it
// replaces. On error m has been closed.
func (ws *Workspace) keep(dst **safe.Mat, m gocv.Mat, tag string) error {
	tracked, err := ws.alloc.Track(m, tag)
	if err != nil {
		return err
	}
	ws.store(dst, tracked)
	return nil
}

// zeroed allocates a tracked rows x cols Mat with every element cleared.
func (ws *Workspace) zeroed(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	mat, err := ws.alloc.NewMat(rows, cols, matType, tag)
	if err != nil {
		return nil, err
	}
	err = mat.With(func(m gocv.Mat) error {
		m.SetTo(gocv.NewScalar(0, 0, 0, 0))
		return nil
	})
	if err != nil {
		mat.Close()
		return nil, err
	}
	return mat, nil
}

func (ws *Workspace) store(dst **safe.Mat, m *safe.Mat) {
	if *dst != nil {
		(*dst).Close()
	}
	*dst = m
}

func (ws *Workspace) takeOutput() *safe.Mat {
	out := ws.Output
	ws.Output = nil
	return out
}

func (ws *Workspace) Close() {
	for _, m := range []*safe.Mat{ws.Blurred, ws.Edges, ws.Cleaned, ws.Mask, ws.Output} {
		if m != nil {
			m.Close()
		}
	}
	ws.Blurred, ws.Edges, ws.Cleaned, ws.Mask, ws.Output = nil, nil, nil, nil, nil
}
