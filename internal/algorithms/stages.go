package algorithms

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"edge-tuner/internal/algorithms/canny"
	"edge-tuner/internal/opencv/safe"
	"edge-tuner/internal/params"

	"gocv.io/x/gocv"
)

const (
	crossKernelSize  = 5
	rectKernelSize   = 4
	closingDilations = 5
	medianKernel     = 5
)

var maskWhite = color.RGBA{R: 255, G: 255, B: 255, A: 0}

type blurStage struct{}

func (s *blurStage) Name() string { return "blur" }

func (s *blurStage) Apply(ws *Workspace, p params.Parameters) error {
	blurred := gocv.NewMat()
	gocv.Blur(ws.Gray, &blurred, image.Pt(p.BlurSize, p.BlurSize))
	if blurred.Empty() {
		blurred.Close()
		return fmt.Errorf("blur with kernel %d produced an empty Mat", p.BlurSize)
	}
	return ws.keep(&ws.Blurred, blurred, "blurred")
}

type cannyStage struct{}

func (s *cannyStage) Name() string { return "canny" }

func (s *cannyStage) Apply(ws *Workspace, p params.Parameters) error {
	if err := safe.ValidateMatForOperation(ws.Blurred, "canny"); err != nil {
		return err
	}

	var owned gocv.Mat
	err := ws.Blurred.With(func(blurred gocv.Mat) error {
		if blurred.Type() != gocv.MatTypeCV8UC1 {
			return fmt.Errorf("edge detection needs an 8-bit single channel Mat, got type %v", blurred.Type())
		}

		rows, cols := blurred.Rows(), blurred.Cols()
		edges, err := canny.Detect(blurred.ToBytes(), cols, rows, p.Low(), p.High(), p.ApertureSize)
		if err != nil {
			return err
		}

		view, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, edges)
		if err != nil {
			return fmt.Errorf("failed to wrap edge map: %w", err)
		}
		// view aliases edges; the workspace keeps an owned copy
		owned = view.Clone()
		view.Close()
		runtime.KeepAlive(edges)
		return nil
	})
	if err != nil {
		return err
	}
	return ws.keep(&ws.Edges, owned, "edges")
}

type morphologyStage struct{}

func (s *morphologyStage) Name() string { return "morphology" }

func (s *morphologyStage) Apply(ws *Workspace, p params.Parameters) error {
	if err := safe.ValidateMatForOperation(ws.Edges, "morphology"); err != nil {
		return err
	}

	cross := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(crossKernelSize, crossKernelSize))
	defer cross.Close()
	rect := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(rectKernelSize, rectKernelSize))
	defer rect.Close()

	cleaned := gocv.NewMat()
	err := ws.Edges.With(func(edges gocv.Mat) error {
		work := edges.Clone()
		defer work.Close()

		for i := 0; i < p.DilationIter; i++ {
			gocv.Dilate(work, &work, cross)
		}
		for i := 0; i < p.ErosionIter; i++ {
			gocv.Erode(work, &work, cross)
		}
		for i := 0; i < closingDilations; i++ {
			gocv.Dilate(work, &work, rect)
		}

		gocv.MedianBlur(work, &cleaned, medianKernel)
		if cleaned.Empty() {
			return fmt.Errorf("median blur produced an empty Mat")
		}
		return nil
	})
	if err != nil {
		cleaned.Close()
		return err
	}
	return ws.keep(&ws.Cleaned, cleaned, "cleaned")
}

type hullStage struct{}

func (s *hullStage) Name() string { return "hull" }

func (s *hullStage) Apply(ws *Workspace, p params.Parameters) error {
	if err := safe.ValidateMatForOperation(ws.Cleaned, "hull"); err != nil {
		return err
	}

	var hulls [][]image.Point
	err := ws.Cleaned.With(func(cleaned gocv.Mat) error {
		contours := gocv.FindContours(cleaned, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		defer contours.Close()

		hulls = make([][]image.Point, 0, contours.Size())
		for i := 0; i < contours.Size(); i++ {
			if pts := convexHull(contours.At(i)); len(pts) > 0 {
				hulls = append(hulls, pts)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	mask, err := ws.zeroed(ws.Cleaned.Rows(), ws.Cleaned.Cols(), gocv.MatTypeCV8UC1, "hull_mask")
	if err != nil {
		return err
	}
	if len(hulls) > 0 {
		_ = mask.With(func(m gocv.Mat) error {
			pv := gocv.NewPointsVectorFromPoints(hulls)
			defer pv.Close()
			gocv.DrawContours(&m, pv, -1, maskWhite, -1)
			return nil
		})
	}

	ws.store(&ws.Mask, mask)
	ws.Hulls = len(hulls)
	return nil
}

// convexHull returns the hull vertices of contour.
func convexHull(contour gocv.PointVector) []image.Point {
	if contour.Size() == 0 {
		return nil
	}

	indices := gocv.NewMat()
	defer indices.Close()
	gocv.ConvexHull(contour, &indices, false, false)

	pts := make([]image.Point, 0, indices.Rows())
	for j := 0; j < indices.Rows(); j++ {
		idx := int(indices.GetIntAt(j, 0))
		if idx < 0 || idx >= contour.Size() {
			continue
		}
		pts = append(pts, contour.At(idx))
	}
	return pts
}

type compositeStage struct{}

func (s *compositeStage) Name() string { return "composite" }

func (s *compositeStage) Apply(ws *Workspace, p params.Parameters) error {
	if err := safe.ValidateMatForOperation(ws.Mask, "composite"); err != nil {
		return err
	}

	rows, cols, matType := ws.Source.Rows(), ws.Source.Cols(), ws.Source.Type()
	if ws.Mask.Rows() != rows || ws.Mask.Cols() != cols {
		return fmt.Errorf("mask %dx%d does not match source %dx%d", ws.Mask.Cols(), ws.Mask.Rows(), cols, rows)
	}

	output, err := ws.zeroed(rows, cols, matType, "edge_map")
	if err != nil {
		return err
	}

	fill := gocv.NewMatWithSizeFromScalar(fillScalar(ws.Fill, ws.Source.Channels()), rows, cols, matType)
	defer fill.Close()

	err = output.With(func(out gocv.Mat) error {
		return ws.Mask.With(func(mask gocv.Mat) error {
			fill.CopyToWithMask(&out, mask)
			return nil
		})
	})
	if err != nil {
		output.Close()
		return err
	}

	ws.store(&ws.Output, output)
	return nil
}

// fillScalar orders c as OpenCV expects: BGR for colour Mats, luma for gray.
func fillScalar(c color.RGBA, channels int) gocv.Scalar {
	if channels == 1 {
		y := float64(color.GrayModel.Convert(c).(color.Gray).Y)
		return gocv.NewScalar(y, 0, 0, 0)
	}
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), float64(c.A))
}
