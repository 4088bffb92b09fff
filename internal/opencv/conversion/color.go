package conversion

import (
	"fmt"

	"edge-tuner/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertToGrayscale returns a new single channel 8-bit Mat. The caller owns it.
func ConvertToGrayscale(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot convert empty Mat to grayscale")
	}

	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&dst)
	case 3:
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count for grayscale conversion: %d", src.Channels())
	}

	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion produced an empty Mat")
	}
	return dst, nil
}

// PrepareGray converts src to grayscale and stretches it to the range [0, 1]
// with min-max normalisation. Every pixel of the result is 0 or 1.
func PrepareGray(src *safe.Mat) (gocv.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "PrepareGray"); err != nil {
		return gocv.NewMat(), err
	}

	var gray gocv.Mat
	err := src.With(func(m gocv.Mat) error {
		var convErr error
		gray, convErr = ConvertToGrayscale(m)
		return convErr
	})
	if err != nil {
		return gocv.NewMat(), err
	}

	gocv.Normalize(gray, &gray, 0, 1, gocv.NormMinMax)
	return gray, nil
}
