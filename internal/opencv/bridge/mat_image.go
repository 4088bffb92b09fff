package bridge

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// MatToImage copies an 8-bit Mat with one, three or four channels into a Go
// image. Colour Mats are read as BGR(A).
func MatToImage(mat gocv.Mat) (image.Image, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("cannot convert empty Mat")
	}

	rows := mat.Rows()
	cols := mat.Cols()
	channels := mat.Channels()

	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("Mat has zero dimensions: %dx%d", cols, rows)
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	data := src.ToBytes()
	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("unsupported Mat type %v for image conversion", mat.Type())
	}

	switch channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data)
		return img, nil
	case 3:
		return bgrToRGBA(data, rows, cols, 3), nil
	case 4:
		return bgrToRGBA(data, rows, cols, 4), nil
	default:
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
}

func bgrToRGBA(data []byte, rows, cols, channels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	pix := img.Pix

	for i, j := 0, 0; i < len(data); i, j = i+channels, j+4 {
		pix[j] = data[i+2]
		pix[j+1] = data[i+1]
		pix[j+2] = data[i]
		if channels == 4 {
			pix[j+3] = data[i+3]
		} else {
			pix[j+3] = 255
		}
	}
	return img
}

// ImageToMat converts img into a BGR Mat. The caller owns the result.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("input image is nil")
	}
	return gocv.ImageToMatRGB(img)
}
