package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
)

const (
	ImageAreaWidth  = 500
	ImageAreaHeight = 400
)

// ImageDisplay shows the original and the edge map side by side.
type ImageDisplay struct {
	container     fyne.CanvasObject
	originalImage *canvas.Image
	edgeImage     *canvas.Image
	splitView     *container.Split
	maxSide       int
}

func NewImageDisplay(maxSide int) *ImageDisplay {
	display := &ImageDisplay{maxSide: maxSide}
	display.createComponents()
	display.setupLayout()
	return display
}

func (id *ImageDisplay) createComponents() {
	id.originalImage = canvas.NewImageFromImage(nil)
	id.originalImage.FillMode = canvas.ImageFillContain
	id.originalImage.ScaleMode = canvas.ImageScaleSmooth
	id.originalImage.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	id.edgeImage = canvas.NewImageFromImage(nil)
	id.edgeImage.FillMode = canvas.ImageFillContain
	id.edgeImage.ScaleMode = canvas.ImageScalePixels
	id.edgeImage.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))
}

func (id *ImageDisplay) setupLayout() {
	originalContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Original**"),
		nil, nil, nil,
		id.originalImage,
	)

	edgeContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Edge Map**"),
		nil, nil, nil,
		id.edgeImage,
	)

	id.splitView = container.NewHSplit(originalContainer, edgeContainer)
	id.splitView.SetOffset(0.5)
	id.container = id.splitView
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

func (id *ImageDisplay) SetOriginalImage(img image.Image) {
	id.originalImage.Image = Fit(img, id.maxSide, imaging.Lanczos)
	id.originalImage.Refresh()
}

func (id *ImageDisplay) SetEdgeImage(img image.Image) {
	// the edge map is binary; nearest neighbour keeps it crisp
	id.edgeImage.Image = Fit(img, id.maxSide, imaging.NearestNeighbor)
	id.edgeImage.Refresh()
}

// Fit downscales img so neither side exceeds maxSide. Smaller images are
// returned unchanged.
func Fit(img image.Image, maxSide int, filter imaging.ResampleFilter) image.Image {
	if img == nil || maxSide <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, filter)
}
