package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"edge-tuner/internal/logger"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

const jpegQuality = 95

type Saver struct {
	logger logger.Logger
}

func NewSaver(log logger.Logger) *Saver {
	return &Saver{logger: log}
}

// encoderFor picks an encoder from a file name or bare extension.
func encoderFor(name string) (imgio.Encoder, string, error) {
	if !strings.Contains(name, ".") {
		name = "." + name
	}

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	switch format {
	case imaging.PNG:
		return imgio.PNGEncoder(), "png", nil
	case imaging.JPEG:
		return imgio.JPEGEncoder(jpegQuality), "jpeg", nil
	case imaging.BMP:
		return imgio.BMPEncoder(), "bmp", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (s *Saver) SaveToPath(path string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("no image data to save")
	}

	encoder, format, err := encoderFor(path)
	if err != nil {
		return err
	}

	if err := imgio.Save(path, img, encoder); err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"path":   path,
			"format": format,
		})
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	s.logger.Info("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"format": format,
	})
	return nil
}

// SaveToWriter encodes img as format, given as an extension such as "png" or ".jpg".
func (s *Saver) SaveToWriter(writer io.Writer, img image.Image, format string) error {
	if img == nil {
		return fmt.Errorf("no image data to save")
	}

	encoder, name, err := encoderFor(strings.ToLower(format))
	if err != nil {
		return err
	}

	if err := encoder(writer, img); err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": name,
		})
		return err
	}

	s.logger.Info("ImageSaver", "image written", map[string]interface{}{
		"format": name,
	})
	return nil
}
