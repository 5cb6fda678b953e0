package plan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// ErrInvalidInput marks fatal precondition violations: empty, missing,
// or undecodable image data. Callers can match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// DecodeImage decodes PNG or JPEG bytes into an image. Empty or
// undecodable data is a fatal error, never a silent empty result.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrInvalidInput)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrInvalidInput, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-size image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	return img, nil
}

// LoadImage reads and decodes an image file.
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return DecodeImage(data)
}

// Shape returns the [height, width, channels] shape of an image as
// reported in detection responses. Grayscale sources report 1 channel,
// everything else 3.
func Shape(img image.Image) ImageShape {
	b := img.Bounds()
	channels := 3
	if _, ok := img.(*image.Gray); ok {
		channels = 1
	}
	return ImageShape{b.Dy(), b.Dx(), channels}
}
