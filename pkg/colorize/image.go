package colorize

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"io/fs"
	"os"

	"github.com/disintegration/imaging"

	// Extra decoders registered with image.Decode, which imaging uses.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// ImageSampler adapts a decoded image to [Sampler].
type ImageSampler struct {
	img    image.Image
	bounds image.Rectangle
}

// NewImageSampler wraps img. Coordinates passed to At are relative to the
// image's bounds, so sub-images work as expected.
func NewImageSampler(img image.Image) *ImageSampler {
	return &ImageSampler{img: img, bounds: img.Bounds()}
}

// Dimensions implements [Sampler].
func (s *ImageSampler) Dimensions() (int, int) {
	return s.bounds.Dx(), s.bounds.Dy()
}

// At implements [Sampler]. Points outside the image yield the image's
// out-of-bounds colour (transparent black for the standard image types).
func (s *ImageSampler) At(x, y int) color.Color {
	return s.img.At(s.bounds.Min.X+x, s.bounds.Min.Y+y)
}

// Image returns the wrapped image.
func (s *ImageSampler) Image() image.Image { return s.img }

// Open decodes the image at path.
func Open(path string) (*ImageSampler, error) {
	if err := perrors.ValidateImagePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "source image not found: %s", path)
		}
		return nil, perrors.Wrap(perrors.ErrCodeImageDecode, err, "open %s", path)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeImageDecode, errors.Unwrap(err), "decode %s", path)
	}
	return s, nil
}

// Decode reads an image from r.
func Decode(r io.Reader) (*ImageSampler, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeImageDecode, err, "decode image")
	}
	return NewImageSampler(img), nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (*ImageSampler, error) {
	return Decode(bytes.NewReader(data))
}
