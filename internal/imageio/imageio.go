// Package imageio converts between image files and raster arrays.
// Decoding and encoding go through the imaging library, so every format it
// supports (PNG, JPEG, GIF, TIFF, BMP) can be read, and the output format is
// chosen from the file extension.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"iogtransforms/pkg/raster"
)

// MaskThreshold is the 8-bit gray level above which a mask pixel is foreground.
const MaskThreshold = 127

// ErrChannels is returned when an array cannot be encoded as an image.
var ErrChannels = errors.New("imageio: only 1 or 3 channel arrays can be encoded")

// LoadImage reads an image file into a height x width x 3 array with values in [0, 255].
// EXIF orientation is applied.
func LoadImage(path string) (*raster.Array, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error opening image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// DecodeImage reads an image from r into a height x width x 3 array.
func DecodeImage(r io.Reader) (*raster.Array, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	return FromImage(img), nil
}

// LoadMask reads a mask file into a single-channel binary array. Pixels whose
// gray level exceeds MaskThreshold become 1.
func LoadMask(path string) (*raster.Array, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening mask %s: %w", path, err)
	}
	return MaskFromImage(img), nil
}

// FromImage converts any image to a 3-channel array.
func FromImage(img image.Image) *raster.Array {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	out := raster.New(b.Dy(), b.Dx(), 3)
	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < b.Dx(); x++ {
			for c := 0; c < 3; c++ {
				out.Set(y, x, c, float64(row[x*4+c]))
			}
		}
	}
	return out
}

// MaskFromImage converts any image to a single-channel binary mask.
func MaskFromImage(img image.Image) *raster.Array {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	out := raster.New(b.Dy(), b.Dx(), 1)
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4] > MaskThreshold {
				out.Set(y, x, 0, 1)
			}
		}
	}
	return out
}

// ToImage converts a 1 or 3 channel array to an 8-bit image. Values are
// rounded and clamped to [0, 255].
func ToImage(a *raster.Array) (*image.NRGBA, error) {
	if a.Channels != 1 && a.Channels != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrChannels, a.Channels)
	}
	img := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			i := y*img.Stride + x*4
			for c := 0; c < 3; c++ {
				src := c
				if a.Channels == 1 {
					src = 0
				}
				img.Pix[i+c] = clamp8(a.At(y, x, src))
			}
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}

// SaveImage writes a 1 or 3 channel array to path. The format follows the extension.
func SaveImage(a *raster.Array, path string) error {
	img, err := ToImage(a)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("error saving image %s: %w", path, err)
	}
	return nil
}

// SaveMask writes a binary mask to path as black and white.
func SaveMask(mask *raster.Array, path string) error {
	if mask.Channels != 1 {
		return fmt.Errorf("%w: mask has %d channels", ErrChannels, mask.Channels)
	}
	scaled := mask.Clone()
	for i, v := range scaled.Data {
		if v > 0 {
			scaled.Data[i] = 255
		}
	}
	return SaveImage(scaled, path)
}

// EncodePNG writes a 1 or 3 channel array to w as PNG.
func EncodePNG(w io.Writer, a *raster.Array) error {
	img, err := ToImage(a)
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, imaging.PNG)
}

func clamp8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
