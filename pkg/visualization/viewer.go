// Package visualization renders sample fields as images for inspecting a
// pipeline: single channels as 16-bit grayscale and guidance maps as a
// colour heatmap over the input image.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"iogtransforms/internal/imageio"
	"iogtransforms/pkg/guidance"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// Viewer renders the fields of one sample.
type Viewer struct {
	// sample holds the fields to render
	sample sample.Sample
}

// NewViewer creates a viewer for s.
func NewViewer(s sample.Sample) *Viewer {
	return &Viewer{sample: s}
}

// ExtractChannel renders one channel of a raster field as a grayscale image,
// scaled so the field's maximum maps to white.
func (v *Viewer) ExtractChannel(field string, channel int) (image.Image, error) {
	f, err := v.sample.Require(field)
	if err != nil {
		return nil, err
	}
	if f.Array == nil {
		return nil, sample.WrongKind(field, f, "raster array")
	}
	return channelImage(f.Array, channel)
}

func channelImage(a *raster.Array, channel int) (*image.Gray16, error) {
	if channel < 0 || channel >= a.Channels {
		return nil, fmt.Errorf("channel %d out of range for %d channels", channel, a.Channels)
	}

	scale := a.Max()
	if scale <= 0 {
		scale = 1
	}
	img := image.NewGray16(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			value := uint16(math.Max(0, math.Min(65535, a.At(y, x, channel)/scale*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// Overlay draws the guidance map over the image field: foreground response
// in red, background response in green, blended with the given opacity.
func (v *Viewer) Overlay(imageField, guidanceField string, opacity float64) (*image.NRGBA, error) {
	base, err := v.sample.Require(imageField)
	if err != nil {
		return nil, err
	}
	if base.Array == nil {
		return nil, sample.WrongKind(imageField, base, "raster array")
	}
	g, err := v.sample.Require(guidanceField)
	if err != nil {
		return nil, err
	}
	if g.Array == nil || g.Array.Channels != guidance.Channels {
		return nil, sample.WrongKind(guidanceField, g, "two-channel guidance map")
	}
	if !g.Array.SameSize(base.Array) {
		return nil, &sample.FieldError{Field: guidanceField, Err: fmt.Errorf("%w: %dx%d does not match %q %dx%d",
			sample.ErrInvalidSampleShape, g.Array.Height, g.Array.Width, imageField, base.Array.Height, base.Array.Width)}
	}

	background, err := imageio.ToImage(base.Array)
	if err != nil {
		return nil, &sample.FieldError{Field: imageField, Err: err}
	}
	return imaging.Overlay(background, heatmap(g.Array), image.Pt(0, 0), opacity), nil
}

// heatmap colours a guidance map, scaling each channel by the map's maximum.
func heatmap(g *raster.Array) *image.NRGBA {
	scale := g.Max()
	if scale <= 0 {
		scale = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fg := g.At(y, x, guidance.Foreground) / scale
			bg := g.At(y, x, guidance.Background) / scale
			i := y*img.Stride + x*4
			img.Pix[i] = uint8(math.Round(255 * math.Min(1, fg)))
			img.Pix[i+1] = uint8(math.Round(255 * math.Min(1, bg)))
			img.Pix[i+3] = uint8(math.Round(255 * math.Min(1, math.Max(fg, bg))))
		}
	}
	return img
}

// SaveImage saves an image. The format follows the file extension.
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

// SaveFields writes every channel of every raster field to outputDir as
// <field>_c<channel>.png, with sequence elements numbered as
// <field>_<index>_c<channel>.png. It returns the written paths.
func (v *Viewer) SaveFields(outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	var written []string
	save := func(prefix string, a *raster.Array) error {
		for c := 0; c < a.Channels; c++ {
			img, err := channelImage(a, c)
			if err != nil {
				return err
			}
			filename := filepath.Join(outputDir, fmt.Sprintf("%s_c%02d.png", prefix, c))
			if err := v.SaveImage(img, filename); err != nil {
				return err
			}
			written = append(written, filename)
		}
		return nil
	}

	for _, name := range v.sample.Names() {
		f, _ := v.sample.Get(name)
		if !f.Spatial() {
			continue
		}
		prefix := sanitize(name)
		if f.Layout == sample.Sequence {
			for i, a := range f.Arrays {
				if err := save(fmt.Sprintf("%s_%03d", prefix, i), a); err != nil {
					return written, err
				}
			}
			continue
		}
		if err := save(prefix, f.Array); err != nil {
			return written, err
		}
	}
	return written, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}
