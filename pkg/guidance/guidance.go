// Package guidance renders Inside-Outside Guidance maps: two-channel
// heatmaps in which channel 0 carries foreground (inside) hints and channel 1
// background (outside) hints. Every hint point becomes a 2-D Gaussian and
// points sharing a channel are merged with a pixel-wise maximum, so a map
// never exceeds 1 no matter how many points overlap.
package guidance

import (
	"errors"
	"fmt"
	"math"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// Channel indices of a guidance map.
const (
	Foreground = 0
	Background = 1

	// Channels is the number of channels of a guidance map.
	Channels = 2
)

// ErrInvalidSigma is returned for a non-positive Gaussian width.
var ErrInvalidSigma = errors.New("guidance: sigma must be positive")

// Gaussian renders exp(-((u-x)^2+(v-y)^2) / (2*sigma^2)) over a canvas of
// the given size. The value is exactly 1 at an integer centre.
func Gaussian(size geometry.Size, center geometry.Point, sigma float64) *raster.Array {
	out := raster.New(size.Height, size.Width, 1)
	denom := 2 * sigma * sigma

	// The kernel is separable; precompute both axes.
	gx := make([]float64, size.Width)
	for u := range gx {
		d := float64(u) - center.X
		gx[u] = math.Exp(-d * d / denom)
	}
	for v := 0; v < size.Height; v++ {
		d := float64(v) - center.Y
		gy := math.Exp(-d * d / denom)
		row := out.Data[v*size.Width : (v+1)*size.Width]
		for u := range row {
			row[u] = gx[u] * gy
		}
	}
	return out
}

// Render builds a guidance map of the given size from working-frame points.
// An empty channel stays zero.
func Render(size geometry.Size, foreground, background []geometry.Point, sigma float64) (*raster.Array, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidSigma, sigma)
	}
	if size.Width < 1 || size.Height < 1 {
		return nil, fmt.Errorf("guidance: invalid canvas %dx%d", size.Width, size.Height)
	}

	out := raster.New(size.Height, size.Width, Channels)
	for c, points := range [Channels][]geometry.Point{foreground, background} {
		if len(points) == 0 {
			continue
		}
		plane := raster.New(size.Height, size.Width, 1)
		for _, p := range points {
			if p.Frame != geometry.FrameWorking {
				return nil, fmt.Errorf("%w: rendering %s expects the working frame", geometry.ErrFrameMismatch, p)
			}
			if err := raster.MaxInto(plane, Gaussian(size, p, sigma)); err != nil {
				return nil, err
			}
		}
		if err := out.SetChannel(c, plane); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Click is one additional user correction on a guidance channel.
type Click struct {
	Point   geometry.Point
	Channel int
}

// Refine re-renders a previous guidance map. Each non-empty channel is
// replaced by a single Gaussian at its current maximum response, then extra
// clicks are merged into their channels.
func Refine(prev *raster.Array, sigma float64, extra ...Click) (*raster.Array, error) {
	if prev.Channels != Channels {
		return nil, fmt.Errorf("%w: guidance map has %d channels, want %d", sample.ErrInvalidSampleShape, prev.Channels, Channels)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidSigma, sigma)
	}

	size := geometry.Size{Width: prev.Width, Height: prev.Height}
	var points [Channels][]geometry.Point
	for c := 0; c < Channels; c++ {
		channel := prev.Channel(c)
		if channel.Max() <= 0 {
			continue
		}
		x, y := channel.ArgMax(0)
		points[c] = append(points[c], geometry.WorkingPoint(float64(x), float64(y)))
	}
	for _, click := range extra {
		if click.Channel < 0 || click.Channel >= Channels {
			return nil, fmt.Errorf("guidance: click channel %d out of range", click.Channel)
		}
		points[click.Channel] = append(points[click.Channel], click.Point)
	}
	return Render(size, points[Foreground], points[Background], sigma)
}
