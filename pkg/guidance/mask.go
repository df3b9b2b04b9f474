package guidance

import (
	"fmt"
	"math"
	"math/rand/v2"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// SeedMode selects which points are derived from a mask.
type SeedMode int

const (
	// SeedCorners emits the jittered top-left corner of the mask's bounding box
	// on the foreground channel and the jittered bottom-right corner on the
	// background channel.
	SeedCorners SeedMode = iota

	// SeedInsideOutside emits the interior point farthest from the background
	// on the foreground channel and all four jittered corners on the
	// background channel.
	SeedInsideOutside
)

// String returns the mode name used in configuration files.
func (m SeedMode) String() string {
	switch m {
	case SeedCorners:
		return "corners"
	case SeedInsideOutside:
		return "inside-outside"
	default:
		return fmt.Sprintf("seedmode(%d)", int(m))
	}
}

// ParseSeedMode converts a configuration name into a SeedMode.
func ParseSeedMode(name string) (SeedMode, error) {
	switch name {
	case "", "corners":
		return SeedCorners, nil
	case "inside-outside":
		return SeedInsideOutside, nil
	default:
		return 0, fmt.Errorf("guidance: unknown seed mode %q", name)
	}
}

// MaskOptions configures guidance synthesis from a mask.
type MaskOptions struct {
	// Sigma is the Gaussian width in pixels
	Sigma float64

	// PadPixel is the maximum outward jitter applied to each corner
	PadPixel int

	// Mode selects the seeding strategy
	Mode SeedMode
}

// foregroundThreshold is the value above which a mask pixel counts as object.
const foregroundThreshold = 0.5

// Seeds derives guidance points from a single-channel mask. Corners are
// pushed outward by a random amount in [0, PadPixel], without leaving the
// canvas; a nil rng disables the jitter. ok is false for an empty mask.
func Seeds(mask *raster.Array, opts MaskOptions, rng *rand.Rand) (foreground, background []geometry.Point, ok bool) {
	xMin, yMin := math.MaxInt, math.MaxInt
	xMax, yMax := -1, -1
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(y, x, 0) > foregroundThreshold {
				xMin, xMax = min(xMin, x), max(xMax, x)
				yMin, yMax = min(yMin, y), max(yMax, y)
			}
		}
	}
	if xMax < 0 {
		return nil, nil, false
	}

	x0 := jitter(rng, max(xMin-opts.PadPixel, 0), xMin, xMin)
	y0 := jitter(rng, max(yMin-opts.PadPixel, 0), yMin, yMin)
	x1 := jitter(rng, xMax, min(xMax+opts.PadPixel, mask.Width-1), xMax)
	y1 := jitter(rng, yMax, min(yMax+opts.PadPixel, mask.Height-1), yMax)

	topLeft := geometry.WorkingPoint(float64(x0), float64(y0))
	bottomRight := geometry.WorkingPoint(float64(x1), float64(y1))

	if opts.Mode == SeedInsideOutside {
		cx, cy := interiorPoint(mask)
		foreground = []geometry.Point{geometry.WorkingPoint(float64(cx), float64(cy))}
		background = []geometry.Point{
			topLeft,
			geometry.WorkingPoint(float64(x1), float64(y0)),
			geometry.WorkingPoint(float64(x0), float64(y1)),
			bottomRight,
		}
		return foreground, background, true
	}
	return []geometry.Point{topLeft}, []geometry.Point{bottomRight}, true
}

// jitter draws uniformly from [lo, hi], or returns exact when rng is nil.
func jitter(rng *rand.Rand, lo, hi, exact int) int {
	if rng == nil || hi <= lo {
		return exact
	}
	return lo + rng.IntN(hi-lo+1)
}

// FromMask synthesises a guidance map with the mask's size. A mask with no
// foreground yields an all-zero map rather than an error, so batch shapes stay
// uniform. Multi-channel masks are rejected.
func FromMask(mask *raster.Array, opts MaskOptions, rng *rand.Rand) (*raster.Array, error) {
	if mask.Channels != 1 {
		return nil, fmt.Errorf("%w: mask has %d instances", sample.ErrUnsupportedMultiInstance, mask.Channels)
	}
	if opts.Sigma <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidSigma, opts.Sigma)
	}

	foreground, background, ok := Seeds(mask, opts, rng)
	if !ok {
		return raster.New(mask.Height, mask.Width, Channels), nil
	}
	return Render(geometry.Size{Width: mask.Width, Height: mask.Height}, foreground, background, opts.Sigma)
}

// interiorPoint returns the foreground pixel farthest from the background,
// using a 3-4 chamfer distance in which the canvas border counts as background.
func interiorPoint(mask *raster.Array) (x, y int) {
	w, h := mask.Width+2, mask.Height+2
	const inf = math.MaxInt32
	dist := make([]int, w*h)
	for py := 1; py < h-1; py++ {
		for px := 1; px < w-1; px++ {
			if mask.At(py-1, px-1, 0) > foregroundThreshold {
				dist[py*w+px] = inf
			}
		}
	}

	relax := func(i, j, cost int) {
		if d := dist[j] + cost; d < dist[i] {
			dist[i] = d
		}
	}
	for py := 1; py < h-1; py++ {
		for px := 1; px < w-1; px++ {
			i := py*w + px
			relax(i, i-1, 3)
			relax(i, i-w, 3)
			relax(i, i-w-1, 4)
			relax(i, i-w+1, 4)
		}
	}
	for py := h - 2; py >= 1; py-- {
		for px := w - 2; px >= 1; px-- {
			i := py*w + px
			relax(i, i+1, 3)
			relax(i, i+w, 3)
			relax(i, i+w+1, 4)
			relax(i, i+w-1, 4)
		}
	}

	best := -1
	for py := 1; py < h-1; py++ {
		for px := 1; px < w-1; px++ {
			if d := dist[py*w+px]; d > best {
				best, x, y = d, px-1, py-1
			}
		}
	}
	return x, y
}
