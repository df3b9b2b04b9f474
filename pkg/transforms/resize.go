package transforms

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// Resolution is a resize target. The zero value leaves a field untouched.
type Resolution struct {
	// Width and Height give a fixed output size
	Width, Height int

	// ShortSide, when set, scales the shorter side to this length and keeps the aspect ratio
	ShortSide int
}

// Fixed returns a fixed width x height target.
func Fixed(width, height int) Resolution {
	return Resolution{Width: width, Height: height}
}

// ShortSide returns an aspect-preserving target whose shorter side is n.
func ShortSide(n int) Resolution {
	return Resolution{ShortSide: n}
}

// IsZero reports whether the resolution leaves fields untouched.
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0 && r.ShortSide == 0
}

// Target returns the output height and width for a source of the given size.
func (r Resolution) Target(height, width int) (int, int) {
	if r.ShortSide == 0 {
		return r.Height, r.Width
	}
	n := r.ShortSide
	short, long := min(height, width), max(height, width)
	scaled := int(math.Round(float64(n) / float64(short) * float64(long)))
	if height >= width {
		return scaled, n
	}
	return n, scaled
}

// String formats the target.
func (r Resolution) String() string {
	if r.ShortSide != 0 {
		return fmt.Sprintf("short=%d", r.ShortSide)
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FixedResize brings fields to configured resolutions.
//
// Raster fields listed in Resolutions are resampled; raster fields not listed
// are dropped from the sample. Point fields listed in Resolutions are rescaled
// proportionally, using the bounding box field as the source extent when the
// sample has one and the spatial size otherwise. Unlisted point fields,
// bounding boxes and metadata pass through.
type FixedResize struct {
	// Resolutions maps field names to targets. A nil map makes the stage a no-op
	Resolutions map[string]Resolution

	// Interpolations overrides the default interpolation per field name
	Interpolations map[string]raster.Interpolation
}

// NewFixedResize returns a resize stage.
func NewFixedResize(resolutions map[string]Resolution, interpolations map[string]raster.Interpolation) *FixedResize {
	return &FixedResize{Resolutions: resolutions, Interpolations: interpolations}
}

// Apply resizes the sample.
func (t *FixedResize) Apply(s sample.Sample, _ *rand.Rand) (sample.Sample, error) {
	if t.Resolutions == nil {
		return s, nil
	}

	out := s
	for _, name := range s.Names() {
		f, _ := s.Get(name)
		res, listed := t.Resolutions[name]

		switch f.Kind {
		case sample.KindMetadata, sample.KindBoundingBox:
			continue

		case sample.KindPoint:
			if !listed || res.IsZero() {
				continue
			}
			points, err := t.rescalePoints(s, f.Points, res)
			if err != nil {
				return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
			}
			out = out.With(name, sample.Points(points...))
			continue
		}

		if !listed {
			out = out.Without(name)
			continue
		}
		if res.IsZero() {
			continue
		}

		resized, err := t.resizeField(name, f, res)
		if err != nil {
			return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
		}
		out = out.With(name, resized)
	}
	return out, nil
}

func (t *FixedResize) interpolation(name string, f sample.Field, a *raster.Array) raster.Interpolation {
	if interp, ok := t.Interpolations[name]; ok {
		return interp
	}
	if f.Label {
		return raster.Nearest
	}
	return raster.DefaultInterpolation(a)
}

func (t *FixedResize) resize(name string, f sample.Field, a *raster.Array, res Resolution) (*raster.Array, error) {
	h, w := res.Target(a.Height, a.Width)
	return a.Resize(h, w, t.interpolation(name, f, a))
}

// resizeField resamples one raster field. A sequence of single-channel
// crops becomes a stack with one channel per instance.
func (t *FixedResize) resizeField(name string, f sample.Field, res Resolution) (sample.Field, error) {
	if f.Layout != sample.Sequence {
		a, err := t.resize(name, f, f.Array, res)
		if err != nil {
			return sample.Field{}, err
		}
		return f.WithArray(a), nil
	}

	arrays := make([]*raster.Array, len(f.Arrays))
	single := true
	for i, a := range f.Arrays {
		r, err := t.resize(name, f, a, res)
		if err != nil {
			return sample.Field{}, fmt.Errorf("instance %d: %w", i, err)
		}
		arrays[i] = r
		single = single && r.Channels == 1
	}
	if !single || res.ShortSide != 0 {
		return f.WithArrays(arrays), nil
	}
	stacked, err := raster.Concat(arrays...)
	if err != nil {
		return sample.Field{}, err
	}
	stackedField := f.WithArray(stacked)
	stackedField.Layout = sample.StackedInstances
	return stackedField, nil
}

// rescalePoints maps points proportionally onto the target resolution.
func (t *FixedResize) rescalePoints(s sample.Sample, points []geometry.Point, res Resolution) ([]geometry.Point, error) {
	var height, width int
	if box, ok := s.Get(sample.FieldBBox); ok && box.Kind == sample.KindBoundingBox {
		height, width = box.Box.Height(), box.Box.Width()
	} else {
		h, w, ok, err := s.SpatialSize()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no extent to rescale points from: %w", sample.Missing(sample.FieldBBox))
		}
		height, width = h, w
	}
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("%w: source extent %dx%d", geometry.ErrDegenerateROI, width, height)
	}

	th, tw := res.Target(height, width)
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = geometry.Point{
			X:     math.Round(p.X * float64(tw) / float64(width)),
			Y:     math.Round(p.Y * float64(th) / float64(height)),
			Frame: p.Frame,
		}
	}
	return out, nil
}

// String lists the configured targets in name order.
func (t *FixedResize) String() string {
	names := make([]string, 0, len(t.Resolutions))
	for name := range t.Resolutions {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + t.Resolutions[name].String()
	}
	return "FixedResize:{" + strings.Join(parts, " ") + "}"
}
