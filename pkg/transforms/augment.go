package transforms

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// ScaleNRotate rotates and zooms every spatial field of a sample about its
// centre with one randomly drawn affine transform. Point fields are moved
// through the same transform; bounding boxes and metadata pass through.
type ScaleNRotate struct {
	rotations []float64
	scales    []float64
	discrete  bool

	// Semseg resamples every mask field with nearest neighbour, even when it is not binary
	Semseg bool
}

// NewScaleNRotate draws the rotation uniformly from an interval of width
// rotMax-rotMin centred on zero, and the scale from an interval of width
// scaleMax-scaleMin centred on one.
func NewScaleNRotate(rotMin, rotMax, scaleMin, scaleMax float64) *ScaleNRotate {
	return &ScaleNRotate{
		rotations: []float64{rotMin, rotMax},
		scales:    []float64{scaleMin, scaleMax},
	}
}

// NewDiscreteScaleNRotate picks the rotation and the scale independently
// from fixed candidate lists.
func NewDiscreteScaleNRotate(rotations, scales []float64) (*ScaleNRotate, error) {
	if len(rotations) == 0 || len(scales) == 0 {
		return nil, errors.New("transforms: discrete ScaleNRotate needs at least one rotation and one scale")
	}
	return &ScaleNRotate{rotations: rotations, scales: scales, discrete: true}, nil
}

// Draw returns one rotation in degrees and one scale factor.
func (t *ScaleNRotate) Draw(rng *rand.Rand) (rot, scale float64) {
	if t.discrete {
		return t.rotations[rng.IntN(len(t.rotations))], t.scales[rng.IntN(len(t.scales))]
	}
	rotSpan := t.rotations[1] - t.rotations[0]
	scaleSpan := t.scales[1] - t.scales[0]
	rot = rotSpan*rng.Float64() - rotSpan/2
	scale = scaleSpan*rng.Float64() - scaleSpan/2 + 1
	return rot, scale
}

// Apply warps the sample with a freshly drawn transform.
func (t *ScaleNRotate) Apply(s sample.Sample, rng *rand.Rand) (sample.Sample, error) {
	if rng == nil {
		return sample.Sample{}, ErrNoRandomSource
	}
	rot, scale := t.Draw(rng)
	return t.Warp(s, rot, scale)
}

// Warp applies a fixed rotation and scale to the sample.
func (t *ScaleNRotate) Warp(s sample.Sample, rot, scale float64) (sample.Sample, error) {
	height, width, hasSize, err := s.SpatialSize()
	if err != nil {
		return sample.Sample{}, err
	}

	warp := func(a *raster.Array, f sample.Field) (*raster.Array, error) {
		m := geometry.RotationMatrix(float64(a.Width)/2, float64(a.Height)/2, rot, scale)
		interp := raster.Cubic
		if f.Label || (t.Semseg && f.Kind == sample.KindMask) || a.IsBinary() {
			interp = raster.Nearest
		}
		return a.WarpAffine(m, interp)
	}

	out := s
	for _, name := range s.Names() {
		f, _ := s.Get(name)
		switch {
		case f.Kind == sample.KindPoint:
			if !hasSize {
				continue
			}
			m := geometry.RotationMatrix(float64(width)/2, float64(height)/2, rot, scale)
			out = out.With(name, sample.Points(transformPoints(m, f.Points)...))

		case f.Spatial() && f.Layout == sample.Sequence:
			arrays := make([]*raster.Array, len(f.Arrays))
			for i, a := range f.Arrays {
				if arrays[i], err = warp(a, f); err != nil {
					return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
				}
			}
			out = out.With(name, f.WithArrays(arrays))

		case f.Spatial():
			a, err := warp(f.Array, f)
			if err != nil {
				return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
			}
			out = out.With(name, f.WithArray(a))
		}
	}
	return out, nil
}

func transformPoints(m mat.Matrix, points []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = geometry.ApplyAffine(m, p)
	}
	return out
}

// String describes the configured ranges or candidates.
func (t *ScaleNRotate) String() string {
	if t.discrete {
		return fmt.Sprintf("ScaleNRotate:(rot=%v,scale=%v)", t.rotations, t.scales)
	}
	return fmt.Sprintf("ScaleNRotate:(rot=(%g, %g),scale=(%g, %g))",
		t.rotations[0], t.rotations[1], t.scales[0], t.scales[1])
}

// RandomHorizontalFlip mirrors every spatial field left to right with
// probability one half. Point fields are mirrored across the same axis.
type RandomHorizontalFlip struct{}

// NewRandomHorizontalFlip returns the flip stage.
func NewRandomHorizontalFlip() RandomHorizontalFlip {
	return RandomHorizontalFlip{}
}

// Apply flips the sample on a coin toss.
func (RandomHorizontalFlip) Apply(s sample.Sample, rng *rand.Rand) (sample.Sample, error) {
	if rng == nil {
		return sample.Sample{}, ErrNoRandomSource
	}
	if rng.Float64() >= 0.5 {
		return s, nil
	}
	return Flip(s)
}

// Flip mirrors the sample unconditionally.
func Flip(s sample.Sample) (sample.Sample, error) {
	_, width, hasSize, err := s.SpatialSize()
	if err != nil {
		return sample.Sample{}, err
	}

	out := s
	for _, name := range s.Names() {
		f, _ := s.Get(name)
		switch {
		case f.Kind == sample.KindPoint:
			if !hasSize {
				continue
			}
			points := make([]geometry.Point, len(f.Points))
			for i, p := range f.Points {
				p.X = float64(width-1) - p.X
				points[i] = p
			}
			out = out.With(name, sample.Points(points...))

		case f.Spatial() && f.Layout == sample.Sequence:
			arrays := make([]*raster.Array, len(f.Arrays))
			for i, a := range f.Arrays {
				arrays[i] = a.FlipHorizontal()
			}
			out = out.With(name, f.WithArrays(arrays))

		case f.Spatial():
			out = out.With(name, f.WithArray(f.Array.FlipHorizontal()))
		}
	}
	return out, nil
}

// String returns the stage name.
func (RandomHorizontalFlip) String() string {
	return "RandomHorizontalFlip"
}
