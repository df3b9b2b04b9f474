package transforms

import (
	"fmt"
	"math/rand/v2"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/guidance"
	"iogtransforms/pkg/sample"
)

// IOGPoints synthesises a guidance map from a single-object mask, as done at
// training time. Corner jitter draws from the generator passed to Apply; with
// a nil generator the exact corners are used.
type IOGPoints struct {
	// Field is the mask to derive guidance from
	Field string

	// Output receives the two-channel guidance map
	Output string

	// Options controls seeding and rendering
	Options guidance.MaskOptions
}

// NewIOGPoints reads sample.CropName(sample.FieldMask) and writes sample.FieldGuidance.
func NewIOGPoints(sigma float64, padPixel int) *IOGPoints {
	return &IOGPoints{
		Field:   sample.CropName(sample.FieldMask),
		Output:  sample.FieldGuidance,
		Options: guidance.MaskOptions{Sigma: sigma, PadPixel: padPixel},
	}
}

// Apply adds the guidance map to the sample.
func (t *IOGPoints) Apply(s sample.Sample, rng *rand.Rand) (sample.Sample, error) {
	f, err := s.Require(t.Field)
	if err != nil {
		return sample.Sample{}, err
	}
	switch {
	case f.Layout == sample.Sequence || f.Layout == sample.StackedInstances:
		return sample.Sample{}, &sample.FieldError{Field: t.Field,
			Err: fmt.Errorf("%w: %d instances", sample.ErrUnsupportedMultiInstance, f.Instances())}
	case !f.Spatial():
		return sample.Sample{}, sample.WrongKind(t.Field, f, "mask array")
	}

	g, err := guidance.FromMask(f.Array, t.Options, rng)
	if err != nil {
		return sample.Sample{}, &sample.FieldError{Field: t.Field, Err: err}
	}
	return s.With(t.Output, sample.Image(g)), nil
}

// String describes the configuration.
func (t *IOGPoints) String() string {
	return fmt.Sprintf("IOGPoints:(sigma=%g, pad_pixel=%d, elem=%s, mode=%s)",
		t.Options.Sigma, t.Options.PadPixel, t.Field, t.Options.Mode)
}

// IOGPointRefinement re-renders an existing guidance map around each
// channel's strongest response, simulating one more round of user input.
// Working-frame clicks in sample.FieldForegroundClicks and
// sample.FieldBackgroundClicks are merged into their channels and the click
// fields are consumed.
type IOGPointRefinement struct {
	// Field is the guidance map to refine
	Field string

	// Output receives the refined map
	Output string

	// Sigma is the Gaussian width in pixels
	Sigma float64
}

// NewIOGPointRefinement refines sample.FieldGuidance in place.
func NewIOGPointRefinement(sigma float64) *IOGPointRefinement {
	return &IOGPointRefinement{Field: sample.FieldGuidance, Output: sample.FieldGuidance, Sigma: sigma}
}

// Apply refines the guidance map.
func (t *IOGPointRefinement) Apply(s sample.Sample, _ *rand.Rand) (sample.Sample, error) {
	f, err := s.Require(t.Field)
	if err != nil {
		return sample.Sample{}, err
	}
	if f.Array == nil {
		return sample.Sample{}, sample.WrongKind(t.Field, f, "guidance array")
	}

	var clicks []guidance.Click
	for channel, name := range [guidance.Channels]string{sample.FieldForegroundClicks, sample.FieldBackgroundClicks} {
		points, err := optionalPoints(s, name)
		if err != nil {
			return sample.Sample{}, err
		}
		for _, p := range points {
			clicks = append(clicks, guidance.Click{Point: p, Channel: channel})
		}
	}

	g, err := guidance.Refine(f.Array, t.Sigma, clicks...)
	if err != nil {
		return sample.Sample{}, &sample.FieldError{Field: t.Field, Err: err}
	}
	return s.Without(sample.FieldForegroundClicks, sample.FieldBackgroundClicks).
		With(t.Output, sample.Image(g)), nil
}

// String describes the configuration.
func (t *IOGPointRefinement) String() string {
	return fmt.Sprintf("IOGPointRefinement:(sigma=%g, elem=%s)", t.Sigma, t.Field)
}

// IOGPointsInference synthesises a guidance map from user input expressed in
// the original image frame: sample.FieldPointCenter and sample.FieldROI are
// required, sample.FieldForegroundClicks and sample.FieldBackgroundClicks are
// optional. All four input fields are removed from the output.
type IOGPointsInference struct {
	// Output receives the two-channel guidance map
	Output string

	// Options controls the coordinate mapping and rendering
	Options guidance.InferenceOptions
}

// NewIOGPointsInference returns the stage with the given options.
func NewIOGPointsInference(opts guidance.InferenceOptions) *IOGPointsInference {
	return &IOGPointsInference{Output: sample.FieldGuidance, Options: opts}
}

// DefaultInferenceOptions returns sigma 10, pad 10, relax 30, 512x512 and zero padding.
func DefaultInferenceOptions() guidance.InferenceOptions {
	return guidance.InferenceOptions{
		Sigma:      10,
		PadPixel:   10,
		RelaxPixel: 30,
		Resolution: geometry.Size{Width: 512, Height: 512},
		ZeroPad:    true,
	}
}

// Apply renders the guidance map.
func (t *IOGPointsInference) Apply(s sample.Sample, _ *rand.Rand) (sample.Sample, error) {
	centerField, err := s.Require(sample.FieldPointCenter)
	if err != nil {
		return sample.Sample{}, err
	}
	if centerField.Kind != sample.KindPoint {
		return sample.Sample{}, sample.WrongKind(sample.FieldPointCenter, centerField, "point")
	}
	if len(centerField.Points) == 0 {
		return sample.Sample{}, sample.Missing(sample.FieldPointCenter)
	}

	roiField, err := s.Require(sample.FieldROI)
	if err != nil {
		return sample.Sample{}, err
	}
	if roiField.Kind != sample.KindBoundingBox {
		return sample.Sample{}, sample.WrongKind(sample.FieldROI, roiField, "bounding box")
	}

	req := guidance.Request{Center: centerField.Points[0], ROI: roiField.Box.ROI()}
	if req.Foreground, err = optionalPoints(s, sample.FieldForegroundClicks); err != nil {
		return sample.Sample{}, err
	}
	if req.Background, err = optionalPoints(s, sample.FieldBackgroundClicks); err != nil {
		return sample.Sample{}, err
	}

	g, err := guidance.FromPoints(req, t.Options)
	if err != nil {
		return sample.Sample{}, err
	}
	return s.Without(sample.FieldPointCenter, sample.FieldROI, sample.FieldForegroundClicks, sample.FieldBackgroundClicks).
		With(t.Output, sample.Image(g)), nil
}

// String describes the configuration.
func (t *IOGPointsInference) String() string {
	o := t.Options
	return fmt.Sprintf("IOGPointsInference:(sigma=%g, pad_pixel=%d, relax_pixel=%d, resolution=%dx%d, zero_pad=%v)",
		o.Sigma, o.PadPixel, o.RelaxPixel, o.Resolution.Width, o.Resolution.Height, o.ZeroPad)
}

// optionalPoints returns the points of the named field, or nil when it is absent.
func optionalPoints(s sample.Sample, name string) ([]geometry.Point, error) {
	f, ok := s.Get(name)
	if !ok {
		return nil, nil
	}
	if f.Kind != sample.KindPoint {
		return nil, sample.WrongKind(name, f, "point")
	}
	return f.Points, nil
}
