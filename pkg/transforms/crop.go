package transforms

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
	"iogtransforms/pkg/sample"
)

// CropFromMask crops the configured fields around every object instance of
// the mask field. Each output is stored under sample.CropName(field): a
// single array for one instance, a sequence of arrays for several.
//
// An instance without foreground yields a zero array shaped like the
// uncropped source, which FixedResize later brings to the common resolution.
type CropFromMask struct {
	// Fields are the fields to crop
	Fields []string

	// MaskField holds the instance masks
	MaskField string

	// Relax is the context margin added around each instance's bounding box
	Relax int

	// ZeroPad lets the relaxed box extend past the canvas, filling the outside with
	// zeros; otherwise the box is clamped to the canvas
	ZeroPad bool
}

// NewCropFromMask crops fields around the instances of sample.FieldMask.
func NewCropFromMask(relax int, zeroPad bool, fields ...string) *CropFromMask {
	if len(fields) == 0 {
		fields = []string{sample.FieldImage, sample.FieldMask}
	}
	return &CropFromMask{Fields: fields, MaskField: sample.FieldMask, Relax: relax, ZeroPad: zeroPad}
}

// Apply crops the sample.
func (t *CropFromMask) Apply(s sample.Sample, _ *rand.Rand) (sample.Sample, error) {
	maskField, err := s.Require(t.MaskField)
	if err != nil {
		return sample.Sample{}, err
	}
	if maskField.Kind != sample.KindMask || maskField.Array == nil {
		return sample.Sample{}, sample.WrongKind(t.MaskField, maskField, "mask array")
	}
	mask := maskField.Array

	instances := make([]*raster.Array, mask.Channels)
	boxes := make([]geometry.BBox, mask.Channels)
	found := make([]bool, mask.Channels)
	for k := range instances {
		instances[k] = mask
		if mask.Channels > 1 {
			instances[k] = mask.Channel(k)
		}
		boxes[k], found[k] = geometry.BBoxFromMask(instances[k], t.Relax, t.ZeroPad)
	}

	out := s
	for _, name := range t.Fields {
		f, err := s.Require(name)
		if err != nil {
			return sample.Sample{}, err
		}
		if !f.Spatial() || f.Array == nil {
			return sample.Sample{}, sample.WrongKind(name, f, "raster array")
		}
		if !f.Array.SameSize(mask) {
			return sample.Sample{}, &sample.FieldError{Field: name, Err: fmt.Errorf("%w: %dx%d does not match mask %dx%d",
				sample.ErrInvalidSampleShape, f.Array.Height, f.Array.Width, mask.Height, mask.Width)}
		}

		crops := make([]*raster.Array, len(instances))
		for k, inst := range instances {
			src := f.Array
			if name == t.MaskField {
				src = inst
			}
			if !found[k] {
				crops[k] = raster.NewLike(src)
				continue
			}
			if crops[k], err = src.Crop(boxes[k].Rect(), t.ZeroPad); err != nil {
				return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
			}
		}

		cropped := f.WithArray(crops[0])
		if len(crops) > 1 {
			cropped = f.WithArrays(crops)
		}
		out = out.With(sample.CropName(name), cropped)
	}
	return out, nil
}

// String describes the configuration.
func (t *CropFromMask) String() string {
	return fmt.Sprintf("CropFromMask:(crop_elems=%v, mask_elem=%s, relax=%d,zero_pad=%v)",
		t.Fields, t.MaskField, t.Relax, t.ZeroPad)
}

// CropFromROI cuts the relaxed window around the sample's ROI out of the
// configured fields and resizes it to the working resolution, so the crop
// lines up pixel for pixel with guidance rendered by IOGPointsInference
// under the same relax and padding settings.
type CropFromROI struct {
	// Fields are the fields to crop
	Fields []string

	// Resolution is the working canvas size
	Resolution geometry.Size

	// Relax is the context margin around the ROI
	Relax int

	// ZeroPad leaves the relaxed window unbounded
	ZeroPad bool
}

// NewCropFromROI crops fields to the relaxed ROI window.
func NewCropFromROI(resolution geometry.Size, relax int, zeroPad bool, fields ...string) *CropFromROI {
	if len(fields) == 0 {
		fields = []string{sample.FieldImage}
	}
	return &CropFromROI{Fields: fields, Resolution: resolution, Relax: relax, ZeroPad: zeroPad}
}

// Apply crops and resizes the sample. The ROI field is kept.
func (t *CropFromROI) Apply(s sample.Sample, _ *rand.Rand) (sample.Sample, error) {
	roiField, err := s.Require(sample.FieldROI)
	if err != nil {
		return sample.Sample{}, err
	}
	if roiField.Kind != sample.KindBoundingBox {
		return sample.Sample{}, sample.WrongKind(sample.FieldROI, roiField, "bounding box")
	}

	m := geometry.Mapper{ROI: roiField.Box.ROI(), Resolution: t.Resolution, Relax: t.Relax, ZeroPad: t.ZeroPad}
	w, err := m.Relaxed()
	if err != nil {
		return sample.Sample{}, &sample.FieldError{Field: sample.FieldROI, Err: err}
	}
	rect := image.Rect(
		int(math.Floor(w.X)), int(math.Floor(w.Y)),
		int(math.Floor(w.X+w.Width)), int(math.Floor(w.Y+w.Height)),
	)

	out := s
	for _, name := range t.Fields {
		f, err := s.Require(name)
		if err != nil {
			return sample.Sample{}, err
		}
		if !f.Spatial() || f.Array == nil {
			return sample.Sample{}, sample.WrongKind(name, f, "raster array")
		}
		crop, err := f.Array.Crop(rect, true)
		if err != nil {
			return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
		}
		interp := raster.DefaultInterpolation(crop)
		if f.Label {
			interp = raster.Nearest
		}
		resized, err := crop.Resize(t.Resolution.Height, t.Resolution.Width, interp)
		if err != nil {
			return sample.Sample{}, &sample.FieldError{Field: name, Err: err}
		}
		out = out.With(sample.CropName(name), f.WithArray(resized))
	}
	return out, nil
}

// String describes the configuration.
func (t *CropFromROI) String() string {
	return fmt.Sprintf("CropFromROI:(elems=%v, resolution=%dx%d, relax=%d, zero_pad=%v)",
		t.Fields, t.Resolution.Width, t.Resolution.Height, t.Relax, t.ZeroPad)
}
