// Package sample defines the unit of data flowing through a transform
// pipeline: a set of named fields, each tagged with its kind and layout when
// it is constructed.
//
// Samples are immutable by convention. With and Without return a new Sample
// that shares the unchanged fields' storage with the original, so stages must
// never write into an array they did not allocate.
package sample

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
)

// Well-known field names.
const (
	FieldImage            = "image"
	FieldMask             = "gt"
	FieldVoidPixels       = "void_pixels"
	FieldBBox             = "bbox"
	FieldMeta             = "meta"
	FieldGuidance         = "IOG_points"
	FieldConcat           = "concat"
	FieldPointCenter      = "point_center"
	FieldROI              = "roi"
	FieldForegroundClicks = "points_foreground_refinement"
	FieldBackgroundClicks = "points_background_refinement"

	// CropPrefix is prepended to the name of every field produced by cropping.
	CropPrefix = "crop_"
)

// CropName returns the name of the cropped counterpart of field name.
func CropName(name string) string {
	return CropPrefix + name
}

// Kind classifies a field and decides which transforms touch it.
type Kind int

const (
	// KindImage is continuous-valued raster data.
	KindImage Kind = iota

	// KindMask is binary or small-integer raster data, one channel per object instance.
	KindMask

	// KindPoint is a list of coordinates.
	KindPoint

	// KindBoundingBox is a rectangle excluded from spatial transforms.
	KindBoundingBox

	// KindMetadata is free-form information passed through untouched.
	KindMetadata
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindMask:
		return "mask"
	case KindPoint:
		return "point"
	case KindBoundingBox:
		return "bbox"
	case KindMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Layout describes how a raster field's channels are organised.
type Layout int

const (
	// SingleChannel holds one value per pixel.
	SingleChannel Layout = iota

	// MultiChannel holds several values per pixel describing one object (e.g. RGB).
	MultiChannel

	// StackedInstances holds one channel per object instance.
	StackedInstances

	// Sequence holds one separate array per object instance, possibly of different sizes.
	Sequence

	// NoLayout is used by non-raster fields.
	NoLayout
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case SingleChannel:
		return "single"
	case MultiChannel:
		return "multi"
	case StackedInstances:
		return "stacked"
	case Sequence:
		return "sequence"
	case NoLayout:
		return "none"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Field is one named value in a Sample. Exactly one of Array, Arrays,
// Points, Box or Meta is meaningful, depending on Kind and Layout.
type Field struct {
	Kind   Kind
	Layout Layout

	// Label marks raster data whose values are class ids, resampled with nearest neighbour
	Label bool

	// Array holds raster data for every layout except Sequence
	Array *raster.Array

	// Arrays holds per-instance raster data for the Sequence layout
	Arrays []*raster.Array

	// Points holds coordinates for KindPoint
	Points []geometry.Point

	// Box holds the rectangle for KindBoundingBox
	Box geometry.BBox

	// Meta holds free-form values for KindMetadata
	Meta map[string]string
}

// Image builds an image field; the layout follows the channel count.
func Image(a *raster.Array) Field {
	layout := SingleChannel
	if a.Channels > 1 {
		layout = MultiChannel
	}
	return Field{Kind: KindImage, Layout: layout, Array: a}
}

// Mask builds a mask field; a multi-channel array is a stack of instances.
func Mask(a *raster.Array) Field {
	layout := SingleChannel
	if a.Channels > 1 {
		layout = StackedInstances
	}
	return Field{Kind: KindMask, Layout: layout, Array: a}
}

// LabelMap builds a mask field holding class ids rather than a binary mask.
func LabelMap(a *raster.Array) Field {
	f := Mask(a)
	f.Label = true
	return f
}

// ArraySequence builds a Sequence field of the given raster kind.
func ArraySequence(kind Kind, arrays []*raster.Array) Field {
	return Field{Kind: kind, Layout: Sequence, Arrays: arrays}
}

// Points builds a point-list field.
func Points(points ...geometry.Point) Field {
	return Field{Kind: KindPoint, Layout: NoLayout, Points: points}
}

// BoundingBox builds a bounding-box field.
func BoundingBox(b geometry.BBox) Field {
	return Field{Kind: KindBoundingBox, Layout: NoLayout, Box: b}
}

// Metadata builds a metadata field.
func Metadata(meta map[string]string) Field {
	return Field{Kind: KindMetadata, Layout: NoLayout, Meta: meta}
}

// Spatial reports whether the field is raster data subject to spatial transforms.
func (f Field) Spatial() bool {
	return (f.Kind == KindImage || f.Kind == KindMask) && (f.Array != nil || f.Layout == Sequence)
}

// Instances returns the number of object instances held by a mask field.
func (f Field) Instances() int {
	switch f.Layout {
	case Sequence:
		return len(f.Arrays)
	case StackedInstances:
		return f.Array.Channels
	default:
		return 1
	}
}

// WithArray returns a copy of the field holding a instead of its array.
func (f Field) WithArray(a *raster.Array) Field {
	f.Array = a
	f.Arrays = nil
	if f.Layout == Sequence {
		f.Layout = SingleChannel
	}
	switch {
	case a.Channels == 1:
		f.Layout = SingleChannel
	case f.Kind == KindMask:
		f.Layout = StackedInstances
	case f.Layout == SingleChannel:
		f.Layout = MultiChannel
	}
	return f
}

// WithArrays returns a copy of the field holding the per-instance arrays.
func (f Field) WithArrays(arrays []*raster.Array) Field {
	f.Array = nil
	f.Arrays = arrays
	f.Layout = Sequence
	return f
}

// Sample maps field names to fields.
type Sample struct {
	fields map[string]Field
}

// New builds a sample from fields.
func New(fields map[string]Field) Sample {
	return Sample{fields: maps.Clone(fields)}
}

// Get returns the named field.
func (s Sample) Get(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Require returns the named field or an ErrMissingRequiredField error.
func (s Sample) Require(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return Field{}, Missing(name)
	}
	return f, nil
}

// Has reports whether the sample holds the named field.
func (s Sample) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Len returns the number of fields.
func (s Sample) Len() int {
	return len(s.fields)
}

// Names returns the field names in sorted order.
func (s Sample) Names() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// With returns a new sample with the named field set.
func (s Sample) With(name string, f Field) Sample {
	fields := maps.Clone(s.fields)
	if fields == nil {
		fields = make(map[string]Field, 1)
	}
	fields[name] = f
	return Sample{fields: fields}
}

// Without returns a new sample lacking the named fields.
func (s Sample) Without(names ...string) Sample {
	fields := maps.Clone(s.fields)
	for _, name := range names {
		delete(fields, name)
	}
	return Sample{fields: fields}
}

// SpatialSize returns the common height and width of the sample's spatial,
// non-sequence fields. ok is false if there are none.
func (s Sample) SpatialSize() (height, width int, ok bool, err error) {
	var first string
	for _, name := range s.Names() {
		f := s.fields[name]
		if !f.Spatial() || f.Layout == Sequence {
			continue
		}
		if !ok {
			first, height, width, ok = name, f.Array.Height, f.Array.Width, true
			continue
		}
		if f.Array.Height != height || f.Array.Width != width {
			return 0, 0, false, fmt.Errorf("%w: %q is %dx%d but %q is %dx%d", ErrInvalidSampleShape,
				name, f.Array.Height, f.Array.Width, first, height, width)
		}
	}
	return height, width, ok, nil
}

// String lists the fields with their kinds and shapes.
func (s Sample) String() string {
	parts := make([]string, 0, len(s.fields))
	for _, name := range s.Names() {
		f := s.fields[name]
		switch {
		case f.Layout == Sequence:
			parts = append(parts, fmt.Sprintf("%s:%s[%d]", name, f.Kind, len(f.Arrays)))
		case f.Array != nil:
			parts = append(parts, fmt.Sprintf("%s:%s(%dx%dx%d)", name, f.Kind, f.Array.Height, f.Array.Width, f.Array.Channels))
		case f.Kind == KindPoint:
			parts = append(parts, fmt.Sprintf("%s:%s[%d]", name, f.Kind, len(f.Points)))
		default:
			parts = append(parts, fmt.Sprintf("%s:%s", name, f.Kind))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}
