package guidance

import (
	"fmt"

	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/raster"
)

// InferenceOptions configures guidance synthesis from user clicks.
type InferenceOptions struct {
	// Sigma is the Gaussian width in pixels
	Sigma float64

	// PadPixel moves the four background corners outward from the mapped ROI
	PadPixel int

	// RelaxPixel is the context margin around the ROI
	RelaxPixel int

	// Resolution is the working canvas size
	Resolution geometry.Size

	// ZeroPad leaves the relaxed window unbounded instead of clamping it
	ZeroPad bool
}

// Mapper returns the coordinate mapper these options define for roi.
func (o InferenceOptions) Mapper(roi geometry.ROI) geometry.Mapper {
	return geometry.Mapper{
		ROI:        roi,
		Resolution: o.Resolution,
		Relax:      o.RelaxPixel,
		ZeroPad:    o.ZeroPad,
	}
}

// Request carries user input in the original image frame.
type Request struct {
	// Center is the click inside the object
	Center geometry.Point

	// ROI is the box drawn around the object
	ROI geometry.ROI

	// Foreground holds corrective clicks inside the object
	Foreground []geometry.Point

	// Background holds corrective clicks outside the object
	Background []geometry.Point
}

// Points maps a request into the working frame. The foreground channel gets
// the centre and foreground clicks; the background channel always gets the
// four padded ROI corners, followed by any background clicks.
func Points(req Request, opts InferenceOptions) (foreground, background []geometry.Point, err error) {
	m := opts.Mapper(req.ROI)

	tl, br := req.ROI.Corners()
	mtl, err := m.Map(tl)
	if err != nil {
		return nil, nil, fmt.Errorf("mapping ROI corner: %w", err)
	}
	mbr, err := m.Map(br)
	if err != nil {
		return nil, nil, fmt.Errorf("mapping ROI corner: %w", err)
	}

	pad := float64(opts.PadPixel)
	xMin := max(mtl.X-pad, 0)
	yMin := max(mtl.Y-pad, 0)
	xMax := min(mbr.X+pad, float64(opts.Resolution.Width-1))
	yMax := min(mbr.Y+pad, float64(opts.Resolution.Height-1))

	foreground, err = m.MapAll(append([]geometry.Point{req.Center}, req.Foreground...))
	if err != nil {
		return nil, nil, fmt.Errorf("mapping foreground clicks: %w", err)
	}
	clicks, err := m.MapAll(req.Background)
	if err != nil {
		return nil, nil, fmt.Errorf("mapping background clicks: %w", err)
	}

	background = append([]geometry.Point{
		geometry.WorkingPoint(xMin, yMin),
		geometry.WorkingPoint(xMax, yMin),
		geometry.WorkingPoint(xMax, yMax),
		geometry.WorkingPoint(xMin, yMax),
	}, clicks...)
	return foreground, background, nil
}

// FromPoints renders the guidance map of a request on the working canvas.
func FromPoints(req Request, opts InferenceOptions) (*raster.Array, error) {
	foreground, background, err := Points(req, opts)
	if err != nil {
		return nil, err
	}
	return Render(opts.Resolution, foreground, background, opts.Sigma)
}
