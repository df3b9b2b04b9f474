package geometry

import (
	"fmt"
	"math"
)

// Window is a real-valued rectangle. It describes the relaxed region the
// working canvas is cut from, and may extend past the image when zero padding
// is in effect.
type Window struct {
	X, Y, Width, Height float64
}

// Mapper converts points between the original image frame and the working
// frame obtained by relaxing an ROI, cropping it and resizing the crop to
// Resolution.
type Mapper struct {
	// ROI is the region of interest in the image frame
	ROI ROI

	// Resolution is the size of the working canvas
	Resolution Size

	// Relax is the context margin added on every side of the ROI
	Relax int

	// ZeroPad leaves the relaxed window unbounded. Otherwise it is clamped to
	// the image origin and to the far edge of the ROI.
	ZeroPad bool
}

// Relaxed returns the relaxed window the working canvas is taken from.
func (m Mapper) Relaxed() (Window, error) {
	if err := m.ROI.Validate(); err != nil {
		return Window{}, err
	}
	if m.Resolution.Width < 1 || m.Resolution.Height < 1 {
		return Window{}, fmt.Errorf("geometry: invalid working resolution %dx%d", m.Resolution.Width, m.Resolution.Height)
	}

	r := m.ROI
	relax := float64(m.Relax)
	xMinBound, yMinBound := math.Inf(-1), math.Inf(-1)
	xMaxBound, yMaxBound := math.Inf(1), math.Inf(1)
	if !m.ZeroPad {
		xMinBound, yMinBound = 0, 0
		xMaxBound = float64(r.X + r.Width - 1)
		yMaxBound = float64(r.Y + r.Height - 1)
	}

	xMin := math.Max(float64(r.X)-relax, xMinBound)
	yMin := math.Max(float64(r.Y)-relax, yMinBound)
	xMax := math.Min(float64(r.X+r.Width)+relax, xMaxBound)
	yMax := math.Min(float64(r.Y+r.Height)+relax, yMaxBound)

	w := Window{X: xMin, Y: yMin, Width: xMax - xMin, Height: yMax - yMin}
	if w.Width <= 0 || w.Height <= 0 {
		return Window{}, fmt.Errorf("%w: relaxed window %gx%g", ErrDegenerateROI, w.Width, w.Height)
	}
	return w, nil
}

// Map converts an image-frame point to the working frame. Coordinates are
// truncated toward zero to whole pixels.
func (m Mapper) Map(p Point) (Point, error) {
	if p.Frame != FrameImage {
		return Point{}, fmt.Errorf("%w: mapping %s expects the image frame", ErrFrameMismatch, p)
	}
	w, err := m.Relaxed()
	if err != nil {
		return Point{}, err
	}
	x := math.Trunc((p.X - w.X) * float64(m.Resolution.Width) / w.Width)
	y := math.Trunc((p.Y - w.Y) * float64(m.Resolution.Height) / w.Height)
	return WorkingPoint(x, y), nil
}

// MapAll converts every point with Map.
func (m Mapper) MapAll(points []Point) ([]Point, error) {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		q, err := m.Map(p)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Unmap converts a working-frame point back to the image frame. It inverts
// Map up to the truncation Map applies.
func (m Mapper) Unmap(p Point) (Point, error) {
	if p.Frame != FrameWorking {
		return Point{}, fmt.Errorf("%w: unmapping %s expects the working frame", ErrFrameMismatch, p)
	}
	w, err := m.Relaxed()
	if err != nil {
		return Point{}, err
	}
	x := p.X*w.Width/float64(m.Resolution.Width) + w.X
	y := p.Y*w.Height/float64(m.Resolution.Height) + w.Y
	return ImagePoint(x, y), nil
}
