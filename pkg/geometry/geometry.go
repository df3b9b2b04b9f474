// Package geometry holds the coordinate types shared by the transforms:
// points tagged with the frame they live in, integer regions of interest,
// inclusive bounding boxes, and the affine matrices used for augmentation.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"iogtransforms/pkg/raster"
)

var (
	// ErrFrameMismatch is returned when a point is used in a frame it does not belong to.
	ErrFrameMismatch = errors.New("geometry: point in wrong coordinate frame")

	// ErrDegenerateROI is returned when a region has no area.
	ErrDegenerateROI = errors.New("geometry: degenerate region of interest")
)

// Frame names the coordinate system a point is expressed in.
type Frame int

const (
	// FrameImage is the original, uncropped image.
	FrameImage Frame = iota

	// FrameWorking is the cropped, relaxed and resized canvas fed to the network.
	FrameWorking
)

// String returns the frame name.
func (f Frame) String() string {
	switch f {
	case FrameImage:
		return "image"
	case FrameWorking:
		return "working"
	default:
		return fmt.Sprintf("frame(%d)", int(f))
	}
}

// Point is a 2-D coordinate in a named frame.
type Point struct {
	X, Y  float64
	Frame Frame
}

// ImagePoint returns a point in the original image frame.
func ImagePoint(x, y float64) Point {
	return Point{X: x, Y: y, Frame: FrameImage}
}

// WorkingPoint returns a point in the working frame.
func WorkingPoint(x, y float64) Point {
	return Point{X: x, Y: y, Frame: FrameWorking}
}

// String formats the point with its frame.
func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)@%s", p.X, p.Y, p.Frame)
}

// Size is a width and height in pixels.
type Size struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

// IsZero reports whether the size is unset.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// ROI is an integer rectangle given by its origin and extent.
type ROI struct {
	X, Y, Width, Height int
}

// Validate checks that the region has at least one pixel.
func (r ROI) Validate() error {
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("%w: %dx%d at (%d,%d)", ErrDegenerateROI, r.Width, r.Height, r.X, r.Y)
	}
	return nil
}

// Corners returns the top-left and bottom-right pixels of the region in the image frame.
func (r ROI) Corners() (topLeft, bottomRight Point) {
	return ImagePoint(float64(r.X), float64(r.Y)),
		ImagePoint(float64(r.X+r.Width-1), float64(r.Y+r.Height-1))
}

// BBox converts the region to inclusive corner form.
func (r ROI) BBox() BBox {
	return BBox{XMin: r.X, YMin: r.Y, XMax: r.X + r.Width - 1, YMax: r.Y + r.Height - 1}
}

// BBox is a bounding box with inclusive integer corners.
type BBox struct {
	XMin, YMin, XMax, YMax int
}

// Width returns the number of columns covered.
func (b BBox) Width() int { return b.XMax - b.XMin + 1 }

// Height returns the number of rows covered.
func (b BBox) Height() int { return b.YMax - b.YMin + 1 }

// ROI converts the box to origin/extent form.
func (b BBox) ROI() ROI {
	return ROI{X: b.XMin, Y: b.YMin, Width: b.Width(), Height: b.Height()}
}

// Rect returns the half-open image.Rectangle covering the box.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1)
}

// BBoxFromMask computes the bounding box of the foreground (> 0) pixels of a
// single-channel mask, grown by relax on every side. Without zeroPad the box
// is clamped to the mask; with it the box may extend past the canvas. The
// second result is false when the mask has no foreground.
func BBoxFromMask(mask *raster.Array, relax int, zeroPad bool) (BBox, bool) {
	xMin, yMin := math.MaxInt, math.MaxInt
	xMax, yMax := -1, -1
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(y, x, 0) <= 0 {
				continue
			}
			xMin, xMax = min(xMin, x), max(xMax, x)
			yMin, yMax = min(yMin, y), max(yMax, y)
		}
	}
	if xMax < 0 {
		return BBox{}, false
	}

	b := BBox{XMin: xMin - relax, YMin: yMin - relax, XMax: xMax + relax, YMax: yMax + relax}
	if !zeroPad {
		b.XMin = max(b.XMin, 0)
		b.YMin = max(b.YMin, 0)
		b.XMax = min(b.XMax, mask.Width-1)
		b.YMax = min(b.YMax, mask.Height-1)
	}
	return b, true
}

// RotationMatrix returns the 2x3 forward affine matrix rotating by angle
// degrees (counter-clockwise on screen) around (cx, cy) and scaling uniformly.
func RotationMatrix(cx, cy, angle, scale float64) *mat.Dense {
	theta := angle * math.Pi / 180
	alpha := scale * math.Cos(theta)
	beta := scale * math.Sin(theta)
	return mat.NewDense(2, 3, []float64{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	})
}

// ApplyAffine maps p through the 2x3 matrix m, keeping its frame.
func ApplyAffine(m mat.Matrix, p Point) Point {
	return Point{
		X:     m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2),
		Y:     m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2),
		Frame: p.Frame,
	}
}
