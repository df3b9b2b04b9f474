// Package raster provides the dense float64 arrays that every transform in
// iogtransforms operates on, together with the geometric primitives (crop,
// resize, affine warp, flip) applied to them.
//
// An Array is stored row-major with interleaved channels, matching the flat
// []float64 layout used throughout the rest of the module:
//
//	index(y, x, c) = (y*Width + x)*Channels + c
package raster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShapeMismatch is returned when two arrays that must agree in size do not.
var ErrShapeMismatch = errors.New("raster: shape mismatch")

// Array is a Height x Width x Channels grid of float64 values.
type Array struct {
	// Height is the number of rows
	Height int

	// Width is the number of columns
	Width int

	// Channels is the number of values per pixel
	Channels int

	// Data holds Height*Width*Channels values in row-major, channel-interleaved order
	Data []float64
}

// New allocates a zero-filled array.
func New(height, width, channels int) *Array {
	if height < 0 || width < 0 || channels < 1 {
		panic(fmt.Sprintf("raster: invalid dimensions %dx%dx%d", height, width, channels))
	}
	return &Array{
		Height:   height,
		Width:    width,
		Channels: channels,
		Data:     make([]float64, height*width*channels),
	}
}

// FromSlice wraps data as an array without copying it.
func FromSlice(height, width, channels int, data []float64) (*Array, error) {
	if height < 0 || width < 0 || channels < 1 {
		return nil, fmt.Errorf("raster: invalid dimensions %dx%dx%d", height, width, channels)
	}
	if len(data) != height*width*channels {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrShapeMismatch, len(data), height, width, channels)
	}
	return &Array{Height: height, Width: width, Channels: channels, Data: data}, nil
}

// NewLike allocates a zero-filled array with the same shape as a.
func NewLike(a *Array) *Array {
	return New(a.Height, a.Width, a.Channels)
}

func (a *Array) index(y, x, c int) int {
	return (y*a.Width+x)*a.Channels + c
}

// At returns the value at row y, column x, channel c.
func (a *Array) At(y, x, c int) float64 {
	return a.Data[a.index(y, x, c)]
}

// Set stores v at row y, column x, channel c.
func (a *Array) Set(y, x, c int, v float64) {
	a.Data[a.index(y, x, c)] = v
}

// SameSize reports whether a and b share height and width. Channels may differ.
func (a *Array) SameSize(b *Array) bool {
	return a.Height == b.Height && a.Width == b.Width
}

// Empty reports whether the array holds no pixels.
func (a *Array) Empty() bool {
	return a.Height == 0 || a.Width == 0
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := NewLike(a)
	copy(out.Data, a.Data)
	return out
}

// Channel extracts channel c as a single-channel array.
func (a *Array) Channel(c int) *Array {
	if c < 0 || c >= a.Channels {
		panic(fmt.Sprintf("raster: channel %d out of range [0,%d)", c, a.Channels))
	}
	out := New(a.Height, a.Width, 1)
	for i := range out.Data {
		out.Data[i] = a.Data[i*a.Channels+c]
	}
	return out
}

// SetChannel overwrites channel c with the single-channel array src.
func (a *Array) SetChannel(c int, src *Array) error {
	if !a.SameSize(src) || src.Channels != 1 {
		return fmt.Errorf("%w: channel source %dx%dx%d into %dx%d", ErrShapeMismatch,
			src.Height, src.Width, src.Channels, a.Height, a.Width)
	}
	for i, v := range src.Data {
		a.Data[i*a.Channels+c] = v
	}
	return nil
}

// Concat joins arrays of equal height and width along the channel axis.
func Concat(arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, errors.New("raster: nothing to concatenate")
	}
	first := arrays[0]
	channels := 0
	for _, a := range arrays {
		if !a.SameSize(first) {
			return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Height, a.Width, first.Height, first.Width)
		}
		channels += a.Channels
	}

	out := New(first.Height, first.Width, channels)
	pixels := first.Height * first.Width
	for p := 0; p < pixels; p++ {
		offset := 0
		for _, a := range arrays {
			copy(out.Data[p*channels+offset:p*channels+offset+a.Channels], a.Data[p*a.Channels:(p+1)*a.Channels])
			offset += a.Channels
		}
	}
	return out, nil
}

// IsBinary reports whether every value is exactly 0 or 1.
func (a *Array) IsBinary() bool {
	for _, v := range a.Data {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}

// Max returns the largest value, or 0 for an empty array.
func (a *Array) Max() float64 {
	if len(a.Data) == 0 {
		return 0
	}
	return floats.Max(a.Data)
}

// Min returns the smallest value, or 0 for an empty array.
func (a *Array) Min() float64 {
	if len(a.Data) == 0 {
		return 0
	}
	return floats.Min(a.Data)
}

// ArgMax returns the column and row of the first maximum of channel c in
// row-major order.
func (a *Array) ArgMax(c int) (x, y int) {
	plane := a.Data
	if a.Channels != 1 {
		plane = a.Channel(c).Data
	}
	if len(plane) == 0 {
		return 0, 0
	}
	idx := floats.MaxIdx(plane)
	return idx % a.Width, idx / a.Width
}

// MaxInto replaces every value of dst with max(dst, src). Both must have the same shape.
func MaxInto(dst, src *Array) error {
	if !dst.SameSize(src) || dst.Channels != src.Channels {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrShapeMismatch,
			dst.Height, dst.Width, dst.Channels, src.Height, src.Width, src.Channels)
	}
	for i, v := range src.Data {
		if v > dst.Data[i] {
			dst.Data[i] = v
		}
	}
	return nil
}

// Normalize returns a copy rescaled linearly so its values span [0, max].
// A constant array maps to zeros.
func (a *Array) Normalize(max float64) *Array {
	out := a.Clone()
	if len(out.Data) == 0 {
		return out
	}
	lo, hi := a.Min(), a.Max()
	floats.AddConst(-lo, out.Data)
	floats.Scale(max/(hi-lo+1e-10), out.Data)
	return out
}
