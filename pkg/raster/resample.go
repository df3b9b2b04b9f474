package raster

import (
	"fmt"
	"image"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Interpolation selects how pixel values are resampled.
type Interpolation int

const (
	// Nearest copies the closest source pixel. Used for masks and labels.
	Nearest Interpolation = iota

	// Linear blends the four surrounding pixels.
	Linear

	// Cubic blends the sixteen surrounding pixels with a Keys kernel (a = -0.75).
	Cubic
)

// String returns the lower-case interpolation name.
func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("interpolation(%d)", int(i))
	}
}

// ParseInterpolation converts a name such as "nearest" or "cubic" into an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest":
		return Nearest, nil
	case "linear", "bilinear":
		return Linear, nil
	case "cubic", "bicubic":
		return Cubic, nil
	default:
		return 0, fmt.Errorf("raster: unknown interpolation %q", name)
	}
}

// DefaultInterpolation picks nearest for binary arrays and cubic otherwise.
func DefaultInterpolation(a *Array) Interpolation {
	if a.IsBinary() {
		return Nearest
	}
	return Cubic
}

type border int

const (
	borderReplicate border = iota
	borderZero
)

const cubicA = -0.75

func cubicWeights(t float64) [4]float64 {
	k := func(x float64) float64 {
		x = math.Abs(x)
		switch {
		case x <= 1:
			return ((cubicA+2)*x-(cubicA+3))*x*x + 1
		case x < 2:
			return ((cubicA*x-5*cubicA)*x+8*cubicA)*x - 4*cubicA
		default:
			return 0
		}
	}
	return [4]float64{k(t + 1), k(t), k(1 - t), k(2 - t)}
}

// pixel returns the value at (y, x, c) honouring the border policy.
func (a *Array) pixel(y, x, c int, b border) float64 {
	if x < 0 || x >= a.Width || y < 0 || y >= a.Height {
		if b == borderZero {
			return 0
		}
		x = min(max(x, 0), a.Width-1)
		y = min(max(y, 0), a.Height-1)
	}
	return a.Data[a.index(y, x, c)]
}

// sample evaluates the array at a fractional source location.
func (a *Array) sample(fx, fy float64, c int, interp Interpolation, b border) float64 {
	switch interp {
	case Nearest:
		return a.pixel(int(math.Floor(fy+0.5)), int(math.Floor(fx+0.5)), c, b)

	case Linear:
		x0, y0 := math.Floor(fx), math.Floor(fy)
		tx, ty := fx-x0, fy-y0
		ix, iy := int(x0), int(y0)
		top := a.pixel(iy, ix, c, b)*(1-tx) + a.pixel(iy, ix+1, c, b)*tx
		bottom := a.pixel(iy+1, ix, c, b)*(1-tx) + a.pixel(iy+1, ix+1, c, b)*tx
		return top*(1-ty) + bottom*ty

	default:
		x0, y0 := math.Floor(fx), math.Floor(fy)
		wx, wy := cubicWeights(fx-x0), cubicWeights(fy-y0)
		ix, iy := int(x0), int(y0)
		var sum float64
		for j := 0; j < 4; j++ {
			if wy[j] == 0 {
				continue
			}
			var row float64
			for i := 0; i < 4; i++ {
				if wx[i] == 0 {
					continue
				}
				row += wx[i] * a.pixel(iy-1+j, ix-1+i, c, b)
			}
			sum += wy[j] * row
		}
		return sum
	}
}

// Resize resamples the array to height x width using pixel-centre alignment.
func (a *Array) Resize(height, width int, interp Interpolation) (*Array, error) {
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("raster: invalid resize target %dx%d", height, width)
	}
	if a.Empty() {
		return nil, fmt.Errorf("raster: cannot resize empty %dx%d array", a.Height, a.Width)
	}
	if height == a.Height && width == a.Width {
		return a.Clone(), nil
	}

	out := New(height, width, a.Channels)
	sx := float64(a.Width) / float64(width)
	sy := float64(a.Height) / float64(height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < a.Channels; c++ {
				var v float64
				if interp == Nearest {
					ix := min(int(math.Floor(float64(x)*sx)), a.Width-1)
					iy := min(int(math.Floor(float64(y)*sy)), a.Height-1)
					v = a.Data[a.index(iy, ix, c)]
				} else {
					fx := (float64(x)+0.5)*sx - 0.5
					fy := (float64(y)+0.5)*sy - 0.5
					v = a.sample(fx, fy, c, interp, borderReplicate)
				}
				out.Data[out.index(y, x, c)] = v
			}
		}
	}
	return out, nil
}

// WarpAffine applies the 2x3 forward affine matrix m, keeping the output the
// same size as the input. Destination pixels that map outside the source are zero.
func (a *Array) WarpAffine(m mat.Matrix, interp Interpolation) (*Array, error) {
	if r, c := m.Dims(); r != 2 || c != 3 {
		return nil, fmt.Errorf("raster: affine matrix must be 2x3, got %dx%d", r, c)
	}

	full := mat.NewDense(3, 3, []float64{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
		0, 0, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(full); err != nil {
		return nil, fmt.Errorf("raster: affine matrix is not invertible: %w", err)
	}

	i00, i01, i02 := inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)
	i10, i11, i12 := inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)

	out := NewLike(a)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			fx := i00*float64(x) + i01*float64(y) + i02
			fy := i10*float64(x) + i11*float64(y) + i12
			for c := 0; c < a.Channels; c++ {
				out.Data[out.index(y, x, c)] = a.sample(fx, fy, c, interp, borderZero)
			}
		}
	}
	return out, nil
}

// FlipHorizontal returns a left-right mirrored copy.
func (a *Array) FlipHorizontal() *Array {
	out := NewLike(a)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			src := a.index(y, a.Width-1-x, 0)
			dst := out.index(y, x, 0)
			copy(out.Data[dst:dst+a.Channels], a.Data[src:src+a.Channels])
		}
	}
	return out
}

// Crop extracts the half-open rectangle r. With zeroPad the rectangle may
// extend past the array, and the outside is filled with zeros; without it r
// must lie inside the array bounds.
func (a *Array) Crop(r image.Rectangle, zeroPad bool) (*Array, error) {
	r = r.Canon()
	if r.Empty() {
		return nil, fmt.Errorf("raster: empty crop rectangle %v", r)
	}
	bounds := image.Rect(0, 0, a.Width, a.Height)
	valid := r.Intersect(bounds)
	if !zeroPad && valid != r {
		return nil, fmt.Errorf("raster: crop %v exceeds bounds %v", r, bounds)
	}

	out := New(r.Dy(), r.Dx(), a.Channels)
	if valid.Empty() {
		return out, nil
	}
	rowLen := valid.Dx() * a.Channels
	for y := valid.Min.Y; y < valid.Max.Y; y++ {
		src := a.index(y, valid.Min.X, 0)
		dst := out.index(y-r.Min.Y, valid.Min.X-r.Min.X, 0)
		copy(out.Data[dst:dst+rowLen], a.Data[src:src+rowLen])
	}
	return out, nil
}
