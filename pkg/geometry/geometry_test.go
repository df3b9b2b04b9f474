package geometry

import (
	"errors"
	"math"
	"testing"

	"iogtransforms/pkg/raster"
)

// TestMapROICornerWithoutRelax maps the ROI's own top-left corner to the canvas origin
func TestMapROICornerWithoutRelax(t *testing.T) {
	m := Mapper{
		ROI:        ROI{X: 10, Y: 10, Width: 20, Height: 20},
		Resolution: Size{Width: 512, Height: 512},
		Relax:      0,
		ZeroPad:    false,
	}

	p, err := m.Map(ImagePoint(10, 10))
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if p.X != 0 || p.Y != 0 {
		t.Errorf("Expected (0,0), got (%g,%g)", p.X, p.Y)
	}
	if p.Frame != FrameWorking {
		t.Errorf("Expected working frame, got %s", p.Frame)
	}

	w, err := m.Relaxed()
	if err != nil {
		t.Fatalf("Relaxed failed: %v", err)
	}
	// Without zero padding the far edge is clamped to the last ROI pixel.
	if w.X != 10 || w.Y != 10 || w.Width != 19 || w.Height != 19 {
		t.Errorf("Unexpected relaxed window %+v", w)
	}
}

// TestMapTruncates checks that fractional coordinates are truncated, not rounded
func TestMapTruncates(t *testing.T) {
	m := Mapper{
		ROI:        ROI{X: 0, Y: 0, Width: 3, Height: 3},
		Resolution: Size{Width: 2, Height: 2},
		ZeroPad:    true,
	}
	// 2 * 2/3 = 1.33 and 2.9 * 2/3 = 1.93 both truncate to 1
	p, err := m.Map(ImagePoint(2, 2.9))
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if p.X != 1 || p.Y != 1 {
		t.Errorf("Expected (1,1), got (%g,%g)", p.X, p.Y)
	}
}

// TestMapZeroPadUnbounded lets the relaxed window extend past the image origin
func TestMapZeroPadUnbounded(t *testing.T) {
	m := Mapper{
		ROI:        ROI{X: 5, Y: 5, Width: 10, Height: 10},
		Resolution: Size{Width: 100, Height: 100},
		Relax:      10,
		ZeroPad:    true,
	}
	w, err := m.Relaxed()
	if err != nil {
		t.Fatalf("Relaxed failed: %v", err)
	}
	if w.X != -5 || w.Y != -5 || w.Width != 30 || w.Height != 30 {
		t.Errorf("Unexpected relaxed window %+v", w)
	}

	clipped := m
	clipped.ZeroPad = false
	w, err = clipped.Relaxed()
	if err != nil {
		t.Fatalf("Relaxed failed: %v", err)
	}
	if w.X != 0 || w.Y != 0 || w.Width != 14 || w.Height != 14 {
		t.Errorf("Unexpected clipped window %+v", w)
	}
}

// TestMapMonotonicInRelax verifies that growing the relax margin never pushes
// the mapped ROI corners away from the canvas centre
func TestMapMonotonicInRelax(t *testing.T) {
	for _, roi := range []ROI{{X: 40, Y: 60, Width: 25, Height: 15}, {X: 0, Y: 0, Width: 2, Height: 90}} {
		m := Mapper{
			ROI:        roi,
			Resolution: Size{Width: 128, Height: 128},
			ZeroPad:    true,
		}
		tl, br := m.ROI.Corners()
		centre := 64.0
		prevTL, prevBR := math.Inf(1), math.Inf(1)

		for relax := 0; relax <= 40; relax += 5 {
			m.Relax = relax
			a, err := m.Map(tl)
			if err != nil {
				t.Fatalf("Map failed: %v", err)
			}
			b, err := m.Map(br)
			if err != nil {
				t.Fatalf("Map failed: %v", err)
			}
			dTL := math.Max(math.Abs(a.X-centre), math.Abs(a.Y-centre))
			dBR := math.Max(math.Abs(b.X-centre), math.Abs(b.Y-centre))
			if dTL > prevTL || dBR > prevBR {
				t.Errorf("roi=%+v relax=%d moved corners outward: %g > %g or %g > %g",
					roi, relax, dTL, prevTL, dBR, prevBR)
			}
			prevTL, prevBR = dTL, dBR
		}
	}
}

// TestUnmapInvertsMap checks the inverse mapping up to one working pixel
func TestUnmapInvertsMap(t *testing.T) {
	m := Mapper{
		ROI:        ROI{X: 30, Y: 12, Width: 64, Height: 40},
		Resolution: Size{Width: 256, Height: 160},
		Relax:      8,
		ZeroPad:    true,
	}
	w, err := m.Relaxed()
	if err != nil {
		t.Fatalf("Relaxed failed: %v", err)
	}
	for _, p := range []Point{ImagePoint(30, 12), ImagePoint(50.5, 33.25), ImagePoint(93, 51)} {
		q, err := m.Map(p)
		if err != nil {
			t.Fatalf("Map failed: %v", err)
		}
		back, err := m.Unmap(q)
		if err != nil {
			t.Fatalf("Unmap failed: %v", err)
		}
		if math.Abs(back.X-p.X) > w.Width/256 || math.Abs(back.Y-p.Y) > w.Height/160 {
			t.Errorf("Round trip of %s gave %s", p, back)
		}
	}
}

// TestMapRejectsWrongFrame ensures frames are enforced
func TestMapRejectsWrongFrame(t *testing.T) {
	m := Mapper{ROI: ROI{Width: 4, Height: 4}, Resolution: Size{Width: 8, Height: 8}, ZeroPad: true}
	if _, err := m.Map(WorkingPoint(1, 1)); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("Expected ErrFrameMismatch from Map, got %v", err)
	}
	if _, err := m.Unmap(ImagePoint(1, 1)); !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("Expected ErrFrameMismatch from Unmap, got %v", err)
	}
}

// TestDegenerateROI covers empty regions and windows that collapse when clipped
func TestDegenerateROI(t *testing.T) {
	m := Mapper{ROI: ROI{X: 3, Y: 3, Width: 0, Height: 5}, Resolution: Size{Width: 8, Height: 8}}
	if _, err := m.Map(ImagePoint(3, 3)); !errors.Is(err, ErrDegenerateROI) {
		t.Errorf("Expected ErrDegenerateROI for zero width, got %v", err)
	}

	// A one-pixel ROI clipped to its own last pixel has no extent left.
	m = Mapper{ROI: ROI{X: 3, Y: 3, Width: 1, Height: 1}, Resolution: Size{Width: 8, Height: 8}}
	if _, err := m.Relaxed(); !errors.Is(err, ErrDegenerateROI) {
		t.Errorf("Expected ErrDegenerateROI for a collapsed window, got %v", err)
	}
}

// TestBBoxFromMask covers relax, clamping and empty masks
func TestBBoxFromMask(t *testing.T) {
	mask := raster.New(20, 30, 1)
	for y := 4; y < 8; y++ {
		for x := 10; x < 15; x++ {
			mask.Set(y, x, 0, 1)
		}
	}

	b, ok := BBoxFromMask(mask, 0, false)
	if !ok {
		t.Fatal("Expected foreground to be found")
	}
	if b != (BBox{XMin: 10, YMin: 4, XMax: 14, YMax: 7}) {
		t.Errorf("Unexpected box %+v", b)
	}
	if b.Width() != 5 || b.Height() != 4 {
		t.Errorf("Expected 5x4 box, got %dx%d", b.Width(), b.Height())
	}

	b, _ = BBoxFromMask(mask, 6, false)
	if b != (BBox{XMin: 4, YMin: 0, XMax: 20, YMax: 13}) {
		t.Errorf("Unexpected clamped box %+v", b)
	}

	b, _ = BBoxFromMask(mask, 6, true)
	if b.YMin != -2 {
		t.Errorf("Zero-padded box should extend past the top, got %+v", b)
	}

	if _, ok := BBoxFromMask(raster.New(5, 5, 1), 3, true); ok {
		t.Errorf("Empty mask should report no box")
	}
}

// TestROIConversions checks ROI and BBox round trips
func TestROIConversions(t *testing.T) {
	r := ROI{X: 2, Y: 3, Width: 4, Height: 5}
	if r.BBox().ROI() != r {
		t.Errorf("ROI -> BBox -> ROI changed %+v into %+v", r, r.BBox().ROI())
	}
	rect := r.BBox().Rect()
	if rect.Dx() != 4 || rect.Dy() != 5 || rect.Min.X != 2 || rect.Min.Y != 3 {
		t.Errorf("Unexpected rectangle %v", rect)
	}
	tl, br := r.Corners()
	if tl.X != 2 || tl.Y != 3 || br.X != 5 || br.Y != 7 {
		t.Errorf("Unexpected corners %s %s", tl, br)
	}
}

// TestRotationMatrix checks the identity case and a quarter turn
func TestRotationMatrix(t *testing.T) {
	m := RotationMatrix(16, 12, 0, 1)
	want := []float64{1, 0, 0, 0, 1, 0}
	for i, v := range want {
		if m.RawMatrix().Data[i] != v {
			t.Fatalf("Expected identity matrix, got %v", m.RawMatrix().Data)
		}
	}

	q := RotationMatrix(0, 0, 90, 2)
	p := ApplyAffine(q, WorkingPoint(1, 0))
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y+2) > 1e-12 {
		t.Errorf("Expected (0,-2), got %s", p)
	}
	if p.Frame != FrameWorking {
		t.Errorf("ApplyAffine must keep the frame")
	}
}
