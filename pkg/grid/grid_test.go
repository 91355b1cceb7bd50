package grid

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/anysim/pkg/array"
)

func TestNewValidation(t *testing.T) {
	for _, tc := range []struct {
		name       string
		roi        []int
		pixel      []float64
		periodic   []bool
		boundaries []int
	}{
		{"no axes", nil, nil, nil, nil},
		{"length mismatch", []int{4, 4}, []float64{1}, []bool{false, false}, []int{0, 0}},
		{"zero size", []int{0}, []float64{1}, []bool{false}, []int{0}},
		{"zero pixel", []int{4}, []float64{0}, []bool{false}, []int{0}},
		{"negative boundary", []int{4}, []float64{1}, []bool{false}, []int{-1}},
		{"periodic with boundary", []int{4}, []float64{1}, []bool{true}, []int{2}},
	} {
		_, err := New(tc.roi, tc.pixel, tc.periodic, tc.boundaries)
		if !errors.Is(err, ErrGeometry) {
			t.Errorf("%s: expected ErrGeometry, got %v", tc.name, err)
		}
	}
}

func TestRavelMirror(t *testing.T) {
	g, err := New([]int{4, 3}, []float64{1, 1}, []bool{true, true}, []int{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	idx := make([]int, 2)
	for v := 0; v < g.Voxels(); v++ {
		g.Unravel(v, idx)
		if g.Ravel(idx) != v {
			t.Errorf("Ravel(Unravel(%d)) = %d", v, g.Ravel(idx))
		}
		if g.Mirror(g.Mirror(v)) != v {
			t.Errorf("Mirror is not an involution at %d", v)
		}
	}
	// (1, 1) -> (3, 2); Nyquist (2, 0) maps onto itself.
	if got := g.Mirror(g.Ravel([]int{1, 1})); got != g.Ravel([]int{3, 2}) {
		t.Errorf("Mirror(1,1) = %d", got)
	}
	if got := g.Mirror(g.Ravel([]int{2, 0})); got != g.Ravel([]int{2, 0}) {
		t.Errorf("Mirror(2,0) = %d", got)
	}
}

func TestCoordinates(t *testing.T) {
	g, err := New([]int{4}, []float64{0.5}, []bool{false}, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5}
	if got := g.Coordinates(0); !floats.EqualApprox(got, want, 1e-14) {
		t.Errorf("Coordinates = %v, want %v", got, want)
	}

	scale := 2 * math.Pi / 4.0
	wantK := []float64{0, 1, 2, 3, -4, -3, -2, -1}
	floats.Scale(scale, wantK)
	if got := g.KCoordinates(0); !floats.EqualApprox(got, wantK, 1e-14) {
		t.Errorf("KCoordinates = %v, want %v", got, wantK)
	}
}

func TestPadCropDepth(t *testing.T) {
	g, err := New([]int{3, 2}, []float64{1, 1}, []bool{false, true}, []int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if g.Shape[0] != 7 || g.Shape[1] != 2 {
		t.Fatalf("Shape = %v", g.Shape)
	}

	f := array.NewField(g.ROI, 2)
	for i := range f.Data {
		f.Data[i] = complex(float64(i+1), 0)
	}
	padded, err := g.Pad(f)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(padded.Norm()-f.Norm()) > 1e-12 {
		t.Errorf("padding changed the norm")
	}
	if padded.At(g.Ravel([]int{2, 0}), 0) != f.Data[0] {
		t.Errorf("ROI origin not at the boundary offset")
	}
	cropped, err := g.Crop(padded)
	if err != nil {
		t.Fatal(err)
	}
	for i := range f.Data {
		if cropped.Data[i] != f.Data[i] {
			t.Fatalf("Crop(Pad(f)) != f at %d", i)
		}
	}
	if _, err := g.Crop(f); !errors.Is(err, ErrGeometry) {
		t.Errorf("expected shape error cropping an ROI field, got %v", err)
	}

	for _, tc := range []struct {
		i    int
		want float64
	}{{0, 1}, {1, 0.5}, {2, 0}, {4, 0}, {5, 0.5}, {6, 1}} {
		if got := g.Depth([]int{tc.i, 1}); got != tc.want {
			t.Errorf("Depth(%d) = %v, want %v", tc.i, got, tc.want)
		}
	}

	dst := make([]int, 2)
	g.ROIIndex([]int{0, 1}, dst)
	if dst[0] != 0 || dst[1] != 1 {
		t.Errorf("ROIIndex(0,1) = %v", dst)
	}
	g.ROIIndex([]int{6, 0}, dst)
	if dst[0] != 2 {
		t.Errorf("ROIIndex(6,0) = %v", dst)
	}
}
