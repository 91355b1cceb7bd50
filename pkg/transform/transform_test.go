package transform

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/edp1096/anysim/pkg/array"
)

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for _, shape := range [][]int{{16}, {5, 8}, {4, 3, 6}, {1, 7, 1}} {
		u := array.NewField(shape, 3)
		for i := range u.Data {
			u.Data[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
		}
		var tr Fourier
		back := tr.K2R(tr.R2K(u, nil), nil)
		if !cmplxs.EqualApprox(back.Data, u.Data, 1e-12) {
			t.Errorf("shape %v: K2R(R2K(u)) differs from u", shape)
		}
	}
}

func TestR2KKnownSpectrum(t *testing.T) {
	shape := []int{4, 6}
	var tr Fourier

	// Unit impulse at the origin has a flat spectrum.
	u := array.NewField(shape, 2)
	u.Set(0, 1, 1)
	k := tr.R2K(u, nil)
	for v := 0; v < k.Voxels(); v++ {
		if k.At(v, 0) != 0 || cmplx.Abs(k.At(v, 1)-1) > 1e-14 {
			t.Fatalf("impulse spectrum at voxel %d = %v, %v", v, k.At(v, 0), k.At(v, 1))
		}
	}

	// A plane wave along axis 1 with frequency index 2 maps onto one voxel.
	w := array.NewField(shape, 1)
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			w.Set(i*shape[1]+j, 0, cmplx.Exp(complex(0, 2*math.Pi*2*float64(j)/float64(shape[1]))))
		}
	}
	k = tr.R2K(w, nil)
	peak := 0*shape[1] + 2
	for v := 0; v < k.Voxels(); v++ {
		want := complex(0, 0)
		if v == peak {
			want = complex(float64(w.Voxels()), 0)
		}
		if cmplx.Abs(k.At(v, 0)-want) > 1e-10 {
			t.Errorf("plane wave spectrum at voxel %d = %v, want %v", v, k.At(v, 0), want)
		}
	}
}

func TestR2RIsIdentity(t *testing.T) {
	u := array.NewField([]int{3}, 1)
	u.Data[1] = 2i
	var tr Fourier
	if got := tr.R2R(u, nil); got != u {
		t.Errorf("R2R returned a different field")
	}
}
