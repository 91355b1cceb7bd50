// Package medium implements the real-domain half of the split-Richardson
// iteration: the scaled potential V and the operator G = 1 - V.
package medium

import (
	"errors"
	"fmt"
	"math"

	"github.com/edp1096/anysim/internal/consts"
	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/matrix"
	"github.com/edp1096/anysim/pkg/state"
)

var (
	ErrZeroPotential = errors.New("medium: potential and background are both zero")
	ErrContraction   = errors.New("medium: scaled potential is not a contraction")
)

// Medium holds the per-voxel scaled potential V = T²(Vraw - V0) together
// with the scaling T (Tl = Tr = T·1) and the background V0. It is immutable
// after New and safe for concurrent use.
type Medium struct {
	Alpha float64 // Relaxation of the field update, 0 < Alpha <= 1

	n     int
	v     *matrix.Blocks
	v0    []complex128
	scale float64
	norm  float64
}

// New centres vraw on the background block v0 and scales the difference so
// that its largest per-voxel spectral norm equals vmax.
func New(vraw *matrix.Blocks, v0 []complex128, vmax float64) (*Medium, error) {
	n := vraw.N
	if len(v0) != n*n {
		return nil, fmt.Errorf("medium: background block has %d entries, want %d", len(v0), n*n)
	}
	if !(vmax > 0 && vmax < 1) {
		return nil, fmt.Errorf("%w: bound %g outside (0, 1)", ErrContraction, vmax)
	}

	diff := vraw.Clone()
	for k := 0; k < diff.Count(); k++ {
		block := diff.Block(k)
		for i := range block {
			block[i] -= v0[i]
		}
	}

	w := matrix.MaxNorm(diff)
	w = math.Max(w, consts.MIN_SPREAD*matrix.Norm2(v0, n))
	if w == 0 {
		return nil, ErrZeroPotential
	}
	if math.IsInf(w, 0) || math.IsNaN(w) {
		return nil, fmt.Errorf("%w: potential norm %g", ErrContraction, w)
	}

	scale := math.Sqrt(vmax / w)
	v := matrix.Scale(diff, complex(scale*scale, 0))

	m := &Medium{
		Alpha: consts.DEFAULT_ALPHA,
		n:     n,
		v:     v,
		v0:    append([]complex128(nil), v0...),
		scale: scale,
		norm:  matrix.MaxNorm(v),
	}
	if m.norm >= 1 {
		return nil, fmt.Errorf("%w: ‖V‖ = %g", ErrContraction, m.norm)
	}
	return m, nil
}

// Components is the block size of the potential.
func (m *Medium) Components() int { return m.n }

// Scale is the scalar T of Tl = Tr = T·1.
func (m *Medium) Scale() float64 { return m.scale }

func (m *Medium) Tl() *matrix.Blocks { return matrix.ScaledIdentity(m.n, complex(m.scale, 0)) }

func (m *Medium) Tr() *matrix.Blocks { return matrix.ScaledIdentity(m.n, complex(m.scale, 0)) }

// V0 returns a copy of the unscaled background block.
func (m *Medium) V0() []complex128 { return append([]complex128(nil), m.v0...) }

// Potential returns the scaled per-voxel potential. Callers must not modify it.
func (m *Medium) Potential() *matrix.Blocks { return m.v }

// Norm is the largest per-voxel spectral norm of the scaled potential.
func (m *Medium) Norm() float64 { return m.norm }

// V returns V·u.
func (m *Medium) V(u *array.Field) *array.Field {
	return matrix.MulVec(m.v, u)
}

// MultiplyG returns G·u = u - V·u.
func (m *Medium) MultiplyG(u *array.Field) *array.Field {
	return array.Sub(u, m.V(u))
}

// MixSource returns G·u + Tl·s, the field handed to the propagator.
func (m *Medium) MixSource(u, s *array.Field, st *state.State) *array.Field {
	return array.AddScaled(m.MultiplyG(u), complex(m.scale, 0), s)
}

// MixField returns u + Alpha·G·(t1 - u), the unrelaxed update u + G·(t1 - u)
// when Alpha is 1.
func (m *Medium) MixField(u, t1 *array.Field, st *state.State) *array.Field {
	return array.AddScaled(u, complex(m.Alpha, 0), m.MultiplyG(array.Sub(t1, u)))
}
