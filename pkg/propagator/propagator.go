// Package propagator implements the transformed-domain half of the
// split-Richardson iteration: per-voxel multiplication by (L'+1)⁻¹, with
// L' = Tl(L+V0)Tr.
package propagator

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/grid"
	"github.com/edp1096/anysim/pkg/matrix"
	"github.com/edp1096/anysim/pkg/medium"
	"github.com/edp1096/anysim/pkg/state"
)

var ErrNoForward = errors.New("propagator: forward blocks were not built")

// Assembler stamps the unscaled operator L of one voxel of the transformed
// domain. k holds the angular frequency of the voxel along every grid axis.
type Assembler interface {
	Components() int
	Stamp(k []float64, m matrix.Stamper)
}

type Propagator struct {
	grid    *grid.Grid
	inverse *matrix.Blocks // (L'+1)⁻¹
	forward *matrix.Blocks // L', nil unless requested
}

// scaledStamper multiplies every stamped value by a constant.
type scaledStamper struct {
	m     matrix.Stamper
	scale complex128
}

func (s scaledStamper) AddElement(i, j int, value complex128) {
	s.m.AddElement(i, j, s.scale*value)
}

// Build assembles L' = T²(L+V0) for every voxel of g, inverts L'+1 and
// symmetrizes the result. With forward set, L' itself is kept as well.
func Build(g *grid.Grid, asm Assembler, med *medium.Medium, forward bool) (*Propagator, error) {
	n := asm.Components()
	if n != med.Components() {
		return nil, fmt.Errorf("propagator: operator has %d components, medium has %d", n, med.Components())
	}

	kAxes := make([][]float64, g.Dims())
	for ax := range kAxes {
		kAxes[ax] = g.KCoordinates(ax)
	}

	t2 := complex(med.Scale()*med.Scale(), 0)
	v0 := med.V0()
	lp := matrix.Assemble(g.Shape, n, func(v int, m matrix.Stamper) {
		idx := make([]int, g.Dims())
		k := make([]float64, g.Dims())
		g.Unravel(v, idx)
		for ax, i := range idx {
			k[ax] = kAxes[ax][i]
		}

		s := scaledStamper{m: m, scale: t2}
		asm.Stamp(k, s)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if v0[i*n+j] != 0 {
					s.AddElement(i, j, v0[i*n+j])
				}
			}
		}
	})

	inv, err := matrix.Invert(lp.AddIdentity(1))
	if err != nil {
		return nil, fmt.Errorf("propagator: inverting L'+1: %w", err)
	}

	p := &Propagator{grid: g, inverse: Symmetrize(g, inv)}
	if forward {
		p.forward = Symmetrize(g, lp)
	}
	return p, nil
}

// Symmetrize enforces P(mirror(v)) = conj(P(v)) on the voxels that lie on
// the Nyquist plane of an even-length axis. There the sampled frequency -π/d
// has no partner +π/d, so the block is replaced by the average of P(v) and
// conj(P(mirror(v))), i.e. the mean of the operator at ±π/d.
func Symmetrize(g *grid.Grid, b *matrix.Blocks) *matrix.Blocks {
	out := b.Clone()
	if b.IsUniform() {
		return out
	}

	idx := make([]int, g.Dims())
	for v := 0; v < g.Voxels(); v++ {
		g.Unravel(v, idx)
		if !onNyquist(g, idx) {
			continue
		}
		src, partner, dst := b.Block(v), b.Block(g.Mirror(v)), out.Block(v)
		for i := range dst {
			dst[i] = (src[i] + cmplx.Conj(partner[i])) / 2
		}
	}
	return out
}

func onNyquist(g *grid.Grid, idx []int) bool {
	for ax, i := range idx {
		n := g.Shape[ax]
		if n%2 == 0 && i == n/2 {
			return true
		}
	}
	return false
}

// Propagate returns (L'+1)⁻¹·t for a field t in the transformed domain.
func (p *Propagator) Propagate(t *array.Field, st *state.State) *array.Field {
	return matrix.MulVec(p.inverse, t)
}

// Forward returns L'·t for a field t in the transformed domain.
func (p *Propagator) Forward(t *array.Field) (*array.Field, error) {
	if p.forward == nil {
		return nil, ErrNoForward
	}
	return matrix.MulVec(p.forward, t), nil
}

func (p *Propagator) HasForward() bool {
	return p.forward != nil
}

// Inverse returns the stored (L'+1)⁻¹ blocks. Callers must not modify them.
func (p *Propagator) Inverse() *matrix.Blocks {
	return p.inverse
}
