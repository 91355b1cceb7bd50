package diffusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/anysim/pkg/anysim"
	"github.com/edp1096/anysim/pkg/grid"
	"github.com/edp1096/anysim/pkg/matrix"
)

// tensors holds D⁻¹ for every spatial ROI voxel (a single block when the
// medium is homogeneous) and the eigenvalue range of D.
type tensors struct {
	dims        int
	homogeneous bool
	inv         []float64
	dmin, dmax  float64
}

func (t *tensors) block(v int) []float64 {
	nn := t.dims * t.dims
	if t.homogeneous {
		return t.inv[:nn]
	}
	return t.inv[v*nn : (v+1)*nn]
}

// lift expands scalar and diagonal coefficients to a full symmetric tensor.
func lift(values []float64, pt PotentialType, dims int) (*mat.SymDense, error) {
	sym := mat.NewSymDense(dims, nil)
	switch pt {
	case Scalar:
		for i := 0; i < dims; i++ {
			sym.SetSym(i, i, values[0])
		}
	case Diagonal:
		for i := 0; i < dims; i++ {
			sym.SetSym(i, i, values[i])
		}
	case Tensor:
		for i := 0; i < dims; i++ {
			for j := i; j < dims; j++ {
				dij, dji := values[i*dims+j], values[j*dims+i]
				if math.Abs(dij-dji) > 1e-12*math.Max(math.Abs(dij), math.Abs(dji)) {
					return nil, fmt.Errorf("%w: tensor is not symmetric (%g != %g)", anysim.ErrNotPositiveDefinite, dij, dji)
				}
				sym.SetSym(i, j, dij)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %v", anysim.ErrUnknownPotentialType, pt)
	}
	return sym, nil
}

// invertDiffusion checks every tensor of d for positive definiteness with a
// Cholesky factorization and stores its inverse.
func invertDiffusion(d Coefficient, pt PotentialType, dims int) (*tensors, error) {
	per, err := pt.perVoxel(dims)
	if err != nil {
		return nil, err
	}
	count := len(d.Data) / per
	t := &tensors{
		dims:        dims,
		homogeneous: d.Homogeneous(),
		inv:         make([]float64, count*dims*dims),
		dmin:        math.Inf(1),
		dmax:        math.Inf(-1),
	}

	var (
		chol  mat.Cholesky
		eig   mat.EigenSym
		inv   mat.SymDense
		evals = make([]float64, dims)
	)
	for v := 0; v < count; v++ {
		sym, err := lift(d.at(v, per), pt, dims)
		if err != nil {
			return nil, fmt.Errorf("voxel %d: %w", v, err)
		}
		if !chol.Factorize(sym) {
			return nil, fmt.Errorf("%w: voxel %d", anysim.ErrNotPositiveDefinite, v)
		}
		if err := chol.InverseTo(&inv); err != nil {
			return nil, fmt.Errorf("%w: voxel %d: %v", anysim.ErrNotPositiveDefinite, v, err)
		}
		if !eig.Factorize(sym, false) {
			return nil, fmt.Errorf("%w: voxel %d: eigen decomposition failed", anysim.ErrNotPositiveDefinite, v)
		}
		eig.Values(evals)
		t.dmin = math.Min(t.dmin, evals[0])
		t.dmax = math.Max(t.dmax, evals[dims-1])

		block := t.block(v)
		for i := 0; i < dims; i++ {
			for j := 0; j < dims; j++ {
				block[i*dims+j] = inv.At(i, j)
			}
		}
	}
	return t, nil
}

// absorptionRange returns the extreme values of a, rejecting negative or
// undefined entries.
func absorptionRange(a Coefficient) (amin, amax float64, err error) {
	amin, amax = math.Inf(1), math.Inf(-1)
	for v, x := range a.Data {
		if !(x >= 0) || math.IsInf(x, 0) {
			return 0, 0, fmt.Errorf("%w: %g at voxel %d", anysim.ErrNegativeAbsorption, x, v)
		}
		amin = math.Min(amin, x)
		amax = math.Max(amax, x)
	}
	return amin, amax, nil
}

// potential is the raw block-diagonal potential blockdiag(D⁻¹, a) over the
// padded grid. Coefficients are edge extended into the padding, where the
// absorption also ramps linearly up to aBoundary at the outer edge.
type potential struct {
	grid      *grid.Grid
	dims      int // spatial axes
	roi       []int
	tensors   *tensors
	a         Coefficient
	aBoundary float64
}

func (p *potential) spatialIndex(full []int, roiIdx []int) int {
	p.grid.ROIIndex(full, roiIdx)
	v := 0
	for ax := 0; ax < p.dims; ax++ {
		v = v*p.roi[ax] + roiIdx[ax]
	}
	return v
}

func (p *potential) absorption(idx, roiIdx []int) float64 {
	a := p.a.at(p.spatialIndex(idx, roiIdx), 1)[0]
	return a + p.grid.Depth(idx)*p.aBoundary
}

// blocks assembles Vraw for every voxel of the padded grid.
func (p *potential) blocks() *matrix.Blocks {
	n := p.dims + 1
	return matrix.Assemble(p.grid.Shape, n, func(v int, m matrix.Stamper) {
		idx := make([]int, p.grid.Dims())
		roiIdx := make([]int, p.grid.Dims())
		p.grid.Unravel(v, idx)

		inv := p.tensors.block(p.spatialIndex(idx, roiIdx))
		for i := 0; i < p.dims; i++ {
			for j := 0; j < p.dims; j++ {
				if inv[i*p.dims+j] != 0 {
					m.AddElement(i, j, complex(inv[i*p.dims+j], 0))
				}
			}
		}
		m.AddElement(p.dims, p.dims, complex(p.absorption(idx, roiIdx), 0))
	})
}

// background is V0 = diag(c_J, ..., c_J, c_I) with c_J the centre of the
// eigenvalue range of D⁻¹ and c_I the centre of the absorption range,
// boundary ramp included.
func (p *potential) background(amin, amax float64) []complex128 {
	n := p.dims + 1
	cJ := (1/p.tensors.dmin + 1/p.tensors.dmax) / 2
	cI := (amin + amax + p.aBoundary) / 2

	v0 := make([]complex128, n*n)
	for i := 0; i < p.dims; i++ {
		v0[i*n+i] = complex(cJ, 0)
	}
	v0[n*n-1] = complex(cI, 0)
	return v0
}
