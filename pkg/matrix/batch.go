package matrix

import (
	"fmt"
	"math"
	"sync"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/anysim/pkg/array"
)

// Assemble builds a per-voxel batch by calling stamp for every voxel of shape.
// stamp must only touch voxel v.
func Assemble(shape []int, n int, stamp func(v int, m Stamper)) *Blocks {
	out := NewBlocks(shape, n)
	parallel.Range(0, out.Count(), 0, func(low, high int) {
		for v := low; v < high; v++ {
			stamp(v, denseStamper{n: n, data: out.Block(v)})
		}
	})
	return out
}

// Invert returns the per-voxel inverse of b. Each worker owns one sparse
// block solver; a singular block aborts with the index of its voxel.
func Invert(b *Blocks) (*Blocks, error) {
	out := b.Clone()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	parallel.Range(0, b.Count(), 0, func(low, high int) {
		solver, err := NewBlockSolver(b.N)
		if err != nil {
			fail(err)
			return
		}
		defer solver.Destroy()

		for v := low; v < high; v++ {
			solver.Load(b.Block(v))
			if err := solver.Invert(out.Block(v)); err != nil {
				fail(fmt.Errorf("voxel %d: %w", v, err))
				return
			}
		}
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// MulVec returns y with y_v = B_v·x_v for every voxel.
func MulVec(b *Blocks, x *array.Field) *array.Field {
	if b.N != x.Components {
		panic(fmt.Sprintf("matrix: block size %d, field has %d components", b.N, x.Components))
	}
	voxels := x.Voxels()
	if !b.IsUniform() && b.Count() != voxels {
		panic(fmt.Sprintf("matrix: %d blocks for %d voxels", b.Count(), voxels))
	}

	y := x.ZerosLike()
	n := b.N
	parallel.Range(0, voxels, 0, func(low, high int) {
		for v := low; v < high; v++ {
			block := b.Block(v)
			src := x.Data[v*n : (v+1)*n]
			dst := y.Data[v*n : (v+1)*n]
			for i := 0; i < n; i++ {
				var sum complex128
				for j := 0; j < n; j++ {
					sum += block[i*n+j] * src[j]
				}
				dst[i] = sum
			}
		}
	})
	return y
}

// Mul returns the per-voxel product a·b. The result is uniform only if
// both operands are.
func Mul(a, b *Blocks) *Blocks {
	if a.N != b.N {
		panic("matrix: block size mismatch")
	}
	var out *Blocks
	switch {
	case a.IsUniform() && b.IsUniform():
		out = &Blocks{N: a.N, Data: make([]complex128, a.N*a.N)}
	case a.IsUniform():
		out = NewBlocks(b.Shape, b.N)
	default:
		out = NewBlocks(a.Shape, a.N)
	}

	n := a.N
	parallel.Range(0, out.Count(), 0, func(low, high int) {
		for v := low; v < high; v++ {
			x, y, z := a.Block(v), b.Block(v), out.Block(v)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					var sum complex128
					for k := 0; k < n; k++ {
						sum += x[i*n+k] * y[k*n+j]
					}
					z[i*n+j] = sum
				}
			}
		}
	})
	return out
}

// Norm2 is the spectral norm of a row-major complex n×n block. It is
// computed from the real 2n×2n embedding [Re −Im; Im Re], whose singular
// values are those of the block, each repeated twice.
func Norm2(block []complex128, n int) float64 {
	m := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z := block[i*n+j]
			m.Set(i, j, real(z))
			m.Set(i, j+n, -imag(z))
			m.Set(i+n, j, imag(z))
			m.Set(i+n, j+n, real(z))
		}
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return math.Inf(1)
	}
	return svd.Values(nil)[0]
}

// MaxNorm is the largest per-voxel spectral norm of b.
func MaxNorm(b *Blocks) float64 {
	return parallel.RangeReduceFloat64(
		0, b.Count(), 0,
		func(low, high int) (result float64) {
			for v := low; v < high; v++ {
				result = math.Max(result, Norm2(b.Block(v), b.N))
			}
			return
		},
		math.Max,
	)
}
