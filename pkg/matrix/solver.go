package matrix

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/sparse"
)

// ErrSingular is returned when a block cannot be inverted.
var ErrSingular = errors.New("matrix: singular block")

// BlockSolver factors and inverts one complex n×n block at a time.
// It is reused across voxels: Clear, stamp, Invert.
type BlockSolver struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	rhsImag  []float64
	stamped  []complex128
	config   *sparse.Configuration
	residual float64
}

func NewBlockSolver(size int) (*BlockSolver, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid block size %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 true,
		SeparatedComplexVectors: true,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse block: %v", err)
	}

	s := &BlockSolver{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based indexing
		rhsImag:  make([]float64, size+1),
		stamped:  make([]complex128, size*size),
		config:   config,
		residual: 1e-8,
	}
	s.SetupElements()
	return s, nil
}

// SetupElements allocates the full dense pattern so every factorization
// sees the same structure.
func (s *BlockSolver) SetupElements() {
	for i := 1; i <= s.Size; i++ {
		for j := 1; j <= s.Size; j++ {
			s.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (s *BlockSolver) AddElement(i, j int, value complex128) {
	if i < 0 || j < 0 || i >= s.Size || j >= s.Size {
		panic(fmt.Sprintf("matrix: block index out of bounds (i=%d, j=%d, size=%d)", i, j, s.Size))
	}
	element := s.matrix.GetElement(int64(i+1), int64(j+1))
	element.Real += real(value)
	element.Imag += imag(value)
	s.stamped[i*s.Size+j] += value
}

func (s *BlockSolver) Clear() {
	s.matrix.Clear()
	for i := range s.stamped {
		s.stamped[i] = 0
	}
}

// Load clears the solver and stamps a row-major block.
func (s *BlockSolver) Load(block []complex128) {
	s.Clear()
	n := s.Size
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := block[i*n+j]; v != 0 {
				s.AddElement(i, j, v)
			}
		}
	}
}

// Invert factors the stamped block and writes its inverse, row-major, to dst.
func (s *BlockSolver) Invert(dst []complex128) error {
	if err := s.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: factorization failed: %v", ErrSingular, err)
	}

	n := s.Size
	for j := 1; j <= n; j++ {
		for i := range s.rhs {
			s.rhs[i] = 0
			s.rhsImag[i] = 0
		}
		s.rhs[j] = 1

		solution, solutionImag, err := s.matrix.SolveComplex(s.rhs, s.rhsImag)
		if err != nil {
			return fmt.Errorf("%w: solve failed: %v", ErrSingular, err)
		}
		for i := 1; i <= n; i++ {
			x := complex(solution[i], solutionImag[i])
			if cmplx.IsNaN(x) || cmplx.IsInf(x) {
				return fmt.Errorf("%w: non-finite inverse", ErrSingular)
			}
			dst[(i-1)*n+(j-1)] = x
		}
	}

	return s.check(dst)
}

// check verifies A·A⁻¹ ≈ 1, catching pivots the factorization let through.
func (s *BlockSolver) check(inv []complex128) error {
	n := s.Size
	amax, xmax := 0.0, 0.0
	for _, a := range s.stamped {
		amax = math.Max(amax, cmplx.Abs(a))
	}
	for _, x := range inv {
		xmax = math.Max(xmax, cmplx.Abs(x))
	}
	tol := s.residual * math.Max(1, amax*xmax)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum complex128
			for k := 0; k < n; k++ {
				sum += s.stamped[i*n+k] * inv[k*n+j]
			}
			if i == j {
				sum -= 1
			}
			if cmplx.Abs(sum) > tol {
				return fmt.Errorf("%w: inverse residual %g", ErrSingular, cmplx.Abs(sum))
			}
		}
	}
	return nil
}

func (s *BlockSolver) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
	}
}
