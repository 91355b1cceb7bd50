package array

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/cmplxs"
)

// Field is a dense multi-component array over a Cartesian grid.
// Data is voxel-major: component c of voxel v is Data[v*Components+c],
// voxels are numbered row-major over Shape.
type Field struct {
	Shape      []int
	Components int
	Data       []complex128
}

func NewField(shape []int, components int) *Field {
	return &Field{
		Shape:      append([]int(nil), shape...),
		Components: components,
		Data:       make([]complex128, Voxels(shape)*components),
	}
}

// Voxels returns the number of grid points of shape.
func Voxels(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func (f *Field) Voxels() int {
	return Voxels(f.Shape)
}

func (f *Field) Clone() *Field {
	return &Field{
		Shape:      append([]int(nil), f.Shape...),
		Components: f.Components,
		Data:       append([]complex128(nil), f.Data...),
	}
}

// ZerosLike returns a zero field with the layout of f.
func (f *Field) ZerosLike() *Field {
	return NewField(f.Shape, f.Components)
}

func (f *Field) SameLayout(g *Field) bool {
	if f.Components != g.Components || len(f.Shape) != len(g.Shape) {
		return false
	}
	for i := range f.Shape {
		if f.Shape[i] != g.Shape[i] {
			return false
		}
	}
	return true
}

// CheckLayout returns an error if g does not have the layout of f.
func (f *Field) CheckLayout(g *Field) error {
	if !f.SameLayout(g) {
		return fmt.Errorf("field layout mismatch: %v x %d vs %v x %d", f.Shape, f.Components, g.Shape, g.Components)
	}
	return nil
}

func (f *Field) At(v, c int) complex128 {
	return f.Data[v*f.Components+c]
}

func (f *Field) Set(v, c int, value complex128) {
	f.Data[v*f.Components+c] = value
}

// Component copies component c into a new slice.
func (f *Field) Component(c int) []complex128 {
	n := f.Voxels()
	out := make([]complex128, n)
	for v := 0; v < n; v++ {
		out[v] = f.Data[v*f.Components+c]
	}
	return out
}

// SetComponent overwrites component c from values.
func (f *Field) SetComponent(c int, values []complex128) {
	for v, x := range values {
		f.Data[v*f.Components+c] = x
	}
}

// RealComponent returns the real part of component c.
func (f *Field) RealComponent(c int) []float64 {
	n := f.Voxels()
	out := make([]float64, n)
	for v := 0; v < n; v++ {
		out[v] = real(f.Data[v*f.Components+c])
	}
	return out
}

// Norm is the Euclidean norm over all entries.
func (f *Field) Norm() float64 {
	if len(f.Data) == 0 {
		return 0
	}
	return cmplxs.Norm(f.Data, 2)
}

// MaxImag is the largest absolute imaginary part, used to check real-valuedness.
func (f *Field) MaxImag() float64 {
	m := 0.0
	for _, x := range f.Data {
		m = math.Max(m, math.Abs(imag(x)))
	}
	return m
}

// Add returns a + b.
func Add(a, b *Field) *Field {
	out := a.Clone()
	cmplxs.Add(out.Data, b.Data)
	return out
}

// Sub returns a - b.
func Sub(a, b *Field) *Field {
	out := a.Clone()
	cmplxs.Sub(out.Data, b.Data)
	return out
}

// AddScaled returns a + alpha*b.
func AddScaled(a *Field, alpha complex128, b *Field) *Field {
	out := a.Clone()
	cmplxs.AddScaled(out.Data, alpha, b.Data)
	return out
}

// Scale returns alpha*a.
func Scale(alpha complex128, a *Field) *Field {
	out := a.Clone()
	cmplxs.Scale(alpha, out.Data)
	return out
}
