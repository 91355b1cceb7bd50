package matrix

import (
	"fmt"

	"github.com/edp1096/anysim/pkg/array"
)

// Blocks is a batch of N×N complex matrices, one per voxel of Shape,
// each stored row-major. A uniform batch holds a single block that
// applies to every voxel; its Shape is nil.
type Blocks struct {
	Shape []int
	N     int
	Data  []complex128
}

func NewBlocks(shape []int, n int) *Blocks {
	return &Blocks{
		Shape: append([]int(nil), shape...),
		N:     n,
		Data:  make([]complex128, array.Voxels(shape)*n*n),
	}
}

// Uniform returns a broadcast batch holding a copy of block.
func Uniform(n int, block []complex128) *Blocks {
	if len(block) != n*n {
		panic(fmt.Sprintf("matrix: block length %d, want %d", len(block), n*n))
	}
	return &Blocks{N: n, Data: append([]complex128(nil), block...)}
}

// Diagonal returns a uniform batch with diag on its diagonal.
func Diagonal(diag []complex128) *Blocks {
	n := len(diag)
	block := make([]complex128, n*n)
	for i, d := range diag {
		block[i*n+i] = d
	}
	return &Blocks{N: n, Data: block}
}

// ScaledIdentity returns the uniform batch s·1.
func ScaledIdentity(n int, s complex128) *Blocks {
	diag := make([]complex128, n)
	for i := range diag {
		diag[i] = s
	}
	return Diagonal(diag)
}

func (b *Blocks) IsUniform() bool {
	return len(b.Data) == b.N*b.N
}

// Count is the number of stored blocks.
func (b *Blocks) Count() int {
	return len(b.Data) / (b.N * b.N)
}

// Block returns the block of voxel v, sharing storage with b.
func (b *Blocks) Block(v int) []complex128 {
	nn := b.N * b.N
	if b.IsUniform() {
		return b.Data[:nn]
	}
	return b.Data[v*nn : (v+1)*nn]
}

func (b *Blocks) Clone() *Blocks {
	return &Blocks{
		Shape: append([]int(nil), b.Shape...),
		N:     b.N,
		Data:  append([]complex128(nil), b.Data...),
	}
}

// Scale returns s·b.
func Scale(b *Blocks, s complex128) *Blocks {
	out := b.Clone()
	for i := range out.Data {
		out.Data[i] *= s
	}
	return out
}

// AddIdentity returns b + s·1.
func (b *Blocks) AddIdentity(s complex128) *Blocks {
	out := b.Clone()
	n := b.N
	for k := 0; k < out.Count(); k++ {
		block := out.Block(k)
		for i := 0; i < n; i++ {
			block[i*n+i] += s
		}
	}
	return out
}
