// Package grid keeps the geometry of a simulation domain: the region of
// interest, the absorbing padding around it and the coordinates of both the
// real and the transformed (Fourier) domain.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/anysim/pkg/array"
)

// ErrGeometry is returned for inconsistent grid definitions.
var ErrGeometry = errors.New("grid: invalid geometry")

type Grid struct {
	ROI        []int     // Region of interest, per axis
	Boundaries []int     // Padding width on each side, per axis
	Shape      []int     // Padded shape, ROI + 2*Boundaries
	PixelSize  []float64 // Sample spacing, per axis
	Periodic   []bool    // Periodic axes carry no padding
}

func New(roi []int, pixelSize []float64, periodic []bool, boundaries []int) (*Grid, error) {
	dims := len(roi)
	if dims == 0 {
		return nil, fmt.Errorf("%w: no axes", ErrGeometry)
	}
	if len(pixelSize) != dims || len(periodic) != dims || len(boundaries) != dims {
		return nil, fmt.Errorf("%w: %d axes but %d pixel sizes, %d periodic flags, %d boundaries",
			ErrGeometry, dims, len(pixelSize), len(periodic), len(boundaries))
	}

	g := &Grid{
		ROI:        append([]int(nil), roi...),
		Boundaries: append([]int(nil), boundaries...),
		Shape:      make([]int, dims),
		PixelSize:  append([]float64(nil), pixelSize...),
		Periodic:   append([]bool(nil), periodic...),
	}
	for ax := 0; ax < dims; ax++ {
		switch {
		case roi[ax] <= 0:
			return nil, fmt.Errorf("%w: axis %d has size %d", ErrGeometry, ax, roi[ax])
		case !(pixelSize[ax] > 0) || math.IsInf(pixelSize[ax], 0):
			return nil, fmt.Errorf("%w: axis %d has pixel size %g", ErrGeometry, ax, pixelSize[ax])
		case boundaries[ax] < 0:
			return nil, fmt.Errorf("%w: axis %d has negative boundary width", ErrGeometry, ax)
		case periodic[ax] && boundaries[ax] > 0:
			return nil, fmt.Errorf("%w: axis %d is periodic but has a boundary", ErrGeometry, ax)
		}
		g.Shape[ax] = roi[ax] + 2*boundaries[ax]
	}
	return g, nil
}

func (g *Grid) Dims() int {
	return len(g.Shape)
}

func (g *Grid) Voxels() int {
	return array.Voxels(g.Shape)
}

// Unravel writes the per-axis index of voxel v into idx.
func (g *Grid) Unravel(v int, idx []int) {
	for ax := g.Dims() - 1; ax >= 0; ax-- {
		idx[ax] = v % g.Shape[ax]
		v /= g.Shape[ax]
	}
}

func (g *Grid) Ravel(idx []int) int {
	v := 0
	for ax, i := range idx {
		v = v*g.Shape[ax] + i
	}
	return v
}

// Extent is the physical length of the padded axis.
func (g *Grid) Extent(axis int) float64 {
	return float64(g.Shape[axis]) * g.PixelSize[axis]
}

// Coordinates returns the real-space sample positions of axis; the first
// ROI sample sits at zero, padding samples are negative or beyond the ROI.
func (g *Grid) Coordinates(axis int) []float64 {
	n := g.Shape[axis]
	x := make([]float64, n)
	if n == 1 {
		return x
	}
	d := g.PixelSize[axis]
	start := -float64(g.Boundaries[axis]) * d
	floats.Span(x, start, start+float64(n-1)*d)
	return x
}

// KCoordinates returns the angular frequencies of axis in FFT order:
// 0, 1, ..., n/2-1, -n/2, ..., -1 times 2π/(n·d).
func (g *Grid) KCoordinates(axis int) []float64 {
	n := g.Shape[axis]
	scale := 2.0 * math.Pi / g.Extent(axis)
	k := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < (n+1)/2 {
			k[i] = float64(i) * scale
		} else {
			k[i] = float64(i-n) * scale
		}
	}
	return k
}

// Mirror returns the voxel at (-i) mod n along every axis, the conjugate
// partner of v in the transformed domain.
func (g *Grid) Mirror(v int) int {
	idx := make([]int, g.Dims())
	g.Unravel(v, idx)
	for ax, i := range idx {
		idx[ax] = (g.Shape[ax] - i) % g.Shape[ax]
	}
	return g.Ravel(idx)
}

// ROIIndex maps a padded index to the nearest ROI index (edge extension).
func (g *Grid) ROIIndex(idx, dst []int) {
	for ax, i := range idx {
		j := i - g.Boundaries[ax]
		dst[ax] = min(max(j, 0), g.ROI[ax]-1)
	}
}

// Depth is how far idx lies inside the padding, as a fraction in [0, 1]
// of the boundary width of the deepest axis. ROI voxels have depth 0.
func (g *Grid) Depth(idx []int) float64 {
	depth := 0.0
	for ax, i := range idx {
		b := g.Boundaries[ax]
		if b == 0 {
			continue
		}
		j := i - b
		var d int
		switch {
		case j < 0:
			d = -j
		case j >= g.ROI[ax]:
			d = j - g.ROI[ax] + 1
		}
		depth = math.Max(depth, float64(d)/float64(b))
	}
	return depth
}

// Pad embeds a field defined on the ROI into the padded grid, zero filled.
func (g *Grid) Pad(f *array.Field) (*array.Field, error) {
	if err := g.checkShape(f.Shape, g.ROI); err != nil {
		return nil, err
	}
	out := array.NewField(g.Shape, f.Components)
	g.copyROI(f, out, true)
	return out, nil
}

// Crop extracts the ROI of a field defined on the padded grid.
func (g *Grid) Crop(f *array.Field) (*array.Field, error) {
	if err := g.checkShape(f.Shape, g.Shape); err != nil {
		return nil, err
	}
	out := array.NewField(g.ROI, f.Components)
	g.copyROI(out, f, false)
	return out, nil
}

// copyROI copies between roi (ROI-shaped) and full (padded); toFull selects
// the direction.
func (g *Grid) copyROI(roi, full *array.Field, toFull bool) {
	c := roi.Components
	idx := make([]int, g.Dims())
	for r := 0; r < roi.Voxels(); r++ {
		rem := r
		for ax := g.Dims() - 1; ax >= 0; ax-- {
			idx[ax] = rem%g.ROI[ax] + g.Boundaries[ax]
			rem /= g.ROI[ax]
		}
		v := g.Ravel(idx)
		if toFull {
			copy(full.Data[v*c:(v+1)*c], roi.Data[r*c:(r+1)*c])
		} else {
			copy(roi.Data[r*c:(r+1)*c], full.Data[v*c:(v+1)*c])
		}
	}
}

func (g *Grid) checkShape(got, want []int) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: field shape %v, want %v", ErrGeometry, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%w: field shape %v, want %v", ErrGeometry, got, want)
		}
	}
	return nil
}
