// Package deck reads line-oriented simulation decks:
//
//	* point source in a homogeneous slab
//	.grid 256
//	.boundary 32
//	.diffusion scalar 25
//	.absorption 0
//	.absorption 0.01
//	+ box 100:120        * a region with its own value
//	.source 1 0
//	.termination tol=1e-6 maxiter=10000
//	.end
//
// The first line is the title. '*' starts a comment, '+' continues the
// previous command.
package deck

import (
	"fmt"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/diffusion"
)

// finish validates the collected commands and builds the coefficients.
func (d *Deck) finish() error {
	var err error

	shape := d.Options.Shape
	if len(shape) == 0 {
		return fmt.Errorf("missing .grid")
	}
	dims := len(shape)

	if d.Options.PixelSize == nil {
		d.Options.PixelSize = make([]float64, dims)
		for ax := range d.Options.PixelSize {
			d.Options.PixelSize[ax] = 1
		}
	}
	if len(d.Options.PixelSize) != dims {
		return fmt.Errorf(".pixel: %d sizes for %d axes", len(d.Options.PixelSize), dims)
	}

	if len(d.periodicAxes) > 0 {
		d.Options.Periodic = make([]bool, dims)
		for _, ax := range d.periodicAxes {
			if ax < 0 || ax >= dims {
				return fmt.Errorf("periodic axis %d out of range", ax)
			}
			d.Options.Periodic[ax] = true
		}
	}
	d.Options.Termination = d.terminationPredicate()

	if len(d.diffusionRegions) == 0 {
		return fmt.Errorf("missing .diffusion")
	}
	per := 1
	switch d.Options.PotentialType {
	case diffusion.Diagonal:
		per = dims
	case diffusion.Tensor:
		per = dims * dims
	}
	d.Diffusion, err = materialize(".diffusion", d.diffusionRegions, shape, per)
	if err != nil {
		return err
	}

	if len(d.absorptionRegions) == 0 {
		d.Absorption = diffusion.Uniform(0)
	} else {
		d.Absorption, err = materialize(".absorption", d.absorptionRegions, shape, 1)
		if err != nil {
			return err
		}
	}

	roi := d.ROI()
	for _, s := range d.Sources {
		if len(s.Index) != len(roi) {
			return fmt.Errorf(".source at %v: need %d coordinates", s.Index, len(roi))
		}
		for ax, i := range s.Index {
			if i < 0 || i >= roi[ax] {
				return fmt.Errorf(".source at %v: outside the grid %v", s.Index, roi)
			}
		}
	}

	if len(d.Outputs) == 0 {
		d.Outputs = []string{"intensity"}
	}
	return nil
}

// materialize turns a list of regions into a coefficient. The first region
// must cover the whole grid; later regions overwrite boxes of it.
func materialize(name string, regions []region, shape []int, per int) (diffusion.Coefficient, error) {
	for _, r := range regions {
		if len(r.values) != per {
			return diffusion.Coefficient{}, fmt.Errorf("%s: %d values, want %d", name, len(r.values), per)
		}
		if r.lo != nil && len(r.lo) != len(shape) {
			return diffusion.Coefficient{}, fmt.Errorf("%s: box has %d bounds, grid has %d axes", name, len(r.lo), len(shape))
		}
		for ax := range r.lo {
			if r.hi[ax] > shape[ax] {
				return diffusion.Coefficient{}, fmt.Errorf("%s: box %d:%d exceeds axis %d", name, r.lo[ax], r.hi[ax], ax)
			}
		}
	}
	if regions[0].lo != nil {
		return diffusion.Coefficient{}, fmt.Errorf("%s: first value must cover the whole grid", name)
	}
	if len(regions) == 1 {
		return diffusion.Uniform(regions[0].values...), nil
	}

	voxels := array.Voxels(shape)
	c := diffusion.Coefficient{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, voxels*per),
	}
	idx := make([]int, len(shape))
	for v := 0; v < voxels; v++ {
		rem := v
		for ax := len(shape) - 1; ax >= 0; ax-- {
			idx[ax] = rem % shape[ax]
			rem /= shape[ax]
		}
		values := regions[0].values
		for _, r := range regions[1:] {
			if r.contains(idx) {
				values = r.values
			}
		}
		copy(c.Data[v*per:(v+1)*per], values)
	}
	return c, nil
}

func (r region) contains(idx []int) bool {
	for ax, i := range idx {
		if i < r.lo[ax] || i >= r.hi[ax] {
			return false
		}
	}
	return true
}

// ROI is the shape of the region of interest, time axis included.
func (d *Deck) ROI() []int {
	roi := append([]int(nil), d.Options.Shape...)
	if d.Options.TimeSteps > 0 {
		roi = append(roi, d.Options.TimeSteps)
	}
	return roi
}

// Source returns the intensity source described by the .source commands.
func (d *Deck) Source() *array.Field {
	roi := d.ROI()
	src := array.NewField(roi, 1)
	for _, s := range d.Sources {
		v := 0
		for ax, i := range s.Index {
			v = v*roi[ax] + i
		}
		src.Data[v] += complex(s.Value, 0)
	}
	return src
}
