// Package transform maps fields between the real domain, where the medium
// acts, and the transformed domain, where the propagator acts.
package transform

import (
	"github.com/exascience/pargo/parallel"
	"github.com/mjibson/go-dsp/fft"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/state"
)

// Transform is the domain map used by the engine. R2K and K2R must be exact
// inverses up to rounding.
type Transform interface {
	R2K(u *array.Field, st *state.State) *array.Field
	K2R(u *array.Field, st *state.State) *array.Field
	R2R(u *array.Field, st *state.State) *array.Field
}

// Fourier is the N-D discrete Fourier transform over every grid axis,
// applied independently to each field component.
type Fourier struct{}

func (Fourier) R2K(u *array.Field, st *state.State) *array.Field {
	return transformAxes(u, fft.FFT)
}

// K2R is normalised by 1/N per axis (fft.IFFT), so K2R(R2K(u)) == u.
func (Fourier) K2R(u *array.Field, st *state.State) *array.Field {
	return transformAxes(u, fft.IFFT)
}

// R2R is the identity; the Fourier transform carries no time-dependent state.
func (Fourier) R2R(u *array.Field, st *state.State) *array.Field {
	return u
}

func transformAxes(u *array.Field, f func([]complex128) []complex128) *array.Field {
	out := u.Clone()
	for ax, n := range u.Shape {
		if n > 1 {
			transformAxis(out, ax, f)
		}
	}
	return out
}

// transformAxis applies f in place to every line along axis ax.
func transformAxis(u *array.Field, ax int, f func([]complex128) []complex128) {
	n := u.Shape[ax]
	stride := 1
	for _, s := range u.Shape[ax+1:] {
		stride *= s
	}
	outer := u.Voxels() / (n * stride)
	comps := u.Components

	// A line is identified by (outer index, inner index, component).
	lines := outer * stride * comps
	parallel.Range(0, lines, 0, func(low, high int) {
		line := make([]complex128, n)
		for l := low; l < high; l++ {
			c := l % comps
			inner := (l / comps) % stride
			o := l / (comps * stride)
			base := o*n*stride + inner

			for i := 0; i < n; i++ {
				line[i] = u.Data[(base+i*stride)*comps+c]
			}
			res := f(line)
			for i := 0; i < n; i++ {
				u.Data[(base+i*stride)*comps+c] = res[i]
			}
		}
	})
}
