// Package diffusion solves the steady-state (or time-periodic) diffusion
// equation -∇·(D∇I) + aI = s in first-order form, with one flux component
// per spatial axis followed by the intensity component.
package diffusion

import (
	"fmt"

	"github.com/edp1096/anysim/pkg/anysim"
	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/grid"
	"github.com/edp1096/anysim/pkg/matrix"
	"github.com/edp1096/anysim/pkg/medium"
	"github.com/edp1096/anysim/pkg/propagator"
	"github.com/edp1096/anysim/pkg/state"
	"github.com/edp1096/anysim/pkg/transform"
)

type DiffuseSim struct {
	*anysim.AnySim

	Grid   *grid.Grid
	Report *Report

	dims   int // spatial axes
	medium *medium.Medium
}

// New builds the medium and propagator of a diffusion problem with
// diffusion coefficient d and absorption a.
func New(d, a Coefficient, opts Options) (*DiffuseSim, error) {
	g, err := opts.Validate(d, a)
	if err != nil {
		return nil, err
	}
	dims := len(opts.Shape)

	t, err := invertDiffusion(d, opts.PotentialType, dims)
	if err != nil {
		return nil, err
	}
	amin, amax, err := absorptionRange(a)
	if err != nil {
		return nil, err
	}
	report := analyze(&opts, t, amin, amax)

	hasBoundary := false
	for _, b := range opts.Boundaries {
		hasBoundary = hasBoundary || b > 0
	}
	if amax == 0 && !hasBoundary {
		return nil, anysim.ErrNoAbsorption
	}

	pot := &potential{
		grid:      g,
		dims:      dims,
		roi:       opts.Shape,
		tensors:   t,
		a:         a,
		aBoundary: report.BoundaryAbsorption,
	}
	med, err := medium.New(pot.blocks(), pot.background(amin, amax), opts.VMax)
	if err != nil {
		return nil, anysim.Configf(err, "diffusion medium")
	}
	med.Alpha = opts.Alpha

	op := operator{dims: dims, timeAxis: opts.TimeSteps > 0}
	prop, err := propagator.Build(g, op, med, opts.ForwardOperator)
	if err != nil {
		return nil, anysim.Configf(err, "diffusion propagator")
	}

	sim := &DiffuseSim{
		Grid:   g,
		Report: report,
		dims:   dims,
		medium: med,
	}
	sim.AnySim, err = anysim.New(sim, med, prop, transform.Fourier{}, opts.Options)
	if err != nil {
		return nil, err
	}
	return sim, nil
}

// Components is the number of field components, spatial axes + 1.
func (s *DiffuseSim) Components() int {
	return s.dims + 1
}

// ScaledMedium returns the centred and scaled medium operator.
func (s *DiffuseSim) ScaledMedium() *medium.Medium {
	return s.medium
}

func (s *DiffuseSim) Start() (*array.Field, *state.State, error) {
	return s.Factory.Zeros(s.Grid.Shape, s.Components()), s.NewState(), nil
}

// PrepareSource pads a source given on the ROI to the simulation grid. A
// single-component source is taken as the intensity source.
func (s *DiffuseSim) PrepareSource(src *array.Field) (*array.Field, error) {
	if src.Components == 1 {
		full := array.NewField(src.Shape, s.Components())
		full.SetComponent(s.dims, src.Component(0))
		src = full
	}
	if src.Components != s.Components() {
		return nil, fmt.Errorf("%w: source has %d components, want 1 or %d",
			anysim.ErrShapeMismatch, src.Components, s.Components())
	}
	padded, err := s.Grid.Pad(src)
	if err != nil {
		return nil, anysim.Configf(anysim.ErrShapeMismatch, "source: %v", err)
	}
	return padded, nil
}

// Finalize removes the scaling (u = Tr·u') and crops the padding.
func (s *DiffuseSim) Finalize(u *array.Field, st *state.State) (*array.Field, error) {
	u = matrix.MulVec(s.medium.Tr(), u)
	return s.Grid.Crop(u)
}

// Intensity returns the real intensity of a finalized field.
func (s *DiffuseSim) Intensity(u *array.Field) []float64 {
	return u.RealComponent(s.dims)
}

// Flux returns the real flux along a spatial axis of a finalized field.
func (s *DiffuseSim) Flux(u *array.Field, axis int) ([]float64, error) {
	if axis < 0 || axis >= s.dims {
		return nil, fmt.Errorf("diffusion: no flux along axis %d of %d", axis, s.dims)
	}
	return u.RealComponent(axis), nil
}
