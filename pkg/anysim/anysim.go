// Package anysim runs the split-Richardson iteration for (L+V)u = s. The
// equation specific parts are supplied as a medium (real domain), a
// propagator (transformed domain), a transform between the two and a
// Simulation that provides the initial field and the final unscaling.
package anysim

import (
	"errors"
	"fmt"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/state"
	"github.com/edp1096/anysim/pkg/transform"
)

type Medium interface {
	MixSource(u, s *array.Field, st *state.State) *array.Field
	MixField(u, t1 *array.Field, st *state.State) *array.Field
	MultiplyG(u *array.Field) *array.Field
	V(u *array.Field) *array.Field
}

type Propagator interface {
	Propagate(t *array.Field, st *state.State) *array.Field
	Forward(t *array.Field) (*array.Field, error)
}

// Simulation is implemented by every concrete equation.
type Simulation interface {
	// Start returns the initial field and a fresh state.
	Start() (*array.Field, *state.State, error)
	// Finalize undoes the internal scaling of u and post-processes it.
	Finalize(u *array.Field, st *state.State) (*array.Field, error)
}

// SourcePreparer is implemented by simulations whose source is given on a
// different grid than the iteration runs on (e.g. without padding).
type SourcePreparer interface {
	PrepareSource(s *array.Field) (*array.Field, error)
}

// AnySim is the equation independent engine. Concrete simulations embed it.
// Its operators are read-only after New, so Exec may run concurrently on
// different sources.
type AnySim struct {
	Medium     Medium
	Propagator Propagator
	Transform  transform.Transform
	Options    Options
	Factory    *array.Factory

	sim Simulation
}

func New(sim Simulation, med Medium, prop Propagator, tr transform.Transform, opts Options) (*AnySim, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sim == nil || med == nil || prop == nil || tr == nil {
		return nil, fmt.Errorf("%w: missing simulation, medium, propagator or transform", ErrConfig)
	}
	return &AnySim{
		Medium:     med,
		Propagator: prop,
		Transform:  tr,
		Options:    opts,
		Factory:    array.NewFactory(opts.Precision, opts.GPUEnabled, opts.Logger),
		sim:        sim,
	}, nil
}

// NewState returns a fresh state configured from the options.
func (a *AnySim) NewState() *state.State {
	return state.New(a.Options.StateConfig())
}

// Exec solves for source and returns the finalized field and the state of
// the run. source is not modified.
func (a *AnySim) Exec(source *array.Field) (*array.Field, *state.State, error) {
	var err error

	if p, ok := a.sim.(SourcePreparer); ok {
		source, err = p.PrepareSource(source)
		if err != nil {
			return nil, nil, fmt.Errorf("preparing source: %w", err)
		}
	}
	source = a.Factory.Convert(source)

	u, st, err := a.sim.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("starting simulation: %w", err)
	}
	if err := u.CheckLayout(source); err != nil {
		return nil, nil, fmt.Errorf("%w: source: %v", ErrShapeMismatch, err)
	}
	u = a.Factory.Convert(u)

	for st.Running {
		t := a.stage(a.Medium.MixSource(u, source, st))
		t = a.stage(a.Propagator.Propagate(a.stage(a.Transform.R2K(t, st)), st))
		t = a.stage(a.Transform.K2R(t, st))
		u = a.Transform.R2R(u, st)
		next := a.stage(a.Medium.MixField(u, t, st))

		// The update u_{k+1} - u_k serves as residual estimate; it is
		// proportional to the preconditioned residual.
		r := array.Sub(next, u)
		u = next
		st.Next(u, r)
	}
	st.Diagnostics["iterations"] = float64(st.Iterations())
	st.Diagnostics["residual"] = st.Residual()

	u, err = a.sim.Finalize(u, st)
	st.Finalize()
	if err != nil {
		return nil, st, fmt.Errorf("finalizing simulation: %w", err)
	}
	return u, st, nil
}

// stage rounds an intermediate result to the working precision.
func (a *AnySim) stage(f *array.Field) *array.Field {
	a.Factory.Round(f)
	return f
}

// Preconditioner returns (1-V)(L'+1)⁻¹·b.
func (a *AnySim) Preconditioner(b *array.Field) *array.Field {
	t := a.Propagator.Propagate(a.Transform.R2K(b, nil), nil)
	return a.Medium.MultiplyG(a.Transform.K2R(t, nil))
}

// Preconditioned returns (1-V)(L'+1)⁻¹(L'+V)·u, evaluated as
// (1-V)(u - (L'+1)⁻¹(1-V)u) so that L' itself is never needed.
func (a *AnySim) Preconditioned(u *array.Field) *array.Field {
	gu := a.Medium.MultiplyG(u)
	t := a.Transform.K2R(a.Propagator.Propagate(a.Transform.R2K(gu, nil), nil), nil)
	return a.Medium.MultiplyG(array.Sub(u, t))
}

// Operator returns (L'+V)·u. It requires Options.ForwardOperator.
func (a *AnySim) Operator(u *array.Field) (*array.Field, error) {
	if !a.Options.ForwardOperator {
		return nil, ErrForwardOperatorDisabled
	}
	lu, err := a.Propagator.Forward(a.Transform.R2K(u, nil))
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrForwardOperatorDisabled, err)
	}
	return array.Add(a.Transform.K2R(lu, nil), a.Medium.V(u)), nil
}
