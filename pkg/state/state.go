// Package state tracks the convergence of one run of the fixed-point
// iteration: iteration count, sampled residual history, timing and the
// termination and progress hooks.
package state

import (
	"time"

	"github.com/edp1096/anysim/internal/consts"
	"github.com/edp1096/anysim/pkg/array"
)

// Config selects the termination predicate and progress callback of a run
// and how often each is consulted. Zero intervals fall back to
// consts.DEFAULT_EVERY and 1 respectively.
type Config struct {
	Termination         Predicate
	TerminationInterval int
	Callback            Callback
	CallbackInterval    int
}

// State is owned by exactly one Exec call and must not be shared.
type State struct {
	Iteration          int
	Running            bool
	Residuals          []float64 // ‖r‖/NormB at each sampled iteration
	ResidualIterations []int     // Iteration of each Residuals entry
	NormB              float64
	StartTime          time.Time
	EndTime            time.Time
	RunTime            time.Duration

	// Diagnostics is free-form per-run side channel data written by
	// operators and callbacks (e.g. the final update norm).
	Diagnostics map[string]float64

	termination         Predicate
	terminationInterval int
	callback            Callback
	callbackInterval    int

	sampled   bool
	finalized bool
}

func New(cfg Config) *State {
	st := &State{
		Iteration:           1,
		Running:             true,
		StartTime:           time.Now(),
		Diagnostics:         make(map[string]float64),
		termination:         cfg.Termination,
		terminationInterval: cfg.TerminationInterval,
		callback:            cfg.Callback,
		callbackInterval:    cfg.CallbackInterval,
	}
	if st.termination == nil {
		st.termination = RelativeResidual{Tolerance: consts.DEFAULT_TOL, MaxIterations: consts.DEFAULT_MAXITER}
	}
	if st.terminationInterval <= 0 {
		st.terminationInterval = consts.DEFAULT_EVERY
	}
	if st.callbackInterval <= 0 {
		st.callbackInterval = 1
	}
	return st
}

// Next records the outcome of one iteration. u is the current field and r
// the residual estimate of this iteration.
func (st *State) Next(u, r *array.Field) {
	it := st.Iteration

	if st.sampling(it) {
		norm := r.Norm()
		if !st.sampled {
			st.NormB = norm
			if st.NormB == 0 {
				st.NormB = 1
			}
			st.sampled = true
		}
		st.Residuals = append(st.Residuals, norm/st.NormB)
		st.ResidualIterations = append(st.ResidualIterations, it)

		if st.termination.Stop(st) {
			st.Running = false
		}
	}

	if st.callback != nil && (it-1)%st.callbackInterval == 0 {
		st.callback.Call(u, r, st)
	}

	st.Iteration++
}

// sampling reports whether iteration it is a sampling point. Besides the
// regular cadence, the predicate's own iteration limit is always sampled so
// that a limit of K stops after exactly K iterations.
func (st *State) sampling(it int) bool {
	if (it-1)%st.terminationInterval == 0 {
		return true
	}
	if l, ok := st.termination.(Limiter); ok {
		if limit := l.Limit(); limit > 0 && it >= limit {
			return true
		}
	}
	return false
}

// Finalize stops the run and records its end time. Only the first call has
// an effect.
func (st *State) Finalize() {
	if st.finalized {
		return
	}
	st.finalized = true
	st.Running = false
	st.EndTime = time.Now()
	st.RunTime = st.EndTime.Sub(st.StartTime)
}

func (st *State) Finalized() bool {
	return st.finalized
}

// Iterations is the number of completed iterations.
func (st *State) Iterations() int {
	return st.Iteration - 1
}

// Residual returns the most recent sampled relative residual, or -1 if
// nothing has been sampled yet.
func (st *State) Residual() float64 {
	if len(st.Residuals) == 0 {
		return -1
	}
	return st.Residuals[len(st.Residuals)-1]
}
