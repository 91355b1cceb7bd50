package state

import (
	"time"
)

// Predicate decides at a sampling point whether the run should stop. It is
// evaluated after the residual of the current iteration has been appended.
type Predicate interface {
	Stop(st *State) bool
}

// Limiter is implemented by predicates with a hard iteration limit.
type Limiter interface {
	Limit() int
}

// FixedIterations stops after exactly K iterations.
type FixedIterations int

func (k FixedIterations) Stop(st *State) bool {
	return st.Iteration >= int(k)
}

func (k FixedIterations) Limit() int {
	return int(k)
}

// RelativeResidual stops once the relative residual drops below Tolerance,
// or after MaxIterations iterations.
type RelativeResidual struct {
	Tolerance     float64
	MaxIterations int
}

func (p RelativeResidual) Stop(st *State) bool {
	if r := st.Residual(); r >= 0 && r < p.Tolerance {
		return true
	}
	return p.MaxIterations > 0 && st.Iteration >= p.MaxIterations
}

func (p RelativeResidual) Limit() int {
	return p.MaxIterations
}

// Timeout stops once the run has lasted longer than the duration.
type Timeout time.Duration

func (d Timeout) Stop(st *State) bool {
	return time.Since(st.StartTime) >= time.Duration(d)
}

// AnyOf stops as soon as one of its predicates does.
type AnyOf []Predicate

func (ps AnyOf) Stop(st *State) bool {
	for _, p := range ps {
		if p.Stop(st) {
			return true
		}
	}
	return false
}

// Limit is the smallest limit of the wrapped predicates.
func (ps AnyOf) Limit() int {
	limit := 0
	for _, p := range ps {
		l, ok := p.(Limiter)
		if !ok || l.Limit() <= 0 {
			continue
		}
		if limit == 0 || l.Limit() < limit {
			limit = l.Limit()
		}
	}
	return limit
}
