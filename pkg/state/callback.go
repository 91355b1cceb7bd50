package state

import (
	"log"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/util"
)

// Callback is invoked for progress reporting. It must not modify u or r.
type Callback interface {
	Call(u, r *array.Field, st *State)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(u, r *array.Field, st *State)

func (f CallbackFunc) Call(u, r *array.Field, st *State) {
	f(u, r, st)
}

// PrintIteration logs the iteration number and the latest sampled residual.
type PrintIteration struct {
	Logger *log.Logger
}

func (p PrintIteration) Call(u, r *array.Field, st *State) {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("iteration %6d  residual %s", st.Iteration, util.FormatResidual(st.Residual()))
}
