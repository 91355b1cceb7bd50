package anysim

import (
	"fmt"
	"log"

	"github.com/edp1096/anysim/internal/consts"
	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/state"
)

// Options configure a simulation. The zero value is usable: Validate fills
// in the defaults.
type Options struct {
	Precision       array.Precision
	GPUEnabled      bool // Accepted for compatibility, computation runs on the CPU
	ForwardOperator bool // Keep L' for Operator(), costs one extra block batch

	// Alpha relaxes the field update u + Alpha·G·(t1 - u). Alpha = 1 is the
	// plain split-Richardson step; the default consts.DEFAULT_ALPHA damps it.
	Alpha float64
	VMax  float64 // Bound of the scaled potential norm, default consts.VMAX

	Termination         state.Predicate // Default RelativeResidual{DEFAULT_TOL, DEFAULT_MAXITER}
	TerminationInterval int             // Default consts.DEFAULT_EVERY
	Callback            state.Callback  // Default PrintIteration on Logger
	CallbackInterval    int             // Default consts.DEFAULT_EVERY

	Logger *log.Logger // Default log.Default()
}

// Validate fills in defaults and rejects out-of-range values.
func (o *Options) Validate() error {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Alpha == 0 {
		o.Alpha = consts.DEFAULT_ALPHA
	}
	if o.VMax == 0 {
		o.VMax = consts.VMAX
	}
	if o.Termination == nil {
		o.Termination = state.RelativeResidual{Tolerance: consts.DEFAULT_TOL, MaxIterations: consts.DEFAULT_MAXITER}
	}
	if o.TerminationInterval == 0 {
		o.TerminationInterval = consts.DEFAULT_EVERY
	}
	if o.Callback == nil {
		o.Callback = state.PrintIteration{Logger: o.Logger}
	}
	if o.CallbackInterval == 0 {
		o.CallbackInterval = consts.DEFAULT_EVERY
	}

	switch {
	case o.Precision != array.Double && o.Precision != array.Single:
		return fmt.Errorf("%w: precision %d", ErrInvalidOption, o.Precision)
	case !(o.Alpha > 0 && o.Alpha <= 1):
		return fmt.Errorf("%w: alpha %g outside (0, 1]", ErrInvalidOption, o.Alpha)
	case !(o.VMax > 0 && o.VMax < 1):
		return fmt.Errorf("%w: vmax %g outside (0, 1)", ErrInvalidOption, o.VMax)
	case o.TerminationInterval < 0:
		return fmt.Errorf("%w: termination interval %d", ErrInvalidOption, o.TerminationInterval)
	case o.CallbackInterval < 0:
		return fmt.Errorf("%w: callback interval %d", ErrInvalidOption, o.CallbackInterval)
	}
	if k, ok := o.Termination.(state.FixedIterations); ok && k < 1 {
		return fmt.Errorf("%w: fixed iteration count %d", ErrInvalidOption, int(k))
	}
	return nil
}

// StateConfig is the state.Config of one run under these options.
func (o *Options) StateConfig() state.Config {
	return state.Config{
		Termination:         o.Termination,
		TerminationInterval: o.TerminationInterval,
		Callback:            o.Callback,
		CallbackInterval:    o.CallbackInterval,
	}
}
