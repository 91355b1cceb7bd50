package anysim

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of every construction-time error. All other
// sentinels of this package wrap it, so errors.Is(err, ErrConfig) reports
// whether a simulation was rejected during setup.
var ErrConfig = errors.New("anysim: configuration error")

var (
	ErrUnknownPotentialType    = fmt.Errorf("%w: unknown potential type", ErrConfig)
	ErrNotPositiveDefinite     = fmt.Errorf("%w: diffusion tensor is not positive definite", ErrConfig)
	ErrNegativeAbsorption      = fmt.Errorf("%w: negative absorption", ErrConfig)
	ErrNoAbsorption            = fmt.Errorf("%w: no absorption and no boundaries, steady state undefined", ErrConfig)
	ErrShapeMismatch           = fmt.Errorf("%w: shape mismatch", ErrConfig)
	ErrForwardOperatorDisabled = fmt.Errorf("%w: forward operator was not requested at construction", ErrConfig)
	ErrInvalidOption           = fmt.Errorf("%w: invalid option", ErrConfig)
)

// Configf wraps cause as a configuration error with context.
func Configf(cause error, format string, args ...any) error {
	if errors.Is(cause, ErrConfig) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)
	}
	return fmt.Errorf("%w: %s: %w", ErrConfig, fmt.Sprintf(format, args...), cause)
}
