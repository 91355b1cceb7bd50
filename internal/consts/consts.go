package consts

const (
	VMAX            = 0.95 // Upper bound of the scaled potential norm, must stay below 1
	MIN_SPREAD      = 0.5  // Floor of the potential spread, relative to the background norm
	DECAY_FRACTION  = 0.1  // Decay length allowed per domain extent
	DEFAULT_ALPHA   = 0.75 // Richardson relaxation
	DEFAULT_TOL     = 1e-6 // Relative residual threshold
	DEFAULT_MAXITER = 10000
	DEFAULT_EVERY   = 16 // Sampling and callback cadence (iterations)

	MIN_PIXELS_PER_FEATURE = 2.0   // Coarser than this is under-resolved
	MAX_PIXELS_PER_FEATURE = 500.0 // Finer than this wastes memory
)
