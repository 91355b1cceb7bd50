package diffusion

import (
	"fmt"
	"log"
	"math"

	"github.com/edp1096/anysim/internal/consts"
	"github.com/edp1096/anysim/pkg/util"
)

// Report summarizes the medium and the resolution checks of a simulation.
type Report struct {
	MuMin              []float64 // Slowest decay rate that must fit each spatial axis
	Mu                 float64   // Largest MuMin
	FeatureSize        float64   // Smallest length scale of the solution
	DiffusionMin       float64   // Eigenvalue range of D
	DiffusionMax       float64
	AbsorptionMin      float64 // Absorption range inside the ROI
	AbsorptionMax      float64
	BoundaryAbsorption float64 // Absorption at the outer edge of the padding
	Warnings           []string
}

func (r *Report) warn(logger *log.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	logger.Printf("Warning: %s", msg)
}

// analyze derives the decay rates, boundary absorption and feature size
// of the problem and warns about grids that resolve it badly. Warnings
// never change the numerics.
func analyze(opts *Options, t *tensors, amin, amax float64) *Report {
	dims := len(opts.Shape)
	r := &Report{
		MuMin:         make([]float64, dims),
		DiffusionMin:  t.dmin,
		DiffusionMax:  t.dmax,
		AbsorptionMin: amin,
		AbsorptionMax: amax,
	}

	periodicExtent := 0.0
	for ax := 0; ax < dims; ax++ {
		if opts.Periodic[ax] {
			periodicExtent = math.Max(periodicExtent, float64(opts.Shape[ax])*opts.PixelSize[ax])
		}
	}

	muBoundary := 0.0
	for ax := 0; ax < dims; ax++ {
		extent := float64(opts.Shape[ax]) * opts.PixelSize[ax]
		if opts.Periodic[ax] {
			extent = periodicExtent
		}
		r.MuMin[ax] = 1 / (consts.DECAY_FRACTION * extent)
		r.Mu = math.Max(r.Mu, r.MuMin[ax])
		if opts.Boundaries[ax] > 0 {
			muBoundary = math.Max(muBoundary, r.MuMin[ax])
		}
	}
	r.BoundaryAbsorption = t.dmax * muBoundary * muBoundary
	r.FeatureSize = 1 / math.Max(math.Sqrt(amax/t.dmin), r.Mu)

	logger := opts.Logger
	for ax := 0; ax < dims; ax++ {
		pixel := opts.PixelSize[ax]
		switch {
		case pixel > r.FeatureSize/consts.MIN_PIXELS_PER_FEATURE:
			r.warn(logger, "axis %d: pixel size %s is too coarse for features of %s, use at most %s",
				ax, util.FormatValueFactor(pixel, "m"), util.FormatValueFactor(r.FeatureSize, "m"),
				util.FormatValueFactor(r.FeatureSize/consts.MIN_PIXELS_PER_FEATURE, "m"))
		case pixel < r.FeatureSize/consts.MAX_PIXELS_PER_FEATURE:
			r.warn(logger, "axis %d: pixel size %s is unnecessarily fine for features of %s",
				ax, util.FormatValueFactor(pixel, "m"), util.FormatValueFactor(r.FeatureSize, "m"))
		}
		if !opts.Periodic[ax] && opts.Boundaries[ax] == 0 {
			r.warn(logger, "axis %d is not periodic but has no absorbing boundary, the field wraps around", ax)
		}
	}
	return r
}

// Analyze validates the medium and reports its length scales without
// building the operators.
func Analyze(d, a Coefficient, opts Options) (*Report, error) {
	if _, err := opts.Validate(d, a); err != nil {
		return nil, err
	}
	t, err := invertDiffusion(d, opts.PotentialType, len(opts.Shape))
	if err != nil {
		return nil, err
	}
	amin, amax, err := absorptionRange(a)
	if err != nil {
		return nil, err
	}
	return analyze(&opts, t, amin, amax), nil
}
