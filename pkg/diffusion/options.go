package diffusion

import (
	"fmt"
	"strings"

	"github.com/edp1096/anysim/pkg/anysim"
	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/grid"
)

type PotentialType int

const (
	Scalar   PotentialType = iota // One diffusion coefficient per voxel
	Diagonal                      // One coefficient per axis per voxel
	Tensor                        // Full d×d tensor per voxel, row-major
)

func (t PotentialType) String() string {
	switch t {
	case Scalar:
		return "scalar"
	case Diagonal:
		return "diagonal"
	case Tensor:
		return "tensor"
	default:
		return fmt.Sprintf("PotentialType(%d)", int(t))
	}
}

func ParsePotentialType(s string) (PotentialType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scalar":
		return Scalar, nil
	case "diagonal", "diag":
		return Diagonal, nil
	case "tensor", "full":
		return Tensor, nil
	default:
		return Scalar, fmt.Errorf("%w: %q", anysim.ErrUnknownPotentialType, s)
	}
}

// perVoxel is the number of diffusion values stored per voxel.
func (t PotentialType) perVoxel(dims int) (int, error) {
	switch t {
	case Scalar:
		return 1, nil
	case Diagonal:
		return dims, nil
	case Tensor:
		return dims * dims, nil
	default:
		return 0, fmt.Errorf("%w: %v", anysim.ErrUnknownPotentialType, t)
	}
}

// Coefficient is a real coefficient field over the spatial ROI. An empty
// Shape means the medium is homogeneous and Data holds a single voxel.
type Coefficient struct {
	Shape []int
	Data  []float64
}

// Uniform returns a homogeneous coefficient.
func Uniform(values ...float64) Coefficient {
	return Coefficient{Data: append([]float64(nil), values...)}
}

func (c Coefficient) Homogeneous() bool {
	return len(c.Shape) == 0
}

// at returns the values of spatial ROI voxel v.
func (c Coefficient) at(v, per int) []float64 {
	if c.Homogeneous() {
		return c.Data[:per]
	}
	return c.Data[v*per : (v+1)*per]
}

func (c Coefficient) check(name string, roi []int, per int) error {
	voxels := 1
	if !c.Homogeneous() {
		if !sameShape(c.Shape, roi) {
			return fmt.Errorf("%w: %s has shape %v, grid has %v", anysim.ErrShapeMismatch, name, c.Shape, roi)
		}
		voxels = array.Voxels(roi)
	}
	if len(c.Data) != voxels*per {
		return fmt.Errorf("%w: %s has %d values, want %d", anysim.ErrShapeMismatch, name, len(c.Data), voxels*per)
	}
	return nil
}

// Options embeds the engine options and adds the geometry of the problem.
type Options struct {
	anysim.Options

	PotentialType PotentialType
	Shape         []int     // Spatial ROI shape, derived from the coefficients if nil
	PixelSize     []float64 // Per spatial axis, default 1
	Periodic      []bool    // Per spatial axis, default false
	Boundaries    []int     // Absorbing padding per spatial axis (pixels), default 0

	TimeSteps int     // Adds a periodic time axis of this length when > 0
	TimeStep  float64 // Sample spacing of the time axis, default 1
}

// Validate fills defaults, checks the coefficients against each other and
// returns the simulation grid.
func (o *Options) Validate(d, a Coefficient) (*grid.Grid, error) {
	if err := o.Options.Validate(); err != nil {
		return nil, err
	}

	if o.Shape == nil {
		switch {
		case !d.Homogeneous():
			o.Shape = d.Shape
		case !a.Homogeneous():
			o.Shape = a.Shape
		default:
			return nil, fmt.Errorf("%w: homogeneous medium needs an explicit shape", anysim.ErrShapeMismatch)
		}
	}
	o.Shape = append([]int(nil), o.Shape...)
	dims := len(o.Shape)

	per, err := o.PotentialType.perVoxel(dims)
	if err != nil {
		return nil, err
	}
	if err := d.check("diffusion coefficient", o.Shape, per); err != nil {
		return nil, err
	}
	if err := a.check("absorption coefficient", o.Shape, 1); err != nil {
		return nil, err
	}

	if o.PixelSize == nil {
		o.PixelSize = ones(dims)
	}
	if o.Periodic == nil {
		o.Periodic = make([]bool, dims)
	}
	if o.Boundaries == nil {
		o.Boundaries = make([]int, dims)
	}
	if len(o.PixelSize) != dims || len(o.Periodic) != dims || len(o.Boundaries) != dims {
		return nil, fmt.Errorf("%w: %d spatial axes but %d pixel sizes, %d periodic flags, %d boundaries",
			anysim.ErrShapeMismatch, dims, len(o.PixelSize), len(o.Periodic), len(o.Boundaries))
	}
	if o.TimeSteps < 0 {
		return nil, fmt.Errorf("%w: %d time steps", anysim.ErrInvalidOption, o.TimeSteps)
	}
	if o.TimeStep == 0 {
		o.TimeStep = 1
	}

	roi := append([]int(nil), o.Shape...)
	pixels := append([]float64(nil), o.PixelSize...)
	periodic := append([]bool(nil), o.Periodic...)
	boundaries := append([]int(nil), o.Boundaries...)
	if o.TimeSteps > 0 {
		roi = append(roi, o.TimeSteps)
		pixels = append(pixels, o.TimeStep)
		periodic = append(periodic, true)
		boundaries = append(boundaries, 0)
	}

	g, err := grid.New(roi, pixels, periodic, boundaries)
	if err != nil {
		return nil, anysim.Configf(err, "diffusion grid")
	}
	return g, nil
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
