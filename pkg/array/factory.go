package array

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

type Precision int

const (
	Double Precision = iota
	Single
)

func (p Precision) String() string {
	switch p {
	case Single:
		return "single"
	default:
		return "double"
	}
}

func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "double":
		return Double, nil
	case "single":
		return Single, nil
	default:
		return Double, fmt.Errorf("unknown precision: %s", s)
	}
}

// Factory produces fields honoring the numeric width and device options.
type Factory struct {
	Precision  Precision
	GPUEnabled bool
	Logger     *log.Logger

	gpuOnce sync.Once
}

func NewFactory(precision Precision, gpu bool, logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{Precision: precision, GPUEnabled: gpu, Logger: logger}
}

func (f *Factory) device() {
	if !f.GPUEnabled {
		return
	}
	f.gpuOnce.Do(func() {
		f.Logger.Printf("Warning: GPU offload requested but no GPU backend is available, running on CPU")
	})
}

// Zeros returns a zero-filled field.
func (f *Factory) Zeros(shape []int, components int) *Field {
	f.device()
	return NewField(shape, components)
}

// Convert returns a copy of src rounded to the factory precision.
func (f *Factory) Convert(src *Field) *Field {
	f.device()
	out := src.Clone()
	f.Round(out)
	return out
}

// Round truncates dst in place to the factory precision.
func (f *Factory) Round(dst *Field) {
	if f.Precision != Single {
		return
	}
	for i, x := range dst.Data {
		dst.Data[i] = complex128(complex64(x))
	}
}
