package diffusion

import (
	"github.com/edp1096/anysim/pkg/matrix"
)

// operator is the first-order diffusion operator in the Fourier domain.
// Flux components 0..dims-1 couple to the intensity component dims through
// i·k_j (divergence and gradient); a time axis adds i·ω to the intensity
// diagonal.
type operator struct {
	dims     int
	timeAxis bool
}

func (o operator) Components() int {
	return o.dims + 1
}

func (o operator) Stamp(k []float64, m matrix.Stamper) {
	for j := 0; j < o.dims; j++ {
		if k[j] == 0 {
			continue
		}
		m.AddElement(j, o.dims, complex(0, k[j]))
		m.AddElement(o.dims, j, complex(0, k[j]))
	}
	if o.timeAxis && k[o.dims] != 0 {
		m.AddElement(o.dims, o.dims, complex(0, k[o.dims]))
	}
}
