package deck

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/diffusion"
	"github.com/edp1096/anysim/pkg/state"
)

const slab = `* Two-layer slab
.grid 8 4
.pixel 0.5m 1m      * per axis
.boundary 2 0
.periodic 1
.diffusion diagonal 2 1
.diffusion diagonal 4 4
+ box 0:4 0:4
.absorption 0.1
.absorption 1 box 6:8 1:3
.source 1 0 0
.source 0.5 0 0
.termination tol=1e-8 every=4
+ maxiter=500
.callback every=10
.options alpha=0.5 precision=single forward
.print intensity flux0
.end
`

func TestParse(t *testing.T) {
	d, err := Parse(slab)
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Two-layer slab" {
		t.Errorf("Title = %q", d.Title)
	}

	o := d.Options
	if len(o.Shape) != 2 || o.Shape[0] != 8 || o.Shape[1] != 4 {
		t.Errorf("Shape = %v", o.Shape)
	}
	if math.Abs(o.PixelSize[0]-0.5e-3) > 1e-18 || math.Abs(o.PixelSize[1]-1e-3) > 1e-18 {
		t.Errorf("PixelSize = %v", o.PixelSize)
	}
	if o.Periodic[0] || !o.Periodic[1] {
		t.Errorf("Periodic = %v", o.Periodic)
	}
	if o.PotentialType != diffusion.Diagonal || o.Alpha != 0.5 || o.Precision != array.Single || !o.ForwardOperator {
		t.Errorf("options = %+v", o)
	}
	if o.TerminationInterval != 4 || o.CallbackInterval != 10 {
		t.Errorf("intervals = %d, %d", o.TerminationInterval, o.CallbackInterval)
	}
	if p, ok := o.Termination.(state.RelativeResidual); !ok || p.Tolerance != 1e-8 || p.MaxIterations != 500 {
		t.Errorf("Termination = %#v", o.Termination)
	}

	// Diffusion: (4,4) on rows 0..3, (2,1) elsewhere.
	if d.Diffusion.Homogeneous() || len(d.Diffusion.Data) != 8*4*2 {
		t.Fatalf("Diffusion = %+v", d.Diffusion)
	}
	if d.Diffusion.Data[0] != 4 || d.Diffusion.Data[(4*4)*2] != 2 || d.Diffusion.Data[(4*4)*2+1] != 1 {
		t.Errorf("Diffusion data = %v", d.Diffusion.Data)
	}
	// Absorption: 1 inside rows 6..7, columns 1..2.
	for _, tc := range []struct {
		x, y int
		want float64
	}{{0, 0, 0.1}, {6, 0, 0.1}, {6, 1, 1}, {7, 2, 1}, {7, 3, 0.1}} {
		if got := d.Absorption.Data[tc.x*4+tc.y]; got != tc.want {
			t.Errorf("a(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}

	src := d.Source()
	if src.Components != 1 || src.Data[0] != 1.5 || src.Norm() != 1.5 {
		t.Errorf("Source = %v", src.Data)
	}
	if len(d.Outputs) != 2 || d.Outputs[1] != "flux0" {
		t.Errorf("Outputs = %v", d.Outputs)
	}
}

func TestParseDefaults(t *testing.T) {
	d, err := Parse("title\n.grid 16\n.diffusion scalar 1\n.source 1 3 0\n.time 4 10m\n.termination fixed 20 timeout=1s\n")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Absorption.Homogeneous() || d.Absorption.Data[0] != 0 {
		t.Errorf("Absorption = %+v", d.Absorption)
	}
	if ps := d.Options.PixelSize; len(ps) != 1 || ps[0] != 1 {
		t.Errorf("PixelSize = %v, want [1]", ps)
	}
	if roi := d.ROI(); len(roi) != 2 || roi[1] != 4 {
		t.Errorf("ROI = %v", roi)
	}
	if len(d.Sources) != 1 || d.Source().Data[3*4] != 1 {
		t.Fatalf("Sources = %v", d.Sources)
	}
	p, ok := d.Options.Termination.(state.AnyOf)
	if !ok || len(p) != 2 || p.Limit() != 20 {
		t.Errorf("Termination = %#v", d.Options.Termination)
	}
	if p[1] != state.Timeout(time.Second) {
		t.Errorf("timeout = %v", p[1])
	}
	if len(d.Outputs) != 1 || d.Outputs[0] != "intensity" {
		t.Errorf("Outputs = %v", d.Outputs)
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		deck, want string
	}{
		{"t\n.diffusion scalar 1\n", "missing .grid"},
		{"t\n.grid 4\n", "missing .diffusion"},
		{"t\n.grid 4\n.bogus 1\n", "unsupported command"},
		{"t\n.grid 4\nR1 1 2 3\n", "expected a dot command"},
		{"t\n+ 4\n", "continuation without a command"},
		{"t\n.grid 4\n.diffusion scalar 1 2\n", "2 values, want 1"},
		{"t\n.grid 4\n.diffusion scalar 1\n.diffusion scalar 2 box 2:6\n", "exceeds axis"},
		{"t\n.grid 4\n.diffusion scalar 1 box 0:2\n", "cover the whole grid"},
		{"t\n.grid 4\n.diffusion isotropic 1\n", "unknown potential type"},
		{"t\n.grid 4\n.diffusion scalar 1\n.source 1 9\n", "outside the grid"},
		{"t\n.grid 4\n.diffusion scalar 1\n.periodic 2\n", "out of range"},
		{"t\n.grid 4\n.diffusion scalar 1\n.termination tol\n", "key=value"},
		{"t\n.grid 4\n.diffusion scalar 1\n.options speed=2\n", "unknown option"},
		{"t\n.grid 4\n.diffusion scalar 1\n.pixel 1x\n", "invalid value format"},
		{"t\n.grid 4 4\n.diffusion scalar 1\n.pixel 1m\n", "1 sizes for 2 axes"},
	} {
		_, err := Parse(tc.deck)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%q: expected error containing %q, got %v", tc.deck, tc.want, err)
		}
	}
}

func TestParseValue(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"25", 25},
		{"-1.5", -1.5},
		{"1e-6", 1e-6},
		{"2.5u", 2.5e-6},
		{"3meg", 3e6},
		{"10m", 10e-3},
		{".5k", 500},
	} {
		got, err := ParseValue(tc.in)
		if err != nil {
			t.Errorf("ParseValue(%q): %v", tc.in, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-12*math.Abs(tc.want) {
			t.Errorf("ParseValue(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"abc", "2M", "1x"} {
		if _, err := ParseValue(bad); err == nil {
			t.Errorf("ParseValue(%q): expected an error", bad)
		}
	}
}
