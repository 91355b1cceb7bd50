package anysim

import (
	"errors"
	"io"
	"log"
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/grid"
	"github.com/edp1096/anysim/pkg/matrix"
	"github.com/edp1096/anysim/pkg/medium"
	"github.com/edp1096/anysim/pkg/propagator"
	"github.com/edp1096/anysim/pkg/state"
	"github.com/edp1096/anysim/pkg/transform"
)

// laplace stamps |k|², the transformed -∇².
type laplace struct{}

func (laplace) Components() int { return 1 }

func (laplace) Stamp(k []float64, m matrix.Stamper) {
	sum := 0.0
	for _, ki := range k {
		sum += ki * ki
	}
	m.AddElement(0, 0, complex(sum, 0))
}

// screened solves (-∇² + a)u = s on a periodic 1-D grid.
type screened struct {
	*AnySim
	grid *grid.Grid
	med  *medium.Medium
}

func newScreened(t *testing.T, n int, opts Options) *screened {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}

	g, err := grid.New([]int{n}, []float64{1}, []bool{true}, []int{0})
	if err != nil {
		t.Fatal(err)
	}
	vraw := matrix.NewBlocks(g.Shape, 1)
	for v := range vraw.Data {
		vraw.Data[v] = complex(1.5+0.5*math.Sin(2*math.Pi*float64(v)/float64(n)), 0)
	}
	med, err := medium.New(vraw, []complex128{1.5}, opts.VMax)
	if err != nil {
		t.Fatal(err)
	}
	med.Alpha = opts.Alpha
	prop, err := propagator.Build(g, laplace{}, med, opts.ForwardOperator)
	if err != nil {
		t.Fatal(err)
	}

	sim := &screened{grid: g, med: med}
	sim.AnySim, err = New(sim, med, prop, transform.Fourier{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func (s *screened) Start() (*array.Field, *state.State, error) {
	return s.Factory.Zeros(s.grid.Shape, 1), s.NewState(), nil
}

func (s *screened) Finalize(u *array.Field, st *state.State) (*array.Field, error) {
	return matrix.MulVec(s.med.Tr(), u), nil
}

func pointSource(n, at int) *array.Field {
	s := array.NewField([]int{n}, 1)
	s.Data[at] = 1
	return s
}

// relResidual is ‖(L+V)u - s‖/‖s‖ evaluated through the scaled operator:
// (L'+V')(u/T) = T·s.
func relResidual(t *testing.T, sim *screened, u, s *array.Field) float64 {
	t.Helper()
	T := complex(sim.med.Scale(), 0)
	lhs, err := sim.Operator(array.Scale(1/T, u))
	if err != nil {
		t.Fatal(err)
	}
	rhs := array.Scale(T, s)
	return array.Sub(lhs, rhs).Norm() / rhs.Norm()
}

func TestExecConverges(t *testing.T) {
	sim := newScreened(t, 64, Options{
		ForwardOperator:     true,
		Termination:         state.RelativeResidual{Tolerance: 1e-10, MaxIterations: 5000},
		TerminationInterval: 1,
	})
	s := pointSource(64, 10)
	u, st, err := sim.Exec(s)
	if err != nil {
		t.Fatal(err)
	}

	if st.Running || !st.Finalized() {
		t.Errorf("state still running after Exec")
	}
	if st.Iterations() >= 5000 {
		t.Fatalf("no convergence in %d iterations", st.Iterations())
	}
	if len(st.Residuals) != st.Iterations() || len(st.ResidualIterations) != len(st.Residuals) {
		t.Errorf("%d residuals, %d tags for %d sampled iterations",
			len(st.Residuals), len(st.ResidualIterations), st.Iterations())
	}
	if first, last := st.Residuals[0], st.Residual(); !(last < first) {
		t.Errorf("residual did not decrease: %v -> %v", first, last)
	}
	if r := relResidual(t, sim, u, s); r > 1e-7 {
		t.Errorf("‖(L+V)u - s‖/‖s‖ = %v", r)
	}
	if s.Data[10] != 1 {
		t.Errorf("source modified by Exec")
	}
	if u.MaxImag() > 1e-10 {
		t.Errorf("real problem produced imaginary part %v", u.MaxImag())
	}
}

func TestExecFixedIterations(t *testing.T) {
	for _, k := range []int{1, 7, 16, 40} {
		sim := newScreened(t, 32, Options{Termination: state.FixedIterations(k)})
		_, st, err := sim.Exec(pointSource(32, 0))
		if err != nil {
			t.Fatal(err)
		}
		if st.Iterations() != k || st.Running {
			t.Errorf("K=%d: %d iterations, running=%v", k, st.Iterations(), st.Running)
		}
		if want := (k-1)/16 + 1 + min(1, (k-1)%16); len(st.Residuals) != want {
			t.Errorf("K=%d: %d residuals, want %d", k, len(st.Residuals), want)
		}
	}
}

func TestExecSourceMismatch(t *testing.T) {
	sim := newScreened(t, 32, Options{Termination: state.FixedIterations(1)})
	_, _, err := sim.Exec(pointSource(16, 0))
	if !errors.Is(err, ErrShapeMismatch) || !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestOperatorGuard(t *testing.T) {
	sim := newScreened(t, 16, Options{})
	_, err := sim.Operator(pointSource(16, 3))
	if !errors.Is(err, ErrForwardOperatorDisabled) || !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrForwardOperatorDisabled, got %v", err)
	}
}

func TestPreconditionedMatchesComposition(t *testing.T) {
	sim := newScreened(t, 24, Options{ForwardOperator: true})
	u := array.NewField([]int{24}, 1)
	for i := range u.Data {
		u.Data[i] = complex(math.Cos(float64(i)), 0.1*float64(i%5))
	}

	au, err := sim.Operator(u)
	if err != nil {
		t.Fatal(err)
	}
	want := sim.Preconditioner(au)
	got := sim.Preconditioned(u)
	if !cmplxs.EqualApprox(got.Data, want.Data, 1e-12) {
		t.Errorf("Preconditioned(u) differs from Preconditioner(Operator(u))")
	}
}

func TestExecConcurrent(t *testing.T) {
	sim := newScreened(t, 32, Options{Termination: state.FixedIterations(50)})
	sources := []*array.Field{pointSource(32, 0), pointSource(32, 5), pointSource(32, 17)}

	want := make([]*array.Field, len(sources))
	for i, s := range sources {
		u, _, err := sim.Exec(s)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = u
	}

	got := make([]*array.Field, len(sources))
	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _, _ = sim.Exec(s)
		}()
	}
	wg.Wait()

	for i := range sources {
		if got[i] == nil || !cmplxs.Equal(got[i].Data, want[i].Data) {
			t.Errorf("source %d: concurrent result differs from sequential", i)
		}
	}
}

func TestSinglePrecision(t *testing.T) {
	single := newScreened(t, 32, Options{Precision: array.Single, Termination: state.FixedIterations(30)})
	double := newScreened(t, 32, Options{Termination: state.FixedIterations(30)})

	us, _, err := single.Exec(pointSource(32, 4))
	if err != nil {
		t.Fatal(err)
	}
	ud, _, err := double.Exec(pointSource(32, 4))
	if err != nil {
		t.Fatal(err)
	}
	if d := array.Sub(us, ud).Norm() / ud.Norm(); d > 1e-5 {
		t.Errorf("single and double precision differ by %v", d)
	}
}

func TestOptionsValidate(t *testing.T) {
	var o Options
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	if o.Alpha == 0 || o.VMax == 0 || o.Termination == nil || o.Callback == nil || o.Logger == nil {
		t.Errorf("defaults not filled: %+v", o)
	}

	for _, o := range []Options{
		{Alpha: 1.5},
		{Alpha: -1},
		{VMax: 1},
		{TerminationInterval: -2},
		{CallbackInterval: -1},
		{Precision: array.Precision(7)},
		{Termination: state.FixedIterations(0)},
	} {
		if err := o.Validate(); !errors.Is(err, ErrInvalidOption) || !errors.Is(err, ErrConfig) {
			t.Errorf("%+v: expected ErrInvalidOption, got %v", o, err)
		}
	}
}
