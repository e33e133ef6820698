package eva

import (
	"math"
	"testing"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/metoceanlab/metocean/internal/series"
)

func TestMatrixOrder(t *testing.T) {
	tests := []struct{ nparams, want int }{
		{1, 2},
		{3, 3},
		{6, 4},
	}
	for _, tt := range tests {
		if got := matrixOrder(tt.nparams); got != tt.want {
			t.Errorf("matrixOrder(%d) = %d, want %d", tt.nparams, got, tt.want)
		}
	}
}

func TestCorrelationFromParams(t *testing.T) {
	sigma := correlationFromParams([]float64{0.5, 0.3, 0.2}, 3)
	if sigma.At(0, 0) != 1 || sigma.At(1, 1) != 1 || sigma.At(2, 2) != 1 {
		t.Error("diagonal must be 1")
	}
	if sigma.At(0, 1) != 0.5 || sigma.At(0, 2) != 0.3 || sigma.At(1, 2) != 0.2 {
		t.Errorf("upper triangle wrong: %v", mat.Formatted(sigma))
	}
	if sigma.At(1, 0) != 0.5 {
		t.Error("matrix must be symmetric")
	}
}

func TestFitCensoredGaussianCopulaValidation(t *testing.T) {
	one := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	if _, err := FitCensoredGaussianCopula(one, 0.9); err == nil {
		t.Error("expected error for a single variable")
	}

	two := mat.NewDense(5, 2, nil)
	if _, err := FitCensoredGaussianCopula(two, 0.5); err == nil {
		t.Error("expected error for q = 0.5")
	}
	if _, err := FitCensoredGaussianCopula(two, 1.0); err == nil {
		t.Error("expected error for q = 1")
	}
}

func TestFitCensoredGaussianCopulaComonotone(t *testing.T) {
	n := 100
	data := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		v := float64(i + 1)
		data.Set(i, 0, v)
		data.Set(i, 1, v)
	}

	fit, err := FitCensoredGaussianCopula(data, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	// Both columns exceed their 0.9-quantile on the same 10 rows.
	if math.Abs(fit.TailDep-0.1) > 1e-12 {
		t.Errorf("tail dependence: got %v, want 0.1", fit.TailDep)
	}
	if len(fit.Rho) != 1 {
		t.Fatalf("expected 1 correlation parameter, got %d", len(fit.Rho))
	}
	if fit.Rho[0] < 0.8 {
		t.Errorf("comonotone input should fit a high correlation, got %v", fit.Rho[0])
	}

	sigma := fit.CorrelationMatrix()
	if sigma.SymmetricDim() != 2 || sigma.At(0, 1) != fit.Rho[0] {
		t.Errorf("unexpected correlation matrix: %v", mat.Formatted(sigma))
	}
}

func TestFitCensoredGaussianCopulaRecoversCorrelation(t *testing.T) {
	const (
		rho = 0.6
		n   = 4000
		q   = 0.8
	)
	sigma := mat.NewSymDense(2, []float64{1, rho, rho, 1})
	normal, ok := distmv.NewNormal([]float64{0, 0}, sigma, rand.NewSource(7))
	if !ok {
		t.Fatal("failed to build sampling distribution")
	}
	data := mat.NewDense(n, 2, nil)
	z := make([]float64, 2)
	for i := 0; i < n; i++ {
		normal.Rand(z)
		data.SetRow(i, z)
	}

	fit, err := FitCensoredGaussianCopula(data, q)
	if err != nil {
		t.Fatal(err)
	}
	if !fit.Success {
		t.Fatalf("fit did not converge: %s", fit.Status)
	}
	if math.Abs(fit.Rho[0]-rho) > 0.15 {
		t.Errorf("fitted correlation %v too far from %v (tail dep %v)",
			fit.Rho[0], rho, fit.TailDep)
	}
	if fit.Objective > 1e-6 {
		t.Errorf("objective should be near zero at the optimum, got %v", fit.Objective)
	}
	if fit.FuncEvals == 0 {
		t.Error("expected a positive evaluation count")
	}
}

// The fitted correlation must reproduce the empirical joint-tail fraction
// through the model orthant probability, and drive the simulator end to end.
func TestFitSimulateRoundTrip(t *testing.T) {
	const (
		rho = 0.6
		n   = 4000
		q   = 0.8
	)
	sigma := mat.NewSymDense(2, []float64{1, rho, rho, 1})
	data := normalSample(t, n, sigma, 17)

	fit, err := FitCensoredGaussianCopula(data, q)
	if err != nil {
		t.Fatal(err)
	}
	if !fit.Success {
		t.Fatalf("fit did not converge: %s", fit.Status)
	}

	thr := distuv.UnitNormal.Quantile(q)
	model := orthantProbability(fit.CorrelationMatrix(), thr)
	if math.Abs(model-fit.TailDep) > 1e-3 {
		t.Errorf("model joint-tail probability %v vs empirical %v", model, fit.TailDep)
	}

	// Marginal tail models from the same sample feed the simulator.
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	gpd := make([]GPDParams, 2)
	for j := 0; j < 2; j++ {
		s := &series.Series{
			Times:  make([]time.Time, n),
			Values: mat.Col(nil, j, data),
		}
		for i := range s.Times {
			s.Times[i] = base.Add(time.Duration(i) * time.Hour)
		}
		p, err := FitMarginal(s, q, 0)
		if err != nil {
			t.Fatal(err)
		}
		gpd[j] = p
	}

	sims, err := RunSimulation(fit.Rho, q, gpd, 500, rand.NewSource(9))
	if err != nil {
		t.Fatal(err)
	}
	r, c := sims.Dims()
	if r != 500 || c != 2 {
		t.Fatalf("simulation is %dx%d, want 500x2", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := sims.At(i, j); v <= gpd[j].Threshold {
				t.Fatalf("row %d col %d: %v not in the joint tail above %v", i, j, v, gpd[j].Threshold)
			}
		}
	}
}
