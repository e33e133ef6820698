package eva

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// For h = k = 0 the upper-orthant probability of a standard bivariate normal
// has the closed form 1/4 + asin(r)/(2 pi).
func TestBvnUpperClosedFormAtOrigin(t *testing.T) {
	for _, r := range []float64{-0.95, -0.7, -0.3, 0, 0.2, 0.5, 0.8, 0.95, 0.99} {
		want := 0.25 + math.Asin(r)/(2*math.Pi)
		got := bvnUpper(0, 0, r)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("r=%v: got %v, want %v", r, got, want)
		}
	}
}

func TestBvnUpperIndependence(t *testing.T) {
	for _, h := range []float64{-1.5, -0.5, 0, 0.5, 1.282, 2.5} {
		want := phid(-h) * phid(-h)
		got := bvnUpper(h, h, 0)
		if math.Abs(got-want) > 1e-14 {
			t.Errorf("h=%v: got %v, want %v", h, got, want)
		}
	}
}

func TestBvnUpperComonotoneLimits(t *testing.T) {
	h := 1.2816 // roughly the 90% quantile
	// As r -> 1 the joint exceedance tends to the single-variable tail.
	if got, want := bvnUpper(h, h, 0.9999), phid(-h); math.Abs(got-want) > 1e-3 {
		t.Errorf("r->1: got %v, want about %v", got, want)
	}
	// As r -> -1 simultaneous exceedance of a positive level is impossible.
	if got := bvnUpper(h, h, -0.9999); got > 1e-6 {
		t.Errorf("r->-1: got %v, want about 0", got)
	}
}

func TestBvnUpperMonotoneInCorrelation(t *testing.T) {
	h := 1.0
	prev := -1.0
	for _, r := range []float64{-0.99, -0.9, -0.5, 0, 0.5, 0.9, 0.99} {
		p := bvnUpper(h, h, r)
		if p < prev {
			t.Fatalf("orthant probability decreased at r=%v: %v < %v", r, p, prev)
		}
		prev = p
	}
}

func TestOrthantMCMatchesBivariateQuadrature(t *testing.T) {
	for _, r := range []float64{0, 0.3, 0.7} {
		sigma := mat.NewSymDense(2, []float64{1, r, r, 1})
		exact := bvnUpper(1.2816, 1.2816, r)
		mc := orthantMC(sigma, 1.2816)
		if math.Abs(mc-exact) > 5e-3 {
			t.Errorf("r=%v: MC %v vs exact %v", r, mc, exact)
		}
	}
}

func TestOrthantMCDeterministic(t *testing.T) {
	sigma := mat.NewSymDense(3, []float64{
		1, 0.5, 0.3,
		0.5, 1, 0.4,
		0.3, 0.4, 1,
	})
	a := orthantMC(sigma, 1.0)
	b := orthantMC(sigma, 1.0)
	if a != b {
		t.Errorf("repeated evaluation differs: %v vs %v", a, b)
	}
	if a <= 0 || a >= 1 {
		t.Errorf("probability out of range: %v", a)
	}
}

func TestOrthantProbabilityTrivariateIndependence(t *testing.T) {
	sigma := mat.NewSymDense(3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	lower := 1.2816
	want := math.Pow(phid(-lower), 3)
	got := orthantProbability(sigma, lower)
	if math.Abs(got-want) > 5e-4 {
		t.Errorf("got %v, want %v", got, want)
	}
}
