package eva

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// RunSimulation draws joint-tail extreme samples from a fitted Nataf model:
// correlated standard-normal batches are generated, rows where every
// coordinate exceeds the normal quantile of q are retained, and retained
// coordinates are mapped through the normal CDF and the inverse GPD CDF of
// the matching marginal into physical units. Batches accumulate until n rows
// are collected; exactly the first n are returned.
//
// The acceptance-rejection loop has no bound: a configuration with a very
// low joint-tail acceptance probability (q close to 1, weak correlation)
// makes this loop long, not wrong. Callers needing cancellation must wrap
// the call externally.
func RunSimulation(rho []float64, q float64, gpd []GPDParams, n int, src rand.Source) (*mat.Dense, error) {
	nvar := len(gpd)
	if nvar < 2 {
		return nil, fmt.Errorf("simulation: need at least 2 marginal models, got %d", nvar)
	}
	if q <= 0 || q >= 1 {
		return nil, fmt.Errorf("simulation: quantile q must be in (0, 1), got %g", q)
	}
	if n <= 0 {
		return nil, fmt.Errorf("simulation: sample count must be positive, got %d", n)
	}
	if want := nvar * (nvar - 1) / 2; len(rho) != want && !(len(rho) == 1 && nvar == 2) {
		return nil, fmt.Errorf("simulation: got %d correlation parameters, want %d for %d variables", len(rho), want, nvar)
	}

	sigma := correlationFromParams(rho, nvar)
	normal, ok := distmv.NewNormal(make([]float64, nvar), sigma, src)
	if !ok {
		return nil, fmt.Errorf("simulation: correlation matrix is not positive definite")
	}
	thr := distuv.UnitNormal.Quantile(q)

	rows := make([][]float64, 0, n)
	z := make([]float64, nvar)
	for len(rows) < n {
		for batch := 0; batch < n; batch++ {
			normal.Rand(z)
			accept := true
			for _, v := range z {
				if v <= thr {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			row := make([]float64, nvar)
			for j, v := range z {
				// The fitted quantile acts as a location offset on the
				// normal coordinate before the probability transform.
				row[j] = gpd[j].Quantile(distuv.UnitNormal.CDF(v - q))
			}
			rows = append(rows, row)
		}
	}

	out := mat.NewDense(n, nvar, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, rows[i])
	}
	return out, nil
}
