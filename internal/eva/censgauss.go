package eva

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CopulaFit is the result of the censored Gaussian copula fit. Success must
// be checked before trusting Rho: a non-converged fit is reported here, not
// as an error, since the partial result can still be informative.
type CopulaFit struct {
	// Rho holds the fitted off-diagonal correlation entries in row-major
	// upper-triangle order; a single entry in the bivariate case.
	Rho []float64
	// TailDep is the empirical joint-tail exceedance fraction the model was
	// matched against.
	TailDep   float64
	Objective float64
	Success   bool
	Status    string
	FuncEvals int
}

// CorrelationMatrix expands the fitted parameters into the full symmetric
// correlation matrix.
func (c *CopulaFit) CorrelationMatrix() *mat.SymDense {
	m := matrixOrder(len(c.Rho))
	return correlationFromParams(c.Rho, m)
}

// matrixOrder recovers the matrix dimension from the number of free
// off-diagonal parameters (m*(m-1)/2, with the scalar case meaning 2).
func matrixOrder(nparams int) int {
	if nparams == 1 {
		return 2
	}
	m := int((1 + math.Sqrt(1+8*float64(nparams))) / 2)
	return m
}

// correlationFromParams builds an m x m correlation matrix with unit diagonal
// and the given upper-triangle entries mirrored below.
func correlationFromParams(rho []float64, m int) *mat.SymDense {
	sigma := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		sigma.SetSym(i, i, 1)
	}
	n := 0
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			sigma.SetSym(i, j, rho[n])
			n++
		}
	}
	return sigma
}

// FitCensoredGaussianCopula fits the correlation structure of a standard
// multivariate normal so that its upper-orthant exceedance probability above
// the normal q-quantile matches the empirical fraction of rows of data that
// jointly exceed their per-column q-quantiles. The squared mismatch is
// minimized with the correlation entries bounded to [0, 1], starting from
// the empirical Pearson correlation.
func FitCensoredGaussianCopula(data *mat.Dense, q float64) (*CopulaFit, error) {
	n, m := data.Dims()
	if m < 2 {
		return nil, fmt.Errorf("copula fit: need at least 2 variables, got %d", m)
	}
	if q <= 0.5 || q >= 1 {
		return nil, fmt.Errorf("copula fit: quantile q must be in (0.5, 1), got %g", q)
	}
	if n == 0 {
		return nil, fmt.Errorf("copula fit: empty sample")
	}

	// Per-column quantiles and the joint-tail exceedance fraction.
	quantiles := make([]float64, m)
	for j := 0; j < m; j++ {
		quantiles[j] = empiricalQuantile(mat.Col(nil, j, data), q)
	}
	exceed := 0
	for i := 0; i < n; i++ {
		all := true
		for j := 0; j < m; j++ {
			if data.At(i, j) <= quantiles[j] {
				all = false
				break
			}
		}
		if all {
			exceed++
		}
	}
	tailDep := float64(exceed) / float64(n)
	thNorm := distuv.UnitNormal.Quantile(q)

	nparams := m * (m - 1) / 2
	fitness := func(rho []float64) float64 {
		for _, r := range rho {
			if r < 0 || r > 1 {
				return math.Inf(1)
			}
		}
		sigma := correlationFromParams(rho, m)
		diff := tailDep - orthantProbability(sigma, thNorm)
		return diff * diff
	}

	// Start from the empirical Pearson correlation, clamped into the
	// feasible box so the initial simplex stays finite.
	corr := mat.NewSymDense(m, nil)
	stat.CorrelationMatrix(corr, data, nil)
	x0 := make([]float64, 0, nparams)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			x0 = append(x0, math.Min(0.99, math.Max(0.01, corr.At(i, j))))
		}
	}

	fit := &CopulaFit{TailDep: tailDep}
	result, err := optimize.Minimize(optimize.Problem{Func: fitness}, x0, nil, &optimize.NelderMead{})
	if err != nil {
		// Non-convergence is reported through the Success flag, not as an
		// error: the best point found may still be informative.
		fit.Rho = x0
		fit.Status = err.Error()
		if result != nil {
			fit.Rho = result.X
			fit.Objective = result.F
			fit.FuncEvals = result.Stats.FuncEvaluations
		}
		return fit, nil
	}
	fit.Rho = result.X
	fit.Objective = result.F
	fit.Success = true
	fit.Status = result.Status.String()
	fit.FuncEvals = result.Stats.FuncEvaluations
	return fit, nil
}
