package eva

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/metoceanlab/metocean/internal/series"
)

// GPDParams is the fitted peaks-over-threshold model for one marginal
// variable. A zero Shape means the Exponential special case was selected.
type GPDParams struct {
	Threshold float64
	Scale     float64
	Shape     float64
}

// Quantile returns the inverse CDF of the fitted exceedance model at
// probability p, in physical units (threshold acts as location).
func (g GPDParams) Quantile(p float64) float64 {
	if g.Shape == 0 {
		return g.Threshold - g.Scale*math.Log(1-p)
	}
	return g.Threshold + g.Scale/g.Shape*(math.Pow(1-p, -g.Shape)-1)
}

// Peak is one declustered threshold exceedance.
type Peak struct {
	Time  time.Time
	Value float64
}

// ExtractPeaks selects the exceedances of threshold in s and declusters
// them: exceedances closer in time than r belong to the same storm and only
// the cluster maximum is kept. r of zero disables declustering.
func ExtractPeaks(s *series.Series, threshold float64, r time.Duration) []Peak {
	var peaks []Peak
	var last time.Time
	inCluster := false

	for i, v := range s.Values {
		if math.IsNaN(v) || v <= threshold {
			continue
		}
		t := s.Times[i]
		if inCluster && t.Sub(last) < r {
			if v > peaks[len(peaks)-1].Value {
				peaks[len(peaks)-1] = Peak{Time: t, Value: v}
			}
		} else {
			peaks = append(peaks, Peak{Time: t, Value: v})
		}
		last = t
		inCluster = true
	}
	return peaks
}

// gpdLogLikelihood is the GPD log-likelihood of the excesses for the given
// scale and shape. Returns -Inf outside the distribution's support.
func gpdLogLikelihood(excesses []float64, scale, shape float64) float64 {
	if scale <= 0 {
		return math.Inf(-1)
	}
	n := float64(len(excesses))
	if math.Abs(shape) < 1e-9 {
		sum := 0.0
		for _, y := range excesses {
			sum += y
		}
		return -n*math.Log(scale) - sum/scale
	}
	ll := -n * math.Log(scale)
	for _, y := range excesses {
		z := 1 + shape*y/scale
		if z <= 0 {
			return math.Inf(-1)
		}
		ll -= (1 + 1/shape) * math.Log(z)
	}
	return ll
}

// fitGPDMLE maximizes the two-parameter GPD likelihood over (scale, shape)
// with Nelder-Mead, parameterizing scale on the log axis to keep it positive.
func fitGPDMLE(excesses []float64) (scale, shape, logLik float64, err error) {
	mean := 0.0
	for _, y := range excesses {
		mean += y
	}
	mean /= float64(len(excesses))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -gpdLogLikelihood(excesses, math.Exp(x[0]), x[1])
		},
	}
	x0 := []float64{math.Log(mean), 0.1}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("GPD likelihood maximization: %v", err)
	}
	return math.Exp(result.X[0]), result.X[1], -result.F, nil
}

// FitExcesses fits the exceedance model to the excess values (peak minus
// threshold), selecting between the full GPD and the Exponential special
// case (shape fixed at zero) by AIC.
func FitExcesses(excesses []float64) (scale, shape float64, err error) {
	if len(excesses) == 0 {
		return 0, 0, fmt.Errorf("GPD fit needs at least one excess value")
	}

	// Exponential: closed-form MLE, one parameter.
	expScale := 0.0
	for _, y := range excesses {
		expScale += y
	}
	expScale /= float64(len(excesses))
	expAIC := 2*1 - 2*gpdLogLikelihood(excesses, expScale, 0)

	gpdScale, gpdShape, gpdLL, err := fitGPDMLE(excesses)
	if err != nil {
		return 0, 0, err
	}
	gpdAIC := 2*2 - 2*gpdLL

	if expAIC <= gpdAIC {
		return expScale, 0, nil
	}
	return gpdScale, gpdShape, nil
}

// FitMarginal fits a peaks-over-threshold GPD model to one series: the
// threshold is the empirical q-quantile, peaks are declustered with window r,
// and the excess distribution is fitted by maximum likelihood with AIC model
// selection.
func FitMarginal(s *series.Series, q float64, r time.Duration) (GPDParams, error) {
	if q <= 0 || q >= 1 {
		return GPDParams{}, fmt.Errorf("marginal fit: quantile q must be in (0, 1), got %g", q)
	}
	if s.Len() == 0 {
		return GPDParams{}, fmt.Errorf("marginal fit: empty series")
	}

	threshold := empiricalQuantile(s.Values, q)
	peaks := ExtractPeaks(s, threshold, r)
	if len(peaks) == 0 {
		return GPDParams{}, fmt.Errorf("marginal fit: no exceedances above threshold %g", threshold)
	}

	excesses := make([]float64, len(peaks))
	for i, p := range peaks {
		excesses[i] = p.Value - threshold
	}
	scale, shape, err := FitExcesses(excesses)
	if err != nil {
		return GPDParams{}, err
	}
	return GPDParams{Threshold: threshold, Scale: scale, Shape: shape}, nil
}

// FitMarginals fits one GPD model per column of the table, in column order.
func FitMarginals(t *series.Table, q float64, r time.Duration) ([]GPDParams, error) {
	params := make([]GPDParams, len(t.Columns))
	for j, name := range t.Columns {
		s, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		p, err := FitMarginal(s, q, r)
		if err != nil {
			return nil, fmt.Errorf("column %q: %v", name, err)
		}
		params[j] = p
	}
	return params, nil
}
