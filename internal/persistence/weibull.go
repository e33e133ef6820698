// Package persistence implements monthly weather-window accessibility
// statistics from significant wave height series, following the EQUIMAR
// persistence method: a three-parameter Weibull fit of the Hs exceedance
// distribution drives the mean persistence and access-probability estimates
// per operational threshold.
package persistence

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// WeibullFit holds the fitted exceedance distribution
// P(Hs > Ha) = exp(-((Ha - X0)/B)^K) together with the bin centers the fit
// was computed on.
type WeibullFit struct {
	Ha       []float64 // bin centers
	X0       float64
	B        float64
	K        float64
	P        []float64 // exceedance probability at each bin center
	Residual float64   // sum of squared residuals of the final regression
}

const weibullBinWidth = 0.1

// FitWeibull fits the three-parameter Weibull exceedance distribution to the
// values by iteratively shifting the location x0 and regressing
// log(log(1/P)) against log(Ha - x0), stopping when the regression residual
// stops shrinking. The stopping rule keeps the parameters of the previous
// iteration; existing validated results depend on that behavior.
func FitWeibull(values []float64) (*WeibullFit, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("weibull fit: need at least 2 values, got %d", len(values))
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("weibull fit: input contains NaN")
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	// Histogram with fixed-width bins spanning the data.
	var edges []float64
	for e := min; e < max+weibullBinWidth; e += weibullBinWidth {
		edges = append(edges, e)
	}
	nbins := len(edges) - 1
	if nbins < 2 {
		return nil, fmt.Errorf("weibull fit: value range %g is too narrow to bin", max-min)
	}
	bins := make([]float64, nbins)
	counts := make([]float64, nbins)
	for i := 0; i < nbins; i++ {
		bins[i] = 0.5 * (edges[i] + edges[i+1])
	}
	for _, v := range values {
		idx := int((v - min) / weibullBinWidth)
		if idx >= nbins {
			idx = nbins - 1
		}
		counts[idx]++
	}

	// Empirical exceedance probability per bin, floored to keep the double
	// logarithm finite.
	exceed := make([]float64, nbins)
	cum := 0.0
	for i, c := range counts {
		cum += c / float64(len(values))
		exceed[i] = 1 - cum
		if exceed[i] <= 0 {
			exceed[i] = 1e-9
		}
	}

	logY := make([]float64, nbins)
	for i, p := range exceed {
		logY[i] = math.Log(math.Log(1 / p))
	}

	var (
		x, b, k  float64
		residual = 1.0
		x0       = 0.0
	)
	const dx = 5e-3
	logX := make([]float64, nbins)
	for {
		prev := residual
		x = x0 - dx
		x0 = x0 + dx
		for i, ha := range bins {
			logX[i] = math.Log(ha - x0)
		}
		intercept, slope := stat.LinearRegression(logX, logY, nil, false)
		residual = 0
		for i := range logX {
			d := logY[i] - (intercept + slope*logX[i])
			residual += d * d
		}
		if residual <= prev {
			break
		}
		k = slope
		b = math.Exp(-intercept / slope)
	}
	if b == 0 {
		return nil, fmt.Errorf("weibull fit: regression residual never improved, no parameters fitted")
	}

	fit := &WeibullFit{Ha: bins, X0: x, B: b, K: k, Residual: residual}
	fit.P = make([]float64, nbins)
	for i, ha := range bins {
		fit.P[i] = math.Exp(-math.Pow((ha-fit.X0)/fit.B, fit.K))
	}
	return fit, nil
}
