// Package eva implements the multivariate extreme-value pipeline: marginal
// peaks-over-threshold GPD fits, a censored Gaussian (Nataf) copula fit,
// joint-tail simulation, and Huseby environmental contours.
package eva

import (
	"math"
	"sort"
)

// empiricalQuantile returns the q-quantile of x using linear interpolation
// between order statistics (rank h = (n-1)q), the convention of most array
// libraries. x is not modified.
func empiricalQuantile(x []float64, q float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)

	h := q * float64(len(s)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo < 0 {
		return s[0]
	}
	if hi >= len(s) {
		return s[len(s)-1]
	}
	return s[lo] + (h-float64(lo))*(s[hi]-s[lo])
}
