package persistence

import (
	"fmt"
	"math"
	"time"

	"github.com/metoceanlab/metocean/internal/series"
)

// Result is the monthly weather-window statistics for one calendar month
// across all years of the series. Matrix rows index the access thresholds,
// columns the window durations 1..744 hours.
type Result struct {
	Fit        *WeibullFit
	Thresholds []float64
	// Tau is the mean persistence (hours) of sea states below each Ha bin.
	Tau []float64
	// PT is the probability of a weather window of the given duration below
	// each access threshold.
	PT [][]float64
	// NumberEvents is the expected number of such windows per month.
	NumberEvents [][]float64
	// AccessHours and WaitingHours are the expected accessible and waiting
	// durations per month, in hours.
	AccessHours  [][]float64
	WaitingHours [][]float64
}

// nbHoursByYear is the window-duration axis length: one month of hourly
// durations.
const nbHoursByYear = 744

// defaultThresholds spans 1 m to 3 m of significant wave height.
func defaultThresholds() []float64 {
	return []float64{1, 1.5, 2, 2.5, 3}
}

// ComputeWeatherWindows estimates monthly accessibility statistics for the
// given calendar month from an hourly Hs series, per the EQUIMAR persistence
// method (NMI variant).
func ComputeWeatherWindows(hs *series.Series, month time.Month, thresholds []float64) (*Result, error) {
	if len(thresholds) == 0 {
		thresholds = defaultThresholds()
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("weather windows: invalid month %d", month)
	}

	years := map[int]bool{}
	var monthVals []float64
	for i, t := range hs.Times {
		years[t.Year()] = true
		if t.Month() == month {
			monthVals = append(monthVals, hs.Values[i])
		}
	}
	if len(monthVals) == 0 {
		return nil, fmt.Errorf("weather windows: series has no records in %s", month)
	}
	nbYears := len(years)
	duration := float64(len(monthVals)) / float64(nbYears)

	fit, err := FitWeibull(monthVals)
	if err != nil {
		return nil, err
	}

	hMean := fit.B*math.Gamma(1+1/fit.K) + fit.X0
	gamma := fit.K + 1.8*fit.X0/(hMean-fit.X0)
	beta := 0.6 * math.Pow(gamma, 0.287)
	a := 35 / math.Sqrt(gamma)

	tau := make([]float64, len(fit.Ha))
	for i, p := range fit.P {
		tau[i] = a * (1 - p) / (p * math.Pow(-math.Log(p), beta))
	}

	res := &Result{
		Fit:          fit,
		Thresholds:   append([]float64(nil), thresholds...),
		Tau:          tau,
		PT:           make([][]float64, len(thresholds)),
		NumberEvents: make([][]float64, len(thresholds)),
		AccessHours:  make([][]float64, len(thresholds)),
		WaitingHours: make([][]float64, len(thresholds)),
	}

	for ti, thr := range thresholds {
		// Persistence at the bin closest to the threshold.
		ibin := 0
		best := math.Inf(1)
		for i, ha := range fit.Ha {
			if d := math.Abs(ha - thr); d < best {
				best = d
				ibin = i
			}
		}
		tt := tau[ibin]

		alpha := 0.267 * gamma * math.Pow(thr/hMean, -0.4)
		c := math.Pow(math.Gamma(1+1/alpha), alpha)
		pa := math.Exp(-math.Pow((thr-fit.X0)/fit.B, fit.K))

		res.PT[ti] = make([]float64, nbHoursByYear)
		res.NumberEvents[ti] = make([]float64, nbHoursByYear)
		res.AccessHours[ti] = make([]float64, nbHoursByYear)
		res.WaitingHours[ti] = make([]float64, nbHoursByYear)
		for h := 0; h < nbHoursByYear; h++ {
			taui := float64(h + 1)
			pxi := math.Exp(-c * math.Pow(taui/tt, alpha))
			pt := pxi * (1 - pa)
			events := duration * pt / taui
			access := duration * pt

			res.PT[ti][h] = pt
			res.NumberEvents[ti][h] = events
			res.AccessHours[ti][h] = access
			waiting := (duration - access) / events
			if waiting > duration {
				waiting = duration
			}
			res.WaitingHours[ti][h] = waiting
		}
	}
	return res, nil
}
