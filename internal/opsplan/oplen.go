package opsplan

import (
	"fmt"
	"sort"
	"time"

	"github.com/metoceanlab/metocean/internal/series"
)

// OpLength pairs a candidate operation start with the realized duration of
// the operation, weather downtime included. A zero Duration means the
// operation could not be completed before the filtered series ran out (or
// could not start at all).
type OpLength struct {
	Start    time.Time
	Duration time.Duration
}

// Hours returns the realized duration in decimal hours.
func (o OpLength) Hours() float64 {
	return o.Duration.Hours()
}

// MonthlyStartDates builds one candidate start per month covered by the
// filtered series, on the given day of the month. Days past the end of a
// month roll over into the next one, matching calendar arithmetic.
func MonthlyStartDates(times []time.Time, day int) ([]time.Time, error) {
	if day < 1 {
		return nil, fmt.Errorf("monthly start day must be a positive integer, got %d", day)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("monthly start dates need a non-empty series")
	}

	first, last := times[0], times[len(times)-1]
	loc := first.Location()
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, loc)

	var starts []time.Time
	for d := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, loc); !d.After(end); d = d.AddDate(0, 1, 0) {
		starts = append(starts, d.AddDate(0, 0, day-1))
	}
	return starts, nil
}

// OperationLengths simulates, for each candidate start, the progress of an
// operation of nominal length opLenHours against weather interruptions, and
// reports the realized wall-clock duration.
//
// The accumulation is a two-state machine keyed by the critical flag:
//
//   - non-critical: every step across a criteria-matching record adds one
//     timestep of progress. Downtime only stretches the wall clock, it never
//     destroys progress.
//   - critical: progress accumulates only while matching records are
//     contiguous (gap <= timestep); a larger gap resets accumulated progress
//     to zero and the operation restarts.
//
// If the filtered series ends before the nominal length is reached, the
// partial progress is abandoned and the candidate keeps a zero duration.
// Once a candidate start falls past the end of the series, that candidate
// and every later one keep zero durations.
func OperationLengths(times []time.Time, opLenHours float64, critical bool, starts []time.Time) ([]OpLength, error) {
	step, err := series.Timestep(times)
	if err != nil {
		return nil, fmt.Errorf("operation length: %v", err)
	}

	need := hoursToDuration(opLenHours)
	n := len(times)

	res := make([]OpLength, len(starts))
	for i, s := range starts {
		res[i] = OpLength{Start: s}
	}

	for i, s := range starts {
		if times[n-1].Before(s) {
			break
		}
		k := sort.Search(n, func(j int) bool { return !times[j].Before(s) })

		var dur time.Duration
		count := 0
		for stop := false; !stop; {
			if dur >= need {
				stop = true
				res[i].Duration = times[k].Sub(s)
			} else {
				k++
			}
			if k >= n-1 {
				stop = true
			}

			if critical {
				switch {
				case count == 0:
					dur += step
				case times[k].Sub(times[k-1]) <= step:
					dur += step
				default:
					dur = 0
				}
				count++
			} else {
				dur += step
			}
		}
	}
	return res, nil
}

// OperationLengthAt computes the realized duration for a single explicit
// start date.
func OperationLengthAt(times []time.Time, opLenHours float64, critical bool, start time.Time) (OpLength, error) {
	res, err := OperationLengths(times, opLenHours, critical, []time.Time{start})
	if err != nil {
		return OpLength{}, err
	}
	return res[0], nil
}
