// Package opsplan implements operational planning statistics over hindcast
// time series: weather-window detection, operation-length calculation under
// weather downtime, and monthly aggregation of both.
//
// A weather window is an uninterrupted stretch of records satisfying the
// operational criteria, of at least a required length. The caller applies the
// criteria filter first (series.Table.Filter); the scans below only see the
// timestamps of the rows that passed.
package opsplan

import (
	"fmt"
	"time"

	"github.com/metoceanlab/metocean/internal/series"
)

// ScanPolicy selects how the window detector advances to the next candidate
// start after a run has been scanned.
type ScanPolicy int

const (
	// ConcurrentWindows searches back-to-back: once a window is found (or a
	// run ends short of the required length), the search resumes after the
	// record where the scan stopped, so detected windows never overlap.
	ConcurrentWindows ScanPolicy = iota
	// ContinuousWindows tries every record as a candidate start, even inside
	// a previously detected window. Duplicate detections are expected.
	ContinuousWindows
)

func (p ScanPolicy) String() string {
	switch p {
	case ConcurrentWindows:
		return "concurrent"
	case ContinuousWindows:
		return "continuous"
	}
	return fmt.Sprintf("ScanPolicy(%d)", int(p))
}

// hoursToDuration converts a decimal hour count to a Duration.
func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// WindowStarts scans the filtered timestamps and returns the start of every
// weather window of at least winLenHours. A run extends across consecutive
// records whose gap does not exceed the estimated timestep; the moment the
// elapsed time from the candidate start reaches the required length, the
// start is recorded and the run scan stops.
//
// The scan never considers the last two records as candidate starts.
// Existing validated results depend on that boundary behavior, so it must
// not change.
func WindowStarts(times []time.Time, winLenHours float64, policy ScanPolicy) ([]time.Time, error) {
	step, err := series.Timestep(times)
	if err != nil {
		return nil, fmt.Errorf("window scan: %v", err)
	}

	// nextCandidate maps (scan position, candidate counter) to the index of
	// the next candidate start, per the selected policy.
	var nextCandidate func(k, cand int) int
	switch policy {
	case ConcurrentWindows:
		nextCandidate = func(k, cand int) int { return k + 1 }
	case ContinuousWindows:
		nextCandidate = func(k, cand int) int { return cand }
	default:
		return nil, fmt.Errorf("window scan: unsupported scan policy %v", policy)
	}

	need := hoursToDuration(winLenHours)
	n := len(times)

	var starts []time.Time
	k, cand := 0, 0
	for k < n-2 {
		strt := times[k]
		this, next := strt, times[k+1]
		for next.Sub(this) <= step && k < n-2 {
			k++
			if next.Sub(strt) >= need {
				starts = append(starts, strt)
				break
			}
			this, next = times[k], times[k+1]
		}
		cand++
		k = nextCandidate(k, cand)
	}
	return starts, nil
}
