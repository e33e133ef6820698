package opsplan

import (
	"testing"
	"time"
)

// fixtureTimes builds the filtered index used across the detector tests:
// three runs of hourly records with gaps between them.
//
//	index  0..5   2005-01-01 00:00 .. 05:00
//	index  6..8   2005-01-01 10:00 .. 12:00
//	index  9..10  2005-01-01 20:00 .. 21:00
func fixtureTimes() []time.Time {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for h := 0; h <= 5; h++ {
		out = append(out, base.Add(time.Duration(h)*time.Hour))
	}
	for h := 10; h <= 12; h++ {
		out = append(out, base.Add(time.Duration(h)*time.Hour))
	}
	for h := 20; h <= 21; h++ {
		out = append(out, base.Add(time.Duration(h)*time.Hour))
	}
	return out
}

func hoursOf(base time.Time, hours ...int) []time.Time {
	out := make([]time.Time, len(hours))
	for i, h := range hours {
		out[i] = base.Add(time.Duration(h) * time.Hour)
	}
	return out
}

func assertTimesEqual(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d starts %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("start %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWindowStartsConcurrent(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	times := fixtureTimes()

	got, err := WindowStarts(times, 3, ConcurrentWindows)
	if err != nil {
		t.Fatal(err)
	}
	assertTimesEqual(t, got, hoursOf(base, 0))
}

func TestWindowStartsContinuous(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	times := fixtureTimes()

	got, err := WindowStarts(times, 3, ContinuousWindows)
	if err != nil {
		t.Fatal(err)
	}
	assertTimesEqual(t, got, hoursOf(base, 0, 1, 2))
}

func TestWindowStartsConcurrentShortWindows(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	times := fixtureTimes()

	got, err := WindowStarts(times, 1, ConcurrentWindows)
	if err != nil {
		t.Fatal(err)
	}
	// The two final records (20:00, 21:00) form a valid one-hour window but
	// the scan stops before the last two records. That boundary behavior is
	// intentional and must not be "fixed".
	assertTimesEqual(t, got, hoursOf(base, 0, 2, 4, 10))
}

func TestContinuousIsSupersetOfConcurrent(t *testing.T) {
	times := fixtureTimes()
	for _, winlen := range []float64{1, 2, 3, 4} {
		concurrent, err := WindowStarts(times, winlen, ConcurrentWindows)
		if err != nil {
			t.Fatal(err)
		}
		continuous, err := WindowStarts(times, winlen, ContinuousWindows)
		if err != nil {
			t.Fatal(err)
		}
		if len(continuous) < len(concurrent) {
			t.Errorf("winlen=%v: continuous found %d windows, concurrent %d",
				winlen, len(continuous), len(concurrent))
		}
	}
}

func TestConcurrentWindowsDoNotOverlap(t *testing.T) {
	times := fixtureTimes()
	starts, err := WindowStarts(times, 2, ConcurrentWindows)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(starts); i++ {
		if !starts[i].After(starts[i-1].Add(2 * time.Hour)) {
			// Back-to-back windows may touch but the next start must be at
			// or past the end of the previous window's scanned region.
			if starts[i].Before(starts[i-1].Add(2 * time.Hour)) {
				t.Errorf("windows overlap: %v then %v", starts[i-1], starts[i])
			}
		}
	}
}

func TestWindowStartsDegenerateInput(t *testing.T) {
	if _, err := WindowStarts(nil, 1, ConcurrentWindows); err == nil {
		t.Error("expected error for empty input")
	}
	one := []time.Time{time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := WindowStarts(one, 1, ConcurrentWindows); err == nil {
		t.Error("expected error for single-record input")
	}
}

func TestWindowStartsRejectsUnknownPolicy(t *testing.T) {
	if _, err := WindowStarts(fixtureTimes(), 1, ScanPolicy(42)); err == nil {
		t.Error("expected error for unknown scan policy")
	}
}
