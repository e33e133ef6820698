package opsplan

import (
	"testing"
	"time"
)

// opFixtureTimes is hourly records 00:00..05:00, a gap, then 08:00..12:00.
func opFixtureTimes() []time.Time {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for h := 0; h <= 5; h++ {
		out = append(out, base.Add(time.Duration(h)*time.Hour))
	}
	for h := 8; h <= 12; h++ {
		out = append(out, base.Add(time.Duration(h)*time.Hour))
	}
	return out
}

func TestOperationLengthNonCritical(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := OperationLengthAt(opFixtureTimes(), 8, false, base)
	if err != nil {
		t.Fatal(err)
	}
	// Progress pauses across the 3-hour gap: 8 working hours finish at
	// 10:00, so the realized duration is 10 wall-clock hours.
	if got.Duration != 10*time.Hour {
		t.Errorf("got %v, want 10h", got.Duration)
	}
}

func TestOperationLengthCriticalResetsOnGap(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)

	// The gap destroys 5 hours of progress and the second run only offers 4
	// more working hours, so the operation never completes.
	got, err := OperationLengthAt(opFixtureTimes(), 8, true, base)
	if err != nil {
		t.Fatal(err)
	}
	if got.Duration != 0 {
		t.Errorf("critical operation across the gap: got %v, want 0", got.Duration)
	}
}

func TestCriticalTakesLongerThanNonCritical(t *testing.T) {
	// Start right before the gap so that the gap hits mid-operation.
	start := time.Date(2005, 1, 1, 3, 0, 0, 0, time.UTC)

	nonCritical, err := OperationLengthAt(opFixtureTimes(), 3, false, start)
	if err != nil {
		t.Fatal(err)
	}
	critical, err := OperationLengthAt(opFixtureTimes(), 3, true, start)
	if err != nil {
		t.Fatal(err)
	}

	if nonCritical.Duration != 5*time.Hour {
		t.Errorf("non-critical: got %v, want 5h", nonCritical.Duration)
	}
	if critical.Duration != 8*time.Hour {
		t.Errorf("critical: got %v, want 8h", critical.Duration)
	}
	if critical.Duration <= nonCritical.Duration {
		t.Error("a mid-operation gap must penalize the critical operation more")
	}
}

func TestNonCriticalMonotonicInNominalLength(t *testing.T) {
	base := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	var prev time.Duration
	for _, oplen := range []float64{1, 2, 3, 5, 8} {
		got, err := OperationLengthAt(opFixtureTimes(), oplen, false, base)
		if err != nil {
			t.Fatal(err)
		}
		if got.Duration < prev {
			t.Errorf("oplen=%v: realized %v shrank below %v", oplen, got.Duration, prev)
		}
		prev = got.Duration
	}
}

func TestOperationLengthStartPastSeriesEnd(t *testing.T) {
	late := time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := OperationLengths(opFixtureTimes(), 3, false, []time.Time{late, late.AddDate(0, 1, 0)})
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range got {
		if l.Duration != 0 {
			t.Errorf("start %v past series end: got %v, want 0", l.Start, l.Duration)
		}
	}
}

func TestMonthlyStartDates(t *testing.T) {
	times := []time.Time{
		time.Date(2005, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 4, 20, 0, 0, 0, 0, time.UTC),
	}

	got, err := MonthlyStartDates(times, 15)
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{
		time.Date(2005, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 4, 15, 0, 0, 0, 0, time.UTC),
	}
	assertTimesEqual(t, got, want)
}

func TestMonthlyStartDatesDayRollsOver(t *testing.T) {
	times := []time.Time{
		time.Date(2005, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	got, err := MonthlyStartDates(times, 31)
	if err != nil {
		t.Fatal(err)
	}
	// Day 31 of February normalizes into March.
	want := []time.Time{time.Date(2005, 3, 3, 0, 0, 0, 0, time.UTC)}
	assertTimesEqual(t, got, want)
}

func TestMonthlyStartDatesValidation(t *testing.T) {
	if _, err := MonthlyStartDates(opFixtureTimes(), 0); err == nil {
		t.Error("expected error for day 0")
	}
	if _, err := MonthlyStartDates(nil, 1); err == nil {
		t.Error("expected error for empty series")
	}
}
