package opsplan

import (
	"math"
	"testing"
	"time"
)

func TestWindowCountsByMonth(t *testing.T) {
	starts := []time.Time{
		time.Date(2004, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2004, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2004, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2005, 6, 20, 0, 0, 0, 0, time.UTC),
	}

	m := WindowCountsByMonth(starts)
	if len(m.Years) != 2 || m.Years[0] != 2004 || m.Years[1] != 2005 {
		t.Fatalf("unexpected years: %v", m.Years)
	}
	if len(m.Months) != 2 || m.Months[0] != time.June || m.Months[1] != time.July {
		t.Fatalf("unexpected months: %v", m.Months)
	}

	checks := []struct {
		year  int
		month time.Month
		want  float64
	}{
		{2004, time.June, 2},
		{2004, time.July, 1},
		{2005, time.June, 1},
		{2005, time.July, 0}, // zero-filled bucket
	}
	for _, c := range checks {
		got, ok := m.At(c.year, c.month)
		if !ok {
			t.Fatalf("%d-%s missing from matrix", c.year, c.month)
		}
		if got != c.want {
			t.Errorf("%d-%s: got %v, want %v", c.year, c.month, got, c.want)
		}
	}

	if _, ok := m.At(2006, time.June); ok {
		t.Error("2006 should not be in the matrix domain")
	}
}

func TestOperationHoursByMonth(t *testing.T) {
	lengths := []OpLength{
		{Start: time.Date(2004, 6, 1, 0, 0, 0, 0, time.UTC), Duration: 12 * time.Hour},
		{Start: time.Date(2004, 7, 1, 0, 0, 0, 0, time.UTC), Duration: 0},
		{Start: time.Date(2004, 7, 15, 0, 0, 0, 0, time.UTC), Duration: 30 * time.Hour},
	}

	m := OperationHoursByMonth(lengths)
	got, _ := m.At(2004, time.June)
	if got != 12 {
		t.Errorf("June: got %v, want 12", got)
	}
	// Two records in July 2004: the first (incompletable, zero) wins.
	got, _ = m.At(2004, time.July)
	if got != 0 {
		t.Errorf("July: got %v, want 0", got)
	}
}

func TestColumnStats(t *testing.T) {
	m := &MonthlyMatrix{
		Years:  []int{2003, 2004, 2005, 2006},
		Months: []time.Month{time.June},
		Cells:  [][]float64{{2}, {4}, {6}, {8}},
	}

	stats := m.ColumnStats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 month, got %d", len(stats))
	}
	st := stats[0]
	if st.Month != time.June || st.Count != 4 {
		t.Fatalf("unexpected header: %+v", st)
	}
	if st.Mean != 5 {
		t.Errorf("mean: got %v, want 5", st.Mean)
	}
	if st.Min != 2 || st.Max != 8 {
		t.Errorf("min/max: got %v/%v, want 2/8", st.Min, st.Max)
	}
	// Sample standard deviation of {2,4,6,8}.
	if want := math.Sqrt(20.0 / 3.0); math.Abs(st.StdDev-want) > 1e-12 {
		t.Errorf("stddev: got %v, want %v", st.StdDev, want)
	}
	for _, p := range []int{1, 5, 25, 50, 75, 95, 99} {
		if _, ok := st.Percentiles[p]; !ok {
			t.Errorf("missing percentile %d", p)
		}
	}
	if st.Percentiles[50] < st.Percentiles[25] || st.Percentiles[75] < st.Percentiles[50] {
		t.Errorf("percentiles not ordered: %v", st.Percentiles)
	}
}
