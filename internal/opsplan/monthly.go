package opsplan

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MonthlyMatrix is a dense year-by-month table. Rows cover every distinct
// year observed in the input, columns every distinct month; buckets with no
// records hold zero.
type MonthlyMatrix struct {
	Years  []int
	Months []time.Month
	Cells  [][]float64 // Cells[i][j] for Years[i], Months[j]
}

// At returns the cell for the given year and month, and whether that bucket
// exists in the matrix domain.
func (m *MonthlyMatrix) At(year int, month time.Month) (float64, bool) {
	yi := sort.SearchInts(m.Years, year)
	if yi == len(m.Years) || m.Years[yi] != year {
		return 0, false
	}
	for j, mo := range m.Months {
		if mo == month {
			return m.Cells[yi][j], true
		}
	}
	return 0, false
}

func newMonthlyMatrix(ts []time.Time) *MonthlyMatrix {
	yset := map[int]bool{}
	mset := map[time.Month]bool{}
	for _, t := range ts {
		yset[t.Year()] = true
		mset[t.Month()] = true
	}
	m := &MonthlyMatrix{}
	for y := range yset {
		m.Years = append(m.Years, y)
	}
	sort.Ints(m.Years)
	for mo := time.January; mo <= time.December; mo++ {
		if mset[mo] {
			m.Months = append(m.Months, mo)
		}
	}
	m.Cells = make([][]float64, len(m.Years))
	for i := range m.Cells {
		m.Cells[i] = make([]float64, len(m.Months))
	}
	return m
}

func (m *MonthlyMatrix) cell(t time.Time) *float64 {
	yi := sort.SearchInts(m.Years, t.Year())
	for j, mo := range m.Months {
		if mo == t.Month() {
			return &m.Cells[yi][j]
		}
	}
	return nil
}

// WindowCountsByMonth buckets detected window starts by year and month and
// counts the windows starting in each bucket.
func WindowCountsByMonth(starts []time.Time) *MonthlyMatrix {
	m := newMonthlyMatrix(starts)
	for _, s := range starts {
		*m.cell(s) += 1
	}
	return m
}

// OperationHoursByMonth buckets operation-length records by year and month
// of the candidate start and stores the realized length in decimal hours.
// With a monthly start grid each bucket holds exactly one record; if several
// records land in one bucket the first wins.
func OperationHoursByMonth(lengths []OpLength) *MonthlyMatrix {
	starts := make([]time.Time, len(lengths))
	for i, l := range lengths {
		starts[i] = l.Start
	}
	m := newMonthlyMatrix(starts)
	seen := map[[2]int]bool{}
	for _, l := range lengths {
		key := [2]int{l.Start.Year(), int(l.Start.Month())}
		if seen[key] {
			continue
		}
		seen[key] = true
		*m.cell(l.Start) = l.Hours()
	}
	return m
}

// MonthStats summarizes one month column of a MonthlyMatrix across years.
type MonthStats struct {
	Month       time.Month
	Count       int
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Percentiles map[int]float64 // keys 1, 5, 25, 50, 75, 95, 99
}

var statsPercentiles = []int{1, 5, 25, 50, 75, 95, 99}

// ColumnStats computes per-month descriptive statistics across the years of
// the matrix.
func (m *MonthlyMatrix) ColumnStats() []MonthStats {
	out := make([]MonthStats, len(m.Months))
	for j, mo := range m.Months {
		col := make([]float64, len(m.Years))
		for i := range m.Years {
			col[i] = m.Cells[i][j]
		}
		sort.Float64s(col)

		st := MonthStats{
			Month:       mo,
			Count:       len(col),
			Mean:        stat.Mean(col, nil),
			Min:         col[0],
			Max:         col[len(col)-1],
			Percentiles: make(map[int]float64, len(statsPercentiles)),
		}
		if len(col) > 1 {
			st.StdDev = stat.StdDev(col, nil)
		}
		for _, p := range statsPercentiles {
			st.Percentiles[p] = stat.Quantile(float64(p)/100, stat.Empirical, col, nil)
		}
		out[j] = st
	}
	return out
}
