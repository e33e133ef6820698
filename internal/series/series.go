// Package series provides time-indexed series and table types shared by the
// analysis packages. Timestamps are strictly increasing; values are float64
// and may be NaN for missing records.
package series

import (
	"fmt"
	"math"
	"time"
)

// Series is a single time-indexed variable.
type Series struct {
	Times  []time.Time
	Values []float64
}

// Len returns the number of records.
func (s *Series) Len() int {
	return len(s.Times)
}

// Table is a time-indexed table with one named column per physical parameter.
// Data is row-major: Data[i][j] is the value of Columns[j] at Times[i].
type Table struct {
	Times   []time.Time
	Columns []string
	Data    [][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Times)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for j, c := range t.Columns {
		if c == name {
			return j, nil
		}
	}
	return 0, fmt.Errorf("table has no column %q", name)
}

// Column extracts one column as a Series. The returned slices alias nothing;
// callers may modify them freely.
func (t *Table) Column(name string) (*Series, error) {
	j, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	s := &Series{
		Times:  append([]time.Time(nil), t.Times...),
		Values: make([]float64, len(t.Data)),
	}
	for i, row := range t.Data {
		s.Values[i] = row[j]
	}
	return s, nil
}

// Filter returns a new table containing only the rows for which pred returns
// true. Rows containing NaN in any tested column are the predicate's business;
// Filter itself does not skip them. This is the criteria filter applied ahead
// of the weather-window and operation-length scans.
func (t *Table) Filter(pred func(row []float64) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for i, row := range t.Data {
		if pred(row) {
			out.Times = append(out.Times, t.Times[i])
			out.Data = append(out.Data, append([]float64(nil), row...))
		}
	}
	return out
}

// DropNaN returns a new table with every row containing a NaN removed.
func (t *Table) DropNaN() *Table {
	return t.Filter(func(row []float64) bool {
		for _, v := range row {
			if math.IsNaN(v) {
				return false
			}
		}
		return true
	})
}

// Timestep estimates the dominant sampling interval of the index. If the
// index has a regular frequency (all consecutive differences equal) that
// frequency is returned; otherwise the minimum positive difference between
// consecutive timestamps is used, ignoring exact-zero diffs.
//
// A series with fewer than two records has no defined timestep and is
// rejected.
func Timestep(times []time.Time) (time.Duration, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("timestep estimation needs at least 2 records, got %d", len(times))
	}

	regular := true
	first := times[1].Sub(times[0])
	min := time.Duration(math.MaxInt64)
	for i := 1; i < len(times); i++ {
		d := times[i].Sub(times[i-1])
		if d != first {
			regular = false
		}
		if d < 0 {
			d = -d
		}
		if d > 0 && d < min {
			min = d
		}
	}
	if regular && first > 0 {
		return first, nil
	}
	if min == time.Duration(math.MaxInt64) {
		return 0, fmt.Errorf("timestep estimation found no positive difference between timestamps")
	}
	return min, nil
}
