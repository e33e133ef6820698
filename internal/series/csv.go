package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"
)

// Accepted timestamp layouts for CSV input, tried in order.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
}

// ReadCSV parses a time-indexed table from r. The first column is the
// timestamp, remaining columns are float parameters; the first line is the
// header. Unparseable numeric cells become NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %v", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("CSV needs a time column and at least one parameter column, got %d columns", len(header))
	}

	t := &Table{Columns: header[1:]}
	var prev time.Time
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV record: %v", err)
		}
		line++

		ts, err := parseCSVTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		if len(t.Times) > 0 && !ts.After(prev) {
			return nil, fmt.Errorf("line %d: timestamps must be strictly increasing (%s after %s)", line, ts, prev)
		}
		prev = ts

		row := make([]float64, len(t.Columns))
		for j := range row {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				v = math.NaN()
			}
			row[j] = v
		}
		t.Times = append(t.Times, ts)
		t.Data = append(t.Data, row)
	}
	return t, nil
}

// LoadCSV reads a table from the named file.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseCSVTime(s string) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
