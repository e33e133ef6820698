package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadGrid reads a hindcast node grid from a CSV file of id,lon,lat rows with
// an optional depth column.
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGrid(f)
}

// ReadGrid parses the node grid CSV from r. A first line whose id field is
// not numeric is treated as a header and skipped.
func ReadGrid(r io.Reader) (*Grid, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	grid := &Grid{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading grid CSV: %v", err)
		}
		line++
		if len(rec) < 3 {
			return nil, fmt.Errorf("grid line %d: want id,lon,lat[,depth], got %d fields", line, len(rec))
		}

		id, err := strconv.Atoi(rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("grid line %d: invalid node id %q", line, rec[0])
		}
		lon, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("grid line %d: invalid longitude %q", line, rec[1])
		}
		lat, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("grid line %d: invalid latitude %q", line, rec[2])
		}

		n := Node{ID: id, Lon: lon, Lat: lat}
		if len(rec) > 3 {
			if d, err := strconv.ParseFloat(rec[3], 64); err == nil {
				n.Depth = d
			}
		}
		grid.Nodes = append(grid.Nodes, n)
	}
	if len(grid.Nodes) == 0 {
		return nil, fmt.Errorf("grid CSV has no nodes")
	}
	return grid, nil
}
