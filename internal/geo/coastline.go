package geo

import (
	"fmt"
	"math"

	shp "github.com/jonas-p/go-shp"
)

// CoastlineSegment is one polyline of the reference coastline.
type CoastlineSegment struct {
	Points [][2]float64 // lon, lat pairs
}

// LoadCoastline reads the reference coastline polylines from a shapefile.
// Polygon shapes contribute their parts as individual segments; other shape
// types are skipped.
func LoadCoastline(path string) ([]CoastlineSegment, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening coastline shapefile: %w", err)
	}
	defer reader.Close()

	var segments []CoastlineSegment
	for reader.Next() {
		_, shape := reader.Shape()

		var points []shp.Point
		var parts []int32
		switch s := shape.(type) {
		case *shp.PolyLine:
			points, parts = s.Points, s.Parts
		case *shp.Polygon:
			points, parts = s.Points, s.Parts
		default:
			continue
		}

		for p := 0; p < len(parts); p++ {
			start := int(parts[p])
			end := len(points)
			if p+1 < len(parts) {
				end = int(parts[p+1])
			}
			seg := CoastlineSegment{Points: make([][2]float64, 0, end-start)}
			for _, pt := range points[start:end] {
				seg.Points = append(seg.Points, [2]float64{pt.X, pt.Y})
			}
			segments = append(segments, seg)
		}
	}
	return segments, nil
}

// DistanceToCoastline returns the great-circle distance in meters from the
// given position to the nearest coastline vertex. Returns +Inf when the
// coastline is empty.
func DistanceToCoastline(segments []CoastlineSegment, lon, lat float64) float64 {
	best := math.Inf(1)
	for _, seg := range segments {
		for _, pt := range seg.Points {
			if d := Haversine(lon, lat, pt[0], pt[1]); d < best {
				best = d
			}
		}
	}
	return best
}
