// Package geo provides the geographic helpers of the toolbox: great-circle
// distances, nearest hindcast grid node lookup, and the meteorological
// velocity convention conversion.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeter = 6367e3

// Haversine returns the great-circle distance in meters between two points
// given in decimal degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	lon1, lat1, lon2, lat2 = lon1*rad, lat1*rad, lon2*rad, lat2*rad

	dlon := lon2 - lon1
	dlat := lat2 - lat1

	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusMeter
}

// Node is one point of the hindcast grid.
type Node struct {
	ID       int
	Lon, Lat float64
	// Depth is the bathymetry at the node, meters below datum.
	Depth float64
}

// Grid is the hindcast node set.
type Grid struct {
	Nodes []Node
}

// Nearest returns the grid node closest to the given position by great-circle
// distance.
func (g *Grid) Nearest(lon, lat float64) (Node, error) {
	if len(g.Nodes) == 0 {
		return Node{}, fmt.Errorf("grid has no nodes")
	}
	best := g.Nodes[0]
	bestDist := math.Inf(1)
	for _, n := range g.Nodes {
		if d := Haversine(lon, lat, n.Lon, n.Lat); d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best, nil
}

// ComponentsToMetConv converts zonal and meridional velocity components to
// magnitude and direction in meteorological convention (direction the flow
// comes from, degrees clockwise from north).
func ComponentsToMetConv(u, v float64) (magnitude, direction float64) {
	magnitude = math.Hypot(u, v)
	direction = math.Mod(270-math.Atan2(v, u)*180/math.Pi, 360)
	if direction < 0 {
		direction += 360
	}
	return magnitude, direction
}
