package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// kmPerDegree is the length of one degree of latitude on a spherical earth.
const kmPerDegree = 111.195

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Coord returns p as a go-geom XY coordinate (lon, lat).
func (p Point) Coord() geom.Coord {
	return geom.Coord{p.Lon, p.Lat}
}

// DistanceKM is an equirectangular approximation of the distance between a
// and b. Accurate to well under 1% at the city scales this tool reports on.
func DistanceKM(a, b Point) float64 {
	meanLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	dx := (b.Lon - a.Lon) * math.Cos(meanLat)
	dy := b.Lat - a.Lat
	return math.Hypot(dx, dy) * kmPerDegree
}

// MaxSpreadKM returns the largest pairwise distance among points.
func MaxSpreadKM(points []Point) float64 {
	var maxKM float64
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if d := DistanceKM(points[i], points[j]); d > maxKM {
				maxKM = d
			}
		}
	}
	return maxKM
}
