// Package geo provides the planar proximity checks used to decide whether a
// sighting is local to a protected coordinate.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/wardrive-cli/internal/model"
)

// DefaultDelta is the default zone half-width in degrees (about 110 m of
// latitude).
const DefaultDelta = 0.001

// Disposition is a record's position relative to a zone.
type Disposition string

const (
	DispositionLocal   Disposition = "local"
	DispositionRemote  Disposition = "remote"
	DispositionUnknown Disposition = "unknown" // no usable coordinates
)

// Zone is an axis-aligned square of half-width Delta degrees centred on
// (Lat, Lon).
type Zone struct {
	Lat   float64 `json:"lat" yaml:"lat"`
	Lon   float64 `json:"lon" yaml:"lon"`
	Delta float64 `json:"delta" yaml:"delta"`
}

// NewZone validates and returns a Zone.
func NewZone(lat, lon, delta float64) (Zone, error) {
	switch {
	case math.IsNaN(lat) || math.Abs(lat) > 90:
		return Zone{}, eris.Errorf("geo: latitude %v out of range", lat)
	case math.IsNaN(lon) || math.Abs(lon) > 180:
		return Zone{}, eris.Errorf("geo: longitude %v out of range", lon)
	case math.IsNaN(delta) || math.IsInf(delta, 0) || delta <= 0:
		return Zone{}, eris.Errorf("geo: delta must be positive, got %v", delta)
	}
	return Zone{Lat: lat, Lon: lon, Delta: delta}, nil
}

// IsLocal reports whether rec lies inside the zone. Both axis differences
// must be <= Delta (closed interval). Malformed records are never local.
func (z Zone) IsLocal(rec model.NetworkRecord) bool {
	if !rec.Valid() {
		return false
	}
	return z.Contains(rec.Latitude, rec.Longitude)
}

// Contains is IsLocal for a bare coordinate.
func (z Zone) Contains(lat, lon float64) bool {
	return math.Abs(lat-z.Lat) <= z.Delta && math.Abs(lon-z.Lon) <= z.Delta
}

// Classify returns the disposition of rec relative to the zone.
func (z Zone) Classify(rec model.NetworkRecord) Disposition {
	switch {
	case !rec.Valid():
		return DispositionUnknown
	case z.Contains(rec.Latitude, rec.Longitude):
		return DispositionLocal
	default:
		return DispositionRemote
	}
}

// Bounds returns the zone as an XY (lon, lat) bounding box.
func (z Zone) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(z.Lon-z.Delta, z.Lat-z.Delta, z.Lon+z.Delta, z.Lat+z.Delta)
}
