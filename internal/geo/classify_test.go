package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/wardrive-cli/internal/model"
)

func at(lat, lon float64) model.NetworkRecord {
	return model.NetworkRecord{MAC: "AA:BB:CC:11:22:33", Latitude: lat, Longitude: lon}
}

func TestZone_IsLocal(t *testing.T) {
	// Binary-exact values so the boundary cases test the comparison, not
	// floating point rounding.
	zone, err := NewZone(0.5, 0.5, 0.25)
	require.NoError(t, err)

	tests := []struct {
		name     string
		lat, lon float64
		expected bool
	}{
		{name: "centre", lat: 0.5, lon: 0.5, expected: true},
		{name: "inside", lat: 0.625, lon: 0.375, expected: true},
		{name: "north edge", lat: 0.75, lon: 0.5, expected: true},
		{name: "south edge", lat: 0.25, lon: 0.5, expected: true},
		{name: "corner", lat: 0.75, lon: 0.25, expected: true},
		{name: "just past north edge", lat: math.Nextafter(0.75, 1), lon: 0.5, expected: false},
		{name: "just past west edge", lat: 0.5, lon: math.Nextafter(0.25, 0), expected: false},
		{name: "inside a circle would not matter: square corner", lat: 0.74, lon: 0.74, expected: true},
		{name: "far away", lat: 40.7128, lon: -74.0060, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := at(tt.lat, tt.lon)
			assert.Equal(t, tt.expected, zone.IsLocal(rec))
			if tt.expected {
				assert.Equal(t, DispositionLocal, zone.Classify(rec))
			} else {
				assert.Equal(t, DispositionRemote, zone.Classify(rec))
			}
		})
	}
}

func TestZone_HomeScenario(t *testing.T) {
	zone, err := NewZone(39.094845, -76.7298708, DefaultDelta)
	require.NoError(t, err)

	assert.True(t, zone.IsLocal(at(39.0948, -76.7298)))
	assert.False(t, zone.IsLocal(at(40.7128, -74.0060)))
}

func TestZone_MalformedIsNeverLocal(t *testing.T) {
	zone, err := NewZone(39.0948, -76.7298, 1)
	require.NoError(t, err)

	rec := at(39.0948, -76.7298)
	rec.Reason = model.ReasonBadCoordinate
	assert.False(t, zone.IsLocal(rec))
	assert.Equal(t, DispositionUnknown, zone.Classify(rec))
}

func TestNewZone_Invalid(t *testing.T) {
	_, err := NewZone(91, 0, 0.001)
	assert.Error(t, err)
	_, err = NewZone(0, -181, 0.001)
	assert.Error(t, err)
	_, err = NewZone(0, 0, 0)
	assert.Error(t, err)
	_, err = NewZone(0, 0, -0.1)
	assert.Error(t, err)
	_, err = NewZone(math.NaN(), 0, 0.1)
	assert.Error(t, err)
}

func TestZone_Bounds(t *testing.T) {
	zone, err := NewZone(0.5, 0.5, 0.25)
	require.NoError(t, err)

	b := zone.Bounds()
	assert.Equal(t, geom.XY, b.Layout())
	assert.InDelta(t, 0.25, b.Min(0), 1e-12)
	assert.InDelta(t, 0.25, b.Min(1), 1e-12)
	assert.InDelta(t, 0.75, b.Max(0), 1e-12)
	assert.InDelta(t, 0.75, b.Max(1), 1e-12)
	assert.True(t, b.OverlapsPoint(geom.XY, Point{Lat: 0.6, Lon: 0.6}.Coord()))
}

func TestDistanceKM(t *testing.T) {
	home := Point{Lat: 39.0948, Lon: -76.7298}
	nyc := Point{Lat: 40.7128, Lon: -74.0060}

	assert.InDelta(t, 0, DistanceKM(home, home), 1e-9)
	// Great-circle distance is about 294 km.
	assert.InDelta(t, 294, DistanceKM(home, nyc), 2)
	assert.InDelta(t, DistanceKM(home, nyc), DistanceKM(nyc, home), 1e-9)
	// One degree of latitude.
	assert.InDelta(t, 111.2, DistanceKM(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0}), 0.1)
}

func TestMaxSpreadKM(t *testing.T) {
	assert.Zero(t, MaxSpreadKM(nil))
	assert.Zero(t, MaxSpreadKM([]Point{{Lat: 1, Lon: 1}}))

	points := []Point{{Lat: 0, Lon: 0}, {Lat: 0.5, Lon: 0}, {Lat: 1, Lon: 0}}
	assert.InDelta(t, DistanceKM(points[0], points[2]), MaxSpreadKM(points), 1e-9)
}
