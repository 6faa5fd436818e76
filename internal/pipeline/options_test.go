package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wardrive-cli/internal/blocklist"
	"github.com/sells-group/wardrive-cli/internal/geo"
	"github.com/sells-group/wardrive-cli/internal/model"
)

func TestParseLocationMode(t *testing.T) {
	m, err := ParseLocationMode(false, false)
	require.NoError(t, err)
	assert.Equal(t, LocationAny, m)

	m, err = ParseLocationMode(true, false)
	require.NoError(t, err)
	assert.Equal(t, LocationHere, m)

	m, err = ParseLocationMode(false, true)
	require.NoError(t, err)
	assert.Equal(t, LocationNotHere, m)

	_, err = ParseLocationMode(true, true)
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	zone := &geo.Zone{Lat: 1, Lon: 1, Delta: 0.001}
	bl, err := blocklist.Compile(blocklist.Config{BlockedSSIDs: []string{"x"}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"nothing", Options{}, "nothing to do"},
		{"scrub only", Options{Scrub: true, OutputDir: "out"}, ""},
		{"scrub no dir", Options{Scrub: true}, "output directory"},
		{"here no scrub", Options{Creeps: true, Location: LocationHere, Zone: zone}, "requires scrub"},
		{"here no zone", Options{Scrub: true, OutputDir: "o", Location: LocationHere}, "requires a zone"},
		{"unknown mode", Options{Scrub: true, OutputDir: "o", Location: "elsewhere", Zone: zone}, "unknown location mode"},
		{"blocklist no scrub", Options{Encryption: true, Blocklist: bl}, "blocklist"},
		{"all", Options{Scrub: true, Creeps: true, Encryption: true, OutputDir: "o", Location: LocationNotHere, Zone: zone, Blocklist: bl}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsMode(t *testing.T) {
	assert.Equal(t, "scrub", Options{Scrub: true}.Mode())
	assert.Equal(t, "scrub(here)+creeps", Options{Scrub: true, Creeps: true, Location: LocationHere}.Mode())
	assert.Equal(t, "creeps+encryption", Options{Creeps: true, Encryption: true}.Mode())
}

func TestFilter(t *testing.T) {
	zone := &geo.Zone{Lat: 10, Lon: 10, Delta: 0.01}
	bl, err := blocklist.Compile(blocklist.Config{BlockedMACs: []string{"AA:AA:AA:AA:AA:AA"}})
	require.NoError(t, err)

	records := []model.NetworkRecord{
		{MAC: "AA:AA:AA:AA:AA:AA", Latitude: 50, Longitude: 50},
		{MAC: "BB:BB:BB:BB:BB:BB", Latitude: 10, Longitude: 10},
		{MAC: "CC:CC:CC:CC:CC:CC", Latitude: 20, Longitude: 20},
		{MAC: "DD:DD:DD:DD:DD:DD", Reason: model.ReasonBadCoordinate},
	}

	kept, stats := Filter(records, bl, zone, LocationNotHere)
	require.Len(t, kept, 1)
	assert.Equal(t, "CC:CC:CC:CC:CC:CC", kept[0].MAC)
	assert.Equal(t, FilterStats{Blocked: 1, OutOfZone: 2, NoFix: 1}, stats)

	kept, stats = Filter(records, bl, zone, LocationHere)
	require.Len(t, kept, 1)
	assert.Equal(t, "BB:BB:BB:BB:BB:BB", kept[0].MAC)
	assert.Equal(t, 1, stats.Blocked)

	kept, stats = Filter(records, nil, nil, LocationAny)
	assert.Len(t, kept, len(records))
	assert.Equal(t, FilterStats{}, stats)

	kept, _ = Filter(records, bl, nil, LocationAny)
	assert.Len(t, kept, 3, "malformed records pass without a location mode")
}
