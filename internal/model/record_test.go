package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wigleHeader = []string{
	"MAC", "SSID", "AuthMode", "FirstSeen", "Channel", "RSSI",
	"CurrentLatitude", "CurrentLongitude", "AltitudeMeters", "AccuracyMeters", "Type",
}

func mustHeader(t *testing.T, row []string) Header {
	t.Helper()
	h, err := NewHeader(row)
	require.NoError(t, err)
	return h
}

func TestParseRow_Valid(t *testing.T) {
	h := mustHeader(t, wigleHeader)
	row := []string{"aa-bb-cc-11-22-33", "HomeWifi", "[WPA2-PSK-CCMP][ESS]", "2024-03-09 18:22:01",
		"6", "-67", "39.0948", "-76.7298", "45.0", "5.0", "WIFI"}

	rec := ParseRow(h, row)

	assert.True(t, rec.Valid())
	assert.Equal(t, ReasonNone, rec.Reason)
	assert.Equal(t, "AA:BB:CC:11:22:33", rec.MAC)
	assert.Equal(t, "aa-bb-cc-11-22-33", rec.RawMAC())
	assert.Equal(t, "HomeWifi", rec.SSID)
	assert.Equal(t, "[WPA2-PSK-CCMP][ESS]", rec.AuthMode)
	assert.InDelta(t, 39.0948, rec.Latitude, 1e-9)
	assert.InDelta(t, -76.7298, rec.Longitude, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 9, 18, 22, 1, 0, time.UTC), rec.FirstSeen)
	assert.Equal(t, row, rec.Fields())
}

func TestRawMAC_FallsBackToMAC(t *testing.T) {
	assert.Equal(t, "AA:BB:CC:11:22:33", NetworkRecord{MAC: "AA:BB:CC:11:22:33"}.RawMAC())
}

func TestParseRow_FieldsAreCopied(t *testing.T) {
	h := mustHeader(t, wigleHeader)
	row := []string{"AA:BB:CC:11:22:33", "x", "", "", "", "", "1.5", "2.5", "", "", ""}

	rec := ParseRow(h, row)
	row[1] = "mutated"
	assert.Equal(t, "x", rec.Fields()[1])

	fields := rec.Fields()
	fields[1] = "mutated"
	assert.Equal(t, "x", rec.Fields()[1])
}

func TestParseRow_Malformed(t *testing.T) {
	h := mustHeader(t, wigleHeader)

	tests := []struct {
		name   string
		row    []string
		reason Reason
		mac    string
	}{
		{
			name:   "short row",
			row:    []string{"AA:BB:CC:11:22:33", "ssid"},
			reason: ReasonMissingField,
			mac:    "AA:BB:CC:11:22:33",
		},
		{
			name:   "empty mac",
			row:    []string{"", "ssid", "", "", "", "", "39.1", "-76.7", "", "", ""},
			reason: ReasonMissingField,
		},
		{
			name:   "bad mac keeps raw text",
			row:    []string{"not-a-mac", "ssid", "", "", "", "", "39.1", "-76.7", "", "", ""},
			reason: ReasonBadMAC,
			mac:    "NOT-A-MAC",
		},
		{
			name:   "non numeric latitude",
			row:    []string{"AA:BB:CC:11:22:33", "ssid", "", "", "", "", "north", "-76.7", "", "", ""},
			reason: ReasonBadCoordinate,
			mac:    "AA:BB:CC:11:22:33",
		},
		{
			name:   "empty longitude",
			row:    []string{"AA:BB:CC:11:22:33", "ssid", "", "", "", "", "39.1", "", "", "", ""},
			reason: ReasonBadCoordinate,
			mac:    "AA:BB:CC:11:22:33",
		},
		{
			name:   "out of range latitude",
			row:    []string{"AA:BB:CC:11:22:33", "ssid", "", "", "", "", "91", "-76.7", "", "", ""},
			reason: ReasonBadCoordinate,
			mac:    "AA:BB:CC:11:22:33",
		},
		{
			name:   "no gps fix",
			row:    []string{"AA:BB:CC:11:22:33", "ssid", "", "", "", "", "0.0", "0.0", "", "", ""},
			reason: ReasonBadCoordinate,
			mac:    "AA:BB:CC:11:22:33",
		},
		{
			name:   "NaN longitude",
			row:    []string{"AA:BB:CC:11:22:33", "ssid", "", "", "", "", "39.1", "NaN", "", "", ""},
			reason: ReasonBadCoordinate,
			mac:    "AA:BB:CC:11:22:33",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ParseRow(h, tt.row)
			assert.False(t, rec.Valid())
			assert.Equal(t, tt.reason, rec.Reason)
			assert.Equal(t, tt.mac, rec.MAC)
		})
	}
}

func TestParseRow_ZeroLatitudeOnlyIsValid(t *testing.T) {
	h := mustHeader(t, wigleHeader)
	rec := ParseRow(h, []string{"AA:BB:CC:11:22:33", "eq", "", "", "", "", "0", "-78.5", "", "", ""})
	assert.True(t, rec.Valid())
}

func TestParseRow_UnparseableTimestampIsIgnored(t *testing.T) {
	h := mustHeader(t, wigleHeader)
	rec := ParseRow(h, []string{"AA:BB:CC:11:22:33", "x", "", "yesterday", "", "", "1", "2", "", "", ""})
	assert.True(t, rec.Valid())
	assert.True(t, rec.FirstSeen.IsZero())
}

func TestParseFirstSeen(t *testing.T) {
	want := time.Date(2024, 3, 9, 18, 22, 1, 0, time.UTC)
	assert.Equal(t, want, parseFirstSeen("2024-03-09 18:22:01"))
	assert.Equal(t, want, parseFirstSeen("2024-03-09T18:22:01Z"))
	assert.Equal(t, want, parseFirstSeen("2024/03/09 18:22:01"))
	assert.True(t, parseFirstSeen("").IsZero())
}
