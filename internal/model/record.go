// Package model defines the network sighting record parsed from a wardriving
// survey row.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Reason explains why a record is malformed. Valid records carry ReasonNone.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissingField  Reason = "missing-field"
	ReasonBadCoordinate Reason = "bad-coordinate"
	ReasonBadMAC        Reason = "bad-mac"
)

// firstSeenLayouts are the timestamp formats emitted by WiGLE clients.
var firstSeenLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
}

// NetworkRecord is one wireless network sighting. Records are treated as
// immutable values: filtering produces new slices and never edits a record.
type NetworkRecord struct {
	MAC       string    `json:"mac"`
	SSID      string    `json:"ssid"`
	AuthMode  string    `json:"auth_mode"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	FirstSeen time.Time `json:"first_seen"`
	Reason    Reason    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`

	rawMAC string
	fields []string
}

// Valid reports whether the record has a parseable MAC and coordinates.
func (r NetworkRecord) Valid() bool {
	return r.Reason == ReasonNone
}

// RawMAC returns the MAC text as it appeared in the file, or MAC when the
// record was not parsed from a row.
func (r NetworkRecord) RawMAC() string {
	if r.rawMAC == "" {
		return r.MAC
	}
	return r.rawMAC
}

// Fields returns a copy of the original field values in input order.
func (r NetworkRecord) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// ParseRow builds a NetworkRecord from one data row. It never fails: rows
// that cannot be fully parsed come back with a non-empty Reason so a single
// bad row never stops the rest of the file.
func ParseRow(h Header, row []string) NetworkRecord {
	rec := NetworkRecord{fields: append([]string(nil), row...)}

	rawMAC, macOK := h.Get(row, ColMAC)
	rec.rawMAC = strings.TrimSpace(rawMAC)
	rawLat, latOK := h.Get(row, ColLatitude)
	rawLon, lonOK := h.Get(row, ColLongitude)
	rec.SSID, _ = h.Get(row, ColSSID)
	rec.AuthMode, _ = h.Get(row, ColAuthMode)

	if ts, ok := h.Get(row, ColFirstSeen); ok {
		rec.FirstSeen = parseFirstSeen(ts)
	}

	mac, err := NormalizeMAC(rawMAC)
	if err != nil {
		rec.MAC = strings.ToUpper(strings.TrimSpace(rawMAC))
	} else {
		rec.MAC = mac
	}

	switch {
	case !macOK || !latOK || !lonOK || strings.TrimSpace(rawMAC) == "":
		rec.Reason = ReasonMissingField
		return rec
	case err != nil:
		rec.Reason = ReasonBadMAC
	}

	lat, latErr := parseCoordinate(rawLat, 90)
	lon, lonErr := parseCoordinate(rawLon, 180)
	if latErr != nil || lonErr != nil || (lat == 0 && lon == 0) {
		// 0,0 is what survey clients write when there is no GPS fix.
		if rec.Reason == ReasonNone {
			rec.Reason = ReasonBadCoordinate
		}
		return rec
	}
	rec.Latitude = lat
	rec.Longitude = lon
	return rec
}

type coordinateError struct{ raw string }

func (e *coordinateError) Error() string { return "invalid coordinate " + strconv.Quote(e.raw) }

func parseCoordinate(raw string, limit float64) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &coordinateError{raw: raw}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, &coordinateError{raw: raw}
	}
	return v, nil
}

func parseFirstSeen(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range firstSeenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
