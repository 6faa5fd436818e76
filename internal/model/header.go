package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Column identifies a logical field of a survey row.
type Column string

const (
	ColMAC       Column = "mac"
	ColSSID      Column = "ssid"
	ColAuthMode  Column = "auth_mode"
	ColFirstSeen Column = "first_seen"
	ColLatitude  Column = "latitude"
	ColLongitude Column = "longitude"
)

// columnAliases lists accepted header names per column, lower-cased. Different
// WiGLE client versions and exports name the same field differently.
var columnAliases = map[Column][]string{
	ColMAC:       {"mac", "bssid", "netid"},
	ColSSID:      {"ssid"},
	ColAuthMode:  {"authmode", "capabilities", "encryption", "auth"},
	ColFirstSeen: {"firstseen", "firsttime", "time", "timestamp"},
	ColLatitude:  {"currentlatitude", "latitude", "lat", "trilat"},
	ColLongitude: {"currentlongitude", "longitude", "lon", "long", "trilong"},
}

// requiredColumns must be present for a header to be usable.
var requiredColumns = []Column{ColMAC, ColLatitude, ColLongitude}

// Header maps logical columns to field positions in a row.
type Header struct {
	names []string
	index map[Column]int
}

// NewHeader resolves column positions by name. It returns an error when any
// of MAC, latitude or longitude cannot be located.
func NewHeader(row []string) (Header, error) {
	h := Header{
		names: append([]string(nil), row...),
		index: make(map[Column]int, len(columnAliases)),
	}

	byName := make(map[string]int, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	for col, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				h.index[col] = i
				break
			}
		}
	}

	for _, col := range requiredColumns {
		if _, ok := h.index[col]; !ok {
			return Header{}, eris.Errorf("model: header missing required column %q", col)
		}
	}
	return h, nil
}

// Names returns a copy of the raw header fields.
func (h Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Has reports whether the header located the column.
func (h Header) Has(col Column) bool {
	_, ok := h.index[col]
	return ok
}

// Get returns the trimmed value of col in row. ok is false when the header
// lacks the column or the row is too short to contain it.
func (h Header) Get(row []string, col Column) (string, bool) {
	i, ok := h.index[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}
