package pipeline

import (
	"github.com/sells-group/wardrive-cli/internal/blocklist"
	"github.com/sells-group/wardrive-cli/internal/geo"
	"github.com/sells-group/wardrive-cli/internal/model"
)

// FilterStats counts why records were dropped.
type FilterStats struct {
	Blocked   int `json:"blocked" yaml:"blocked"`
	OutOfZone int `json:"out_of_zone" yaml:"out_of_zone"`
	// NoFix counts records dropped by a location mode because they had no
	// usable coordinates. They are included in OutOfZone.
	NoFix int `json:"no_fix" yaml:"no_fix"`
}

// Filter returns the records that survive the blocklist and the location
// mode, in their original order. The input slice is not modified.
//
// Under LocationHere and LocationNotHere, records without usable coordinates
// are dropped: they cannot be shown to lie outside the zone.
func Filter(records []model.NetworkRecord, bl *blocklist.Matcher, zone *geo.Zone, mode LocationMode) ([]model.NetworkRecord, FilterStats) {
	var stats FilterStats
	kept := make([]model.NetworkRecord, 0, len(records))

	for _, rec := range records {
		if bl.Matches(rec) {
			stats.Blocked++
			continue
		}

		if mode != LocationAny && zone != nil {
			d := zone.Classify(rec)
			want := geo.DispositionLocal
			if mode == LocationNotHere {
				want = geo.DispositionRemote
			}
			if d != want {
				stats.OutOfZone++
				if d == geo.DispositionUnknown {
					stats.NoFix++
				}
				continue
			}
		}

		kept = append(kept, rec)
	}
	return kept, stats
}
