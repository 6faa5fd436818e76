package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/blocklist"
	"github.com/sells-group/wardrive-cli/internal/creeps"
	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/geo"
)

// DefaultConcurrency bounds parallel file parsing.
const DefaultConcurrency = 4

// LocationMode selects how the proximity filter is applied when scrubbing.
type LocationMode string

const (
	LocationAny     LocationMode = ""         // no proximity filtering
	LocationHere    LocationMode = "here"     // keep only records inside the zone
	LocationNotHere LocationMode = "not-here" // keep only records outside the zone
)

// ParseLocationMode converts the --here/--not-here flag pair to a mode.
func ParseLocationMode(here, notHere bool) (LocationMode, error) {
	switch {
	case here && notHere:
		return LocationAny, eris.New("pipeline: --here and --not-here are mutually exclusive")
	case here:
		return LocationHere, nil
	case notHere:
		return LocationNotHere, nil
	default:
		return LocationAny, nil
	}
}

// Options selects what a Pipeline does. Scrub produces filtered files;
// Creeps and Encryption produce reports over every parsed record.
type Options struct {
	Scrub      bool
	Creeps     bool
	Encryption bool

	Location  LocationMode
	Zone      *geo.Zone
	Blocklist *blocklist.Matcher
	OutputDir string

	Concurrency       int
	CreepsOptions     []creeps.Option
	EncryptionOptions []encryption.Option
}

// Validate rejects option combinations that conflict or would be silently
// ignored.
func (o Options) Validate() error {
	if !o.Scrub && !o.Creeps && !o.Encryption {
		return eris.New("pipeline: nothing to do, enable scrub, creeps or encryption")
	}

	switch o.Location {
	case LocationAny:
	case LocationHere, LocationNotHere:
		if !o.Scrub {
			return eris.Errorf("pipeline: location mode %q requires scrub", o.Location)
		}
		if o.Zone == nil {
			return eris.Errorf("pipeline: location mode %q requires a zone (lat/lon)", o.Location)
		}
	default:
		return eris.Errorf("pipeline: unknown location mode %q", o.Location)
	}

	if o.Blocklist != nil && !o.Scrub {
		return eris.New("pipeline: a blocklist only applies when scrubbing")
	}
	if o.Scrub && strings.TrimSpace(o.OutputDir) == "" {
		return eris.New("pipeline: scrub requires an output directory")
	}
	return nil
}

// Mode describes the enabled operations, e.g. "scrub(not-here)+creeps".
func (o Options) Mode() string {
	var parts []string
	if o.Scrub {
		if o.Location != LocationAny {
			parts = append(parts, "scrub("+string(o.Location)+")")
		} else {
			parts = append(parts, "scrub")
		}
	}
	if o.Creeps {
		parts = append(parts, "creeps")
	}
	if o.Encryption {
		parts = append(parts, "encryption")
	}
	return strings.Join(parts, "+")
}
