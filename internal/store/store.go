// Package store persists run summaries and creeps candidates. Scrubbed
// records are never stored.
package store

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/wardrive-cli/internal/creeps"
	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/geo"
	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

const defaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Mode   string    `json:"mode,omitempty"`
	Since  time.Time `json:"since,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Run is a persisted run summary. Files is only populated by GetRun.
type Run struct {
	ID         string                `json:"id" yaml:"id"`
	Mode       string                `json:"mode" yaml:"mode"`
	Zone       *geo.Zone             `json:"zone,omitempty" yaml:"zone,omitempty"`
	StartedAt  time.Time             `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time             `json:"finished_at" yaml:"finished_at"`
	Records    int                   `json:"records" yaml:"records"`
	Kept       int                   `json:"kept" yaml:"kept"`
	Failed     int                   `json:"failed" yaml:"failed"`
	Devices    int                   `json:"devices" yaml:"devices"`
	Candidates int                   `json:"candidates" yaml:"candidates"`
	Encryption *encryption.Report    `json:"encryption,omitempty" yaml:"encryption,omitempty"`
	Files      []pipeline.FileResult `json:"files,omitempty" yaml:"files,omitempty"`
}

// Candidate is a persisted creeps candidate. Rank is its 1-based position in
// the run's ordering.
type Candidate struct {
	RunID            string `json:"run_id" yaml:"run_id"`
	Rank             int    `json:"rank" yaml:"rank"`
	creeps.Candidate `yaml:",inline"`

	// Footprint holds the candidate's location points (SRID 4326).
	Footprint *geom.MultiPoint `json:"-" yaml:"-"`
}

// Store defines the persistence interface for run history.
type Store interface {
	SaveRun(ctx context.Context, res *pipeline.Result) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListCandidates(ctx context.Context, runID string) ([]Candidate, error)
	DeleteRun(ctx context.Context, runID string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Column lists shared by both backends.
var (
	runColumns = []string{
		"id", "mode", "zone", "started_at", "finished_at",
		"records", "kept", "failed", "devices", "candidates", "encryption",
	}
	fileColumns = []string{
		"run_id", "position", "path", "output", "records", "malformed", "skipped",
		"kept", "blocked", "out_of_zone", "no_fix", "error",
	}
	candidateColumns = []string{
		"run_id", "rank", "mac", "ssid", "location_count", "observations",
		"max_spread_km", "locations", "footprint",
	}
)

// runValues flattens a result into the runs row, in runColumns order.
func runValues(res *pipeline.Result) ([]any, error) {
	zone, err := marshalNullable(res.Zone)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal zone")
	}
	enc, err := marshalNullable(res.Encryption)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal encryption")
	}
	return []any{
		res.RunID, res.Mode, zone, res.StartedAt.UTC(), res.FinishedAt.UTC(),
		res.Records, res.Kept(), res.Failed(), res.Devices, len(res.Creeps), enc,
	}, nil
}

func fileRows(res *pipeline.Result) [][]any {
	rows := make([][]any, 0, len(res.Files))
	for i, f := range res.Files {
		rows = append(rows, []any{
			res.RunID, i, f.Path, f.Output, f.Records, f.Malformed, f.Skipped,
			f.Kept, f.Blocked, f.OutOfZone, f.NoFix, f.Error,
		})
	}
	return rows
}

func candidateRows(res *pipeline.Result) ([][]any, error) {
	rows := make([][]any, 0, len(res.Creeps))
	for i, c := range res.Creeps {
		locs, err := json.Marshal(c.Locations)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal locations for %s", c.MAC)
		}
		fp, err := EncodeFootprint(c.Locations)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{
			res.RunID, i + 1, c.MAC, c.SSID, c.LocationCount, c.Observations,
			c.MaxSpreadKM, string(locs), fp,
		})
	}
	return rows, nil
}

// marshalNullable returns nil for a nil pointer so the column stays NULL.
func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// decodeRunPayloads fills the JSON-backed columns of r.
func decodeRunPayloads(r *Run, zone, enc []byte) error {
	if len(zone) > 0 {
		r.Zone = &geo.Zone{}
		if err := json.Unmarshal(zone, r.Zone); err != nil {
			return eris.Wrap(err, "store: unmarshal zone")
		}
	}
	if len(enc) > 0 {
		r.Encryption = &encryption.Report{}
		if err := json.Unmarshal(enc, r.Encryption); err != nil {
			return eris.Wrap(err, "store: unmarshal encryption")
		}
	}
	return nil
}

func decodeCandidate(c *Candidate, locs, footprint []byte) error {
	if err := json.Unmarshal(locs, &c.Locations); err != nil {
		return eris.Wrapf(err, "store: unmarshal locations for %s", c.MAC)
	}
	if len(footprint) > 0 {
		mp, err := DecodeFootprint(footprint)
		if err != nil {
			return err
		}
		c.Footprint = mp
	}
	return nil
}
