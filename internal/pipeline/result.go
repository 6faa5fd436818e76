package pipeline

import (
	"time"

	"github.com/sells-group/wardrive-cli/internal/creeps"
	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/geo"
)

// FileResult is the outcome for one input file.
type FileResult struct {
	Path      string `json:"path" yaml:"path"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
	Records   int    `json:"records" yaml:"records"`
	Malformed int    `json:"malformed" yaml:"malformed"`
	Skipped   int    `json:"skipped_rows" yaml:"skipped_rows"`
	Kept      int    `json:"kept" yaml:"kept"`

	FilterStats `yaml:",inline"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the file-level error, if any.
func (f FileResult) Err() error { return f.err }

func (f *FileResult) setErr(err error) {
	f.err = err
	f.Error = err.Error()
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	Mode       string             `json:"mode" yaml:"mode"`
	Zone       *geo.Zone          `json:"zone,omitempty" yaml:"zone,omitempty"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`
	Files      []FileResult       `json:"files" yaml:"files"`
	Records    int                `json:"records" yaml:"records"`
	Devices    int                `json:"devices,omitempty" yaml:"devices,omitempty"`
	Creeps     []creeps.Candidate `json:"creeps" yaml:"creeps"`
	Encryption *encryption.Report `json:"encryption,omitempty" yaml:"encryption,omitempty"`
}

// Failed returns the number of files that could not be processed.
func (r *Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Kept returns the number of records written across all scrubbed files.
func (r *Result) Kept() int {
	n := 0
	for _, f := range r.Files {
		n += f.Kept
	}
	return n
}
