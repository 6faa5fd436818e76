// Package report renders pipeline results as text tables, JSON, YAML,
// Excel workbooks and shapefiles.
package report

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

// Format is an output format for a run report.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// DefaultTop is the number of creeps candidates listed in the text report.
const DefaultTop = 10

// maxSamples is the number of locations listed per candidate in text output.
const maxSamples = 3

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want text, json, yaml or xlsx)", s)
	}
}

// Binary reports whether the format cannot be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// Options controls report rendering.
type Options struct {
	// Top limits creeps candidates in every format. Zero means DefaultTop;
	// negative means no limit.
	Top int
}

func (o Options) top() int {
	if o.Top == 0 {
		return DefaultTop
	}
	return o.Top
}

// Write renders res to w. FormatXLSX is rejected; use WriteFile.
func Write(w io.Writer, res *pipeline.Result, f Format, opts Options) error {
	view := limit(res, opts.top())
	switch f {
	case FormatText, "":
		return WriteText(w, view)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(view), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	case FormatXLSX:
		return eris.New("report: xlsx output requires a file path")
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

// WriteFile renders res to path, creating parent directories.
func WriteFile(path string, res *pipeline.Result, f Format, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	if f == FormatXLSX {
		return WriteXLSX(path, limit(res, opts.top()))
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := Write(out, res, f, opts); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(out.Close(), "report: close %s", path)
}

// limit returns a shallow copy of res with at most n creeps candidates.
func limit(res *pipeline.Result, n int) *pipeline.Result {
	if n < 0 || len(res.Creeps) <= n {
		return res
	}
	view := *res
	view.Creeps = res.Creeps[:n]
	return &view
}
