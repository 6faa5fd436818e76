package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

const timeLayout = "2006-01-02 15:04"

// WriteText writes the human-readable report: a run header, the per-file
// scrub table, the creeps listing and the encryption table. Sections for
// disabled operations are omitted.
func WriteText(w io.Writer, res *pipeline.Result) error {
	out := &stickyWriter{w: w}
	_, _ = fmt.Fprintf(out, "Run %s (%s)\n", res.RunID, res.Mode)
	_, _ = fmt.Fprintf(out, "Records: %d across %d file(s), %d failed\n", res.Records, len(res.Files), res.Failed())
	if res.Zone != nil {
		b := res.Zone.Bounds()
		_, _ = fmt.Fprintf(out, "Zone: %.6f, %.6f ±%g° (lat %.6f..%.6f, lon %.6f..%.6f)\n",
			res.Zone.Lat, res.Zone.Lon, res.Zone.Delta, b.Min(1), b.Max(1), b.Min(0), b.Max(0))
	}

	writeFiles(out, res.Files)

	if res.Creeps != nil {
		writeCreeps(out, res)
	}
	if res.Encryption != nil {
		writeEncryption(out, res.Encryption)
	}
	return eris.Wrap(out.err, "report: write text")
}

// stickyWriter remembers the first write error and drops later writes, so
// the section writers can ignore per-call errors.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	s.err = err
	return n, err
}

func writeFiles(out io.Writer, files []pipeline.FileResult) {
	_, _ = fmt.Fprintln(out, "\nFILES")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tRECORDS\tMALFORMED\tKEPT\tBLOCKED\tOUT_OF_ZONE\tOUTPUT")
	for _, f := range files {
		if f.Error != "" {
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\terror: %s\n", f.Path, f.Error)
			continue
		}
		output := f.Output
		if output == "" {
			output = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d/%d\t%d\t%d\t%s\n",
			f.Path, f.Records, f.Malformed, f.Kept, f.Records, f.Blocked, f.OutOfZone, output)
	}
	_ = w.Flush()
}

func writeCreeps(out io.Writer, res *pipeline.Result) {
	_, _ = fmt.Fprintf(out, "\nCREEPS (%d candidate(s) among %d device(s))\n", len(res.Creeps), res.Devices)
	if len(res.Creeps) == 0 {
		_, _ = fmt.Fprintln(out, "No device was seen at more than one location.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MAC\tSSID\tLOCATIONS\tSEEN\tSPREAD_KM\tSAMPLE")
	for _, c := range res.Creeps {
		for i, loc := range c.Locations {
			if i == maxSamples {
				_, _ = fmt.Fprintf(w, "\t\t\t\t\t... %d more\n", len(c.Locations)-maxSamples)
				break
			}
			sample := fmt.Sprintf("%.5f,%.5f x%d %s", loc.Point.Lat, loc.Point.Lon, loc.Observations, formatTime(loc.FirstSeen))
			if i == 0 {
				ssid := c.SSID
				if ssid == "" {
					ssid = "(hidden)"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%s\n",
					c.MAC, ssid, c.LocationCount, c.Observations, c.MaxSpreadKM, sample)
				continue
			}
			_, _ = fmt.Fprintf(w, "\t\t\t\t\t%s\n", sample)
		}
	}
	_ = w.Flush()
}

func writeEncryption(out io.Writer, r *encryption.Report) {
	scope := "observations"
	if r.Unique {
		scope = "unique networks"
	}
	_, _ = fmt.Fprintf(out, "\nENCRYPTION (%d %s)\n", r.Total, scope)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tCOUNT\tPERCENT")
	for _, c := range encryption.Categories {
		s := r.Categories[c]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", c, s.Count, s.Percentage)
	}
	_ = w.Flush()

	if len(r.Labels) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AUTH_LABEL\tCATEGORY\tCOUNT\tPERCENT")
	for _, l := range r.Labels {
		label := l.Label
		if label == "" {
			label = "(empty)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\n", label, l.Category, l.Count, l.Percentage)
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}
