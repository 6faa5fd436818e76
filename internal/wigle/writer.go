package wigle

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/model"
)

// Write emits the preamble and header of src followed by the original fields
// of each record, in the order given.
func Write(w io.Writer, src *File, records []model.NetworkRecord) error {
	cw := csv.NewWriter(w)

	for _, row := range src.Preamble {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "wigle: write preamble")
		}
	}
	if err := cw.Write(src.Header.Names()); err != nil {
		return eris.Wrap(err, "wigle: write header")
	}
	for _, rec := range records {
		if err := cw.Write(rec.Fields()); err != nil {
			return eris.Wrapf(err, "wigle: write row %d", rec.Line)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "wigle: flush")
}

// WriteFile writes records to path, creating parent directories as needed.
func WriteFile(path string, src *File, records []model.NetworkRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "wigle: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "wigle: create %s", path)
	}

	if err := Write(f, src, records); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "wigle: close %s", path)
}
