// Package wigle reads and writes WiGLE-format survey CSV files.
package wigle

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/wardrive-cli/internal/model"
)

// maxPreambleRows bounds how far into a file the header row is searched for.
// WiGLE exports put one metadata line ahead of the header.
const maxPreambleRows = 5

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is one parsed survey file.
type File struct {
	Path     string
	Preamble [][]string
	Header   model.Header
	Records  []model.NetworkRecord
	// Skipped counts rows the CSV reader could not tokenise at all.
	Skipped int
}

// Malformed returns the number of records that failed to parse fully.
func (f *File) Malformed() int {
	n := 0
	for _, r := range f.Records {
		if !r.Valid() {
			n++
		}
	}
	return n
}

// ReadFile opens and parses the survey file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "wigle: read %s", path)
	}
	return Parse(path, bytes.NewReader(data))
}

// Parse reads a survey file from r. name is recorded as each record's source.
// Input that is not valid UTF-8 is decoded as Windows-1252.
func Parse(name string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "wigle: read %s", name)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrapf(err, "wigle: decode %s", name)
		}
		zap.L().Debug("wigle: decoded non-utf8 input as windows-1252", zap.String("file", name))
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	f := &File{Path: name}
	headerFound := false

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				f.Skipped++
				zap.L().Debug("wigle: skipping unreadable row",
					zap.String("file", name),
					zap.Int("line", perr.Line),
					zap.Error(err),
				)
				continue
			}
			return nil, eris.Wrapf(err, "wigle: parse %s", name)
		}
		line, _ := reader.FieldPos(0)

		if !headerFound {
			h, herr := model.NewHeader(row)
			if herr == nil {
				f.Header = h
				headerFound = true
				continue
			}
			if len(f.Preamble) >= maxPreambleRows {
				return nil, eris.Errorf("wigle: %s: no header row in first %d lines", name, maxPreambleRows+1)
			}
			f.Preamble = append(f.Preamble, row)
			continue
		}

		rec := model.ParseRow(f.Header, row)
		rec.Source = name
		rec.Line = line
		if !rec.Valid() {
			zap.L().Debug("wigle: malformed row",
				zap.String("file", name),
				zap.Int("line", line),
				zap.String("reason", string(rec.Reason)),
			)
		}
		f.Records = append(f.Records, rec)
	}

	if !headerFound {
		return nil, eris.Errorf("wigle: %s: no header row found", name)
	}
	return f, nil
}
