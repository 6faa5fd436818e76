package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/pipeline"
)

// Sheet names in the workbook written by WriteXLSX.
const (
	SheetFiles      = "Files"
	SheetCreeps     = "Creeps"
	SheetEncryption = "Encryption"
)

// WriteXLSX writes res as a workbook with one sheet per section. The Creeps
// sheet has one row per candidate location.
func WriteXLSX(path string, res *pipeline.Result) error {
	f := xlsx.NewFile()

	files, err := f.AddSheet(SheetFiles)
	if err != nil {
		return eris.Wrap(err, "xlsx: add files sheet")
	}
	addStrings(files, "file", "records", "malformed", "kept", "blocked", "out_of_zone", "output", "error")
	for _, fr := range res.Files {
		row := files.AddRow()
		row.AddCell().SetString(fr.Path)
		row.AddCell().SetInt(fr.Records)
		row.AddCell().SetInt(fr.Malformed)
		row.AddCell().SetInt(fr.Kept)
		row.AddCell().SetInt(fr.Blocked)
		row.AddCell().SetInt(fr.OutOfZone)
		row.AddCell().SetString(fr.Output)
		row.AddCell().SetString(fr.Error)
	}

	if res.Creeps != nil {
		sheet, err := f.AddSheet(SheetCreeps)
		if err != nil {
			return eris.Wrap(err, "xlsx: add creeps sheet")
		}
		addStrings(sheet, "mac", "ssid", "location_count", "max_spread_km", "location", "lat", "lon", "observations", "first_seen", "last_seen")
		for _, c := range res.Creeps {
			for i, loc := range c.Locations {
				row := sheet.AddRow()
				row.AddCell().SetString(c.MAC)
				row.AddCell().SetString(c.SSID)
				row.AddCell().SetInt(c.LocationCount)
				row.AddCell().SetFloat(c.MaxSpreadKM)
				row.AddCell().SetInt(i + 1)
				row.AddCell().SetFloat(loc.Point.Lat)
				row.AddCell().SetFloat(loc.Point.Lon)
				row.AddCell().SetInt(loc.Observations)
				row.AddCell().SetString(formatTime(loc.FirstSeen))
				row.AddCell().SetString(formatTime(loc.LastSeen))
			}
		}
	}

	if r := res.Encryption; r != nil {
		sheet, err := f.AddSheet(SheetEncryption)
		if err != nil {
			return eris.Wrap(err, "xlsx: add encryption sheet")
		}
		addStrings(sheet, "category", "label", "count", "percentage")
		for _, c := range encryption.Categories {
			s := r.Categories[c]
			row := sheet.AddRow()
			row.AddCell().SetString(string(c))
			row.AddCell().SetString("")
			row.AddCell().SetInt(s.Count)
			row.AddCell().SetFloat(s.Percentage)
		}
		for _, l := range r.Labels {
			row := sheet.AddRow()
			row.AddCell().SetString(string(l.Category))
			row.AddCell().SetString(l.Label)
			row.AddCell().SetInt(l.Count)
			row.AddCell().SetFloat(l.Percentage)
		}
	}

	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
