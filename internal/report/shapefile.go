package report

import (
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/creeps"
)

// dBASE field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("MAC", 17),
	shp.StringField("SSID", 32),
	shp.NumberField("LOC_IDX", 4),
	shp.NumberField("LOCATIONS", 6),
	shp.NumberField("OBS", 8),
	shp.StringField("FIRST_SEEN", 16),
	shp.StringField("LAST_SEEN", 16),
}

// WriteShapefile writes one POINT per candidate location to path (and its
// .shx/.dbf siblings). Coordinates are WGS84 lon/lat.
func WriteShapefile(path string, candidates []creeps.Candidate) error {
	if filepath.Ext(path) != ".shp" {
		return eris.Errorf("shapefile: %s must have a .shp extension", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "shapefile: create dir for %s", path)
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "shapefile: set fields")
	}

	for _, c := range candidates {
		for i, loc := range c.Locations {
			coord := loc.Point.Coord()
			n := int(w.Write(&shp.Point{X: coord.X(), Y: coord.Y()}))

			attrs := []any{
				c.MAC,
				truncate(c.SSID, 32),
				i + 1,
				c.LocationCount,
				loc.Observations,
				formatTime(loc.FirstSeen),
				formatTime(loc.LastSeen),
			}
			for field, v := range attrs {
				if err := w.WriteAttribute(n, field, v); err != nil {
					return eris.Wrapf(err, "shapefile: write attribute %d of %s", field, c.MAC)
				}
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	for len(string(r)) > n {
		r = r[:len(r)-1]
	}
	return string(r)
}
