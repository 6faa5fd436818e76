package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/wardrive-cli/internal/creeps"
)

const srid = 4326

// EncodeFootprint converts candidate locations to an EWKB MultiPoint with
// SRID 4326. Returns nil, nil when there are no locations.
func EncodeFootprint(locs []creeps.Location) ([]byte, error) {
	if len(locs) == 0 {
		return nil, nil
	}

	flat := make([]float64, 0, 2*len(locs))
	for _, l := range locs {
		flat = append(flat, l.Point.Coord()...)
	}
	mp := geom.NewMultiPointFlat(geom.XY, flat).SetSRID(srid)

	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode footprint")
	}
	return data, nil
}

// DecodeFootprint parses an EWKB MultiPoint written by EncodeFootprint.
func DecodeFootprint(data []byte) (*geom.MultiPoint, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode footprint")
	}
	mp, ok := g.(*geom.MultiPoint)
	if !ok {
		return nil, eris.Errorf("store: footprint is %T, want MultiPoint", g)
	}
	return mp, nil
}
