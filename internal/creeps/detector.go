// Package creeps finds devices that were observed at several distinct
// locations. Such devices are unlikely to be fixed access points and are
// surfaced for human review; the package never filters records.
package creeps

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/wardrive-cli/internal/geo"
	"github.com/sells-group/wardrive-cli/internal/model"
)

// DefaultTolerance is the coincidence tolerance in degrees: an observation
// within this distance of a cluster's representative point on both axes
// belongs to that cluster. About 55 m of latitude, and fixed independently of
// the exclusion zone delta.
const DefaultTolerance = 0.0005

// DefaultMinLocations is the number of distinct locations that makes a device
// a candidate.
const DefaultMinLocations = 2

// Location is one cluster of observations of a device.
type Location struct {
	// Point is the cluster's representative point: its first observation.
	Point        geo.Point `json:"point" yaml:"point"`
	Centroid     geo.Point `json:"centroid" yaml:"centroid"`
	Observations int       `json:"observations" yaml:"observations"`
	FirstSeen    time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen     time.Time `json:"last_seen" yaml:"last_seen"`

	sumLat, sumLon float64
}

// Candidate is a device seen at MinLocations or more distinct locations.
type Candidate struct {
	MAC           string     `json:"mac" yaml:"mac"`
	SSID          string     `json:"ssid" yaml:"ssid"`
	LocationCount int        `json:"location_count" yaml:"location_count"`
	Locations     []Location `json:"locations" yaml:"locations"`
	MaxSpreadKM   float64    `json:"max_spread_km" yaml:"max_spread_km"`
	Observations  int        `json:"observations" yaml:"observations"`
}

// Option configures a Detector.
type Option func(*Detector)

// WithTolerance overrides the coincidence tolerance.
func WithTolerance(deg float64) Option {
	return func(d *Detector) {
		if deg > 0 {
			d.tolerance = deg
		}
	}
}

// WithMinLocations overrides the candidate threshold.
func WithMinLocations(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.minLocations = n
		}
	}
}

type device struct {
	mac          string
	ssid         string
	observations int
	// locations is kept in creation order; assignment is first-fit.
	locations []Location
}

// Detector accumulates observations per MAC. Feed it records in file order
// then row order: cluster assignment depends on arrival order.
type Detector struct {
	tolerance    float64
	minLocations int
	devices      map[string]*device
}

// NewDetector creates a Detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		tolerance:    DefaultTolerance,
		minLocations: DefaultMinLocations,
		devices:      make(map[string]*device),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tolerance returns the coincidence tolerance in use.
func (d *Detector) Tolerance() float64 { return d.tolerance }

// Add records one observation. Malformed records are ignored.
func (d *Detector) Add(rec model.NetworkRecord) {
	if !rec.Valid() {
		return
	}

	dev, ok := d.devices[rec.MAC]
	if !ok {
		dev = &device{mac: rec.MAC}
		d.devices[rec.MAC] = dev
	}
	dev.observations++
	if rec.SSID != "" {
		dev.ssid = rec.SSID
	}

	for i := range dev.locations {
		loc := &dev.locations[i]
		if math.Abs(rec.Latitude-loc.Point.Lat) <= d.tolerance &&
			math.Abs(rec.Longitude-loc.Point.Lon) <= d.tolerance {
			loc.observe(rec)
			return
		}
	}

	loc := Location{Point: geo.Point{Lat: rec.Latitude, Lon: rec.Longitude}}
	loc.observe(rec)
	dev.locations = append(dev.locations, loc)
}

func (l *Location) observe(rec model.NetworkRecord) {
	l.Observations++
	l.sumLat += rec.Latitude
	l.sumLon += rec.Longitude
	l.Centroid = geo.Point{
		Lat: l.sumLat / float64(l.Observations),
		Lon: l.sumLon / float64(l.Observations),
	}
	if ts := rec.FirstSeen; !ts.IsZero() {
		if l.FirstSeen.IsZero() || ts.Before(l.FirstSeen) {
			l.FirstSeen = ts
		}
		if ts.After(l.LastSeen) {
			l.LastSeen = ts
		}
	}
}

// Devices returns the number of distinct MACs observed.
func (d *Detector) Devices() int {
	return len(d.devices)
}

// Candidates returns devices with at least MinLocations distinct locations,
// sorted by location count descending then MAC ascending.
func (d *Detector) Candidates() []Candidate {
	out := make([]Candidate, 0)
	for _, dev := range d.devices {
		if len(dev.locations) < d.minLocations {
			continue
		}

		locs := make([]Location, len(dev.locations))
		copy(locs, dev.locations)
		points := make([]geo.Point, len(locs))
		for i, l := range locs {
			points[i] = l.Point
		}

		out = append(out, Candidate{
			MAC:           dev.mac,
			SSID:          dev.ssid,
			LocationCount: len(locs),
			Locations:     locs,
			MaxSpreadKM:   geo.MaxSpreadKM(points),
			Observations:  dev.observations,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationCount != out[j].LocationCount {
			return out[i].LocationCount > out[j].LocationCount
		}
		return out[i].MAC < out[j].MAC
	})
	return out
}

// Detect runs a Detector over records in order.
func Detect(records []model.NetworkRecord, opts ...Option) []Candidate {
	d := NewDetector(opts...)
	for _, rec := range records {
		d.Add(rec)
	}
	return d.Candidates()
}
