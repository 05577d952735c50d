// Package site holds the observatory locations a plan can be computed for.
package site

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/transform"
	"github.com/naoina/toml"
)

// ErrUnknownSite is returned when a site name is not in the table.
var ErrUnknownSite = errors.New("unknown site")

// Site is an observing location. Immutable once selected.
type Site struct {
	Name      string
	Latitude  float64 // degrees, north positive
	Longitude float64 // degrees, east positive
	Elevation float64 // meters above the WGS-84 ellipsoid
	UTCOffset float64 // hours, local = UTC + offset
}

// Observer returns the site's precomputed WGS-84 position.
func (s Site) Observer() transform.ObserverPosition {
	return transform.NewObserverPosition(s.Latitude, s.Longitude, s.Elevation)
}

// Location returns a fixed time zone at the site's UTC offset.
func (s Site) Location() *time.Location {
	return time.FixedZone(s.Name, int(math.Round(s.UTCOffset*3600)))
}

func (s Site) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.New("site name is empty")
	case s.Latitude < -90 || s.Latitude > 90:
		return fmt.Errorf("site %s: latitude %.6f out of range", s.Name, s.Latitude)
	case s.Longitude < -180 || s.Longitude > 180:
		return fmt.Errorf("site %s: longitude %.6f out of range", s.Name, s.Longitude)
	case s.UTCOffset < -14 || s.UTCOffset > 14:
		return fmt.Errorf("site %s: UTC offset %.2f out of range", s.Name, s.UTCOffset)
	}
	return nil
}

// Presets are the iTelescope observatories plans are usually made for.
var Presets = []Site{
	{Name: "Nerpio", Latitude: 38.15, Longitude: -2.31667, Elevation: 1650, UTCOffset: 2},
	{Name: "Mayhill", Latitude: 32.9, Longitude: -105.5, Elevation: 2250, UTCOffset: -6},
	{Name: "SSO", Latitude: -31.273333, Longitude: 149.064444, Elevation: 1165, UTCOffset: 10},
}

// Table maps site names (case-insensitive) to sites.
type Table struct {
	sites map[string]Site
}

// NewTable creates a table holding the given sites.
// A later site replaces an earlier one with the same name.
func NewTable(sites ...Site) *Table {
	t := &Table{sites: make(map[string]Site, len(sites))}
	for _, s := range sites {
		t.sites[strings.ToLower(s.Name)] = s
	}
	return t
}

// DefaultTable returns a table holding the presets.
func DefaultTable() *Table {
	return NewTable(Presets...)
}

// Lookup returns the site with the given name.
func (t *Table) Lookup(name string) (Site, error) {
	s, ok := t.sites[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Site{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownSite, name, strings.Join(t.Names(), ", "))
	}
	return s, nil
}

// Names returns the site names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.sites))
	for _, s := range t.sites {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// fileSite is one [[site]] table in a sites file.
type fileSite struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Elevation float64 `toml:"elevation"`
	UTCOffset float64 `toml:"utc_offset"`
}

type sitesFile struct {
	Sites []fileSite `toml:"site"`
}

// LoadFile reads additional sites from a TOML file and adds them to the table,
// replacing presets with the same name:
//
//	[[site]]
//	name = "Siding Spring"
//	latitude = -31.273333
//	longitude = 149.064444
//	elevation = 1165
//	utc_offset = 10
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading sites file: %w", err)
	}

	var f sitesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decoding sites file %s: %w", path, err)
	}

	for _, fs := range f.Sites {
		s := Site(fs)
		if err := s.validate(); err != nil {
			return fmt.Errorf("sites file %s: %w", path, err)
		}
		t.sites[strings.ToLower(s.Name)] = s
	}
	return nil
}
