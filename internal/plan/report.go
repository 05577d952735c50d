package plan

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/schedule"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"gopkg.in/yaml.v3"
)

// Report is the machine-readable companion of a plan: what was scheduled,
// when, how high, and which targets were dropped.
type Report struct {
	Site       ReportSite      `yaml:"site"`
	LocalStart string          `yaml:"local_start"`
	StartUTC   time.Time       `yaml:"start_utc"`
	EndUTC     time.Time       `yaml:"end_utc"`
	EndLocal   string          `yaml:"end_local"`
	Overheads  ReportOverheads `yaml:"overheads"`
	Entries    []ReportEntry   `yaml:"entries"`
	Failures   []ReportFailure `yaml:"failures,omitempty"`
	Catalogs   []ReportCatalog `yaml:"catalogs,omitempty"`
}

type ReportSite struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Elevation float64 `yaml:"elevation_m"`
	UTCOffset float64 `yaml:"utc_offset"`
}

type ReportOverheads struct {
	Exposure   int `yaml:"exposure"`
	Pointing   int `yaml:"pointing"`
	Repointing int `yaml:"repointing"`
	Reading    int `yaml:"reading"`
}

type ReportEntry struct {
	Target       string    `yaml:"target"`
	Filter       string    `yaml:"filter"`
	TimeUTC      time.Time `yaml:"time_utc"`
	RAHours      float64   `yaml:"ra_hours"`
	DecDeg       float64   `yaml:"dec_deg"`
	ElevationDeg float64   `yaml:"elevation_deg"`
	AzimuthDeg   float64   `yaml:"azimuth_deg"`
	Catalog      string    `yaml:"catalog"`
	NORADID      int       `yaml:"norad_id"`
}

type ReportFailure struct {
	Target string `yaml:"target"`
	Filter string `yaml:"filter,omitempty"`
	Kind   string `yaml:"kind"`
	Error  string `yaml:"error"`
}

// ReportCatalog describes one catalog used for the run.
type ReportCatalog struct {
	Name     string    `yaml:"name"`
	Source   string    `yaml:"source"`
	Objects  int       `yaml:"objects"`
	LoadedAt time.Time `yaml:"loaded_at"`
}

// NewReport builds a report from a finished run.
func NewReport(s site.Site, localStart string, o schedule.Overheads, res schedule.Result) *Report {
	r := &Report{
		Site: ReportSite{
			Name:      s.Name,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Elevation: s.Elevation,
			UTCOffset: s.UTCOffset,
		},
		LocalStart: localStart,
		StartUTC:   res.Start,
		EndUTC:     res.End,
		EndLocal:   res.End.In(s.Location()).Format("2006/01/02 15:04:05"),
		Overheads: ReportOverheads{
			Exposure:   o.Exposure,
			Pointing:   o.Pointing,
			Repointing: o.Repointing,
			Reading:    o.Reading,
		},
		Entries: make([]ReportEntry, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		r.Entries = append(r.Entries, ReportEntry{
			Target:       e.Target,
			Filter:       e.Filter,
			TimeUTC:      e.Time,
			RAHours:      e.RAHours,
			DecDeg:       e.DecDeg,
			ElevationDeg: e.ElevationDeg,
			AzimuthDeg:   e.AzimuthDeg,
			Catalog:      e.Catalog,
			NORADID:      e.NORADID,
		})
	}
	for _, f := range res.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		r.Failures = append(r.Failures, ReportFailure{
			Target: f.Target,
			Filter: f.Filter,
			Kind:   string(f.Kind),
			Error:  msg,
		})
	}
	return r
}

// AddCatalog records a catalog used for the run.
func (r *Report) AddCatalog(name, source string, objects int, loadedAt time.Time) {
	r.Catalogs = append(r.Catalogs, ReportCatalog{Name: name, Source: source, Objects: objects, LoadedAt: loadedAt.UTC()})
}

// Encode writes r as YAML.
func (r *Report) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes r as YAML to path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadReport decodes a YAML report.
func ReadReport(rd io.Reader) (*Report, error) {
	var r Report
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}
