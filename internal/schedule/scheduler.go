// Package schedule turns a target list into a time-ordered sequence of
// pointing commands by simulating the telescope's clock.
//
// For every target the Scheduler resolves its element set from the catalogs
// in order, charges the pointing overhead once, then for every filter
// computes the apparent position at the simulated time, emits an entry and
// charges the exposure overheads. A failing target never stops the run.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/metrics"
	"github.com/gosnold/satellite-observation-tools/internal/propagation"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
)

// Config holds everything constant for a run.
type Config struct {
	Site      site.Site
	Overheads Overheads
	Catalogs  []Catalog // tried in order
	Engine    Engine
	Sink      Sink // optional
}

// Scheduler runs one planning pass. It is the only writer of its Clock.
type Scheduler struct {
	cfg    Config
	clock  *Clock
	logger *slog.Logger
}

// New creates a Scheduler. A nil Engine defaults to an SGP4Engine.
func New(cfg Config, clock *Clock, logger *slog.Logger) *Scheduler {
	if cfg.Engine == nil {
		cfg.Engine = NewSGP4Engine()
	}
	return &Scheduler{cfg: cfg, clock: clock, logger: logger}
}

// Run schedules every target exactly once, in order, and returns the entries
// in emission order. It never returns early: failures are recorded in the
// Result and logged.
func (s *Scheduler) Run(targets, filters []string) Result {
	res := Result{Start: s.clock.Now()}

	s.logger.Info("schedule started",
		"site", s.cfg.Site.Name,
		"start_utc", res.Start.Format(time.RFC3339),
		"targets", len(targets),
		"filters", filters,
		"catalogs", len(s.cfg.Catalogs),
	)

	for _, target := range targets {
		f := s.processTarget(&res, target, filters)
		if f == nil {
			continue
		}
		res.Failures = append(res.Failures, *f)
		metrics.RecordTargetFailure(string(f.Kind))
		if f.Kind == FailureNotFound {
			// Each catalog already logged its own warning.
			s.logger.Debug("target skipped", "target", target, "reason", "not found in any list")
			continue
		}
		s.logger.Warn("could not compute acquisition",
			"target", target,
			"filter", f.Filter,
			"kind", string(f.Kind),
			"error", f.Err,
		)
	}

	res.End = s.clock.Now()
	metrics.SetScheduleWindow(res.Start, res.End)

	loc := s.cfg.Site.Location()
	s.logger.Info("observation end time",
		"end_utc", res.End.Format(time.RFC3339),
		"end_local", res.End.In(loc).Format("2006/01/02 15:04:05"),
		"entries", len(res.Entries),
		"failures", len(res.Failures),
		"simulated_seconds", int(res.End.Sub(res.Start).Seconds()),
	)

	return res
}

// processTarget resolves one target and emits an entry per filter as soon as
// it is computed. It returns the failure that ended the target, if any.
func (s *Scheduler) processTarget(res *Result, target string, filters []string) *Failure {
	elements, catalog, ok := s.resolve(target)
	if !ok {
		return &Failure{
			Target: target,
			Kind:   FailureNotFound,
			Err:    fmt.Errorf("%w: %q in %d lists", tle.ErrTargetNotFound, target, len(s.cfg.Catalogs)),
		}
	}

	s.logger.Debug("target resolved",
		"target", target,
		"catalog", catalog,
		"object", elements.Name,
		"norad_id", elements.NORADID,
		"epoch", elements.Epoch.Format(time.RFC3339),
	)
	s.clock.Advance(s.cfg.Overheads.Pointing)

	for _, filter := range filters {
		at := s.clock.Now()
		obs, err := s.observe(elements, at)
		if err != nil {
			kind := FailureUnexpected
			if errors.Is(err, propagation.ErrPropagation) {
				kind = FailurePropagation
			}
			return &Failure{Target: target, Filter: filter, Kind: kind, Err: err}
		}

		e := Entry{
			Target:       target,
			Filter:       filter,
			RAHours:      obs.RAHours,
			DecDeg:       obs.DecDeg,
			Time:         at,
			ElevationDeg: obs.ElevationDeg,
			AzimuthDeg:   obs.AzimuthDeg,
			Catalog:      catalog,
			NORADID:      elements.NORADID,
		}
		s.emit(res, e)

		s.logger.Debug("entry scheduled",
			"target", target,
			"filter", filter,
			"time_utc", at.Format(time.RFC3339),
			"ra_hours", e.RAHours,
			"dec_deg", e.DecDeg,
			"elevation_deg", e.ElevationDeg,
		)
		if e.ElevationDeg < 0 {
			s.logger.Warn("target below horizon at scheduled time",
				"target", target,
				"filter", filter,
				"time_utc", at.Format(time.RFC3339),
				"elevation_deg", e.ElevationDeg,
			)
		}

		s.clock.Advance(s.cfg.Overheads.PerExposure())
	}

	return nil
}

// emit records e and hands it to the sink. Only the first sink error is kept.
func (s *Scheduler) emit(res *Result, e Entry) {
	res.Entries = append(res.Entries, e)
	metrics.RecordEntry(e.Filter)
	if s.cfg.Sink == nil {
		return
	}
	if err := s.cfg.Sink.Emit(e); err != nil && res.SinkErr == nil {
		res.SinkErr = err
		s.logger.Error("plan sink failed", "target", e.Target, "filter", e.Filter, "error", err)
	}
}

// resolve tries the catalogs in order and stops at the first match. Every
// catalog that fails to resolve the target gets one warning.
func (s *Scheduler) resolve(target string) (tle.Entry, string, bool) {
	for _, cat := range s.cfg.Catalogs {
		e, err := lookup(cat, target)
		if err == nil {
			return e, cat.Name(), true
		}
		metrics.RecordCatalogMiss(cat.Name())
		s.logger.Warn("target not found in list "+cat.Name(),
			"target", target,
			"catalog", cat.Name(),
			"error", err,
		)
	}
	return tle.Entry{}, "", false
}

// lookup calls cat.Lookup, turning a panic into an error.
func lookup(cat Catalog, target string) (e tle.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lookup in %s: %v", ErrUnexpected, cat.Name(), r)
		}
	}()
	return cat.Lookup(target)
}

// observe calls the engine, turning a panic into an error.
func (s *Scheduler) observe(elements tle.Entry, at time.Time) (obs transform.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: computing position of %s: %v", ErrUnexpected, elements.Name, r)
		}
	}()
	return s.cfg.Engine.ApparentPosition(elements, at, s.cfg.Site)
}
