// Package passes finds the intervals during which catalog objects stand above
// a minimum elevation at an observing site.
//
// A geostationary object usually yields a single pass spanning the whole
// search window (open at both ends) or none at all; low orbits yield the
// familiar rise, culmination and set sequence.
package passes

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/propagation"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
)

// Scan steps. The coarse step must be shorter than the shortest pass worth
// reporting or passes are missed.
const (
	coarseStep  = 30 * time.Second
	fineStep    = time.Second
	trackStep   = 10 * time.Second
	minDuration = 10 * time.Second
)

// TrackPoint is the sub-satellite point at one instant of a pass.
type TrackPoint struct {
	Time         time.Time
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
	ElevationDeg float64 // as seen from the site
}

// Pass is one interval above the minimum elevation.
type Pass struct {
	Rise        time.Time
	Culmination time.Time
	Set         time.Time

	MaxElevationDeg       float64
	RiseAzimuthDeg        float64
	CulminationAzimuthDeg float64
	SetAzimuthDeg         float64

	// OpenStart is set when the object was already up at the start of the
	// search window, OpenEnd when it was still up at the end.
	OpenStart bool
	OpenEnd   bool

	Track []TrackPoint
}

// Duration is the time between rise and set.
func (p Pass) Duration() time.Duration {
	return p.Set.Sub(p.Rise)
}

// Result holds the passes of one catalog entry.
type Result struct {
	Name    string
	NORADID int
	Passes  []Pass
	Err     error
}

// Request describes a search.
type Request struct {
	Site         site.Site
	Entries      []tle.Entry
	Start        time.Time
	Window       time.Duration
	MinElevation float64 // degrees
	MaxPasses    int     // per entry; 0 means no limit
}

// Predict searches every entry concurrently, bounded by the CPU count.
// Results are in the order of req.Entries. A failing entry reports its error
// in its own Result and does not affect the others.
func Predict(ctx context.Context, req Request) []Result {
	results := make([]Result, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, entry := range req.Entries {
		results[i] = Result{Name: entry.Name, NORADID: entry.NORADID}
		wg.Add(1)
		go func(idx int, e tle.Entry) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx].Err = ctx.Err()
				return
			}

			passes, err := search(ctx, req, e)
			results[idx].Passes = passes
			results[idx].Err = err
		}(i, entry)
	}

	wg.Wait()
	return results
}

// sample is the geometry of one entry at one instant.
type sample struct {
	look transform.LookAngles
	ecef transform.PositionECEF
}

type sampler struct {
	prop *propagation.SGP4Propagator
	obs  transform.ObserverPosition
}

func (s sampler) at(t time.Time) (sample, error) {
	teme, err := s.prop.Propagate(t)
	if err != nil {
		return sample{}, err
	}
	ecef := transform.TEMEToECEF(teme, t)
	return sample{
		look: transform.LookAt(s.obs, ecef),
		ecef: ecef,
	}, nil
}

// search walks the window in coarse steps and refines every hit.
func search(ctx context.Context, req Request, e tle.Entry) ([]Pass, error) {
	prop, err := propagation.NewFromEntry(e)
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", e.Name, err)
	}
	s := sampler{prop: prop, obs: req.Site.Observer()}

	end := req.Start.Add(req.Window)
	var passes []Pass

	t := req.Start
	for t.Before(end) {
		if req.MaxPasses > 0 && len(passes) >= req.MaxPasses {
			break
		}
		if err := ctx.Err(); err != nil {
			return passes, err
		}

		smp, err := s.at(t)
		if err != nil || !smp.look.AboveHorizon(req.MinElevation) {
			t = t.Add(coarseStep)
			continue
		}

		from := t.Add(-coarseStep)
		if from.Before(req.Start) {
			from = req.Start
		}
		p, stop := s.refine(ctx, from, req.Start, end, req.MinElevation)
		if p != nil && (p.Duration() >= minDuration || p.OpenStart || p.OpenEnd) {
			passes = append(passes, *p)
		}
		t = stop.Add(coarseStep)
	}

	return passes, nil
}

// refine scans in fine steps from `from` until the object sets or the window
// ends. It returns the pass (nil if the object never rose) and the time the
// scan stopped.
func (s sampler) refine(ctx context.Context, from, windowStart, windowEnd time.Time, minEl float64) (*Pass, time.Time) {
	var p *Pass

	t := from
	for ; t.Before(windowEnd); t = t.Add(fineStep) {
		if ctx.Err() != nil {
			break
		}
		smp, err := s.at(t)
		if err != nil {
			continue
		}
		el := smp.look.ElevationDeg
		az := smp.look.AzimuthDeg

		if el < minEl {
			if p != nil {
				p.Set = t
				p.SetAzimuthDeg = az
				return p, t
			}
			continue
		}

		if p == nil {
			p = &Pass{
				Rise:                  t,
				RiseAzimuthDeg:        az,
				Culmination:           t,
				MaxElevationDeg:       el,
				CulminationAzimuthDeg: az,
				OpenStart:             t.Equal(windowStart),
			}
		}
		if el > p.MaxElevationDeg {
			p.MaxElevationDeg = el
			p.Culmination = t
			p.CulminationAzimuthDeg = az
		}
		if t.Sub(p.Rise)%trackStep == 0 {
			geo := transform.SubPoint(smp.ecef)
			p.Track = append(p.Track, TrackPoint{
				Time:         t,
				LatitudeDeg:  geo.LatDeg,
				LongitudeDeg: geo.LonDeg,
				AltitudeM:    geo.AltM,
				ElevationDeg: el,
			})
		}
	}

	if p == nil {
		return nil, t
	}

	// Still up when the window closed.
	p.Set = t
	p.OpenEnd = true
	if smp, err := s.at(t); err == nil {
		p.SetAzimuthDeg = smp.look.AzimuthDeg
	}
	return p, t
}
