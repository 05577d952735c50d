package schedule

import (
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/metrics"
	"github.com/gosnold/satellite-observation-tools/internal/propagation"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
)

// propKey identifies an initialized propagator. Line1 carries the epoch, so
// two element sets for the same object never share a propagator.
type propKey struct {
	noradID int
	line1   string
	line2   string
}

// SGP4Engine computes apparent positions with SGP4 and the TEME/ECEF
// transforms. Initialized propagators are kept per element set, so repeated
// filters on one target do not re-run SGP4 initialization.
// Not safe for concurrent use.
type SGP4Engine struct {
	props map[propKey]*propagation.SGP4Propagator
}

// NewSGP4Engine creates an engine with an empty propagator cache.
func NewSGP4Engine() *SGP4Engine {
	return &SGP4Engine{props: make(map[propKey]*propagation.SGP4Propagator)}
}

func (e *SGP4Engine) propagator(elements tle.Entry) (*propagation.SGP4Propagator, error) {
	key := propKey{noradID: elements.NORADID, line1: elements.Line1, line2: elements.Line2}
	if p, ok := e.props[key]; ok {
		return p, nil
	}
	p, err := propagation.NewFromEntry(elements)
	if err != nil {
		return nil, err
	}
	e.props[key] = p
	return p, nil
}

// ApparentPosition propagates elements to at and reduces the result to the
// apparent topocentric place seen from s. Errors wrap propagation.ErrPropagation.
func (e *SGP4Engine) ApparentPosition(elements tle.Entry, at time.Time, s site.Site) (transform.Observation, error) {
	start := time.Now()
	defer func() { metrics.ObserveCompute(time.Since(start)) }()

	p, err := e.propagator(elements)
	if err != nil {
		return transform.Observation{}, err
	}
	teme, err := p.Propagate(at)
	if err != nil {
		return transform.Observation{}, err
	}
	return transform.Observe(teme, s.Observer(), at), nil
}
