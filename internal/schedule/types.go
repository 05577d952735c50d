package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
)

// ErrUnexpected wraps a panic recovered while processing a target.
var ErrUnexpected = errors.New("unexpected failure")

// Catalog resolves a target name to its element set.
// *tle.Catalog satisfies it.
type Catalog interface {
	Name() string
	Lookup(target string) (tle.Entry, error)
}

// Engine computes the apparent topocentric place of an element set.
type Engine interface {
	ApparentPosition(elements tle.Entry, at time.Time, s site.Site) (transform.Observation, error)
}

// Sink receives entries in emission order.
type Sink interface {
	Emit(Entry) error
}

// Overheads are the fixed time costs of the run, in seconds.
type Overheads struct {
	Exposure   int // one exposure
	Pointing   int // initial slew and acquisition of a target
	Repointing int // re-acquisition before the next exposure
	Reading    int // CCD readout
}

// PerExposure is the clock advance after each emitted entry.
func (o Overheads) PerExposure() int {
	return o.Exposure + o.Repointing + o.Reading
}

// Validate rejects negative durations.
func (o Overheads) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"exposure", o.Exposure},
		{"pointing", o.Pointing},
		{"repointing", o.Repointing},
		{"reading", o.Reading},
	} {
		if f.v < 0 {
			return fmt.Errorf("%s time must not be negative, got %d", f.name, f.v)
		}
	}
	return nil
}

// Entry is one pointing command: point at RA/Dec and expose through Filter.
type Entry struct {
	Target       string
	Filter       string
	RAHours      float64 // [0, 24)
	DecDeg       float64 // [-90, 90]
	Time         time.Time
	ElevationDeg float64
	AzimuthDeg   float64
	Catalog      string
	NORADID      int
}

// FailureKind classifies why a target produced fewer entries than filters.
type FailureKind string

const (
	FailureNotFound    FailureKind = "not_found"
	FailurePropagation FailureKind = "propagation"
	FailureUnexpected  FailureKind = "unexpected"
)

// Failure records an abandoned target.
type Failure struct {
	Target string
	Filter string // filter being computed when the target was abandoned; empty for not_found
	Kind   FailureKind
	Err    error
}

// Result is the outcome of a run.
type Result struct {
	Entries  []Entry
	Failures []Failure
	Start    time.Time // simulated UTC start
	End      time.Time // simulated UTC time after the last advance
	SinkErr  error     // first error returned by the sink, if any
}
