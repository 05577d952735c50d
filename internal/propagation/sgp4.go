// Package propagation evaluates two-line element sets with SGP4/SDP4.
package propagation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/tle"
	"github.com/gosnold/satellite-observation-tools/internal/transform"
	satellite "github.com/joshuaferrara/go-satellite"
)

// go-satellite handles near-Earth (SGP4) and deep-space (SDP4) element sets
// alike; most targets here are geostationary, so SDP4 is the common path.
//
// satellite.Propagate takes the Satellite by value and drops its error code,
// so failures are detected from the output: NaN/Inf or a radius no orbiting
// object can have (inside the Earth, or past the Moon's sphere of influence).

// ErrPropagation is returned when an element set cannot be evaluated.
var ErrPropagation = errors.New("propagation failed")

// Physically possible TEME radius range (km).
const (
	minRadiusKm = 6200.0
	maxRadiusKm = 1.0e6
)

const tleLineLen = 69

// SGP4Propagator evaluates one element set. Safe for concurrent use: the
// library state is copied on every call.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator initializes SGP4 for the given element lines. Any error
// wraps ErrPropagation.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	line1, line2 = strings.TrimSpace(line1), strings.TrimSpace(line2)
	// go-satellite calls log.Fatal on lines it cannot parse.
	if err := checkLines(line1, line2); err != nil {
		return nil, fmt.Errorf("%w: NORAD %d: %v", ErrPropagation, noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w: NORAD %d: sgp4 init error %d (%s)", ErrPropagation, noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

// NewFromEntry initializes SGP4 for a catalog entry.
func NewFromEntry(e tle.Entry) (*SGP4Propagator, error) {
	return NewSGP4Propagator(e.Line1, e.Line2, e.NORADID)
}

func checkLines(line1, line2 string) error {
	for i, l := range []string{line1, line2} {
		if len(l) != tleLineLen {
			return fmt.Errorf("line %d has %d characters, want %d", i+1, len(l), tleLineLen)
		}
		if l[0] != byte('1'+i) || l[1] != ' ' {
			return fmt.Errorf("line %d does not start with %q", i+1, string(rune('1'+i))+" ")
		}
	}
	if n1, n2 := strings.TrimSpace(line1[2:7]), strings.TrimSpace(line2[2:7]); n1 != n2 {
		return fmt.Errorf("catalog numbers differ between lines: %q and %q", n1, n2)
	}
	return nil
}

// NORADID returns the catalog number of the element set.
func (p *SGP4Propagator) NORADID() int {
	return p.noradID
}

// Propagate returns the TEME position (km) and velocity (km/s) at t.
// t is truncated to the whole UTC second.
func (p *SGP4Propagator) Propagate(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return transform.PositionTEME{}, fmt.Errorf("%w: NORAD %d at %s: no finite solution",
			ErrPropagation, p.noradID, t.Format(time.RFC3339))
	case r < minRadiusKm || r > maxRadiusKm:
		return transform.PositionTEME{}, fmt.Errorf("%w: NORAD %d at %s: radius %.1f km out of range",
			ErrPropagation, p.noradID, t.Format(time.RFC3339), r)
	}

	return transform.PositionTEME{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		VX: vel.X, VY: vel.Y, VZ: vel.Z,
	}, nil
}
