package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/unit"
)

// Observation is the apparent topocentric place of a satellite seen from a
// ground observer at one instant.
type Observation struct {
	RAHours      float64 // apparent right ascension, true equinox of date, [0, 24)
	DecDeg       float64 // apparent declination, true equator of date, [-90, 90]
	RangeKm      float64
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon
}

// EquationOfEquinoxes returns the nutation in right ascension (radians) at t,
// i.e. GAST - GMST, from the IAU 1980 nutation series.
// UTC stands in for TT; the ~70s difference is far below the series' precision.
func EquationOfEquinoxes(t time.Time) float64 {
	jde := JulianDate(t)
	Δψ, Δε := nutation.Nutation(jde)
	ε0 := nutation.MeanObliquity(jde)
	return Δψ.Rad() * math.Cos((ε0 + Δε).Rad())
}

// ObserverTEME rotates the observer's ECEF position into the TEME frame
// using gmst (radians). Output is in km to match SGP4 output.
//
//	r_TEME = R3(-θ) * r_ECEF
func ObserverTEME(obs ObserverPosition, gmst float64) (x, y, z float64) {
	x, y = rotZ(obs.ECEFx, obs.ECEFy, -gmst)
	return x / 1000, y / 1000, obs.ECEFz / 1000
}

// Observe computes the apparent topocentric place of a satellite given in
// TEME (km) at UTC time t as seen by obs.
//
// The topocentric vector is formed in TEME, whose equator is the true equator
// of date and whose x-axis is the mean equinox. Adding the equation of the
// equinoxes to the TEME right ascension gives right ascension referred to the
// true equinox, which is what a telescope pointing at "apparent" coordinates
// expects. Light-time (~0.12s for GEO) and diurnal aberration are not applied.
func Observe(sat PositionTEME, obs ObserverPosition, t time.Time) Observation {
	gmst := GMST(t)

	ox, oy, oz := ObserverTEME(obs, gmst)
	rx := sat.X - ox
	ry := sat.Y - oy
	rz := sat.Z - oz
	rng := math.Sqrt(rx*rx + ry*ry + rz*rz)

	ra := unit.RAFromRad(math.Atan2(ry, rx) + EquationOfEquinoxes(t))
	raHours := ra.Hour()
	if raHours >= 24 {
		raHours -= 24
	}
	dec := unit.Angle(math.Asin(rz / rng))

	ecef := TEMEToECEFWithGMST(sat, gmst)
	la := LookAt(obs, ecef)

	return Observation{
		RAHours:      raHours,
		DecDeg:       dec.Deg(),
		RangeKm:      rng,
		AzimuthDeg:   la.AzimuthDeg,
		ElevationDeg: la.ElevationDeg,
	}
}
