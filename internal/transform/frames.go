// Package transform carries SGP4 output to what a telescope needs: the
// apparent topocentric place of the satellite and its horizontal coordinates
// at the site.
//
// SGP4 works in TEME (true equator, mean equinox). The Earth-fixed frame is
// reached with a single rotation by Greenwich mean sidereal time; polar motion
// is ignored, a few meters at most and far below an arcsecond for the
// geostationary targets this is used for.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", ch. 3.
package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"
)

// j2000 is JD 2451545.0, 2000 January 1 12h TT.
const j2000 = 2451545.0

// PositionTEME is an SGP4 state vector.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// PositionECEF is an Earth-fixed position in meters.
type PositionECEF struct {
	X, Y, Z float64
}

// JulianDate returns the Julian Date of t on the UTC scale. UTC stands in for
// both UT1 (sidereal time) and TT (nutation); neither difference is visible
// at the precision of a plan.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// GMST returns Greenwich mean sidereal time at t, in radians in [0, 2π),
// from the IAU-82 expression (Vallado eq. 3-47) that SGP4 itself uses.
func GMST(t time.Time) float64 {
	c := (JulianDate(t) - j2000) / 36525
	sec := 67310.54841 + (876600*3600+8640184.812866)*c + 0.093104*c*c - 6.2e-6*c*c*c
	return unit.Angle(sec / 86400 * 2 * math.Pi).Mod1().Rad()
}

// rotZ rotates (x, y) by -θ about the z axis, i.e. applies R3(θ).
func rotZ(x, y, θ float64) (float64, float64) {
	s, c := math.Sincos(θ)
	return x*c + y*s, -x*s + y*c
}

// TEMEToECEF rotates a TEME position (km) into the Earth-fixed frame at t.
// The result is in meters.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST is TEMEToECEF for a precomputed GMST (radians).
//
//	r_ECEF = R3(θ) r_TEME
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	x, y := rotZ(teme.X, teme.Y, gmst)
	return PositionECEF{X: x * 1000, Y: y * 1000, Z: teme.Z * 1000}
}
