package transform

import (
	"math"
	"testing"
	"time"
)

// satAbove returns the TEME position (km) of a point at altM above the given
// geodetic location at time t.
func satAbove(latDeg, lonDeg, altM float64, t time.Time) PositionTEME {
	p := NewObserverPosition(latDeg, lonDeg, altM)
	x, y, z := ObserverTEME(p, GMST(t))
	return PositionTEME{X: x, Y: y, Z: z}
}

func TestObserverTEME_ZeroGMST(t *testing.T) {
	obs := NewObserverPosition(38.15, -2.31667, 1650)
	x, y, z := ObserverTEME(obs, 0)

	if math.Abs(x-obs.ECEFx/1000) > 1e-9 || math.Abs(y-obs.ECEFy/1000) > 1e-9 || math.Abs(z-obs.ECEFz/1000) > 1e-9 {
		t.Errorf("ObserverTEME(gmst=0) = [%f, %f, %f] km, want ECEF/1000 [%f, %f, %f]",
			x, y, z, obs.ECEFx/1000, obs.ECEFy/1000, obs.ECEFz/1000)
	}
}

// TestObserverTEME_InverseOfTEMEToECEF checks that rotating the observer into
// TEME and back with TEMEToECEFWithGMST recovers its ECEF position.
func TestObserverTEME_InverseOfTEMEToECEF(t *testing.T) {
	obs := NewObserverPosition(-31.273333, 149.064444, 1165)

	for _, gmst := range []float64{0.3, 1.7, 4.2, 6.1} {
		x, y, z := ObserverTEME(obs, gmst)
		back := TEMEToECEFWithGMST(PositionTEME{X: x, Y: y, Z: z}, gmst)

		if math.Abs(back.X-obs.ECEFx) > 1e-3 || math.Abs(back.Y-obs.ECEFy) > 1e-3 || math.Abs(back.Z-obs.ECEFz) > 1e-3 {
			t.Errorf("gmst=%.1f: round trip = [%.3f, %.3f, %.3f] m, want [%.3f, %.3f, %.3f] m",
				gmst, back.X, back.Y, back.Z, obs.ECEFx, obs.ECEFy, obs.ECEFz)
		}
	}
}

func TestEquationOfEquinoxes_Magnitude(t *testing.T) {
	// The equation of the equinoxes never exceeds ~1.2s of time (~18 arcsec).
	const maxRad = 1.2 * 15.0 / 3600.0 * math.Pi / 180.0

	for _, tm := range []time.Time{
		time.Date(2015, 8, 24, 0, 30, 0, 0, time.UTC),
		time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 17, 22, 0, 0, 0, time.UTC),
	} {
		eq := EquationOfEquinoxes(tm)
		if eq == 0 || math.Abs(eq) > maxRad {
			t.Errorf("EquationOfEquinoxes(%v) = %.3e rad, want non-zero and |eq| <= %.3e", tm, eq, maxRad)
		}
	}
}

// TestObserve_Zenith places a satellite straight above an equatorial observer.
// Its apparent RA must equal the local apparent sidereal time and its
// declination the observer's latitude.
func TestObserve_Zenith(t *testing.T) {
	tm := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	obs := NewObserverPosition(0, 0, 0)
	sat := satAbove(0, 0, 35786000, tm)

	o := Observe(sat, obs, tm)

	wantRA := math.Mod((GMST(tm)+EquationOfEquinoxes(tm))*12/math.Pi, 24)
	if math.Abs(o.RAHours-wantRA) > 1e-6 {
		t.Errorf("RA = %.8f h, want %.8f h (local apparent sidereal time)", o.RAHours, wantRA)
	}
	if math.Abs(o.DecDeg) > 1e-6 {
		t.Errorf("Dec = %.8f deg, want 0", o.DecDeg)
	}
	if math.Abs(o.ElevationDeg-90) > 1e-3 {
		t.Errorf("elevation = %.4f deg, want 90", o.ElevationDeg)
	}
	if math.Abs(o.RangeKm-35786) > 0.01 {
		t.Errorf("range = %.3f km, want 35786", o.RangeKm)
	}
}

// TestObserve_GeoParallax checks the topocentric declination of a GEO object on
// the observer's meridian, seen from Nerpio. Parallax pushes it ~6 degrees
// south of the celestial equator.
func TestObserve_GeoParallax(t *testing.T) {
	tm := time.Date(2015, 8, 24, 0, 30, 0, 0, time.UTC)
	obs := NewObserverPosition(38.15, -2.31667, 1650)
	sat := satAbove(0, -2.31667, 35786000, tm)

	o := Observe(sat, obs, tm)

	if o.DecDeg > -5.7 || o.DecDeg < -6.3 {
		t.Errorf("Dec = %.3f deg, want about -6.0", o.DecDeg)
	}
	if math.Abs(o.AzimuthDeg-180) > 0.01 {
		t.Errorf("azimuth = %.3f deg, want 180 (due south)", o.AzimuthDeg)
	}
	if o.ElevationDeg < 40 || o.ElevationDeg > 50 {
		t.Errorf("elevation = %.3f deg, want about 45.7", o.ElevationDeg)
	}
}

func TestObserve_RARange(t *testing.T) {
	obs := NewObserverPosition(32.9, -105.5, 2250)
	start := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	for h := 0; h < 24; h++ {
		tm := start.Add(time.Duration(h) * time.Hour)
		o := Observe(satAbove(0, -100, 35786000, tm), obs, tm)
		if o.RAHours < 0 || o.RAHours >= 24 {
			t.Errorf("%v: RA = %f h, want [0, 24)", tm, o.RAHours)
		}
		if o.DecDeg < -90 || o.DecDeg > 90 {
			t.Errorf("%v: Dec = %f deg, want [-90, 90]", tm, o.DecDeg)
		}
	}
}

func TestObserve_Deterministic(t *testing.T) {
	tm := time.Date(2024, 4, 10, 3, 14, 15, 0, time.UTC)
	obs := NewObserverPosition(38.15, -2.31667, 1650)
	sat := satAbove(0.05, 19.2, 35786000, tm)

	a := Observe(sat, obs, tm)
	b := Observe(sat, obs, tm)
	if a != b {
		t.Errorf("Observe is not deterministic: %+v != %+v", a, b)
	}
}
