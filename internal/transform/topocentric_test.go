package transform

import (
	"math"
	"testing"
)

func norm(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// above returns the ECEF position altM over a geodetic point.
func above(latDeg, lonDeg, altM float64) PositionECEF {
	p := NewObserverPosition(latDeg, lonDeg, altM)
	return PositionECEF{X: p.ECEFx, Y: p.ECEFy, Z: p.ECEFz}
}

func TestNewObserverPosition_Radius(t *testing.T) {
	tests := []struct {
		name   string
		latDeg float64
		altM   float64
		want   float64
	}{
		{"equator", 0, 0, 6378137.0},
		{"pole", 90, 0, 6356752.3},
		{"equator 100m up", 0, 100, 6378237.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := NewObserverPosition(tt.latDeg, 0, tt.altM)
			if r := norm(obs.ECEFx, obs.ECEFy, obs.ECEFz); math.Abs(r-tt.want) > 1.0 {
				t.Errorf("radius = %.1f m, want %.1f", r, tt.want)
			}
		})
	}
}

func TestSubPoint_RoundTrip(t *testing.T) {
	tests := []struct {
		latDeg, lonDeg, altM float64
	}{
		{38.15, -2.31667, 1650},        // Nerpio
		{-31.273333, 149.064444, 1165}, // Siding Spring
		{0.02, -62.8, 35_786_000},      // geostationary
		{51.6, 100, 420_000},           // ISS at its northern limit
		{-89.9, 10, 800_000},           // near the pole
	}
	for _, tt := range tests {
		got := SubPoint(above(tt.latDeg, tt.lonDeg, tt.altM))
		if math.Abs(got.LatDeg-tt.latDeg) > 1e-7 || math.Abs(got.LonDeg-tt.lonDeg) > 1e-7 {
			t.Errorf("SubPoint(%v) = %.8f, %.8f", tt, got.LatDeg, got.LonDeg)
		}
		if math.Abs(got.AltM-tt.altM) > 1e-3 {
			t.Errorf("SubPoint(%v) altitude = %.4f m", tt, got.AltM)
		}
	}
}

func TestLookAt_Zenith(t *testing.T) {
	obs := NewObserverPosition(38.15, -2.31667, 1650)
	la := LookAt(obs, above(38.15, -2.31667, 401650))

	if math.Abs(la.ElevationDeg-90) > 1e-6 {
		t.Errorf("elevation = %.6f, want 90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400) > 1e-6 {
		t.Errorf("range = %.6f km, want 400", la.RangeKm)
	}
}

func TestLookAt_Azimuth(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)
	tests := []struct {
		name           string
		latDeg, lonDeg float64
		wantAz         float64
	}{
		{"north", 10, 0, 0},
		{"east", 0, 10, 90},
		{"south", -10, 0, 180},
		{"west", 0, -10, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := LookAt(obs, above(tt.latDeg, tt.lonDeg, 400_000))
			d := math.Abs(la.AzimuthDeg - tt.wantAz)
			if d > 180 {
				d = 360 - d
			}
			if d > 0.5 {
				t.Errorf("azimuth = %.3f, want %.0f", la.AzimuthDeg, tt.wantAz)
			}
			if la.AzimuthDeg < 0 || la.AzimuthDeg >= 360 {
				t.Errorf("azimuth %.3f outside [0, 360)", la.AzimuthDeg)
			}
		})
	}
}

// A geostationary satellite far from the site's meridian is low in the sky,
// and one on the other side of the Earth is below the horizon.
func TestLookAt_Geostationary(t *testing.T) {
	nerpio := NewObserverPosition(38.15, -2.31667, 1650)

	south := LookAt(nerpio, above(0, -2.31667, 35_786_000))
	if south.ElevationDeg < 40 || south.ElevationDeg > 50 {
		t.Errorf("GEO on the meridian: elevation %.2f, want about 45", south.ElevationDeg)
	}
	if math.Abs(south.AzimuthDeg-180) > 1e-6 {
		t.Errorf("GEO on the meridian: azimuth %.6f, want 180", south.AzimuthDeg)
	}
	if !south.AboveHorizon(10) {
		t.Error("GEO on the meridian should clear 10 degrees")
	}

	far := LookAt(nerpio, above(0, 177.7, 35_786_000))
	if far.AboveHorizon(0) {
		t.Errorf("GEO on the antimeridian: elevation %.2f, want below horizon", far.ElevationDeg)
	}
}
