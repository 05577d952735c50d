package passes

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gosnold/satellite-observation-tools/internal/propagation"
	"github.com/gosnold/satellite-observation-tools/internal/site"
	"github.com/gosnold/satellite-observation-tools/internal/tle"
)

var (
	issEntry = tle.Entry{
		NORADID: 25544,
		Name:    "ISS (ZARYA)",
		Line1:   "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005",
		Line2:   "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09",
		Epoch:   time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
	}
	// Geostationary near 63W, about 14 degrees up from Nerpio.
	astra2G = tle.Entry{
		NORADID: 40364,
		Name:    "ASTRA 2G",
		Line1:   "1 40364U 14089A   24100.50000000  .00000140  00000-0  00000-0 0  9995",
		Line2:   "2 40364   0.0500 275.4000 0003000 100.0000 300.0000  1.00271000 34000",
		Epoch:   time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
	}
	// Geostationary near 72E, a few degrees above Nerpio's horizon.
	lowGEO = tle.Entry{
		NORADID: 40258,
		Name:    "LOW GEO",
		Line1:   "1 40258U 14055A   24100.50000000 -.00000250  00000-0  00000-0 0  9991",
		Line2:   "2 40258   0.0300  90.5000 0002000 200.0000 160.0000  1.00272000 35000",
		Epoch:   time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
	}
)

var nerpio = site.Site{Name: "Nerpio", Latitude: 38.15, Longitude: -2.31667, Elevation: 1650, UTCOffset: 2}

var start = time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)

func TestPredictISS(t *testing.T) {
	results := Predict(context.Background(), Request{
		Site:         nerpio,
		Entries:      []tle.Entry{issEntry},
		Start:        start,
		Window:       24 * time.Hour,
		MinElevation: 0,
		MaxPasses:    10,
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]
	if res.NORADID != 25544 || res.Name != "ISS (ZARYA)" {
		t.Errorf("result identity = %s/%d", res.Name, res.NORADID)
	}
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Passes) == 0 {
		t.Fatal("expected at least 1 ISS pass over Nerpio in 24h")
	}

	for i, p := range res.Passes {
		if p.Duration() < minDuration && !p.OpenStart {
			t.Errorf("pass %d: duration %v too short", i, p.Duration())
		}
		if p.MaxElevationDeg < 0 || p.MaxElevationDeg > 90 {
			t.Errorf("pass %d: max elevation %.2f out of range", i, p.MaxElevationDeg)
		}
		for _, az := range []float64{p.RiseAzimuthDeg, p.CulminationAzimuthDeg, p.SetAzimuthDeg} {
			if az < 0 || az >= 360 {
				t.Errorf("pass %d: azimuth %.2f out of range", i, az)
			}
		}
		if p.Culmination.Before(p.Rise) || p.Set.Before(p.Culmination) {
			t.Errorf("pass %d: time ordering violated: rise=%v culm=%v set=%v", i, p.Rise, p.Culmination, p.Set)
		}
		// An ISS pass lasts minutes, never hours.
		if p.Duration() > 15*time.Minute {
			t.Errorf("pass %d: duration %v too long for LEO", i, p.Duration())
		}
		if len(p.Track) == 0 {
			t.Errorf("pass %d: no track points", i)
		}
		if i > 0 && !res.Passes[i-1].Set.Before(p.Rise) {
			t.Errorf("pass %d overlaps pass %d", i, i-1)
		}
	}
}

func TestPredictMinElevationFilter(t *testing.T) {
	req := Request{
		Site:      nerpio,
		Entries:   []tle.Entry{issEntry},
		Start:     start,
		Window:    48 * time.Hour,
		MaxPasses: 30,
	}
	low := Predict(context.Background(), req)

	req.MinElevation = 45
	high := Predict(context.Background(), req)

	nLow, nHigh := len(low[0].Passes), len(high[0].Passes)
	if nLow == 0 {
		t.Fatal("expected passes with min elevation 0")
	}
	if nHigh >= nLow {
		t.Errorf("min elevation 45 passes (%d) should be fewer than min elevation 0 passes (%d)", nHigh, nLow)
	}
	for i, p := range high[0].Passes {
		if p.MaxElevationDeg < 45 {
			t.Errorf("pass %d max elevation %.1f below the 45 degree threshold", i, p.MaxElevationDeg)
		}
	}
}

func TestPredictMaxPasses(t *testing.T) {
	results := Predict(context.Background(), Request{
		Site:      nerpio,
		Entries:   []tle.Entry{issEntry},
		Start:     start,
		Window:    48 * time.Hour,
		MaxPasses: 2,
	})
	if n := len(results[0].Passes); n != 2 {
		t.Errorf("got %d passes, want 2", n)
	}
}

func TestPredictGeostationary(t *testing.T) {
	night := time.Date(2024, 4, 10, 20, 0, 0, 0, time.UTC)
	window := 8 * time.Hour

	results := Predict(context.Background(), Request{
		Site:         nerpio,
		Entries:      []tle.Entry{astra2G, lowGEO},
		Start:        night,
		Window:       window,
		MinElevation: 10,
	})

	up := results[0]
	if up.Err != nil {
		t.Fatalf("ASTRA 2G: %v", up.Err)
	}
	if len(up.Passes) != 1 {
		t.Fatalf("ASTRA 2G: got %d passes, want one spanning the night", len(up.Passes))
	}
	p := up.Passes[0]
	if !p.OpenStart || !p.OpenEnd {
		t.Errorf("pass should be open at both ends: %+v", p)
	}
	if !p.Rise.Equal(night) || !p.Set.Equal(night.Add(window)) {
		t.Errorf("pass = %v..%v, want the whole window", p.Rise, p.Set)
	}
	if p.MaxElevationDeg < 10 || p.MaxElevationDeg > 20 {
		t.Errorf("max elevation %.2f, want about 14", p.MaxElevationDeg)
	}
	for _, tp := range p.Track {
		if math.Abs(tp.LatitudeDeg) > 1 || tp.AltitudeM < 35_000_000 || tp.AltitudeM > 36_500_000 {
			t.Errorf("sub-satellite point %+v not geostationary", tp)
			break
		}
	}

	if n := len(results[1].Passes); n != 0 {
		t.Errorf("LOW GEO below 10 degrees: got %d passes, want 0", n)
	}
}

func TestPredictCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Predict(ctx, Request{
		Site:    nerpio,
		Entries: []tle.Entry{issEntry},
		Start:   start,
		Window:  24 * time.Hour,
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", results[0].Err)
	}
}

func TestPredictInvalidEntry(t *testing.T) {
	bad := tle.Entry{
		NORADID: 99999,
		Name:    "BAD SAT",
		Line1:   "1 99999U 00000A   25045.00000000",
		Line2:   "2 99999   0.0000",
	}

	results := Predict(context.Background(), Request{
		Site:      nerpio,
		Entries:   []tle.Entry{issEntry, bad},
		Start:     start,
		Window:    24 * time.Hour,
		MaxPasses: 3,
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("ISS should succeed, got error: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, propagation.ErrPropagation) {
		t.Errorf("bad entry error = %v, want ErrPropagation", results[1].Err)
	}
}

// haversineKm computes the great-circle distance (km) between two geodetic points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// maxGroundDistKm is the largest great-circle distance between the site and
// the sub-satellite point for an object seen at elevation elevDeg and
// altitude altM: ρ = acos(R·cos(ε)/(R+h)) − ε.
func maxGroundDistKm(elevDeg, altM float64) float64 {
	const R = 6371.0
	h := altM / 1000.0
	elevRad := elevDeg * math.Pi / 180
	arg := R * math.Cos(elevRad) / (R + h)
	if arg > 1 {
		arg = 1
	}
	rho := math.Acos(arg) - elevRad
	if rho < 0 {
		rho = 0
	}
	return R * rho
}

// TestTrackPhysicalConsistency checks that every track point's sub-satellite
// position agrees with the elevation reported for it.
func TestTrackPhysicalConsistency(t *testing.T) {
	results := Predict(context.Background(), Request{
		Site:      nerpio,
		Entries:   []tle.Entry{issEntry},
		Start:     start,
		Window:    24 * time.Hour,
		MaxPasses: 20,
	})
	res := results[0]
	if res.Err != nil {
		t.Fatalf("error: %v", res.Err)
	}
	if len(res.Passes) == 0 {
		t.Fatal("no passes found over Nerpio in 24h")
	}

	for pi, p := range res.Passes {
		for gi, tp := range p.Track {
			dist := haversineKm(nerpio.Latitude, nerpio.Longitude, tp.LatitudeDeg, tp.LongitudeDeg)
			maxPossible := maxGroundDistKm(tp.ElevationDeg, tp.AltitudeM)
			if maxPossible > 0 && dist > maxPossible*1.5 {
				t.Errorf("pass %d point %d: dist %.0fkm exceeds max physical %.0fkm (el=%.1f alt=%.0fm)",
					pi, gi, dist, maxPossible, tp.ElevationDeg, tp.AltitudeM)
			}
		}
	}
}

func BenchmarkPredict50Entries24h(b *testing.B) {
	entries := make([]tle.Entry, 50)
	for i := range entries {
		entries[i] = issEntry
		entries[i].NORADID = 25544 + i
	}
	req := Request{
		Site:         nerpio,
		Entries:      entries,
		Start:        start,
		Window:       24 * time.Hour,
		MinElevation: 10,
		MaxPasses:    10,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Predict(context.Background(), req)
	}
}
