package transform

import (
	"math"

	"github.com/soniakeys/unit"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0             // semi-major axis, m
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ObserverPosition is a site on the ground, geodetic and ECEF.
// The ECEF vector is computed once per site and reused for every exposure.
type ObserverPosition struct {
	Lat, Lon unit.Angle
	AltM     float64 // above the ellipsoid
	ECEFx    float64 // m
	ECEFy    float64 // m
	ECEFz    float64 // m
}

// LookAngles is the horizontal place of a satellite seen from a site.
type LookAngles struct {
	AzimuthDeg   float64 // from north through east, [0, 360)
	ElevationDeg float64 // above the geometric horizon
	RangeKm      float64
}

// AboveHorizon reports whether the satellite clears minDeg of elevation.
func (la LookAngles) AboveHorizon(minDeg float64) bool {
	return la.ElevationDeg >= minDeg
}

// NewObserverPosition places an observer at geodetic latitude and longitude
// (degrees, east positive) and altM meters above the WGS-84 ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := unit.AngleFromDeg(latDeg)
	lon := unit.AngleFromDeg(lonDeg)
	sinLat, cosLat := lat.Sincos()
	sinLon, cosLon := lon.Sincos()

	// Prime vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		Lat:   lat,
		Lon:   lon,
		AltM:  altM,
		ECEFx: (n + altM) * cosLat * cosLon,
		ECEFy: (n + altM) * cosLat * sinLon,
		ECEFz: (n*(1-wgs84E2) + altM) * sinLat,
	}
}

// GeodeticPoint is a position over the WGS-84 ellipsoid.
type GeodeticPoint struct {
	LatDeg, LonDeg float64
	AltM           float64
}

// SubPoint returns the point on the ground below pos (the sub-satellite
// point) and the height of pos above it. Latitude is found by fixed-point
// iteration from Bowring's starting value; five rounds reach sub-millimeter
// agreement for any orbit.
func SubPoint(pos PositionECEF) GeodeticPoint {
	p := math.Hypot(pos.X, pos.Y)
	lon := unit.Angle(math.Atan2(pos.Y, pos.X))
	lat := unit.Angle(math.Atan2(pos.Z, p*(1-wgs84E2)))

	var n float64
	for range 5 {
		sinLat := lat.Sin()
		n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = unit.Angle(math.Atan2(pos.Z+wgs84E2*n*sinLat, p))
	}

	sinLat, cosLat := lat.Sincos()
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		// Over a pole.
		alt = math.Abs(pos.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{LatDeg: lat.Deg(), LonDeg: lon.Deg(), AltM: alt}
}

// LookAt returns the azimuth, elevation and range of pos (ECEF, meters)
// from obs, through the topocentric south-east-zenith frame.
func LookAt(obs ObserverPosition, pos PositionECEF) LookAngles {
	rx := pos.X - obs.ECEFx
	ry := pos.Y - obs.ECEFy
	rz := pos.Z - obs.ECEFz

	sinLat, cosLat := obs.Lat.Sincos()
	sinLon, cosLon := obs.Lon.Sincos()

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz
	rng := math.Sqrt(south*south + east*east + zenith*zenith)

	el := unit.Angle(math.Asin(zenith / rng))
	az := unit.Angle(math.Atan2(east, -south)).Mod1()

	return LookAngles{
		AzimuthDeg:   az.Deg(),
		ElevationDeg: el.Deg(),
		RangeKm:      rng / 1000.0,
	}
}
