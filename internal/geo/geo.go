// Package geo implements the geodetic math used to convert tracker GPS
// fixes into the camera's local pan/tilt/zoom frame: great-circle
// distance, bearing, exponential smoothing, and the deployment-region
// acceptance gate.
package geo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// earthRadiusMeters is the mean Earth radius used for great-circle
// distance, matching the control-system specification exactly.
const earthRadiusMeters = 6371000.0

// Point is a geographic coordinate in degrees, with an optional altitude
// in meters.
type Point struct {
	Lat float64
	Lon float64
	Alt float64
}

// Valid reports whether p lies within the representable lat/lon range.
func (p Point) Valid() bool {
	return math.Abs(p.Lat) <= 90 && math.Abs(p.Lon) <= 180
}

// AcceptanceRegion gates tracker fixes to the deployment region by the
// floor of latitude and longitude, matching the original implementation's
// sanity check against spurious or stale fixes from a different site.
type AcceptanceRegion struct {
	LatFloor int
	LonFloor int
}

// Accepts reports whether p falls within the region.
func (r AcceptanceRegion) Accepts(p Point) bool {
	if !p.Valid() {
		return false
	}
	return int(math.Floor(p.Lat)) == r.LatFloor && int(math.Floor(p.Lon)) == r.LonFloor
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in meters,
// using the canonical closed form named in the specification:
//
//	d = 2R * asin(sqrt(sin²(Δφ/2) + cos φ1 * cos φ2 * sin²(Δλ/2)))
//
// The original source carries two independently derived formulas for
// this (an asin form and a mathematically equivalent arccos form); only
// the asin form is implemented here since the spec names it canonical
// and the discrepancy is not flagged as a preserve-as-is Open Question.
func Distance(a, b Point) float64 {
	phi1, phi2 := toRad(a.Lat), toRad(b.Lat)
	dPhi := toRad(b.Lat - a.Lat)
	dLambda := toRad(b.Lon - a.Lon)

	sinDPhi2 := math.Sin(dPhi / 2)
	sinDLambda2 := math.Sin(dLambda / 2)

	h := sinDPhi2*sinDPhi2 + math.Cos(phi1)*math.Cos(phi2)*sinDLambda2*sinDLambda2
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bearing returns the geodesic bearing from a to b in radians, using the
// negated-y forward-azimuth form required to match the installed servo
// orientation (see specification §4.5 and Glossary).
func Bearing(a, b Point) float64 {
	phi1, phi2 := toRad(a.Lat), toRad(b.Lat)
	dLambda := toRad(b.Lon - a.Lon)

	y := -math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return math.Atan2(y, x)
}

// BearingDeg is Bearing expressed in degrees.
func BearingDeg(a, b Point) float64 {
	return toDeg(Bearing(a, b))
}

// NormalizeAngleDeg maps an angle in degrees to (-180, 180].
func NormalizeAngleDeg(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

// EMA applies one step of exponential smoothing: out = (1-alpha)*prev + alpha*new.
func EMA(prev, new, alpha float64) float64 {
	return (1-alpha)*prev + alpha*new
}

// MeanPoint returns the arithmetic mean of a set of calibration fixes,
// independently averaging latitude and longitude, rounded to 6 decimal
// places as the origin/heading calibration routines require. Panics if
// points is empty; callers are expected to have already validated a
// non-empty calibration buffer.
func MeanPoint(points []Point) Point {
	if len(points) == 0 {
		panic("geo: MeanPoint called with no points")
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	return Point{
		Lat: round6(stat.Mean(lats, nil)),
		Lon: round6(stat.Mean(lons, nil)),
	}
}

func round6(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}
