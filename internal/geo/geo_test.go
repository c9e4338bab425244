package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 38.5, Lon: -9.2}
	require.InDelta(t, 0, Distance(p, p), 1e-6)
}

func TestDistanceKnownSeparation(t *testing.T) {
	// Roughly 1 degree of latitude is ~111.2km.
	a := Point{Lat: 38.0, Lon: -9.0}
	b := Point{Lat: 39.0, Lon: -9.0}
	d := Distance(a, b)
	require.InDelta(t, 111195, d, 1000)
}

func TestBearingDueNorth(t *testing.T) {
	a := Point{Lat: 38.0, Lon: -9.0}
	b := Point{Lat: 39.0, Lon: -9.0}
	// Due north with no longitude delta: sin(dLambda)=0 so y=0, x=cos*sin-sin*cos=sin(phi2-phi1)>0 => atan2(0,+)=0
	brg := BearingDeg(a, b)
	require.InDelta(t, 0, brg, 1e-6)
}

func TestNormalizeAngleBoundaries(t *testing.T) {
	require.InDelta(t, 180, NormalizeAngleDeg(180), 1e-9)
	require.InDelta(t, 180, NormalizeAngleDeg(-180), 1e-9)
	require.InDelta(t, -179, NormalizeAngleDeg(181), 1e-9)
}

func TestEMA(t *testing.T) {
	out := EMA(10, 20, 0.34)
	require.InDelta(t, 0.66*10+0.34*20, out, 1e-9)
}

func TestAcceptanceRegion(t *testing.T) {
	r := AcceptanceRegion{LatFloor: 38, LonFloor: -9}
	require.True(t, r.Accepts(Point{Lat: 38.5, Lon: -9.2}))
	require.False(t, r.Accepts(Point{Lat: 0, Lon: 0}))
}

func TestMeanPoint(t *testing.T) {
	pts := []Point{
		{Lat: 38.1, Lon: -9.1},
		{Lat: 38.3, Lon: -9.3},
	}
	mean := MeanPoint(pts)
	require.InDelta(t, 38.2, mean.Lat, 1e-6)
	require.InDelta(t, -9.2, mean.Lon, 1e-6)
}

func TestMeanPointPanicsOnEmpty(t *testing.T) {
	require.Panics(t, func() { MeanPoint(nil) })
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 38.5, Lon: -9.2}
	b := Point{Lat: 38.7, Lon: -9.0}
	require.True(t, math.Abs(Distance(a, b)-Distance(b, a)) < 1e-9)
}
