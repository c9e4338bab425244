package autorecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

func TestStartsRecordingAfterSustainedHighSpeed(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	r := New(cfg, clock)

	base := geo.Point{Lat: 38.7, Lon: -9.1}
	// A fix ~30m away per second is well above the 2.5 m/s start speed.
	fix := geo.Point{Lat: 38.70027, Lon: -9.1}

	require.False(t, r.Check(base, 0))
	require.False(t, r.Check(fix, 1))

	// Need the start dwell (3s) to elapse while speed stays high.
	clock.Set(clock.Now().Add(4 * time.Second))
	require.True(t, r.Check(fix, 5))
}

func TestStaysBelowThresholdNeverStarts(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	r := New(cfg, clock)

	base := geo.Point{Lat: 38.7, Lon: -9.1}
	near := geo.Point{Lat: 38.700001, Lon: -9.1}

	r.Check(base, 0)
	clock.Set(clock.Now().Add(10 * time.Second))
	require.False(t, r.Check(near, 10))
}

func TestStopsAfterSustainedLowSpeed(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	r := New(cfg, clock)
	r.recording = true

	base := geo.Point{Lat: 38.7, Lon: -9.1}
	require.True(t, r.Check(base, 0))

	clock.Set(clock.Now().Add(5 * time.Second))
	require.False(t, r.Check(base, 5))
}

func TestManualStopForcesOff(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	r := New(cfg, clock)
	r.recording = true

	r.ManualStop()
	require.False(t, r.IsRecording())
}

func TestDisabledNeverChangesRecommendation(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	r := New(cfg, clock)
	r.SetEnabled(false)

	base := geo.Point{Lat: 38.7, Lon: -9.1}
	fix := geo.Point{Lat: 38.70027, Lon: -9.1}
	r.Check(base, 0)
	clock.Set(clock.Now().Add(10 * time.Second))
	require.False(t, r.Check(fix, 10))
}
