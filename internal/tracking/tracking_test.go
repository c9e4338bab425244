package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/autorecord"
	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/fsutil"
	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/motion"
	"github.com/soar-cam/trackerd/internal/serialport"
	"github.com/soar-cam/trackerd/internal/ssb"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

func TestZoomForDistanceExactAndInterpolated(t *testing.T) {
	require.Equal(t, 1.0, zoomForDistance(1))
	require.Equal(t, 25.0, zoomForDistance(600))
	// Halfway between 25m(->2) and 50m(->4) should land near 3.
	require.InDelta(t, 3.0, zoomForDistance(37.5), 0.01)
}

func TestZoomForDistanceClampsOutOfRange(t *testing.T) {
	require.Equal(t, 1.0, zoomForDistance(0))
	require.Equal(t, 25.0, zoomForDistance(10000))
}

// respondingPort decodes FBL request frames and synthesizes a plausible
// response, and accepts ZL fire-and-forget writes unconditionally, so the
// integration tests don't depend on a hand-counted transaction order.
type respondingPort struct {
	readBuf []byte
	isFBL   bool
}

func (p *respondingPort) Write(b []byte) (int, error) {
	if !p.isFBL {
		return len(b), nil
	}
	op, _, err := fbl.ParseFrame(b)
	if err != nil {
		return 0, err
	}
	var resp []byte
	switch op {
	case fbl.OpGetTrackerMessage:
		resp, _ = fbl.BuildFrame(op, []byte{0x00})
	case fbl.OpGetHallStatus:
		resp, _ = fbl.BuildFrame(op, []byte{0x00, 0x00})
	default:
		resp, _ = fbl.BuildFrame(op, nil)
	}
	p.readBuf = append(p.readBuf, resp...)
	return len(b), nil
}

func (p *respondingPort) Read(b []byte) (int, error) {
	n := copy(b, p.readBuf)
	p.readBuf = p.readBuf[n:]
	return n, nil
}

func (p *respondingPort) Close() error                          { return nil }
func (p *respondingPort) SetReadTimeout(d time.Duration) error { return nil }

func newTestCore(t *testing.T) *Core {
	t.Helper()
	fblPort := &respondingPort{isFBL: true}
	zlPort := &respondingPort{isFBL: false}
	fblLink := serialport.NewLink(fblPort)
	zlLink := serialport.NewLink(zlPort)
	cfg := config.EmptyTuningConfig()
	clock := timeutil.NewMockClock(time.Now())
	bus := ssb.New(fsutil.NewMemoryFileSystem())
	mc := motion.NewController(fblLink, cfg)
	ar := autorecord.New(cfg, clock)
	return NewCore(bus, fblLink, zlLink, mc, ar, cfg, clock)
}

func TestTickParksWhenTrackingDisabled(t *testing.T) {
	c := newTestCore(t)
	c.bus.Set(ssb.KeyTrackingEnabled, false)
	c.Tick()
	// No panic, and the pan-rate window should remain clear.
	require.Equal(t, 0, c.panRate.Len())
}

func TestDispatchCommandConsumesCalibratePanCenterFlag(t *testing.T) {
	c := newTestCore(t)
	c.bus.Set(ssb.KeyCalibratePanCenter, true)
	handled := c.dispatchCommand()
	require.True(t, handled)
	require.False(t, c.bus.GetBool(ssb.KeyCalibratePanCenter))
}

func TestPanTargetNormalizesAndAppliesHeading(t *testing.T) {
	c := newTestCore(t)
	origin := geo.Point{Lat: 38.0, Lon: -9.0}
	fix := geo.Point{Lat: 38.001, Lon: -9.0}
	// Due-north bearing is 0 rad; with 0 heading, pan target should be ~0.
	target := c.panTarget(origin, fix, 0)
	require.InDelta(t, 0, target, 0.5)
}

func TestTiltTargetSmoothsAcrossTicks(t *testing.T) {
	c := newTestCore(t)
	first := c.tiltTarget(100, 8)
	second := c.tiltTarget(100, 8)
	// Stable input should converge, not oscillate away from the raw value.
	require.InDelta(t, first, second, 5)
}

func TestUpdateZoomPushesOnlyBeyondHysteresis(t *testing.T) {
	c := newTestCore(t)
	c.bus.Set(ssb.KeyCameraZoomMultiplier, 1.0)
	c.updateZoom(1) // zoomForDistance(1) == 1.0, equal to the bus's 1.0 default, so no push
	require.Equal(t, 1.0, c.bus.Get(ssb.KeyCameraZoomValue))

	// A tiny nudge under the 0.25 hysteresis band should not push again,
	// so the stored value stays put.
	c.bus.Set(ssb.KeyCameraZoomValue, 1.1)
	c.updateZoom(1)
	require.Equal(t, 1.1, c.bus.Get(ssb.KeyCameraZoomValue))
}

func TestEstimatePanRateReturnsZeroOnFirstSample(t *testing.T) {
	c := newTestCore(t)
	rate := c.estimatePanRate(10, time.Now())
	require.Equal(t, 0.0, rate)
	require.False(t, math.IsNaN(c.estimatePanRate(12, time.Now())))
}
