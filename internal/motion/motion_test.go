package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/serialport"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

func TestPanPulseAndTiltPulse(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	require.Equal(t, int32(1000), PanPulse(0, 1000, cfg))

	// 1 degree * 40 / 0.088 ~= 454.5 -> rounds to 455 above center.
	require.Equal(t, int32(1455), PanPulse(1, 1000, cfg))

	// Tilt 0 should map to the configured zero pulse.
	require.Equal(t, int32(cfg.GetTiltZeroPulse()), TiltPulse(0, cfg))
}

func TestClampAngles(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	require.Equal(t, cfg.GetMaxPanAngle(), ClampPanAngle(999, cfg))
	require.Equal(t, -cfg.GetMaxPanAngle(), ClampPanAngle(-999, cfg))
	require.Equal(t, 0.0, ClampTiltAngle(-5, cfg))
	require.Equal(t, cfg.GetMaxTiltAngle(), ClampTiltAngle(999, cfg))
}

func TestDynamixelVelocitySignAndClamp(t *testing.T) {
	require.Equal(t, int32(0), DynamixelVelocity(0))
	require.Greater(t, DynamixelVelocity(60), int32(0))
	require.Less(t, DynamixelVelocity(-60), int32(0))

	// Very high speed clamps to the 2047 unit ceiling.
	require.Equal(t, int32(2047), DynamixelVelocity(1e9))
	require.Equal(t, int32(-2047), DynamixelVelocity(-1e9))
}

func TestPanRateWindowClearsOnTrendReversal(t *testing.T) {
	w := NewPanRateWindow()
	w.Add(1.0)
	w.Add(2.0)
	require.Equal(t, 2, w.Len())

	w.Add(-5.0) // reversal clears the window
	require.Equal(t, 1, w.Len())
	require.Equal(t, -5.0, w.Average())
}

func TestPanRateWindowCapsAtThree(t *testing.T) {
	w := NewPanRateWindow()
	w.Add(1.0)
	w.Add(1.0)
	w.Add(1.0)
	w.Add(1.0)
	require.Equal(t, 3, w.Len())
}

func newTestController(t *testing.T) (*Controller, *serialport.TestableSerialPort) {
	t.Helper()
	port := serialport.NewTestableSerialPort()
	link := serialport.NewLink(port)
	cfg := config.EmptyTuningConfig()
	return NewController(link, cfg), port
}

func queueDynamixelReadResponse(t *testing.T, port *serialport.TestableSerialPort, value int32) {
	t.Helper()
	b := []byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	frame, err := fbl.BuildFrame(fbl.OpDynamixelRead, b)
	require.NoError(t, err)
	port.QueueResponse(frame)
}

func TestCurrentPanAngleComputesRelativeToCenter(t *testing.T) {
	c, port := newTestController(t)
	c.SetCenterPulse(1000)
	queueDynamixelReadResponse(t, port, 1000)

	angle, err := c.CurrentPanAngle()
	require.NoError(t, err)
	require.Equal(t, 0.0, angle)
}

// respondingPort decodes each request frame's op code (and, for
// Dynamixel reads, the target register) and synthesizes the matching
// response, so the calibration integration test doesn't depend on a
// hand-counted transaction order.
type respondingPort struct {
	readBuf     []byte
	hallRight   byte
	presentPos  int32
	presentVel  int32
}

func (p *respondingPort) Write(b []byte) (int, error) {
	op, data, err := fbl.ParseFrame(b)
	if err != nil {
		return 0, err
	}

	var resp []byte
	switch op {
	case fbl.OpGetHallStatus:
		resp, _ = fbl.BuildFrame(op, []byte{0x00, p.hallRight})
	case fbl.OpDynamixelRead:
		addr := uint16(data[1])<<8 | uint16(data[2])
		var v int32
		switch addr {
		case regPresentVelocity:
			v = p.presentVel
		default:
			v = p.presentPos
		}
		vb := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		resp, _ = fbl.BuildFrame(op, vb)
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

func TestCalibratePanCenterSucceedsWhenHallTripsImmediately(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	port := &respondingPort{hallRight: 0, presentPos: 2048, presentVel: 0}
	link := serialport.NewLink(port)
	c := NewController(link, cfg)
	clock := timeutil.NewMockClock(time.Now())

	ok, err := c.CalibratePanCenter(clock)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(2048), c.CenterPulse())
}

func TestCalibratePanCenterTimesOutSearch(t *testing.T) {
	cfg := config.EmptyTuningConfig()
	port := &respondingPort{hallRight: 1, presentPos: 0, presentVel: 0}
	link := serialport.NewLink(port)
	c := NewController(link, cfg)
	clock := timeutil.NewMockClock(time.Now())

	done := make(chan struct{})
	var ok bool
	var err error
	go func() {
		ok, err = c.CalibratePanCenter(clock)
		close(done)
	}()

	for i := 0; i < 5000; i++ {
		select {
		case <-done:
			require.NoError(t, err)
			require.False(t, ok)
			return
		default:
		}
		clock.Advance(50 * time.Millisecond)
		time.Sleep(time.Microsecond)
	}
	t.Fatal("calibration did not time out as expected")
}
