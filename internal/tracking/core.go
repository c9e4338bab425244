// Package tracking implements the Tracking Core: the 100 Hz cooperative
// loop that turns tracker GPS fixes into pan/tilt/zoom commands, arbitrates
// between velocity and position control, and drives the calibration and
// pairing command surface. Grounded on
// original_source/TrackingControlESPNOW_V2.py's main loop.
package tracking

import (
	"context"
	"math"
	"time"

	"github.com/soar-cam/trackerd/internal/autorecord"
	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/eventlog"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/motion"
	"github.com/soar-cam/trackerd/internal/serialport"
	"github.com/soar-cam/trackerd/internal/ssb"
	"github.com/soar-cam/trackerd/internal/timeutil"
	"github.com/soar-cam/trackerd/internal/zoomlink"
)

const tickInterval = 10 * time.Millisecond

// Core runs the 100 Hz tracking loop against a shared state bus, the
// front-board and zoom serial links, and the motion controller.
type Core struct {
	bus     *ssb.Bus
	fblLink *serialport.Link
	zlLink  *serialport.Link
	mc      *motion.Controller
	ar      *autorecord.Recorder
	cfg     *config.TuningConfig
	clock   timeutil.Clock
	region  geo.AcceptanceRegion

	panRate *motion.PanRateWindow

	el eventlog.Recorder

	lastGPSTime     time.Time
	haveLastGPSTime bool
	lastMotorUpdate time.Time
	lastLEDCheck    time.Time
	ledsOn          bool

	prevTiltDeg    float64
	havePrevTilt   bool
	lastPanAngle   float64
	haveLastPan    bool

	wasRecording bool
}

// NewCore wires a Core from its collaborators.
func NewCore(bus *ssb.Bus, fblLink, zlLink *serialport.Link, mc *motion.Controller, ar *autorecord.Recorder, cfg *config.TuningConfig, clock timeutil.Clock) *Core {
	return &Core{
		bus:     bus,
		fblLink: fblLink,
		zlLink:  zlLink,
		mc:      mc,
		ar:      ar,
		cfg:     cfg,
		clock:   clock,
		region:  geo.AcceptanceRegion{LatFloor: cfg.GetAcceptRegionLatFloor(), LonFloor: cfg.GetAcceptRegionLonFloor()},
		panRate: motion.NewPanRateWindow(),
	}
}

// SetEventLog wires an event log recorder that calibration attempts and
// auto-recorder transitions are reported through. Optional: a Core with
// no event log simply skips these calls.
func (c *Core) SetEventLog(el eventlog.Recorder) {
	c.el = el
}

// Run drives the tracking loop at 100 Hz until ctx is cancelled, matching
// the original's `while not d["stop"]` loop gated by a 10 ms sleep.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.park()
			return
		default:
		}
		c.Tick()
		c.clock.Sleep(tickInterval)
	}
}

// Tick runs one iteration of the loop body: LED heartbeat, command
// dispatch, a tracker poll, and (when enabled) the tracking transforms
// and motor/zoom/auto-record updates.
func (c *Core) Tick() {
	now := c.clock.Now()
	c.updateHeartbeat(now)

	if c.dispatchCommand() {
		return
	}

	trackerFix, err := fbl.GetTrackerMessage(c.fblLink, c.region)
	if err != nil {
		monitoring.Logf("tracking: tracker poll failed: %v", err)
	}
	gotFix := trackerFix.Valid

	if gotFix {
		c.lastGPSTime = now
		c.haveLastGPSTime = true
		c.bus.Set(ssb.KeyLatestGPSData, trackerFix.Point)
		c.bus.Set(ssb.KeyLastGPSTime, float64(now.Unix()))
	}

	if !c.bus.GetBool(ssb.KeyTrackingEnabled) {
		c.park()
		return
	}

	if gotFix {
		c.trackFix(trackerFix.Point, now)
		return
	}

	if c.haveLastGPSTime && now.Sub(c.lastGPSTime) >= c.cfg.GetFixStaleTimeout() {
		if err := c.mc.SetPanVelocityControl(0); err != nil {
			monitoring.Logf("tracking: hard-stop velocity mode failed: %v", err)
		}
		if err := c.mc.SetPanGoalVelocity(0); err != nil {
			monitoring.Logf("tracking: hard-stop goal velocity failed: %v", err)
		}
		c.ar.ManualStop()
	}
}

func (c *Core) dispatchCommand() bool {
	switch {
	case c.bus.GetBool(ssb.KeyCameraCalibrateOrigin):
		c.bus.Set(ssb.KeyCameraCalibrateOrigin, false)
		c.calibrateOrigin()
		return true

	case c.bus.GetBool(ssb.KeyCameraCalibrateHeading):
		c.bus.Set(ssb.KeyCameraCalibrateHeading, false)
		c.calibrateHeading()
		return true

	case c.bus.GetBool(ssb.KeyStartPairing):
		c.bus.Set(ssb.KeyStartPairing, false)
		paired, pairing, err := checkPairing(c.fblLink)
		if err != nil {
			monitoring.Logf("tracking: start pairing check failed: %v", err)
			return true
		}
		if !paired && !pairing {
			if _, err := fbl.CancelTrackerPairing(c.fblLink); err != nil {
				monitoring.Logf("tracking: cancel before pairing failed: %v", err)
			}
			if _, err := fbl.StartTrackerPairing(c.fblLink); err != nil {
				monitoring.Logf("tracking: start pairing failed: %v", err)
			} else {
				monitoring.Logf("tracking: pairing process started")
			}
		}
		return true

	case c.bus.GetBool(ssb.KeyCancelPairing):
		c.bus.Set(ssb.KeyCancelPairing, false)
		paired, _, err := checkPairing(c.fblLink)
		if err != nil {
			monitoring.Logf("tracking: cancel pairing check failed: %v", err)
			return true
		}
		if paired {
			if _, err := fbl.CancelTrackerPairing(c.fblLink); err != nil {
				monitoring.Logf("tracking: cancel pairing failed: %v", err)
			} else {
				monitoring.Logf("tracking: paired tracker removed")
			}
		}
		return true

	case c.bus.GetBool(ssb.KeyCalibratePanCenter):
		c.bus.Set(ssb.KeyCalibratePanCenter, false)
		ok, err := c.mc.CalibratePanCenter(c.clock)
		if err != nil {
			monitoring.Logf("tracking: pan-center calibration failed: %v", err)
		}
		c.logCalibration("pan_center", ok, 0, c.mc.CenterPulse())
		return true

	case c.bus.GetBool(ssb.KeyCheckPairing):
		c.bus.Set(ssb.KeyCheckPairing, false)
		paired, pairing, err := checkPairing(c.fblLink)
		if err != nil {
			monitoring.Logf("tracking: check pairing failed: %v", err)
			return true
		}
		switch {
		case paired:
			c.bus.Set(ssb.KeyIsPaired, "true")
			monitoring.Logf("tracking: tracker is paired")
		case !paired && !pairing:
			c.bus.Set(ssb.KeyStartPairing, true)
			c.bus.Set(ssb.KeyIsPaired, "false")
			monitoring.Logf("tracking: no tracker paired, starting pairing")
		default:
			c.bus.Set(ssb.KeyIsPaired, "false")
			monitoring.Logf("tracking: pairing is ongoing")
		}
		return true
	}
	return false
}

func checkPairing(link *serialport.Link) (paired, pairing bool, err error) {
	r, err := fbl.CheckTrackerPairing(link)
	if err != nil {
		return false, false, err
	}
	return r.Paired, r.Pairing, nil
}

// updateHeartbeat lights the back-panel LEDs whenever the last accepted
// fix is recent, matching the original's 1 Hz LED check.
func (c *Core) updateHeartbeat(now time.Time) {
	if now.Sub(c.lastLEDCheck) < time.Second {
		return
	}
	c.lastLEDCheck = now

	fresh := c.haveLastGPSTime && now.Sub(c.lastGPSTime) < c.cfg.GetLEDOnAge()
	if fresh == c.ledsOn {
		return
	}
	if err := fbl.SetBackPanelLEDs(c.fblLink, fresh, fresh); err != nil {
		monitoring.Logf("tracking: LED update failed: %v", err)
		return
	}
	c.ledsOn = fresh
}

// park drives the camera to its standby pose when tracking is disabled,
// matching the original's "else" branch of `if commands.tracking_enabled`.
func (c *Core) park() {
	if err := c.mc.SetPanGoalVelocity(0); err != nil {
		monitoring.Logf("tracking: park goal velocity failed: %v", err)
	}
	if err := c.mc.SetAngles(0, 5, 1, 1); err != nil {
		monitoring.Logf("tracking: park angles failed: %v", err)
	}
	c.panRate.Reset()
}

// trackFix computes the pan/tilt/zoom transforms for a newly accepted fix
// and, at the configured motor-update cadence, issues the motion and zoom
// commands.
func (c *Core) trackFix(fix geo.Point, now time.Time) {
	origin, ok := c.bus.Get(ssb.KeyCameraOrigin).(geo.Point)
	if !ok {
		return
	}
	headingRad := c.bus.GetFloat64(ssb.KeyCameraHeadingAngle)

	panTargetDeg := c.panTarget(origin, fix, headingRad)
	distanceM := geo.Distance(origin, fix)
	verticalDistance := c.bus.GetFloat64(ssb.KeyCameraVerticalDistance)
	tiltTargetDeg := c.tiltTarget(distanceM, verticalDistance)

	if !c.bus.GetBool(ssb.KeyIsRecording) {
		c.updateZoom(distanceM)
	}

	if now.Sub(c.lastMotorUpdate) < motorUpdateInterval(c.cfg.GetMotorUpdateRateHz()) {
		return
	}
	c.lastMotorUpdate = now

	panRate := c.estimatePanRate(panTargetDeg, now)

	if distanceM < c.cfg.GetMinTrackDistance() {
		monitoring.Logf("tracking: target too close to track reliably (%.1fm)", distanceM)
		if err := c.mc.SetPanGoalVelocity(0); err != nil {
			monitoring.Logf("tracking: zero pan velocity failed: %v", err)
		}
		return
	}

	tiltOffset := c.bus.GetFloat64(ssb.KeyTiltOffset)
	currentPan, err := c.mc.CurrentPanAngle()
	if err != nil {
		monitoring.Logf("tracking: read current pan angle failed: %v", err)
	}

	speedThreshold := c.bus.GetFloat64(ssb.KeySpeedControlModeThreshold)
	useVelocity := math.Abs(panRate) >= speedThreshold &&
		math.Abs(currentPan-panTargetDeg) < c.cfg.GetPanErrorThreshold()

	if useVelocity {
		maxPanSpeed := c.bus.GetFloat64(ssb.KeyMaxPanSpeed)
		if err := c.mc.SetPanVelocityControl(maxPanSpeed); err != nil {
			monitoring.Logf("tracking: set velocity control failed: %v", err)
		}
		if err := c.mc.SetPanGoalVelocity(panRate); err != nil {
			monitoring.Logf("tracking: set goal velocity failed: %v", err)
		}
		if err := c.mc.SetTiltAngle(tiltTargetDeg+tiltOffset, 1); err != nil {
			monitoring.Logf("tracking: set tilt angle failed: %v", err)
		}
	} else {
		if err := c.mc.SetPanPositionControl(); err != nil {
			monitoring.Logf("tracking: set position control failed: %v", err)
		}
		if err := c.mc.SetAngles(panTargetDeg, tiltTargetDeg+tiltOffset, 0, 0); err != nil {
			monitoring.Logf("tracking: set angles failed: %v", err)
		}
	}

	c.ar.Check(fix, float64(now.Unix()))
	recording := c.ar.IsRecording()
	if recording != c.bus.GetBool(ssb.KeyStartRecording) {
		c.bus.Set(ssb.KeyStartRecording, recording)
	}
	c.logRecorderTransition(recording, panRate)
	c.logTrackingSample(panTargetDeg, tiltTargetDeg)
}

// logRecorderTransition reports an auto-recorder hysteresis transition to
// the event log the tick it actually flips, not on every tick.
func (c *Core) logRecorderTransition(recording bool, speedMPS float64) {
	if c.el == nil || recording == c.wasRecording {
		c.wasRecording = recording
		return
	}
	from, to := "idle", "recording"
	if !recording {
		from, to = "recording", "idle"
	}
	c.el.RecorderTransition(c.bus.GetInt64(ssb.KeySessionID), from, to, speedMPS)
	c.wasRecording = recording
}

// logTrackingSample records the current pan/tilt/zoom/speed for offline
// review, at the same cadence as the motor update (not every 100 Hz tick).
func (c *Core) logTrackingSample(panTargetDeg, tiltTargetDeg float64) {
	if c.el == nil {
		return
	}
	zoom, _ := c.bus.Get(ssb.KeyCameraZoomValue).(float64)
	c.el.TrackingSample(c.bus.GetInt64(ssb.KeySessionID), panTargetDeg, tiltTargetDeg, zoom, c.panRate.Average())
}

// logCalibration reports a calibration attempt's outcome to the event log.
func (c *Core) logCalibration(kind string, ok bool, headingRad float64, panCenterPulse int32) {
	if c.el == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.el.CalibrationEvent(kind, result, eventlog.OriginFields{}, headingRad, panCenterPulse)
}

func motorUpdateInterval(hz float64) time.Duration {
	if hz <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / hz)
}

// panTarget computes pan_target_deg per the specification's transform:
// the negated, heading-corrected bearing from origin to the tracked fix,
// normalized to (-180, 180].
func (c *Core) panTarget(origin, fix geo.Point, headingRad float64) float64 {
	bearingRad := geo.Bearing(origin, fix)
	deg := -rad2deg(bearingRad - headingRad)
	return geo.NormalizeAngleDeg(deg)
}

// tiltTarget computes tilt_target_deg: the negated elevation angle to
// the fix, low-pass filtered across ticks with EMA alpha=0.33.
func (c *Core) tiltTarget(distanceM, verticalDistanceM float64) float64 {
	raw := rad2deg(math.Atan2(distanceM, verticalDistanceM)) - 90
	raw = -raw

	if !c.havePrevTilt {
		c.prevTiltDeg = raw
		c.havePrevTilt = true
		return round2(raw)
	}
	smoothed := geo.EMA(c.prevTiltDeg, raw, c.cfg.GetTiltEMAAlpha())
	smoothed = round2(smoothed)
	c.prevTiltDeg = smoothed
	return smoothed
}

// estimatePanRate folds the newest pan target into the pan-rate window
// and returns its smoothed estimate, matching the original's
// tendency()-gated panBuffer/timeBuffer accumulation.
func (c *Core) estimatePanRate(panTargetDeg float64, now time.Time) float64 {
	if !c.haveLastPan {
		c.lastPanAngle = panTargetDeg
		c.haveLastPan = true
		return 0
	}
	dt := tickIntervalSinceLastMotorUpdate(c.cfg.GetMotorUpdateRateHz())
	rate := 1.1 * (panTargetDeg - c.lastPanAngle) / dt
	c.lastPanAngle = panTargetDeg
	c.panRate.Add(rate)
	return c.panRate.Average()
}

func tickIntervalSinceLastMotorUpdate(hz float64) float64 {
	if hz <= 0 {
		return 1
	}
	return 1 / hz
}

// updateZoom recomputes the distance-derived zoom level and pushes it to
// the lens only if it has moved by at least the configured hysteresis
// band, matching zoomCalculations's `abs(new - current) >= 0.25` gate.
func (c *Core) updateZoom(distanceM float64) {
	multiplier := c.bus.GetFloat64(ssb.KeyCameraZoomMultiplier)
	if multiplier == 0 {
		multiplier = 1
	}
	newZoom := round2(zoomForDistance(distanceM) * multiplier)

	current, ok := c.bus.Get(ssb.KeyCameraZoomValue).(float64)
	if !ok || math.Abs(newZoom-current) >= c.cfg.GetZoomHysteresis() {
		if err := zoomlink.SetZoomPosition(c.zlLink, newZoom); err != nil {
			monitoring.Logf("tracking: zoom update failed: %v", err)
			return
		}
		c.bus.Set(ssb.KeyCameraZoomValue, newZoom)
	}
}

func rad2deg(rad float64) float64 { return rad * 180 / math.Pi }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
