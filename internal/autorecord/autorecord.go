// Package autorecord implements the Auto-Recorder: a dual-threshold
// hysteresis state machine that starts and stops session recording based
// on the tracked surfer's smoothed GPS speed. It is grounded on
// original_source/AutoRecording.py's AutoRecordingController, generalized
// per the specification's canonical dual-threshold/dual-dwell design
// (distinct start/stop speeds and dwell times, rather than the original's
// single threshold_speed reused for both directions).
package autorecord

import (
	"time"

	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

// Recorder decides when automatic recording should start or stop.
// Recording is recommended to start once the smoothed GPS speed has
// remained at or above StartSpeed for StartDwell continuously, and to
// stop once it has remained below StopSpeed for StopDwell continuously.
type Recorder struct {
	cfg   *config.TuningConfig
	clock timeutil.Clock

	havePrevFix bool
	prevFix     geo.Point
	prevTime    float64
	speed       float64

	haveAboveSince bool
	aboveSince     time.Time
	haveBelowSince bool
	belowSince     time.Time

	recording bool
	enabled   bool
}

// New creates a Recorder. enabled mirrors enable_auto_recording's
// default-on behaviour from the original controller's constructor.
func New(cfg *config.TuningConfig, clock timeutil.Clock) *Recorder {
	return &Recorder{cfg: cfg, clock: clock, enabled: true}
}

// SetEnabled toggles whether Check will recommend transitions at all,
// matching the cam_state.enable_auto_recording flag.
func (r *Recorder) SetEnabled(enabled bool) {
	r.enabled = enabled
}

// Enabled reports the current enabled state.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// IsRecording reports the Recorder's current recommendation.
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// updateSpeed recomputes the smoothed GPS speed from a new fix and its
// GPS-reported timestamp (unix seconds), matching
// AutoRecordingController.updateGPSSpeed: distance/time_diff then EMA
// smoothing against the previous speed.
func (r *Recorder) updateSpeed(fix geo.Point, gpsTime float64) {
	if r.havePrevFix {
		distance := geo.Distance(r.prevFix, fix)
		timeDiff := gpsTime - r.prevTime
		if timeDiff > 0 && distance >= 0 {
			raw := distance / timeDiff
			alpha := r.cfg.GetARSpeedAlpha()
			r.speed = geo.EMA(r.speed, raw, alpha)
		}
	}
	r.prevFix = fix
	r.prevTime = gpsTime
	r.havePrevFix = true
}

// Check folds in a new GPS fix and returns the Recorder's updated
// recording recommendation, matching AutoRecordingController.check,
// generalized to the dual-threshold/dual-dwell design: speed at or above
// StartSpeed arms the start-dwell timer (and clears the stop-dwell
// timer); speed below StopSpeed arms the stop-dwell timer (and clears
// the start-dwell timer). A transition fires once its dwell timer has
// been continuously armed for the configured duration.
func (r *Recorder) Check(fix geo.Point, gpsTime float64) bool {
	r.updateSpeed(fix, gpsTime)
	if !r.enabled {
		return r.recording
	}

	now := r.clock.Now()
	speed := abs(r.speed)

	if speed >= r.cfg.GetARStartSpeed() {
		if !r.haveAboveSince {
			r.aboveSince = now
			r.haveAboveSince = true
		}
		r.haveBelowSince = false
	}
	if speed < r.cfg.GetARStopSpeed() {
		if !r.haveBelowSince {
			r.belowSince = now
			r.haveBelowSince = true
		}
		r.haveAboveSince = false
	}

	if !r.recording && r.haveAboveSince && now.Sub(r.aboveSince) >= r.cfg.GetARStartDwell() {
		monitoring.Logf("autorecord: start triggered at speed %.2f m/s", speed)
		r.recording = true
	}
	if r.recording && r.haveBelowSince && now.Sub(r.belowSince) >= r.cfg.GetARStopDwell() {
		monitoring.Logf("autorecord: stop triggered at speed %.2f m/s", speed)
		r.recording = false
	}

	return r.recording
}

// ManualStop forces recording off immediately, matching
// AutoRecordingController.manualStopRecording.
func (r *Recorder) ManualStop() {
	r.recording = false
	r.haveAboveSince = false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
