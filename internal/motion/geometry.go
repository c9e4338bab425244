// Package motion implements the Motion Controller: the servo-facing
// geometry, velocity conversion, pan-rate smoothing, and pan-center
// calibration that sit between the tracking core's angle targets and
// the Front-Board Link's raw Dynamixel registers. It is grounded on
// original_source/IOBoardDriver.py's setAngles/setTiltAngle/
// toDynamixelVelocity/calibratePanCenter family.
package motion

import (
	"math"

	"github.com/soar-cam/trackerd/internal/config"
)

// PanPulse converts a target pan angle (degrees from mechanical center)
// plus the current calibrated center pulse into an absolute Dynamixel
// goal position, matching IOBoardDriver.py's setAngles/setPanAngle
// `PanCenterPulse + round(angle * PAN_GEAR_RATIO / DEG_PULSE)`.
func PanPulse(angleDeg float64, centerPulse int32, cfg *config.TuningConfig) int32 {
	offset := angleDeg * cfg.GetPanGearRatio() / cfg.GetDegPerPulse()
	return centerPulse + int32(math.Round(offset))
}

// TiltPulse converts a target tilt angle (degrees down from zero) into
// an absolute Dynamixel goal position, matching IOBoardDriver.py's
// setAngles/setTiltAngle tilt_output_min/tilt_output_max interpolation.
func TiltPulse(angleDeg float64, cfg *config.TuningConfig) int32 {
	outputMin := float64(cfg.GetTiltZeroPulse())
	outputMax := outputMin + cfg.GetTiltGearRatio()*cfg.GetMaxTiltAngle()/cfg.GetDegPerPulse()
	v := angleDeg*(outputMax-outputMin)/cfg.GetMaxTiltAngle() + outputMin
	return int32(math.Round(v))
}

// ClampPanAngle clamps a pan angle to the configured travel limits,
// matching setAngles's `min(max(-MAX_PAN_ANGLE, pan), MAX_PAN_ANGLE)`.
func ClampPanAngle(angleDeg float64, cfg *config.TuningConfig) float64 {
	max := cfg.GetMaxPanAngle()
	if angleDeg > max {
		return max
	}
	if angleDeg < -max {
		return -max
	}
	return angleDeg
}

// ClampTiltAngle clamps a tilt angle to the configured travel limits,
// matching setAngles's `min(max(0, tilt), MAX_TILT_ANGLE)`.
func ClampTiltAngle(angleDeg float64, cfg *config.TuningConfig) float64 {
	max := cfg.GetMaxTiltAngle()
	if angleDeg < 0 {
		return 0
	}
	if angleDeg > max {
		return max
	}
	return angleDeg
}

// DynamixelVelocity converts a velocity in degrees/second into the
// sign-preserving Dynamixel velocity unit (integer multiples of 0.229
// rpm, clamped to [0, 2047]), matching toDynamixelVelocity exactly.
func DynamixelVelocity(degreesPerSecond float64) int32 {
	const rpmPerUnit = 0.229
	rpm := degreesPerSecond / 6
	val := rpm / rpmPerUnit
	mag := math.Min(math.Max(math.Abs(val), 0), 2047)
	rounded := int32(math.Round(mag))
	if degreesPerSecond < 0 {
		return -rounded
	}
	return rounded
}

// PlayTimeSpeed derives a º/s speed from an angle delta and the intended
// play time, capped to maxSpeed, matching setAngles's
// `anglediff / playTime` then `min(abs(speed), 2)` clamp.
func PlayTimeSpeed(angleDelta, playTimeSeconds, maxSpeed float64) float64 {
	speed := angleDelta / playTimeSeconds
	return math.Min(math.Abs(speed), maxSpeed)
}
