package motion

import (
	"math"

	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/serialport"
)

// Dynamixel register addresses, matching IOBoardDriver.py's inline
// address literals across setAngles/setPanPositionControl/
// setPanVelocityControl/calibratePanCenter.
const (
	regTorqueEnable      = 64
	regOperatingMode     = 11
	regProfileAcceleration = 108
	regProfileVelocity   = 112
	regGoalVelocity      = 104
	regGoalPosition      = 116
	regPresentVelocity   = 128
	regPresentPosition   = 132
	regVelocityLimit     = 44
	regPositionPID_P     = 84
	regPositionPID_I     = 82
	regPositionPID_D     = 80
	regVelocityPI_P      = 78
	regVelocityPI_I      = 76
)

const (
	tiltServoID = 1
	panServoID  = 2

	operatingModeVelocity         = 1
	operatingModeExtendedPosition = 4
)

// PanMode is the pan servo's current control mode.
type PanMode int

// The two pan control modes, matching current_pan_mode's "" / "velocity"
// / "position" string states (unset collapses into ModeUnknown).
const (
	ModeUnknown PanMode = iota
	ModeVelocity
	ModePosition
)

// Controller drives the pan/tilt servos over the Front-Board Link,
// tracking the calibrated pan center and current control mode the way
// FrontBoardDriver's instance state does.
type Controller struct {
	link   *serialport.Link
	cfg    *config.TuningConfig
	center int32
	mode   PanMode

	lastTiltAngle float64
}

// NewController creates a Controller with an initial (uncalibrated) pan
// center pulse; call SetCenterPulse once calibration completes.
func NewController(link *serialport.Link, cfg *config.TuningConfig) *Controller {
	return &Controller{link: link, cfg: cfg}
}

// SetCenterPulse records the calibrated pan-center pulse value.
func (c *Controller) SetCenterPulse(pulse int32) {
	c.center = pulse
}

// CenterPulse returns the last calibrated pan-center pulse value.
func (c *Controller) CenterPulse() int32 {
	return c.center
}

// SetAngles moves both axes to target angles, clamping to travel limits
// and deriving per-axis speed from the configured play time when an
// explicit speed isn't given (panSpeed/tiltSpeed <= 0 means "derive"),
// matching IOBoardDriver.py's setAngles.
func (c *Controller) SetAngles(pan, tilt, panSpeed, tiltSpeed float64) error {
	pan = ClampPanAngle(pan, c.cfg)
	tilt = ClampTiltAngle(tilt, c.cfg)

	panPulse := PanPulse(pan, c.center, c.cfg)
	tiltPulse := TiltPulse(tilt, c.cfg)

	if panSpeed <= 0 {
		current, err := c.CurrentPanAngle()
		if err != nil {
			return err
		}
		panSpeed = PlayTimeSpeed(pan-current, c.cfg.GetPanPlayTime(), c.cfg.GetMaxAxisSpeed())
	} else {
		panSpeed = min(panSpeed, c.cfg.GetMaxAxisSpeed())
	}

	if tiltSpeed <= 0 {
		tiltSpeed = PlayTimeSpeed(tilt-c.lastTiltAngle, c.cfg.GetTiltPlayTime(), c.cfg.GetMaxAxisSpeed())
	} else {
		tiltSpeed = min(tiltSpeed, c.cfg.GetMaxAxisSpeed())
	}
	c.lastTiltAngle = tilt

	return fbl.GroupDynamixelWrite(c.link, []fbl.GroupWrite{
		{ID: tiltServoID, Addr: regProfileVelocity, Value: DynamixelVelocity(tiltSpeed * c.cfg.GetTiltGearRatio())},
		{ID: tiltServoID, Addr: regGoalPosition, Value: tiltPulse},
		{ID: panServoID, Addr: regProfileVelocity, Value: DynamixelVelocity(panSpeed * c.cfg.GetPanGearRatio())},
		{ID: panServoID, Addr: regGoalPosition, Value: panPulse},
	})
}

// SetTiltAngle moves only the tilt axis, matching setTiltAngle.
func (c *Controller) SetTiltAngle(tilt, tiltSpeed float64) error {
	tilt = ClampTiltAngle(tilt, c.cfg)
	pulse := TiltPulse(tilt, c.cfg)

	if tiltSpeed <= 0 {
		tiltSpeed = PlayTimeSpeed(tilt-c.lastTiltAngle, c.cfg.GetTiltPlayTime(), c.cfg.GetMaxAxisSpeed())
	} else {
		tiltSpeed = min(tiltSpeed, c.cfg.GetMaxAxisSpeed())
	}
	c.lastTiltAngle = tilt

	if err := fbl.DynamixelWrite(c.link, tiltServoID, regProfileVelocity, DynamixelVelocity(tiltSpeed*c.cfg.GetTiltGearRatio())); err != nil {
		return err
	}
	return fbl.DynamixelWrite(c.link, tiltServoID, regGoalPosition, pulse)
}

// SetPanPositionControl switches the pan servo into extended-position
// mode if it isn't already, matching setPanPositionControl.
func (c *Controller) SetPanPositionControl() error {
	if c.mode == ModePosition {
		return nil
	}
	c.mode = ModePosition
	if err := fbl.DynamixelWrite(c.link, panServoID, regTorqueEnable, 0); err != nil {
		return err
	}
	if err := c.SetPanGoalVelocity(0); err != nil {
		return err
	}
	if err := fbl.DynamixelWrite(c.link, panServoID, regOperatingMode, operatingModeExtendedPosition); err != nil {
		return err
	}
	if err := fbl.GroupDynamixelWrite(c.link, []fbl.GroupWrite{
		{ID: panServoID, Addr: regPositionPID_P, Value: 400},
		{ID: panServoID, Addr: regPositionPID_I, Value: 0},
		{ID: panServoID, Addr: regPositionPID_D, Value: 100},
	}); err != nil {
		return err
	}
	if err := fbl.DynamixelWrite(c.link, panServoID, regProfileAcceleration, 40); err != nil {
		return err
	}
	return fbl.DynamixelWrite(c.link, panServoID, regTorqueEnable, 1)
}

// SetPanVelocityControl switches the pan servo into velocity mode with
// the given velocity limit (degrees/second, pre-gear-ratio) if it isn't
// already, matching setPanVelocityControl.
func (c *Controller) SetPanVelocityControl(velocityLimitDegPerSec float64) error {
	if c.mode == ModeVelocity {
		return nil
	}
	c.mode = ModeVelocity
	if err := fbl.DynamixelWrite(c.link, panServoID, regTorqueEnable, 0); err != nil {
		return err
	}
	if err := c.SetPanGoalVelocity(0); err != nil {
		return err
	}
	if err := fbl.DynamixelWrite(c.link, panServoID, regOperatingMode, operatingModeVelocity); err != nil {
		return err
	}
	dynaVal := DynamixelVelocity(velocityLimitDegPerSec * c.cfg.GetPanGearRatio())
	if err := fbl.DynamixelWrite(c.link, panServoID, regVelocityLimit, dynaVal); err != nil {
		return err
	}
	if err := fbl.GroupDynamixelWrite(c.link, []fbl.GroupWrite{
		{ID: panServoID, Addr: regVelocityPI_P, Value: 160},
		{ID: panServoID, Addr: regVelocityPI_I, Value: 1600},
	}); err != nil {
		return err
	}
	if err := fbl.DynamixelWrite(c.link, panServoID, regProfileAcceleration, 40); err != nil {
		return err
	}
	return fbl.DynamixelWrite(c.link, panServoID, regTorqueEnable, 1)
}

// SetPanGoalVelocity sets the pan rotation speed in velocity control
// mode, matching setPanGoalVelocity.
func (c *Controller) SetPanGoalVelocity(degreesPerSecond float64) error {
	dynaVal := DynamixelVelocity(degreesPerSecond * c.cfg.GetPanGearRatio())
	return fbl.DynamixelWrite(c.link, panServoID, regGoalVelocity, dynaVal)
}

// CurrentPanAngle reads the pan servo's current position and converts
// it to degrees relative to the calibrated center, matching
// getCurrentPanAngle's `dif * 90 / 1024 / 40`: the pulse difference times
// 90/1024 (about DEG_PULSE), divided by the configured pan gear ratio.
func (c *Controller) CurrentPanAngle() (float64, error) {
	pulse, err := fbl.DynamixelRead(c.link, panServoID, regPresentPosition)
	if err != nil {
		return 0, err
	}
	diff := float64(pulse - c.center)
	angle := diff * 90 / 1024 / c.cfg.GetPanGearRatio()
	return round2(angle), nil
}

// PresentPanVelocity reads the pan servo's current (signed) velocity
// register, used by calibration settle-detection.
func (c *Controller) PresentPanVelocity() (int32, error) {
	return fbl.DynamixelRead(c.link, panServoID, regPresentVelocity)
}

// SetPanAngleAbsolute moves the pan axis bypassing travel-limit clamps,
// matching setPanAngle (used only during calibration's return-to-center
// move).
func (c *Controller) SetPanAngleAbsolute(angleDeg, speed float64) error {
	pulse := PanPulse(angleDeg, c.center, c.cfg)
	if speed <= 0 {
		speed = 1
	}
	speed = min(speed, 10)
	if err := fbl.DynamixelWrite(c.link, panServoID, regProfileVelocity, DynamixelVelocity(speed*c.cfg.GetPanGearRatio())); err != nil {
		return err
	}
	return fbl.DynamixelWrite(c.link, panServoID, regGoalPosition, pulse)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
