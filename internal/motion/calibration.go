package motion

import (
	"time"

	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

// CalibratePanCenter runs the hall-sensor pan-center search, matching
// IOBoardDriver.py's calibratePanCenter: rotate at a decaying speed
// until the right hall sensor trips (bounded by a search timeout), then
// return to the mechanical center offset and wait for the servo to
// settle (bounded by a settle timeout). clock is injected so tests can
// drive the timeouts deterministically.
func (c *Controller) CalibratePanCenter(clock timeutil.Clock) (bool, error) {
	monitoring.Logf("motion: calibrating pan center, do not move the camera")

	if err := c.SetPanPositionControl(); err != nil {
		return false, err
	}

	initialSpeed := c.cfg.GetCalInitialSpeed()
	if err := c.SetPanVelocityControl(initialSpeed); err != nil {
		return false, err
	}
	if err := c.SetPanGoalVelocity(initialSpeed); err != nil {
		return false, err
	}

	start := clock.Now()
	searchTimeout := c.cfg.GetCalSearchTimeout()
	minSpeed := c.cfg.GetCalMinSpeed()
	decayPerSec := c.cfg.GetCalSpeedDecayPerSec()

	for {
		status, err := fbl.GetHallStatus(c.link)
		if err != nil {
			return false, err
		}
		if status.Right != 1 {
			break
		}

		elapsed := clock.Since(start)
		if elapsed >= searchTimeout {
			monitoring.Logf("motion: pan center search timed out after %s", elapsed)
			_ = c.SetPanGoalVelocity(0)
			return false, nil
		}

		newSpeed := initialSpeed - elapsed.Seconds()*decayPerSec
		if newSpeed < minSpeed {
			newSpeed = minSpeed
		}
		if err := c.SetPanGoalVelocity(newSpeed); err != nil {
			return false, err
		}
		clock.Sleep(50 * time.Millisecond)
	}

	monitoring.Logf("motion: right hall sensor triggered")
	if err := c.SetPanGoalVelocity(0); err != nil {
		return false, err
	}

	pulse, err := fbl.DynamixelRead(c.link, panServoID, regPresentPosition)
	if err != nil {
		return false, err
	}
	c.SetCenterPulse(pulse)

	if err := c.SetPanPositionControl(); err != nil {
		return false, err
	}
	offsetAngle := c.cfg.GetCalOffsetAngle()
	offsetSpeed := c.cfg.GetCalOffsetSpeed()
	if err := c.SetPanAngleAbsolute(offsetAngle, offsetSpeed); err != nil {
		return false, err
	}

	settleTimeout := c.cfg.GetCalSettleTimeout()
	settleVelocity := c.cfg.GetCalSettleVelocity()
	waitStart := clock.Now()
	for {
		velocity, err := c.PresentPanVelocity()
		if err != nil {
			return false, err
		}
		if abs32(velocity) <= int32(settleVelocity) {
			break
		}
		if clock.Since(waitStart) > settleTimeout {
			monitoring.Logf("motion: servo did not settle within %s, forcing stop", settleTimeout)
			if err := c.SetPanVelocityControl(initialSpeed); err != nil {
				return false, err
			}
			if err := c.SetPanGoalVelocity(0); err != nil {
				return false, err
			}
			break
		}
		clock.Sleep(100 * time.Millisecond)
	}

	pulse, err = fbl.DynamixelRead(c.link, panServoID, regPresentPosition)
	if err != nil {
		return false, err
	}
	c.SetCenterPulse(pulse)

	if err := c.SetTiltAngle(0, 1); err != nil {
		return false, err
	}

	monitoring.Logf("motion: pan center calibrated, new center pulse %d", c.CenterPulse())
	return true, nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
