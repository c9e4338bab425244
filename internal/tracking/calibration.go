package tracking

import (
	"github.com/soar-cam/trackerd/internal/eventlog"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/geo"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/ssb"
)

// collectCalibrationFixes polls the tracker for accepted fixes, sleeping
// the configured delay between polls, until it has gathered the
// configured number of samples. Matches calibrationCoordsCal's
// accumulate-then-average loop.
func (c *Core) collectCalibrationFixes() geo.Point {
	want := c.cfg.GetCalibrationFixes()
	points := make([]geo.Point, 0, want)
	for len(points) < want {
		c.clock.Sleep(c.cfg.GetCalibrationDelay())
		fix, err := fbl.GetTrackerMessage(c.fblLink, c.region)
		if err != nil {
			monitoring.Logf("tracking: calibration poll failed: %v", err)
			continue
		}
		if fix.Valid {
			points = append(points, fix.Point)
		}
	}
	return geo.MeanPoint(points)
}

// calibrateOrigin persists the camera's GPS origin as the mean of a
// fresh batch of tracker fixes, matching the main loop's
// camera_calibrate_origin branch.
func (c *Core) calibrateOrigin() {
	mean := c.collectCalibrationFixes()
	c.bus.Set(ssb.KeyCameraOrigin, mean)
	monitoring.Logf("tracking: camera origin calibrated to %.6f, %.6f", mean.Lat, mean.Lon)
	if c.el != nil {
		c.el.CalibrationEvent("origin", "ok", eventlog.OriginFields{Lat: mean.Lat, Lon: mean.Lon}, 0, 0)
	}
}

// calibrateHeading persists the camera's heading angle (radians) as the
// bearing from the already-calibrated origin to a fresh batch of tracker
// fixes, matching the main loop's camera_calibrate_heading branch.
func (c *Core) calibrateHeading() {
	mean := c.collectCalibrationFixes()
	c.bus.Set(ssb.KeyCameraHeadingCoords, mean)

	origin, ok := c.bus.Get(ssb.KeyCameraOrigin).(geo.Point)
	if !ok {
		monitoring.Logf("tracking: heading calibration skipped, no camera origin set")
		if c.el != nil {
			c.el.CalibrationEvent("heading", "failed", eventlog.OriginFields{Lat: mean.Lat, Lon: mean.Lon}, 0, 0)
		}
		return
	}
	headingRad := geo.Bearing(origin, mean)
	c.bus.Set(ssb.KeyCameraHeadingAngle, headingRad)
	monitoring.Logf("tracking: camera heading angle calibrated to %.4f rad", headingRad)
	if c.el != nil {
		c.el.CalibrationEvent("heading", "ok", eventlog.OriginFields{Lat: mean.Lat, Lon: mean.Lon}, headingRad, 0)
	}
}
