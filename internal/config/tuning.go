// Package config loads the deployment-time tuning parameters for the
// tracking daemon.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds every tunable named by the control-system
// specification. Fields are pointers so that a partial JSON file leaves
// the rest at their hardcoded defaults; the Get* accessors supply those
// defaults.
type TuningConfig struct {
	// Acceptance region (deployment-region sanity gate for tracker fixes).
	AcceptRegionLatFloor *int `json:"accept_region_lat_floor,omitempty"`
	AcceptRegionLonFloor *int `json:"accept_region_lon_floor,omitempty"`

	// Motion controller geometry.
	PanGearRatio  *float64 `json:"pan_gear_ratio,omitempty"`
	TiltGearRatio *float64 `json:"tilt_gear_ratio,omitempty"`
	MaxPanAngle   *float64 `json:"max_pan_angle_deg,omitempty"`
	MaxTiltAngle  *float64 `json:"max_tilt_angle_deg,omitempty"`
	DegPerPulse   *float64 `json:"deg_per_pulse,omitempty"`
	TiltZeroPulse *int     `json:"tilt_zero_pulse,omitempty"`
	PanPlayTime   *float64 `json:"pan_play_time_sec,omitempty"`
	TiltPlayTime  *float64 `json:"tilt_play_time_sec,omitempty"`
	MaxAxisSpeed  *float64 `json:"max_axis_speed_dps,omitempty"`

	// Hall-based pan-center calibration.
	CalInitialSpeed     *float64 `json:"cal_initial_speed_dps,omitempty"`
	CalSpeedDecayPerSec *float64 `json:"cal_speed_decay_dps_per_sec,omitempty"`
	CalMinSpeed         *float64 `json:"cal_min_speed_dps,omitempty"`
	CalSearchTimeout    *string  `json:"cal_search_timeout,omitempty"`
	CalSettleTimeout    *string  `json:"cal_settle_timeout,omitempty"`
	CalSettleVelocity   *int     `json:"cal_settle_velocity_units,omitempty"`
	CalOffsetAngle      *float64 `json:"cal_offset_angle_deg,omitempty"`
	CalOffsetSpeed      *float64 `json:"cal_offset_speed_dps,omitempty"`

	// Tracking core cadence and thresholds.
	MotorUpdateRateHz *float64 `json:"motor_update_rate_hz,omitempty"`
	MinTrackDistance  *float64 `json:"min_track_distance_m,omitempty"`
	PanSpeedThreshold *float64 `json:"pan_speed_threshold_dps,omitempty"`
	PanErrorThreshold *float64 `json:"pan_error_threshold_deg,omitempty"`
	FixStaleTimeout   *string  `json:"fix_stale_timeout,omitempty"`
	LEDOnAge          *string  `json:"led_on_age,omitempty"`
	TiltEMAAlpha      *float64 `json:"tilt_ema_alpha,omitempty"`
	ZoomHysteresis    *float64 `json:"zoom_hysteresis,omitempty"`
	CalibrationFixes  *int     `json:"calibration_fixes,omitempty"`
	CalibrationDelay  *string  `json:"calibration_poll_delay,omitempty"`

	// Auto-recorder.
	ARStartSpeed   *float64 `json:"ar_start_speed_mps,omitempty"`
	ARStopSpeed    *float64 `json:"ar_stop_speed_mps,omitempty"`
	ARStartDwell   *string  `json:"ar_start_dwell,omitempty"`
	ARStopDwell    *string  `json:"ar_stop_dwell,omitempty"`
	ARSpeedAlpha   *float64 `json:"ar_speed_ema_alpha,omitempty"`
	IncomingFlag   *bool    `json:"incoming_heuristic_enabled,omitempty"`

	// Front-board / zoom link discovery and transport.
	FBLPortSubstring *string `json:"fbl_port_substring,omitempty"`
	FBLBaudRate      *int    `json:"fbl_baud_rate,omitempty"`
	FBLReadTimeout   *string `json:"fbl_read_timeout,omitempty"`
	ZLPortSubstring  *string `json:"zl_port_substring,omitempty"`
	ZLBaudRate       *int    `json:"zl_baud_rate,omitempty"`
	ZLReadTimeout    *string `json:"zl_read_timeout,omitempty"`
	PortDiscoveryRetry *string `json:"port_discovery_retry,omitempty"`

	// Persistence.
	PersistPath *string `json:"persist_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their hardcoded defaults via the Get* accessors.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching up from the working directory. Panics on
// failure; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set configuration values are in range.
func (c *TuningConfig) Validate() error {
	if c.TiltEMAAlpha != nil && (*c.TiltEMAAlpha < 0 || *c.TiltEMAAlpha > 1) {
		return fmt.Errorf("tilt_ema_alpha must be between 0 and 1, got %f", *c.TiltEMAAlpha)
	}
	if c.ARSpeedAlpha != nil && (*c.ARSpeedAlpha < 0 || *c.ARSpeedAlpha > 1) {
		return fmt.Errorf("ar_speed_ema_alpha must be between 0 and 1, got %f", *c.ARSpeedAlpha)
	}
	for name, d := range map[string]*string{
		"cal_search_timeout":  c.CalSearchTimeout,
		"cal_settle_timeout":  c.CalSettleTimeout,
		"fix_stale_timeout":   c.FixStaleTimeout,
		"led_on_age":          c.LEDOnAge,
		"ar_start_dwell":      c.ARStartDwell,
		"ar_stop_dwell":       c.ARStopDwell,
		"fbl_read_timeout":    c.FBLReadTimeout,
		"zl_read_timeout":     c.ZLReadTimeout,
		"port_discovery_retry": c.PortDiscoveryRetry,
		"calibration_poll_delay": c.CalibrationDelay,
	} {
		if d != nil && *d != "" {
			if _, err := time.ParseDuration(*d); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *d, err)
			}
		}
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetAcceptRegionLatFloor returns the floor(lat) of the accepted deployment region.
func (c *TuningConfig) GetAcceptRegionLatFloor() int {
	if c.AcceptRegionLatFloor == nil {
		return 38
	}
	return *c.AcceptRegionLatFloor
}

// GetAcceptRegionLonFloor returns the floor(lon) of the accepted deployment region.
func (c *TuningConfig) GetAcceptRegionLonFloor() int {
	if c.AcceptRegionLonFloor == nil {
		return -9
	}
	return *c.AcceptRegionLonFloor
}

// GetPanGearRatio returns the pan gear ratio.
func (c *TuningConfig) GetPanGearRatio() float64 {
	if c.PanGearRatio == nil {
		return 40
	}
	return *c.PanGearRatio
}

// GetTiltGearRatio returns the tilt gear ratio.
func (c *TuningConfig) GetTiltGearRatio() float64 {
	if c.TiltGearRatio == nil {
		return 5.6
	}
	return *c.TiltGearRatio
}

// GetMaxPanAngle returns the maximum pan angle in degrees.
func (c *TuningConfig) GetMaxPanAngle() float64 {
	if c.MaxPanAngle == nil {
		return 70
	}
	return *c.MaxPanAngle
}

// GetMaxTiltAngle returns the maximum (downward) tilt angle in degrees.
func (c *TuningConfig) GetMaxTiltAngle() float64 {
	if c.MaxTiltAngle == nil {
		return 25
	}
	return *c.MaxTiltAngle
}

// GetDegPerPulse returns degrees per encoder pulse.
func (c *TuningConfig) GetDegPerPulse() float64 {
	if c.DegPerPulse == nil {
		return 0.088
	}
	return *c.DegPerPulse
}

// GetTiltZeroPulse returns the encoder pulse value corresponding to tilt = 0.
func (c *TuningConfig) GetTiltZeroPulse() int {
	if c.TiltZeroPulse == nil {
		return 750
	}
	return *c.TiltZeroPulse
}

// GetPanPlayTime returns the intended pan travel time in seconds.
func (c *TuningConfig) GetPanPlayTime() float64 {
	if c.PanPlayTime == nil {
		return 0.5
	}
	return *c.PanPlayTime
}

// GetTiltPlayTime returns the intended tilt travel time in seconds.
func (c *TuningConfig) GetTiltPlayTime() float64 {
	if c.TiltPlayTime == nil {
		return 0.75
	}
	return *c.TiltPlayTime
}

// GetMaxAxisSpeed returns the per-axis speed cap in degrees/second.
func (c *TuningConfig) GetMaxAxisSpeed() float64 {
	if c.MaxAxisSpeed == nil {
		return 2.0
	}
	return *c.MaxAxisSpeed
}

// GetCalInitialSpeed returns the initial pan-center search speed in degrees/second.
func (c *TuningConfig) GetCalInitialSpeed() float64 {
	if c.CalInitialSpeed == nil {
		return 6.0
	}
	return *c.CalInitialSpeed
}

// GetCalSpeedDecayPerSec returns the linear speed decay rate during pan-center search.
func (c *TuningConfig) GetCalSpeedDecayPerSec() float64 {
	if c.CalSpeedDecayPerSec == nil {
		return 0.1
	}
	return *c.CalSpeedDecayPerSec
}

// GetCalMinSpeed returns the minimum clamp on the decaying search speed.
func (c *TuningConfig) GetCalMinSpeed() float64 {
	if c.CalMinSpeed == nil {
		return 1.5
	}
	return *c.CalMinSpeed
}

// GetCalSearchTimeout returns the hall-sensor search timeout.
func (c *TuningConfig) GetCalSearchTimeout() time.Duration {
	return durationOr(c.CalSearchTimeout, 130*time.Second)
}

// GetCalSettleTimeout returns the post-trigger settle timeout.
func (c *TuningConfig) GetCalSettleTimeout() time.Duration {
	return durationOr(c.CalSettleTimeout, 25*time.Second)
}

// GetCalSettleVelocity returns the servo velocity magnitude considered "settled".
func (c *TuningConfig) GetCalSettleVelocity() int {
	if c.CalSettleVelocity == nil {
		return 2
	}
	return *c.CalSettleVelocity
}

// GetCalOffsetAngle returns the empirical mechanical offset applied after trigger.
func (c *TuningConfig) GetCalOffsetAngle() float64 {
	if c.CalOffsetAngle == nil {
		return -120
	}
	return *c.CalOffsetAngle
}

// GetCalOffsetSpeed returns the speed used when driving to the offset angle.
func (c *TuningConfig) GetCalOffsetSpeed() float64 {
	if c.CalOffsetSpeed == nil {
		return 10
	}
	return *c.CalOffsetSpeed
}

// GetMotorUpdateRateHz returns the motor-update cadence cap.
func (c *TuningConfig) GetMotorUpdateRateHz() float64 {
	if c.MotorUpdateRateHz == nil {
		return 3.0
	}
	return *c.MotorUpdateRateHz
}

// GetMinTrackDistance returns the minimum track distance below which motion is suppressed.
func (c *TuningConfig) GetMinTrackDistance() float64 {
	if c.MinTrackDistance == nil {
		return 45.0
	}
	return *c.MinTrackDistance
}

// GetPanSpeedThreshold returns the pan-rate threshold for switching to velocity mode.
func (c *TuningConfig) GetPanSpeedThreshold() float64 {
	if c.PanSpeedThreshold == nil {
		return 3.0
	}
	return *c.PanSpeedThreshold
}

// GetPanErrorThreshold returns the max pan error allowed while in velocity mode.
func (c *TuningConfig) GetPanErrorThreshold() float64 {
	if c.PanErrorThreshold == nil {
		return 4.0
	}
	return *c.PanErrorThreshold
}

// GetFixStaleTimeout returns the duration after which a missing fix triggers the hard stop.
func (c *TuningConfig) GetFixStaleTimeout() time.Duration {
	return durationOr(c.FixStaleTimeout, 6*time.Second)
}

// GetLEDOnAge returns the fix-age threshold below which the heartbeat LED is lit.
func (c *TuningConfig) GetLEDOnAge() time.Duration {
	return durationOr(c.LEDOnAge, 3*time.Second)
}

// GetTiltEMAAlpha returns the tilt low-pass filter coefficient.
func (c *TuningConfig) GetTiltEMAAlpha() float64 {
	if c.TiltEMAAlpha == nil {
		return 0.33
	}
	return *c.TiltEMAAlpha
}

// GetZoomHysteresis returns the minimum zoom-level delta required to push a new lens command.
func (c *TuningConfig) GetZoomHysteresis() float64 {
	if c.ZoomHysteresis == nil {
		return 0.25
	}
	return *c.ZoomHysteresis
}

// GetCalibrationFixes returns the number of fixes averaged during origin/heading calibration.
func (c *TuningConfig) GetCalibrationFixes() int {
	if c.CalibrationFixes == nil {
		return 50
	}
	return *c.CalibrationFixes
}

// GetCalibrationDelay returns the poll delay between calibration fix samples.
func (c *TuningConfig) GetCalibrationDelay() time.Duration {
	return durationOr(c.CalibrationDelay, 150*time.Millisecond)
}

// GetARStartSpeed returns the auto-recorder start-threshold speed in m/s.
func (c *TuningConfig) GetARStartSpeed() float64 {
	if c.ARStartSpeed == nil {
		return 2.5
	}
	return *c.ARStartSpeed
}

// GetARStopSpeed returns the auto-recorder stop-threshold speed in m/s.
func (c *TuningConfig) GetARStopSpeed() float64 {
	if c.ARStopSpeed == nil {
		return 2.25
	}
	return *c.ARStopSpeed
}

// GetARStartDwell returns the minimum continuous duration above the start threshold.
func (c *TuningConfig) GetARStartDwell() time.Duration {
	return durationOr(c.ARStartDwell, 3*time.Second)
}

// GetARStopDwell returns the minimum continuous duration below the stop threshold.
func (c *TuningConfig) GetARStopDwell() time.Duration {
	return durationOr(c.ARStopDwell, 4*time.Second)
}

// GetARSpeedAlpha returns the auto-recorder speed EMA coefficient.
func (c *TuningConfig) GetARSpeedAlpha() float64 {
	if c.ARSpeedAlpha == nil {
		return 0.34
	}
	return *c.ARSpeedAlpha
}

// GetIncomingHeuristicEnabled reports whether the is-surfer-incoming heuristic is active.
func (c *TuningConfig) GetIncomingHeuristicEnabled() bool {
	if c.IncomingFlag == nil {
		return false
	}
	return *c.IncomingFlag
}

// GetFBLPortSubstring returns the discovery substring for the front-board serial port.
func (c *TuningConfig) GetFBLPortSubstring() string {
	if c.FBLPortSubstring == nil {
		return "Surf Front Board"
	}
	return *c.FBLPortSubstring
}

// GetFBLBaudRate returns the front-board link baud rate.
func (c *TuningConfig) GetFBLBaudRate() int {
	if c.FBLBaudRate == nil {
		return 1000000
	}
	return *c.FBLBaudRate
}

// GetFBLReadTimeout returns the front-board link read timeout.
func (c *TuningConfig) GetFBLReadTimeout() time.Duration {
	return durationOr(c.FBLReadTimeout, 2*time.Second)
}

// GetZLPortSubstring returns the discovery substring for the zoom lens serial port.
func (c *TuningConfig) GetZLPortSubstring() string {
	if c.ZLPortSubstring == nil {
		return "Zoom"
	}
	return *c.ZLPortSubstring
}

// GetZLBaudRate returns the zoom link baud rate.
func (c *TuningConfig) GetZLBaudRate() int {
	if c.ZLBaudRate == nil {
		return 9600
	}
	return *c.ZLBaudRate
}

// GetZLReadTimeout returns the zoom link read timeout.
func (c *TuningConfig) GetZLReadTimeout() time.Duration {
	return durationOr(c.ZLReadTimeout, 5*time.Second)
}

// GetPortDiscoveryRetry returns the busy-retry interval used while a serial port is missing.
func (c *TuningConfig) GetPortDiscoveryRetry() time.Duration {
	return durationOr(c.PortDiscoveryRetry, 100*time.Millisecond)
}

// GetPersistPath returns the path of the persisted SSB snapshot file.
func (c *TuningConfig) GetPersistPath() string {
	if c.PersistPath == nil {
		return "config/state.json"
	}
	return *c.PersistPath
}
