package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	require.Equal(t, 40.0, cfg.GetPanGearRatio())
	require.Equal(t, 5.6, cfg.GetTiltGearRatio())
	require.Equal(t, 70.0, cfg.GetMaxPanAngle())
	require.Equal(t, 0.088, cfg.GetDegPerPulse())
	require.Equal(t, 750, cfg.GetTiltZeroPulse())
	require.Equal(t, 2.5, cfg.GetARStartSpeed())
	require.Equal(t, 2.25, cfg.GetARStopSpeed())
	require.Equal(t, 0.34, cfg.GetARSpeedAlpha())
	require.False(t, cfg.GetIncomingHeuristicEnabled())
	require.Equal(t, "Surf Front Board", cfg.GetFBLPortSubstring())
	require.Equal(t, 1000000, cfg.GetFBLBaudRate())
	require.Equal(t, "Zoom", cfg.GetZLPortSubstring())
	require.Equal(t, 9600, cfg.GetZLBaudRate())
	require.Equal(t, 38, cfg.GetAcceptRegionLatFloor())
	require.Equal(t, -9, cfg.GetAcceptRegionLonFloor())
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")
	payload := map[string]any{
		"pan_gear_ratio":   50.0,
		"ar_start_speed_mps": 3.0,
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	require.Equal(t, 50.0, cfg.GetPanGearRatio())
	require.Equal(t, 3.0, cfg.GetARStartSpeed())
	// unset fields still fall back to defaults
	require.Equal(t, 5.6, cfg.GetTiltGearRatio())
}

func TestLoadTuningConfigRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadTuningConfig(path)
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangeAlpha(t *testing.T) {
	cfg := EmptyTuningConfig()
	bad := 1.5
	cfg.TiltEMAAlpha = &bad
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := EmptyTuningConfig()
	bad := "not-a-duration"
	cfg.ARStartDwell = &bad
	require.Error(t, cfg.Validate())
}
