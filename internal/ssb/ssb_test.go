package ssb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/fsutil"
)

func TestGetReturnsDefaultsBeforeSet(t *testing.T) {
	b := New(fsutil.NewMemoryFileSystem())
	require.Equal(t, 8.0, b.Get(KeyCameraVerticalDistance))
	require.Equal(t, 0.3, b.Get(KeySpeedControlModeThreshold))
	require.Equal(t, false, b.Get(KeyTrackingEnabled))
	require.Equal(t, int64(-1), b.Get(KeySessionID))
	require.Equal(t, "xxx", b.Get(KeyCameraSecurityToken))
}

func TestSetOverridesDefault(t *testing.T) {
	b := New(fsutil.NewMemoryFileSystem())
	b.Set(KeyTrackingEnabled, true)
	require.True(t, b.GetBool(KeyTrackingEnabled))
}

func TestSetIfAbsentOnlyWritesOnce(t *testing.T) {
	b := New(fsutil.NewMemoryFileSystem())
	require.True(t, b.SetIfAbsent(KeyMaxPanSpeed, 9.0))
	require.False(t, b.SetIfAbsent(KeyMaxPanSpeed, 1.0))
	require.Equal(t, 9.0, b.Get(KeyMaxPanSpeed))
}

func TestTypedGetters(t *testing.T) {
	b := New(fsutil.NewMemoryFileSystem())
	b.Set(KeyCameraZoomValue, 2.5)
	b.Set(KeyErrorStates, "overheat")
	b.Set(KeySessionID, int64(42))

	require.Equal(t, 2.5, b.GetFloat64(KeyCameraZoomValue))
	require.Equal(t, "overheat", b.GetString(KeyErrorStates))
	require.Equal(t, int64(42), b.GetInt64(KeySessionID))
}

func TestSnapshotMergesOntoExistingFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/state.json", []byte(`{"unrelated_key":"keep-me"}`), 0o644))

	b := New(fs)
	b.Set(KeyTrackingEnabled, true)
	b.Set(KeyMaxPanSpeed, 7.0)

	require.NoError(t, b.Snapshot("/state.json", []Key{KeyTrackingEnabled, KeyMaxPanSpeed}))

	data, err := fs.ReadFile("/state.json")
	require.NoError(t, err)
	require.Contains(t, string(data), "unrelated_key")
	require.Contains(t, string(data), "tracking_enabled")
	require.Contains(t, string(data), "max_pan_speed")
}

func TestLoadPopulatesBusFromFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/state.json", []byte(`{"max_pan_speed":11.5,"IsPaired":"abc123"}`), 0o644))

	b := New(fs)
	require.NoError(t, b.Load("/state.json"))

	require.Equal(t, 11.5, b.Get(KeyMaxPanSpeed))
	require.Equal(t, "abc123", b.Get(KeyIsPaired))
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	b := New(fsutil.NewMemoryFileSystem())
	require.Error(t, b.Load("/missing.json"))
}
