// Package ssb implements the Shared State Bus: the process-wide, typed,
// in-memory keyed store that couples the tracking core, the
// auto-recorder, and the session/recording collaborators. It is grounded
// on the original implementation's RedisClient (original_source/db.py):
// the same get/set/set-if-absent and merge-on-snapshot semantics, now
// backed by a per-key mutex store instead of an external Redis instance.
package ssb

import (
	"encoding/json"
	"sync"

	"github.com/soar-cam/trackerd/internal/fsutil"
	"github.com/soar-cam/trackerd/internal/monitoring"
)

// Key identifies one recognized SSB key.
type Key string

// The full recognized key set named by the specification (§4.1).
const (
	KeyCameraOrigin              Key = "camera_origin"
	KeyCameraHeadingCoords       Key = "camera_heading_coords"
	KeyCameraHeadingAngle        Key = "camera_heading_angle"
	KeyLatestGPSData             Key = "latest_gps_data"
	KeyLastGPSTime               Key = "last_gps_time"
	KeyTiltOffset                Key = "tilt_offset"
	KeyCameraVerticalDistance    Key = "camera_vertical_distance"
	KeyCameraCalibrateOrigin     Key = "camera_calibrate_origin"
	KeyCameraCalibrateHeading    Key = "camera_calibrate_heading"
	KeyCalibratePanCenter        Key = "calibrate_pan_center"
	KeyCameraZoomValue           Key = "camera_zoom_value"
	KeyCameraZoomMultiplier      Key = "camera_zoom_multiplier"
	KeyTrackingEnabled           Key = "tracking_enabled"
	KeySpeedControlModeThreshold Key = "speed_control_mode_threshold"
	KeyMaxPanSpeed               Key = "max_pan_speed"
	KeyStartPairing              Key = "start_pairing"
	KeyCancelPairing             Key = "cancel_pairing"
	KeyCheckPairing              Key = "check_pairing"
	KeyStartRecording            Key = "start_recording"
	KeyIsRecording               Key = "is_recording"
	KeyEnableAutoRecording       Key = "enable_auto_recording"
	KeySessionID                 Key = "SessionID"
	KeySessionStartTime          Key = "SessionStartTime"
	KeyCameraSecurityToken       Key = "CameraSecurityToken"
	KeyErrorStates               Key = "ErrorStates"
	KeyIsPaired                  Key = "IsPaired"
	KeyStop                      Key = "stop"
)

// defaults mirrors original_source/db.py's per-key default values (the
// GPSData/Commands/CameraState/WebApp getter/setter classes).
func defaults() map[Key]any {
	return map[Key]any{
		KeyCameraOrigin:              nil,
		KeyCameraHeadingCoords:       nil,
		KeyCameraHeadingAngle:        0.0,
		KeyLatestGPSData:             nil,
		KeyLastGPSTime:               0.0,
		KeyTiltOffset:                0.0,
		KeyCameraVerticalDistance:    8.0,
		KeyCameraCalibrateOrigin:     false,
		KeyCameraCalibrateHeading:    false,
		KeyCalibratePanCenter:        false,
		KeyCameraZoomValue:           1.0,
		KeyCameraZoomMultiplier:      1.0,
		KeyTrackingEnabled:           false,
		KeySpeedControlModeThreshold: 0.3,
		KeyMaxPanSpeed:               6.0,
		KeyStartPairing:              false,
		KeyCancelPairing:             false,
		KeyCheckPairing:              false,
		KeyStartRecording:            false,
		KeyIsRecording:               false,
		KeyEnableAutoRecording:       false,
		KeySessionID:                int64(-1),
		KeySessionStartTime:          0.0,
		KeyCameraSecurityToken:       "xxx",
		KeyErrorStates:               "",
		KeyIsPaired:                  "",
		KeyStop:                      false,
	}
}

type entry struct {
	mu  sync.RWMutex
	val any
	set bool
}

// Bus is the Shared State Bus: a keyed store with per-key atomicity.
// Multi-key atomicity is explicitly not provided, per the specification.
type Bus struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	def     map[Key]any
	fs      fsutil.FileSystem
}

// New creates an empty Bus backed by fs for snapshot persistence.
func New(fs fsutil.FileSystem) *Bus {
	return &Bus{
		entries: make(map[Key]*entry),
		def:     defaults(),
		fs:      fs,
	}
}

func (b *Bus) entryFor(k Key) *entry {
	b.mu.RLock()
	e, ok := b.entries[k]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[k]; ok {
		return e
	}
	e = &entry{}
	b.entries[k] = e
	return e
}

// Get returns the current value of k, or its typed default if unset.
func (b *Bus) Get(k Key) any {
	e := b.entryFor(k)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.set {
		return e.val
	}
	return b.def[k]
}

// Set unconditionally writes v to k.
func (b *Bus) Set(k Key, v any) {
	e := b.entryFor(k)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.val = v
	e.set = true
}

// SetIfAbsent writes v to k only if k has never been set, returning true
// if the write happened.
func (b *Bus) SetIfAbsent(k Key, v any) bool {
	e := b.entryFor(k)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		return false
	}
	e.val = v
	e.set = true
	return true
}

// GetBool reads k as a bool, treating a missing/wrong-typed value as false.
func (b *Bus) GetBool(k Key) bool {
	v, _ := b.Get(k).(bool)
	return v
}

// GetFloat64 reads k as a float64, treating a missing/wrong-typed value as 0.
func (b *Bus) GetFloat64(k Key) float64 {
	v, _ := b.Get(k).(float64)
	return v
}

// GetString reads k as a string, treating a missing/wrong-typed value as "".
func (b *Bus) GetString(k Key) string {
	v, _ := b.Get(k).(string)
	return v
}

// GetInt64 reads k as an int64, treating a missing/wrong-typed value as 0.
func (b *Bus) GetInt64(k Key) int64 {
	v, _ := b.Get(k).(int64)
	return v
}

// Dump returns the current value of every recognized key, for the
// diagnostic surface's state inspection endpoint.
func (b *Bus) Dump() map[Key]any {
	out := make(map[Key]any, len(b.def))
	for k := range b.def {
		out[k] = b.Get(k)
	}
	return out
}

// Snapshot atomically (per key, not across keys) merges the current
// values of keys into the JSON file at path, preserving any keys already
// present in the file that are not in the list — mirroring
// original_source/db.py's RedisClient.dump(), which reads the existing
// file, merges the requested subset on top, and rewrites.
func (b *Bus) Snapshot(path string, keys []Key) error {
	existing := map[string]any{}
	if data, err := b.fs.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &existing)
	}

	for _, k := range keys {
		existing[string(k)] = b.Get(k)
	}

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		monitoring.Logf("ssb: snapshot marshal failed: %v", err)
		return err
	}

	if err := b.fs.WriteFile(path, out, 0o644); err != nil {
		monitoring.Logf("ssb: snapshot write failed (continuing, in-memory state remains authoritative): %v", err)
		return err
	}
	return nil
}

// Load reads the JSON file at path and pushes every key it contains into
// the bus, per original_source/db.py's RedisClient.load().
func (b *Bus) Load(path string) error {
	data, err := b.fs.ReadFile(path)
	if err != nil {
		return err
	}
	var stored map[string]any
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	for k, v := range stored {
		b.Set(Key(k), v)
	}
	return nil
}
