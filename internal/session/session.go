// Package session defines the thin collaborator contract between the
// tracking core and the external video/session management subsystem. The
// core only needs to start/stop sessions and keep a couple of SSB keys in
// sync; the rest of session lifecycle (encoding, upload, retention) lives
// outside this module's scope. Grounded on the specification's session
// collaborator contract (§3/§9) and the SSB's SessionID/SessionStartTime
// keys (original_source/db.py).
package session

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soar-cam/trackerd/internal/eventlog"
	"github.com/soar-cam/trackerd/internal/fsutil"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/ssb"
	"github.com/soar-cam/trackerd/internal/timeutil"
)

// recognizedVideoExtensions are the file extensions the cleanup routine
// preserves, matching the specification's video/session layout.
var recognizedVideoExtensions = map[string]bool{
	".mp4": true,
	".mkv": true,
	".avi": true,
	".mov": true,
}

const tempFilePrefix = "temp_"

// Controller manages the small slice of session lifecycle the tracking
// core is responsible for: recording the active SessionID and its start
// time on the bus, and tidying a finished session's directory.
type Controller struct {
	bus   *ssb.Bus
	clock timeutil.Clock
	fs    fsutil.FileSystem
	el    eventlog.Recorder
}

// New creates a session Controller.
func New(bus *ssb.Bus, clock timeutil.Clock, fs fsutil.FileSystem) *Controller {
	return &Controller{bus: bus, clock: clock, fs: fs}
}

// SetEventLog wires an event log recorder that session lifecycle events
// are reported through. Optional: a Controller with no event log simply
// skips these calls.
func (c *Controller) SetEventLog(el eventlog.Recorder) {
	c.el = el
}

// Start records a new active session, matching the SC contract's
// "starting a session" responsibility: set SessionID and
// SessionStartTime on the bus.
func (c *Controller) Start(sessionID int64) {
	c.bus.Set(ssb.KeySessionID, sessionID)
	c.bus.Set(ssb.KeySessionStartTime, float64(c.clock.Now().Unix()))
	monitoring.Logf("session: started session %d", sessionID)
	if c.el != nil {
		c.el.SessionEvent(sessionID, "start", nil)
	}
}

// Stop clears the active session marker. The specification notes the
// original implementation's SessionID-equality guard in stop_session was
// commented out and is not enforced here either; any caller may stop the
// currently active session regardless of the ID it passes.
func (c *Controller) Stop(sessionID int64) {
	current := c.bus.GetInt64(ssb.KeySessionID)
	if current != sessionID {
		monitoring.Logf("session: stop requested for %d but active session is %d (not enforced)", sessionID, current)
	}
	c.bus.Set(ssb.KeySessionID, int64(-1))
	monitoring.Logf("session: stopped session %d", sessionID)
	if c.el != nil {
		c.el.SessionEvent(sessionID, "stop", nil)
	}
}

// Finalize cleans up a session's recording directory: any "temp_"
// partial clip, and any file whose base name is not a plain
// non-negative integer with a recognized video extension, is
// removed, matching the specification's guarantee that only
// integer-named video files remain after a session stops.
func (c *Controller) Finalize(dir string) error {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	if c.el != nil {
		c.el.SessionEvent(c.bus.GetInt64(ssb.KeySessionID), "finalize", map[string]string{"dir": dir})
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !keepFile(name) {
			path := filepath.Join(dir, name)
			if rerr := c.fs.Remove(path); rerr != nil {
				monitoring.Logf("session: failed to remove stray file %s: %v", path, rerr)
				return rerr
			}
		}
	}
	return nil
}

// keepFile reports whether name is a finalized, integer-named video file.
// A "temp_"-prefixed partial clip never qualifies, matching the
// specification's guarantee that only integer-named files survive a
// session stop.
func keepFile(name string) bool {
	if strings.HasPrefix(name, tempFilePrefix) {
		return false
	}
	ext := filepath.Ext(name)
	if !recognizedVideoExtensions[ext] {
		return false
	}
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		return false
	}
	if n, err := strconv.Atoi(base); err != nil || n < 0 {
		return false
	}
	return true
}
