package eventlog

import "fmt"

// TrackingSample is one row of pan/tilt/zoom/speed history, as read back
// for the diagnostic charts surface and cmd/trackplot.
type TrackingSample struct {
	SessionID  int64
	PanDeg     float64
	TiltDeg    float64
	Zoom       float64
	SpeedMPS   float64
	OccurredAt int64
}

// RecentTrackingSamples returns up to limit of the most recent tracking
// samples across all sessions, oldest first, suitable for plotting.
func (db *DB) RecentTrackingSamples(limit int) ([]TrackingSample, error) {
	rows, err := db.Query(
		`SELECT session_id, pan_deg, tilt_deg, zoom, speed_mps, occurred_at
		 FROM (SELECT * FROM tracking_samples ORDER BY occurred_at DESC LIMIT ?)
		 ORDER BY occurred_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query recent tracking samples: %w", err)
	}
	defer rows.Close()

	var out []TrackingSample
	for rows.Next() {
		var s TrackingSample
		if err := rows.Scan(&s.SessionID, &s.PanDeg, &s.TiltDeg, &s.Zoom, &s.SpeedMPS, &s.OccurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan tracking sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionTrackingSamples returns every tracking sample recorded for a
// single session, oldest first, for offline plotting of one surf session.
func (db *DB) SessionTrackingSamples(sessionID int64) ([]TrackingSample, error) {
	rows, err := db.Query(
		`SELECT session_id, pan_deg, tilt_deg, zoom, speed_mps, occurred_at
		 FROM tracking_samples WHERE session_id = ? ORDER BY occurred_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query session tracking samples: %w", err)
	}
	defer rows.Close()

	var out []TrackingSample
	for rows.Next() {
		var s TrackingSample
		if err := rows.Scan(&s.SessionID, &s.PanDeg, &s.TiltDeg, &s.Zoom, &s.SpeedMPS, &s.OccurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan tracking sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecorderTransition is one row of auto-recorder hysteresis history.
type RecorderTransition struct {
	SessionID  int64
	FromState  string
	ToState    string
	SpeedMPS   float64
	OccurredAt int64
}

// RecentRecorderTransitions returns up to limit of the most recent
// recorder state transitions, oldest first.
func (db *DB) RecentRecorderTransitions(limit int) ([]RecorderTransition, error) {
	rows, err := db.Query(
		`SELECT session_id, from_state, to_state, speed_mps, occurred_at
		 FROM (SELECT * FROM recorder_transitions ORDER BY occurred_at DESC LIMIT ?)
		 ORDER BY occurred_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query recent recorder transitions: %w", err)
	}
	defer rows.Close()

	var out []RecorderTransition
	for rows.Next() {
		var r RecorderTransition
		if err := rows.Scan(&r.SessionID, &r.FromState, &r.ToState, &r.SpeedMPS, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan recorder transition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
