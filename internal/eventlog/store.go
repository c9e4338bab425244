package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soar-cam/trackerd/internal/monitoring"
)

// queueDepth bounds how many pending writes the background goroutine may
// buffer; once the queue is full, further events are dropped (and logged)
// rather than blocking the caller. Deep enough to absorb a burst of
// calibration/recorder events without ever stalling the 100 Hz tracking
// loop under normal disk latency.
const queueDepth = 256

// Recorder is the narrow interface the Session Controller, Auto-Recorder,
// and Motion Controller collaborators write through. It never blocks the
// control loop: writes are handed to a buffered channel drained by a
// background goroutine.
type Recorder interface {
	SessionEvent(sessionID int64, kind string, detail interface{})
	CalibrationEvent(kind, result string, origin OriginFields, headingRad float64, panCenterPulse int32)
	RecorderTransition(sessionID int64, fromState, toState string, speedMPS float64)
	TrackingSample(sessionID int64, panDeg, tiltDeg, zoom, speedMPS float64)
}

// OriginFields carries the optional origin-coordinate fields recorded
// alongside a calibration event; zero values are stored as-is since not
// every calibration kind (e.g. pan-center) has a coordinate to report.
type OriginFields struct {
	Lat float64
	Lon float64
}

type sessionEventRow struct {
	uuid       string
	sessionID  int64
	kind       string
	detailJSON string
	occurredAt int64
}

type calibrationEventRow struct {
	uuid           string
	kind           string
	result         string
	originLat      float64
	originLon      float64
	headingRad     float64
	panCenterPulse int32
	occurredAt     int64
}

type recorderTransitionRow struct {
	uuid       string
	sessionID  int64
	fromState  string
	toState    string
	speedMPS   float64
	occurredAt int64
}

type trackingSampleRow struct {
	sessionID  int64
	panDeg     float64
	tiltDeg    float64
	zoom       float64
	speedMPS   float64
	occurredAt int64
}

// Store is the buffered, background-writing implementation of Recorder.
type Store struct {
	db    *DB
	queue chan func(*DB) error
	now   func() int64
}

// NewStore wires a Store over db. now supplies the unix-seconds timestamp
// stamped on every row; callers pass their Clock's Now().Unix in
// production and a fixed function in tests.
func NewStore(db *DB, now func() int64) *Store {
	return &Store{
		db:    db,
		queue: make(chan func(*DB) error, queueDepth),
		now:   now,
	}
}

// Run drains the write queue until ctx is cancelled. Call it from its own
// goroutine at startup.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case job := <-s.queue:
			if err := job(s.db); err != nil {
				monitoring.Logf("eventlog: write failed: %v", err)
			}
		}
	}
}

// drain flushes any jobs still queued at shutdown without blocking on new
// ones, so a graceful shutdown doesn't lose the final few events.
func (s *Store) drain() {
	for {
		select {
		case job := <-s.queue:
			if err := job(s.db); err != nil {
				monitoring.Logf("eventlog: write failed during drain: %v", err)
			}
		default:
			return
		}
	}
}

func (s *Store) enqueue(job func(*DB) error) {
	select {
	case s.queue <- job:
	default:
		monitoring.Logf("eventlog: write queue full, dropping event")
	}
}

func (s *Store) SessionEvent(sessionID int64, kind string, detail interface{}) {
	detailJSON := "{}"
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			detailJSON = string(b)
		}
	}
	row := sessionEventRow{
		uuid:       uuid.NewString(),
		sessionID:  sessionID,
		kind:       kind,
		detailJSON: detailJSON,
		occurredAt: s.now(),
	}
	s.enqueue(func(db *DB) error { return insertSessionEvent(db, row) })
}

func (s *Store) CalibrationEvent(kind, result string, origin OriginFields, headingRad float64, panCenterPulse int32) {
	row := calibrationEventRow{
		uuid:           uuid.NewString(),
		kind:           kind,
		result:         result,
		originLat:      origin.Lat,
		originLon:      origin.Lon,
		headingRad:     headingRad,
		panCenterPulse: panCenterPulse,
		occurredAt:     s.now(),
	}
	s.enqueue(func(db *DB) error { return insertCalibrationEvent(db, row) })
}

func (s *Store) RecorderTransition(sessionID int64, fromState, toState string, speedMPS float64) {
	row := recorderTransitionRow{
		uuid:       uuid.NewString(),
		sessionID:  sessionID,
		fromState:  fromState,
		toState:    toState,
		speedMPS:   speedMPS,
		occurredAt: s.now(),
	}
	s.enqueue(func(db *DB) error { return insertRecorderTransition(db, row) })
}

func (s *Store) TrackingSample(sessionID int64, panDeg, tiltDeg, zoom, speedMPS float64) {
	row := trackingSampleRow{
		sessionID:  sessionID,
		panDeg:     panDeg,
		tiltDeg:    tiltDeg,
		zoom:       zoom,
		speedMPS:   speedMPS,
		occurredAt: s.now(),
	}
	s.enqueue(func(db *DB) error { return insertTrackingSample(db, row) })
}

func insertTrackingSample(db *DB, row trackingSampleRow) error {
	_, err := db.Exec(
		`INSERT INTO tracking_samples (session_id, pan_deg, tilt_deg, zoom, speed_mps, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		row.sessionID, row.panDeg, row.tiltDeg, row.zoom, row.speedMPS, row.occurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking_samples: %w", err)
	}
	return nil
}

func insertSessionEvent(db *DB, row sessionEventRow) error {
	_, err := db.Exec(
		`INSERT INTO session_events (uuid, session_id, kind, detail_json, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		row.uuid, row.sessionID, row.kind, row.detailJSON, row.occurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert session_events: %w", err)
	}
	return nil
}

func insertCalibrationEvent(db *DB, row calibrationEventRow) error {
	_, err := db.Exec(
		`INSERT INTO calibration_events (uuid, kind, result, origin_lat, origin_lon, heading_rad, pan_center_pulse, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.uuid, row.kind, row.result, row.originLat, row.originLon, row.headingRad, row.panCenterPulse, row.occurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert calibration_events: %w", err)
	}
	return nil
}

func insertRecorderTransition(db *DB, row recorderTransitionRow) error {
	_, err := db.Exec(
		`INSERT INTO recorder_transitions (uuid, session_id, from_state, to_state, speed_mps, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		row.uuid, row.sessionID, row.fromState, row.toState, row.speedMPS, row.occurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert recorder_transitions: %w", err)
	}
	return nil
}
