package eventlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fixedNow() func() int64 {
	return func() int64 { return 1700000000 }
}

func TestMigrateUpCreatesAllTables(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"session_events", "calibration_events", "recorder_transitions", "tracking_samples"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		require.Equal(t, table, name)
	}
}

func TestStoreSessionEventRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, fixedNow())

	store.SessionEvent(7, "start", map[string]string{"note": "test"})
	waitForQueueDrain(t, store, db)

	var kind string
	var sessionID int64
	err := db.QueryRow(`SELECT session_id, kind FROM session_events`).Scan(&sessionID, &kind)
	require.NoError(t, err)
	require.Equal(t, int64(7), sessionID)
	require.Equal(t, "start", kind)
}

func TestStoreCalibrationEventRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, fixedNow())

	store.CalibrationEvent("origin", "ok", OriginFields{Lat: 38.5, Lon: -9.1}, 0, 0)
	waitForQueueDrain(t, store, db)

	var lat, lon float64
	var result string
	err := db.QueryRow(`SELECT origin_lat, origin_lon, result FROM calibration_events`).Scan(&lat, &lon, &result)
	require.NoError(t, err)
	require.InDelta(t, 38.5, lat, 1e-9)
	require.InDelta(t, -9.1, lon, 1e-9)
	require.Equal(t, "ok", result)
}

func TestStoreRecorderTransitionAndTrackingSample(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, fixedNow())

	store.RecorderTransition(3, "idle", "recording", 2.8)
	store.TrackingSample(3, 10.5, -4.2, 5.0, 2.8)
	waitForQueueDrain(t, store, db)

	samples, err := db.SessionTrackingSamples(3)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 5.0, samples[0].Zoom)

	transitions, err := db.RecentRecorderTransitions(10)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	require.Equal(t, "recording", transitions[0].ToState)
}

// waitForQueueDrain synchronously runs the store's drain loop so tests
// don't need to race a background goroutine.
func waitForQueueDrain(t *testing.T, store *Store, db *DB) {
	t.Helper()
	store.drain()
}
