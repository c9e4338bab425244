package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soar-cam/trackerd/internal/eventlog"
)

func newTestDB(t *testing.T) (*eventlog.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventlog.db")
	db, err := eventlog.OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func insertSample(t *testing.T, db *eventlog.DB, sessionID int64, pan, tilt, zoom, speed float64, occurredAt int64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO tracking_samples (session_id, pan_deg, tilt_deg, zoom, speed_mps, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, pan, tilt, zoom, speed, occurredAt,
	)
	require.NoError(t, err)
}

func TestRunRendersRecentSamplesWhenNoSessionGiven(t *testing.T) {
	db, path := newTestDB(t)
	insertSample(t, db, 1, 10, -5, 2, 1.5, 1700000000)
	insertSample(t, db, 1, 12, -4, 2, 1.8, 1700000010)

	out := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, run(path, 0, 100, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRunRendersSingleSessionWhenGiven(t *testing.T) {
	db, path := newTestDB(t)
	insertSample(t, db, 3, 10, -5, 2, 1.5, 1700000000)
	insertSample(t, db, 4, 20, 5, 3, 2.0, 1700000001)

	out := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, run(path, 3, 100, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestRunErrorsWithNoSamples(t *testing.T) {
	_, path := newTestDB(t)

	out := filepath.Join(t.TempDir(), "plot.png")
	err := run(path, 0, 100, out)
	require.Error(t, err)
}
