package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlitestorage "github.com/robolab-sim/engine/internal/storage/sqlite"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSession writes one finished session to a sqlite file at path.
func recordSession(t *testing.T, path string) {
	t.Helper()
	b, err := sqlitestorage.New(sqlitestorage.Config{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	start := time.Now().Add(-time.Minute)
	require.NoError(t, b.StartSession(&core.Session{
		ID:          "run-1",
		RobotKind:   core.KindMobile,
		ChallengeID: "intro",
		StartTime:   start,
		Environment: core.EnvironmentInfo{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10, ObstacleCount: 2},
	}))
	require.NoError(t, b.RecordRobotState(&core.RobotStateSample{
		SessionID: "run-1",
		Tick:      60,
		Time:      start.Add(time.Second),
		Snapshot:  core.RobotSnapshot{BatteryLevel: 99.8},
	}))
	require.NoError(t, b.RecordRobotState(&core.RobotStateSample{
		SessionID: "run-1",
		Tick:      120,
		Time:      start.Add(2 * time.Second),
		Snapshot: core.RobotSnapshot{
			Position:         core.Position3D{X: 0.75, Z: 1},
			BatteryLevel:     99.5,
			DistanceTraveled: 1.25,
		},
	}))
	require.NoError(t, b.RecordCollision(&core.CollisionEvent{SessionID: "run-1", Tick: 30}))
	require.NoError(t, b.RecordObjectiveCompleted(&core.ObjectiveCompleted{
		SessionID: "run-1", ChallengeID: "intro", ObjectiveID: "reach", Tick: 55,
	}))
	require.NoError(t, b.RecordSequenceStep(&core.SequenceStep{SessionID: "run-1", Index: 0, Total: 2, Action: "forward"}))
	require.NoError(t, b.RecordSequenceStep(&core.SequenceStep{SessionID: "run-1", Index: 1, Total: 2, Action: "fly", Err: "unknown action"}))
	require.NoError(t, b.EndSession())
}

func useSqlite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robosim.db")
	viper.Set("storage.type", "sqlite")
	viper.Set("storage.sqlite.path", path)
	t.Cleanup(viper.Reset)
	return path
}

func TestListSessions(t *testing.T) {
	recordSession(t, useSqlite(t))

	var out bytes.Buffer
	require.NoError(t, listSessions(context.Background(), 10, &out))

	assert.Contains(t, out.String(), "CHALLENGE")
	assert.Contains(t, out.String(), "run-1")
	assert.Contains(t, out.String(), "intro")
}

func TestListSessionsEmpty(t *testing.T) {
	useSqlite(t)

	var out bytes.Buffer
	require.NoError(t, listSessions(context.Background(), 10, &out))
	assert.Equal(t, "No sessions recorded.\n", out.String())
}

func TestReportSessions(t *testing.T) {
	recordSession(t, useSqlite(t))

	var out bytes.Buffer
	require.NoError(t, reportSessions(context.Background(), []string{"run-1", "missing", "run-1"}, &out))

	report := out.String()
	assert.Contains(t, report, "session run-1")
	assert.Contains(t, report, "challenge:  intro")
	assert.Contains(t, report, "2 obstacles")
	assert.Contains(t, report, "samples:    2 (last at tick 120)")
	assert.Contains(t, report, "distance:   1.25 m")
	assert.Contains(t, report, "track:      1.25 m sampled, 1.25 m start to end")
	assert.Contains(t, report, "collisions: 1")
	assert.Contains(t, report, "steps:      2 (1 skipped)")
	assert.Contains(t, report, "[x] reach at tick 55")
	assert.Contains(t, report, "session missing: not found")
	assert.Equal(t, 1, strings.Count(report, "session run-1"), "repeated ids are reported once")
}

func TestReportNeedsQueryableStorage(t *testing.T) {
	viper.Set("storage.type", "memory")
	t.Cleanup(viper.Reset)

	err := listSessions(context.Background(), 10, &bytes.Buffer{})
	assert.ErrorIs(t, err, errNotQueryable)
}

func TestSessionDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "running", sessionDuration(start, time.Time{}))
	assert.Equal(t, "1m30s", sessionDuration(start, start.Add(90*time.Second)))
}
