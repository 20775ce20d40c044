package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robolab-sim/engine/internal/database"
	gormstorage "github.com/robolab-sim/engine/internal/storage/gorm"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndSessionDumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dumps", "robosim.db")
	b, err := New(Config{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", RobotKind: core.KindSpider, StartTime: time.Now()}))
	require.NoError(t, b.RecordRobotState(&core.RobotStateSample{SessionID: "s1", Tick: 6}))
	require.NoError(t, b.EndSession())

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.GetExportedFilePath())

	disk, err := database.OpenSqlite(path)
	require.NoError(t, err)
	rec, err := gormstorage.LoadSession(context.Background(), disk, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.KindSpider, rec.Session.RobotKind)
	assert.Len(t, rec.States, 1)
}

func TestPeriodicDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{ID: "s2", StartTime: time.Now()}))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(&core.Session{ID: "s3", StartTime: time.Now()}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())
	assert.Empty(t, b.GetExportedFilePath())
}
