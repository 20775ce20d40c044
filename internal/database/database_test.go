package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqlite_InMemoryDatabasesAreIsolated(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))
	require.NoError(t, a.Create(&model.Session{ID: "s1", RobotKind: "mobile"}).Error)

	assert.True(t, a.Migrator().HasTable(&model.Session{}))
	assert.False(t, b.Migrator().HasTable(&model.Session{}))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Session{ID: "s1", RobotKind: "arm"}).Error)

	path := filepath.Join(t.TempDir(), "dumps", "robosim.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// second dump overwrites
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var s model.Session
	require.NoError(t, disk.First(&s, "id = ?", "s1").Error)
	assert.Equal(t, "arm", s.RobotKind)
}

func TestDumpMemoryDBToDisk_Errors(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
	assert.Error(t, DumpMemoryDBToDisk(db, "/tmp/it's.db"))
}

func TestManager_ConnectFallsBackToSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x"})

	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.RobotState{}))

	m.SqliteFilePath = filepath.Join(t.TempDir(), "fallback.db")
	require.NoError(t, m.DumpMemoryToDisk())
}
