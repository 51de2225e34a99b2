package database

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/model"
)

func TestConnect_FallsBackToSQLite(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(zerolog.New(&buf))

	// Nothing listens on port 1.
	err := m.Connect(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.Equal(t, KindSQLite, m.Kind())
	assert.NotNil(t, m.DB())
	assert.Contains(t, buf.String(), "trying SQLite")
}

func TestMigrate_StampsVersionAndDumps(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(filepath.Join(dir, "work.db")))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Migrate())

	for _, tbl := range model.DatabaseModels {
		assert.True(t, m.DB().Migrator().HasTable(tbl), "%T not migrated", tbl)
	}
	v, err := UserVersion(m.DB())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	require.NoError(t, m.DB().Create(&model.Session{ID: "abc", GameCode: "BPEE"}).Error)

	dump := filepath.Join(dir, "dump.db")
	require.NoError(t, m.Dump(dump))
	require.NoError(t, m.DB().Create(&model.Session{ID: "def", GameCode: "BPEE"}).Error)
	require.NoError(t, m.Dump(dump), "second dump replaces the first")

	_, err = os.Stat(dump + ".tmp")
	assert.True(t, os.IsNotExist(err), "no temp file left behind")

	dumped, err := OpenSQLite(dump)
	require.NoError(t, err)
	counts, err := RowCounts(dumped)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["sessions"])
	assert.Len(t, counts, len(model.DatabaseModels))
}

func TestNotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Equal(t, KindNone, m.Kind())
	assert.ErrorIs(t, m.Migrate(), ErrNotConnected)
	assert.ErrorIs(t, m.Dump(filepath.Join(t.TempDir(), "x.db")), ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestClose_ResetsKind(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(filepath.Join(t.TempDir(), "work.db")))
	require.NoError(t, m.Close())
	assert.Equal(t, KindNone, m.Kind())
	assert.Nil(t, m.DB())
}

func TestVacuumInto_NoPath(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "work.db"))
	require.NoError(t, err)
	assert.Error(t, VacuumInto(db, ""))
}
