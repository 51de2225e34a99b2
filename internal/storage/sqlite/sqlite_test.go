package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/database"
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

func testSession() *core.Session {
	return &core.Session{
		ID:      "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Started: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Game:    core.GameInfo{Code: "BPEE"},
	}
}

func TestDumpFileName(t *testing.T) {
	got := DumpFileName("out", time.Date(2026, 2, 1, 9, 5, 7, 0, time.UTC))
	assert.Equal(t, filepath.Join("out", "monreader_20260201_090507.db"), got)
}

func TestClose_WritesFinalDump(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dumps", "final.db")
	b, err := New(Config{
		Path:          filepath.Join(dir, "work.db"),
		DumpPath:      dump,
		FlushInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordBattle(&core.BattleSnapshot{Frame: 3, InBattle: true}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, dump, b.ExportedFilePath())

	db, err := database.OpenSQLite(dump)
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&model.BattleEvent{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	var s model.Session
	require.NoError(t, db.First(&s).Error)
	assert.NotNil(t, s.Ended)

	v, err := database.UserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, database.SchemaVersion, v)
}

func TestDumpLoop_WritesPeriodically(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "periodic.db")
	b, err := New(Config{
		Path:          filepath.Join(dir, "work.db"),
		DumpPath:      dump,
		DumpInterval:  20 * time.Millisecond,
		FlushInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{Path: filepath.Join(t.TempDir(), "work.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	assert.Empty(t, b.ExportedFilePath())
	assert.NoError(t, b.Close())
}
