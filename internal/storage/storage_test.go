package storage_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/internal/storage"
	gormstorage "github.com/monreader/extension/internal/storage/gorm"
	influxstorage "github.com/monreader/extension/internal/storage/influx"
	"github.com/monreader/extension/internal/storage/memory"
	pgstorage "github.com/monreader/extension/internal/storage/postgres"
	sqlitestorage "github.com/monreader/extension/internal/storage/sqlite"
	wsstorage "github.com/monreader/extension/internal/storage/websocket"
	"github.com/monreader/extension/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Backend = (*sqlitestorage.Backend)(nil)
	_ storage.Backend = (*pgstorage.Backend)(nil)
	_ storage.Backend = (*wsstorage.Backend)(nil)
	_ storage.Backend = (*influxstorage.Backend)(nil)
	_ storage.Backend = (*storage.Multi)(nil)

	_ storage.Exporter = (*memory.Backend)(nil)
	_ storage.Exporter = (*sqlitestorage.Backend)(nil)
	_ storage.Exporter = (*pgstorage.Backend)(nil)
	_ storage.Exporter = (*influxstorage.Backend)(nil)

	_ storage.PerformanceRecorder = (*gormstorage.Backend)(nil)
	_ storage.PerformanceRecorder = (*influxstorage.Backend)(nil)
	_ storage.PerformanceRecorder = (*storage.Multi)(nil)

	_ storage.QueueReporter = (*gormstorage.Backend)(nil)
	_ storage.QueueReporter = (*storage.Multi)(nil)
)

// fakeBackend records calls and fails on demand.
type fakeBackend struct {
	fail        error
	collections int
	sessions    int
	perf        int
	path        string
}

func (f *fakeBackend) Init() error                               { return f.fail }
func (f *fakeBackend) Close() error                              { return nil }
func (f *fakeBackend) StartSession(*core.Session) error          { f.sessions++; return f.fail }
func (f *fakeBackend) EndSession() error                         { return f.fail }
func (f *fakeBackend) RecordCollection(*core.CollectionSnapshot) error {
	f.collections++
	return f.fail
}
func (f *fakeBackend) RecordBattle(*core.BattleSnapshot) error { return f.fail }
func (f *fakeBackend) RecordPlayer(*core.PlayerSnapshot) error { return f.fail }
func (f *fakeBackend) ExportedFilePath() string               { return f.path }

type perfBackend struct{ fakeBackend }

func (p *perfBackend) RecordPerformance(model.ReaderPerformance) error { p.perf++; return nil }
func (p *perfBackend) QueueLengths() map[string]int                    { return map[string]int{"rows": 4} }

func TestNewBackend_DefaultsToMemory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{}, storage.Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "mysql"}, storage.Dependencies{})
	assert.ErrorContains(t, err, "unknown storage type: mysql")
}

func TestNewBackend_MultiDeduplicates(t *testing.T) {
	cfg := config.StorageConfig{
		Type:      "memory, WebSocket,memory",
		WebSocket: config.WebSocketConfig{URL: "ws://127.0.0.1:1/stream"},
	}
	b, err := storage.NewBackend(cfg, storage.Dependencies{})
	require.NoError(t, err)
	m, ok := b.(*storage.Multi)
	require.True(t, ok)
	require.Len(t, m.Backends(), 2)
	assert.IsType(t, &memory.Backend{}, m.Backends()[0])
	assert.IsType(t, &wsstorage.Backend{}, m.Backends()[1])
}

func TestNewBackend_SQLiteDumpName(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{OutputDir: dir},
	}, storage.Dependencies{Started: started})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "monreader_20260304_050607.db")}, storage.ExportedFilePaths(b))
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	bad := &fakeBackend{fail: errors.New("boom")}
	good := &fakeBackend{}
	m := storage.NewMulti([]string{"bad", "good"}, []storage.Backend{bad, good})

	err := m.RecordCollection(&core.CollectionSnapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad collection: boom")
	assert.Equal(t, 1, good.collections)

	assert.NoError(t, storage.NewMulti([]string{"good"}, []storage.Backend{good}).StartSession(&core.Session{}))
	assert.Equal(t, 1, good.sessions)
}

func TestMulti_OptionalInterfaces(t *testing.T) {
	plain := &fakeBackend{path: "a.json"}
	perf := &perfBackend{fakeBackend{path: "b.db"}}
	m := storage.NewMulti([]string{"memory", "sqlite"}, []storage.Backend{plain, perf})

	require.NoError(t, m.RecordPerformance(model.ReaderPerformance{}))
	assert.Equal(t, 1, perf.perf)
	assert.Equal(t, map[string]int{"sqlite.rows": 4}, storage.QueueLengths(m))
	assert.Equal(t, []string{"a.json", "b.db"}, storage.ExportedFilePaths(m))
	assert.Nil(t, storage.QueueLengths(plain))
}
