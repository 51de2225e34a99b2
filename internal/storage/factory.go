package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/monreader/extension/internal/config"
	influxstorage "github.com/monreader/extension/internal/storage/influx"
	"github.com/monreader/extension/internal/storage/memory"
	pgstorage "github.com/monreader/extension/internal/storage/postgres"
	sqlitestorage "github.com/monreader/extension/internal/storage/sqlite"
	wsstorage "github.com/monreader/extension/internal/storage/websocket"
)

// Backend names accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
	TypeInflux    = "influx"
)

// Dependencies are shared by the backends the factory builds.
type Dependencies struct {
	Logger  *slog.Logger
	DBLog   zerolog.Logger
	Version string
	// Started names the SQLite dump files.
	Started time.Time
}

// NewBackend creates the backends listed in cfg.Type. A single entry is
// returned as is; several are wrapped in a Multi.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	types := cfg.Types()
	if len(types) == 0 {
		types = []string{TypeMemory}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}

	seen := make(map[string]bool, len(types))
	backends := make([]Backend, 0, len(types))
	names := make([]string, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		b, err := newBackend(t, cfg, deps)
		if err != nil {
			return nil, err
		}
		deps.Logger.Info("Storage backend created", "type", t)
		backends = append(backends, b)
		names = append(names, t)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMulti(names, backends), nil
}

func newBackend(t string, cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch t {
	case TypeMemory:
		return memory.New(cfg.Memory, deps.Version), nil

	case TypeSQLite:
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      sqlitestorage.DumpFileName(cfg.SQLite.OutputDir, deps.Started),
			FlushInterval: cfg.FlushInterval,
		}, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case TypePostgres:
		return pgstorage.New(pgstorage.Config{
			DB:            cfg.DB,
			FlushInterval: cfg.FlushInterval,
			FallbackPath:  sqlitestorage.DumpFileName(cfg.SQLite.OutputDir, deps.Started),
		}, deps.Logger, deps.DBLog), nil

	case TypeWebSocket:
		return wsstorage.New(wsstorage.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, deps.Logger), nil

	case TypeInflux:
		return influxstorage.New(cfg.Influx, deps.DBLog), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", t)
	}
}
