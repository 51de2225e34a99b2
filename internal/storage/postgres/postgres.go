// Package postgres implements the storage.Backend interface on PostgreSQL.
// When Postgres cannot be reached the backend records into an in-memory
// SQLite database instead and dumps it to disk on close.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/database"
	gormstorage "github.com/monreader/extension/internal/storage/gorm"
)

// Config holds configuration for the Postgres backend.
type Config struct {
	DB            config.DBConfig
	FlushInterval time.Duration
	// FallbackPath receives the SQLite dump when Postgres was unreachable.
	FallbackPath string
}

// Backend wraps the GORM backend around a database.Manager connection.
type Backend struct {
	*gormstorage.Backend
	cfg     Config
	manager *database.Manager
	log     *slog.Logger
}

// New creates a new Postgres storage backend. dbLog is used by the
// connection manager.
func New(cfg Config, logger *slog.Logger, dbLog zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(dbLog),
		log:     logger,
	}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.cfg.DB); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := b.manager.Migrate(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	if b.Fallback() {
		b.log.Warn("Postgres unavailable, recording to SQLite", "dump", b.cfg.FallbackPath)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            b.manager.DB(),
		Logger:        b.log,
		FlushInterval: b.cfg.FlushInterval,
		SkipMigrate:   true,
	})
	return b.Backend.Init()
}

// Fallback reports whether the backend is recording to SQLite.
func (b *Backend) Fallback() bool {
	return b.manager.Kind() == database.KindSQLite
}

// ExportedFilePath returns the SQLite dump path when the backend fell back,
// or "".
func (b *Backend) ExportedFilePath() string {
	if !b.Fallback() {
		return ""
	}
	return b.cfg.FallbackPath
}

// Close drains the writer, dumps a fallback database and closes the pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.Fallback() && b.cfg.FallbackPath != "" {
		if err := b.manager.Dump(b.cfg.FallbackPath); err != nil {
			b.log.Error("Failed to dump fallback database", "error", err)
		}
	}
	return b.manager.Close()
}
