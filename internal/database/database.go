// Package database opens the relational stores the recorder writes
// snapshots into: Postgres, or SQLite on disk or in memory.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/model"
)

// MemoryDSN is the shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// SchemaVersion is stamped into SQLite files as user_version so tools
// reading a dump can tell which model layout it holds.
const SchemaVersion = 2

// Kind names the engine behind a Manager.
type Kind string

const (
	KindNone     Kind = ""
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// ErrNotConnected is returned by operations that need an open database.
var ErrNotConnected = errors.New("database not connected")

const pingTimeout = 5 * time.Second

// sqlitePragmas tune SQLite for a write-heavy recorder.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// Manager owns one database connection.
type Manager struct {
	db    *gorm.DB
	sqlDB *sql.DB
	kind  Kind
	log   zerolog.Logger
}

// NewManager creates a manager with no connection.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// DB returns the connection, or nil before Connect.
func (m *Manager) DB() *gorm.DB { return m.db }

// Kind reports which engine is connected.
func (m *Manager) Kind() Kind { return m.kind }

// Connect opens Postgres and falls back to in-memory SQLite when it cannot
// be opened or does not answer a ping.
func (m *Manager) Connect(cfg config.DBConfig) error {
	err := m.connectPostgres(cfg)
	if err == nil {
		m.log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to Postgres")
		return nil
	}
	m.log.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	return m.ConnectSQLite("")
}

func (m *Manager) connectPostgres(cfg config.DBConfig) error {
	db, err := OpenPostgres(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return err
	}
	sqlDB.SetMaxOpenConns(10)
	m.db, m.sqlDB, m.kind = db, sqlDB, KindPostgres
	return nil
}

// ConnectSQLite opens a SQLite file, or the shared in-memory database when
// path is empty.
func (m *Manager) ConnectSQLite(path string) error {
	db, err := OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("opening SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("accessing sql interface: %w", err)
	}
	m.db, m.sqlDB, m.kind = db, sqlDB, KindSQLite

	if path == "" {
		m.log.Info().Msg("Using in-memory SQLite with disk dumps")
	} else {
		m.log.Info().Str("path", path).Msg("Using SQLite file")
	}
	return nil
}

// Migrate creates or updates the snapshot tables.
func (m *Manager) Migrate() error {
	if m.db == nil {
		return ErrNotConnected
	}
	if err := m.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	if m.kind == KindSQLite {
		if err := StampVersion(m.db); err != nil {
			return err
		}
	}
	m.log.Info().Str("kind", string(m.kind)).Int("tables", len(model.DatabaseModels)).Msg("Schema migrated")
	return nil
}

// Dump writes a point-in-time copy of a SQLite database to path.
func (m *Manager) Dump(path string) error {
	if m.db == nil {
		return ErrNotConnected
	}
	if m.kind != KindSQLite {
		return fmt.Errorf("dump needs SQLite, connected to %s", m.kind)
	}
	start := time.Now()
	if err := VacuumInto(m.db, path); err != nil {
		return err
	}
	m.log.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped SQLite to disk")
	return nil
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	if m.sqlDB == nil {
		return nil
	}
	err := m.sqlDB.Close()
	m.db, m.sqlDB, m.kind = nil, nil, KindNone
	return err
}

// StampVersion records SchemaVersion in a SQLite database.
func StampVersion(db *gorm.DB) error {
	if err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d;", SchemaVersion)).Error; err != nil {
		return fmt.Errorf("stamping schema version: %w", err)
	}
	return nil
}

// UserVersion reads the schema version stamped in a SQLite database.
func UserVersion(db *gorm.DB) (int, error) {
	var v int
	err := db.Raw("PRAGMA user_version;").Scan(&v).Error
	return v, err
}

// RowCounts returns the number of rows in each snapshot table.
func RowCounts(db *gorm.DB) (map[string]int64, error) {
	counts := make(map[string]int64, len(model.DatabaseModels))
	for _, mdl := range model.DatabaseModels {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(mdl); err != nil {
			return nil, err
		}
		var n int64
		if err := db.Model(mdl).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("counting %s: %w", stmt.Table, err)
		}
		counts[stmt.Table] = n
	}
	return counts, nil
}

// OpenPostgres opens a Postgres connection.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// OpenSQLite opens a SQLite database. If path is empty, uses the shared
// in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	return db, nil
}

// VacuumInto copies db into path. The copy is written beside path and
// renamed over it, so a reader never sees a half-written dump.
func VacuumInto(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("dump path not set")
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale dump: %w", err)
	}
	target := strings.ReplaceAll(tmp, "'", "''")
	if err := db.Exec("VACUUM INTO '" + target + "';").Error; err != nil {
		return fmt.Errorf("vacuuming into %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing dump: %w", err)
	}
	return nil
}
