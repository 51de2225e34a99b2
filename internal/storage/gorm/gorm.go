// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. The SQLite and
// Postgres backends embed it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/internal/model/convert"
	"github.com/monreader/extension/internal/queue"
	"github.com/monreader/extension/pkg/core"
)

// ErrNoSession is returned when a snapshot arrives outside a session.
var ErrNoSession = errors.New("no active session")

const (
	defaultFlushInterval = 2 * time.Second
	maxQueued            = 50_000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	// SkipMigrate is set when the caller has already migrated the schema.
	SkipMigrate bool
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Collections *queue.Queue[model.CollectionSnapshot]
	Battles     *queue.Queue[model.BattleEvent]
	Players     *queue.Queue[model.PlayerSnapshot]
	Performance *queue.Queue[model.ReaderPerformance]
}

func newQueues() *queues {
	return &queues{
		Collections: queue.NewBounded[model.CollectionSnapshot](maxQueued),
		Battles:     queue.NewBounded[model.BattleEvent](maxQueued),
		Players:     queue.NewBounded[model.PlayerSnapshot](maxQueued),
		Performance: queue.NewBounded[model.ReaderPerformance](maxQueued),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu        sync.RWMutex
	sessionID string

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if !b.deps.SkipMigrate {
		b.deps.Logger.Info("Migrating schema", "driver", b.deps.DB.Name())
		if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer and drains whatever is still queued.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	if b.deps.DB == nil {
		return nil
	}
	b.Flush()
	return nil
}

// SessionID returns the active session id, or "".
func (b *Backend) SessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionID
}

// StartSession inserts the session row synchronously so snapshot rows
// always reference an existing session.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	if b.deps.DB != nil {
		if err := b.deps.DB.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
	}
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	return nil
}

// EndSession flushes the queues and stamps the session's end time.
func (b *Backend) EndSession() error {
	id := b.SessionID()
	if id == "" {
		return ErrNoSession
	}
	if b.deps.DB != nil {
		b.Flush()
		ended := time.Now().UTC()
		err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("ended", ended).Error
		if err != nil {
			return fmt.Errorf("failed to end session %s: %w", id, err)
		}
	}
	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()
	return nil
}

// RecordCollection converts a snapshot and its slots and queues them.
func (b *Backend) RecordCollection(c *core.CollectionSnapshot) error {
	id := b.SessionID()
	if id == "" {
		return ErrNoSession
	}
	row, err := convert.CoreToCollection(id, *c)
	if err != nil {
		return err
	}
	b.queues.Collections.Push(row)
	return nil
}

// RecordBattle converts and queues a battle event.
func (b *Backend) RecordBattle(e *core.BattleSnapshot) error {
	id := b.SessionID()
	if id == "" {
		return ErrNoSession
	}
	b.queues.Battles.Push(convert.CoreToBattle(id, *e))
	return nil
}

// RecordPlayer converts and queues a trainer card read.
func (b *Backend) RecordPlayer(p *core.PlayerSnapshot) error {
	id := b.SessionID()
	if id == "" {
		return ErrNoSession
	}
	b.queues.Players.Push(convert.CoreToPlayer(id, *p))
	return nil
}

// RecordPerformance queues a counter sample. Samples outside a session are
// kept with an empty session id.
func (b *Backend) RecordPerformance(p model.ReaderPerformance) error {
	p.SessionID = b.SessionID()
	b.queues.Performance.Push(p)
	return nil
}

// QueueLengths reports the pending rows per queue.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"collections": b.queues.Collections.Len(),
		"battles":     b.queues.Battles.Len(),
		"players":     b.queues.Players.Len(),
		"performance": b.queues.Performance.Len(),
	}
}

// Dropped reports how many rows the bounded queues discarded.
func (b *Backend) Dropped() uint64 {
	return b.queues.Collections.Dropped() + b.queues.Battles.Dropped() +
		b.queues.Players.Dropped() + b.queues.Performance.Dropped()
}

// Flush writes every queue to the database.
func (b *Backend) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	db := b.deps.DB
	if db == nil {
		return
	}
	log := b.deps.Logger
	writeQueue(db, b.queues.Collections, "collection snapshots", log)
	writeQueue(db, b.queues.Battles, "battle events", log)
	writeQueue(db, b.queues.Players, "player snapshots", log)
	writeQueue(db, b.queues.Performance, "reader performance", log)
}

// writeQueue writes all items from a queue to the database in a
// transaction. Failed batches go back in front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return
	}
	if err := tx.Commit().Error; err != nil {
		log.Error("Error committing rows", "table", name, "error", err)
		q.Requeue(items)
	}
}

// writer periodically drains the queues into the DB.
func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
