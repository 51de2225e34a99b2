// Package influxstorage writes snapshots to InfluxDB as time series, one
// point per filled slot. Points go to a gzip backup file while the server
// is unreachable.
package influxstorage

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/influx"
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

// ErrNoSession is returned when a snapshot arrives outside a session.
var ErrNoSession = errors.New("no active session")

// Backend implements storage.Backend on an influx.Manager.
type Backend struct {
	manager *influx.Manager

	mu        sync.RWMutex
	sessionID string
}

// New creates an InfluxDB backend.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{manager: influx.NewManager(log, cfg)}
}

// Manager exposes the connection for the performance monitor.
func (b *Backend) Manager() *influx.Manager {
	return b.manager
}

func (b *Backend) Init() error {
	return b.manager.Connect()
}

func (b *Backend) Close() error {
	return b.manager.Close()
}

// ExportedFilePath returns the backup file when the server was unreachable.
func (b *Backend) ExportedFilePath() string {
	if b.manager.IsValid {
		return ""
	}
	return b.manager.BackupPath
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	return nil
}

func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return ErrNoSession
	}
	b.sessionID = ""
	return nil
}

func (b *Backend) session() (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sessionID == "" {
		return "", ErrNoSession
	}
	return b.sessionID, nil
}

func (b *Backend) RecordCollection(c *core.CollectionSnapshot) error {
	id, err := b.session()
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, p := range influx.SlotPoints(id, c) {
		if err := b.manager.WritePoint(ctx, b.manager.Bucket(), p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) RecordBattle(e *core.BattleSnapshot) error {
	id, err := b.session()
	if err != nil {
		return err
	}
	return b.manager.WritePoint(context.Background(), b.manager.Bucket(), influx.BattlePoint(id, e))
}

func (b *Backend) RecordPlayer(p *core.PlayerSnapshot) error {
	id, err := b.session()
	if err != nil {
		return err
	}
	return b.manager.WritePoint(context.Background(), b.manager.Bucket(), influx.PlayerPoint(id, p))
}

// RecordPerformance writes a counter sample to the performance bucket.
func (b *Backend) RecordPerformance(p model.ReaderPerformance) error {
	b.mu.RLock()
	id := b.sessionID
	b.mu.RUnlock()
	point := influx.PerformancePoint(id, p.ReadsTotal, p.ReadsFailed, p.ReadsFallback, p.Time)
	return b.manager.WritePoint(context.Background(), influx.PerformanceBucket, point)
}
