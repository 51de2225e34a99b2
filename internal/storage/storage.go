// Package storage persists the snapshots the tracker produces. Each
// backend receives a session start, any number of snapshots and a
// session end.
package storage

import (
	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Snapshot recording
	RecordCollection(c *core.CollectionSnapshot) error
	RecordBattle(b *core.BattleSnapshot) error
	RecordPlayer(p *core.PlayerSnapshot) error
}

// Exporter is an optional interface for backends that write a file when a
// session ends.
type Exporter interface {
	ExportedFilePath() string
}

// PerformanceRecorder is an optional interface for backends that keep the
// reader's own counters.
type PerformanceRecorder interface {
	RecordPerformance(p model.ReaderPerformance) error
}

// QueueReporter is an optional interface for backends with write queues.
type QueueReporter interface {
	QueueLengths() map[string]int
}
