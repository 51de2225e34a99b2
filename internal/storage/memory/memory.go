// Package memory keeps a session's snapshots in memory and writes them as
// one JSON file when the session ends.
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/monreader/extension/internal/config"
	"github.com/monreader/extension/internal/queue"
	v1 "github.com/monreader/extension/internal/storage/memory/export/v1"
	"github.com/monreader/extension/pkg/core"
)

// maxHistory bounds the party and enemy histories. At the default cadence
// that is several hours of play.
const maxHistory = 50_000

// ErrNoSession is returned when a session end arrives with none started.
var ErrNoSession = errors.New("no active session")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	version string

	mu      sync.RWMutex
	session *core.Session
	party   *queue.Queue[core.CollectionSnapshot]
	enemy   *queue.Queue[core.CollectionSnapshot]
	boxes   map[int]core.CollectionSnapshot
	battles []core.BattleSnapshot
	player  *core.PlayerSnapshot

	lastExportPath string
}

// New creates a new memory backend. version is written into exports.
func New(cfg config.MemoryConfig, version string) *Backend {
	b := &Backend{cfg: cfg, version: version}
	b.reset()
	return b
}

func (b *Backend) reset() {
	b.party = queue.NewBounded[core.CollectionSnapshot](maxHistory)
	b.enemy = queue.NewBounded[core.CollectionSnapshot](maxHistory)
	b.boxes = make(map[int]core.CollectionSnapshot)
	b.battles = nil
	b.player = nil
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.reset()
	return nil
}

// EndSession writes the export file and clears the session.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	err := b.exportJSON(time.Now().UTC())
	b.session = nil
	b.reset()
	return err
}

// RecordCollection stores a party, enemy or box snapshot. Boxes keep only
// their latest read.
func (b *Backend) RecordCollection(c *core.CollectionSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch c.Kind {
	case core.KindParty:
		b.party.Push(*c)
	case core.KindEnemy:
		b.enemy.Push(*c)
	case core.KindBox:
		b.boxes[c.Box] = *c
	default:
		return fmt.Errorf("unknown collection kind %q", c.Kind)
	}
	return nil
}

// RecordBattle records a battle state change
func (b *Backend) RecordBattle(s *core.BattleSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.battles = append(b.battles, *s)
	return nil
}

// RecordPlayer keeps the latest trainer card.
func (b *Backend) RecordPlayer(p *core.PlayerSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *p
	b.player = &cp
	return nil
}

// Counts reports how many snapshots are held, by kind.
func (b *Backend) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]int{
		core.KindParty: b.party.Len(),
		core.KindEnemy: b.enemy.Len(),
		core.KindBox:   len(b.boxes),
		"battle":       len(b.battles),
	}
}

// ExportedFilePath returns the file written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// buildExport snapshots the held data into the export format. Queues are
// read without draining so a failed write can be retried.
func (b *Backend) buildExport(ended time.Time) v1.Export {
	party := b.party.Snapshot()
	enemy := b.enemy.Snapshot()

	return v1.Build(&v1.SessionData{
		Session:          b.session,
		Ended:            ended,
		ExtensionVersion: b.version,
		Party:            party,
		Enemy:            enemy,
		Boxes:            b.boxes,
		Battles:          b.battles,
		Player:           b.player,
	})
}

// exportJSON writes the session to <outputDir>/<game>_<start>_<id>.json[.gz].
func (b *Backend) exportJSON(ended time.Time) error {
	export := b.buildExport(ended)

	code := b.session.Game.Code
	if code == "" {
		code = "UNKNOWN"
	}
	id := b.session.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s_%s_%s.json", code, b.session.Started.Format("20060102_150405"), id)
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, name)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
