package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/monreader/extension/internal/session"
	"github.com/monreader/extension/internal/storage"
)

// ErrUnexpectedPayload is returned when a snapshot command carries the
// wrong payload type.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger  *slog.Logger
	Session *session.Context
}

// Manager moves snapshots from the dispatcher into the storage backend.
type Manager struct {
	deps Dependencies

	mu      sync.RWMutex
	backend storage.Backend
	last    map[string]time.Time
	counts  map[string]uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		last:    make(map[string]time.Time),
		counts:  make(map[string]uint64),
	}
}

// SetBackend swaps the storage backend.
func (m *Manager) SetBackend(b storage.Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend = b
}

func (m *Manager) getBackend() storage.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// LastSnapshots returns when each snapshot command was last stored.
func (m *Manager) LastSnapshots() map[string]time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.last)
}

// Counts returns how many snapshots of each command were stored.
func (m *Manager) Counts() map[string]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.counts)
}

func (m *Manager) stored(command string, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[command] = at
	m.counts[command]++
}

func payloadAs[T any](command string, payload any) (*T, error) {
	v, ok := payload.(*T)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w for %s: %T", ErrUnexpectedPayload, command, payload)
	}
	return v, nil
}
