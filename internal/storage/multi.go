package storage

import (
	"errors"
	"fmt"
	"maps"

	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

// Multi fans every call out to several backends. A failing backend does
// not stop the others; the errors are joined.
type Multi struct {
	names    []string
	backends []Backend
}

// NewMulti pairs each backend with a name used in errors and reports.
func NewMulti(names []string, backends []Backend) *Multi {
	return &Multi{names: names, backends: backends}
}

// Backends returns the wrapped backends in order.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(op string, fn func(Backend) error) error {
	var errs []error
	for i, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", m.names[i], op, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Init() error {
	return m.each("init", Backend.Init)
}

func (m *Multi) Close() error {
	return m.each("close", Backend.Close)
}

func (m *Multi) StartSession(s *core.Session) error {
	return m.each("start session", func(b Backend) error { return b.StartSession(s) })
}

func (m *Multi) EndSession() error {
	return m.each("end session", Backend.EndSession)
}

func (m *Multi) RecordCollection(c *core.CollectionSnapshot) error {
	return m.each("collection", func(b Backend) error { return b.RecordCollection(c) })
}

func (m *Multi) RecordBattle(e *core.BattleSnapshot) error {
	return m.each("battle", func(b Backend) error { return b.RecordBattle(e) })
}

func (m *Multi) RecordPlayer(p *core.PlayerSnapshot) error {
	return m.each("player", func(b Backend) error { return b.RecordPlayer(p) })
}

// RecordPerformance forwards to the backends that keep counters.
func (m *Multi) RecordPerformance(p model.ReaderPerformance) error {
	return m.each("performance", func(b Backend) error {
		if pr, ok := b.(PerformanceRecorder); ok {
			return pr.RecordPerformance(p)
		}
		return nil
	})
}

// QueueLengths merges the queue reports, prefixing each key with the
// backend name.
func (m *Multi) QueueLengths() map[string]int {
	out := make(map[string]int)
	for i, b := range m.backends {
		qr, ok := b.(QueueReporter)
		if !ok {
			continue
		}
		for k, v := range qr.QueueLengths() {
			out[m.names[i]+"."+k] = v
		}
	}
	return out
}

// ExportedFilePaths lists every file the backends wrote.
func ExportedFilePaths(b Backend) []string {
	var out []string
	if m, ok := b.(*Multi); ok {
		for _, inner := range m.backends {
			out = append(out, ExportedFilePaths(inner)...)
		}
		return out
	}
	if e, ok := b.(Exporter); ok {
		if p := e.ExportedFilePath(); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// QueueLengths reports a backend's queues, or nil if it has none.
func QueueLengths(b Backend) map[string]int {
	if qr, ok := b.(QueueReporter); ok {
		return maps.Clone(qr.QueueLengths())
	}
	return nil
}
