package worker

import (
	"github.com/monreader/extension/internal/dispatcher"
	"github.com/monreader/extension/internal/tracker"
	"github.com/monreader/extension/pkg/core"
)

// Queue sizes per snapshot command. A full queue evicts its oldest
// snapshot so the stored state stays current.
const (
	collectionBuffer = 64
	boxBuffer        = 256
	battleBuffer     = 64
	playerBuffer     = 16
)

// RegisterHandlers registers the snapshot handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Collections
	d.Register(tracker.CmdParty, m.handleCollection(tracker.CmdParty), dispatcher.Buffered(collectionBuffer), dispatcher.Latest(), dispatcher.Logged())
	d.Register(tracker.CmdEnemy, m.handleCollection(tracker.CmdEnemy), dispatcher.Buffered(collectionBuffer), dispatcher.Latest(), dispatcher.Logged())
	d.Register(tracker.CmdBox, m.handleCollection(tracker.CmdBox), dispatcher.Buffered(boxBuffer), dispatcher.Latest(), dispatcher.Logged())

	// State changes
	d.Register(tracker.CmdBattle, m.handleBattle, dispatcher.Buffered(battleBuffer), dispatcher.Latest(), dispatcher.Logged())
	d.Register(tracker.CmdPlayer, m.handlePlayer, dispatcher.Buffered(playerBuffer), dispatcher.Latest(), dispatcher.Logged())
}

// ready reports whether snapshots should be stored. Snapshots taken outside
// a session are discarded.
func (m *Manager) ready() bool {
	return m.getBackend() != nil && m.deps.Session.ID() != ""
}

func (m *Manager) handleCollection(command string) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		if !m.ready() {
			return nil, nil
		}
		c, err := payloadAs[core.CollectionSnapshot](command, e.Payload)
		if err != nil {
			return nil, err
		}
		if err := m.getBackend().RecordCollection(c); err != nil {
			return nil, err
		}
		m.stored(command, c.Time)
		return nil, nil
	}
}

func (m *Manager) handleBattle(e dispatcher.Event) (any, error) {
	if !m.ready() {
		return nil, nil
	}
	b, err := payloadAs[core.BattleSnapshot](tracker.CmdBattle, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.getBackend().RecordBattle(b); err != nil {
		return nil, err
	}
	m.stored(tracker.CmdBattle, b.Time)
	return nil, nil
}

func (m *Manager) handlePlayer(e dispatcher.Event) (any, error) {
	if !m.ready() {
		return nil, nil
	}
	p, err := payloadAs[core.PlayerSnapshot](tracker.CmdPlayer, e.Payload)
	if err != nil {
		return nil, err
	}
	if err := m.getBackend().RecordPlayer(p); err != nil {
		return nil, err
	}
	m.stored(tracker.CmdPlayer, p.Time)
	return nil, nil
}
