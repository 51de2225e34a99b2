// Package websocket streams snapshots to a relay server. Session start and
// end wait for the server's ack; everything else is fire-and-forget.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/monreader/extension/pkg/core"
	"github.com/monreader/extension/pkg/streaming"
)

// ErrNoSession is returned when a snapshot arrives outside a session.
var ErrNoSession = errors.New("no active session")

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data over WebSocket to a relay server.
type Backend struct {
	link *link
	cfg  Config

	mu        sync.RWMutex
	sessionID string
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link: newLink(logger, outboxSize),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.close()
}

// Dropped returns the number of messages evicted from a full outbox.
func (b *Backend) Dropped() uint64 {
	return b.link.outbox.Dropped()
}

func (b *Backend) currentSession() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionID
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// stateKey names the replay slot a collection occupies. Each box is its own
// slot so a reconnect resends every box read this session.
func stateKey(c *core.CollectionSnapshot) string {
	if c.Kind == core.KindBox {
		return streaming.TypeCollection + "/" + c.Kind + "/" + strconv.Itoa(c.Box)
	}
	return streaming.TypeCollection + "/" + c.Kind
}

// StartSession sends the session header and waits for server ack. The
// header is replayed first on every reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.link.forget()
	b.link.remember(streaming.TypeStartSession, data)
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	return b.link.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	id := b.currentSession()
	if id == "" {
		return ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeEndSession, map[string]string{"sessionId": id})
	if err == nil {
		err = b.link.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	}

	// Clear cached state regardless of error.
	b.link.forget()
	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()

	return err
}

func (b *Backend) RecordCollection(c *core.CollectionSnapshot) error {
	id := b.currentSession()
	if id == "" {
		return ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeCollection, streaming.CollectionPayload{SessionID: id, Collection: c})
	if err != nil {
		return err
	}
	b.link.sendLatest(stateKey(c), data)
	return nil
}

// RecordBattle streams a battle change. Battle changes are events, not
// state, so they are never replayed.
func (b *Backend) RecordBattle(e *core.BattleSnapshot) error {
	id := b.currentSession()
	if id == "" {
		return ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypeBattle, streaming.BattlePayload{SessionID: id, Battle: e})
	if err != nil {
		return err
	}
	b.link.enqueue(data)
	return nil
}

func (b *Backend) RecordPlayer(p *core.PlayerSnapshot) error {
	id := b.currentSession()
	if id == "" {
		return ErrNoSession
	}
	data, err := marshalEnvelope(streaming.TypePlayer, streaming.PlayerPayload{SessionID: id, Player: p})
	if err != nil {
		return err
	}
	b.link.sendLatest(streaming.TypePlayer, data)
	return nil
}
