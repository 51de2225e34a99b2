// Package streaming defines the wire messages sent to a relay server over
// WebSocket. Every message is an Envelope; session start and end are
// acknowledged by the server.
package streaming

import (
	"encoding/json"

	"github.com/monreader/extension/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeCollection   = "collection"
	TypeBattle       = "battle"
	TypePlayer       = "player"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload identifies the session and the cartridge.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// CollectionPayload carries one collection snapshot.
type CollectionPayload struct {
	SessionID  string                   `json:"sessionId"`
	Collection *core.CollectionSnapshot `json:"collection"`
}

// BattlePayload carries a battle state change.
type BattlePayload struct {
	SessionID string               `json:"sessionId"`
	Battle    *core.BattleSnapshot `json:"battle"`
}

// PlayerPayload carries a trainer card read.
type PlayerPayload struct {
	SessionID string               `json:"sessionId"`
	Player    *core.PlayerSnapshot `json:"player"`
}
