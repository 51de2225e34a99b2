// pkg/core/snapshot.go
package core

import "time"

// Collection kinds.
const (
	KindParty = "party"
	KindEnemy = "enemy"
	KindBox   = "box"
)

// CollectionSnapshot is one read of a collection.
type CollectionSnapshot struct {
	Kind  string    `json:"kind"`
	Box   int       `json:"box,omitempty"`
	Frame uint64    `json:"frame"`
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
	Slots []Slot    `json:"slots"`
}

// Filled returns the number of slots holding a record.
func (c CollectionSnapshot) Filled() int {
	n := 0
	for _, s := range c.Slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// BattleSnapshot is the decoded battle type flags.
type BattleSnapshot struct {
	Frame    uint64    `json:"frame"`
	Time     time.Time `json:"time"`
	Flags    uint32    `json:"flags"`
	InBattle bool      `json:"inBattle"`
	Wild     bool      `json:"wild"`
	Trainer  bool      `json:"trainer"`
	Double   bool      `json:"double"`
	Link     bool      `json:"link"`
}

// PlayerSnapshot is the trainer card.
type PlayerSnapshot struct {
	Frame       uint64    `json:"frame"`
	Time        time.Time `json:"time"`
	Name        string    `json:"name"`
	Female      bool      `json:"female"`
	TrainerID   uint16    `json:"trainerId"`
	SecretID    uint16    `json:"secretId"`
	PlayHours   uint16    `json:"playHours"`
	PlayMinutes uint8     `json:"playMinutes"`
	PlaySeconds uint8     `json:"playSeconds"`
	Money       uint32    `json:"money"`
}

// GameInfo identifies the cartridge.
type GameInfo struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Patch string `json:"patch,omitempty"`
}

// Session is one recording run.
type Session struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Game    GameInfo  `json:"game"`
	Version string    `json:"version"`
}
