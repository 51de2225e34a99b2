package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&CollectionSnapshot{},
	&SlotRecord{},
	&BattleEvent{},
	&PlayerSnapshot{},
	&ReaderPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ReaderPerformance is a periodic sample of the extension's own counters.
type ReaderPerformance struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time          time.Time      `json:"time" gorm:"type:timestamptz;index:idx_readerperformance_time"`
	SessionID     string         `json:"sessionId" gorm:"size:36;index:idx_readerperformance_session_id"`
	ReadsTotal    uint64         `json:"readsTotal"`
	ReadsFailed   uint64         `json:"readsFailed"`
	ReadsFallback uint64         `json:"readsFallback"`
	QueueLengths  datatypes.JSON `json:"queueLengths"`
}

func (*ReaderPerformance) TableName() string {
	return "reader_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is one recording run.
type Session struct {
	ID        string     `json:"id" gorm:"primarykey;size:36"`
	Started   time.Time  `json:"started" gorm:"type:timestamptz;index:idx_session_started"`
	Ended     *time.Time `json:"ended" gorm:"type:timestamptz"`
	GameCode  string     `json:"gameCode" gorm:"size:4"`
	GameTitle string     `json:"gameTitle" gorm:"size:12"`
	Patch     string     `json:"patch" gorm:"size:64"`
	Version   string     `json:"version" gorm:"size:64"`
}

func (*Session) TableName() string {
	return "sessions"
}

// CollectionSnapshot is one read of the party, the enemy party or a box.
type CollectionSnapshot struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_collection_session_id"`
	Kind      string    `json:"kind" gorm:"size:16;index:idx_collection_kind"`
	Box       int       `json:"box"`
	Frame     uint64    `json:"frame" gorm:"index:idx_collection_frame"`
	Time      time.Time `json:"time" gorm:"type:timestamptz"`
	Count     int       `json:"count"`
	Filled    int       `json:"filled"`

	Slots []SlotRecord `json:"slots" gorm:"foreignkey:SnapshotID"`
}

func (*CollectionSnapshot) TableName() string {
	return "collection_snapshots"
}

// SlotRecord is one slot of a CollectionSnapshot. Entry holds the full
// decoded record as JSON; the scalar columns are for querying.
type SlotRecord struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement"`
	SnapshotID    uint           `json:"snapshotId" gorm:"index:idx_slot_snapshot_id"`
	SessionID     string         `json:"sessionId" gorm:"size:36;index:idx_slot_session_id"`
	Index         int            `json:"index"`
	Reason        string         `json:"reason" gorm:"size:32"`
	Personality   uint32         `json:"personality" gorm:"index:idx_slot_personality"`
	OTID          uint32         `json:"otId"`
	Species       uint16         `json:"species" gorm:"index:idx_slot_species"`
	SpeciesName   string         `json:"speciesName" gorm:"size:16"`
	Nickname      string         `json:"nickname" gorm:"size:16"`
	Level         int            `json:"level"`
	CurrentHP     int            `json:"currentHp"`
	MaxHP         int            `json:"maxHp"`
	Shiny         bool           `json:"shiny"`
	ChecksumValid bool           `json:"checksumValid"`
	Moves         datatypes.JSON `json:"moves"`
	Entry         datatypes.JSON `json:"entry"`
}

func (*SlotRecord) TableName() string {
	return "slot_records"
}

// BattleEvent is a change of the battle type flags.
type BattleEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_battle_session_id"`
	Frame     uint64    `json:"frame"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_battle_time"`
	Flags     uint32    `json:"flags"`
	InBattle  bool      `json:"inBattle"`
	Wild      bool      `json:"wild"`
	Trainer   bool      `json:"trainer"`
	Double    bool      `json:"double"`
	Link      bool      `json:"link"`
}

func (*BattleEvent) TableName() string {
	return "battle_events"
}

// PlayerSnapshot is one read of the trainer card.
type PlayerSnapshot struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_player_session_id"`
	Frame     uint64    `json:"frame"`
	Time      time.Time `json:"time" gorm:"type:timestamptz"`
	Name      string    `json:"name" gorm:"size:16"`
	Female    bool      `json:"female"`
	TrainerID uint16    `json:"trainerId"`
	SecretID  uint16    `json:"secretId"`
	PlayTime  uint32    `json:"playTime"`
	Money     uint32    `json:"money"`
}

func (*PlayerSnapshot) TableName() string {
	return "player_snapshots"
}
