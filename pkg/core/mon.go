// pkg/core/mon.go
package core

// Stat indexes a StatBlock.
type Stat int

const (
	StatHP Stat = iota
	StatAttack
	StatDefense
	StatSpeed
	StatSpAttack
	StatSpDefense
)

// StatCount is the number of battle stats tracked per record.
const StatCount = 6

var statNames = [StatCount]string{"HP", "Attack", "Defense", "Speed", "Sp. Atk", "Sp. Def"}

func (s Stat) String() string {
	if s < 0 || int(s) >= StatCount {
		return "?"
	}
	return statNames[s]
}

// StatBlock holds one value per stat, in HP, Attack, Defense, Speed, Sp. Atk, Sp. Def order.
type StatBlock struct {
	HP        int `json:"hp"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	Speed     int `json:"speed"`
	SpAttack  int `json:"spAttack"`
	SpDefense int `json:"spDefense"`
}

// Get returns the value of stat s.
func (b StatBlock) Get(s Stat) int {
	switch s {
	case StatHP:
		return b.HP
	case StatAttack:
		return b.Attack
	case StatDefense:
		return b.Defense
	case StatSpeed:
		return b.Speed
	case StatSpAttack:
		return b.SpAttack
	case StatSpDefense:
		return b.SpDefense
	}
	return 0
}

// Set assigns v to stat s.
func (b *StatBlock) Set(s Stat, v int) {
	switch s {
	case StatHP:
		b.HP = v
	case StatAttack:
		b.Attack = v
	case StatDefense:
		b.Defense = v
	case StatSpeed:
		b.Speed = v
	case StatSpAttack:
		b.SpAttack = v
	case StatSpDefense:
		b.SpDefense = v
	}
}

// Total sums all six stats.
func (b StatBlock) Total() int {
	return b.HP + b.Attack + b.Defense + b.Speed + b.SpAttack + b.SpDefense
}

// ContestStats are the condition values carried in the condition substructure.
type ContestStats struct {
	Cool   uint8 `json:"cool"`
	Beauty uint8 `json:"beauty"`
	Cute   uint8 `json:"cute"`
	Smart  uint8 `json:"smart"`
	Tough  uint8 `json:"tough"`
	Sheen  uint8 `json:"sheen"`
}

// Origin is the unpacked origin-info word.
type Origin struct {
	LevelMet uint8 `json:"levelMet"`
	Game     uint8 `json:"game"`
	Ball     uint8 `json:"ball"`
	OTFemale bool  `json:"otFemale"`
}

// BattleStats is the live block that trails an active-party record.
type BattleStats struct {
	Status    uint32 `json:"status"`
	Level     uint8  `json:"level"`
	MailID    uint8  `json:"mailId"`
	CurrentHP int    `json:"currentHp"`
	MaxHP     int    `json:"maxHp"`
	Attack    int    `json:"attack"`
	Defense   int    `json:"defense"`
	Speed     int    `json:"speed"`
	SpAttack  int    `json:"spAttack"`
	SpDefense int    `json:"spDefense"`
}

// Stats returns the live values as a StatBlock with MaxHP in the HP slot.
func (b BattleStats) Stats() StatBlock {
	return StatBlock{
		HP:        b.MaxHP,
		Attack:    b.Attack,
		Defense:   b.Defense,
		Speed:     b.Speed,
		SpAttack:  b.SpAttack,
		SpDefense: b.SpDefense,
	}
}

// Mon is one decoded record, exactly as stored in memory.
// Personality 0 never produces a Mon.
type Mon struct {
	Personality uint32 `json:"personality"`
	OTID        uint32 `json:"otId"`
	Nickname    string `json:"nickname"`
	OTName      string `json:"otName"`
	Language    uint8  `json:"language"`
	MiscFlags   uint8  `json:"miscFlags"`
	Markings    uint8  `json:"markings"`

	ChecksumStored   uint16 `json:"checksumStored"`
	ChecksumComputed uint16 `json:"checksumComputed"`
	ChecksumValid    bool   `json:"checksumValid"`

	// growth
	Species    uint16 `json:"species"`
	HeldItem   uint16 `json:"heldItem"`
	Experience uint32 `json:"experience"`
	PPBonuses  uint8  `json:"ppBonuses"`
	Friendship uint8  `json:"friendship"`

	// attacks
	Moves [4]uint16 `json:"moves"`
	PP    [4]uint8  `json:"pp"`

	// condition
	EVs     StatBlock    `json:"evs"`
	Contest ContestStats `json:"contest"`

	// misc
	Pokerus     uint8     `json:"pokerus"`
	MetLocation uint8     `json:"metLocation"`
	Origin      Origin    `json:"origin"`
	IVs         StatBlock `json:"ivs"`
	IsEgg       bool      `json:"isEgg"`
	AbilitySlot uint8     `json:"abilitySlot"`
	Ribbons     uint32    `json:"ribbons"`

	Nature uint8 `json:"nature"`

	// Battle is nil for storage records.
	Battle *BattleStats `json:"battle,omitempty"`
}

// Entry is a Mon plus everything derived from reference data.
type Entry struct {
	Mon

	Identified  bool      `json:"identified"`
	SpeciesName string    `json:"speciesName"`
	Types       []string  `json:"types"`
	AbilityID   uint8     `json:"abilityId"`
	AbilityName string    `json:"abilityName"`
	NatureName  string    `json:"natureName"`
	MoveNames   [4]string `json:"moveNames"`
	ItemName    string    `json:"itemName,omitempty"`

	Level          int       `json:"level"`
	LevelEstimated bool      `json:"levelEstimated"`
	Stats          StatBlock `json:"stats"`
	StatsComputed  bool      `json:"statsComputed"`
	CurrentHP      int       `json:"currentHp"`
	Shiny          bool      `json:"shiny"`
	Tier           string    `json:"tier,omitempty"`
	TierStars      int       `json:"tierStars,omitempty"`
}

// Slot is one position in a collection. Entry is nil when the slot is empty
// or failed to decode; Reason says which.
type Slot struct {
	Index  int    `json:"index"`
	Entry  *Entry `json:"entry,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Empty reports whether the slot holds no record.
func (s Slot) Empty() bool {
	return s.Entry == nil
}
