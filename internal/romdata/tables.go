package romdata

import (
	"encoding/binary"

	"github.com/monreader/extension/internal/charmap"
	"github.com/monreader/extension/internal/stats"
	"github.com/monreader/extension/pkg/core"
)

// Table sizes and strides for the English release.
const (
	SpeciesCount = 412
	MoveCount    = 355
	ItemCount    = 377
	AbilityCount = 78
	NatureCount  = 25

	speciesStride     = 28
	speciesNameStride = 11
	moveStride        = 12
	moveNameStride    = 13
	abilityNameStride = 13
	typeNameStride    = 7
	natureNameStride  = 7
	itemStride        = 44
	itemNameLen       = 14
)

// SpeciesData is one row of the species table. Partial is set when only the
// name could be resolved.
type SpeciesData struct {
	ID          uint16           `json:"id"`
	Name        string           `json:"name"`
	Base        core.StatBlock   `json:"base"`
	Types       [2]uint8         `json:"types"`
	CatchRate   uint8            `json:"catchRate"`
	ExpYield    uint8            `json:"expYield"`
	EVYield     uint16           `json:"evYield"`
	Items       [2]uint16        `json:"items"`
	GenderRatio uint8            `json:"genderRatio"`
	EggCycles   uint8            `json:"eggCycles"`
	Friendship  uint8            `json:"friendship"`
	Growth      stats.GrowthRate `json:"growth"`
	EggGroups   [2]uint8         `json:"eggGroups"`
	Abilities   [2]uint8         `json:"abilities"`
	SafariRate  uint8            `json:"safariRate"`
	Color       uint8            `json:"color"`
	Partial     bool             `json:"partial,omitempty"`
}

// Ability returns the ability id for a record's ability slot. Species with
// one ability use it for both slots.
func (s SpeciesData) Ability(slot uint8) uint8 {
	if slot == 1 && s.Abilities[1] != 0 {
		return s.Abilities[1]
	}
	return s.Abilities[0]
}

// MonoType reports whether both type slots hold the same type.
func (s SpeciesData) MonoType() bool { return s.Types[0] == s.Types[1] }

func parseSpecies(id int, b []byte) SpeciesData {
	return SpeciesData{
		ID: uint16(id),
		Base: core.StatBlock{
			HP:        int(b[0]),
			Attack:    int(b[1]),
			Defense:   int(b[2]),
			Speed:     int(b[3]),
			SpAttack:  int(b[4]),
			SpDefense: int(b[5]),
		},
		Types:       [2]uint8{b[6], b[7]},
		CatchRate:   b[8],
		ExpYield:    b[9],
		EVYield:     binary.LittleEndian.Uint16(b[10:]),
		Items:       [2]uint16{binary.LittleEndian.Uint16(b[12:]), binary.LittleEndian.Uint16(b[14:])},
		GenderRatio: b[16],
		EggCycles:   b[17],
		Friendship:  b[18],
		Growth:      stats.GrowthRate(b[19]),
		EggGroups:   [2]uint8{b[20], b[21]},
		Abilities:   [2]uint8{b[22], b[23]},
		SafariRate:  b[24],
		Color:       b[25],
	}
}

// validSpecies rejects a stats table that is blank or shifted. The first
// real entry must have hit points and in-range types.
func validSpecies(rows []SpeciesData) bool {
	if len(rows) < 2 {
		return false
	}
	first := rows[1]
	return first.Base.HP != 0 && first.Types[0] < TypeCount && first.Types[1] < TypeCount
}

// MoveFlags is the move table's flag byte.
type MoveFlags uint8

const (
	MoveMakesContact MoveFlags = 1 << iota
	MoveProtectAffected
	MoveMagicCoatAffected
	MoveSnatchAffected
	MoveMirrorMoveAffected
	MoveKingsRockAffected
)

func (f MoveFlags) Has(flag MoveFlags) bool { return f&flag != 0 }

// MoveData is one row of the move table.
type MoveData struct {
	ID           uint16    `json:"id"`
	Name         string    `json:"name"`
	Effect       uint8     `json:"effect"`
	Power        uint8     `json:"power"`
	Type         uint8     `json:"type"`
	Accuracy     uint8     `json:"accuracy"`
	PP           uint8     `json:"pp"`
	EffectChance uint8     `json:"effectChance"`
	Target       uint8     `json:"target"`
	Priority     int8      `json:"priority"`
	Flags        MoveFlags `json:"flags"`
	Partial      bool      `json:"partial,omitempty"`
}

func parseMove(id int, b []byte) MoveData {
	return MoveData{
		ID:           uint16(id),
		Effect:       b[0],
		Power:        b[1],
		Type:         b[2],
		Accuracy:     b[3],
		PP:           b[4],
		EffectChance: b[5],
		Target:       b[6],
		Priority:     int8(b[7]),
		Flags:        MoveFlags(b[8]),
	}
}

// validMoves checks that the first move has PP and a known type.
func validMoves(rows []MoveData) bool {
	return len(rows) > 1 && rows[1].PP != 0 && rows[1].Type < TypeCount
}

// ItemData is one row of the item table.
type ItemData struct {
	ID         uint16 `json:"id"`
	Name       string `json:"name"`
	Index      uint16 `json:"index"`
	Price      uint16 `json:"price"`
	HoldEffect uint8  `json:"holdEffect"`
	HoldParam  uint8  `json:"holdParam"`
	Importance uint8  `json:"importance"`
	Pocket     uint8  `json:"pocket"`
	Type       uint8  `json:"type"`
	Partial    bool   `json:"partial,omitempty"`
}

func parseItem(id int, b []byte) ItemData {
	return ItemData{
		ID:         uint16(id),
		Name:       charmap.Decode(b[:itemNameLen]),
		Index:      binary.LittleEndian.Uint16(b[14:]),
		Price:      binary.LittleEndian.Uint16(b[16:]),
		HoldEffect: b[18],
		HoldParam:  b[19],
		Importance: b[24],
		Pocket:     b[26],
		Type:       b[27],
	}
}

// validItems checks that rows carry their own index, which a blank or
// misplaced table does not.
func validItems(rows []ItemData) bool {
	return len(rows) > 1 && rows[1].Index == 1 && rows[1].Name != ""
}

// NatureData is a nature's name and stat modifiers.
type NatureData struct {
	ID      uint8     `json:"id"`
	Name    string    `json:"name"`
	Up      core.Stat `json:"up"`
	Down    core.Stat `json:"down"`
	Neutral bool      `json:"neutral"`
}

// parseRows splits a table into count rows of stride bytes.
func parseRows[T any](b []byte, count, stride int, parse func(int, []byte) T) []T {
	if len(b) < count*stride {
		return nil
	}
	out := make([]T, count)
	for i := range out {
		out[i] = parse(i, b[i*stride:(i+1)*stride])
	}
	return out
}

// parseNames decodes a fixed-stride name table. The table is dropped when
// fewer than half its entries decode to text.
func parseNames(b []byte, count, stride int) ([]string, int) {
	names := parseRows(b, count, stride, func(_ int, row []byte) string {
		return charmap.Decode(row)
	})
	usable := 0
	for _, n := range names {
		if n != "" {
			usable++
		}
	}
	if usable*2 < count {
		return nil, 0
	}
	return names, usable
}
