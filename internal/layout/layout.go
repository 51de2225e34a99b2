// Package layout holds the address table for a supported cartridge and
// derives collection descriptors from it.
package layout

import (
	"fmt"
	"sort"

	"github.com/monreader/extension/pkg/core"
)

const (
	PartySize   = 6
	PartyStride = 100
	BoxCount    = 14
	BoxSlots    = 30
	BoxStride   = 80
)

// Collection describes a contiguous run of fixed-stride records.
// CountAddr 0 means the collection has no count field and MaxSlots is used.
type Collection struct {
	Kind       string
	Box        int
	CountAddr  uint32
	CountWidth int
	Base       uint32
	MaxSlots   int
	Stride     int
}

// Table is every address the reader needs. Offsets are relative to the
// save block the field name refers to.
type Table struct {
	SaveBlock1Ptr   uint32
	SaveBlock2Ptr   uint32
	BattleTypeFlags uint32

	PartyCountOffset uint32
	PartyOffset      uint32
	EnemyPartyDelta  uint32
	MoneyOffset      uint32
	PCBoxesOffset    uint32

	PlayerNameOffset    uint32
	GenderOffset        uint32
	TrainerIDOffset     uint32
	PlayTimeOffset      uint32
	EncryptionKeyOffset uint32

	// Static party location. When both are set, they replace the
	// pointer-derived party location.
	StaticPartyCount uint32
	StaticPartyBase  uint32

	GameTitle      uint32
	GameCode       uint32
	PatchSignature uint32

	SpeciesStats uint32
	SpeciesNames uint32
	Moves        uint32
	MoveNames    uint32
	TypeNames    uint32
	TypeChart    uint32
	AbilityNames uint32
	NatureNames  uint32
	Items        uint32
}

// Emerald returns the table for the English release (game code BPEE).
func Emerald() Table {
	return Table{
		SaveBlock1Ptr:   0x03005008,
		SaveBlock2Ptr:   0x0300500C,
		BattleTypeFlags: 0x02022FEC,

		PartyCountOffset: 0x234,
		PartyOffset:      0x238,
		EnemyPartyDelta:  0x4C0,
		MoneyOffset:      0x490,
		PCBoxesOffset:    0x4D84,

		PlayerNameOffset:    0x00,
		GenderOffset:        0x08,
		TrainerIDOffset:     0x0A,
		PlayTimeOffset:      0x0E,
		EncryptionKeyOffset: 0xAC,

		GameTitle:      0x080000A0,
		GameCode:       0x080000AC,
		PatchSignature: 0x08F00000,

		SpeciesStats: 0x083203CC,
		SpeciesNames: 0x08318608,
		Moves:        0x0831C898,
		MoveNames:    0x0831977C,
		TypeNames:    0x0831AE38,
		TypeChart:    0x0831ACE0,
		AbilityNames: 0x0831B6DB,
		NatureNames:  0x0831E818,
		Items:        0x083C5A68,
	}
}

func (t *Table) fields() map[string]*uint32 {
	return map[string]*uint32{
		"saveBlock1Ptr":       &t.SaveBlock1Ptr,
		"saveBlock2Ptr":       &t.SaveBlock2Ptr,
		"battleTypeFlags":     &t.BattleTypeFlags,
		"partyCountOffset":    &t.PartyCountOffset,
		"partyOffset":         &t.PartyOffset,
		"enemyPartyDelta":     &t.EnemyPartyDelta,
		"moneyOffset":         &t.MoneyOffset,
		"pcBoxesOffset":       &t.PCBoxesOffset,
		"playerNameOffset":    &t.PlayerNameOffset,
		"genderOffset":        &t.GenderOffset,
		"trainerIdOffset":     &t.TrainerIDOffset,
		"playTimeOffset":      &t.PlayTimeOffset,
		"encryptionKeyOffset": &t.EncryptionKeyOffset,
		"partyCount":          &t.StaticPartyCount,
		"partyBase":           &t.StaticPartyBase,
		"gameTitle":           &t.GameTitle,
		"gameCode":            &t.GameCode,
		"patchSignature":      &t.PatchSignature,
		"speciesStats":        &t.SpeciesStats,
		"speciesNames":        &t.SpeciesNames,
		"moves":               &t.Moves,
		"moveNames":           &t.MoveNames,
		"typeNames":           &t.TypeNames,
		"typeChart":           &t.TypeChart,
		"abilityNames":        &t.AbilityNames,
		"natureNames":         &t.NatureNames,
		"items":               &t.Items,
	}
}

// Keys lists the names accepted by Apply.
func Keys() []string {
	var t Table
	keys := make([]string, 0, 32)
	for k := range t.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply returns a copy of t with the named fields replaced.
func (t Table) Apply(overrides map[string]uint32) (Table, error) {
	out := t
	f := out.fields()
	for k, v := range overrides {
		p, ok := f[k]
		if !ok {
			return t, fmt.Errorf("unknown address key %q", k)
		}
		*p = v
	}
	return out, nil
}

// HasStaticParty reports whether a fixed party location overrides the pointer chain.
func (t Table) HasStaticParty() bool {
	return t.StaticPartyBase != 0 && t.StaticPartyCount != 0
}

// Party describes the player's party given the resolved save block 1 address.
func (t Table) Party(saveBlock1 uint32) Collection {
	if t.HasStaticParty() {
		return Collection{
			Kind:       core.KindParty,
			CountAddr:  t.StaticPartyCount,
			CountWidth: 1,
			Base:       t.StaticPartyBase,
			MaxSlots:   PartySize,
			Stride:     PartyStride,
		}
	}
	return Collection{
		Kind:       core.KindParty,
		CountAddr:  saveBlock1 + t.PartyCountOffset,
		CountWidth: 4,
		Base:       saveBlock1 + t.PartyOffset,
		MaxSlots:   PartySize,
		Stride:     PartyStride,
	}
}

// EnemyParty sits a fixed distance past the player's party and has no count field.
func (t Table) EnemyParty(saveBlock1 uint32) Collection {
	party := t.Party(saveBlock1)
	return Collection{
		Kind:     core.KindEnemy,
		Base:     party.Base + t.EnemyPartyDelta,
		MaxSlots: PartySize,
		Stride:   PartyStride,
	}
}

// Box describes PC box n (0-based).
func (t Table) Box(saveBlock1 uint32, n int) Collection {
	return Collection{
		Kind:     core.KindBox,
		Box:      n,
		Base:     saveBlock1 + t.PCBoxesOffset + uint32(n*BoxSlots*BoxStride),
		MaxSlots: BoxSlots,
		Stride:   BoxStride,
	}
}
