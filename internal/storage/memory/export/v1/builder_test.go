package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/pkg/core"
)

func entry(pid uint32, species uint16, name string, level int) *core.Entry {
	return &core.Entry{
		Mon:         core.Mon{Personality: pid, Species: species},
		SpeciesName: name,
		Level:       level,
		CurrentHP:   10,
		Stats:       core.StatBlock{HP: 10},
	}
}

func TestBuild_Empty(t *testing.T) {
	export := Build(&SessionData{})

	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.NotNil(t, export.Party)
	assert.NotNil(t, export.Enemy)
	assert.NotNil(t, export.Boxes)
	assert.NotNil(t, export.Battles)
	assert.NotNil(t, export.Mons)
	assert.Nil(t, export.Player)
	assert.Equal(t, uint64(0), export.EndFrame)
}

func TestBuild_TracksEvolutionByPersonality(t *testing.T) {
	data := &SessionData{
		Session: &core.Session{ID: "s", Started: time.Unix(0, 0).UTC(), Game: core.GameInfo{Code: "BPEE"}},
		Party: []core.CollectionSnapshot{
			{Kind: core.KindParty, Frame: 30, Slots: []core.Slot{{Index: 0, Entry: entry(7, 277, "Treecko", 15)}}},
			{Kind: core.KindParty, Frame: 60, Slots: []core.Slot{{Index: 0, Entry: entry(7, 278, "Grovyle", 16)}}},
		},
		Boxes: map[int]core.CollectionSnapshot{
			2: {Kind: core.KindBox, Box: 2, Frame: 300, Slots: []core.Slot{{Index: 0, Entry: entry(9, 286, "Poochyena", 3)}, {Index: 1}}},
			0: {Kind: core.KindBox, Box: 0, Frame: 300, Slots: []core.Slot{{Index: 0}}},
		},
	}

	export := Build(data)

	require.Len(t, export.Party, 2)
	require.Len(t, export.Mons, 2)
	m := export.Mons[0]
	assert.Equal(t, uint32(7), m.Personality)
	assert.Equal(t, "Grovyle", m.SpeciesName)
	assert.Equal(t, 15, m.FirstLevel)
	assert.Equal(t, 16, m.LastLevel)
	assert.Equal(t, []string{"party"}, m.Seen)

	require.Len(t, export.Boxes, 2)
	assert.Equal(t, 0, export.Boxes[0].Number)
	assert.Equal(t, 2, export.Boxes[1].Number)
	assert.Nil(t, export.Boxes[1].Slots[1])
	assert.Equal(t, []string{"box"}, export.Mons[1].Seen)
}

func TestBuild_Battles(t *testing.T) {
	export := Build(&SessionData{Battles: []core.BattleSnapshot{
		{Frame: 10, Flags: 0x04, InBattle: true, Wild: true},
		{Frame: 500, Flags: 0x09, InBattle: true, Trainer: true, Double: true},
		{Frame: 900},
	}})

	require.Len(t, export.Battles, 3)
	assert.Equal(t, []any{uint64(10), uint32(0x04), "wild", false}, export.Battles[0])
	assert.Equal(t, []any{uint64(500), uint32(0x09), "trainer", true}, export.Battles[1])
	assert.Equal(t, "none", export.Battles[2][2])
	assert.Equal(t, uint64(900), export.EndFrame)
}

func TestSameRows(t *testing.T) {
	a := [][]any{{uint32(1), uint16(2), 3, 4, 5}, nil}
	b := [][]any{{uint32(1), uint16(2), 3, 4, 5}, nil}
	c := [][]any{{uint32(1), uint16(2), 3, 3, 5}, nil}

	assert.True(t, sameRows(a, b))
	assert.False(t, sameRows(a, c))
	assert.False(t, sameRows(a, a[:1]))
}
