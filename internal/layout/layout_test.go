package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monreader/extension/pkg/core"
)

func TestApply(t *testing.T) {
	base := Emerald()

	out, err := base.Apply(map[string]uint32{
		"saveBlock1Ptr": 0x03005D8C,
		"speciesNames":  0x083185C8,
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(0x03005D8C), out.SaveBlock1Ptr)
	assert.Equal(t, uint32(0x083185C8), out.SpeciesNames)
	assert.Equal(t, uint32(0x03005008), base.SaveBlock1Ptr, "original table must not change")
}

func TestApply_UnknownKey(t *testing.T) {
	_, err := Emerald().Apply(map[string]uint32{"bogus": 1})
	assert.ErrorContains(t, err, "bogus")
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "partyBase")
	assert.Contains(t, keys, "typeChart")
	assert.IsIncreasing(t, keys)
}

func TestParty_PointerDerived(t *testing.T) {
	c := Emerald().Party(0x02025A00)
	assert.Equal(t, core.KindParty, c.Kind)
	assert.Equal(t, uint32(0x02025A00+0x234), c.CountAddr)
	assert.Equal(t, 4, c.CountWidth)
	assert.Equal(t, uint32(0x02025A00+0x238), c.Base)
	assert.Equal(t, PartySize, c.MaxSlots)
	assert.Equal(t, PartyStride, c.Stride)
}

func TestParty_Static(t *testing.T) {
	tbl, err := Emerald().Apply(map[string]uint32{"partyCount": 0x020244E9, "partyBase": 0x020244EC})
	require.NoError(t, err)
	require.True(t, tbl.HasStaticParty())

	c := tbl.Party(0x02025A00)
	assert.Equal(t, uint32(0x020244E9), c.CountAddr)
	assert.Equal(t, 1, c.CountWidth)
	assert.Equal(t, uint32(0x020244EC), c.Base)

	e := tbl.EnemyParty(0x02025A00)
	assert.Equal(t, uint32(0x020244EC+0x4C0), e.Base)
	assert.Zero(t, e.CountAddr)
}

func TestBox(t *testing.T) {
	tbl := Emerald()
	b0 := tbl.Box(0x02025A00, 0)
	b3 := tbl.Box(0x02025A00, 3)

	assert.Equal(t, uint32(0x02025A00+0x4D84), b0.Base)
	assert.Equal(t, b0.Base+3*BoxSlots*BoxStride, b3.Base)
	assert.Equal(t, 3, b3.Box)
	assert.Equal(t, BoxStride, b3.Stride)
	assert.Zero(t, b3.CountAddr)
}
