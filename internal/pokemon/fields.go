package pokemon

import "github.com/monreader/extension/pkg/core"

// IVWord packs six 5-bit individual values plus the egg and ability flags.
type IVWord uint32

func (w IVWord) iv(shift uint) int { return int(uint32(w)>>shift) & 0x1F }

func (w IVWord) HP() int        { return w.iv(0) }
func (w IVWord) Attack() int    { return w.iv(5) }
func (w IVWord) Defense() int   { return w.iv(10) }
func (w IVWord) Speed() int     { return w.iv(15) }
func (w IVWord) SpAttack() int  { return w.iv(20) }
func (w IVWord) SpDefense() int { return w.iv(25) }
func (w IVWord) IsEgg() bool    { return uint32(w)&(1<<30) != 0 }

// AbilitySlot is 0 or 1.
func (w IVWord) AbilitySlot() uint8 { return uint8(uint32(w) >> 31) }

// Block returns the IVs as a StatBlock.
func (w IVWord) Block() core.StatBlock {
	return core.StatBlock{
		HP:        w.HP(),
		Attack:    w.Attack(),
		Defense:   w.Defense(),
		Speed:     w.Speed(),
		SpAttack:  w.SpAttack(),
		SpDefense: w.SpDefense(),
	}
}

// PackIVs is the inverse of IVWord's accessors. Values are masked to 5 bits.
func PackIVs(ivs core.StatBlock, egg bool, abilitySlot uint8) IVWord {
	v := uint32(ivs.HP&0x1F) |
		uint32(ivs.Attack&0x1F)<<5 |
		uint32(ivs.Defense&0x1F)<<10 |
		uint32(ivs.Speed&0x1F)<<15 |
		uint32(ivs.SpAttack&0x1F)<<20 |
		uint32(ivs.SpDefense&0x1F)<<25
	if egg {
		v |= 1 << 30
	}
	v |= uint32(abilitySlot&1) << 31
	return IVWord(v)
}

// OriginInfo is the packed met-level / game / ball / OT-gender halfword.
type OriginInfo uint16

func (o OriginInfo) LevelMet() uint8 { return uint8(o & 0x7F) }
func (o OriginInfo) Game() uint8     { return uint8(o>>7) & 0x0F }
func (o OriginInfo) Ball() uint8     { return uint8(o>>11) & 0x0F }
func (o OriginInfo) OTFemale() bool  { return o&0x8000 != 0 }

// Unpack returns the fields as a core.Origin.
func (o OriginInfo) Unpack() core.Origin {
	return core.Origin{
		LevelMet: o.LevelMet(),
		Game:     o.Game(),
		Ball:     o.Ball(),
		OTFemale: o.OTFemale(),
	}
}

// PackOrigin is the inverse of Unpack.
func PackOrigin(o core.Origin) OriginInfo {
	v := uint16(o.LevelMet&0x7F) | uint16(o.Game&0x0F)<<7 | uint16(o.Ball&0x0F)<<11
	if o.OTFemale {
		v |= 0x8000
	}
	return OriginInfo(v)
}

// Header misc flag bits.
const (
	FlagBadEgg     = 0x01
	FlagHasSpecies = 0x02
	FlagUseEggName = 0x04
)
