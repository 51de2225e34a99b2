package pokemon

import (
	"encoding/binary"

	"github.com/monreader/extension/internal/charmap"
	"github.com/monreader/extension/pkg/core"
)

// Encode builds the in-memory form of m: header, substructures in the order
// selected by m.Personality, encrypted, with a correct checksum. The result
// is PartySize bytes when m.Battle is set and BoxSize bytes otherwise.
// Nature, checksum and derived fields of m are ignored.
func Encode(m core.Mon) []byte {
	size := BoxSize
	if m.Battle != nil {
		size = PartySize
	}
	block := make([]byte, size)

	binary.LittleEndian.PutUint32(block[offPersonality:], m.Personality)
	binary.LittleEndian.PutUint32(block[offOTID:], m.OTID)
	copy(block[offNickname:], charmap.Encode(m.Nickname, nicknameLen))
	block[offLanguage] = m.Language
	block[offMiscFlags] = m.MiscFlags
	copy(block[offOTName:], charmap.Encode(m.OTName, otNameLen))
	block[offMarkings] = m.Markings

	var subs [4][subLen]byte

	g := subs[Growth][:]
	binary.LittleEndian.PutUint16(g[0:], m.Species)
	binary.LittleEndian.PutUint16(g[2:], m.HeldItem)
	binary.LittleEndian.PutUint32(g[4:], m.Experience)
	g[8] = m.PPBonuses
	g[9] = m.Friendship

	a := subs[Attacks][:]
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(a[i*2:], m.Moves[i])
		a[8+i] = m.PP[i]
	}

	e := subs[Condition][:]
	for i := core.StatHP; i <= core.StatSpDefense; i++ {
		e[i] = uint8(m.EVs.Get(i))
	}
	e[6], e[7], e[8] = m.Contest.Cool, m.Contest.Beauty, m.Contest.Cute
	e[9], e[10], e[11] = m.Contest.Smart, m.Contest.Tough, m.Contest.Sheen

	x := subs[Misc][:]
	x[0] = m.Pokerus
	x[1] = m.MetLocation
	binary.LittleEndian.PutUint16(x[2:], uint16(PackOrigin(m.Origin)))
	binary.LittleEndian.PutUint32(x[4:], uint32(PackIVs(m.IVs, m.IsEgg, m.AbilitySlot)))
	binary.LittleEndian.PutUint32(x[8:], m.Ribbons)

	plain := block[offData : offData+dataLen]
	for slot, s := range Order(m.Personality) {
		copy(plain[slot*subLen:], subs[s][:])
	}
	binary.LittleEndian.PutUint16(block[offChecksum:], Checksum(plain))
	Crypt(plain, m.Personality^m.OTID)

	if b := m.Battle; b != nil {
		binary.LittleEndian.PutUint32(block[offStatus:], b.Status)
		block[offLevel] = b.Level
		block[offMail] = b.MailID
		for off, v := range map[int]int{
			offHP:     b.CurrentHP,
			offMaxHP:  b.MaxHP,
			offAttack: b.Attack,
			offDef:    b.Defense,
			offSpeed:  b.Speed,
			offSpAtk:  b.SpAttack,
			offSpDef:  b.SpDefense,
		} {
			binary.LittleEndian.PutUint16(block[off:], uint16(v))
		}
	}

	return block
}
