// Package pokemon decrypts and parses the 80/100-byte entity records.
package pokemon

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/monreader/extension/internal/charmap"
	"github.com/monreader/extension/pkg/core"
)

// Record sizes.
const (
	BoxSize   = 80
	PartySize = 100
)

const (
	offPersonality = 0x00
	offOTID        = 0x04
	offNickname    = 0x08
	nicknameLen    = 10
	offLanguage    = 0x12
	offMiscFlags   = 0x13
	offOTName      = 0x14
	otNameLen      = 7
	offMarkings    = 0x1B
	offChecksum    = 0x1C
	offData        = 0x20
	dataLen        = 48
	subLen         = 12

	offStatus = 0x50
	offLevel  = 0x54
	offMail   = 0x55
	offHP     = 0x56
	offMaxHP  = 0x58
	offAttack = 0x5A
	offDef    = 0x5C
	offSpeed  = 0x5E
	offSpAtk  = 0x60
	offSpDef  = 0x62
)

var (
	// ErrEmptySlot is returned for a zero personality value.
	ErrEmptySlot = errors.New("empty slot")
	// ErrShortBlock is returned when fewer than BoxSize bytes are supplied.
	ErrShortBlock = errors.New("record block too short")
	// ErrChecksum is returned by a strict decode when the checksum does not match.
	ErrChecksum = errors.New("checksum mismatch")
)

// Option configures Decode.
type Option func(*options)

type options struct {
	strict bool
}

// Strict rejects records whose stored checksum does not match.
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Decode parses one record. Blocks of PartySize bytes or more also yield the
// live battle stats. The input slice is not modified.
func Decode(block []byte, opts ...Option) (core.Mon, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(block) < BoxSize {
		return core.Mon{}, fmt.Errorf("%w: %d bytes", ErrShortBlock, len(block))
	}

	seed := binary.LittleEndian.Uint32(block[offPersonality:])
	if seed == 0 {
		return core.Mon{}, ErrEmptySlot
	}
	otid := binary.LittleEndian.Uint32(block[offOTID:])

	m := core.Mon{
		Personality:    seed,
		OTID:           otid,
		Nickname:       charmap.Decode(block[offNickname : offNickname+nicknameLen]),
		Language:       block[offLanguage],
		MiscFlags:      block[offMiscFlags],
		OTName:         charmap.Decode(block[offOTName : offOTName+otNameLen]),
		Markings:       block[offMarkings],
		ChecksumStored: binary.LittleEndian.Uint16(block[offChecksum:]),
		Nature:         uint8(seed % 25),
	}

	plain := make([]byte, dataLen)
	copy(plain, block[offData:offData+dataLen])
	Crypt(plain, seed^otid)

	m.ChecksumComputed = Checksum(plain)
	m.ChecksumValid = m.ChecksumComputed == m.ChecksumStored
	if cfg.strict && !m.ChecksumValid {
		return core.Mon{}, fmt.Errorf("%w: stored 0x%04X, computed 0x%04X", ErrChecksum, m.ChecksumStored, m.ChecksumComputed)
	}

	pos := Positions(seed)
	sub := func(s Substruct) []byte {
		off := pos[s] * subLen
		return plain[off : off+subLen]
	}

	g := sub(Growth)
	m.Species = binary.LittleEndian.Uint16(g[0:])
	m.HeldItem = binary.LittleEndian.Uint16(g[2:])
	m.Experience = binary.LittleEndian.Uint32(g[4:])
	m.PPBonuses = g[8]
	m.Friendship = g[9]

	a := sub(Attacks)
	for i := 0; i < 4; i++ {
		m.Moves[i] = binary.LittleEndian.Uint16(a[i*2:])
		m.PP[i] = a[8+i]
	}

	e := sub(Condition)
	m.EVs = core.StatBlock{
		HP:        int(e[0]),
		Attack:    int(e[1]),
		Defense:   int(e[2]),
		Speed:     int(e[3]),
		SpAttack:  int(e[4]),
		SpDefense: int(e[5]),
	}
	m.Contest = core.ContestStats{
		Cool:   e[6],
		Beauty: e[7],
		Cute:   e[8],
		Smart:  e[9],
		Tough:  e[10],
		Sheen:  e[11],
	}

	x := sub(Misc)
	m.Pokerus = x[0]
	m.MetLocation = x[1]
	m.Origin = OriginInfo(binary.LittleEndian.Uint16(x[2:])).Unpack()
	ivw := IVWord(binary.LittleEndian.Uint32(x[4:]))
	m.IVs = ivw.Block()
	m.IsEgg = ivw.IsEgg()
	m.AbilitySlot = ivw.AbilitySlot()
	m.Ribbons = binary.LittleEndian.Uint32(x[8:])

	if len(block) >= PartySize {
		m.Battle = decodeBattle(block)
	}

	return m, nil
}

func decodeBattle(block []byte) *core.BattleStats {
	u16 := func(off int) int { return int(binary.LittleEndian.Uint16(block[off:])) }
	b := &core.BattleStats{
		Status:    binary.LittleEndian.Uint32(block[offStatus:]),
		Level:     block[offLevel],
		MailID:    block[offMail],
		CurrentHP: u16(offHP),
		MaxHP:     u16(offMaxHP),
		Attack:    u16(offAttack),
		Defense:   u16(offDef),
		Speed:     u16(offSpeed),
		SpAttack:  u16(offSpAtk),
		SpDefense: u16(offSpDef),
	}
	// a torn read can catch HP mid-update
	if b.MaxHP > 0 && b.CurrentHP > b.MaxHP {
		b.CurrentHP = b.MaxHP
	}
	return b
}
