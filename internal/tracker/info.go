package tracker

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/monreader/extension/pkg/core"
)

// Battle type flag bits.
const (
	BattleDouble  = 0x01
	BattleLink    = 0x02
	BattleTrainer = 0x08
)

// EmeraldCode is the game code of the supported release.
const EmeraldCode = "BPEE"

const (
	playerNameLen = 8
	gameTitleLen  = 12
	gameCodeLen   = 4
)

// patchSignature is a known signature written by a ROM patcher.
type patchSignature struct {
	name string
	addr uint32
	sig  string
}

// Battle reads the battle type flags. A zero value means the player is not
// in battle.
func (t *Tracker) Battle() (*core.BattleSnapshot, bool) {
	flags, ok := t.mem.U32(t.Table().BattleTypeFlags)
	if !ok {
		return nil, false
	}
	return battleFromFlags(flags, t.Frame()), true
}

func battleFromFlags(flags uint32, frame uint64) *core.BattleSnapshot {
	in := flags != 0
	trainer := flags&BattleTrainer != 0
	return &core.BattleSnapshot{
		Frame:    frame,
		Time:     time.Now(),
		Flags:    flags,
		InBattle: in,
		Trainer:  trainer,
		Wild:     in && !trainer,
		Double:   flags&BattleDouble != 0,
		Link:     flags&BattleLink != 0,
	}
}

// Player reads the trainer card from save block 2 and the money from save
// block 1. Money is stored XORed with the save block 2 encryption key.
func (t *Tracker) Player() (*core.PlayerSnapshot, bool) {
	tbl := t.Table()
	sb2, ok := t.SaveBlock2()
	if !ok {
		return nil, false
	}
	name, ok := t.mem.String(sb2+tbl.PlayerNameOffset, playerNameLen)
	if !ok {
		return nil, false
	}
	p := &core.PlayerSnapshot{
		Frame: t.Frame(),
		Time:  time.Now(),
		Name:  name,
	}
	if g, ok := t.mem.U8(sb2 + tbl.GenderOffset); ok {
		p.Female = g == 1
	}
	if id, ok := t.mem.U32(sb2 + tbl.TrainerIDOffset); ok {
		p.TrainerID = uint16(id)
		p.SecretID = uint16(id >> 16)
	}
	if b, ok := t.mem.Block(sb2+tbl.PlayTimeOffset, 4); ok {
		p.PlayHours = binary.LittleEndian.Uint16(b)
		p.PlayMinutes = b[2]
		p.PlaySeconds = b[3]
	}
	if sb1, ok := t.SaveBlock1(); ok {
		money, okMoney := t.mem.U32(sb1 + tbl.MoneyOffset)
		key, okKey := t.mem.U32(sb2 + tbl.EncryptionKeyOffset)
		if okMoney && okKey {
			p.Money = money ^ key
		}
	}
	return p, true
}

// Game identifies the cartridge from its header and any patch signature.
func (t *Tracker) Game() (core.GameInfo, bool) {
	tbl := t.Table()
	code, ok := t.mem.Block(tbl.GameCode, gameCodeLen)
	if !ok {
		return core.GameInfo{}, false
	}
	info := core.GameInfo{Code: ascii(code)}
	if title, ok := t.mem.Block(tbl.GameTitle, gameTitleLen); ok {
		info.Title = ascii(title)
	}

	signatures := []patchSignature{
		{name: "Archipelago", addr: tbl.PatchSignature, sig: "ARCH"},
		{name: "Randomizer", addr: 0x08E00000, sig: "RAND"},
	}
	for _, p := range signatures {
		if p.addr == 0 {
			continue
		}
		if b, ok := t.mem.Block(p.addr, len(p.sig)); ok && string(b) == p.sig {
			info.Patch = p.name
			break
		}
	}
	return info, true
}

// ascii trims the NUL and space padding of a cartridge header field.
func ascii(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}
