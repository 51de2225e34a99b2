package tracker

import (
	"errors"
	"fmt"

	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/memory"
	"github.com/monreader/extension/internal/pokemon"
)

// ErrOverrideRejected is returned when an address override does not point
// at a plausible party.
var ErrOverrideRejected = errors.New("address override rejected")

// ApplyOverride validates overrides against live memory and installs them.
// The party they describe must have a count in [1, 6] and a first slot that
// decodes with a valid checksum. On rejection the current table is kept.
func (t *Tracker) ApplyOverride(overrides map[string]uint32) error {
	candidate, err := t.Table().Apply(overrides)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOverrideRejected, err)
	}
	if err := t.validate(candidate); err != nil {
		t.logger.Warn("address override rejected", "keys", len(overrides), "error", err)
		return err
	}

	t.mu.Lock()
	t.table = candidate
	t.mu.Unlock()
	t.pointers.Reset()
	t.logger.Info("address override applied", "keys", len(overrides))
	return nil
}

func (t *Tracker) validate(tbl layout.Table) error {
	var col layout.Collection
	if tbl.HasStaticParty() {
		col = tbl.Party(0)
	} else {
		sb1, ok := t.mem.U32(tbl.SaveBlock1Ptr)
		if !ok || !memory.InEWRAM(sb1) {
			return fmt.Errorf("%w: save block pointer unreadable", ErrOverrideRejected)
		}
		col = tbl.Party(sb1)
	}

	count, ok := t.mem.Read(col.CountAddr, col.CountWidth)
	if !ok {
		return fmt.Errorf("%w: party count unreadable at 0x%08X", ErrOverrideRejected, col.CountAddr)
	}
	if count == 0 || count > uint32(col.MaxSlots) {
		return fmt.Errorf("%w: party count %d out of range", ErrOverrideRejected, count)
	}

	block, ok := t.mem.Block(col.Base, col.Stride)
	if !ok {
		return fmt.Errorf("%w: party unreadable at 0x%08X", ErrOverrideRejected, col.Base)
	}
	if _, err := pokemon.Decode(block, pokemon.Strict()); err != nil {
		return fmt.Errorf("%w: first slot: %w", ErrOverrideRejected, err)
	}
	return nil
}
