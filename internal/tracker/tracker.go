// Package tracker walks the game's collections every cycle, decodes each
// record and enriches it with reference data.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/monreader/extension/internal/cache"
	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/memory"
	"github.com/monreader/extension/internal/pokemon"
	"github.com/monreader/extension/internal/romdata"
	"github.com/monreader/extension/pkg/core"
)

const instrumentationName = "github.com/monreader/extension/internal/tracker"

// DefaultPointerTTL is how many frames a resolved save-block pointer is reused.
const DefaultPointerTTL = 300

// Slot reasons.
const (
	ReasonEmpty      = "empty"
	ReasonUnreadable = "unreadable"
	ReasonShort      = "short block"
	ReasonChecksum   = "checksum mismatch"
)

const (
	pointerSaveBlock1 = "saveBlock1"
	pointerSaveBlock2 = "saveBlock2"
)

// Memory is the read surface the tracker needs. *memory.Reader satisfies it.
type Memory interface {
	Block(addr uint32, n int) ([]byte, bool)
	Read(addr uint32, width int) (uint32, bool)
	U8(addr uint32) (uint8, bool)
	U16(addr uint32) (uint16, bool)
	U32(addr uint32) (uint32, bool)
	String(addr uint32, maxLen int) (string, bool)
}

// Config tunes a Tracker.
type Config struct {
	// PointerTTL is in frames. Zero uses DefaultPointerTTL.
	PointerTTL uint64
	// Strict drops records whose checksum does not match.
	Strict bool
	// Rate attaches a tier rating to each identified record.
	Rate bool
}

// Tracker reads collections out of live memory. Records are rebuilt on every
// call; only save-block pointers are memoized.
type Tracker struct {
	mem    Memory
	ref    *romdata.Cache
	logger *slog.Logger
	cfg    Config

	mu    sync.RWMutex
	table layout.Table

	pointers *cache.PointerCache
	frame    atomic.Uint64

	decoded metric.Int64Counter
	failed  metric.Int64Counter
}

// New creates a Tracker. Counters go to the global OTel meter.
func New(mem Memory, ref *romdata.Cache, table layout.Table, cfg Config, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PointerTTL == 0 {
		cfg.PointerTTL = DefaultPointerTTL
	}
	t := &Tracker{
		mem:      mem,
		ref:      ref,
		logger:   logger,
		cfg:      cfg,
		table:    table,
		pointers: cache.NewPointerCache(cfg.PointerTTL),
	}

	m := otel.Meter(instrumentationName)
	var err error
	t.decoded, err = m.Int64Counter("tracker.records.decoded",
		metric.WithDescription("Records decoded"))
	if err != nil {
		return nil, fmt.Errorf("creating decoded counter: %w", err)
	}
	t.failed, err = m.Int64Counter("tracker.records.failed",
		metric.WithDescription("Occupied slots that failed to decode"))
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	return t, nil
}

// Table returns the address table in use.
func (t *Tracker) Table() layout.Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table
}

// Reference returns the reference cache.
func (t *Tracker) Reference() *romdata.Cache { return t.ref }

// SetFrame sets the frame number used for pointer expiry and snapshot stamps.
func (t *Tracker) SetFrame(frame uint64) { t.frame.Store(frame) }

func (t *Tracker) Frame() uint64 { return t.frame.Load() }

// PointerStats reports the pointer cache counters.
func (t *Tracker) PointerStats() cache.PointerStats { return t.pointers.Stats() }

// ResetPointers forgets every memoized pointer.
func (t *Tracker) ResetPointers() { t.pointers.Reset() }

// SaveBlock1 resolves the save block 1 pointer.
func (t *Tracker) SaveBlock1() (uint32, bool) {
	return t.pointer(pointerSaveBlock1, t.Table().SaveBlock1Ptr)
}

// SaveBlock2 resolves the save block 2 pointer.
func (t *Tracker) SaveBlock2() (uint32, bool) {
	return t.pointer(pointerSaveBlock2, t.Table().SaveBlock2Ptr)
}

// pointer reads a pointer and accepts it only if it targets EWRAM. Rejected
// values are not cached.
func (t *Tracker) pointer(name string, at uint32) (uint32, bool) {
	frame := t.Frame()
	if v, ok := t.pointers.Get(name, frame); ok {
		return v, true
	}
	v, ok := t.mem.U32(at)
	if !ok {
		return 0, false
	}
	if !memory.InEWRAM(v) {
		t.logger.Debug("pointer outside EWRAM", "pointer", name, "value", fmt.Sprintf("0x%08X", v))
		return 0, false
	}
	if t.pointers.Put(name, v, frame) {
		t.logger.Debug("save block relocated", "pointer", name, "value", fmt.Sprintf("0x%08X", v), "frame", frame)
	}
	return v, true
}

// ReadCollection decodes every slot of col. A count outside [0, MaxSlots]
// yields no slots at all. Each slot succeeds or fails on its own.
func (t *Tracker) ReadCollection(col layout.Collection) []core.Slot {
	count := col.MaxSlots
	if col.CountAddr != 0 {
		v, ok := t.mem.Read(col.CountAddr, col.CountWidth)
		if !ok {
			return []core.Slot{}
		}
		if v > uint32(col.MaxSlots) {
			t.logger.Debug("collection count out of range", "kind", col.Kind, "count", v)
			return []core.Slot{}
		}
		count = int(v)
	}

	kind := metric.WithAttributes(attribute.String("kind", col.Kind))
	slots := make([]core.Slot, count)
	for i := range slots {
		slots[i] = t.readSlot(col, i)
		switch slots[i].Reason {
		case "":
			t.decoded.Add(context.Background(), 1, kind)
		case ReasonEmpty:
		default:
			t.failed.Add(context.Background(), 1, kind)
		}
	}
	return slots
}

func (t *Tracker) readSlot(col layout.Collection, i int) core.Slot {
	slot := core.Slot{Index: i}
	block, ok := t.mem.Block(col.Base+uint32(i*col.Stride), col.Stride)
	if !ok {
		slot.Reason = ReasonUnreadable
		return slot
	}

	var opts []pokemon.Option
	if t.cfg.Strict {
		opts = append(opts, pokemon.Strict())
	}
	m, err := pokemon.Decode(block, opts...)
	if err != nil {
		slot.Reason = reason(err)
		return slot
	}
	if !m.ChecksumValid {
		t.logger.Debug("checksum mismatch", "kind", col.Kind, "slot", i,
			"stored", m.ChecksumStored, "computed", m.ChecksumComputed)
	}
	slot.Entry = t.enrich(m)
	return slot
}

func reason(err error) string {
	switch {
	case errors.Is(err, pokemon.ErrEmptySlot):
		return ReasonEmpty
	case errors.Is(err, pokemon.ErrShortBlock):
		return ReasonShort
	case errors.Is(err, pokemon.ErrChecksum):
		return ReasonChecksum
	}
	return err.Error()
}

func (t *Tracker) snapshot(col layout.Collection) *core.CollectionSnapshot {
	slots := t.ReadCollection(col)
	return &core.CollectionSnapshot{
		Kind:  col.Kind,
		Box:   col.Box,
		Frame: t.Frame(),
		Time:  time.Now(),
		Count: len(slots),
		Slots: slots,
	}
}

// Party reads the player's party.
func (t *Tracker) Party() (*core.CollectionSnapshot, bool) {
	tbl := t.Table()
	if tbl.HasStaticParty() {
		return t.snapshot(tbl.Party(0)), true
	}
	sb1, ok := t.SaveBlock1()
	if !ok {
		return nil, false
	}
	return t.snapshot(tbl.Party(sb1)), true
}

// EnemyParty reads the opposing party. It has no count field, so all six
// slots are reported.
func (t *Tracker) EnemyParty() (*core.CollectionSnapshot, bool) {
	tbl := t.Table()
	var sb1 uint32
	if !tbl.HasStaticParty() {
		var ok bool
		if sb1, ok = t.SaveBlock1(); !ok {
			return nil, false
		}
	}
	return t.snapshot(tbl.EnemyParty(sb1)), true
}

// Box reads PC box n (0-based).
func (t *Tracker) Box(n int) (*core.CollectionSnapshot, bool) {
	if n < 0 || n >= layout.BoxCount {
		return nil, false
	}
	sb1, ok := t.SaveBlock1()
	if !ok {
		return nil, false
	}
	return t.snapshot(t.Table().Box(sb1, n)), true
}

// Boxes reads every PC box.
func (t *Tracker) Boxes() []*core.CollectionSnapshot {
	var out []*core.CollectionSnapshot
	for n := 0; n < layout.BoxCount; n++ {
		if s, ok := t.Box(n); ok {
			out = append(out, s)
		}
	}
	return out
}
