package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/monreader/extension/internal/charmap"
)

const instrumentationName = "github.com/monreader/extension/internal/memory"

// maxBlock bounds a single read.
const maxBlock = 1 << 20

// Stats is a point-in-time copy of the read counters.
type Stats struct {
	Total    uint64 `json:"total"`
	Failed   uint64 `json:"failed"`
	Fallback uint64 `json:"fallback"`
}

// Reader classifies addresses and reads them with System Bus fallback.
// A failed read is reported as absence, never as an error.
type Reader struct {
	bus     Bus
	regions []Region
	logger  *slog.Logger

	total    atomic.Uint64
	failed   atomic.Uint64
	fallback atomic.Uint64
}

// NewReader creates a Reader over bus using the given region table.
// Counters are exported through the global OTel meter.
func NewReader(bus Bus, regions []Region, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{
		bus:     bus,
		regions: regions,
		logger:  logger,
	}

	m := otel.Meter(instrumentationName)

	reads, err := m.Int64ObservableCounter("memory.reads",
		metric.WithDescription("Total memory reads"))
	if err != nil {
		return nil, fmt.Errorf("creating reads counter: %w", err)
	}
	failed, err := m.Int64ObservableCounter("memory.reads.failed",
		metric.WithDescription("Reads that failed on every path"))
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	fallback, err := m.Int64ObservableCounter("memory.reads.fallback",
		metric.WithDescription("Reads routed through the System Bus"))
	if err != nil {
		return nil, fmt.Errorf("creating fallback counter: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			s := r.Stats()
			o.ObserveInt64(reads, int64(s.Total))
			o.ObserveInt64(failed, int64(s.Failed))
			o.ObserveInt64(fallback, int64(s.Fallback))
			return nil
		},
		reads, failed, fallback,
	)
	if err != nil {
		return nil, fmt.Errorf("registering memory callback: %w", err)
	}

	return r, nil
}

// Classify returns the first region containing addr.
func (r *Reader) Classify(addr uint32) (Region, bool) {
	for _, reg := range r.regions {
		if reg.Contains(addr) {
			return reg, true
		}
	}
	return Region{}, false
}

// Block reads n bytes at addr.
func (r *Reader) Block(addr uint32, n int) ([]byte, bool) {
	if n <= 0 || n > maxBlock {
		return nil, false
	}
	r.total.Add(1)
	buf := make([]byte, n)

	if reg, ok := r.Classify(addr); ok && reg.Primary(addr, n) {
		if err := r.bus.ReadDomain(reg.Domain, reg.Offset(addr), buf); err == nil {
			return buf, true
		}
	}

	r.fallback.Add(1)
	if err := r.bus.ReadDomain(DomainSystemBus, addr, buf); err != nil {
		r.failed.Add(1)
		r.logger.Debug("memory read failed", "addr", fmt.Sprintf("0x%08X", addr), "size", n, "error", err)
		return nil, false
	}
	return buf, true
}

// Read reads a little-endian unsigned value of width 1, 2 or 4 bytes.
func (r *Reader) Read(addr uint32, width int) (uint32, bool) {
	switch width {
	case 1, 2, 4:
	default:
		return 0, false
	}
	b, ok := r.Block(addr, width)
	if !ok {
		return 0, false
	}
	switch width {
	case 1:
		return uint32(b[0]), true
	case 2:
		return uint32(binary.LittleEndian.Uint16(b)), true
	default:
		return binary.LittleEndian.Uint32(b), true
	}
}

// U8 reads one byte.
func (r *Reader) U8(addr uint32) (uint8, bool) {
	v, ok := r.Read(addr, 1)
	return uint8(v), ok
}

// U16 reads a little-endian halfword.
func (r *Reader) U16(addr uint32) (uint16, bool) {
	v, ok := r.Read(addr, 2)
	return uint16(v), ok
}

// U32 reads a little-endian word.
func (r *Reader) U32(addr uint32) (uint32, bool) {
	return r.Read(addr, 4)
}

// String reads up to maxLen bytes of game text.
func (r *Reader) String(addr uint32, maxLen int) (string, bool) {
	b, ok := r.Block(addr, maxLen)
	if !ok {
		return "", false
	}
	return charmap.Decode(b), true
}

// Stats returns the current counters.
func (r *Reader) Stats() Stats {
	return Stats{
		Total:    r.total.Load(),
		Failed:   r.failed.Load(),
		Fallback: r.fallback.Load(),
	}
}
