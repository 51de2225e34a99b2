// Package memory reads the emulated handheld's address space through a Bus,
// routing each address to its region's domain and falling back to the
// System Bus when the primary path cannot serve it.
package memory

import "errors"

var (
	// ErrUnavailable is returned when a bus cannot serve a domain at all.
	ErrUnavailable = errors.New("memory domain unavailable")
	// ErrOutOfRange is returned when a read runs past the end of a domain.
	ErrOutOfRange = errors.New("read out of range")
	// ErrThrottled is returned when a rate-limited bus refuses a read.
	ErrThrottled = errors.New("read throttled")
)

// Bus is a raw memory source. Offsets are relative to the domain; for the
// System Bus they are absolute addresses. Implementations fill buf entirely
// or return an error.
type Bus interface {
	ReadDomain(domain string, offset uint32, buf []byte) error
}
