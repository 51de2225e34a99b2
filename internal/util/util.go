// Package util provides small parsing helpers shared by the config layer
// and the host command handlers.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// ParseAddress parses a 32-bit bus address. Hex needs a 0x prefix; bare
// digits are decimal.
func ParseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(TrimQuotes(strings.TrimSpace(s)))
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

// FormatAddress renders an address the way ParseAddress reads it back.
func FormatAddress(addr uint32) string {
	return fmt.Sprintf("0x%08X", addr)
}

// ParseAddressMap parses key=address pairs separated by commas or spaces,
// e.g. "partyCount=0x020244E9 partyBase=0x020244EC".
func ParseAddressMap(s string) (map[string]uint32, error) {
	out := make(map[string]uint32)
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed override %q", f)
		}
		addr, err := ParseAddress(val)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
		out[key] = addr
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no overrides given")
	}
	return out, nil
}
