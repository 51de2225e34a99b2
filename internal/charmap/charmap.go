// Package charmap converts between the game's 8-bit text encoding and UTF-8.
package charmap

import "strings"

// Terminator ends every in-game string.
const Terminator = 0xFF

var decodeTable = map[byte]rune{
	0x00: ' ',
	0x1B: 'é',
	0x5C: '(',
	0x5D: ')',
	0xAB: '!',
	0xAC: '?',
	0xAD: '.',
	0xAE: '-',
	0xAF: '·',
	0xB0: '…',
	0xB1: '“',
	0xB2: '”',
	0xB3: '‘',
	0xB4: '\'',
	0xB5: '♂',
	0xB6: '♀',
	0xB7: '$',
	0xB8: ',',
	0xB9: '×',
	0xBA: '/',
	0xF0: ':',
	0xF1: 'Ä',
	0xF2: 'Ö',
	0xF3: 'Ü',
	0xF4: 'ä',
	0xF5: 'ö',
	0xF6: 'ü',
}

var encodeTable map[rune]byte

func init() {
	for i := byte(0); i < 10; i++ {
		decodeTable[0xA1+i] = rune('0' + i)
	}
	for i := byte(0); i < 26; i++ {
		decodeTable[0xBB+i] = rune('A' + i)
		decodeTable[0xD5+i] = rune('a' + i)
	}
	encodeTable = make(map[rune]byte, len(decodeTable))
	for b, r := range decodeTable {
		encodeTable[r] = b
	}
	// typographic apostrophe shares the 0xB4 glyph
	encodeTable['’'] = 0xB4
}

// Decode reads b up to the first terminator. Bytes with no glyph are dropped.
func Decode(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c == Terminator {
			break
		}
		if r, ok := decodeTable[c]; ok {
			sb.WriteRune(r)
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

// Encode converts s into a buffer of exactly size bytes, terminated and
// padded with Terminator. Runes with no encoding are skipped.
func Encode(s string, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = Terminator
	}
	i := 0
	for _, r := range s {
		if i >= size {
			break
		}
		if c, ok := encodeTable[r]; ok {
			out[i] = c
			i++
		}
	}
	return out
}
