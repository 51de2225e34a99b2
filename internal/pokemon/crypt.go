package pokemon

import "encoding/binary"

// Crypt XORs every 32-bit little-endian word of data with key, in place.
// The operation is its own inverse.
func Crypt(data []byte, key uint32) {
	for i := 0; i+4 <= len(data); i += 4 {
		w := binary.LittleEndian.Uint32(data[i:]) ^ key
		binary.LittleEndian.PutUint32(data[i:], w)
	}
}

// Checksum is the 16-bit sum of the decrypted data region's halfwords.
func Checksum(plain []byte) uint16 {
	var sum uint16
	for i := 0; i+2 <= len(plain); i += 2 {
		sum += binary.LittleEndian.Uint16(plain[i:])
	}
	return sum
}
