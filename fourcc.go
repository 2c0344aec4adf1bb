package main

import "fmt"

// FourCC is a 32-bit identifier formed from four ASCII bytes, big-endian
// as it appears on the wire (resource types, PEF section kinds referenced
// by name, Finder type/creator codes).
type FourCC uint32

// MakeFourCC packs four bytes into a FourCC the way classic Mac OS headers
// spell them, e.g. MakeFourCC('T', 'E', 'X', 'T').
func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// ParseFourCC reads the first four bytes of s as a FourCC; shorter strings
// are padded with spaces, matching how Mac OS pads type codes like "APPL".
func ParseFourCC(s string) FourCC {
	var b [4]byte
	for i := range b {
		b[i] = ' '
	}
	copy(b[:], s)
	return MakeFourCC(b[0], b[1], b[2], b[3])
}

func (f FourCC) String() string {
	b := [4]byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '.'
		}
	}
	return string(b[:])
}

func (f FourCC) GoString() string {
	return fmt.Sprintf("FourCC(%q)", f.String())
}
