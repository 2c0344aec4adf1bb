package main

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

// Mac-Roman text conversion. Bytes below 0x80 are plain ASCII; bytes at or
// above 0x80 are decoded through golang.org/x/text's own Macintosh table
// rather than a hand-rolled 128-entry array, matching how the rest of the
// retrieved corpus (BeHierarchic, pixie) reaches for x/text/encoding for
// exactly this job.

// DecodeMacRoman converts Mac-Roman bytes, as they appear in guest memory
// or on-disk resource/file names, to a Go string.
func DecodeMacRoman(b []byte) string {
	out, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		// charmap.Macintosh is a total mapping; NewDecoder never rejects a
		// byte, but guard anyway rather than assume the import can't fail.
		return string(b)
	}
	return string(out)
}

// EncodeMacRoman converts a Go string back to Mac-Roman bytes. If s holds a
// character with no Mac-Roman representation, the encoder fails and s's
// UTF-8 bytes are returned unconverted.
func EncodeMacRoman(s string) []byte {
	out, err := charmap.Macintosh.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// CRtoLF replaces Mac-style '\r' line endings with Unix '\n', applied only
// when text is being emitted to a terminal (4.A).
func CRtoLF(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte{'\r'}, []byte{'\n'})
}

// LFtoCR is the inverse of CRtoLF, applied when text typed at a terminal
// is delivered to guest code expecting Mac line endings.
func LFtoCR(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte{'\n'}, []byte{'\r'})
}

// macRomanCaseFold holds the accented-letter upper-case targets MSL's
// toupper and the Toolbox's UprString rely on, beyond the plain ASCII
// range (0x41-0x5A / 0x61-0x7A occupy the same slots as ASCII in
// Mac-Roman). Mac-Roman's accented letters are not arranged in a regular
// case-pairing order, so this is a literal lookup rather than an
// arithmetic transform, and it only covers the accented letters MSL's
// CType tables actually fold.
var macRomanCaseFold = map[byte]byte{
	0x8A: 0x80, // ä -> Ä
	0x9A: 0x85, // ö -> Ö
	0x88: 0xCB,
	0x87: 0xE7,
	0x89: 0xE5,
	0x8C: 0x81,
	0x8D: 0x82,
	0x8E: 0x83,
	0x96: 0x84,
	0x97: 0xEE,
	0x99: 0xEF,
	0x9F: 0x86,
}

// ToUpperMacRoman upper-cases a Mac-Roman byte, consulting the accented
// case-fold table for bytes >= 0x80 and the plain ASCII rule otherwise.
func ToUpperMacRoman(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 0x20
	}
	if u, ok := macRomanCaseFold[b]; ok {
		return u
	}
	return b
}

// ToLowerMacRoman lower-cases a Mac-Roman byte using the plain ASCII rule;
// classic Mac OS's LwrString does not fold accented letters symmetrically,
// so unlike ToUpperMacRoman this has no accented table to consult.
func ToLowerMacRoman(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 0x20
	}
	return b
}
