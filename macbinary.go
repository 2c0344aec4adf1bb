package main

import "fmt"

// MacBinaryInfo is the decoded content of a MacBinary III (or plain
// MacBinary II) wrapper (§4.B).
type MacBinaryInfo struct {
	Name         string
	TypeID       FourCC
	CreatorID    FourCC
	FinderFlags  uint16
	LocationH    int16
	LocationV    int16
	Data         []byte
	Resource     []byte
}

func roundUp128(n int) int {
	return (n + 127) &^ 127
}

// ProbeMacBinary reports whether raw looks like a MacBinary-wrapped file,
// per the two acceptance rules in §4.B: a MacBinary III `mBIN` marker with
// a length consistent with the declared fork sizes, or a MacBinary II
// file whose XMODEM CRC-16 over bytes [0:124] matches the big-endian
// checksum at [124:126].
func ProbeMacBinary(raw []byte) bool {
	if len(raw) < 128 {
		return false
	}
	if raw[102] == 'm' && raw[103] == 'B' && raw[104] == 'I' && raw[105] == 'N' {
		dataSize := int(beUint32(raw[83:87]))
		rsrcSize := int(beUint32(raw[87:91]))
		want := 128 + roundUp128(dataSize) + roundUp128(rsrcSize)
		return len(raw) == want
	}
	if raw[0] == 0 && raw[74] == 0 {
		want := beUint16(raw[124:126])
		got := crc16XModem(raw[0:124])
		return got == want
	}
	return false
}

// UnpackMacBinary decodes a probed MacBinary wrapper into its name,
// type/creator, Finder flags/location, and data/resource forks (§4.B).
// Caller must have already confirmed ProbeMacBinary.
func UnpackMacBinary(raw []byte) (*MacBinaryInfo, error) {
	if len(raw) < 128 {
		return nil, fmt.Errorf("%w: MacBinary header truncated", ErrLinkerMalformed)
	}
	nameLen := int(raw[1])
	if nameLen > 63 {
		nameLen = 63
	}
	name := string(raw[2 : 2+nameLen])

	info := &MacBinaryInfo{
		Name:        name,
		TypeID:      FourCC(beUint32(raw[65:69])),
		CreatorID:   FourCC(beUint32(raw[69:73])),
		FinderFlags: uint16(raw[73])<<8 | uint16(raw[101]),
		LocationH:   int16(beUint16(raw[75:77])),
		LocationV:   int16(beUint16(raw[77:79])),
	}

	dataSize := int(beUint32(raw[83:87]))
	rsrcSize := int(beUint32(raw[87:91]))

	dataStart := 128
	dataEnd := dataStart + dataSize
	if dataEnd > len(raw) {
		return nil, fmt.Errorf("%w: MacBinary data fork truncated", ErrLinkerMalformed)
	}
	info.Data = append([]byte(nil), raw[dataStart:dataEnd]...)

	rsrcStart := 128 + roundUp128(dataSize)
	rsrcEnd := rsrcStart + rsrcSize
	if rsrcEnd > len(raw) {
		return nil, fmt.Errorf("%w: MacBinary resource fork truncated", ErrLinkerMalformed)
	}
	info.Resource = append([]byte(nil), raw[rsrcStart:rsrcEnd]...)

	return info, nil
}

// PackMacBinary re-wraps info as a MacBinary III file: a 128-byte header
// (zeroed except for the fields this emulator tracks) followed by the
// data fork padded to a 128-byte boundary, then the resource fork padded
// the same way.
func PackMacBinary(info *MacBinaryInfo) []byte {
	hdr := make([]byte, 128)
	hdr[1] = byte(len(info.Name))
	copy(hdr[2:2+len(info.Name)], info.Name)
	putBeUint32(hdr[65:69], uint32(info.TypeID))
	putBeUint32(hdr[69:73], uint32(info.CreatorID))
	hdr[73] = byte(info.FinderFlags >> 8)
	hdr[101] = byte(info.FinderFlags)
	putBeUint16(hdr[75:77], uint16(info.LocationH))
	putBeUint16(hdr[77:79], uint16(info.LocationV))
	putBeUint32(hdr[83:87], uint32(len(info.Data)))
	putBeUint32(hdr[87:91], uint32(len(info.Resource)))
	hdr[102], hdr[103], hdr[104], hdr[105] = 'm', 'B', 'I', 'N'

	out := make([]byte, 0, 128+roundUp128(len(info.Data))+roundUp128(len(info.Resource)))
	out = append(out, hdr...)
	out = append(out, info.Data...)
	out = append(out, make([]byte, roundUp128(len(info.Data))-len(info.Data))...)
	out = append(out, info.Resource...)
	out = append(out, make([]byte, roundUp128(len(info.Resource))-len(info.Resource))...)
	return out
}
