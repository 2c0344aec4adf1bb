package main

import "strconv"

// shimGetIndString implements GetIndString(&str, strListID, index):
// loads the 'STR#' resource strListID and copies its index'th string
// (1-based) into the Pascal string buffer at str, or an empty string if
// out of range (grounded on mac_text_utils.rs).
func shimGetIndString(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	dst := args.Ptr()
	listID := int16(args.I32())
	index := int(args.I32())

	if st.ActiveResFile == nil {
		mem.WritePascalString(dst, "")
		return 0
	}
	resMap, err := st.ActiveResFile.Resources()
	if err != nil {
		mem.WritePascalString(dst, "")
		return 0
	}
	res, ok := resMap.Get(ParseFourCC("STR#"), listID)
	if !ok {
		mem.WritePascalString(dst, "")
		return 0
	}

	strs := decodeStringList(res.Data)
	if index < 1 || index > len(strs) {
		mem.WritePascalString(dst, "")
		return 0
	}
	mem.WritePascalString(dst, strs[index-1])
	return 0
}

// decodeStringList parses a classic 'STR#' resource: a u16 count
// followed by that many Pascal strings back to back.
func decodeStringList(data []byte) []string {
	if len(data) < 2 {
		return nil
	}
	count := int(beUint16(data[0:2]))
	strs := make([]string, 0, count)
	off := 2
	for i := 0; i < count && off < len(data); i++ {
		n := int(data[off])
		off++
		if off+n > len(data) {
			break
		}
		strs = append(strs, DecodeMacRoman(data[off:off+n]))
		off += n
	}
	return strs
}

// shimNumToString implements NumToString(n, &str): decimal Pascal string
// conversion.
func shimNumToString(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	n := args.I32()
	dst := args.Ptr()
	mem.WritePascalString(dst, strconv.FormatInt(int64(n), 10))
	return 0
}

// shimIUDateString implements IUDateString(secs, longFlag, &str): a
// locale-free rendering since this emulator doesn't model the
// International Utilities resource ('itl0'/'itl1') a real system would
// consult.
func shimIUDateString(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	secs := args.U32()
	_ = args.I32() // longFlag: long-form date names are not modeled
	dst := args.Ptr()
	t := MacTimeToUnix(secs)
	mem.WritePascalString(dst, t.Format("1/2/06"))
	return 0
}

// shimIUTimeString implements IUTimeString(secs, wantSeconds, &str).
func shimIUTimeString(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	secs := args.U32()
	wantSeconds := args.I32()
	dst := args.Ptr()
	t := MacTimeToUnix(secs)
	layout := "3:04 PM"
	if wantSeconds != 0 {
		layout = "3:04:05 PM"
	}
	mem.WritePascalString(dst, t.Format(layout))
	return 0
}

// shimC2PStr implements c2pstr(s): converts a C string to a Pascal
// string in place, sharing the same buffer (the classic MSL
// implementation shifts the characters up by one, over the C string's
// terminating NUL, and stores the length byte at s[0] -- this emulator
// does the same, so the result carries no NUL terminator).
func shimC2PStr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	s := mem.ReadCString(p)
	if len(s) > 255 {
		s = s[:255]
	}
	for i := len(s); i > 0; i-- {
		mem.WriteU8(p+uint32(i), s[i-1])
	}
	mem.WriteU8(p, uint8(len(s)))
	return p
}

// shimP2CStr implements p2cstr(s): the inverse, shifting bytes back by
// one and appending a NUL.
func shimP2CStr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	s := mem.ReadPascalString(p)
	for i := 0; i < len(s); i++ {
		mem.WriteU8(p+uint32(i), s[i])
	}
	mem.WriteU8(p+uint32(len(s)), 0)
	return p
}

// RegisterTextUtilsShims binds the Text Utilities subset this emulator
// implements.
func RegisterTextUtilsShims(d *Dispatcher) {
	d.Bind("GetIndString", shimGetIndString)
	d.Bind("getindstring", shimGetIndString)
	d.Bind("NumToString", shimNumToString)
	d.Bind("numtostring", shimNumToString)
	d.Bind("IUDateString", shimIUDateString)
	d.Bind("iudatestring", shimIUDateString)
	d.Bind("IUTimeString", shimIUTimeString)
	d.Bind("iutimestring", shimIUTimeString)
	d.Bind("c2pstr", shimC2PStr)
	d.Bind("p2cstr", shimP2CStr)
}
