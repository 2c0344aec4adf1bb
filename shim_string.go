package main

import "strings"

// shimStrlen implements strlen(s).
func shimStrlen(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	return uint32(len(mem.ReadCString(p)))
}

// shimStrcpy implements strcpy(dst, src), returning dst.
func shimStrcpy(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	dst := args.Ptr()
	src := args.Ptr()
	mem.WriteCString(dst, mem.ReadCString(src))
	return dst
}

// shimStrncpy implements strncpy(dst, src, n): copies up to n bytes,
// zero-padding the remainder if src is shorter, without appending a
// terminator beyond what fits.
func shimStrncpy(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	dst := args.Ptr()
	src := args.Ptr()
	n := int(args.U32())
	s := mem.ReadCString(src)
	for i := 0; i < n; i++ {
		if i < len(s) {
			mem.WriteU8(dst+uint32(i), s[i])
		} else {
			mem.WriteU8(dst+uint32(i), 0)
		}
	}
	return dst
}

// shimStrcat implements strcat(dst, src), returning dst.
func shimStrcat(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	dst := args.Ptr()
	src := args.Ptr()
	existing := mem.ReadCString(dst)
	mem.WriteCString(dst+uint32(len(existing)), mem.ReadCString(src))
	return dst
}

// shimStrcmp implements strcmp(a, b).
func shimStrcmp(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	a := mem.ReadCString(args.Ptr())
	b := mem.ReadCString(args.Ptr())
	return uint32(int32(strings.Compare(a, b)))
}

// shimStrncmp implements strncmp(a, b, n).
func shimStrncmp(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	a := mem.ReadCString(args.Ptr())
	b := mem.ReadCString(args.Ptr())
	n := int(args.U32())
	if len(a) > n {
		a = a[:n]
	}
	if len(b) > n {
		b = b[:n]
	}
	return uint32(int32(strings.Compare(a, b)))
}

// shimStrchr implements strchr(s, c): returns the address of the first
// occurrence of c in s, or 0.
func shimStrchr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	c := byte(args.U32())
	s := mem.ReadCString(p)
	if idx := strings.IndexByte(s, c); idx >= 0 {
		return p + uint32(idx)
	}
	return 0
}

// shimStrlwr/shimStrupr apply Mac-Roman case folding in place.
func shimStrlwr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	s := mem.ReadCString(p)
	b := []byte(s)
	for i, c := range b {
		b[i] = ToLowerMacRoman(c)
	}
	mem.WriteCString(p, string(b))
	return p
}

func shimStrupr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	p := args.Ptr()
	s := mem.ReadCString(p)
	b := []byte(s)
	for i, c := range b {
		b[i] = ToUpperMacRoman(c)
	}
	mem.WriteCString(p, string(b))
	return p
}

// RegisterStringShims binds the string.h family.
func RegisterStringShims(d *Dispatcher) {
	d.Bind("strlen", shimStrlen)
	d.Bind("strcpy", shimStrcpy)
	d.Bind("strncpy", shimStrncpy)
	d.Bind("strcat", shimStrcat)
	d.Bind("strcmp", shimStrcmp)
	d.Bind("strncmp", shimStrncmp)
	d.Bind("strchr", shimStrchr)
	d.Bind("strlwr", shimStrlwr)
	d.Bind("strupr", shimStrupr)
}
