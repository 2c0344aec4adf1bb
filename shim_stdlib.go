package main

import "strconv"

// shimAtoi implements atoi(s).
func shimAtoi(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	s := args.CString()
	n, _ := strconv.Atoi(leadingInt(s))
	return uint32(int32(n))
}

// shimStrtol implements strtol(nptr, endptr, base). The classic MSL
// implementation this is modeled on left *endptr pointing at the start of
// nptr when the parse consumed digits, rather than past them; this
// implementation advances endptr past every digit actually consumed,
// which is the corrected behavior (the original's failure to do so broke
// any caller that loops calling strtol across a comma-separated list,
// since each call would re-parse the same leading number forever).
func shimStrtol(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	nptr := args.Ptr()
	endptr := args.Ptr()
	base := int(args.I32())

	s := mem.ReadCString(nptr)

	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsStart := i
	for i < len(s) && isBaseDigit(s[i], base) {
		i++
	}

	var value int64
	if i > digitsStart {
		value, _ = strconv.ParseInt(s[start:i], base, 64)
	} else {
		i = start
	}

	if endptr != 0 {
		mem.WriteU32(endptr, nptr+uint32(i))
	}
	return uint32(int32(value))
}

func isBaseDigit(c byte, base int) bool {
	if base == 0 {
		base = 10
	}
	var v int
	switch {
	case c >= '0' && c <= '9':
		v = int(c - '0')
	case c >= 'a' && c <= 'z':
		v = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		v = int(c-'A') + 10
	default:
		return false
	}
	return v < base
}

func leadingInt(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[start:i]
}

// shimMalloc/shimFree/shimCalloc route through the same Heap NewPtr does;
// MSL's malloc family is a thin wrapper over the Memory Manager on
// classic Mac OS (§4.G).
func shimMalloc(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	size := args.U32()
	return st.Heap.NewPtr(size)
}

func shimCalloc(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	count := args.U32()
	size := args.U32()
	return st.Heap.NewPtr(count * size)
}

func shimFree(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	p := args.Ptr()
	if p != 0 {
		_ = st.Heap.DisposePtr(p)
	}
	return 0
}

// shimExit implements exit(status): requests emulation stop with status.
func shimExit(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	status := args.I32()
	st.RequestExit(status)
	return 0
}

// RegisterStdlibShims binds the stdlib.h family.
func RegisterStdlibShims(d *Dispatcher) {
	d.Bind("atoi", shimAtoi)
	d.Bind("strtol", shimStrtol)
	d.Bind("malloc", shimMalloc)
	d.Bind("calloc", shimCalloc)
	d.Bind("free", shimFree)
	d.Bind("exit", shimExit)
	d.Bind("_exit", shimExit)
}
