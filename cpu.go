package main

import "context"

// CPU is a thin facade over an external PowerPC register/memory emulator.
// The instruction-level core is deliberately out of scope for this repo;
// everything here talks to it only through this interface, isolating
// architecture-specific register/memory access behind one seam instead of
// switch statements scattered through the codebase.
//
// Register numbering follows the PPC EABI: GPR(0)..GPR(31), LR, CR, FPSCR,
// FPR(0)..FPR(31), and the program counter.
type CPU interface {
	GPR(n int) uint32
	SetGPR(n int, v uint32)

	LR() uint32
	SetLR(v uint32)
	CR() uint32
	SetCR(v uint32)
	FPSCR() uint64
	SetFPSCR(v uint64)
	FPR(n int) uint64
	SetFPR(n int, v uint64)

	PC() uint32
	SetPC(v uint32)

	// Map installs the guest memory image so addresses in [base, base+len)
	// are readable/writable by the CPU. Called once before Start.
	Map(base uint32, mem []byte) error

	// ReadMem/WriteMem give direct big-endian-byte-order access to the
	// mapped image; shims reach guest memory through Memory (below),
	// which is built on top of these two methods.
	ReadMem(addr uint32, dst []byte) error
	WriteMem(addr uint32, src []byte) error

	// InterruptHook installs the callback invoked whenever the CPU
	// executes a `sc` (syscall) instruction -- the shim fabric's only
	// guest-to-host transfer point.
	InterruptHook(fn func(cpu CPU))

	// Start runs the CPU from entry until it reaches the `until` address
	// (used as a sentinel return address) or executes `budget`
	// instructions (0 means unlimited). Returns when the interrupt hook
	// calls Stop, the sentinel is reached, or the budget is exhausted.
	Start(ctx context.Context, entry, until uint32, budget uint64) error

	// Stop asks a running CPU to return control after the current
	// instruction. Safe to call from within the interrupt hook.
	Stop()
}

// Memory is the guest-memory-access surface shims actually use; it wraps a
// CPU with the big-endian codecs and string helpers from bytes_codec.go so
// shim bodies never call cpu.ReadMem/WriteMem directly.
type Memory struct {
	cpu CPU
}

// NewMemory wraps a CPU in the higher-level, codec-aware memory view.
func NewMemory(cpu CPU) Memory {
	return Memory{cpu: cpu}
}

func (m Memory) ReadU8(addr uint32) uint8 {
	var b [1]byte
	_ = m.cpu.ReadMem(addr, b[:])
	return b[0]
}

func (m Memory) ReadU16(addr uint32) uint16 {
	var b [2]byte
	_ = m.cpu.ReadMem(addr, b[:])
	return beUint16(b[:])
}

func (m Memory) ReadU32(addr uint32) uint32 {
	var b [4]byte
	_ = m.cpu.ReadMem(addr, b[:])
	return beUint32(b[:])
}

func (m Memory) ReadI8(addr uint32) int8   { return int8(m.ReadU8(addr)) }
func (m Memory) ReadI16(addr uint32) int16 { return int16(m.ReadU16(addr)) }
func (m Memory) ReadI32(addr uint32) int32 { return int32(m.ReadU32(addr)) }

func (m Memory) WriteU8(addr uint32, v uint8) {
	_ = m.cpu.WriteMem(addr, []byte{v})
}

func (m Memory) WriteU16(addr uint32, v uint16) {
	var b [2]byte
	putBeUint16(b[:], v)
	_ = m.cpu.WriteMem(addr, b[:])
}

func (m Memory) WriteU32(addr uint32, v uint32) {
	var b [4]byte
	putBeUint32(b[:], v)
	_ = m.cpu.WriteMem(addr, b[:])
}

func (m Memory) WriteI8(addr uint32, v int8)   { m.WriteU8(addr, uint8(v)) }
func (m Memory) WriteI16(addr uint32, v int16) { m.WriteU16(addr, uint16(v)) }
func (m Memory) WriteI32(addr uint32, v int32) { m.WriteU32(addr, uint32(v)) }

// ReadBytes copies n raw bytes starting at addr out of guest memory.
func (m Memory) ReadBytes(addr uint32, n int) []byte {
	buf := make([]byte, n)
	_ = m.cpu.ReadMem(addr, buf)
	return buf
}

// WriteBytes copies raw bytes into guest memory starting at addr.
func (m Memory) WriteBytes(addr uint32, b []byte) {
	_ = m.cpu.WriteMem(addr, b)
}

// ReadCString reads a NUL-terminated string starting at addr (4.A).
func (m Memory) ReadCString(addr uint32) string {
	var out []byte
	for {
		b := m.ReadU8(addr)
		if b == 0 {
			break
		}
		out = append(out, b)
		addr++
	}
	return string(out)
}

// WriteCString writes s followed by a NUL terminator at addr, returning the
// number of bytes written including the terminator.
func (m Memory) WriteCString(addr uint32, s string) uint32 {
	m.WriteBytes(addr, []byte(s))
	m.WriteU8(addr+uint32(len(s)), 0)
	return uint32(len(s)) + 1
}

// ReadPascalString reads a length-prefixed string (max 255 bytes) at addr.
func (m Memory) ReadPascalString(addr uint32) string {
	n := m.ReadU8(addr)
	return string(m.ReadBytes(addr+1, int(n)))
}

// WritePascalString writes s as a length-prefixed string (truncated to 255
// bytes, matching classic Mac OS Str255 semantics) at addr.
func (m Memory) WritePascalString(addr uint32, s string) {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	m.WriteU8(addr, uint8(len(b)))
	m.WriteBytes(addr+1, b)
}
