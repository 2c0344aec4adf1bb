package main

// setjmpBufSize is the size in bytes of a jmp_buf on this target: LR, CR,
// R1, R2, R13-R31 (19 GPRs), FPR14-FPR31 (18 FPRs as 8-byte doubles), and
// FPSCR -- (2+2+19)*4 + 18*8 + 4 = 240 bytes of saved state, in a buffer
// sized 248 bytes (§4.J).
const setjmpBufSize = 248

// shimSetjmp implements setjmp(env): captures the callee-saved register
// set into the 248-byte guest buffer at env and returns 0 for the direct
// call.
func shimSetjmp(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	env := args.Ptr()

	off := env
	mem.WriteU32(off, cpu.LR())
	off += 4
	mem.WriteU32(off, cpu.CR())
	off += 4
	mem.WriteU32(off, cpu.GPR(1))
	off += 4
	mem.WriteU32(off, cpu.GPR(2))
	off += 4
	for r := 13; r <= 31; r++ {
		mem.WriteU32(off, cpu.GPR(r))
		off += 4
	}
	for r := 14; r <= 31; r++ {
		bits := cpu.FPR(r)
		mem.WriteU32(off, uint32(bits>>32))
		mem.WriteU32(off+4, uint32(bits))
		off += 8
	}
	mem.WriteU32(off, uint32(cpu.FPSCR()))

	return 0
}

// shimLongjmp implements longjmp(env, v): restores the register set saved
// by setjmp and makes the setjmp call appear to return v, or 1 if the
// caller passed 0 (§4.J, Scenario F: the C standard forbids longjmp from
// handing control back with a 0 result since that's indistinguishable
// from setjmp's own direct return).
func shimLongjmp(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	env := args.Ptr()
	v := args.I32()

	off := env
	lr := mem.ReadU32(off)
	off += 4
	cr := mem.ReadU32(off)
	off += 4
	r1 := mem.ReadU32(off)
	off += 4
	r2 := mem.ReadU32(off)
	off += 4

	cpu.SetLR(lr)
	cpu.SetCR(cr)
	cpu.SetGPR(1, r1)
	cpu.SetGPR(2, r2)
	for r := 13; r <= 31; r++ {
		cpu.SetGPR(r, mem.ReadU32(off))
		off += 4
	}
	for r := 14; r <= 31; r++ {
		hi := mem.ReadU32(off)
		lo := mem.ReadU32(off + 4)
		cpu.SetFPR(r, uint64(hi)<<32|uint64(lo))
		off += 8
	}
	cpu.SetFPSCR(uint64(mem.ReadU32(off)))

	cpu.SetPC(lr)

	if v == 0 {
		return 1
	}
	return uint32(v)
}

// RegisterSetjmpShims binds the setjmp.h family.
func RegisterSetjmpShims(d *Dispatcher) {
	d.Bind("setjmp", shimSetjmp)
	d.Bind("_setjmp", shimSetjmp)
	d.Bind("longjmp", shimLongjmp)
	d.Bind("_longjmp", shimLongjmp)
}
