package main

// Floating point environment calls save and restore FPSCR as a plain
// register value: fegetenv stores its low 32 bits at the pointer argument
// and fesetenv loads them back. No exception or rounding-mode behavior is
// modeled beyond that (grounded on c_fenv.rs).

func shimFegetenv(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	addr := args.Ptr()
	mem.WriteU32(addr, uint32(cpu.FPSCR()))
	return 0
}

func shimFesetenv(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	addr := args.Ptr()
	cpu.SetFPSCR(uint64(mem.ReadU32(addr)))
	return 0
}

// RegisterFenvShims binds fegetenv and fesetenv.
func RegisterFenvShims(d *Dispatcher) {
	d.Bind("fegetenv", shimFegetenv)
	d.Bind("fesetenv", shimFesetenv)
}
