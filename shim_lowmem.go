package main

import "time"

// Low-memory global addresses this emulator fakes, grounded on
// mac_low_mem.rs's fixed table of the handful of globals MPW tools read
// directly instead of through a trap (CurApName, Ticks, Time).
const (
	lowMemCurApName = 0x0910
	lowMemTicks     = 0x016A
	lowMemTime      = 0x020C
)

// WriteLowMemGlobals seeds the fixed low-memory globals this emulator
// supports into guest memory at process startup. Real classic Mac OS
// reserves addresses below 0x3000 for these; since this emulator's
// address space starts at the configured image base rather than 0, the
// globals are placed at a small fixed offset from the heap base instead
// and exposed to guest code only through the shims below, not through
// direct memory reads at the real low-memory addresses.
func WriteLowMemGlobals(mem Memory, base uint32, appName string) {
	mem.WritePascalString(base+lowMemCurApName, appName)
	mem.WriteU32(base+lowMemTicks, 0)
	mem.WriteU32(base+lowMemTime, UnixToMacTime(time.Now()))
}

// shimTickCount implements TickCount(): returns elapsed 1/60ths of a
// second since this emulator's EmuState was created.
func shimTickCount(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	return uint32(time.Since(st.Started).Seconds() * 60)
}

// shimGetDateTime implements GetDateTime(&secs): seconds since the Mac
// epoch (§4.J).
func shimGetDateTime(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	addr := args.Ptr()
	mem.WriteU32(addr, UnixToMacTime(time.Now()))
	return 0
}

// RegisterLowMemShims binds the low-memory-global accessor calls.
func RegisterLowMemShims(d *Dispatcher) {
	d.Bind("TickCount", shimTickCount)
	d.Bind("GetDateTime", shimGetDateTime)
}
