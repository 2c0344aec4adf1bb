package main

// gestaltTable maps known selector FourCCs to a fixed response value,
// grounded on mac_gestalt.rs's hardcoded selector table: this emulator
// only ever reports the handful of selectors MPW-era command line tools
// actually probe for.
var gestaltTable = map[FourCC]uint32{
	ParseFourCC("alis"): 1, // alias manager present
	ParseFourCC("os  "): 0, // classic (non-Carbon) OS
	ParseFourCC("fold"): 0, // no System 7 folder aliasing extensions
}

// shimGestalt implements Gestalt(selector, *response): OSErr. Unknown
// selectors report gestaltUndefSelectorErr, matching real Gestalt's
// behavior for an unregistered selector rather than silently returning 0
// (§4.J).
func shimGestalt(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	selector := FourCC(args.U32())
	respAddr := args.Ptr()

	v, ok := gestaltTable[selector]
	if !ok {
		return OSErrGestaltUndefSelect.ToU32()
	}
	if respAddr != 0 {
		mem.WriteU32(respAddr, v)
	}
	return OSErrNoErr.ToU32()
}

// RegisterGestaltShim binds Gestalt.
func RegisterGestaltShim(d *Dispatcher) {
	d.Bind("Gestalt", shimGestalt)
}
