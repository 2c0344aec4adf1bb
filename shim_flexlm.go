package main

// FlexLM license checks always report "not present": this emulator never
// ships inside an MPW installation with a license server, so any guest
// code gated on lc_checkout should treat the feature as absent rather
// than hang waiting on a server that will never answer (grounded on
// flex_lm.rs's always-fail stub).
const flexLMNotPresent = -1

// shimLcCheckout implements lc_checkout(...): always fails.
func shimLcCheckout(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	status := int32(flexLMNotPresent)
	return uint32(status)
}

// shimLcCheckin is a no-op paired with shimLcCheckout.
func shimLcCheckin(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	return 0
}

// RegisterFlexLMShims binds the FlexLM stub family.
func RegisterFlexLMShims(d *Dispatcher) {
	d.Bind("lc_checkout", shimLcCheckout)
	d.Bind("lc_checkin", shimLcCheckin)
}
