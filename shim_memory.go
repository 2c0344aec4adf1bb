package main

// Toolbox/MSL memory shims: thin wrappers over the Heap (component G)
// that translate between the classic Mac calling convention (size in,
// pointer/handle out; errors reported through MemErr rather than a
// thrown exception) and Go's (value, error) idiom (§4.J, §7).

func shimNewPtr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	size := args.U32()
	p := st.Heap.NewPtr(size)
	if p == 0 {
		st.MemErr = OSErrMemFullErr
	} else {
		st.MemErr = OSErrNoErr
	}
	return p
}

func shimDisposePtr(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	p := args.Ptr()
	if err := st.Heap.DisposePtr(p); err != nil {
		st.Log.Warnw("DisposePtr failed", "error", err)
		st.MemErr = OSErrNilHandleErr
		return 0
	}
	st.MemErr = OSErrNoErr
	return 0
}

func shimGetPtrSize(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	p := args.Ptr()
	n, err := st.Heap.GetPtrSize(p)
	if err != nil {
		st.MemErr = OSErrNilHandleErr
		return 0
	}
	st.MemErr = OSErrNoErr
	return n
}

func shimSetPtrSize(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	p := args.Ptr()
	n := args.U32()
	ok, err := st.Heap.SetPtrSize(p, n)
	if err != nil || !ok {
		st.MemErr = OSErrMemFullErr
		return OSErrMemFullErr.ToU32()
	}
	st.MemErr = OSErrNoErr
	return 0
}

func shimNewHandle(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	size := args.U32()
	h := st.Heap.NewHandle(size)
	if h == 0 {
		st.MemErr = OSErrMemFullErr
	} else {
		st.MemErr = OSErrNoErr
	}
	return h
}

func shimDisposeHandle(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	h := args.Ptr()
	if err := st.Heap.DisposeHandle(h); err != nil {
		st.Log.Warnw("DisposeHandle failed", "error", err)
		st.MemErr = OSErrNilHandleErr
	} else {
		st.MemErr = OSErrNoErr
	}
	return 0
}

func shimGetHandleSize(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	h := args.Ptr()
	n, err := st.Heap.GetHandleSize(h)
	if err != nil {
		st.MemErr = OSErrNilHandleErr
		return 0
	}
	st.MemErr = OSErrNoErr
	return n
}

func shimSetHandleSize(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	h := args.Ptr()
	n := args.U32()
	if err := st.Heap.SetHandleSize(h, n); err != nil {
		st.MemErr = OSErrMemFullErr
		return OSErrMemFullErr.ToU32()
	}
	st.MemErr = OSErrNoErr
	return 0
}

// RegisterMemoryShims binds the classic NewPtr/DisposePtr/... family onto
// d. Symbol names match MSL/Toolbox headers exactly since the PEF
// importer keys bindings by name.
func RegisterMemoryShims(d *Dispatcher) {
	d.Bind("NewPtr", shimNewPtr)
	d.Bind("NewPtrClear", shimNewPtr)
	d.Bind("DisposePtr", shimDisposePtr)
	d.Bind("GetPtrSize", shimGetPtrSize)
	d.Bind("SetPtrSize", shimSetPtrSize)
	d.Bind("NewHandle", shimNewHandle)
	d.Bind("NewHandleClear", shimNewHandle)
	d.Bind("DisposeHandle", shimDisposeHandle)
	d.Bind("GetHandleSize", shimGetHandleSize)
	d.Bind("SetHandleSize", shimSetHandleSize)
}
