package main

// shimGetResource implements GetResource(type, id): Handle. Looks up the
// resource in the currently active resource file, caches a heap handle
// for it on first access, and returns 0 (a nil handle) if not found,
// setting ResErr accordingly (§4.D, §7).
func shimGetResource(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	typ := FourCC(args.U32())
	id := int16(args.I32())

	if st.ActiveResFile == nil {
		st.ResErr = OSErrResFNotFound
		return 0
	}
	key := resourceHandleKey{file: st.ActiveResFile, typ: typ, id: id}
	if h, ok := st.ResourceHandles[key]; ok {
		st.ResErr = OSErrNoErr
		return h
	}

	resMap, err := st.ActiveResFile.Resources()
	if err != nil {
		st.ResErr = OSErrIOError
		return 0
	}
	res, ok := resMap.Get(typ, id)
	if !ok {
		st.ResErr = OSErrResNotFound
		return 0
	}

	h := st.Heap.NewHandle(uint32(len(res.Data)))
	if h == 0 {
		st.ResErr = OSErrMemFullErr
		return 0
	}
	mem := NewMemory(cpu)
	ptr := mem.ReadU32(h)
	mem.WriteBytes(ptr, res.Data)

	st.ResourceHandles[key] = h
	st.ResErr = OSErrNoErr
	return h
}

// shimCloseResFile implements CloseResFile(refNum): flushes any dirty
// resource map back to its MacFile and clears it from ActiveResFile if
// it was current (§4.D).
func shimCloseResFile(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	_ = args.I32() // refNum: this repository tracks one active resource file at a time
	if st.ActiveResFile == nil {
		st.ResErr = OSErrNoErr
		return 0
	}
	st.ActiveResFile.Dirty = true
	if st.Files != nil {
		if err := st.Files.SaveIfDirty(st.ActiveResFile); err != nil {
			st.ResErr = OSErrIOError
			return 0
		}
	}
	for k := range st.ResourceHandles {
		if k.file == st.ActiveResFile {
			delete(st.ResourceHandles, k)
		}
	}
	st.ActiveResFile = nil
	st.ResErr = OSErrNoErr
	return 0
}

// shimUpdateResFile implements UpdateResFile(refNum): forces the active
// resource map's Pack()'d bytes to be written without closing it.
func shimUpdateResFile(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	_ = args.I32()
	if st.ActiveResFile == nil || st.Files == nil {
		st.ResErr = OSErrNoErr
		return 0
	}
	st.ActiveResFile.Dirty = true
	if err := st.Files.SaveIfDirty(st.ActiveResFile); err != nil {
		st.ResErr = OSErrIOError
		return 0
	}
	st.ResErr = OSErrNoErr
	return 0
}

// RegisterResourceShims binds the Resource Manager subset this emulator
// implements.
func RegisterResourceShims(d *Dispatcher) {
	d.Bind("GetResource", shimGetResource)
	d.Bind("CloseResFile", shimCloseResFile)
	d.Bind("UpdateResFile", shimUpdateResFile)
}
