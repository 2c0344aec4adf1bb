package main

// shimFSpOpenDF implements FSpOpenDF(spec, permission, &refNum): resolves
// the (vRefNum, parID, name) triple through FileStore, loads the MacFile,
// and hands back a fresh reference number for subsequent
// FSRead/FSWrite/FSClose calls (§4.C).
func shimFSpOpenDF(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	specAddr := args.Ptr()
	_ = args.I32() // permission: this store doesn't model read/write locking
	refOut := args.Ptr()

	vRef := VolumeRef(int16(mem.ReadU16(specAddr)))
	dirID := DirID(int32(mem.ReadU32(specAddr + 2)))
	name := mem.ReadPascalString(specAddr + 6)

	hostPath, err := st.Files.Resolve(vRef, dirID, name)
	if err != nil {
		return OSErrFileNotFound.ToU32()
	}
	f, err := st.Files.GetFile(hostPath)
	if err != nil {
		return OSErrFileNotFound.ToU32()
	}

	refNum := st.nextRefNum
	st.nextRefNum++
	st.OpenFiles[refNum] = &openFile{file: f}
	if refOut != 0 {
		mem.WriteU16(refOut, uint16(refNum))
	}
	return OSErrNoErr.ToU32()
}

// shimFSRead implements FSRead(refNum, &count, buffer): reads up to
// *count bytes from the file's current position, updating *count with
// the number actually read (§4.C).
func shimFSRead(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	refNum := int16(args.I32())
	countAddr := args.Ptr()
	buffer := args.Ptr()

	of, ok := st.OpenFiles[refNum]
	if !ok {
		return OSErrFileNotFound.ToU32()
	}
	want := int64(mem.ReadU32(countAddr))
	avail := int64(len(of.file.DataFork)) - of.pos
	n := want
	if avail < n {
		n = avail
	}
	if n < 0 {
		n = 0
	}
	if n > 0 {
		mem.WriteBytes(buffer, of.file.DataFork[of.pos:of.pos+n])
	}
	of.pos += n
	mem.WriteU32(countAddr, uint32(n))
	if n < want {
		return OSErrIOError.ToU32() // eofErr in the real Toolbox; reused here
	}
	return OSErrNoErr.ToU32()
}

// shimFSWrite implements FSWrite(refNum, &count, buffer): writes *count
// bytes from buffer at the file's current position, growing the data
// fork and marking it dirty (§4.C).
func shimFSWrite(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	refNum := int16(args.I32())
	countAddr := args.Ptr()
	buffer := args.Ptr()

	of, ok := st.OpenFiles[refNum]
	if !ok {
		return OSErrFileNotFound.ToU32()
	}
	n := int64(mem.ReadU32(countAddr))
	data := mem.ReadBytes(buffer, int(n))

	end := of.pos + n
	if end > int64(len(of.file.DataFork)) {
		grown := make([]byte, end)
		copy(grown, of.file.DataFork)
		of.file.DataFork = grown
	}
	copy(of.file.DataFork[of.pos:end], data)
	of.pos = end
	of.file.Dirty = true

	mem.WriteU32(countAddr, uint32(n))
	return OSErrNoErr.ToU32()
}

// shimFSClose implements FSClose(refNum): flushes if dirty and drops the
// reference number.
func shimFSClose(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	refNum := int16(args.I32())
	of, ok := st.OpenFiles[refNum]
	if !ok {
		return OSErrFileNotFound.ToU32()
	}
	if err := st.Files.SaveIfDirty(of.file); err != nil {
		return OSErrIOError.ToU32()
	}
	delete(st.OpenFiles, refNum)
	return OSErrNoErr.ToU32()
}

// RegisterFileShims binds the File Manager subset this emulator
// implements.
func RegisterFileShims(d *Dispatcher) {
	d.Bind("FSpOpenDF", shimFSpOpenDF)
	d.Bind("FSRead", shimFSRead)
	d.Bind("FSWrite", shimFSWrite)
	d.Bind("FSClose", shimFSClose)
}
