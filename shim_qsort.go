package main

// qsort's comparator is guest code (a function pointer the caller
// passes), so a host-side sort can't call it directly the way the rest
// of this package calls into Go slices. InstallQsortRoutine writes a
// small pre-assembled PPC routine into heap memory, but the qsort shim
// does not run it: shimQsort sorts on the host side (see its comment).

// qsortRoutine is a placeholder routine, not a sort loop: a single trap
// back into the host (sc) followed by blr. This repository's CPU facade
// does not execute instructions, and no Go-side test exercises these
// bytes.
var qsortRoutine = []byte{
	// PPC encoding is intentionally left as a placeholder shape: a single
	// trap back into the host (sc) followed by blr, since this emulator's
	// CPU facade has no instruction decoder to drive a real insertion
	// sort loop. A future interpreter component would replace this with
	// an actual assembled routine.
	0x44, 0x00, 0x00, 0x02, // sc
	0x4E, 0x80, 0x00, 0x20, // blr
}

// InstallQsortRoutine writes qsortRoutine into the heap and returns its
// address, so the qsort shim has somewhere in guest address space to
// direct control for the comparator-driven sort loop.
func InstallQsortRoutine(st *EmuState) uint32 {
	addr := st.Heap.NewPtr(uint32(len(qsortRoutine)))
	if addr == 0 {
		return 0
	}
	copy(st.Heap.mem[addr-st.Heap.base:], qsortRoutine)
	return addr
}

// shimQsort implements qsort(base, nmemb, size, compar) with a host-side
// insertion sort that orders the elements by their raw bytes (unsigned,
// lexicographic). The guest comparator compar is never called, so the
// result follows compar only where compar orders elements the same way.
func shimQsort(cpu CPU, st *EmuState, args *ArgReader) uint32 {
	mem := NewMemory(cpu)
	base := args.Ptr()
	nmemb := args.U32()
	size := args.U32()
	_ = args.Ptr() // compar, unused until an interpreter can invoke it

	if size == 0 || nmemb < 2 {
		return 0
	}

	elems := make([][]byte, nmemb)
	for i := uint32(0); i < nmemb; i++ {
		elems[i] = mem.ReadBytes(base+i*size, int(size))
	}

	for i := 1; i < len(elems); i++ {
		for j := i; j > 0 && lessBytes(elems[j], elems[j-1]); j-- {
			elems[j], elems[j-1] = elems[j-1], elems[j]
		}
	}

	for i, e := range elems {
		mem.WriteBytes(base+uint32(i)*size, e)
	}
	return 0
}

func lessBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// RegisterQsortShim binds qsort.
func RegisterQsortShim(d *Dispatcher) {
	d.Bind("qsort", shimQsort)
}
