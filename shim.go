package main

// Dyn-stub tag codes written into a dynamic stub's tag word, and the
// static-import tag the linker's TVect cells imply (§4.I).
const (
	stubTagStaticImport = 100
	stubTagDyn          = 101
	stubTagMissingDyn   = 404
)

// dynStubSize is the size of a dynamically-resolved-symbol stub cell:
// (sc_thunk_addr, index, tag), three words (§4.I).
const dynStubSize = 12

// ShimFunc is a host implementation of one imported or dynamically
// resolved symbol. It receives the paused CPU, the emulator context, and
// an ArgReader positioned at the call's first argument, and returns an
// optional 32-bit result written to R3 (§4.I, §9 "shims receive
// (cpu, state, args)").
type ShimFunc func(cpu CPU, st *EmuState, args *ArgReader) uint32

// Dispatcher owns the import table, the dynamic-stub map, and the set of
// host functions each resolves to, and is installed as the CPU's
// interrupt hook (§4.I).
type Dispatcher struct {
	cpu CPU
	st  *EmuState
	mem Memory

	imports     []ImportedSymbol
	importFuncs []ShimFunc // parallel to imports; nil entries are "not implemented"

	dynStubBase   uint32
	dynNames      []string // index -> symbol name, for missing-function logging
	dynFunctions  []ShimFunc
	missingNames  map[string]bool
}

// NewDispatcher builds a Dispatcher over img's imports. Host functions
// are attached afterward via Bind; any import left unbound dispatches as
// ShimNotImplemented (§7).
func NewDispatcher(cpu CPU, st *EmuState, img *LinkedImage) *Dispatcher {
	return &Dispatcher{
		cpu:          cpu,
		st:           st,
		mem:          NewMemory(cpu),
		imports:      img.Imports,
		importFuncs:  make([]ShimFunc, len(img.Imports)),
		missingNames: make(map[string]bool),
	}
}

// Bind attaches fn as the host implementation of every imported symbol
// named name (imports are addressed by name since the PEF loader doesn't
// guarantee a stable index across files).
func (d *Dispatcher) Bind(name string, fn ShimFunc) {
	for i, sym := range d.imports {
		if sym.Name == name {
			d.importFuncs[i] = fn
		}
	}
}

// RegisterDynStubs installs a dyn_stubs table at base: one dynStubSize
// cell per name in names, tagged dyn if resolved is non-nil for that
// index or missing otherwise (§4.I's GetSharedLibrary+FindSymbol
// indirection). Returns the per-name stub address map.
func (d *Dispatcher) RegisterDynStubs(scThunkAddr, base uint32, names []string, resolve func(name string) ShimFunc) map[string]uint32 {
	d.dynStubBase = base
	addrs := make(map[string]uint32, len(names))
	for i, name := range names {
		addr := base + uint32(i)*dynStubSize
		addrs[name] = addr
		fn := resolve(name)
		tag := uint32(stubTagDyn)
		if fn == nil {
			tag = stubTagMissingDyn
			d.missingNames[name] = true
		}
		d.mem.WriteU32(addr, scThunkAddr)
		d.mem.WriteU32(addr+4, uint32(i))
		d.mem.WriteU32(addr+8, tag)

		d.dynNames = append(d.dynNames, name)
		d.dynFunctions = append(d.dynFunctions, fn)
	}
	return addrs
}

// HandleInterrupt is installed as the CPU's InterruptHook: it reads R12
// (the TVector address the trap was reached through), R2 (resolved index:
// either a static import index or a dyn/missing stub index), and the
// code word at TVector+8, then dispatches to the corresponding host
// function (§4.I). A trap reached through import R2's own TVect cell
// dispatches as a static import without reading that word.
func (d *Dispatcher) HandleInterrupt(cpu CPU) {
	tvector := cpu.GPR(12)
	index := cpu.GPR(2)
	code := d.mem.ReadU32(tvector + 8)
	if int(index) < len(d.imports) && d.imports[index].ShimAddr == tvector {
		// Static TVect cells are 8 bytes and hold no tag word of their own.
		code = stubTagStaticImport
	}

	args := NewArgReader(d.mem, cpu)
	pcBefore := cpu.PC()

	var result uint32
	switch code {
	case stubTagStaticImport:
		if int(index) < len(d.importFuncs) && d.importFuncs[index] != nil {
			result = d.importFuncs[index](cpu, d.st, args)
		} else {
			name := "?"
			if int(index) < len(d.imports) {
				name = d.imports[index].Name
			}
			d.st.Log.Warnw("shim not implemented", "symbol", name)
		}
	case stubTagDyn:
		if int(index) < len(d.dynFunctions) && d.dynFunctions[index] != nil {
			result = d.dynFunctions[index](cpu, d.st, args)
		} else {
			d.st.Log.Warnw("dyn shim not implemented", "index", index)
		}
	case stubTagMissingDyn:
		name := "?"
		if int(index) < len(d.dynNames) {
			name = d.dynNames[index]
		}
		d.st.Log.Warnw("dynamically resolved symbol missing", "symbol", name)
	default:
		d.st.Log.Warnw("unknown shim dispatch code", "code", code)
	}

	// A shim that redirects control (longjmp) sets PC itself; leave it
	// alone. Otherwise advance past the sc instruction that trapped here.
	if cpu.PC() == pcBefore {
		cpu.SetPC(pcBefore + 4)
	}
	cpu.SetGPR(3, result)

	if d.st.ExitRequested {
		cpu.Stop()
	}
}

// ArgReader threads a current-GPR index across successive argument reads,
// per the PPC EABI convention (R3..R10 carry the first eight primitive
// arguments; §4.I). A pluggable backing source lets printf-family shims
// switch to a guest-memory va_list mid-call.
type ArgReader struct {
	mem    Memory
	cpu    CPU
	gpr    int // next GPR to read, starting at 3
	vaAddr uint32
	useVA  bool
}

// NewArgReader returns an ArgReader that reads cpu's GPRs starting at R3,
// the first argument register.
func NewArgReader(mem Memory, cpu CPU) *ArgReader {
	return &ArgReader{mem: mem, cpu: cpu, gpr: 3}
}

// UseVarArgs switches subsequent reads to a guest-memory va_list starting
// at addr, for printf-family shims whose remaining arguments were passed
// as a pointer rather than successive registers.
func (a *ArgReader) UseVarArgs(addr uint32) {
	a.useVA = true
	a.vaAddr = addr
}

func (a *ArgReader) nextWord() uint32 {
	if a.useVA {
		v := a.mem.ReadU32(a.vaAddr)
		a.vaAddr += 4
		return v
	}
	v := a.cpu.GPR(a.gpr)
	a.gpr++
	return v
}

// U32/I32 read the next primitive argument.
func (a *ArgReader) U32() uint32 { return a.nextWord() }
func (a *ArgReader) I32() int32  { return int32(a.nextWord()) }

// Ptr reads the next argument as a raw guest pointer.
func (a *ArgReader) Ptr() uint32 { return a.nextWord() }

// CString reads the next argument as a pointer to a NUL-terminated
// string and dereferences it lazily.
func (a *ArgReader) CString() string {
	p := a.nextWord()
	if p == 0 {
		return ""
	}
	return a.mem.ReadCString(p)
}

// PascalString reads the next argument as a pointer to a Pascal string
// and dereferences it lazily.
func (a *ArgReader) PascalString() string {
	p := a.nextWord()
	if p == 0 {
		return ""
	}
	return a.mem.ReadPascalString(p)
}
