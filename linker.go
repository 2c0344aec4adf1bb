package main

import (
	"fmt"

	"go.uber.org/zap"
)

// Linker lays out a parsed PEF container into a guest memory image, plants
// the shim cells each import dispatches through, and runs the relocation
// opcode VM over the data section (§4.F). The opcode-interpreter shape
// here follows davejbax-pixie's ELF relocation engine
// (internal/grub/reloc.go): a small state struct walked instruction by
// instruction, dispatching on masked/matched bit patterns rather than one
// giant switch on raw values.
type Linker struct {
	cfg Config
	log *zap.SugaredLogger
}

// NewLinker returns a Linker using cfg's memory layout.
func NewLinker(cfg Config, log *zap.SugaredLogger) *Linker {
	return &Linker{cfg: cfg, log: log}
}

// shim cell sizes (§3).
const (
	scThunkSize   = 12
	tvectCellSize = 8
	dataCellSize  = 1024
)

// scThunkBytes are the fixed PPC instructions for the one-time syscall
// trampoline planted in every image: `sc` followed by `blr`, padded to
// 12 bytes. The actual encoding only matters to the external CPU
// collaborator; what this emulator cares about is that every shim's
// TVect cell points here.
var scThunkBytes = [scThunkSize]byte{
	0x44, 0x00, 0x00, 0x02, // sc
	0x4E, 0x80, 0x00, 0x20, // blr
	0x60, 0x00, 0x00, 0x00, // nop (padding to 12 bytes)
}

// LinkedImage is the fully laid-out, relocated guest memory image plus
// everything the shim fabric and CPU need to start execution (§3, §4.F,
// §4.I).
type LinkedImage struct {
	Mem  []byte
	Base uint32

	CodeAddr  uint32
	DataAddr  uint32
	StackAddr uint32 // top of stack, used as initial SP
	HeapAddr  uint32

	ScThunkAddr uint32

	Imports []ImportedSymbol // ShimAddr now populated

	MainAddr uint32
	InitAddr uint32
	TermAddr uint32
	HasInit  bool
	HasTerm  bool
}

func align(n, to uint32) uint32 {
	return (n + to - 1) &^ (to - 1)
}

// Link lays out container per §4.F: code (16-byte aligned), data
// (pattern-unpacked in place, 16-byte aligned), a 1 MiB stack, one
// sc_thunk, then one shim cell per imported symbol (8 bytes TVect, 1024
// bytes Data), and finally runs the relocation VM over the data section.
func (l *Linker) Link(c *PEFContainer) (*LinkedImage, error) {
	if c.Loader == nil {
		return nil, fmt.Errorf("%w: PEF container has no loader section", ErrLinkerMalformed)
	}
	codeSec, ok := c.CodeSection()
	if !ok {
		return nil, fmt.Errorf("%w: PEF container has no code section", ErrLinkerMalformed)
	}
	dataSec, ok := c.DataSection()
	if !ok {
		return nil, fmt.Errorf("%w: PEF container has no data section", ErrLinkerMalformed)
	}

	var unpackedData []byte
	var err error
	if dataSec.Header.Kind == sectionKindPatternInitData {
		unpackedData, err = UnpackPattern(dataSec.Data, dataSec.Header.UnpackedSize)
		if err != nil {
			return nil, fmt.Errorf("unpacking data section: %w", err)
		}
	} else {
		unpackedData = append([]byte(nil), dataSec.Data...)
	}
	if uint32(len(unpackedData)) < dataSec.Header.TotalSize {
		unpackedData = append(unpackedData, make([]byte, dataSec.Header.TotalSize-uint32(len(unpackedData)))...)
	}

	codeSize := align(codeSec.Header.TotalSize, 16)
	dataSize := align(uint32(len(unpackedData)), 16)

	img := &LinkedImage{Base: l.cfg.ImageBase}
	img.CodeAddr = img.Base
	img.DataAddr = img.CodeAddr + codeSize
	img.StackAddr = img.DataAddr + dataSize + l.cfg.StackSize // top of stack
	img.ScThunkAddr = img.DataAddr + dataSize + l.cfg.StackSize

	imports := append([]ImportedSymbol(nil), c.Loader.Symbols...)
	shimBase := img.ScThunkAddr + scThunkSize
	addr := shimBase
	for i := range imports {
		imports[i].ShimAddr = addr
		if imports[i].Class == symClassData {
			addr += dataCellSize
		} else {
			addr += tvectCellSize
		}
	}
	imageSize := addr - img.Base

	img.Mem = make([]byte, imageSize)
	copy(img.Mem[img.CodeAddr-img.Base:], codeSec.Data)
	copy(img.Mem[img.DataAddr-img.Base:], unpackedData)
	copy(img.Mem[img.ScThunkAddr-img.Base:], scThunkBytes[:])

	for i, sym := range imports {
		off := sym.ShimAddr - img.Base
		if sym.Class == symClassData {
			continue // reserved buffer, left zeroed (§3)
		}
		// TVect cell: (sc_thunk_address, import_index).
		putBeUint32(img.Mem[off:off+4], img.ScThunkAddr)
		putBeUint32(img.Mem[off+4:off+8], uint32(i))
	}

	img.Imports = imports

	if err := l.relocate(img, c.Loader, dataSize); err != nil {
		return nil, err
	}

	img.MainAddr, err = l.resolveEntry(img, codeSize, c.Loader.Main)
	if err != nil {
		return nil, fmt.Errorf("main entry point: %w", err)
	}
	if addr, ok := l.tryResolveEntry(img, codeSize, c.Loader.Init); ok {
		img.InitAddr, img.HasInit = addr, true
	}
	if addr, ok := l.tryResolveEntry(img, codeSize, c.Loader.Term); ok {
		img.TermAddr, img.HasTerm = addr, true
	}

	return img, nil
}

func (l *Linker) resolveEntry(img *LinkedImage, codeSize uint32, ep LoaderEntryPoint) (uint32, error) {
	addr, ok := l.tryResolveEntry(img, codeSize, ep)
	if !ok {
		return 0, fmt.Errorf("%w: entry point references unmapped section %d", ErrLinkerMalformed, ep.SectionIndex)
	}
	return addr, nil
}

func (l *Linker) tryResolveEntry(img *LinkedImage, codeSize uint32, ep LoaderEntryPoint) (uint32, bool) {
	switch ep.SectionIndex {
	case 0:
		return img.CodeAddr + ep.Offset, true
	case 1:
		return img.DataAddr + ep.Offset, true
	case -1:
		return 0, false
	default:
		return 0, false
	}
}

// relocate runs the relocation opcode VM (§4.F) over every RelocHeader in
// loader whose SectionIndex targets the data section.
func (l *Linker) relocate(img *LinkedImage, loader *LoaderSection, dataSize uint32) error {
	for _, rh := range loader.Relocs {
		if rh.SectionIndex != 1 {
			l.log.Warnw("relocation header for a non-data section skipped", "section", rh.SectionIndex)
			continue
		}
		start := int(rh.FirstRelocOff) * 2 // word offsets, 2 bytes each
		if start > len(loader.RelocData) {
			l.log.Warnw("relocation header offset out of range", "offset", start)
			continue
		}
		end := len(loader.RelocData)
		vm := &relocVM{
			linker:   l,
			img:      img,
			instrs:   loader.RelocData[start:end],
			pos:      img.DataAddr,
			dataAddr: img.DataAddr,
			codeAddr: img.CodeAddr,
		}
		if err := vm.run(int(rh.RelocCount)); err != nil {
			return err
		}
	}
	return nil
}

// relocVM interprets the 16-bit relocation opcode stream. State mirrors
// §4.F exactly: reloc_address (here `pos`), import_index, and an optional
// repeat_state for SmRepeat/LgRepeat re-execution.
type relocVM struct {
	linker   *Linker
	img      *LinkedImage
	instrs   []byte
	off      int // byte offset into instrs
	pos      uint32
	dataAddr uint32
	codeAddr uint32
	impIdx   uint32

	history []func() error // executed opcodes, for SmRepeat/LgRepeat
}

func (vm *relocVM) word() (uint16, bool) {
	if vm.off+2 > len(vm.instrs) {
		return 0, false
	}
	w := beUint16(vm.instrs[vm.off : vm.off+2])
	vm.off += 2
	return w, true
}

func (vm *relocVM) patchAdd(addr uint32, base uint32) {
	off := addr - vm.img.Base
	cur := beUint32(vm.img.Mem[off : off+4])
	putBeUint32(vm.img.Mem[off:off+4], cur+base)
}

func (vm *relocVM) writeShim(addr uint32, idx uint32) error {
	if int(idx) >= len(vm.img.Imports) {
		return fmt.Errorf("%w: relocation references import %d of %d", ErrLinkerMalformed, idx, len(vm.img.Imports))
	}
	off := addr - vm.img.Base
	putBeUint32(vm.img.Mem[off:off+4], vm.img.Imports[idx].ShimAddr)
	return nil
}

// run executes exactly count logical relocation opcodes (per the loader's
// RelocHeader.RelocCount), recording each in vm.history so SmRepeat/
// LgRepeat can re-execute a preceding span.
func (vm *relocVM) run(count int) error {
	for executed := 0; executed < count && vm.off < len(vm.instrs); {
		n, err := vm.step()
		if err != nil {
			return err
		}
		executed += n
	}
	return nil
}

// step decodes and executes one opcode, returning how many "logical"
// relocations it counted as (most opcodes count as the number of words
// they patch; SmRepeat counts as its expansion; LgRepeat, which is
// skipped, counts as 0).
func (vm *relocVM) step() (int, error) {
	startOff := vm.off
	w, ok := vm.word()
	if !ok {
		return 0, nil
	}

	switch {
	case w&0xC000 == 0x0000: // BySectDWithSkip
		skip := (w >> 6) & 0xFF
		n := int(w & 0x3F)
		vm.pos += 4 * uint32(skip)
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.dataAddr)
			vm.pos += 4
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4000: // BySectC
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.codeAddr)
			vm.pos += 4
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4200: // BySectD
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.dataAddr)
			vm.pos += 4
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4400: // TVector12
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.codeAddr)
			vm.patchAdd(vm.pos+4, vm.dataAddr)
			vm.pos += 12
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4600: // TVector8
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.codeAddr)
			vm.patchAdd(vm.pos+4, vm.dataAddr)
			vm.pos += 8
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4800: // VTable8
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			vm.patchAdd(vm.pos, vm.dataAddr)
			vm.pos += 8
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x4A00: // ImportRun
		n := int(w&0x1FF) + 1
		for i := 0; i < n; i++ {
			if err := vm.writeShim(vm.pos, vm.impIdx); err != nil {
				return 0, err
			}
			vm.impIdx++
			vm.pos += 4
		}
		vm.record(startOff, vm.off)
		return n, nil

	case w&0xFE00 == 0x6000: // SmByImport
		idx := uint32(w & 0x1FF)
		if err := vm.writeShim(vm.pos, idx); err != nil {
			return 0, err
		}
		vm.pos += 4
		vm.impIdx = idx + 1
		vm.record(startOff, vm.off)
		return 1, nil

	case w&0xF000 == 0x8000: // IncrPosition
		x := uint32(w & 0x0FFF)
		vm.pos += x + 1
		vm.record(startOff, vm.off)
		return 0, nil

	case w&0xF000 == 0x9000: // SmRepeat
		blocks := int((w>>8)&0x0F) + 1
		count := int(w&0xFF) + 1
		n, err := vm.repeatPrevious(blocks, count)
		if err != nil {
			return 0, err
		}
		return n, nil

	case w&0xFC00 == 0xA000: // SetPosition
		x := uint32(w & 0x03FF)
		w2, ok := vm.word()
		if !ok {
			return 0, fmt.Errorf("%w: truncated SetPosition operand", ErrLinkerMalformed)
		}
		vm.pos = vm.dataAddr + (x<<16 | uint32(w2))
		vm.record(startOff, vm.off)
		return 0, nil

	case w&0xFC00 == 0xA400: // LgByImport
		x := uint32(w & 0x03FF)
		w2, ok := vm.word()
		if !ok {
			return 0, fmt.Errorf("%w: truncated LgByImport operand", ErrLinkerMalformed)
		}
		idx := x<<16 | uint32(w2)
		if err := vm.writeShim(vm.pos, idx); err != nil {
			return 0, err
		}
		vm.pos += 4
		vm.impIdx = idx + 1
		vm.record(startOff, vm.off)
		return 1, nil

	case w&0xFC00 == 0xB000: // LgRepeat
		// Recognised but not implemented: no concrete test input in this
		// repository exercises it, so per policy it is logged and
		// skipped rather than guessed at. Still consume its operand word
		// so position tracking in the rest of the stream stays correct.
		if _, ok := vm.word(); !ok {
			return 0, fmt.Errorf("%w: truncated LgRepeat operand", ErrLinkerMalformed)
		}
		vm.linker.log.Warnw("LgRepeat relocation opcode not implemented, skipping", "word", w)
		return 0, nil

	default:
		// Unrecognised opcode families (SmSetSectC/D, SmBySection,
		// LgBySection, LgSetSectC/D) are logged and structurally skipped
		// as a single word; the relocator must not crash on them (§4.F).
		vm.linker.log.Warnw("unknown relocation opcode", "word", w)
		return 0, nil
	}
}

// record appends the opcode spanning instrs[start:end] to history so a
// later SmRepeat/LgRepeat can re-execute it.
func (vm *relocVM) record(start, end int) {
	instr := append([]byte(nil), vm.instrs[start:end]...)
	vm.history = append(vm.history, func() error {
		sub := &relocVM{
			linker:   vm.linker,
			img:      vm.img,
			instrs:   instr,
			pos:      vm.pos,
			dataAddr: vm.dataAddr,
			codeAddr: vm.codeAddr,
			impIdx:   vm.impIdx,
		}
		if _, err := sub.step(); err != nil {
			return err
		}
		vm.pos = sub.pos
		vm.impIdx = sub.impIdx
		return nil
	})
}

// repeatPrevious re-executes the last `blocks` recorded opcodes, `count`
// times total (§4.F SmRepeat/LgRepeat).
func (vm *relocVM) repeatPrevious(blocks, count int) (int, error) {
	if blocks > len(vm.history) {
		return 0, fmt.Errorf("%w: repeat references %d opcodes, only %d recorded", ErrLinkerMalformed, blocks, len(vm.history))
	}
	start := len(vm.history) - blocks
	span := append([]func() error(nil), vm.history[start:]...)
	executed := 0
	for i := 0; i < count; i++ {
		for _, fn := range span {
			if err := fn(); err != nil {
				return 0, err
			}
			executed++
		}
	}
	return executed, nil
}

// SetupStack writes the guest argv/argc and environment strings onto the
// top of the stack region and returns the initial stack pointer, matching
// the classic main(argc, argv) guest entry convention.
func SetupStack(img *LinkedImage, mem Memory, args []string, env []string) uint32 {
	sp := img.StackAddr

	writeStrings := func(strs []string) []uint32 {
		addrs := make([]uint32, len(strs))
		for i, s := range strs {
			n := uint32(len(s)) + 1
			sp -= n
			sp = sp &^ 3
			mem.WriteCString(sp, s)
			addrs[i] = sp
		}
		return addrs
	}

	envAddrs := writeStrings(env)
	argAddrs := writeStrings(args)

	sp &^= 0xF // 16-byte align the pointer arrays that follow

	sp -= 4
	mem.WriteU32(sp, 0) // envp NULL terminator
	for i := len(envAddrs) - 1; i >= 0; i-- {
		sp -= 4
		mem.WriteU32(sp, envAddrs[i])
	}
	envp := sp

	sp -= 4
	mem.WriteU32(sp, 0) // argv NULL terminator
	for i := len(argAddrs) - 1; i >= 0; i-- {
		sp -= 4
		mem.WriteU32(sp, argAddrs[i])
	}
	argv := sp

	sp -= 4
	mem.WriteU32(sp, envp)
	sp -= 4
	mem.WriteU32(sp, argv)
	sp -= 4
	mem.WriteU32(sp, uint32(len(args)))

	return sp
}
