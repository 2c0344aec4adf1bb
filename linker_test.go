package main

import (
	"testing"

	"go.uber.org/zap"
)

func TestRelocVMImportRun(t *testing.T) {
	img := &LinkedImage{
		Mem:  make([]byte, 64),
		Base: 0,
		Imports: []ImportedSymbol{
			{Name: "FirstImport", ShimAddr: 0x9000},
			{Name: "SecondImport", ShimAddr: 0x9008},
		},
	}

	// ImportRun, n=2: 0x4A00 | (n-1)
	instrs := []byte{0x4A, 0x01}

	vm := &relocVM{
		linker:   &Linker{log: zap.NewNop().Sugar()},
		img:      img,
		instrs:   instrs,
		pos:      0x20,
		dataAddr: 0x20,
	}
	if err := vm.run(2); err != nil {
		t.Fatalf("run: %v", err)
	}

	got0 := beUint32(img.Mem[0x20:0x24])
	got1 := beUint32(img.Mem[0x24:0x28])
	if got0 != 0x9000 {
		t.Fatalf("first import shim addr = %#x, want 0x9000", got0)
	}
	if got1 != 0x9008 {
		t.Fatalf("second import shim addr = %#x, want 0x9008", got1)
	}
	if vm.impIdx != 2 {
		t.Fatalf("impIdx after ImportRun = %d, want 2", vm.impIdx)
	}
}

func TestRelocVMBySectDPatchesAdditively(t *testing.T) {
	img := &LinkedImage{Mem: make([]byte, 64), Base: 0}
	putBeUint32(img.Mem[0x10:0x14], 5) // existing relative offset baked in by the compiler

	// BySectD, n=1: 0x4200 | (n-1)
	instrs := []byte{0x42, 0x00}

	vm := &relocVM{
		linker:   &Linker{log: zap.NewNop().Sugar()},
		img:      img,
		instrs:   instrs,
		pos:      0x10,
		dataAddr: 0x1000,
	}
	if err := vm.run(1); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := beUint32(img.Mem[0x10:0x14])
	if got != 0x1005 {
		t.Fatalf("patched word = %#x, want 0x1005 (base 0x1000 + existing 5)", got)
	}
}

func TestRelocVMBySectDWithSkipUsesEightBitSkip(t *testing.T) {
	img := &LinkedImage{Mem: make([]byte, 64), Base: 0}

	// BySectDWithSkip: top 2 bits 00, skip in bits 13-6 (8 bits), n in
	// bits 5-0. skip=1, n=1 -> 0x00 | (1<<6) | 1 = 0x0041.
	instrs := []byte{0x00, 0x41}

	vm := &relocVM{
		linker:   &Linker{log: zap.NewNop().Sugar()},
		img:      img,
		instrs:   instrs,
		pos:      0,
		dataAddr: 0x2000,
	}
	if err := vm.run(1); err != nil {
		t.Fatalf("run: %v", err)
	}
	// skip=1 advances past one 4-byte word (to offset 4) before patching.
	got := beUint32(img.Mem[4:8])
	if got != 0x2000 {
		t.Fatalf("patched word at skip offset = %#x, want 0x2000", got)
	}
	if untouched := beUint32(img.Mem[0:4]); untouched != 0 {
		t.Fatalf("word before the skip was unexpectedly patched: %#x", untouched)
	}
}

func TestRelocVMSmRepeatReadsOnlyOneWord(t *testing.T) {
	img := &LinkedImage{Mem: make([]byte, 64), Base: 0}

	// BySectD, n=1 (patches one word, advancing pos by 4), followed by
	// SmRepeat with blocks=1, count=2 packed into a single word:
	// 0x9000 | (blocks-1)<<8 | (count-1) = 0x9000 | 0x00 | 0x01 = 0x9001.
	instrs := []byte{0x42, 0x00, 0x90, 0x01}

	vm := &relocVM{
		linker:   &Linker{log: zap.NewNop().Sugar()},
		img:      img,
		instrs:   instrs,
		pos:      0x10,
		dataAddr: 0x1000,
	}
	if err := vm.run(3); err != nil {
		t.Fatalf("run: %v", err)
	}
	if vm.off != len(instrs) {
		t.Fatalf("offset after SmRepeat = %d, want %d (no phantom operand word consumed)", vm.off, len(instrs))
	}
	for i, want := range []uint32{0x1000, 0x1000, 0x1000} {
		addr := 0x10 + 4*i
		if got := beUint32(img.Mem[addr : addr+4]); got != want {
			t.Fatalf("word at %#x = %#x, want %#x (initial BySectD plus two SmRepeat replays)", addr, got, want)
		}
	}
}

func TestRelocVMLgRepeatSkipsWithoutCrashing(t *testing.T) {
	img := &LinkedImage{Mem: make([]byte, 16), Base: 0}
	// LgRepeat opcode 0xB000 plus one operand word; must be consumed and
	// skipped rather than implemented (unresolved Open Question).
	instrs := []byte{0xB0, 0x00, 0x00, 0x05}

	vm := &relocVM{
		linker:   &Linker{log: zap.NewNop().Sugar()},
		img:      img,
		instrs:   instrs,
		dataAddr: 0,
	}
	if err := vm.run(1); err != nil {
		t.Fatalf("run: %v", err)
	}
	if vm.off != len(instrs) {
		t.Fatalf("offset after LgRepeat = %d, want %d (both words consumed)", vm.off, len(instrs))
	}
}

func TestLinkProducesRunnableImage(t *testing.T) {
	raw := buildTestPEF(t)
	container, err := ParsePEF(raw)
	if err != nil {
		t.Fatalf("ParsePEF: %v", err)
	}

	cfg := DefaultConfig()
	linker := NewLinker(cfg, zap.NewNop().Sugar())
	img, err := linker.Link(container)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if img.MainAddr != img.CodeAddr {
		t.Fatalf("MainAddr = %#x, want CodeAddr %#x (entry at section 0 offset 0)", img.MainAddr, img.CodeAddr)
	}
	if img.HasInit || img.HasTerm {
		t.Fatalf("expected no init/term entry points in this minimal container")
	}
}
