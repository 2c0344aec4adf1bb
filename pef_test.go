package main

import "testing"

// buildTestPEF assembles a minimal but structurally valid PEF container:
// a code section, an unpacked data section, and a loader section with no
// imports and a main entry point at the start of the code section.
func buildTestPEF(t *testing.T) []byte {
	t.Helper()

	codeData := []byte{0x60, 0x00, 0x00, 0x00, 0x4E, 0x80, 0x00, 0x20}
	dataData := []byte{0x01, 0x02, 0x03, 0x04}

	loader := NewByteWriter()
	loader.U32(uint32(int32(0))) // mainSection = 0 (code)
	loader.U32(0)                // mainOffset
	loader.U32(0xFFFFFFFF) // initSection = -1 (none)
	loader.U32(0)
	loader.U32(0xFFFFFFFF) // termSection = -1 (none)
	loader.U32(0)
	loader.U32(0)  // libCount
	loader.U32(0)  // symCount
	loader.U32(0)  // relocHdrCount
	loader.U32(56) // relocInstrOff: right past the 56-byte fixed header
	loader.U32(56) // strTableOff: empty string table right after
	loader.U32(0)  // exportHashOffset, unused
	loader.U32(0)  // exportHashTablePower, unused
	loader.U32(0)  // exportedSymbolCount, unused

	const headerSize = pefHeaderSize
	const sectionHeaderSize = pefSectionHeaderSize
	const numSections = 3
	sectionTableEnd := headerSize + numSections*sectionHeaderSize

	codeOff := sectionTableEnd
	dataOff := codeOff + len(codeData)
	loaderOff := dataOff + len(dataData)

	w := NewByteWriter()
	w.Raw(pefMagic[:])
	w.Raw(pefContainerTag[:])
	w.FourCC(pefArchPPC)
	w.U32(1) // FormatVer
	w.U32(0) // DateTime
	w.U32(0) // OldDefVer
	w.U32(0) // OldImpVer
	w.U32(0) // CurVer
	w.U16(numSections)
	w.U16(numSections)
	w.U32(0) // Reserved

	writeSectionHeader := func(kind uint8, off, size int) {
		w.U32(0xFFFFFFFF) // NameOffset: unnamed
		w.U32(0)                 // DefaultAddr
		w.U32(uint32(size))      // TotalSize
		w.U32(uint32(size))      // UnpackedSize
		w.U32(uint32(size))      // PackedSize
		w.U32(uint32(off))       // ContainerOff
		w.U8(kind)
		w.U8(0) // ShareKind
		w.U8(4) // Alignment
		w.U8(0) // Reserved
	}
	writeSectionHeader(sectionKindCode, codeOff, len(codeData))
	writeSectionHeader(sectionKindUnpackedData, dataOff, len(dataData))
	writeSectionHeader(sectionKindLoader, loaderOff, loader.Len())

	w.Raw(codeData)
	w.Raw(dataData)
	w.Raw(loader.Bytes())

	return w.Bytes()
}

func TestParsePEFRoundTrip(t *testing.T) {
	raw := buildTestPEF(t)
	c, err := ParsePEF(raw)
	if err != nil {
		t.Fatalf("ParsePEF: %v", err)
	}
	if len(c.Sections) != 3 {
		t.Fatalf("Sections = %d, want 3", len(c.Sections))
	}
	code, ok := c.CodeSection()
	if !ok {
		t.Fatalf("CodeSection missing")
	}
	if len(code.Data) != 8 {
		t.Fatalf("code section length = %d, want 8", len(code.Data))
	}
	data, ok := c.DataSection()
	if !ok {
		t.Fatalf("DataSection missing")
	}
	if len(data.Data) != 4 {
		t.Fatalf("data section length = %d, want 4", len(data.Data))
	}
	if c.Loader == nil {
		t.Fatalf("Loader section not parsed")
	}
	if c.Loader.Main.SectionIndex != 0 || c.Loader.Main.Offset != 0 {
		t.Fatalf("Main entry = %+v, want section 0 offset 0", c.Loader.Main)
	}
	if len(c.Loader.Symbols) != 0 || len(c.Loader.Libraries) != 0 {
		t.Fatalf("expected no imports in this minimal container")
	}
}

func TestParsePEFRejectsBadMagic(t *testing.T) {
	raw := buildTestPEF(t)
	raw[0] = 'X'
	if _, err := ParsePEF(raw); err == nil {
		t.Fatalf("expected error for corrupted magic")
	}
}

// buildTestPEFWithImport is like buildTestPEF but carries one imported
// library and one imported symbol, so a wrong loaderHeaderSize (which
// would misalign every read that follows the fixed header) shows up as a
// garbled name or class rather than passing by having nothing to read.
func buildTestPEFWithImport(t *testing.T) []byte {
	t.Helper()

	codeData := []byte{0x60, 0x00, 0x00, 0x00, 0x4E, 0x80, 0x00, 0x20}
	dataData := []byte{0x01, 0x02, 0x03, 0x04}

	const libNameOff = 0
	const symNameOff = 13 // len("InterfaceLib\x00")

	strTable := append([]byte("InterfaceLib\x00"), []byte("DoSomething\x00")...)

	const headerSize = 56
	const libRecordSize = 24
	const symRecordSize = 4
	libStart := headerSize
	symStart := libStart + libRecordSize
	relocStart := symStart + symRecordSize
	strTableOff := relocStart

	loader := NewByteWriter()
	loader.U32(uint32(int32(0)))  // mainSection = 0 (code)
	loader.U32(0)                 // mainOffset
	loader.U32(0xFFFFFFFF) // initSection = -1 (none)
	loader.U32(0)
	loader.U32(0xFFFFFFFF) // termSection = -1 (none)
	loader.U32(0)
	loader.U32(1)                  // libCount
	loader.U32(1)                  // symCount
	loader.U32(0)                  // relocHdrCount
	loader.U32(uint32(relocStart)) // relocInstrOff
	loader.U32(uint32(strTableOff)) // strTableOff
	loader.U32(0) // exportHashOffset, unused
	loader.U32(0) // exportHashTablePower, unused
	loader.U32(0) // exportedSymbolCount, unused

	loader.U32(libNameOff) // name_offset
	loader.U32(0)          // old_imp_version
	loader.U32(0)          // current_version
	loader.U32(1)          // imported_symbol_count
	loader.U32(0)          // first_imported_symbol
	loader.U8(0)           // options
	loader.U8(0)           // reserved_a
	loader.U16(0)          // reserved_b

	symWord := uint32(symClassCode)<<24 | (symNameOff & 0x00FFFFFF)
	loader.U32(symWord)

	loader.Raw(strTable)

	const sectionHeaderSize = pefSectionHeaderSize
	const numSections = 3
	sectionTableEnd := pefHeaderSize + numSections*sectionHeaderSize

	codeOff := sectionTableEnd
	dataOff := codeOff + len(codeData)
	loaderOff := dataOff + len(dataData)

	w := NewByteWriter()
	w.Raw(pefMagic[:])
	w.Raw(pefContainerTag[:])
	w.FourCC(pefArchPPC)
	w.U32(1) // FormatVer
	w.U32(0) // DateTime
	w.U32(0) // OldDefVer
	w.U32(0) // OldImpVer
	w.U32(0) // CurVer
	w.U16(numSections)
	w.U16(numSections)
	w.U32(0) // Reserved

	writeSectionHeader := func(kind uint8, off, size int) {
		w.U32(0xFFFFFFFF) // NameOffset: unnamed
		w.U32(0)                 // DefaultAddr
		w.U32(uint32(size))      // TotalSize
		w.U32(uint32(size))      // UnpackedSize
		w.U32(uint32(size))      // PackedSize
		w.U32(uint32(off))       // ContainerOff
		w.U8(kind)
		w.U8(0) // ShareKind
		w.U8(4) // Alignment
		w.U8(0) // Reserved
	}
	writeSectionHeader(sectionKindCode, codeOff, len(codeData))
	writeSectionHeader(sectionKindUnpackedData, dataOff, len(dataData))
	writeSectionHeader(sectionKindLoader, loaderOff, loader.Len())

	w.Raw(codeData)
	w.Raw(dataData)
	w.Raw(loader.Bytes())

	return w.Bytes()
}

func TestParsePEFParsesImportedLibraryAndSymbol(t *testing.T) {
	raw := buildTestPEFWithImport(t)
	c, err := ParsePEF(raw)
	if err != nil {
		t.Fatalf("ParsePEF: %v", err)
	}
	if len(c.Loader.Libraries) != 1 {
		t.Fatalf("Libraries = %d, want 1", len(c.Loader.Libraries))
	}
	if got, want := c.Loader.Libraries[0].Name, "InterfaceLib"; got != want {
		t.Fatalf("library name = %q, want %q", got, want)
	}
	if len(c.Loader.Symbols) != 1 {
		t.Fatalf("Symbols = %d, want 1", len(c.Loader.Symbols))
	}
	sym := c.Loader.Symbols[0]
	if sym.Name != "DoSomething" {
		t.Fatalf("symbol name = %q, want %q", sym.Name, "DoSomething")
	}
	if sym.Class != symClassCode {
		t.Fatalf("symbol class = %d, want %d", sym.Class, symClassCode)
	}
	if sym.Weak {
		t.Fatalf("symbol unexpectedly marked weak")
	}
}
