package main

import "fmt"

var pefMagic = [4]byte{'J', 'o', 'y', '!'}
var pefContainerTag = [4]byte{'p', 'e', 'f', 'f'}
var pefArchPPC = FourCC(0x70777063) // "pwpc"

// Section kinds relevant to this emulator (§3, §4.E). Other kinds
// (constant, loader-relative packed data on CFM-68K targets, etc.) are
// out of scope per §1's Non-goals.
const (
	sectionKindCode            = 0
	sectionKindUnpackedData    = 1
	sectionKindPatternInitData = 2
	sectionKindConstant        = 3
	sectionKindLoader          = 4
)

// PEFHeader is the fixed-size container header.
type PEFHeader struct {
	Magic       [4]byte
	ContainerID [4]byte
	Architecture FourCC
	FormatVer   uint32
	DateTime    uint32
	OldDefVer   uint32
	OldImpVer   uint32
	CurVer      uint32
	SectionCnt  uint16
	InstSectCnt uint16
	Reserved    uint32
}

// PEFSectionHeader is one of the fixed-size section headers following the
// container header.
type PEFSectionHeader struct {
	NameOffset   int32
	DefaultAddr  uint32
	TotalSize    uint32
	UnpackedSize uint32
	PackedSize   uint32
	ContainerOff uint32
	Kind         uint8
	ShareKind    uint8
	Alignment    uint8
	Reserved     uint8
}

// PEFSection pairs a header with the raw bytes it refers to (still
// pattern-packed for PatternInitData sections) and its decoded name.
type PEFSection struct {
	Header PEFSectionHeader
	Name   string
	Data   []byte
}

// PEFContainer is a fully parsed PEF file: header, sections, and (when
// present) the decoded loader sub-block (§3, §4.E).
type PEFContainer struct {
	Header   PEFHeader
	Sections []PEFSection
	Loader   *LoaderSection
}

const pefHeaderSize = 40
const pefSectionHeaderSize = 28

// ParsePEF decodes raw per the §4.E container layout: header, then
// SectionCnt fixed-size section headers, each referring to a name in the
// name table and to its bytes at ContainerOff.
func ParsePEF(raw []byte) (*PEFContainer, error) {
	if len(raw) < pefHeaderSize {
		return nil, fmt.Errorf("%w: PEF file shorter than header", ErrLinkerMalformed)
	}
	r := NewByteReader(raw)
	var hdr PEFHeader
	copy(hdr.Magic[:], r.Bytes(4))
	copy(hdr.ContainerID[:], r.Bytes(4))
	hdr.Architecture = r.FourCC()
	hdr.FormatVer = r.U32()
	hdr.DateTime = r.U32()
	hdr.OldDefVer = r.U32()
	hdr.OldImpVer = r.U32()
	hdr.CurVer = r.U32()
	hdr.SectionCnt = r.U16()
	hdr.InstSectCnt = r.U16()
	hdr.Reserved = r.U32()

	if hdr.Magic != pefMagic || hdr.ContainerID != pefContainerTag {
		return nil, fmt.Errorf("%w: bad PEF magic", ErrLinkerMalformed)
	}
	if hdr.Architecture != pefArchPPC {
		return nil, fmt.Errorf("%w: unsupported PEF architecture %s", ErrLinkerMalformed, hdr.Architecture)
	}

	nameTableOff := pefHeaderSize + int(hdr.SectionCnt)*pefSectionHeaderSize

	c := &PEFContainer{Header: hdr}
	for i := 0; i < int(hdr.SectionCnt); i++ {
		var sh PEFSectionHeader
		sh.NameOffset = r.I32()
		sh.DefaultAddr = r.U32()
		sh.TotalSize = r.U32()
		sh.UnpackedSize = r.U32()
		sh.PackedSize = r.U32()
		sh.ContainerOff = r.U32()
		sh.Kind = r.U8()
		sh.ShareKind = r.U8()
		sh.Alignment = r.U8()
		sh.Reserved = r.U8()

		name := ""
		if sh.NameOffset >= 0 {
			off := nameTableOff + int(sh.NameOffset)
			if off < len(raw) {
				nr := NewByteReader(raw)
				nr.Seek(off)
				var nameBytes []byte
				for nr.Offset() < nr.Len() {
					b := nr.U8()
					if b == 0 {
						break
					}
					nameBytes = append(nameBytes, b)
				}
				name = string(nameBytes)
			}
		}

		dataLen := sh.PackedSize
		if sh.Kind == sectionKindUnpackedData || sh.Kind == sectionKindCode || sh.Kind == sectionKindLoader {
			dataLen = sh.TotalSize
		}
		end := uint64(sh.ContainerOff) + uint64(dataLen)
		if end > uint64(len(raw)) {
			return nil, fmt.Errorf("%w: section %q data out of range", ErrLinkerMalformed, name)
		}
		data := raw[sh.ContainerOff : uint32(sh.ContainerOff)+dataLen]

		c.Sections = append(c.Sections, PEFSection{Header: sh, Name: name, Data: data})
	}

	for i, s := range c.Sections {
		if s.Header.Kind == sectionKindLoader {
			ls, err := ParseLoaderSection(s.Data)
			if err != nil {
				return nil, fmt.Errorf("loader section %d: %w", i, err)
			}
			c.Loader = ls
			break
		}
	}

	return c, nil
}

// CodeSection returns section 0, the code section, by the convention
// §3 documents for these inputs (section-0 code, section-1 data,
// section-2 loader).
func (c *PEFContainer) CodeSection() (*PEFSection, bool) {
	if len(c.Sections) < 1 {
		return nil, false
	}
	return &c.Sections[0], true
}

// DataSection returns section 1, the data section (unpacked or
// pattern-initialized).
func (c *PEFContainer) DataSection() (*PEFSection, bool) {
	if len(c.Sections) < 2 {
		return nil, false
	}
	return &c.Sections[1], true
}

// --- Loader sub-block --------------------------------------------------

// LoaderEntryPoint is a (section_index, offset) pair identifying main,
// init, or term.
type LoaderEntryPoint struct {
	SectionIndex int32
	Offset       uint32
}

// ImportedLibrary is one entry of the loader's imported-library table.
type ImportedLibrary struct {
	Name              string
	OldImpVersion     uint32
	CurrentVersion    uint32
	ImportedSymbolCnt uint32
	FirstImportedSym  uint32
	Options           uint8
}

// Symbol classes for imported-symbol descriptors (§4.E top 4 bits).
const (
	symClassCode  = 0
	symClassData  = 1
	symClassTVect = 2
	symClassTOC   = 3
	symClassGlue  = 4
)

// ImportedSymbol is one decoded entry of the loader's imported-symbol
// array: class, weak-import flag, and name.
type ImportedSymbol struct {
	Class      uint8
	Weak       bool
	Name       string
	ShimAddr   uint32 // filled in by the linker once shim cells are laid out
}

// RelocHeader describes one relocation section: which section it applies
// data to, and the byte range of its 16-bit opcode stream.
type RelocHeader struct {
	SectionIndex  uint16
	RelocCount    uint32
	FirstRelocOff uint32
}

// LoaderSection is the fully decoded Loader sub-block (§3, §4.E).
type LoaderSection struct {
	Main LoaderEntryPoint
	Init LoaderEntryPoint
	Term LoaderEntryPoint

	Libraries []ImportedLibrary
	Symbols   []ImportedSymbol
	Relocs    []RelocHeader

	// RelocData is the raw relocation opcode stream area, indexed by
	// RelocHeader.FirstRelocOff*2 (offsets are in 16-bit words).
	RelocData []byte
}

// loaderHeaderSize is the byte size of the fixed fields read at the top
// of ParseLoaderSection: 14 big-endian 4-byte fields -- six entry-point
// fields, five count/offset fields, and the three export hash table
// fields this emulator never consults since it only ever runs a single
// entry point.
const loaderHeaderSize = 56

// ParseLoaderSection decodes the Loader section's sub-block per §4.E:
// main/init/term triples, imported-library records, the imported-symbol
// array, relocation headers, and (not otherwise modeled here) the export
// hash table, which this emulator does not need since it only runs a
// single entry point.
func ParseLoaderSection(raw []byte) (*LoaderSection, error) {
	if len(raw) < loaderHeaderSize {
		return nil, fmt.Errorf("%w: loader section shorter than header", ErrLinkerMalformed)
	}
	r := NewByteReader(raw)

	mainSection := r.I32()
	mainOffset := r.U32()
	initSection := r.I32()
	initOffset := r.U32()
	termSection := r.I32()
	termOffset := r.U32()

	libCount := r.U32()
	symCount := r.U32()
	relocHdrCount := r.U32()
	relocInstrOff := r.U32()
	strTableOff := r.U32()
	_ = r.U32() // export hash table offset, unused
	_ = r.U32() // export hash table power, unused
	_ = r.U32() // exported symbol count, unused

	ls := &LoaderSection{
		Main: LoaderEntryPoint{SectionIndex: mainSection, Offset: mainOffset},
		Init: LoaderEntryPoint{SectionIndex: initSection, Offset: initOffset},
		Term: LoaderEntryPoint{SectionIndex: termSection, Offset: termOffset},
	}

	readCString := func(off uint32) string {
		start := int(strTableOff) + int(off)
		if start >= len(raw) {
			return ""
		}
		sr := NewByteReader(raw)
		sr.Seek(start)
		var b []byte
		for sr.Offset() < sr.Len() {
			c := sr.U8()
			if c == 0 {
				break
			}
			b = append(b, c)
		}
		return string(b)
	}

	libReader := NewByteReader(raw)
	libReader.Seek(loaderHeaderSize)
	for i := uint32(0); i < libCount; i++ {
		nameOff := libReader.U32()
		oldImp := libReader.U32()
		curVer := libReader.U32()
		impCount := libReader.U32()
		firstImp := libReader.U32()
		opts := libReader.U8()
		libReader.Bytes(3) // reserved/padding

		ls.Libraries = append(ls.Libraries, ImportedLibrary{
			Name:              readCString(nameOff),
			OldImpVersion:     oldImp,
			CurrentVersion:    curVer,
			ImportedSymbolCnt: impCount,
			FirstImportedSym:  firstImp,
			Options:           opts,
		})
	}

	symStart := loaderHeaderSize + int(libCount)*24
	symReader := NewByteReader(raw)
	symReader.Seek(symStart)
	for i := uint32(0); i < symCount; i++ {
		word := symReader.U32()
		class := uint8((word >> 24) & 0x0F)
		weak := word&0x80000000 != 0
		nameOff := word & 0x00FFFFFF
		ls.Symbols = append(ls.Symbols, ImportedSymbol{
			Class: class,
			Weak:  weak,
			Name:  readCString(nameOff),
		})
	}

	relocStart := symStart + int(symCount)*4
	relocReader := NewByteReader(raw)
	relocReader.Seek(relocStart)
	for i := uint32(0); i < relocHdrCount; i++ {
		sectionIdx := relocReader.U16()
		relocReader.Bytes(2) // reserved
		count := relocReader.U32()
		firstOff := relocReader.U32()
		ls.Relocs = append(ls.Relocs, RelocHeader{
			SectionIndex:  sectionIdx,
			RelocCount:    count,
			FirstRelocOff: firstOff,
		})
	}

	if int(relocInstrOff) < len(raw) {
		ls.RelocData = raw[relocInstrOff:]
	}

	return ls, nil
}
