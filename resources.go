package main

import (
	"fmt"
	"sort"
)

// ResourceMap is the in-memory form of a classic Mac resource fork: an
// attributes word and, per type, an ordered-by-id list of resources
// (§3, §4.D). The map is a value derived from a MacFile's resource_fork
// bytes and is re-serialised on save; it holds no back-pointer to the
// file it came from (§9 "cycles" design note).
type ResourceMap struct {
	Attributes uint16
	Types      map[FourCC][]*Resource
}

// Resource is a single (type, id)-keyed blob within a resource fork.
type Resource struct {
	ID         int16
	Name       []byte // nil if unnamed
	Attributes uint8
	Data       []byte
}

// NewResourceMap returns the canonical empty map: zero attributes, no
// types. ParseResourceFork produces the equivalent from 286 bytes of
// on-disk canonical-empty bytes; this constructor is for building one
// from scratch in memory.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{Types: make(map[FourCC][]*Resource)}
}

// Add inserts a resource at its sorted position within its type bucket.
// Returns an error if (type, id) already exists.
func (m *ResourceMap) Add(typ FourCC, id int16, name []byte, data []byte) error {
	list := m.Types[typ]
	i := sort.Search(len(list), func(i int) bool { return list[i].ID >= id })
	if i < len(list) && list[i].ID == id {
		return fmt.Errorf("%w: resource %s/%d already exists", ErrGuestProgramming, typ, id)
	}
	r := &Resource{ID: id, Name: name, Data: data}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = r
	m.Types[typ] = list
	return nil
}

// Get returns the resource (type, id) and true, or nil, false.
func (m *ResourceMap) Get(typ FourCC, id int16) (*Resource, bool) {
	for _, r := range m.Types[typ] {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Remove deletes (type, id), dropping the type bucket entirely once it is
// empty.
func (m *ResourceMap) Remove(typ FourCC, id int16) {
	list := m.Types[typ]
	for i, r := range list {
		if r.ID == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.Types, typ)
	} else {
		m.Types[typ] = list
	}
}

// resourceForkHeader is the 16-byte header at offset 0 and its duplicate
// inside the map (§6).
type resourceForkHeader struct {
	dataOffset uint32
	mapOffset  uint32
	dataSize   uint32
	mapSize    uint32
}

// ParseResourceFork decodes raw into a ResourceMap (§4.D reader).
func ParseResourceFork(raw []byte) (*ResourceMap, error) {
	if len(raw) < 16 {
		return nil, fmt.Errorf("%w: resource fork shorter than header", ErrLinkerMalformed)
	}
	r := NewByteReader(raw)
	hdr := resourceForkHeader{
		dataOffset: r.U32(),
		mapOffset:  r.U32(),
		dataSize:   r.U32(),
		mapSize:    r.U32(),
	}
	if int(hdr.mapOffset)+28 > len(raw) {
		return nil, fmt.Errorf("%w: resource map offset out of range", ErrLinkerMalformed)
	}

	mr := NewByteReader(raw)
	mr.Seek(int(hdr.mapOffset))
	mr.Bytes(16) // header copy
	mr.Bytes(4)  // next-map handle (reserved on disk)
	mr.Bytes(2)  // file reference number (reserved on disk)
	attrs := mr.U16()
	typeListOff := mr.U16()
	nameListOff := mr.U16()

	typeListStart := int(hdr.mapOffset) + int(typeListOff)
	if typeListStart+2 > len(raw) {
		return nil, fmt.Errorf("%w: resource type list out of range", ErrLinkerMalformed)
	}
	tr := NewByteReader(raw)
	tr.Seek(typeListStart)
	typeCountMinus1 := tr.U16()

	m := &ResourceMap{Attributes: attrs, Types: make(map[FourCC][]*Resource)}
	if typeCountMinus1 == 0xFFFF {
		return m, nil
	}
	typeCount := int(typeCountMinus1) + 1

	for t := 0; t < typeCount; t++ {
		typ := tr.FourCC()
		refCountMinus1 := tr.U16()
		refListRelOff := tr.U16()

		refCount := int(refCountMinus1) + 1
		rr := NewByteReader(raw)
		rr.Seek(typeListStart + int(refListRelOff))

		var list []*Resource
		for i := 0; i < refCount; i++ {
			id := rr.I16()
			nameOff := rr.U16()
			packed := rr.U32()
			rr.Bytes(4) // reserved handle field on disk

			res := &Resource{
				ID:         id,
				Attributes: uint8(packed >> 24),
			}
			dataOff := int(hdr.dataOffset) + int(packed&0x00FFFFFF)
			if dataOff+4 > len(raw) {
				return nil, fmt.Errorf("%w: resource data offset out of range", ErrLinkerMalformed)
			}
			length := beUint32(raw[dataOff : dataOff+4])
			if dataOff+4+int(length) > len(raw) {
				return nil, fmt.Errorf("%w: resource data length out of range", ErrLinkerMalformed)
			}
			res.Data = append([]byte(nil), raw[dataOff+4:dataOff+4+int(length)]...)

			if nameOff != 0xFFFF {
				nameStart := int(hdr.mapOffset) + int(nameListOff) + int(nameOff)
				if nameStart >= len(raw) {
					return nil, fmt.Errorf("%w: resource name offset out of range", ErrLinkerMalformed)
				}
				nr := NewByteReader(raw)
				nr.Seek(nameStart)
				res.Name = []byte(nr.PString())
			}
			list = append(list, res)
		}
		m.Types[typ] = list
	}
	return m, nil
}

// Pack re-serialises m into the on-disk resource fork layout (§4.D
// writer). parse(pack(m)) must reproduce {attributes, types} including id
// order and resource attributes (§8 testable property 2).
func (m *ResourceMap) Pack() []byte {
	const headerAreaSize = 256

	data := NewByteWriter()
	type dataLoc struct {
		offset uint32
		length uint32
	}
	locs := make(map[*Resource]dataLoc)

	types := sortedTypes(m)
	for _, typ := range types {
		for _, r := range m.Types[typ] {
			locs[r] = dataLoc{offset: uint32(data.Len()), length: uint32(len(r.Data))}
			data.U32(uint32(len(r.Data)))
			data.Raw(r.Data)
		}
	}

	dataOffset := uint32(headerAreaSize)
	dataSize := uint32(data.Len())
	mapOffset := dataOffset + dataSize

	nameList := NewByteWriter()
	type nameLoc struct {
		offset uint16
		has    bool
	}
	names := make(map[*Resource]nameLoc)
	for _, typ := range types {
		for _, r := range m.Types[typ] {
			if r.Name == nil {
				names[r] = nameLoc{has: false}
				continue
			}
			names[r] = nameLoc{offset: uint16(nameList.Len()), has: true}
			nameList.PString(string(r.Name))
		}
	}

	typeList := NewByteWriter()
	refLists := NewByteWriter()
	if len(types) == 0 {
		typeList.U16(0xFFFF)
	} else {
		typeList.U16(uint16(len(types) - 1))
		// type-list entries follow, each pointing at a ref list measured
		// relative to the start of the type list itself.
		typeListEntrySize := 8
		refListBase := typeListEntrySize*len(types) + 2
		for _, typ := range types {
			list := m.Types[typ]
			typeList.FourCC(typ)
			typeList.U16(uint16(len(list) - 1))
			typeList.U16(uint16(refListBase + refLists.Len()))
			for _, r := range list {
				nl := names[r]
				loc := locs[r]
				nameOff := uint16(0xFFFF)
				if nl.has {
					nameOff = nl.offset
				}
				refLists.I16(r.ID)
				refLists.U16(nameOff)
				refLists.U32(uint32(r.Attributes)<<24 | loc.offset&0x00FFFFFF)
				refLists.U32(0)
			}
		}
	}

	const mapHeaderFixedSize = 28 // 16 (header copy) + 4 + 2 + 2 (attrs) + 2 + 2
	typeListOff := uint16(mapHeaderFixedSize)
	nameListOff := typeListOff + uint16(typeList.Len()) + uint16(refLists.Len())

	mapSize := uint32(mapHeaderFixedSize) + uint32(typeList.Len()) + uint32(refLists.Len()) + uint32(nameList.Len())

	out := NewByteWriter()
	writeHeader := func() {
		out.U32(dataOffset)
		out.U32(mapOffset)
		out.U32(dataSize)
		out.U32(mapSize)
	}
	writeHeader()
	out.Pad(headerAreaSize - out.Len())
	out.Raw(data.Bytes())

	writeHeader()
	out.Raw(make([]byte, 4)) // next-map handle
	out.Raw(make([]byte, 2)) // file reference number
	out.U16(m.Attributes)
	out.U16(typeListOff)
	out.U16(nameListOff)
	out.Raw(typeList.Bytes())
	out.Raw(refLists.Bytes())
	out.Raw(nameList.Bytes())

	return out.Bytes()
}

func sortedTypes(m *ResourceMap) []FourCC {
	types := make([]FourCC, 0, len(m.Types))
	for t := range m.Types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// I16 appends a signed 16-bit value (used by the ref list's id field).
func (w *ByteWriter) I16(v int16) {
	w.U16(uint16(v))
}
