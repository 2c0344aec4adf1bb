package main

import "fmt"

// Heap is a classic-Mac-OS-compatible NewPtr/NewHandle allocator: a
// free-list of coalescing blocks with 16-byte headers, backed by a fixed
// master-pointer table for handle indirection (§3, §4.G).

const (
	heapBlockHeaderSize = 16
	heapAlign           = 16
	heapFreeBit         = uint32(1) << 31
)

// heapBlockHeader mirrors the 16-byte on-image header: user_size,
// block_size, prev, next, all relative to the heap base.
type heapBlockHeader struct {
	userSize  uint32 // high bit is the FREE flag
	blockSize uint32
	prev      uint32 // 0 means none
	next      uint32 // 0 means none
}

// Heap owns the guest heap region directly as a byte slice; NewPtr et al.
// read and write the block headers in place so the guest-visible bytes
// and the allocator's bookkeeping are the same storage.
type Heap struct {
	mem       []byte // the heap region, indexed from 0 == heapBase
	base      uint32 // guest address heap region starts at
	arenaOff  uint32 // offset into mem where the first block header begins
	arenaSize uint32 // bytes available to blocks, i.e. len(mem)-arenaOff

	handlesOff uint32 // offset into mem of the master-pointer table
	handles    uint32 // number of master-pointer slots
	used       []bool // used[i] true iff handle slot i is occupied
}

// NewHeap lays a fresh heap out across mem (must already be sized per
// Config.HeapSize), reserving handleSlots*4 bytes at the front for the
// master-pointer table and initialising the remainder as one free block
// covering the whole arena (§4.G "One-time init()").
func NewHeap(base uint32, mem []byte, handleSlots uint32) *Heap {
	h := &Heap{
		mem:        mem,
		base:       base,
		handlesOff: 0,
		handles:    handleSlots,
		used:       make([]bool, handleSlots),
	}
	h.arenaOff = handleSlots * 4
	h.arenaSize = uint32(len(mem)) - h.arenaOff
	h.writeHeader(h.arenaOff, heapBlockHeader{
		userSize: h.arenaSize - heapBlockHeaderSize | heapFreeBit,
		blockSize: h.arenaSize,
		prev:      0,
		next:      0,
	})
	return h
}

func round16(n uint32) uint32 {
	return (n + heapAlign - 1) &^ (heapAlign - 1)
}

func (h *Heap) readHeader(off uint32) heapBlockHeader {
	b := h.mem[off : off+heapBlockHeaderSize]
	return heapBlockHeader{
		userSize:  beUint32(b[0:4]),
		blockSize: beUint32(b[4:8]),
		prev:      beUint32(b[8:12]),
		next:      beUint32(b[12:16]),
	}
}

func (h *Heap) writeHeader(off uint32, hd heapBlockHeader) {
	b := h.mem[off : off+heapBlockHeaderSize]
	putBeUint32(b[0:4], hd.userSize)
	putBeUint32(b[4:8], hd.blockSize)
	putBeUint32(b[8:12], hd.prev)
	putBeUint32(b[12:16], hd.next)
}

func isFree(userSize uint32) bool   { return userSize&heapFreeBit != 0 }
func sizeOf(userSize uint32) uint32 { return userSize &^ heapFreeBit }

// ptrToOff converts a guest pointer (block+16) to the block header's
// offset into h.mem. Returns (0, false) if p lies outside the arena; it
// does not check that p is the start of a live block.
func (h *Heap) ptrToOff(p uint32) (uint32, bool) {
	if p < h.base+h.arenaOff+heapBlockHeaderSize {
		return 0, false
	}
	off := p - h.base - heapBlockHeaderSize
	if off >= uint32(len(h.mem)) {
		return 0, false
	}
	return off, true
}

func (h *Heap) blockPtr(off uint32) uint32 {
	return h.base + off + heapBlockHeaderSize
}

// NewPtr finds a free block able to hold size bytes, splitting off any
// excess >= 32 bytes, and returns the guest pointer to its user region
// (block+16), or 0 on failure. Scans the free list from the tail
// backwards (last-fit), per §4.G.
func (h *Heap) NewPtr(size uint32) uint32 {
	need := heapBlockHeaderSize + round16(size)

	// Find the tail block by walking forward once; then scan backwards.
	var tail uint32
	for off := h.arenaOff; ; {
		tail = off
		hd := h.readHeader(off)
		if hd.next == 0 {
			break
		}
		off = hd.next
	}

	for off := tail; ; {
		hd := h.readHeader(off)
		if isFree(hd.userSize) && hd.blockSize >= need {
			h.allocateBlock(off, hd, size)
			return h.blockPtr(off)
		}
		if hd.prev == 0 {
			break
		}
		off = hd.prev
	}
	return 0
}

// allocateBlock marks the block at off used for a size-byte request,
// splitting off a trailing free block when at least 32 bytes remain, and
// zeroes the user-visible region.
func (h *Heap) allocateBlock(off uint32, hd heapBlockHeader, size uint32) {
	remaining := hd.blockSize - (heapBlockHeaderSize + round16(size))
	if remaining >= 32 {
		splitOff := off + heapBlockHeaderSize + round16(size)
		splitSize := remaining
		h.writeHeader(splitOff, heapBlockHeader{
			userSize:  splitSize - heapBlockHeaderSize | heapFreeBit,
			blockSize: splitSize,
			prev:      off,
			next:      hd.next,
		})
		if hd.next != 0 {
			next := h.readHeader(hd.next)
			next.prev = splitOff
			h.writeHeader(hd.next, next)
		}
		hd.next = splitOff
		hd.blockSize -= splitSize
	}
	hd.userSize = size
	h.writeHeader(off, hd)
	start := off + heapBlockHeaderSize
	for i := uint32(0); i < round16(size); i++ {
		h.mem[start+i] = 0
	}
}

// DisposePtr marks p's block free and coalesces with neighbours: the
// right neighbour first, then the left (§4.G).
func (h *Heap) DisposePtr(p uint32) error {
	off, ok := h.ptrToOff(p)
	if !ok {
		return fmt.Errorf("%w: dispose of invalid pointer %#x", ErrGuestProgramming, p)
	}
	hd := h.readHeader(off)
	if isFree(hd.userSize) {
		return fmt.Errorf("%w: double free at %#x", ErrGuestProgramming, p)
	}
	hd.userSize = sizeOf(hd.userSize) | heapFreeBit
	h.writeHeader(off, hd)

	if hd.next != 0 {
		right := h.readHeader(hd.next)
		if isFree(right.userSize) {
			h.mergeRight(off, hd, right)
			hd = h.readHeader(off)
		}
	}
	if hd.prev != 0 {
		left := h.readHeader(hd.prev)
		if isFree(left.userSize) {
			h.mergeRight(hd.prev, left, hd)
		}
	}
	return nil
}

// mergeRight folds the block at rightOff (with header right, which must
// already be known free) into leftOff (with header left), leaving one
// larger free block at leftOff.
func (h *Heap) mergeRight(leftOff uint32, left, right heapBlockHeader) {
	merged := heapBlockHeader{
		userSize:  left.blockSize + right.blockSize - heapBlockHeaderSize | heapFreeBit,
		blockSize: left.blockSize + right.blockSize,
		prev:      left.prev,
		next:      right.next,
	}
	h.writeHeader(leftOff, merged)
	if right.next != 0 {
		next := h.readHeader(right.next)
		next.prev = leftOff
		h.writeHeader(right.next, next)
	}
}

// GetPtrSize returns the live user size of the block at p (§4.G).
func (h *Heap) GetPtrSize(p uint32) (uint32, error) {
	off, ok := h.ptrToOff(p)
	if !ok {
		return 0, fmt.Errorf("%w: size of invalid pointer %#x", ErrGuestProgramming, p)
	}
	hd := h.readHeader(off)
	return sizeOf(hd.userSize), nil
}

// SetPtrSize resizes the block at p to n bytes in place when possible
// (optionally coalescing with its free right neighbour first); returns
// false if it cannot grow in place, leaving the caller to
// allocate-copy-free (§4.G).
func (h *Heap) SetPtrSize(p uint32, n uint32) (bool, error) {
	off, ok := h.ptrToOff(p)
	if !ok {
		return false, fmt.Errorf("%w: resize of invalid pointer %#x", ErrGuestProgramming, p)
	}
	hd := h.readHeader(off)
	cur := sizeOf(hd.userSize)
	if n == cur {
		return true, nil
	}
	need := heapBlockHeaderSize + round16(n)
	if hd.blockSize < need && hd.next != 0 {
		right := h.readHeader(hd.next)
		if isFree(right.userSize) {
			h.mergeRight(off, hd, right)
			hd = h.readHeader(off)
		}
	}
	if hd.blockSize < need {
		return false, nil
	}
	if n > cur {
		start := off + heapBlockHeaderSize + cur
		for i := uint32(0); i < n-cur; i++ {
			h.mem[start+i] = 0
		}
	}
	remaining := hd.blockSize - need
	if remaining >= 32 {
		splitOff := off + need
		h.writeHeader(splitOff, heapBlockHeader{
			userSize:  remaining - heapBlockHeaderSize | heapFreeBit,
			blockSize: remaining,
			prev:      off,
			next:      hd.next,
		})
		if hd.next != 0 {
			next := h.readHeader(hd.next)
			next.prev = splitOff
			h.writeHeader(hd.next, next)
		}
		hd.next = splitOff
		hd.blockSize = need
	}
	hd.userSize = n
	h.writeHeader(off, hd)
	return true, nil
}

// --- Handles ---------------------------------------------------------

func (h *Heap) handleSlotOff(i uint32) uint32 {
	return h.handlesOff + 4*i
}

// NewHandle allocates a block of size bytes and a free master-pointer
// slot pointing at it, returning the handle's guest address
// (handles_start + 4*i).
func (h *Heap) NewHandle(size uint32) uint32 {
	p := h.NewPtr(size)
	if p == 0 {
		return 0
	}
	for i := uint32(0); i < h.handles; i++ {
		if !h.used[i] {
			h.used[i] = true
			slot := h.handleSlotOff(i)
			putBeUint32(h.mem[slot:slot+4], p)
			return h.base + slot
		}
	}
	_ = h.DisposePtr(p)
	return 0
}

func (h *Heap) handleIndex(handle uint32) (uint32, error) {
	if handle < h.base+h.handlesOff {
		return 0, fmt.Errorf("%w: handle %#x out of range", ErrGuestProgramming, handle)
	}
	i := (handle - h.base - h.handlesOff) / 4
	if i >= h.handles || !h.used[i] {
		return 0, fmt.Errorf("%w: handle %#x not live", ErrGuestProgramming, handle)
	}
	return i, nil
}

// handlePtr dereferences the master pointer a handle addresses.
func (h *Heap) handlePtr(i uint32) uint32 {
	slot := h.handleSlotOff(i)
	return beUint32(h.mem[slot : slot+4])
}

func (h *Heap) setHandlePtr(i uint32, p uint32) {
	slot := h.handleSlotOff(i)
	putBeUint32(h.mem[slot:slot+4], p)
}

// DisposeHandle frees the handle's block and clears its slot. Disposing
// handle 0 is a documented no-op (§7 GuestProgramming).
func (h *Heap) DisposeHandle(handle uint32) error {
	if handle == 0 {
		return nil
	}
	i, err := h.handleIndex(handle)
	if err != nil {
		return err
	}
	p := h.handlePtr(i)
	h.used[i] = false
	h.setHandlePtr(i, 0)
	if p == 0 {
		return nil
	}
	return h.DisposePtr(p)
}

// GetHandleSize returns the size of a handle's backing block.
func (h *Heap) GetHandleSize(handle uint32) (uint32, error) {
	i, err := h.handleIndex(handle)
	if err != nil {
		return 0, err
	}
	return h.GetPtrSize(h.handlePtr(i))
}

// SetHandleSize resizes a handle's backing block to n bytes, preserving
// handle identity: it tries SetPtrSize on the pointee first, and only on
// failure allocates a new block, copies, frees the old one, and updates
// the master pointer (§4.G).
func (h *Heap) SetHandleSize(handle uint32, n uint32) error {
	i, err := h.handleIndex(handle)
	if err != nil {
		return err
	}
	p := h.handlePtr(i)
	if ok, err := h.SetPtrSize(p, n); err != nil {
		return err
	} else if ok {
		return nil
	}

	newP := h.NewPtr(n)
	if newP == 0 {
		return fmt.Errorf("%w: heap exhausted resizing handle to %d bytes", ErrHostIO, n)
	}
	oldSize, _ := h.GetPtrSize(p)
	copyLen := oldSize
	if n < copyLen {
		copyLen = n
	}
	oldOff, _ := h.ptrToOff(p)
	newOff, _ := h.ptrToOff(newP)
	copy(h.mem[newOff+heapBlockHeaderSize:newOff+heapBlockHeaderSize+copyLen],
		h.mem[oldOff+heapBlockHeaderSize:oldOff+heapBlockHeaderSize+copyLen])
	_ = h.DisposePtr(p)
	h.setHandlePtr(i, newP)
	return nil
}
