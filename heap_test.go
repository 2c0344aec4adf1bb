package main

import "testing"

func TestHeapAllocDisposeChurn(t *testing.T) {
	h := NewHeap(0x1000, make([]byte, 4096), 16)

	a := h.NewPtr(64)
	if a == 0 {
		t.Fatalf("NewPtr(64) returned nil")
	}
	b := h.NewPtr(128)
	if b == 0 {
		t.Fatalf("NewPtr(128) returned nil")
	}
	c := h.NewPtr(32)
	if c == 0 {
		t.Fatalf("NewPtr(32) returned nil")
	}

	if err := h.DisposePtr(b); err != nil {
		t.Fatalf("DisposePtr(b): %v", err)
	}

	// Last-fit allocation scans from the tail, so the new block is carved
	// from the free block right after c (c's block is 16+32 = 48 bytes),
	// not from b's freed middle block.
	d := h.NewPtr(100)
	if d == 0 {
		t.Fatalf("NewPtr(100) after dispose returned nil")
	}
	if d != c+48 {
		t.Fatalf("expected last-fit block right after c at 0x%X, got 0x%X", c+48, d)
	}

	if err := h.DisposePtr(a); err != nil {
		t.Fatalf("DisposePtr(a): %v", err)
	}
	if err := h.DisposePtr(d); err != nil {
		t.Fatalf("DisposePtr(d): %v", err)
	}
	if err := h.DisposePtr(c); err != nil {
		t.Fatalf("DisposePtr(c): %v", err)
	}

	// Everything disposed: arena should be able to satisfy a fresh large
	// request by having coalesced back down.
	e := h.NewPtr(200)
	if e == 0 {
		t.Fatalf("NewPtr(200) after full dispose returned nil")
	}
}

func TestHeapHandleResize(t *testing.T) {
	h := NewHeap(0x2000, make([]byte, 4096), 8)

	handle := h.NewHandle(16)
	if handle == 0 {
		t.Fatalf("NewHandle(16) returned nil")
	}

	n, err := h.GetHandleSize(handle)
	if err != nil {
		t.Fatalf("GetHandleSize: %v", err)
	}
	if n != 16 {
		t.Fatalf("GetHandleSize = %d, want 16", n)
	}

	if err := h.SetHandleSize(handle, 512); err != nil {
		t.Fatalf("SetHandleSize(512): %v", err)
	}
	n, err = h.GetHandleSize(handle)
	if err != nil {
		t.Fatalf("GetHandleSize after grow: %v", err)
	}
	if n != 512 {
		t.Fatalf("GetHandleSize after grow = %d, want 512", n)
	}

	if err := h.DisposeHandle(handle); err != nil {
		t.Fatalf("DisposeHandle: %v", err)
	}
}

func TestHeapDisposePtrRejectsBadPointer(t *testing.T) {
	h := NewHeap(0x3000, make([]byte, 256), 4)
	if err := h.DisposePtr(0xDEADBEEF); err == nil {
		t.Fatalf("expected error disposing an unallocated pointer")
	}
}

func TestHeapGetPtrSizeReturnsUnroundedRequest(t *testing.T) {
	h := NewHeap(0x4000, make([]byte, 4096), 16)

	p := h.NewPtr(100)
	if p == 0 {
		t.Fatalf("NewPtr(100) returned nil")
	}
	n, err := h.GetPtrSize(p)
	if err != nil {
		t.Fatalf("GetPtrSize: %v", err)
	}
	if n != 100 {
		t.Fatalf("GetPtrSize = %d, want 100 (the unrounded request, not block-aligned)", n)
	}
}
