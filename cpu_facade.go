package main

import (
	"context"
	"fmt"
)

// facadeCPU is a minimal, concrete CPU that holds the register file and
// mapped guest memory this repository actually owns (linking, shim
// dispatch, heap, resources, files) but defers instruction decoding and
// execution to an external PowerPC core. A production build links the
// CPU interface against a real PPC interpreter; facadeCPU exists so the
// rest of the repository (linker, shim dispatch, heap, file store) is
// fully constructible and testable without one.
type facadeCPU struct {
	gpr   [32]uint32
	lr    uint32
	cr    uint32
	fpscr uint64
	fpr   [32]uint64
	pc    uint32

	memBase uint32
	mem     []byte

	hook    func(cpu CPU)
	stopped bool
}

// NewFacadeCPU returns a facadeCPU with mem mapped starting at base.
func NewFacadeCPU(mem []byte, base uint32) *facadeCPU {
	return &facadeCPU{memBase: base, mem: mem}
}

func (c *facadeCPU) GPR(n int) uint32     { return c.gpr[n] }
func (c *facadeCPU) SetGPR(n int, v uint32) { c.gpr[n] = v }

func (c *facadeCPU) LR() uint32      { return c.lr }
func (c *facadeCPU) SetLR(v uint32)  { c.lr = v }
func (c *facadeCPU) CR() uint32      { return c.cr }
func (c *facadeCPU) SetCR(v uint32)  { c.cr = v }
func (c *facadeCPU) FPSCR() uint64   { return c.fpscr }
func (c *facadeCPU) SetFPSCR(v uint64) { c.fpscr = v }
func (c *facadeCPU) FPR(n int) uint64 { return c.fpr[n] }
func (c *facadeCPU) SetFPR(n int, v uint64) { c.fpr[n] = v }

func (c *facadeCPU) PC() uint32     { return c.pc }
func (c *facadeCPU) SetPC(v uint32) { c.pc = v }

func (c *facadeCPU) Map(base uint32, mem []byte) error {
	c.memBase = base
	c.mem = mem
	return nil
}

func (c *facadeCPU) ReadMem(addr uint32, dst []byte) error {
	off := int64(addr) - int64(c.memBase)
	if off < 0 || off+int64(len(dst)) > int64(len(c.mem)) {
		return fmt.Errorf("%w: read out of bounds at 0x%X", ErrGuestProgramming, addr)
	}
	copy(dst, c.mem[off:off+int64(len(dst))])
	return nil
}

func (c *facadeCPU) WriteMem(addr uint32, src []byte) error {
	off := int64(addr) - int64(c.memBase)
	if off < 0 || off+int64(len(src)) > int64(len(c.mem)) {
		return fmt.Errorf("%w: write out of bounds at 0x%X", ErrGuestProgramming, addr)
	}
	copy(c.mem[off:off+int64(len(src))], src)
	return nil
}

func (c *facadeCPU) InterruptHook(fn func(cpu CPU)) {
	c.hook = fn
}

// Start is a placeholder entry point: it sets up PC/until/budget exactly
// as a real interpreter's run loop would see them, then reports that no
// instruction core is linked, since decoding and executing PowerPC
// instructions is explicitly out of this repository's scope.
func (c *facadeCPU) Start(ctx context.Context, entry, until uint32, budget uint64) error {
	c.pc = entry
	c.stopped = false
	return fmt.Errorf("%w: no PowerPC instruction core is linked against this CPU facade", ErrFatalCPU)
}

func (c *facadeCPU) Stop() {
	c.stopped = true
}
