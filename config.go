package main

import "github.com/xyproto/env/v2"

// Config holds the emulator's memory layout and execution tunables.
// Defaults match §3's data model; each is overridable by an environment
// variable so a test or a curious user can push the heap or stack past
// its default size without a recompile.
type Config struct {
	// ImageBase is the fixed guest address the code section loads at.
	ImageBase uint32
	// StackSize is the size in bytes of the stack region below the heap.
	StackSize uint32
	// HeapBase is the fixed guest address the heap region starts at.
	HeapBase uint32
	// HeapSize is the size in bytes of the heap arena.
	HeapSize uint32
	// InstructionBudget caps CPU.Start (0 means unlimited); see §5.
	InstructionBudget uint64
	// Trace enables verbose relocation/shim-dispatch logging.
	Trace bool
}

// DefaultConfig returns the §3 baseline, then applies any MPWEMU_*
// environment overrides on top of it.
func DefaultConfig() Config {
	c := Config{
		ImageBase:         0x10000000,
		StackSize:         1 * 1024 * 1024,
		HeapBase:          0x30000000,
		HeapSize:          32 * 1024 * 1024,
		InstructionBudget: 0,
		Trace:             false,
	}
	c.ImageBase = uint32(env.Int64("MPWEMU_IMAGE_BASE", int64(c.ImageBase)))
	c.StackSize = uint32(env.Int64("MPWEMU_STACK_SIZE", int64(c.StackSize)))
	c.HeapBase = uint32(env.Int64("MPWEMU_HEAP_BASE", int64(c.HeapBase)))
	c.HeapSize = uint32(env.Int64("MPWEMU_HEAP_SIZE", int64(c.HeapSize)))
	c.InstructionBudget = uint64(env.Int64("MPWEMU_INSTRUCTION_BUDGET", int64(c.InstructionBudget)))
	c.Trace = env.Bool("MPWEMU_TRACE")
	return c
}
