package main

import (
	"testing"

	"go.uber.org/zap"
)

func newTestArgReader(mem []byte, base uint32, gprs ...uint32) (*facadeCPU, *ArgReader) {
	cpu := NewFacadeCPU(mem, base)
	for i, v := range gprs {
		cpu.SetGPR(3+i, v)
	}
	return cpu, NewArgReader(NewMemory(cpu), cpu)
}

func TestFormatPrintfPrecisionWidthString(t *testing.T) {
	mem := make([]byte, 256)
	copy(mem[0x20:], []byte("hello\x00"))
	cpu, args := newTestArgReader(mem, 0, 0x20)

	got := FormatPrintf("[%5.3s]", args, NewMemory(cpu))
	want := "[  hel]"
	if got != want {
		t.Fatalf("FormatPrintf = %q, want %q", got, want)
	}
}

func TestFormatPrintfLeftJustifiedDecimal(t *testing.T) {
	cpu, args := newTestArgReader(make([]byte, 16), 0, 42)
	got := FormatPrintf("[%-5d]", args, NewMemory(cpu))
	want := "[42   ]"
	if got != want {
		t.Fatalf("FormatPrintf = %q, want %q", got, want)
	}
}

func TestFormatPrintfZeroPaddedHex(t *testing.T) {
	cpu, args := newTestArgReader(make([]byte, 16), 0, 0xABCD)
	got := FormatPrintf("[%08X]", args, NewMemory(cpu))
	want := "[0000ABCD]"
	if got != want {
		t.Fatalf("FormatPrintf = %q, want %q", got, want)
	}
}

func TestSprintfWritesToGuestMemory(t *testing.T) {
	mem := make([]byte, 256)
	copy(mem[0x40:], []byte("world\x00"))
	cpu := NewFacadeCPU(mem, 0)
	// R3 = dst, R4 = fmt ptr, R5 = arg ptr
	cpu.SetGPR(3, 0x80)
	cpu.SetGPR(4, 0x60)
	copy(mem[0x60:], []byte("hi %s\x00"))
	cpu.SetGPR(5, 0x40)

	args := NewArgReader(NewMemory(cpu), cpu)
	n := shimSprintf(cpu, NewEmuState(DefaultConfig(), zap.NewNop().Sugar()), args)

	out := NewMemory(cpu).ReadCString(0x80)
	if out != "hi world" {
		t.Fatalf("sprintf output = %q, want %q", out, "hi world")
	}
	if n != uint32(len(out)) {
		t.Fatalf("sprintf return = %d, want %d", n, len(out))
	}
}
