package main

import (
	"testing"

	"go.uber.org/zap"
)

func TestSetjmpLongjmpRoundTrip(t *testing.T) {
	cpu := NewFacadeCPU(make([]byte, 512), 0)
	st := NewEmuState(DefaultConfig(), zap.NewNop().Sugar())

	cpu.SetGPR(13, 0x1313)
	cpu.SetLR(0x4000)
	cpu.SetGPR(1, 0x7000)

	envAddr := uint32(0x100)
	cpu.SetGPR(3, envAddr)
	args := NewArgReader(NewMemory(cpu), cpu)
	if rc := shimSetjmp(cpu, st, args); rc != 0 {
		t.Fatalf("setjmp direct return = %d, want 0", rc)
	}

	// Simulate the program mutating state, then jumping back.
	cpu.SetGPR(13, 0xDEAD)
	cpu.SetLR(0x9999)

	cpu.SetGPR(3, envAddr)
	cpu.SetGPR(4, 7)
	args = NewArgReader(NewMemory(cpu), cpu)
	rc := shimLongjmp(cpu, st, args)
	if rc != 7 {
		t.Fatalf("longjmp(env, 7) = %d, want 7", rc)
	}
	if cpu.GPR(13) != 0x1313 {
		t.Fatalf("R13 = %#x after longjmp, want restored 0x1313", cpu.GPR(13))
	}
	if cpu.LR() != 0x4000 {
		t.Fatalf("LR = %#x after longjmp, want restored 0x4000", cpu.LR())
	}
	if cpu.PC() != 0x4000 {
		t.Fatalf("PC = %#x after longjmp, want jump to restored LR 0x4000", cpu.PC())
	}
}

func TestLongjmpZeroBecomesOne(t *testing.T) {
	cpu := NewFacadeCPU(make([]byte, 512), 0)
	st := NewEmuState(DefaultConfig(), zap.NewNop().Sugar())

	envAddr := uint32(0x100)
	cpu.SetGPR(3, envAddr)
	args := NewArgReader(NewMemory(cpu), cpu)
	shimSetjmp(cpu, st, args)

	cpu.SetGPR(3, envAddr)
	cpu.SetGPR(4, 0)
	args = NewArgReader(NewMemory(cpu), cpu)
	rc := shimLongjmp(cpu, st, args)
	if rc != 1 {
		t.Fatalf("longjmp(env, 0) = %d, want 1", rc)
	}
}
