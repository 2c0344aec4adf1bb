package main

import "testing"

func TestUnpackPatternScenarioC(t *testing.T) {
	packed := []byte{0x00, 0x08, 0x21, 0xAA, 0x40, 0x03, 0x02, 0xBB, 0xCC}
	want := append(make([]byte, 8), 0xAA)
	want = append(want, 0xBB, 0xCC, 0xBB, 0xCC, 0xBB, 0xCC)

	got, err := UnpackPattern(packed, uint32(len(want)))
	if err != nil {
		t.Fatalf("UnpackPattern: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestUnpackPatternPadsWithZeros(t *testing.T) {
	packed := []byte{0x21, 0xFF} // BlockCopy(1): one byte 0xFF
	got, err := UnpackPattern(packed, 4)
	if err != nil {
		t.Fatalf("UnpackPattern: %v", err)
	}
	want := []byte{0xFF, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestUnpackPatternRejectsOverrun(t *testing.T) {
	// Zero(8) but unpackedSize only allows 4: must bounds-check rather
	// than overrun the output buffer.
	packed := []byte{0x00, 0x08}
	if _, err := UnpackPattern(packed, 4); err == nil {
		t.Fatalf("expected overrun error, got nil")
	}
}
