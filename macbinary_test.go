package main

import "testing"

func TestMacBinaryPackUnpackRoundTrip(t *testing.T) {
	info := &MacBinaryInfo{
		Name:        "Test File",
		TypeID:      ParseFourCC("TEXT"),
		CreatorID:   ParseFourCC("ttxt"),
		FinderFlags: 0x0100,
		LocationH:   10,
		LocationV:   20,
		Data:        []byte("hello, world"),
		Resource:    []byte{1, 2, 3, 4},
	}

	packed := PackMacBinary(info)
	if !ProbeMacBinary(packed) {
		t.Fatalf("ProbeMacBinary rejected a freshly packed MacBinary file")
	}

	got, err := UnpackMacBinary(packed)
	if err != nil {
		t.Fatalf("UnpackMacBinary: %v", err)
	}
	if got.Name != info.Name {
		t.Fatalf("Name = %q, want %q", got.Name, info.Name)
	}
	if got.TypeID != info.TypeID || got.CreatorID != info.CreatorID {
		t.Fatalf("type/creator mismatch: %v/%v want %v/%v", got.TypeID, got.CreatorID, info.TypeID, info.CreatorID)
	}
	if string(got.Data) != string(info.Data) {
		t.Fatalf("Data = %q, want %q", got.Data, info.Data)
	}
	if string(got.Resource) != string(info.Resource) {
		t.Fatalf("Resource = %q, want %q", got.Resource, info.Resource)
	}
}

func TestProbeMacBinaryRejectsPlainText(t *testing.T) {
	if ProbeMacBinary([]byte("just a plain text file, not MacBinary at all")) {
		t.Fatalf("ProbeMacBinary accepted plain text")
	}
}

func TestProbeMacBinaryRejectsShortInput(t *testing.T) {
	if ProbeMacBinary([]byte{1, 2, 3}) {
		t.Fatalf("ProbeMacBinary accepted input shorter than a header")
	}
}
