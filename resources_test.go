package main

import "testing"

func TestResourceMapAddGet(t *testing.T) {
	m := NewResourceMap()
	if err := m.Add(ParseFourCC("TEXT"), 128, nil, []byte("hello")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	r, ok := m.Get(ParseFourCC("TEXT"), 128)
	if !ok {
		t.Fatalf("Get did not find resource just added")
	}
	if string(r.Data) != "hello" {
		t.Fatalf("Data = %q, want %q", r.Data, "hello")
	}
}

func TestResourceMapAddDuplicateIDFails(t *testing.T) {
	m := NewResourceMap()
	if err := m.Add(ParseFourCC("TEXT"), 1, nil, []byte("a")); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := m.Add(ParseFourCC("TEXT"), 1, nil, []byte("b")); err == nil {
		t.Fatalf("expected error adding duplicate id")
	}
}

func TestResourceForkPackParseRoundTrip(t *testing.T) {
	m := NewResourceMap()
	if err := m.Add(ParseFourCC("STR#"), 100, []byte("greeting"), []byte{0x00, 0x01, 0x05, 'h', 'e', 'l', 'l', 'o'}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(ParseFourCC("TEXT"), 1, nil, []byte("plain data")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	packed := m.Pack()
	parsed, err := ParseResourceFork(packed)
	if err != nil {
		t.Fatalf("ParseResourceFork: %v", err)
	}

	r, ok := parsed.Get(ParseFourCC("STR#"), 100)
	if !ok {
		t.Fatalf("round trip lost STR# 100")
	}
	if string(r.Name) != "greeting" {
		t.Fatalf("Name = %q, want %q", r.Name, "greeting")
	}

	r2, ok := parsed.Get(ParseFourCC("TEXT"), 1)
	if !ok {
		t.Fatalf("round trip lost TEXT 1")
	}
	if string(r2.Data) != "plain data" {
		t.Fatalf("Data = %q, want %q", r2.Data, "plain data")
	}
}

func TestEmptyResourceForkIsCanonical286Bytes(t *testing.T) {
	m := NewResourceMap()
	packed := m.Pack()
	if len(packed) != 286 {
		t.Fatalf("empty resource fork = %d bytes, want 286", len(packed))
	}
}

func TestResourceMapRemoveDropsEmptyTypeBucket(t *testing.T) {
	m := NewResourceMap()
	if err := m.Add(ParseFourCC("TEXT"), 1, nil, []byte("x")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.Remove(ParseFourCC("TEXT"), 1)
	if _, ok := m.Get(ParseFourCC("TEXT"), 1); ok {
		t.Fatalf("resource still present after Remove")
	}
	if _, ok := m.Types[ParseFourCC("TEXT")]; ok {
		t.Fatalf("empty type bucket not dropped")
	}
}
