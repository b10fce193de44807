package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("evt")

	first, second := gen.Next(), gen.Next()
	if first != "evt-001" || second != "evt-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset()
	if next := gen.Next(); next != "evt-001" {
		t.Fatalf("expected evt-001 after reset, got %q", next)
	}
}
