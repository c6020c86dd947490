package testfixtures

import "testing"

func TestIDGeneratorProducesPaddedSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("")

	if last := gen.Last(); last != "" {
		t.Fatalf("expected no identifier before Next, got %q", last)
	}
	first := gen.Next()
	second := gen.Next()

	if first != "req-001" || second != "req-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Last() != "req-002" {
		t.Fatalf("expected last req-002, got %q", gen.Last())
	}
	if issued := gen.Issued(); len(issued) != 2 || issued[0] != "req-001" {
		t.Fatalf("unexpected issued list %v", issued)
	}
}

func TestIDGeneratorNilNextFunc(t *testing.T) {
	var gen *IDGenerator
	if id := gen.NextFunc()(); id != "" {
		t.Fatalf("expected empty id from nil generator, got %q", id)
	}
}
