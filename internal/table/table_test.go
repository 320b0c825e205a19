package table

import (
	"errors"
	"testing"
)

func TestFloatCoercion(t *testing.T) {
	tb := New("v")
	tb.AppendRow(1.5)
	tb.AppendRow("2.5")
	tb.AppendRow("3,5") // comma decimal
	tb.AppendRow(" 4 ")
	tb.AppendRow("not a number")
	tb.AppendRow(nil)
	tb.AppendRow(7)

	want := []float64{1.5, 2.5, 3.5, 4, 0, 0, 7}
	for i, w := range want {
		if got := tb.Float(i, "v"); got != w {
			t.Fatalf("row %d: Float=%v want %v", i, got, w)
		}
	}
}

func TestAppendRowPadsAndTruncates(t *testing.T) {
	tb := New("a", "b")
	tb.AppendRow("x")
	tb.AppendRow("y", "z", "extra")

	if got := tb.String(0, "b"); got != "" {
		t.Fatalf("short row pad: got %q want empty", got)
	}
	if got := tb.String(1, "b"); got != "z" {
		t.Fatalf("long row truncate: got %q want z", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tb := New("a")
	tb.AppendRow("one")

	clone := tb.Clone()
	clone.AppendRow("two")

	if tb.NumRows() != 1 {
		t.Fatalf("original mutated: rows=%d", tb.NumRows())
	}
	if clone.NumRows() != 2 {
		t.Fatalf("clone rows=%d want 2", clone.NumRows())
	}
}

func TestRequireColumnsNamesMissing(t *testing.T) {
	tb := New("present")
	err := tb.RequireColumns("present", "gone", "also_gone")
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if len(se.Missing) != 2 || se.Missing[0] != "gone" || se.Missing[1] != "also_gone" {
		t.Fatalf("unexpected missing list: %v", se.Missing)
	}
	if err := tb.RequireColumns("present"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHashTracksContent(t *testing.T) {
	a := New("x", "y")
	a.AppendRow("1", "2")
	b := New("x", "y")
	b.AppendRow("1", "2")

	if a.Hash() != b.Hash() {
		t.Fatal("equal content must produce equal hashes")
	}

	b.AppendRow("3", "4")
	if a.Hash() == b.Hash() {
		t.Fatal("different content must produce different hashes")
	}

	// Numeric and string cells with the same rendering hash identically,
	// matching the CSV round-trip the loaders perform.
	c := New("x", "y")
	c.AppendRow(1.0, 2.0)
	if a.Hash() != c.Hash() {
		t.Fatalf("hash mismatch for equivalent content: %s vs %s", a.Hash(), c.Hash())
	}
}
