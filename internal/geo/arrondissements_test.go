package geo

import (
	"testing"

	"navira/internal/table"
)

func makeAllocation(t *testing.T, rows [][]any) *table.Table {
	t.Helper()
	tb := table.New("insee5", "value")
	for _, r := range rows {
		tb.AppendRow(r...)
	}
	return tb
}

func TestCollapseArrondissements(t *testing.T) {
	tb := makeAllocation(t, [][]any{
		{"75101", 10.0},
		{"75115", 5.0},
		{"69381", 3.0},
		{"13201", 2.0},
		{"31555", 7.0}, // Toulouse, untouched
	})

	out, err := CollapseArrondissements(tb, false)
	if err != nil {
		t.Fatalf("CollapseArrondissements failed: %v", err)
	}
	got := map[string]float64{}
	for i := 0; i < out.NumRows(); i++ {
		got[out.String(i, "insee5")] = out.Float(i, "value")
	}
	want := map[string]float64{
		"75056": 15.0,
		"69123": 3.0,
		"13055": 2.0,
		"31555": 7.0,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for code, v := range want {
		if got[code] != v {
			t.Fatalf("commune %s = %v want %v", code, got[code], v)
		}
	}
}

func TestCollapseSkippedWhenGeometryHasArrondissements(t *testing.T) {
	tb := makeAllocation(t, [][]any{
		{"75101", 10.0},
		{"75102", 5.0},
	})

	out, err := CollapseArrondissements(tb, true)
	if err != nil {
		t.Fatalf("CollapseArrondissements failed: %v", err)
	}
	if out.Hash() != tb.Hash() {
		t.Fatal("table must pass through untouched when geometry has sub-city boundaries")
	}
	// And the pass-through is a copy, not an alias.
	out.AppendRow("99999", 1.0)
	if tb.NumRows() != 2 {
		t.Fatalf("input mutated: rows=%d", tb.NumRows())
	}
}

func TestCollapsePreservesTotal(t *testing.T) {
	tb := makeAllocation(t, [][]any{
		{"75101", 1.5},
		{"75120", 2.5},
		{"75056", 4.0}, // already city-level, merges with collapsed rows
	})

	out, err := CollapseArrondissements(tb, false)
	if err != nil {
		t.Fatalf("CollapseArrondissements failed: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("rows=%d want 1", out.NumRows())
	}
	if out.String(0, "insee5") != "75056" || out.Float(0, "value") != 8.0 {
		t.Fatalf("got %s/%v want 75056/8", out.String(0, "insee5"), out.Float(0, "value"))
	}
}

func TestIsArrondissement(t *testing.T) {
	for _, code := range []string{"75101", "75120", "69381", "69389", "13201", "13216"} {
		if !IsArrondissement(code) {
			t.Fatalf("%s should be an arrondissement", code)
		}
	}
	for _, code := range []string{"75056", "69123", "13055", "31555", "75121", "69380"} {
		if IsArrondissement(code) {
			t.Fatalf("%s should not be an arrondissement", code)
		}
	}
}
