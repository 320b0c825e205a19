package geo

import (
	"errors"
	"testing"

	"navira/internal/table"
)

func makeCompetitors(t *testing.T, rows [][]any) *table.Table {
	t.Helper()
	tb := table.New("hospital_id", "competitor_id", "competitor_patients", "hospital_patients")
	for _, r := range rows {
		tb.AppendRow(r...)
	}
	return tb
}

func TestRankCompetitorsOrdering(t *testing.T) {
	tb := makeCompetitors(t, [][]any{
		{"000000001", "000000002", 50.0, 10.0},
		{"000000001", "000000003", 80.0, 10.0},
		{"000000001", "000000004", 80.0, 30.0},
		{"000000009", "000000005", 999.0, 999.0},
	})

	got, err := RankCompetitors(tb, "1", 3)
	if err != nil {
		t.Fatalf("RankCompetitors failed: %v", err)
	}
	// 000000004 wins the 80-patient tie on the focal hospital's own volume.
	want := []string{"000000004", "000000003", "000000002"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d = %q want %q", i, got[i], want[i])
		}
	}
}

func TestRankCompetitorsStableTieBreak(t *testing.T) {
	// Full tie on both keys: stable sort keeps the table order, every call.
	tb := makeCompetitors(t, [][]any{
		{"000000001", "000000007", 40.0, 5.0},
		{"000000001", "000000008", 40.0, 5.0},
		{"000000001", "000000009", 40.0, 5.0},
	})

	first, err := RankCompetitors(tb, "000000001", 3)
	if err != nil {
		t.Fatalf("RankCompetitors failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := RankCompetitors(tb, "000000001", 3)
		if err != nil {
			t.Fatalf("RankCompetitors failed: %v", err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("ordering changed between calls: %v vs %v", again, first)
			}
		}
	}
	if first[0] != "000000007" || first[1] != "000000008" || first[2] != "000000009" {
		t.Fatalf("tie must keep table order, got %v", first)
	}
}

func TestRankCompetitorsNoRows(t *testing.T) {
	tb := makeCompetitors(t, [][]any{
		{"000000009", "000000005", 10.0, 10.0},
	})

	got, err := RankCompetitors(tb, "000000001", 5)
	if err != nil {
		t.Fatalf("RankCompetitors failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestRankCompetitorsTruncatesToN(t *testing.T) {
	tb := makeCompetitors(t, [][]any{
		{"000000001", "000000002", 30.0, 1.0},
		{"000000001", "000000003", 20.0, 1.0},
		{"000000001", "000000004", 10.0, 1.0},
	})

	got, err := RankCompetitors(tb, "000000001", 2)
	if err != nil {
		t.Fatalf("RankCompetitors failed: %v", err)
	}
	if len(got) != 2 || got[0] != "000000002" || got[1] != "000000003" {
		t.Fatalf("unexpected top 2: %v", got)
	}
}

func TestRankCompetitorsMissingColumns(t *testing.T) {
	tb := table.New("hospital_id")
	_, err := RankCompetitors(tb, "000000001", 5)
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *table.SchemaError, got %v", err)
	}
}
