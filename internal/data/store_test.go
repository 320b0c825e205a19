package data

import (
	"os"
	"path/filepath"
	"testing"

	"navira/internal/config"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		RecruitmentCSV: writeCSV(t, dir, "rec.csv",
			"finessGeoDP;codeGeo;nb\n000000001;75001;10\n"),
		CompetitorsCSV: writeCSV(t, dir, "comp.csv",
			"finessGeoDP;finessGeoDP_conc;TOT_conc;TOT_etb\n000000001;000000002;5;3\n"),
		CommunesCSV: writeCSV(t, dir, "communes.csv",
			"codeInsee;codePostal;nomCommune;latitude;longitude\n75101;75001;Paris 1er;48,86;2,34\n"),
		ComplicationsCSV: writeCSV(t, dir, "compl.csv",
			"finessGeoDP;trimestre;comp;n\n000000001;2024T1;1;20\n"),
	}
}

func TestReloadBuildsSnapshot(t *testing.T) {
	store := NewStore()
	if err := store.Reload(testConfig(t)); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.Recruitment.NumRows() != 1 || snap.Complications.NumRows() != 1 {
		t.Fatalf("rows: recruitment=%d complications=%d", snap.Recruitment.NumRows(), snap.Complications.NumRows())
	}
	if got := snap.Crosswalk["75001"]; len(got) != 1 || got[0] != "75101" {
		t.Fatalf("crosswalk[75001]=%v", got)
	}
	if snap.RecruitmentHash == "" || snap.ComplicationsHash == "" {
		t.Fatal("table hashes must be computed on reload")
	}
	if snap.GeometryLoaded {
		t.Fatal("no geojson configured, geometry must not be marked loaded")
	}
	if snap.LoadedAt.IsZero() {
		t.Fatal("LoadedAt must be set")
	}
}

func TestReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	cfg := testConfig(t)
	store := NewStore()
	if err := store.Reload(cfg); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	before := store.Snapshot()

	broken := cfg
	broken.RecruitmentCSV = filepath.Join(t.TempDir(), "missing.csv")
	if err := store.Reload(broken); err == nil {
		t.Fatal("expected error for missing source file")
	}

	if store.Snapshot() != before {
		t.Fatal("failed reload must not replace the snapshot")
	}
}

func TestEmptyStoreServesTypedTables(t *testing.T) {
	snap := NewStore().Snapshot()
	if snap == nil {
		t.Fatal("snapshot must never be nil")
	}
	for name, tb := range map[string]interface{ NumRows() int }{
		"recruitment":   snap.Recruitment,
		"competitors":   snap.Competitors,
		"communes":      snap.Communes,
		"complications": snap.Complications,
	} {
		if tb.NumRows() != 0 {
			t.Fatalf("%s: expected empty table", name)
		}
	}
}
