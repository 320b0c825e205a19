// Package data holds the loaded source tables behind a read-write lock so
// request handlers always see a consistent snapshot while the scheduler
// reloads in the background.
package data

import (
	"log"
	"sync"
	"time"

	"navira/internal/config"
	"navira/internal/geo"
	"navira/internal/geojson"
	"navira/internal/loader"
	"navira/internal/table"
)

// Snapshot is one immutable view of the loaded data. Handlers read from a
// snapshot; Reload builds a new one and swaps it in atomically.
type Snapshot struct {
	Recruitment   *table.Table
	Competitors   *table.Table
	Communes      *table.Table
	Complications *table.Table

	Crosswalk geo.Crosswalk

	// Content hashes, computed once per load so every request can key the
	// result cache without rehashing the tables.
	RecruitmentHash   string
	CompetitorsHash   string
	ComplicationsHash string

	// Whether the configured geometry carries arrondissement-level communes
	// for Paris/Lyon/Marseille. Drives the collapse step on allocation
	// output: collapsing runs only when this is false and geometry is known.
	GeometryLoaded             bool
	GeometryHasArrondissements bool

	LoadedAt time.Time
}

type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewStore() *Store {
	return &Store{snap: emptySnapshot()}
}

func emptySnapshot() *Snapshot {
	rec := table.New("finess", "postal", "nb_patients")
	comp := table.New("hospital_id", "competitor_id", "competitor_patients", "hospital_patients")
	communes := table.New("insee", "postal", "name", "latitude", "longitude")
	compl := table.New("finess", "quarter", "complications_count", "procedures_count")
	return &Snapshot{
		Recruitment:       rec,
		Competitors:       comp,
		Communes:          communes,
		Complications:     compl,
		Crosswalk:         geo.Crosswalk{},
		RecruitmentHash:   rec.Hash(),
		CompetitorsHash:   comp.Hash(),
		ComplicationsHash: compl.Hash(),
	}
}

// Snapshot returns the current view. Never nil.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload loads every source table from disk and swaps the snapshot. On error
// the previous snapshot stays in place, so a broken export does not blank the
// dashboard.
func (s *Store) Reload(cfg config.Config) error {
	rec, err := loader.LoadRecruitment(cfg.RecruitmentCSV)
	if err != nil {
		return err
	}
	comp, err := loader.LoadCompetitors(cfg.CompetitorsCSV)
	if err != nil {
		return err
	}
	communes, err := loader.LoadCommunes(cfg.CommunesCSV)
	if err != nil {
		return err
	}
	compl, err := loader.LoadComplications(cfg.ComplicationsCSV)
	if err != nil {
		return err
	}
	cw, err := geo.BuildCrosswalk(communes)
	if err != nil {
		return err
	}

	snap := &Snapshot{
		Recruitment:       rec,
		Competitors:       comp,
		Communes:          communes,
		Complications:     compl,
		Crosswalk:         cw,
		RecruitmentHash:   rec.Hash(),
		CompetitorsHash:   comp.Hash(),
		ComplicationsHash: compl.Hash(),
		LoadedAt:          time.Now(),
	}

	if cfg.GeoJSONPath != "" {
		fc, diag := geojson.Load(cfg.GeoJSONPath)
		if fc != nil {
			snap.GeometryLoaded = true
			snap.GeometryHasArrondissements = geojson.HasArrondissements(fc, diag.INSEEKey)
			log.Printf("Geometry loaded: %d features, insee_key=%s arrondissements=%v",
				diag.FeatureCount, diag.INSEEKey, snap.GeometryHasArrondissements)
		} else {
			log.Printf("Geometry unavailable: %v", diag.Errors)
		}
	}

	log.Printf("Data loaded: recruitment=%d competitors=%d communes=%d complications=%d postal_codes=%d",
		rec.NumRows(), comp.NumRows(), communes.NumRows(), compl.NumRows(), len(cw))

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}
