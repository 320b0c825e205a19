package geo

import (
	"sort"

	"navira/internal/table"
)

// Canonical competitor table columns produced by the loader.
const (
	colHospitalID         = "hospital_id"
	colCompetitorID       = "competitor_id"
	colCompetitorPatients = "competitor_patients"
	colHospitalPatients   = "hospital_patients"
)

// RankCompetitors returns the FINESS codes of the top n competitors of the
// focal hospital, ranked by the competitor's total patient volume descending
// with the focal hospital's own volume in that row as a descending tie-break.
// The sort is stable, so ties beyond both keys keep their table order and the
// result is deterministic. A focal id with no rows yields an empty slice.
func RankCompetitors(competitors *table.Table, finess string, n int) ([]string, error) {
	if err := competitors.RequireColumns(colHospitalID, colCompetitorID, colCompetitorPatients, colHospitalPatients); err != nil {
		return nil, err
	}
	focal := ZeroPad(finess, 9)

	type entry struct {
		id   string
		conc float64
		etb  float64
	}
	var entries []entry
	for i := 0; i < competitors.NumRows(); i++ {
		if ZeroPad(competitors.String(i, colHospitalID), 9) != focal {
			continue
		}
		id := competitors.String(i, colCompetitorID)
		if id == "" {
			continue
		}
		entries = append(entries, entry{
			id:   ZeroPad(id, 9),
			conc: competitors.Float(i, colCompetitorPatients),
			etb:  competitors.Float(i, colHospitalPatients),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].conc != entries[j].conc {
			return entries[i].conc > entries[j].conc
		}
		return entries[i].etb > entries[j].etb
	})

	if n < 0 {
		n = 0
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, 0, n)
	for _, e := range entries[:n] {
		out = append(out, e.id)
	}
	return out, nil
}
