package geo

import (
	"fmt"
	"sort"

	"navira/internal/table"
)

// Paris, Lyon and Marseille appear in reference layers either as
// arrondissement-level communes or as a single city-level commune. The
// mapping below collapses the former onto the latter.
var arrondissementToCity = func() map[string]string {
	m := make(map[string]string)
	add := func(prefix string, from, to int, city string) {
		for i := from; i <= to; i++ {
			m[fmt.Sprintf("%s%02d", prefix, i)] = city
		}
	}
	add("751", 1, 20, "75056")  // Paris
	add("693", 81, 89, "69123") // Lyon
	add("132", 1, 16, "13055")  // Marseille
	return m
}()

// CollapseArrondissements merges arrondissement-level rows of an allocation
// table into the single city-level commune. It must run only when the target
// geometry lacks sub-city boundaries: when geometryHasArrondissements is true
// the table is returned as an untouched copy, because collapsing values that
// the geometry also carries per arrondissement would double-count them.
func CollapseArrondissements(t *table.Table, geometryHasArrondissements bool) (*table.Table, error) {
	if err := t.RequireColumns(AllocationColumns...); err != nil {
		return nil, err
	}
	if geometryHasArrondissements {
		return t.Clone(), nil
	}

	values := make(map[string]float64)
	for i := 0; i < t.NumRows(); i++ {
		code := t.String(i, "insee5")
		if city, ok := arrondissementToCity[code]; ok {
			code = city
		}
		values[code] += t.Float(i, "value")
	}

	out := table.New(AllocationColumns...)
	codes := make([]string, 0, len(values))
	for c := range values {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		out.AppendRow(c, values[c])
	}
	return out, nil
}

// IsArrondissement reports whether an INSEE code is an arrondissement-level
// commune of Paris, Lyon or Marseille.
func IsArrondissement(code string) bool {
	_, ok := arrondissementToCity[code]
	return ok
}
