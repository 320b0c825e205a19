package geo

import "navira/internal/table"

// Crosswalk maps a postal code to the INSEE commune codes it covers. The
// relationship is many-to-many: dense urban postal codes span several
// communes, and occasionally one commune spans multiple postal codes.
type Crosswalk map[string][]string

// BuildCrosswalk derives the postal-to-INSEE crosswalk from the communes
// reference table (canonical columns "postal" and "insee"). Duplicate INSEE
// codes under one postal code are removed; empty codes are skipped.
func BuildCrosswalk(communes *table.Table) (Crosswalk, error) {
	if err := communes.RequireColumns("postal", "insee"); err != nil {
		return nil, err
	}
	cw := make(Crosswalk)
	seen := make(map[string]map[string]bool)
	for i := 0; i < communes.NumRows(); i++ {
		postal := ZeroPad(communes.String(i, "postal"), 5)
		insee := NormalizeINSEE(communes.String(i, "insee"))
		if postal == "00000" || insee == "00000" {
			continue
		}
		if seen[postal] == nil {
			seen[postal] = make(map[string]bool)
		}
		if seen[postal][insee] {
			continue
		}
		seen[postal][insee] = true
		cw[postal] = append(cw[postal], insee)
	}
	return cw, nil
}
