package geo

import (
	"fmt"
	"sort"

	"navira/internal/table"
)

// AllocationMode selects how a postal code's patient count is distributed
// across the communes it maps to.
type AllocationMode string

const (
	// EvenSplit divides the count by the number of mapped communes, so the
	// allocated total equals the matched input total (mass conservation).
	EvenSplit AllocationMode = "even_split"
	// NoSplit assigns the full count to every mapped commune. The total is
	// inflated by duplication; callers must not sum across communes and
	// expect the postal-code total back.
	NoSplit AllocationMode = "no_split"
)

// ParseAllocationMode validates a mode string from config or a request.
func ParseAllocationMode(s string) (AllocationMode, error) {
	switch AllocationMode(s) {
	case EvenSplit, NoSplit:
		return AllocationMode(s), nil
	}
	return "", fmt.Errorf("unknown allocation mode %q (want %q or %q)", s, EvenSplit, NoSplit)
}

// Diagnostics reconciles an allocation run for UI display.
type Diagnostics struct {
	TotalPostalCodes  int      `json:"total_postal_codes"`
	Matched           int      `json:"matched"`
	Unmatched         int      `json:"unmatched"`
	UnmatchedExamples []string `json:"unmatched_examples"`
	OriginalTotal     float64  `json:"original_total"`
	AllocatedTotal    float64  `json:"allocated_total"`
	// AllocationDifference is allocated minus original. Near zero under
	// even_split when every postal code matched; nonzero under no_split by
	// design.
	AllocationDifference float64 `json:"allocation_difference"`
}

const maxUnmatchedExamples = 10

// Allocation output columns.
var AllocationColumns = []string{"insee5", "value"}

// Canonical recruitment table columns produced by the loader.
const (
	colFINESS   = "finess"
	colPostal   = "postal"
	colPatients = "nb_patients"
)

// AllocateToCommunes redistributes one competitor's postal-code-level
// recruitment counts onto INSEE communes using the crosswalk. Postal codes
// absent from the crosswalk contribute nothing to the output but are counted
// (with up to 10 examples) in the diagnostics. Contributions are grouped by
// commune and summed, and the output is ordered by commune code.
//
// An empty recruitment table, or no rows for the competitor, yields a typed
// empty table and zero-valued diagnostics, never an error. Malformed patient
// counts coerce to 0.
func AllocateToCommunes(recruitment *table.Table, competitorFINESS string, cw Crosswalk, mode AllocationMode) (*table.Table, Diagnostics, error) {
	if err := recruitment.RequireColumns(colFINESS, colPostal, colPatients); err != nil {
		return nil, Diagnostics{}, err
	}
	if _, err := ParseAllocationMode(string(mode)); err != nil {
		return nil, Diagnostics{}, err
	}
	focal := ZeroPad(competitorFINESS, 9)

	var diag Diagnostics
	values := make(map[string]float64)
	unmatchedSeen := make(map[string]bool)

	for i := 0; i < recruitment.NumRows(); i++ {
		if ZeroPad(recruitment.String(i, colFINESS), 9) != focal {
			continue
		}
		postal := ZeroPad(recruitment.String(i, colPostal), 5)
		patients := recruitment.Float(i, colPatients)

		diag.TotalPostalCodes++
		diag.OriginalTotal += patients

		inseeCodes := cw[postal]
		if len(inseeCodes) == 0 {
			diag.Unmatched++
			if !unmatchedSeen[postal] && len(diag.UnmatchedExamples) < maxUnmatchedExamples {
				unmatchedSeen[postal] = true
				diag.UnmatchedExamples = append(diag.UnmatchedExamples, postal)
			}
			continue
		}
		diag.Matched++

		alloc := patients
		if mode == EvenSplit {
			alloc = patients / float64(len(inseeCodes))
		}
		for _, insee := range inseeCodes {
			values[NormalizeINSEE(insee)] += alloc
		}
	}

	out := table.New(AllocationColumns...)
	codes := make([]string, 0, len(values))
	for c := range values {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		out.AppendRow(c, values[c])
		diag.AllocatedTotal += values[c]
	}
	diag.AllocationDifference = diag.AllocatedTotal - diag.OriginalTotal
	return out, diag, nil
}

// Summary renders diagnostics as a one-line human-readable string.
func (d Diagnostics) Summary() string {
	if d.TotalPostalCodes == 0 {
		return "No data available"
	}
	rate := float64(d.Matched) / float64(d.TotalPostalCodes) * 100
	s := fmt.Sprintf("%d/%d postal codes mapped (%.1f%%)", d.Matched, d.TotalPostalCodes, rate)
	if d.Unmatched > 0 {
		s += fmt.Sprintf(" | %d unmatched", d.Unmatched)
		if len(d.UnmatchedExamples) > 0 {
			n := len(d.UnmatchedExamples)
			if n > 3 {
				n = 3
			}
			s += " (e.g., "
			for i := 0; i < n; i++ {
				if i > 0 {
					s += ", "
				}
				s += d.UnmatchedExamples[i]
			}
			s += ")"
		}
	}
	if d.AllocationDifference > 0.01 || d.AllocationDifference < -0.01 {
		s += fmt.Sprintf(" | total: %.0f -> %.0f", d.OriginalTotal, d.AllocatedTotal)
	}
	return s
}
