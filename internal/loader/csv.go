// Package loader reads the semicolon-separated source CSVs and normalizes
// them into canonical tables: column names are renamed per source, identifier
// codes are zero-padded at the boundary, and comma-decimal percentage columns
// are cleaned up. The engines never see raw export column names.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"navira/internal/geo"
	"navira/internal/table"
)

// readSemicolonCSV reads all records of a semicolon-separated file. Files are
// expected in UTF-8 but legacy exports arrive in cp1252 or latin1; bytes that
// are not valid UTF-8 are decoded as cp1252 first, then latin1.
func readSemicolonCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
			decoded, decErr := cm.NewDecoder().Bytes(data)
			if decErr == nil {
				data = decoded
				break
			}
		}
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are skipped, not fatal: one corrupt line
			// must not take down a dashboard render.
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}
	return records, nil
}

// buildTable maps source headers to canonical names via renames and keeps
// only the wanted columns, in the given order. Rows missing a wanted column
// get an empty cell.
func buildTable(records [][]string, renames map[string]string, wanted []string) *table.Table {
	header := records[0]
	srcIndex := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if canonical, ok := renames[name]; ok {
			name = canonical
		}
		if _, dup := srcIndex[name]; !dup {
			srcIndex[name] = i
		}
	}

	t := table.New(wanted...)
	for _, rec := range records[1:] {
		row := make([]any, len(wanted))
		for j, col := range wanted {
			if i, ok := srcIndex[col]; ok && i < len(rec) {
				row[j] = strings.TrimSpace(rec[i])
			} else {
				row[j] = ""
			}
		}
		t.AppendRow(row...)
	}
	return t
}

func padColumn(t *table.Table, col string, width int) *table.Table {
	out := table.New(t.Columns()...)
	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			if c == col {
				row[j] = geo.ZeroPad(t.String(i, c), width)
			} else {
				row[j] = t.Value(i, c)
			}
		}
		out.AppendRow(row...)
	}
	return out
}

// cleanPercent strips "%" signs and turns comma decimals into dots so the
// lenient numeric accessor can parse the column.
func cleanPercent(t *table.Table, col string) *table.Table {
	if !t.HasColumn(col) {
		return t
	}
	out := table.New(t.Columns()...)
	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			v := t.String(i, c)
			if c == col {
				v = strings.ReplaceAll(v, "%", "")
				v = strings.ReplaceAll(v, ",", ".")
				v = strings.TrimSpace(v)
			}
			row[j] = v
		}
		out.AppendRow(row...)
	}
	return out
}

// LoadRecruitment loads a recruitment-zone export. Canonical columns:
// finess (9), postal (5), nb_patients, plus cleaned PCT/PCT_CUM when present.
func LoadRecruitment(path string) (*table.Table, error) {
	records, err := readSemicolonCSV(path)
	if err != nil {
		return nil, err
	}
	t := buildTable(records, map[string]string{
		"finessGeoDP": "finess",
		"codeGeo":     "postal",
		"nb":          "nb_patients",
	}, []string{"finess", "postal", "nb_patients", "PCT", "PCT_CUM"})
	t = padColumn(t, "finess", 9)
	t = padColumn(t, "postal", 5)
	t = cleanPercent(t, "PCT")
	t = cleanPercent(t, "PCT_CUM")
	return t, nil
}

// LoadCompetitors loads the competitor-volume export. Canonical columns:
// hospital_id (9), competitor_id (9), competitor_patients, hospital_patients.
func LoadCompetitors(path string) (*table.Table, error) {
	records, err := readSemicolonCSV(path)
	if err != nil {
		return nil, err
	}
	t := buildTable(records, map[string]string{
		"finessGeoDP":      "hospital_id",
		"finessGeoDP_conc": "competitor_id",
		"TOT_conc":         "competitor_patients",
		"TOT_etb":          "hospital_patients",
	}, []string{"hospital_id", "competitor_id", "competitor_patients", "hospital_patients"})
	t = padColumn(t, "hospital_id", 9)
	t = padColumn(t, "competitor_id", 9)
	return t, nil
}

// LoadCommunes loads the communes reference table. Canonical columns:
// insee (5), postal (5), name, latitude, longitude.
func LoadCommunes(path string) (*table.Table, error) {
	records, err := readSemicolonCSV(path)
	if err != nil {
		return nil, err
	}
	t := buildTable(records, map[string]string{
		"codeInsee":  "insee",
		"codePostal": "postal",
		"nomCommune": "name",
	}, []string{"insee", "postal", "name", "latitude", "longitude"})
	t = padColumn(t, "insee", 5)
	t = padColumn(t, "postal", 5)
	t = cleanPercent(t, "latitude")
	t = cleanPercent(t, "longitude")
	return t, nil
}

// LoadComplications loads the per-hospital per-quarter complication counts
// that feed the survival estimator. Canonical columns: finess (9), quarter,
// complications_count (events), procedures_count (at risk).
func LoadComplications(path string) (*table.Table, error) {
	records, err := readSemicolonCSV(path)
	if err != nil {
		return nil, err
	}
	t := buildTable(records, map[string]string{
		"finessGeoDP": "finess",
		"trimestre":   "quarter",
		"comp":        "complications_count",
		"n":           "procedures_count",
	}, []string{"finess", "quarter", "complications_count", "procedures_count"})
	t = padColumn(t, "finess", 9)
	return t, nil
}
