package table

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// SchemaError reports required columns missing from an input table. It is
// always surfaced to the caller: a missing column is an integration bug, not
// bad data.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Table is an in-memory table with named, ordered columns. Cells hold either
// strings or float64 values; accessors apply the lenient coercion policy used
// throughout the analytics core (malformed numeric cells read as 0).
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row. Short rows are padded with nil, long rows truncated,
// so a partially corrupt source row never misaligns later columns.
func (t *Table) AppendRow(values ...any) {
	row := make([]any, len(t.columns))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	t.rows = append(t.rows, row)
}

// Value returns the raw cell, or nil when the row or column does not exist.
func (t *Table) Value(row int, col string) any {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row][i]
}

// String returns the cell rendered as a string. Numeric cells use the
// shortest round-trip representation; nil renders as "".
func (t *Table) String(row int, col string) string {
	return cellString(t.Value(row, col))
}

// Float returns the cell coerced to a number. Strings are trimmed and parsed
// with comma decimals accepted; anything unparseable (or missing) is 0.
func (t *Table) Float(row int, col string) float64 {
	switch v := t.Value(row, col).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Clone returns an independent deep copy.
func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = append([]any(nil), row...)
	}
	return out
}

// RequireColumns returns a *SchemaError naming every missing column, or nil
// when all are present.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Hash returns the md5 hex digest of the table's CSV serialization. Equal
// content yields equal hashes regardless of how the table was built, which
// makes it usable as a cache key component.
func (t *Table) Hash() string {
	h := md5.New()
	w := csv.NewWriter(h)
	_ = w.Write(t.columns)
	for i := range t.rows {
		record := make([]string, len(t.columns))
		for j := range t.columns {
			record[j] = cellString(t.rows[i][j])
		}
		_ = w.Write(record)
	}
	w.Flush()
	return hex.EncodeToString(h.Sum(nil))
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'g', -1, 32)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	default:
		return fmt.Sprintf("%v", c)
	}
}
