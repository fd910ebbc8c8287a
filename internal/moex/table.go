package moex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

// Table is one columnar ISS block: a header and positional rows.
type Table struct {
	Columns []string
	Data    [][]any
}

// Row is a single ISS row keyed by column name.
type Row map[string]any

// Rows zips every data row with the column header. Short rows leave the
// trailing columns absent.
func (t Table) Rows() []Row {
	rows := make([]Row, 0, len(t.Data))
	for _, d := range t.Data {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(d) {
				row[col] = d[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// decodeTables extracts the named blocks from an ISS response body. Blocks
// missing from the payload are absent from the result.
func decodeTables(body []byte, blocks ...string) (map[string]Table, error) {
	var obj any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderPayload, err)
	}

	tables := make(map[string]Table, len(blocks))
	for _, name := range blocks {
		raw, err := jsonpath.Get("$."+name, obj)
		if err != nil {
			continue
		}
		block, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: block %q is not an object", apperrors.ErrProviderPayload, name)
		}

		var t Table
		cols, _ := block["columns"].([]any)
		for _, c := range cols {
			s, _ := c.(string)
			t.Columns = append(t.Columns, s)
		}
		data, _ := block["data"].([]any)
		for _, d := range data {
			if row, ok := d.([]any); ok {
				t.Data = append(t.Data, row)
			}
		}
		tables[name] = t
	}
	return tables, nil
}

// Get returns the value for a column, accepting the upper- and lower-case
// spellings ISS uses on different endpoints.
func (r Row) Get(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	if v, ok := r[strings.ToUpper(name)]; ok {
		return v, true
	}
	v, ok := r[strings.ToLower(name)]
	return v, ok
}

// String returns the column as text, or "" when absent or null.
func (r Row) String(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// Float returns the column as a number. Strings with a decimal comma are accepted.
func (r Row) Float(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// FloatPtr is Float returning nil when the value is missing.
func (r Row) FloatPtr(name string) *float64 {
	if v, ok := r.Float(name); ok {
		return &v
	}
	return nil
}

// Date parses a YYYY-MM-DD column. ISS encodes "no date" as 0000-00-00.
func (r Row) Date(name string) *time.Time {
	s := r.String(name)
	if s == "" || strings.HasPrefix(s, "0000") {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// firstFloat scans candidates in priority order and, for each, the rows in
// order, returning the first value accepted by keep.
func firstFloat(rows []Row, candidates []string, keep func(float64) bool) (float64, bool) {
	for _, name := range candidates {
		for _, row := range rows {
			if v, ok := row.Float(name); ok && keep(v) {
				return v, true
			}
		}
	}
	return 0, false
}
