package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind describes the values a column holds once loaded.
type Kind string

const (
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindDate   Kind = "date"
	KindString Kind = "string"
	KindEmpty  Kind = "empty"
)

// Table is an in-memory, row-major tabular dataset. Cells hold nil (missing),
// float64, bool, string or time.Time.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable builds a table; rows shorter than the header are padded with nil.
func NewTable(columns []string, rows [][]any) *Table {
	t := &Table{Columns: append([]string(nil), columns...), Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		r := make([]any, len(columns))
		copy(r, row)
		t.Rows = append(t.Rows, r)
	}
	return t
}

func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns the values of one column, or nil when it does not exist.
func (t *Table) Column(name string) []any {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Clone deep-copies the row slices so the copy can be mutated freely.
func (t *Table) Clone() *Table {
	return NewTable(t.Columns, t.Rows)
}

// Select projects the table onto names in the given order. Unknown names are skipped.
func (t *Table) Select(names []string) *Table {
	var cols []string
	var idx []int
	for _, n := range names {
		if i := t.ColumnIndex(n); i >= 0 {
			cols = append(cols, n)
			idx = append(idx, i)
		}
	}
	out := &Table{Columns: cols, Rows: make([][]any, len(t.Rows))}
	for r, row := range t.Rows {
		nr := make([]any, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Head returns the first n rows (all rows when n exceeds the row count).
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return NewTable(t.Columns, t.Rows[:n])
}

// Records converts rows to column-keyed maps.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out[r] = rec
	}
	return out
}

// ColumnKind inspects the non-missing values of a column.
func (t *Table) ColumnKind(name string) Kind {
	return KindOf(t.Column(name))
}

// KindOf reports the common kind of values, ignoring missing cells.
func KindOf(values []any) Kind {
	kind := KindEmpty
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		var k Kind
		switch v.(type) {
		case float64, float32, int, int64, int32:
			k = KindNumber
		case bool:
			k = KindBool
		case time.Time:
			k = KindDate
		default:
			k = KindString
		}
		if kind == KindEmpty {
			kind = k
		} else if kind != k {
			return KindString
		}
	}
	return kind
}

// NumericColumns lists columns whose non-missing values are all numbers.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if t.ColumnKind(c) == KindNumber {
			out = append(out, c)
		}
	}
	return out
}

// IsNull reports whether v counts as missing. Non-finite floats do.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x) || math.IsInf(x, 0)
	case float32:
		return math.IsNaN(float64(x)) || math.IsInf(float64(x), 0)
	}
	return false
}

// ToFloat converts numeric cells. Strings and bools are not numbers.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Floats converts every value, failing on the first non-number.
func Floats(values []any) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("value %v (%T) is not numeric", v, v)
		}
		out = append(out, f)
	}
	return out, nil
}

func typeRank(v any) int {
	if _, ok := ToFloat(v); ok {
		return 0
	}
	switch v.(type) {
	case bool:
		return 1
	case time.Time:
		return 2
	}
	return 3
}

// Compare orders two non-missing cells: numbers, then bools, dates and strings.
func Compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 2:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// Key gives a map key that distinguishes values of different types.
func Key(v any) string {
	if f, ok := ToFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	}
	return "s:" + FormatValue(v)
}

// FormatValue renders a cell for labels and prompts.
func FormatValue(v any) string {
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Kinds   []Kind   `json:"kinds"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON keeps per-column kinds so dates survive a round-trip.
// Non-finite numbers are written as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	payload := tableJSON{Columns: t.Columns, Kinds: make([]Kind, len(t.Columns)), Rows: make([][]any, len(t.Rows))}
	for i, c := range t.Columns {
		payload.Kinds[i] = t.ColumnKind(c)
	}
	for r, row := range t.Rows {
		out := make([]any, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case time.Time:
				out[i] = x.Format(time.RFC3339Nano)
			case float64:
				if math.IsNaN(x) || math.IsInf(x, 0) {
					out[i] = nil
				} else {
					out[i] = x
				}
			default:
				out[i] = v
			}
		}
		payload.Rows[r] = out
	}
	return json.Marshal(payload)
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var payload tableJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	t.Columns = payload.Columns
	t.Rows = make([][]any, len(payload.Rows))
	for r, row := range payload.Rows {
		out := make([]any, len(t.Columns))
		copy(out, row)
		for i := range out {
			if i < len(payload.Kinds) && payload.Kinds[i] == KindDate {
				if s, ok := out[i].(string); ok {
					ts, err := time.Parse(time.RFC3339Nano, s)
					if err != nil {
						return fmt.Errorf("column %s row %d: %w", t.Columns[i], r, err)
					}
					out[i] = ts
				}
			}
		}
		t.Rows[r] = out
	}
	return nil
}
