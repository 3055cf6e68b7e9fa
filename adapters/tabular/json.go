package tabular

import (
	"fmt"
	"io"

	"vizora/domain/dataset"

	"github.com/tidwall/gjson"
)

// readJSON accepts an array of records, a single record, or an object of
// column arrays. Key order of the first appearance is kept.
func readJSON(r io.Reader) (*dataset.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	switch {
	case doc.IsArray():
		return recordsTable(doc.Array())
	case doc.IsObject():
		if isColumnar(doc) {
			return columnarTable(doc)
		}
		return recordsTable([]gjson.Result{doc})
	}
	return nil, fmt.Errorf("JSON must be an array of objects or an object")
}

func isColumnar(doc gjson.Result) bool {
	columnar := true
	doc.ForEach(func(_, value gjson.Result) bool {
		if !value.IsArray() {
			columnar = false
			return false
		}
		return true
	})
	return columnar
}

func recordsTable(records []gjson.Result) (*dataset.Table, error) {
	var columns []string
	index := map[string]int{}
	for _, rec := range records {
		if !rec.IsObject() {
			return nil, fmt.Errorf("expected JSON object records, got %s", rec.Type)
		}
		rec.ForEach(func(key, _ gjson.Result) bool {
			if _, ok := index[key.String()]; !ok {
				index[key.String()] = len(columns)
				columns = append(columns, key.String())
			}
			return true
		})
	}

	raw := make([][]gjson.Result, len(columns))
	for c := range raw {
		raw[c] = make([]gjson.Result, len(records))
	}
	for r, rec := range records {
		rec.ForEach(func(key, value gjson.Result) bool {
			raw[index[key.String()]][r] = value
			return true
		})
	}
	return buildJSONTable(columns, raw, len(records)), nil
}

func columnarTable(doc gjson.Result) (*dataset.Table, error) {
	var columns []string
	var raw [][]gjson.Result
	rows := 0
	doc.ForEach(func(key, value gjson.Result) bool {
		columns = append(columns, key.String())
		values := value.Array()
		if len(values) > rows {
			rows = len(values)
		}
		raw = append(raw, values)
		return true
	})
	for c := range raw {
		for len(raw[c]) < rows {
			raw[c] = append(raw[c], gjson.Result{})
		}
	}
	return buildJSONTable(columns, raw, rows), nil
}

func buildJSONTable(columns []string, raw [][]gjson.Result, rows int) *dataset.Table {
	table := &dataset.Table{Columns: columns, Rows: make([][]any, rows)}
	for r := range table.Rows {
		table.Rows[r] = make([]any, len(columns))
	}
	for c, values := range raw {
		for r, v := range jsonColumn(values) {
			table.Rows[r][c] = v
		}
	}
	return table
}

// jsonColumn keeps JSON's own types; a column made only of strings gets the
// same date detection as delimited files.
func jsonColumn(values []gjson.Result) []any {
	out := make([]any, len(values))
	allStrings := true
	var strs []string
	for i, v := range values {
		switch v.Type {
		case gjson.Null:
			strs = append(strs, "")
		case gjson.Number:
			out[i] = v.Float()
			allStrings = false
		case gjson.True, gjson.False:
			out[i] = v.Bool()
			allStrings = false
		case gjson.String:
			out[i] = v.String()
			strs = append(strs, v.String())
		default:
			if v.Raw == "" {
				strs = append(strs, "")
				continue
			}
			out[i] = v.Raw
			allStrings = false
		}
	}
	if !allStrings || len(strs) != len(values) {
		return out
	}

	dates := make([]any, len(values))
	nonNull := 0
	for i, s := range strs {
		if isNullToken(s) {
			continue
		}
		ts, ok := parseDate(s)
		if !ok {
			return out
		}
		dates[i] = ts
		nonNull++
	}
	if nonNull == 0 {
		return out
	}
	return dates
}
