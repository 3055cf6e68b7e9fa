package chart

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Validate checks a loose spec against the dataset's columns. It is a pure
// function: an error in the input is passed through, single-element lists are
// unwrapped, and the first failing rule decides the error message.
func Validate(raw RawSpec, columns []string) SpecResult {
	if raw == nil {
		return Failed("Missing chart type in response")
	}
	if e, ok := raw["error"]; ok && e != nil {
		if msg := stringValue(e); msg != "" {
			return Failed(msg)
		}
		return Failed("Chart spec generation failed")
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	spec := &ChartSpec{}

	chartName := stringValue(first(raw["chart"]))
	if chartName == "" {
		return Failed("Missing chart type in response")
	}
	ct, ok := ParseChartType(chartName)
	if !ok {
		return Failed(fmt.Sprintf("Invalid chart type: %s", chartName))
	}
	spec.Chart = ct

	for _, field := range []struct {
		key string
		dst *string
	}{{"x", &spec.X}, {"y", &spec.Y}} {
		name := stringValue(first(raw[field.key]))
		if name == "" {
			continue
		}
		if !known[name] {
			return Failed(fmt.Sprintf("Column '%s' not found in dataset", name))
		}
		*field.dst = name
	}

	if agg := stringValue(first(raw["agg"])); agg != "" {
		a, ok := ParseAggregation(agg)
		if !ok {
			return Failed(fmt.Sprintf("Invalid aggregation method: %s", agg))
		}
		spec.Agg = a
	}

	if sortBy := stringValue(first(raw["sort_by"])); sortBy != "" {
		if !known[sortBy] {
			return Failed(fmt.Sprintf("Sort column '%s' not found in dataset", sortBy))
		}
		spec.SortBy = sortBy
	}

	spec.SortOrder = ParseSortOrder(stringValue(first(raw["sort_order"])))

	switch cols := raw["columns_only"].(type) {
	case nil:
	case string:
		if strings.TrimSpace(cols) != "" {
			spec.ColumnsOnly = []string{strings.TrimSpace(cols)}
		}
	case []any:
		for _, c := range cols {
			if name := stringValue(c); name != "" {
				spec.ColumnsOnly = append(spec.ColumnsOnly, name)
			}
		}
	case []string:
		spec.ColumnsOnly = append(spec.ColumnsOnly, cols...)
	default:
		return Failed("columns_only must be a list")
	}
	var missing []string
	for _, c := range spec.ColumnsOnly {
		if !known[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Failed(fmt.Sprintf("Columns not found: [%s]", strings.Join(missing, ", ")))
	}

	spec.Limit = parseLimit(first(raw["limit"]))

	return SpecResult{Spec: spec}
}

// first unwraps a list to its first element; an empty list becomes nil.
func first(v any) any {
	switch list := v.(type) {
	case []any:
		if len(list) == 0 {
			return nil
		}
		return list[0]
	case []string:
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// parseLimit accepts positive integers, whole-valued floats and numeric
// strings. Anything else is dropped.
func parseLimit(v any) *int {
	if v == nil {
		return nil
	}
	var n int
	ok := false
	switch x := v.(type) {
	case int:
		n, ok = x, true
	case int64:
		n, ok = int(x), true
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) && x == math.Trunc(x) && x > math.MinInt && x < math.MaxInt {
			n, ok = int(x), true
		}
	case json.Number:
		if i, err := strconv.Atoi(x.String()); err == nil {
			n, ok = i, true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			n, ok = i, true
		}
	}
	if !ok || n <= 0 {
		log.Printf("[Validate] Dropping limit %v: not a positive integer", v)
		return nil
	}
	return &n
}
