// Package preprocess shapes a table into the tidy frame a chart needs.
package preprocess

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/internal/errors"

	"github.com/montanaflynn/stats"
)

// Process applies projection, null filtering, aggregation, sorting and
// limiting, always in that order, to a private copy of table. Only projection
// can fail; the later steps log and skip when they cannot apply.
func Process(table *dataset.Table, spec chart.ChartSpec) (*dataset.Table, error) {
	if table == nil {
		return nil, errors.InvalidInput("no data to process")
	}
	frame := table.Clone()

	frame, err := project(frame, spec)
	if err != nil {
		return nil, err
	}
	frame = dropNulls(frame, spec)
	frame = aggregate(frame, spec)
	frame = sortFrame(frame, spec)
	frame = limit(frame, spec)
	return frame, nil
}

func project(frame *dataset.Table, spec chart.ChartSpec) (*dataset.Table, error) {
	if len(spec.ColumnsOnly) == 0 {
		return frame, nil
	}
	requested := append([]string{}, spec.ColumnsOnly...)
	if spec.SortBy != "" && !contains(requested, spec.SortBy) {
		requested = append(requested, spec.SortBy)
	}

	var present []string
	for _, c := range requested {
		if frame.HasColumn(c) && !contains(present, c) {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("None of the requested columns [%s] exist in the dataset", strings.Join(requested, ", ")))
	}
	return frame.Select(present), nil
}

// dropNulls removes rows missing x or y, for whichever of them the frame has.
func dropNulls(frame *dataset.Table, spec chart.ChartSpec) *dataset.Table {
	var idx []int
	for _, c := range []string{spec.X, spec.Y} {
		if c == "" {
			continue
		}
		if i := frame.ColumnIndex(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return frame
	}

	kept := frame.Rows[:0:0]
	for _, row := range frame.Rows {
		ok := true
		for _, i := range idx {
			if dataset.IsNull(row[i]) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}
	if dropped := len(frame.Rows) - len(kept); dropped > 0 {
		log.Printf("[Preprocess] Dropped %d rows with missing %s/%s", dropped, spec.X, spec.Y)
	}
	frame.Rows = kept
	return frame
}

type group struct {
	key    any
	values []any
}

// aggregate collapses the frame to one row per distinct x, ordered by x.
func aggregate(frame *dataset.Table, spec chart.ChartSpec) *dataset.Table {
	if spec.Agg == "" || spec.X == "" || spec.Y == "" {
		return frame
	}
	out, err := groupBy(frame, spec.X, spec.Y, spec.Agg)
	if err != nil {
		log.Printf("[Preprocess] Aggregation %s(%s) by %s failed, keeping raw rows: %v", spec.Agg, spec.Y, spec.X, err)
		return frame
	}
	return out
}

func groupBy(frame *dataset.Table, x, y string, agg chart.Aggregation) (*dataset.Table, error) {
	xi, yi := frame.ColumnIndex(x), frame.ColumnIndex(y)
	if xi < 0 || yi < 0 {
		return nil, fmt.Errorf("columns %q and %q must both be present", x, y)
	}

	byKey := make(map[string]*group)
	var groups []*group
	for _, row := range frame.Rows {
		k := dataset.Key(row[xi])
		g, ok := byKey[k]
		if !ok {
			g = &group{key: row[xi]}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, row[yi])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return dataset.Compare(groups[i].key, groups[j].key) < 0
	})

	columns := []string{x, y}
	if x == y {
		columns = []string{x}
	}
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		v, err := reduce(g.values, agg)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", dataset.FormatValue(g.key), err)
		}
		if x == y {
			rows = append(rows, []any{v})
			continue
		}
		rows = append(rows, []any{g.key, v})
	}
	return dataset.NewTable(columns, rows), nil
}

func reduce(values []any, agg chart.Aggregation) (any, error) {
	if agg == chart.AggCount {
		return len(values), nil
	}
	data, err := dataset.Floats(values)
	if err != nil {
		return nil, err
	}
	var v float64
	switch agg {
	case chart.AggMean:
		v, err = stats.Mean(data)
	case chart.AggSum:
		v, err = stats.Sum(data)
	case chart.AggMedian:
		v, err = stats.Median(data)
	case chart.AggMax:
		v, err = stats.Max(data)
	case chart.AggMin:
		v, err = stats.Min(data)
	default:
		return nil, fmt.Errorf("unsupported aggregation %q", agg)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// sortFrame is a stable sort with missing values last in either direction.
func sortFrame(frame *dataset.Table, spec chart.ChartSpec) *dataset.Table {
	if spec.SortBy == "" {
		return frame
	}
	i := frame.ColumnIndex(spec.SortBy)
	if i < 0 {
		log.Printf("[Preprocess] Sort column %s not in frame, skipping sort", spec.SortBy)
		return frame
	}
	desc := spec.SortOrder == chart.Desc
	sort.SliceStable(frame.Rows, func(a, b int) bool {
		va, vb := frame.Rows[a][i], frame.Rows[b][i]
		na, nb := dataset.IsNull(va), dataset.IsNull(vb)
		if na || nb {
			return !na && nb
		}
		c := dataset.Compare(va, vb)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return frame
}

func limit(frame *dataset.Table, spec chart.ChartSpec) *dataset.Table {
	if spec.Limit == nil {
		return frame
	}
	if *spec.Limit <= 0 {
		log.Printf("[Preprocess] Ignoring non-positive limit %d", *spec.Limit)
		return frame
	}
	return frame.Head(*spec.Limit)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
