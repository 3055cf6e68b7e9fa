package chart

import (
	"encoding/json"
	"strings"

	"vizora/domain/goal"
)

// ChartType is the closed set of charts the pipeline can produce.
type ChartType string

const (
	Bar       ChartType = "bar"
	Scatter   ChartType = "scatter"
	Histogram ChartType = "histogram"
	Line      ChartType = "line"
	Pie       ChartType = "pie"
	Box       ChartType = "box"
	Violin    ChartType = "violin"
	Area      ChartType = "area"
	Heatmap   ChartType = "heatmap"
	Sunburst  ChartType = "sunburst"
	Treemap   ChartType = "treemap"
	Funnel    ChartType = "funnel"
	Density   ChartType = "density"
)

// ChartTypes lists every supported chart in prompt order.
var ChartTypes = []ChartType{
	Bar, Scatter, Histogram, Line, Pie, Box, Violin, Area, Heatmap, Sunburst, Treemap, Funnel, Density,
}

var chartAliases = map[string]ChartType{
	"boxplot":  Box,
	"box_plot": Box,
}

// ParseChartType normalizes a model-provided chart name.
func ParseChartType(s string) (ChartType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := chartAliases[s]; ok {
		return alias, true
	}
	for _, c := range ChartTypes {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Aggregation reduces y within each group of x.
type Aggregation string

const (
	AggMean   Aggregation = "mean"
	AggSum    Aggregation = "sum"
	AggCount  Aggregation = "count"
	AggMedian Aggregation = "median"
	AggMax    Aggregation = "max"
	AggMin    Aggregation = "min"
)

var Aggregations = []Aggregation{AggMean, AggSum, AggCount, AggMedian, AggMax, AggMin}

func ParseAggregation(s string) (Aggregation, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Aggregations {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder is lenient: anything that is not a descending spelling sorts ascending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Desc
	}
	return Asc
}

// ChartSpec is a validated chart request. Every column it names exists in
// the dataset it was validated against.
type ChartSpec struct {
	Chart       ChartType   `json:"chart"`
	X           string      `json:"x,omitempty"`
	Y           string      `json:"y,omitempty"`
	Agg         Aggregation `json:"agg,omitempty"`
	SortBy      string      `json:"sort_by,omitempty"`
	SortOrder   SortOrder   `json:"sort_order,omitempty"`
	ColumnsOnly []string    `json:"columns_only,omitempty"`
	Limit       *int        `json:"limit,omitempty"`
}

// RawSpec is a loosely typed spec as decoded from model output.
type RawSpec map[string]any

// Raw converts a validated spec back to its loose form.
func (s ChartSpec) Raw() RawSpec {
	raw := RawSpec{"chart": string(s.Chart)}
	if s.X != "" {
		raw["x"] = s.X
	}
	if s.Y != "" {
		raw["y"] = s.Y
	}
	if s.Agg != "" {
		raw["agg"] = string(s.Agg)
	}
	if s.SortBy != "" {
		raw["sort_by"] = s.SortBy
	}
	if s.SortOrder != "" {
		raw["sort_order"] = string(s.SortOrder)
	}
	if len(s.ColumnsOnly) > 0 {
		cols := make([]any, len(s.ColumnsOnly))
		for i, c := range s.ColumnsOnly {
			cols[i] = c
		}
		raw["columns_only"] = cols
	}
	if s.Limit != nil {
		raw["limit"] = float64(*s.Limit)
	}
	return raw
}

// SpecResult is either a usable spec or the reason there is none.
type SpecResult struct {
	Spec  *ChartSpec
	Error string
}

// OK reports whether the result carries a renderable spec.
func (r SpecResult) OK() bool { return r.Error == "" && r.Spec != nil }

// Failed builds an error result.
func Failed(msg string) SpecResult { return SpecResult{Error: msg} }

func (r SpecResult) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	if r.Spec == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Spec)
}

func (r *SpecResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		*r = SpecResult{Error: *probe.Error}
		return nil
	}
	if string(data) == "null" {
		*r = SpecResult{}
		return nil
	}
	var spec ChartSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	*r = SpecResult{Spec: &spec}
	return nil
}

// GoalSpec pairs a goal with the spec generated for it.
type GoalSpec struct {
	Goal      goal.Goal  `json:"goal"`
	ChartSpec SpecResult `json:"chart_spec"`
}
