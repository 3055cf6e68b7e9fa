package render

import (
	"fmt"
	"sort"

	"vizora/domain/chart"
	"vizora/domain/dataset"
)

const histogramBins = 20

// InteractiveEngine builds Plotly figure payloads: {"data": [...], "layout": {...}}.
type InteractiveEngine struct{}

func NewInteractiveEngine() *InteractiveEngine { return &InteractiveEngine{} }

func (e *InteractiveEngine) Name() chart.Engine { return chart.EngineInteractive }

// Render returns a sanitized figure map.
func (e *InteractiveEngine) Render(frame *dataset.Table, spec chart.ChartSpec) (any, error) {
	if frame == nil {
		return nil, fmt.Errorf("no data to render")
	}
	ct, ok := chart.ParseChartType(string(spec.Chart))
	if !ok {
		return nil, fmt.Errorf("Unsupported chart type: %s", spec.Chart)
	}
	spec.Chart = ct
	if spec.Chart != chart.Heatmap {
		if err := requireColumns(frame, spec); err != nil {
			return nil, err
		}
	}

	var traces []map[string]any
	var err error
	yTitle := axisLabel(spec.Y, "Count")

	switch spec.Chart {
	case chart.Bar:
		traces, err = barTraces(frame, spec)
	case chart.Pie:
		traces, err = pieTraces(frame, spec)
	case chart.Scatter:
		traces, err = xyTraces(frame, spec, "Scatter plot", map[string]any{"type": "scatter", "mode": "markers"}, false)
	case chart.Histogram:
		traces = []map[string]any{{"type": "histogram", "x": frame.Column(spec.X), "nbinsx": histogramBins}}
	case chart.Line:
		traces, err = xyTraces(frame, spec, "Line plot", map[string]any{"type": "scatter", "mode": "lines"}, true)
	case chart.Area:
		traces, err = xyTraces(frame, spec, "Area plot", map[string]any{"type": "scatter", "mode": "lines", "fill": "tozeroy"}, true)
	case chart.Box:
		traces = boxTraces(frame, spec)
		if spec.Y == "" {
			yTitle = axisLabel(spec.X, "Value")
		}
	case chart.Violin:
		traces, err = xyTraces(frame, spec, "Violin plot", map[string]any{"type": "violin", "box": map[string]any{"visible": true}}, false)
	case chart.Heatmap:
		traces, err = heatmapTraces(frame)
	case chart.Sunburst:
		traces, err = hierarchyTraces(frame, spec, "Sunburst chart", "sunburst")
	case chart.Treemap:
		traces, err = hierarchyTraces(frame, spec, "Treemap", "treemap")
	case chart.Funnel:
		traces, err = funnelTraces(frame, spec)
	case chart.Density:
		traces = densityTraces(frame, spec)
	}
	if err != nil {
		return nil, err
	}

	fig := map[string]any{
		"data": traces,
		"layout": map[string]any{
			"title": map[string]any{
				"text": Title(spec),
				"font": map[string]any{"size": 16},
			},
			"xaxis": map[string]any{"title": map[string]any{"text": axisLabel(spec.X, "")}},
			"yaxis": map[string]any{"title": map[string]any{"text": yTitle}},
		},
	}
	return Sanitize(fig), nil
}

// requireColumns checks that the axes the spec names survived preprocessing.
func requireColumns(frame *dataset.Table, spec chart.ChartSpec) error {
	if spec.X == "" {
		return fmt.Errorf("%s chart requires an x column", Humanize(string(spec.Chart)))
	}
	for _, c := range []string{spec.X, spec.Y} {
		if c != "" && !frame.HasColumn(c) {
			return fmt.Errorf("Column '%s' not in processed data", c)
		}
	}
	return nil
}

func barTraces(frame *dataset.Table, spec chart.ChartSpec) ([]map[string]any, error) {
	if spec.Y != "" {
		return []map[string]any{{"type": "bar", "x": frame.Column(spec.X), "y": frame.Column(spec.Y)}}, nil
	}
	labels, counts := valueCounts(frame.Column(spec.X))
	return []map[string]any{{"type": "bar", "x": labels, "y": counts}}, nil
}

func pieTraces(frame *dataset.Table, spec chart.ChartSpec) ([]map[string]any, error) {
	if spec.Y == "" {
		labels, counts := valueCounts(frame.Column(spec.X))
		return []map[string]any{{"type": "pie", "labels": labels, "values": counts}}, nil
	}
	labels, sums, err := sumBy(frame.Column(spec.X), frame.Column(spec.Y))
	if err != nil {
		return nil, fmt.Errorf("Pie chart values must be numeric: %w", err)
	}
	return []map[string]any{{"type": "pie", "labels": labels, "values": sums}}, nil
}

// xyTraces covers the charts that need both axes. Sorted traces are ordered
// by x before plotting.
func xyTraces(frame *dataset.Table, spec chart.ChartSpec, name string, base map[string]any, sorted bool) ([]map[string]any, error) {
	if spec.Y == "" {
		return nil, fmt.Errorf("%s requires both x and y columns", name)
	}
	xs, ys := frame.Column(spec.X), frame.Column(spec.Y)
	if sorted {
		xs, ys = sortByX(xs, ys)
	}
	trace := make(map[string]any, len(base)+2)
	for k, v := range base {
		trace[k] = v
	}
	trace["x"], trace["y"] = xs, ys
	return []map[string]any{trace}, nil
}

func boxTraces(frame *dataset.Table, spec chart.ChartSpec) []map[string]any {
	if spec.Y == "" {
		return []map[string]any{{"type": "box", "y": frame.Column(spec.X), "name": Humanize(spec.X)}}
	}
	return []map[string]any{{"type": "box", "x": frame.Column(spec.X), "y": frame.Column(spec.Y)}}
}

func heatmapTraces(frame *dataset.Table) ([]map[string]any, error) {
	columns, matrix, err := correlationMatrix(frame)
	if err != nil {
		return nil, err
	}
	return []map[string]any{{
		"type":       "heatmap",
		"z":          matrix,
		"x":          columns,
		"y":          columns,
		"colorscale": "RdBu",
		"zmin":       -1,
		"zmax":       1,
	}}, nil
}

func hierarchyTraces(frame *dataset.Table, spec chart.ChartSpec, name, kind string) ([]map[string]any, error) {
	if spec.Y == "" {
		return nil, fmt.Errorf("%s requires both x and y columns", name)
	}
	labels, sums, err := sumBy(frame.Column(spec.X), frame.Column(spec.Y))
	if err != nil {
		return nil, fmt.Errorf("%s values must be numeric: %w", name, err)
	}
	parents := make([]string, len(labels))
	return []map[string]any{{"type": kind, "labels": labels, "parents": parents, "values": sums}}, nil
}

func funnelTraces(frame *dataset.Table, spec chart.ChartSpec) ([]map[string]any, error) {
	if spec.Y == "" {
		return nil, fmt.Errorf("Funnel chart requires both x and y columns")
	}
	xs := frame.Column(spec.X)
	labels := make([]string, len(xs))
	for i, v := range xs {
		labels[i] = dataset.FormatValue(v)
	}
	return []map[string]any{{"type": "funnel", "x": frame.Column(spec.Y), "y": labels}}, nil
}

func densityTraces(frame *dataset.Table, spec chart.ChartSpec) []map[string]any {
	if spec.Y != "" {
		return []map[string]any{{"type": "histogram2dcontour", "x": frame.Column(spec.X), "y": frame.Column(spec.Y)}}
	}
	return []map[string]any{{"type": "histogram", "x": frame.Column(spec.X), "histnorm": "probability density", "nbinsx": histogramBins}}
}

// valueCounts tallies distinct values, most frequent first; ties keep
// first-seen order.
func valueCounts(values []any) ([]string, []int) {
	index := make(map[string]int)
	var labels []string
	var counts []int
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		k := dataset.Key(v)
		i, ok := index[k]
		if !ok {
			i = len(labels)
			index[k] = i
			labels = append(labels, dataset.FormatValue(v))
			counts = append(counts, 0)
		}
		counts[i]++
	}
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

	outLabels := make([]string, len(order))
	outCounts := make([]int, len(order))
	for i, o := range order {
		outLabels[i], outCounts[i] = labels[o], counts[o]
	}
	return outLabels, outCounts
}

// sumBy totals ys per distinct x, in first-seen order.
func sumBy(xs, ys []any) ([]string, []float64, error) {
	index := make(map[string]int)
	var labels []string
	var sums []float64
	for i, x := range xs {
		if dataset.IsNull(x) || dataset.IsNull(ys[i]) {
			continue
		}
		y, ok := dataset.ToFloat(ys[i])
		if !ok {
			return nil, nil, fmt.Errorf("value %v is not numeric", ys[i])
		}
		k := dataset.Key(x)
		j, seen := index[k]
		if !seen {
			j = len(labels)
			index[k] = j
			labels = append(labels, dataset.FormatValue(x))
			sums = append(sums, 0)
		}
		sums[j] += y
	}
	return labels, sums, nil
}

// sortByX returns copies of xs and ys ordered by x, missing x last.
func sortByX(xs, ys []any) ([]any, []any) {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := xs[idx[a]], xs[idx[b]]
		if dataset.IsNull(va) || dataset.IsNull(vb) {
			return !dataset.IsNull(va) && dataset.IsNull(vb)
		}
		return dataset.Compare(va, vb) < 0
	})
	outX := make([]any, len(idx))
	outY := make([]any, len(idx))
	for i, j := range idx {
		outX[i], outY[i] = xs[j], ys[j]
	}
	return outX, outY
}
