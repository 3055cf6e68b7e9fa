package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"sort"

	"vizora/domain/chart"
	"vizora/domain/dataset"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var staticTypes = map[chart.ChartType]bool{
	chart.Bar: true, chart.Pie: true, chart.Scatter: true, chart.Histogram: true, chart.Line: true,
	chart.Box: true, chart.Violin: true, chart.Area: true, chart.Heatmap: true,
}

// StaticEngine draws PNG charts with gonum/plot and returns them as data URIs.
type StaticEngine struct {
	Width  vg.Length
	Height vg.Length
}

func NewStaticEngine() *StaticEngine {
	return &StaticEngine{Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

func (e *StaticEngine) Name() chart.Engine { return chart.EngineStatic }

func (e *StaticEngine) Render(frame *dataset.Table, spec chart.ChartSpec) (any, error) {
	if frame == nil {
		return nil, fmt.Errorf("no data to render")
	}
	ct, ok := chart.ParseChartType(string(spec.Chart))
	if !ok || !staticTypes[ct] {
		return nil, fmt.Errorf("Unsupported chart type: %s", spec.Chart)
	}
	spec.Chart = ct
	if ct != chart.Heatmap {
		if err := requireColumns(frame, spec); err != nil {
			return nil, err
		}
	}

	p := plot.New()
	p.Title.Text = Title(spec)
	p.X.Label.Text = axisLabel(spec.X, "")
	p.Y.Label.Text = axisLabel(spec.Y, "Count")

	var err error
	switch ct {
	case chart.Bar:
		err = staticBar(p, frame, spec)
	case chart.Pie:
		err = staticPie(p, frame, spec)
	case chart.Scatter:
		err = staticXY(p, frame, spec, "Scatter plot")
	case chart.Histogram:
		err = staticHistogram(p, frame, spec)
	case chart.Line:
		err = staticXY(p, frame, spec, "Line plot")
	case chart.Area:
		err = staticXY(p, frame, spec, "Area plot")
	case chart.Box:
		err = staticBox(p, frame, spec)
	case chart.Violin:
		err = staticViolin(p, frame, spec)
	case chart.Heatmap:
		err = staticHeatmap(p, frame)
	}
	if err != nil {
		return nil, err
	}
	return e.encode(p)
}

func (e *StaticEngine) encode(p *plot.Plot) (string, error) {
	wt, err := p.WriterTo(e.Width, e.Height, "png")
	if err != nil {
		return "", fmt.Errorf("failed to render png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func staticBar(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec) error {
	var labels []string
	var values plotter.Values
	if spec.Y == "" {
		var counts []int
		labels, counts = valueCounts(frame.Column(spec.X))
		for _, c := range counts {
			values = append(values, float64(c))
		}
	} else {
		xs, ys := frame.Column(spec.X), frame.Column(spec.Y)
		for i, y := range ys {
			if dataset.IsNull(y) {
				continue
			}
			f, ok := dataset.ToFloat(y)
			if !ok {
				return fmt.Errorf("Column '%s' is not numeric", spec.Y)
			}
			labels = append(labels, dataset.FormatValue(xs[i]))
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("no values to plot")
	}

	width := vg.Points(math.Max(4, math.Min(40, 400/float64(len(values)))))
	bars, err := plotter.NewBarChart(values, width)
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return nil
}

func staticPie(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec) error {
	var labels []string
	var values []float64
	if spec.Y == "" {
		var counts []int
		labels, counts = valueCounts(frame.Column(spec.X))
		for _, c := range counts {
			values = append(values, float64(c))
		}
	} else {
		var err error
		labels, values, err = sumBy(frame.Column(spec.X), frame.Column(spec.Y))
		if err != nil {
			return fmt.Errorf("Pie chart values must be numeric: %w", err)
		}
	}
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("Pie chart values must be non-negative")
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("no values to plot")
	}

	p.Add(pieChart{values: values})
	p.HideAxes()
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1
	p.Legend.Top = true
	for i, l := range labels {
		p.Legend.Add(l, swatch{color: plotutil.Color(i)})
	}
	return nil
}

func staticXY(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec, name string) error {
	if spec.Y == "" {
		return fmt.Errorf("%s requires both x and y columns", name)
	}
	xs, ys := frame.Column(spec.X), frame.Column(spec.Y)
	if spec.Chart != chart.Scatter {
		xs, ys = sortByX(xs, ys)
	}
	pts, err := xyPoints(p, xs, ys, spec.Y)
	if err != nil {
		return err
	}

	if spec.Chart == chart.Scatter {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(0)
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		return nil
	}

	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.Color = plotutil.Color(0)
	l.Width = vg.Points(1.5)
	if spec.Chart == chart.Area {
		l.FillColor = color.NRGBA{R: 31, G: 119, B: 180, A: 90}
	}
	p.Add(l)
	return nil
}

// xyPoints maps x to numbers: numeric x as is, dates as unix seconds with
// date ticks, anything else as category positions.
func xyPoints(p *plot.Plot, xs, ys []any, yName string) (plotter.XYs, error) {
	kind := dataset.KindOf(xs)
	var pts plotter.XYs
	var labels []string
	for i := range xs {
		if dataset.IsNull(xs[i]) || dataset.IsNull(ys[i]) {
			continue
		}
		y, ok := dataset.ToFloat(ys[i])
		if !ok {
			return nil, fmt.Errorf("Column '%s' is not numeric", yName)
		}
		var x float64
		switch kind {
		case dataset.KindNumber:
			x, _ = dataset.ToFloat(xs[i])
		case dataset.KindDate:
			x = float64(dateValue(xs[i]).Unix())
		default:
			x = float64(len(labels))
			labels = append(labels, dataset.FormatValue(xs[i]))
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no values to plot")
	}
	switch kind {
	case dataset.KindNumber:
	case dataset.KindDate:
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	default:
		p.NominalX(labels...)
	}
	return pts, nil
}

func staticHistogram(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec) error {
	values, err := numericValues(frame.Column(spec.X), spec.X)
	if err != nil {
		return err
	}
	h, err := plotter.NewHist(values, histogramBins)
	if err != nil {
		return err
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	p.Y.Label.Text = "Count"
	return nil
}

func staticBox(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec) error {
	width := vg.Points(20)
	if spec.Y == "" {
		values, err := numericValues(frame.Column(spec.X), spec.X)
		if err != nil {
			return err
		}
		b, err := plotter.NewBoxPlot(width, 0, values)
		if err != nil {
			return err
		}
		b.FillColor = plotutil.Color(0)
		p.Add(b)
		p.NominalX(Humanize(spec.X))
		p.Y.Label.Text = Humanize(spec.X)
		return nil
	}

	labels, groups, err := groupValues(frame.Column(spec.X), frame.Column(spec.Y), spec.Y)
	if err != nil {
		return err
	}
	for i, g := range groups {
		b, err := plotter.NewBoxPlot(width, float64(i), g)
		if err != nil {
			return err
		}
		b.FillColor = plotutil.Color(i)
		p.Add(b)
	}
	p.NominalX(labels...)
	return nil
}

func staticViolin(p *plot.Plot, frame *dataset.Table, spec chart.ChartSpec) error {
	if spec.Y == "" {
		return fmt.Errorf("Violin plot requires both x and y columns")
	}
	labels, groups, err := groupValues(frame.Column(spec.X), frame.Column(spec.Y), spec.Y)
	if err != nil {
		return err
	}
	p.Add(newViolinPlot(groups))
	p.NominalX(labels...)
	return nil
}

func staticHeatmap(p *plot.Plot, frame *dataset.Table) error {
	columns, matrix, err := correlationMatrix(frame)
	if err != nil {
		return err
	}
	h := plotter.NewHeatMap(correlationGrid(matrix), palette.Heat(12, 1))
	h.Min, h.Max = -1, 1
	p.Add(h)

	p.Title.Text = "Correlation Heatmap"
	p.X.Label.Text, p.Y.Label.Text = "", ""
	p.NominalX(columns...)
	ticks := make([]plot.Tick, len(columns))
	for i, c := range columns {
		ticks[i] = plot.Tick{Value: float64(i), Label: c}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	return nil
}

// correlationGrid adapts a square matrix to plotter.GridXYZ; undefined
// correlations are drawn as zero.
type correlationGrid [][]float64

func (g correlationGrid) Dims() (c, r int) { return len(g), len(g) }
func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }
func (g correlationGrid) Z(c, r int) float64 {
	if v := g[r][c]; !math.IsNaN(v) {
		return v
	}
	return 0
}

func numericValues(values []any, name string) (plotter.Values, error) {
	var out plotter.Values
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		f, ok := dataset.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("Column '%s' is not numeric", name)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values to plot")
	}
	return out, nil
}

// groupValues splits numeric ys by x, groups ordered by x.
func groupValues(xs, ys []any, yName string) ([]string, []plotter.Values, error) {
	type bucket struct {
		key    any
		values plotter.Values
	}
	index := make(map[string]*bucket)
	var buckets []*bucket
	for i, x := range xs {
		if dataset.IsNull(x) || dataset.IsNull(ys[i]) {
			continue
		}
		y, ok := dataset.ToFloat(ys[i])
		if !ok {
			return nil, nil, fmt.Errorf("Column '%s' is not numeric", yName)
		}
		k := dataset.Key(x)
		b, seen := index[k]
		if !seen {
			b = &bucket{key: x}
			index[k] = b
			buckets = append(buckets, b)
		}
		b.values = append(b.values, y)
	}
	if len(buckets) == 0 {
		return nil, nil, fmt.Errorf("no values to plot")
	}
	sort.SliceStable(buckets, func(i, j int) bool { return dataset.Compare(buckets[i].key, buckets[j].key) < 0 })

	labels := make([]string, len(buckets))
	groups := make([]plotter.Values, len(buckets))
	for i, b := range buckets {
		labels[i], groups[i] = dataset.FormatValue(b.key), b.values
	}
	return labels, groups, nil
}
