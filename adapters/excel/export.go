// Package excel writes chart data to xlsx workbooks with a native Excel chart.
package excel

import (
	"fmt"
	"io"
	"log"
	"math"
	"sort"

	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/internal/errors"
	"vizora/internal/render"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet   = "Data"
	countsSheet = "Counts"
)

// nativeCharts maps chart types to their closest Excel chart. Types missing
// here are exported as data only.
var nativeCharts = map[chart.ChartType]excelize.ChartType{
	chart.Bar:     excelize.Col,
	chart.Line:    excelize.Line,
	chart.Area:    excelize.Area,
	chart.Pie:     excelize.Pie,
	chart.Scatter: excelize.Scatter,
}

// Exporter implements ports.ChartExporter.
type Exporter struct {
	Width, Height uint
}

func NewExporter() *Exporter {
	return &Exporter{Width: 640, Height: 400}
}

// Export writes frame to a "Data" sheet and, when the chart type has an Excel
// equivalent, adds a chart next to it. Bar and pie charts without a y column
// chart the value counts of x from a separate "Counts" sheet.
func (e *Exporter) Export(w io.Writer, frame *dataset.Table, spec chart.ChartSpec, title string) error {
	if frame == nil {
		return errors.InvalidInput("nothing to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("failed to name data sheet: %w", err)
	}
	if err := writeTable(f, dataSheet, frame.Columns, frame.Rows); err != nil {
		return err
	}

	if err := e.addChart(f, frame, spec, title); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	log.Printf("[Excel] Exported %d rows (%s)", frame.NumRows(), spec.Chart)
	return nil
}

func (e *Exporter) addChart(f *excelize.File, frame *dataset.Table, spec chart.ChartSpec, title string) error {
	kind, ok := nativeCharts[spec.Chart]
	if !ok || spec.X == "" || frame.NumRows() == 0 {
		log.Printf("[Excel] No native chart for %s, exporting data only", spec.Chart)
		return nil
	}

	sheet, xCol, yCol, rows := dataSheet, frame.ColumnIndex(spec.X), frame.ColumnIndex(spec.Y), frame.NumRows()
	if xCol < 0 {
		return nil
	}
	if spec.Y == "" || yCol < 0 {
		if spec.Chart != chart.Bar && spec.Chart != chart.Pie {
			log.Printf("[Excel] %s needs a y column, exporting data only", spec.Chart)
			return nil
		}
		labels, counts := countBy(frame.Column(spec.X))
		table := make([][]any, len(labels))
		for i := range labels {
			table[i] = []any{labels[i], counts[i]}
		}
		if _, err := f.NewSheet(countsSheet); err != nil {
			return fmt.Errorf("failed to add counts sheet: %w", err)
		}
		if err := writeTable(f, countsSheet, []string{spec.X, "count"}, table); err != nil {
			return err
		}
		sheet, xCol, yCol, rows = countsSheet, 0, 1, len(labels)
	}

	xName, err := excelize.ColumnNumberToName(xCol + 1)
	if err != nil {
		return err
	}
	yName, err := excelize.ColumnNumberToName(yCol + 1)
	if err != nil {
		return err
	}
	last := rows + 1

	c := &excelize.Chart{
		Type: kind,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, yName),
			Categories: fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, xName, xName, last),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, yName, yName, last),
		}},
		Title:     []excelize.RichTextRun{{Text: title}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: e.Width, Height: e.Height},
		PlotArea:  excelize.ChartPlotArea{ShowPercent: kind == excelize.Pie},
	}
	if kind != excelize.Pie {
		c.XAxis = excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: render.Humanize(spec.X)}}}
		c.YAxis = excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: render.Humanize(spec.Y)}}}
	}

	anchor, err := excelize.CoordinatesToCellName(len(frame.Columns)+2, 2)
	if err != nil {
		return err
	}
	if err := f.AddChart(dataSheet, anchor, c); err != nil {
		return fmt.Errorf("failed to add %s chart: %w", spec.Chart, err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, columns []string, rows [][]any) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

// cellValue blanks values Excel cannot store.
func cellValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// countBy returns the distinct non-null values of col with their counts,
// most frequent first.
func countBy(col []any) ([]any, []int) {
	index := make(map[string]int)
	var labels []any
	var counts []int
	for _, v := range col {
		if dataset.IsNull(v) {
			continue
		}
		k := dataset.Key(v)
		i, ok := index[k]
		if !ok {
			i = len(labels)
			index[k] = i
			labels = append(labels, v)
			counts = append(counts, 0)
		}
		counts[i]++
	}
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

	outLabels := make([]any, len(order))
	outCounts := make([]int, len(order))
	for i, j := range order {
		outLabels[i], outCounts[i] = labels[j], counts[j]
	}
	return outLabels, outCounts
}
