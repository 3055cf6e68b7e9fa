package render

import (
	"strings"
	"unicode"

	"vizora/domain/chart"
)

// Title derives a display title from the chart type and axes.
func Title(spec chart.ChartSpec) string {
	x, y := Humanize(spec.X), Humanize(spec.Y)
	switch spec.Chart {
	case chart.Histogram:
		if x != "" {
			return "Distribution of " + x
		}
	case chart.Bar:
		if x != "" && y != "" {
			return y + " by " + x
		}
		if x != "" {
			return "Count by " + x
		}
	case chart.Scatter, chart.Line:
		if x != "" && y != "" {
			return y + " vs " + x
		}
	}
	return Humanize(string(spec.Chart)) + " Chart"
}

// Humanize turns a column name into a label: underscores become spaces and
// each word starts upper case with the rest lower case.
func Humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	var b strings.Builder
	b.Grow(len(name))
	prevLetter := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}

func axisLabel(column, fallback string) string {
	if column == "" {
		return fallback
	}
	return Humanize(column)
}
