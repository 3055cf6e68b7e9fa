package render

import (
	"fmt"
	"math"

	"vizora/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// correlationMatrix computes pairwise-complete Pearson correlations over the
// frame's numeric columns. Pairs with fewer than two shared rows are NaN.
func correlationMatrix(frame *dataset.Table) ([]string, [][]float64, error) {
	columns := frame.NumericColumns()
	if len(columns) < 2 {
		return nil, nil, fmt.Errorf("Heatmap requires at least 2 numeric columns")
	}

	values := make([][]any, len(columns))
	for i, c := range columns {
		values[i] = frame.Column(c)
	}

	matrix := make([][]float64, len(columns))
	for i := range matrix {
		matrix[i] = make([]float64, len(columns))
	}
	for i := range columns {
		matrix[i][i] = 1
		for j := i + 1; j < len(columns); j++ {
			r := pairwise(values[i], values[j])
			matrix[i][j], matrix[j][i] = r, r
		}
	}
	return columns, matrix, nil
}

func pairwise(a, b []any) float64 {
	var xs, ys []float64
	for k := range a {
		x, okx := dataset.ToFloat(a[k])
		y, oky := dataset.ToFloat(b[k])
		if !okx || !oky || math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
