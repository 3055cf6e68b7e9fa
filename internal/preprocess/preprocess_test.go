package preprocess

import (
	"math"
	"testing"

	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catTable() *dataset.Table {
	return dataset.NewTable([]string{"cat", "v"}, [][]any{
		{"A", 1.0},
		{"A", 3.0},
		{"B", 2.0},
	})
}

func intPtr(n int) *int { return &n }

func TestProcess_MeanAggregation(t *testing.T) {
	spec := chart.ChartSpec{Chart: chart.Bar, X: "cat", Y: "v", Agg: chart.AggMean}

	first, err := Process(catTable(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "v"}, first.Columns)
	assert.Equal(t, [][]any{{"A", 2.0}, {"B", 2.0}}, first.Rows)

	second, err := Process(catTable(), spec)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestProcess_CountIgnoresValues(t *testing.T) {
	table := dataset.NewTable([]string{"cat", "v"}, [][]any{
		{"A", "x"},
		{"A", "y"},
		{"B", "z"},
	})
	out, err := Process(table, chart.ChartSpec{Chart: chart.Bar, X: "cat", Y: "v", Agg: chart.AggCount})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"A", 2}, {"B", 1}}, out.Rows)
}

func TestProcess_Reductions(t *testing.T) {
	table := dataset.NewTable([]string{"g", "n"}, [][]any{
		{"x", 1.0}, {"x", 5.0}, {"x", 3.0}, {"y", 4.0},
	})
	cases := map[chart.Aggregation][]float64{
		chart.AggSum:    {9, 4},
		chart.AggMedian: {3, 4},
		chart.AggMax:    {5, 4},
		chart.AggMin:    {1, 4},
	}
	for agg, want := range cases {
		t.Run(string(agg), func(t *testing.T) {
			out, err := Process(table, chart.ChartSpec{Chart: chart.Bar, X: "g", Y: "n", Agg: agg})
			require.NoError(t, err)
			require.Len(t, out.Rows, 2)
			assert.InDelta(t, want[0], out.Rows[0][1], 1e-9)
			assert.InDelta(t, want[1], out.Rows[1][1], 1e-9)
		})
	}
}

func TestProcess_AggregationFailureKeepsRawRows(t *testing.T) {
	table := dataset.NewTable([]string{"cat", "label"}, [][]any{
		{"A", "red"},
		{"B", "blue"},
	})
	out, err := Process(table, chart.ChartSpec{Chart: chart.Bar, X: "cat", Y: "label", Agg: chart.AggMean})
	require.NoError(t, err)
	assert.Equal(t, table.Rows, out.Rows)
}

func TestProcess_GroupsOrderedByKey(t *testing.T) {
	table := dataset.NewTable([]string{"year", "sales"}, [][]any{
		{2022.0, 1.0}, {2020.0, 2.0}, {2021.0, 3.0}, {2020.0, 4.0},
	})
	out, err := Process(table, chart.ChartSpec{Chart: chart.Line, X: "year", Y: "sales", Agg: chart.AggSum})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{2020.0, 6.0}, {2021.0, 3.0}, {2022.0, 1.0}}, out.Rows)
}

func TestProcess_NullFilteringWithoutAggregation(t *testing.T) {
	table := dataset.NewTable([]string{"x", "y", "z"}, [][]any{
		{1.0, 2.0, nil},
		{nil, 3.0, "a"},
		{2.0, math.NaN(), "b"},
		{3.0, 4.0, "c"},
	})
	out, err := Process(table, chart.ChartSpec{Chart: chart.Scatter, X: "x", Y: "y"})
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, 1.0, out.Rows[0][0])
	assert.Equal(t, 3.0, out.Rows[1][0])
}

func TestProcess_ProjectionForcesSortColumn(t *testing.T) {
	table := dataset.NewTable([]string{"brand", "price", "stock"}, [][]any{
		{"a", 3.0, 1.0},
		{"b", 1.0, 2.0},
		{"c", 2.0, 3.0},
	})
	spec := chart.ChartSpec{Chart: chart.Bar, ColumnsOnly: []string{"brand", "missing"}, SortBy: "price", SortOrder: chart.Asc}
	out, err := Process(table, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"brand", "price"}, out.Columns)
	assert.Equal(t, []any{"b", 1.0}, out.Rows[0])
}

func TestProcess_ProjectionWithNoKnownColumnsFails(t *testing.T) {
	_, err := Process(catTable(), chart.ChartSpec{Chart: chart.Bar, ColumnsOnly: []string{"nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "[nope]")
}

func TestProcess_SortOnMissingColumnIsSkipped(t *testing.T) {
	// sort_by survives projection only when it exists; here it is absent
	// from the table, so the frame comes back in original order
	spec := chart.ChartSpec{Chart: chart.Bar, X: "cat", SortBy: "ghost", SortOrder: chart.Desc}
	out, err := Process(catTable(), spec)
	require.NoError(t, err)
	assert.Equal(t, catTable().Rows, out.Rows)
}

func TestProcess_SortDescNullsLastThenLimit(t *testing.T) {
	table := dataset.NewTable([]string{"name", "score"}, [][]any{
		{"a", 10.0},
		{"b", nil},
		{"c", 30.0},
		{"d", 20.0},
	})
	spec := chart.ChartSpec{Chart: chart.Bar, X: "name", SortBy: "score", SortOrder: chart.Desc}

	out, err := Process(table, spec)
	require.NoError(t, err)
	names := out.Column("name")
	assert.Equal(t, []any{"c", "d", "a", "b"}, names)

	spec.Limit = intPtr(2)
	out, err = Process(table, spec)
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "d"}, out.Column("name"))
}

func TestProcess_NonPositiveLimitIgnored(t *testing.T) {
	out, err := Process(catTable(), chart.ChartSpec{Chart: chart.Bar, X: "cat", Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, out.Rows, 3)
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	table := catTable()
	_, err := Process(table, chart.ChartSpec{Chart: chart.Bar, X: "cat", Y: "v", SortBy: "v", SortOrder: chart.Desc, Limit: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, catTable().Rows, table.Rows)
}

func TestProcess_EndToEndMeanByDept(t *testing.T) {
	table := dataset.NewTable([]string{"dept", "score"}, [][]any{
		{"Eng", 80.0},
		{"Eng", 90.0},
		{"Sales", 70.0},
	})
	out, err := Process(table, chart.ChartSpec{Chart: chart.Bar, X: "dept", Y: "score", Agg: chart.AggMean})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Eng", 85.0}, {"Sales", 70.0}}, out.Rows)
}
