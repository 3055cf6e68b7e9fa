package chart

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"dept", "score", "region", "hired"}

func TestValidateAcceptsFullSpec(t *testing.T) {
	res := Validate(RawSpec{
		"chart":        "bar",
		"x":            "dept",
		"y":            "score",
		"agg":          "mean",
		"sort_by":      "score",
		"sort_order":   "desc",
		"columns_only": []any{"dept", "score"},
		"limit":        10.0,
	}, cols)

	require.True(t, res.OK(), res.Error)
	spec := res.Spec
	assert.Equal(t, Bar, spec.Chart)
	assert.Equal(t, "dept", spec.X)
	assert.Equal(t, "score", spec.Y)
	assert.Equal(t, AggMean, spec.Agg)
	assert.Equal(t, "score", spec.SortBy)
	assert.Equal(t, Desc, spec.SortOrder)
	assert.Equal(t, []string{"dept", "score"}, spec.ColumnsOnly)
	require.NotNil(t, spec.Limit)
	assert.Equal(t, 10, *spec.Limit)
}

func TestValidateUnwrapsSingleElementLists(t *testing.T) {
	res := Validate(RawSpec{"chart": []any{"bar"}, "x": []any{"dept"}, "columns_only": "dept"}, cols)
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, Bar, res.Spec.Chart)
	assert.Equal(t, "dept", res.Spec.X)
	assert.Equal(t, []string{"dept"}, res.Spec.ColumnsOnly)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  RawSpec
		want string
	}{
		{"passthrough", RawSpec{"error": "Cannot answer with these columns"}, "Cannot answer with these columns"},
		{"missing chart", RawSpec{"x": "dept"}, "Missing chart type in response"},
		{"empty chart list", RawSpec{"chart": []any{}}, "Missing chart type in response"},
		{"invalid chart", RawSpec{"chart": "radar"}, "Invalid chart type: radar"},
		{"unknown x", RawSpec{"chart": "bar", "x": "salary"}, "Column 'salary' not found in dataset"},
		{"unknown y", RawSpec{"chart": "bar", "x": "dept", "y": "salary"}, "Column 'salary' not found in dataset"},
		{"invalid agg", RawSpec{"chart": "bar", "x": "dept", "agg": "avg"}, "Invalid aggregation method: avg"},
		{"unknown sort", RawSpec{"chart": "bar", "sort_by": "age"}, "Sort column 'age' not found in dataset"},
		{"columns_only type", RawSpec{"chart": "bar", "columns_only": 3.0}, "columns_only must be a list"},
		{"columns_only members", RawSpec{"chart": "bar", "columns_only": []any{"dept", "age", "city"}}, "Columns not found: [age, city]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.raw, cols)
			assert.False(t, res.OK())
			assert.Nil(t, res.Spec)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestValidateFirstFailingRuleWins(t *testing.T) {
	res := Validate(RawSpec{"chart": "radar", "x": "nope", "agg": "avg"}, cols)
	assert.Equal(t, "Invalid chart type: radar", res.Error)
}

func TestValidateLenientFields(t *testing.T) {
	res := Validate(RawSpec{"chart": "BoxPlot", "sort_by": "score", "sort_order": "sideways", "limit": "abc"}, cols)
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, Box, res.Spec.Chart)
	assert.Equal(t, Asc, res.Spec.SortOrder)
	assert.Nil(t, res.Spec.Limit)

	res = Validate(RawSpec{"chart": "line", "sort_order": "Descending", "limit": " 5 "}, cols)
	require.True(t, res.OK())
	assert.Equal(t, Desc, res.Spec.SortOrder)
	assert.Equal(t, 5, *res.Spec.Limit)
}

func TestValidateDropsNonPositiveLimits(t *testing.T) {
	for _, limit := range []any{0.0, -3.0, "0", "-3", 1e300, 2.5, math.Inf(1)} {
		res := Validate(RawSpec{"chart": "bar", "x": "dept", "limit": limit}, cols)
		require.True(t, res.OK(), res.Error)
		assert.Nil(t, res.Spec.Limit, "limit %v", limit)
	}

	res := Validate(RawSpec{"chart": "bar", "x": "dept", "limit": []any{7.0}}, cols)
	require.True(t, res.OK())
	require.NotNil(t, res.Spec.Limit)
	assert.Equal(t, 7, *res.Spec.Limit)
}

func TestValidateIsIdempotent(t *testing.T) {
	first := Validate(RawSpec{
		"chart": []any{"pie"}, "x": "region", "y": "score", "agg": "SUM",
		"columns_only": "region", "limit": "3", "sort_by": "score",
	}, cols)
	require.True(t, first.OK(), first.Error)

	second := Validate(first.Spec.Raw(), cols)
	require.True(t, second.OK(), second.Error)
	assert.Equal(t, first.Spec, second.Spec)
}

func TestSpecResultJSON(t *testing.T) {
	raw, err := json.Marshal(Failed("Invalid chart type: radar"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Invalid chart type: radar"}`, string(raw))

	limit := 3
	raw, err = json.Marshal(SpecResult{Spec: &ChartSpec{Chart: Bar, X: "dept", Limit: &limit}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chart":"bar","x":"dept","limit":3}`, string(raw))

	var back SpecResult
	require.NoError(t, json.Unmarshal(raw, &back))
	require.True(t, back.OK())
	assert.Equal(t, "dept", back.Spec.X)

	require.NoError(t, json.Unmarshal([]byte(`{"error":"nope"}`), &back))
	assert.Equal(t, "nope", back.Error)
	assert.False(t, back.OK())
}
