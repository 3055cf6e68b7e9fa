package report

import (
	"strings"
	"testing"

	"vizora/app"
	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/domain/goal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *app.AnalysisBundle {
	return &app.AnalysisBundle{
		Filename: "scores.csv",
		Summary: &dataset.DatasetSummary{
			DatasetDescription: "Scores by department",
			Fields: []dataset.ColumnProfile{
				{Column: "dept", Properties: dataset.ColumnProperties{DType: dataset.DTypeCategory, NumUniqueValues: 2, SemanticType: "category", Description: "Team | unit"}},
				{Column: "score", Properties: dataset.ColumnProperties{DType: dataset.DTypeNumber, NumUniqueValues: 3}},
			},
		},
		SummaryText: "Test scores per team.",
		Personas:    []goal.Persona{{Persona: "Ops_lead <admin>", Rationale: "Owns staffing"}},
		Charts: []app.ChartRecord{
			{
				Goal:            goal.Goal{Index: 0, Question: "Average score per dept", Rationale: "compare"},
				ChartSpec:       chart.SpecResult{Spec: &chart.ChartSpec{Chart: chart.Bar, X: "dept", Y: "score"}},
				ChartDataStatic: "data:image/png;base64,iVBORw0KGgo",
			},
			{
				Goal:      goal.Goal{Index: 1, Question: "Radar of everything", Rationale: "why not"},
				ChartSpec: chart.Failed("Invalid chart type: radar"),
				Error:     "Invalid chart type: radar",
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleBundle())

	assert.True(t, strings.HasPrefix(out, "# Analysis of scores.csv\n"))
	assert.Contains(t, out, "| dept | category | 2 | category: Team \\| unit |")
	assert.Contains(t, out, "- **Ops\\_lead &lt;admin&gt;**: Owns staffing")
	assert.Contains(t, out, "### 1. Average score per dept")
	assert.Contains(t, out, "Chart: Score by Dept")
	assert.Contains(t, out, "(data:image/png;base64,iVBORw0KGgo)")
	assert.Contains(t, out, "> Chart unavailable: Invalid chart type: radar")
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleBundle())
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<title>Analysis of scores.csv</title>")
	assert.Contains(t, html, "<h1>Analysis of scores.csv</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<img")
	assert.Contains(t, html, "iVBORw0KGgo")
	assert.Contains(t, html, "Ops_lead &lt;admin&gt;")
	assert.NotContains(t, html, "<admin>")
	assert.Contains(t, html, "Chart unavailable: Invalid chart type: radar")
}

func TestHTML_EmptyBundle(t *testing.T) {
	out, err := HTML(&app.AnalysisBundle{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Analysis of dataset</h1>")
}
