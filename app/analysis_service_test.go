package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"vizora/adapters/llm"
	"vizora/adapters/memstore"
	"vizora/adapters/tabular"
	"vizora/ai"
	"vizora/domain/chart"
	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"
	"vizora/internal/profiling"
	"vizora/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoresCSV = "dept,score\nEng,80\nEng,90\nSales,70\n"

// scriptedModel answers each prompt template with canned JSON.
func scriptedModel(chartSpec func(prompt string) string) *llm.MockLLMClient {
	return &llm.MockLLMClient{Respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "statistical profile"):
			return `{"dataset_description": "Scores by department", "summary_text": "Test scores.", "fields": []}`, nil
		case strings.Contains(prompt, "generate a list of"):
			return `[{"persona": "Manager", "rationale": "Runs teams"}, {"persona": "HR", "rationale": "Reviews"}]`, nil
		case strings.Contains(prompt, "two-column visualization goals"):
			return `[
				{"index": 0, "question": "Average score per dept", "rationale": "compare", "visualization": "bar"},
				{"index": 1, "question": "BROKEN goal", "rationale": "compare"},
				{"index": 2, "question": "Score spread", "rationale": "risk", "visualization": "histogram"}
			]`, nil
		case strings.Contains(prompt, "one per line"):
			return `[{"index": 0, "question": "Average score per dept", "rationale": "asked", "suggested_chart": "bar"}]`, nil
		case strings.Contains(prompt, "data visualization expert"):
			return chartSpec(prompt), nil
		}
		return "", assert.AnError
	}}
}

func defaultSpecs(prompt string) string {
	switch {
	case strings.Contains(prompt, "BROKEN"):
		return "sorry, I cannot help with that"
	case strings.Contains(prompt, "Score spread"):
		return `{"chart": "histogram", "x": "score"}`
	}
	return "```json\n{\"chart\": \"bar\", \"x\": \"dept\", \"y\": \"score\", \"agg\": \"mean\"}\n```"
}

func newService(t *testing.T, model *llm.MockLLMClient, opts PipelineOptions) (*AnalysisService, *memstore.Store) {
	t.Helper()
	prompts := ai.NewPromptManager("")
	store := memstore.New()
	svc := NewAnalysisService(
		tabular.NewLoader(tabular.DefaultOptions()),
		store,
		ai.NewSummarizer(model, prompts, profiling.NewColumnProfiler(42)),
		ai.NewPersonaGenerator(model, prompts),
		ai.NewGoalGenerator(model, prompts),
		ai.NewChartSpecGenerator(model, prompts),
		render.NewDefaultRenderer(),
		nil,
		opts,
	)
	return svc, store
}

func TestUpload_NoInstructionIsolatesGoalFailures(t *testing.T) {
	svc, store := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())

	bundle, err := svc.Upload(context.Background(), "scores.csv", strings.NewReader(scoresCSV), "", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, ApproachUploadNoInstruction, bundle.Approach)
	assert.Equal(t, "Manager", bundle.SelectedPersona.Persona)
	assert.Len(t, bundle.Personas, 2)
	assert.Equal(t, []string{"dept", "score"}, bundle.Columns)
	assert.Equal(t, "Test scores.", bundle.SummaryText)

	require.Len(t, bundle.Charts, 3)

	first := bundle.Charts[0]
	require.True(t, first.ChartSpec.OK())
	assert.Equal(t, chart.EngineInteractive, first.Engine)
	assert.Empty(t, first.Error)
	assert.NotNil(t, first.ChartDataInteractive)
	fig := first.ChartDataInteractive.(map[string]any)
	title := fig["layout"].(map[string]any)["title"].(map[string]any)["text"]
	assert.Equal(t, "Score by Dept", title)
	trace := fig["data"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"Eng", "Sales"}, trace["x"])
	assert.Equal(t, []any{85.0, 70.0}, trace["y"])

	broken := bundle.Charts[1]
	assert.False(t, broken.ChartSpec.OK())
	assert.NotEmpty(t, broken.Error)
	assert.Nil(t, broken.ChartDataInteractive)
	assert.Nil(t, broken.ChartDataStatic)

	third := bundle.Charts[2]
	assert.True(t, third.ChartSpec.OK())
	assert.Empty(t, third.Error)
	assert.Equal(t, chart.Histogram, third.ChartSpec.Spec.Chart)

	for i, c := range bundle.Charts {
		assert.Equal(t, i, c.Goal.Index)
	}

	got, err := store.Get(context.Background(), bundle.FileID)
	require.NoError(t, err)
	assert.Equal(t, "scores.csv", got.Filename)
}

func TestUpload_NonFiniteCellsAreMissing(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())

	csv := "dept,score\nEng,80\nEng,inf\nSales,70\nSales,-Infinity\n"
	bundle, err := svc.Upload(context.Background(), "scores.csv", strings.NewReader(csv), "", 0, 0)
	require.NoError(t, err)

	field, ok := bundle.Summary.Field("score")
	require.True(t, ok)
	assert.Equal(t, dataset.DTypeNumber, field.Properties.DType)
	require.NotNil(t, field.Properties.Max)
	assert.Equal(t, 80.0, *field.Properties.Max)
	assert.ElementsMatch(t, []any{80.0, 70.0}, field.Properties.SampleValues)

	require.Len(t, bundle.Charts, 3)
	trace := bundle.Charts[0].ChartDataInteractive.(map[string]any)["data"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{80.0, 70.0}, trace["y"])

	_, err = json.Marshal(bundle)
	assert.NoError(t, err)
}

func TestUpload_WithInstructionUsesQueries(t *testing.T) {
	model := scriptedModel(defaultSpecs)
	svc, _ := newService(t, model, DefaultPipelineOptions())

	bundle, err := svc.Upload(context.Background(), "scores.csv", strings.NewReader(scoresCSV), "average score per dept,\n", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, ApproachUploadWithInstruction, bundle.Approach)
	assert.Len(t, bundle.Personas, 1)
	require.Len(t, bundle.Goals, 1)
	assert.Equal(t, "bar", bundle.Goals[0].SuggestedChart)
	require.Len(t, bundle.Charts, 1)
	assert.True(t, bundle.Charts[0].ChartSpec.OK())

	var sawHint bool
	for _, p := range model.Prompts {
		if strings.Contains(p, "Suggested visualization: bar") {
			sawHint = true
		}
	}
	assert.True(t, sawHint)
}

func TestQuery_UnknownFile(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	_, err := svc.Query(context.Background(), core.FileID("01HZZZZZZZZZZZZZZZZZZZZZZZ"), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestQuery_RegisteredFile(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	rec, err := svc.Register(context.Background(), "scores.csv", strings.NewReader(scoresCSV))
	require.NoError(t, err)

	bundle, err := svc.Query(context.Background(), rec.FileID, "average score per dept")
	require.NoError(t, err)
	assert.Equal(t, ApproachQueryWithInstruction, bundle.Approach)
	assert.Equal(t, rec.FileID, bundle.FileID)

	_, err = svc.Query(context.Background(), rec.FileID, " , ")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestUpload_SummaryFailureFailsRequest(t *testing.T) {
	model := &llm.MockLLMClient{Response: "not json"}
	svc, _ := newService(t, model, DefaultPipelineOptions())
	_, err := svc.Upload(context.Background(), "scores.csv", strings.NewReader(scoresCSV), "", 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeMalformedOutput))
}

func TestUpload_UnsupportedFile(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	_, err := svc.Upload(context.Background(), "scores.feather", strings.NewReader("x"), "", 0, 0)
	assert.True(t, errors.Is(err, errors.CodeUnsupportedFileType))
}

func TestChartsForGoals_PreprocessAndRenderErrorsStayLocal(t *testing.T) {
	specs := func(prompt string) string {
		switch {
		case strings.Contains(prompt, "only ghost"):
			return `{"chart": "bar", "x": "dept", "columns_only": ["score"]}`
		case strings.Contains(prompt, "needs y"):
			return `{"chart": "scatter", "x": "dept"}`
		}
		return `{"chart": "bar", "x": "dept"}`
	}
	opts := DefaultPipelineOptions()
	opts.Concurrency = 2
	svc, _ := newService(t, scriptedModel(specs), opts)

	table := dataset.NewTable([]string{"dept", "score"}, [][]any{{"Eng", 80.0}, {"Sales", 70.0}})
	goals := []goal.Goal{
		{Index: 0, Question: "count per dept", Rationale: "r"},
		{Index: 1, Question: "needs y", Rationale: "r"},
		{Index: 2, Question: "only ghost", Rationale: "r"},
	}
	records := svc.ChartsForGoals(context.Background(), table, goals)
	require.Len(t, records, 3)

	assert.Equal(t, chart.EngineInteractive, records[0].Engine)

	assert.Empty(t, records[1].Engine)
	assert.Equal(t, "Scatter plot requires both x and y columns", records[1].ChartErrorInteractive)
	assert.Equal(t, "Scatter plot requires both x and y columns", records[1].ChartErrorStatic)
	assert.NotEmpty(t, records[1].Error)

	// projection keeps only score, so the bar's x column is gone before render
	assert.Empty(t, records[2].PreprocessError)
	assert.Contains(t, records[2].ChartErrorInteractive, "dept")

	assert.Equal(t, [][]any{{"Eng", 80.0}, {"Sales", 70.0}}, table.Rows)
}

func TestChartsForGoals_CancelledContext(t *testing.T) {
	var calls int32
	model := &llm.MockLLMClient{Respond: func(string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return `{"chart": "bar", "x": "dept"}`, nil
	}}
	svc, _ := newService(t, model, DefaultPipelineOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := svc.ChartsForGoals(ctx, dataset.NewTable([]string{"dept"}, [][]any{{"Eng"}}), []goal.Goal{
		{Index: 0, Question: "q", Rationale: "r"},
		{Index: 1, Question: "q", Rationale: "r"},
	})
	require.Len(t, records, 2)
	for _, r := range records {
		assert.NotEmpty(t, r.Error)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

type fakeExporter struct {
	frame *dataset.Table
	spec  chart.ChartSpec
	title string
}

func (f *fakeExporter) Export(w io.Writer, frame *dataset.Table, spec chart.ChartSpec, title string) error {
	f.frame, f.spec, f.title = frame, spec, title
	_, err := io.WriteString(w, "workbook")
	return err
}

func TestExport_PreprocessesBeforeWriting(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	exp := &fakeExporter{}
	svc.exporter = exp

	rec, err := svc.Register(context.Background(), "scores.csv", strings.NewReader(scoresCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = svc.Export(context.Background(), rec.FileID, chart.RawSpec{"chart": "bar", "x": "dept", "y": "score", "agg": "sum"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "workbook", buf.String())
	assert.Equal(t, "Score by Dept", exp.title)
	assert.Equal(t, [][]any{{"Eng", 170.0}, {"Sales", 70.0}}, exp.frame.Rows)

	err = svc.Export(context.Background(), rec.FileID, chart.RawSpec{"chart": "bar", "x": "ghost"}, &buf)
	assert.True(t, errors.Is(err, errors.CodeValidationError))
}

func TestExport_NotConfigured(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	err := svc.Export(context.Background(), core.FileID("x"), chart.RawSpec{"chart": "bar"}, io.Discard)
	assert.True(t, errors.Is(err, errors.CodeInternalError))
}

func TestChartSpecForRegisteredFile(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	rec, err := svc.Register(context.Background(), "scores.csv", strings.NewReader(scoresCSV))
	require.NoError(t, err)

	result, err := svc.ChartSpec(context.Background(), rec.FileID, "Average score per dept")
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, chart.AggMean, result.Spec.Agg)

	_, err = svc.ChartSpec(context.Background(), rec.FileID, "")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestRenderChartAndPrepare(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	rec, err := svc.Register(context.Background(), "scores.csv", strings.NewReader(scoresCSV))
	require.NoError(t, err)

	frame, spec, err := svc.Prepare(context.Background(), rec.FileID, chart.RawSpec{"chart": "bar", "x": "dept", "y": "score", "agg": "count"})
	require.NoError(t, err)
	assert.Equal(t, chart.AggCount, spec.Agg)
	assert.Equal(t, [][]any{{"Eng", 2}, {"Sales", 1}}, frame.Rows)

	result, err := svc.RenderChart(context.Background(), rec.FileID, chart.RawSpec{"chart": "radar", "x": "dept"})
	assert.True(t, errors.Is(err, errors.CodeValidationError))
	assert.False(t, result.OK())

	result, err = svc.RenderChart(context.Background(), rec.FileID, chart.RawSpec{"chart": "scatter", "x": "dept"})
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Len(t, result.Attempts, 2)
}

func TestSummarizeFileAndGoalsFromInstruction(t *testing.T) {
	svc, _ := newService(t, scriptedModel(defaultSpecs), DefaultPipelineOptions())
	rec, err := svc.Register(context.Background(), "scores.csv", strings.NewReader(scoresCSV))
	require.NoError(t, err)

	summary, err := svc.SummarizeFile(context.Background(), rec.FileID, ai.SummaryColumns)
	require.NoError(t, err)
	assert.Equal(t, []string{"dept", "score"}, summary.FieldNames)

	goals, err := svc.GoalsFromInstruction(context.Background(), summary, "average score per dept")
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	_, err = svc.GoalsFromInstruction(context.Background(), summary, "  ")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}
