package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vizora/adapters/llm"
	"vizora/adapters/memstore"
	"vizora/adapters/tabular"
	"vizora/ai"
	"vizora/app"
	"vizora/internal/profiling"
	"vizora/internal/render"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	model := &llm.MockLLMClient{Respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "generate a list of"):
			return `[{"persona": "Planner", "rationale": "Plans stock"}]`, nil
		case strings.Contains(prompt, "two-column visualization goals"):
			return `[{"question": "Units per item", "rationale": "stock", "visualization": "bar"}]`, nil
		case strings.Contains(prompt, "one per line"):
			return `[{"question": "Which item sells most", "rationale": "asked"}, {"question": "Units trend", "rationale": "asked"}]`, nil
		case strings.Contains(prompt, "data visualization expert"):
			return `{"chart": "bar", "x": "item", "y": "units"}`, nil
		}
		return `{"dataset_description": "Stock", "fields": []}`, nil
	}}
	prompts := ai.NewPromptManager("")
	svc := app.NewAnalysisService(
		tabular.NewLoader(tabular.DefaultOptions()),
		memstore.New(),
		ai.NewSummarizer(model, prompts, profiling.NewColumnProfiler(42)),
		ai.NewPersonaGenerator(model, prompts),
		ai.NewGoalGenerator(model, prompts),
		ai.NewChartSpecGenerator(model, prompts),
		render.NewDefaultRenderer(),
		nil,
		app.DefaultPipelineOptions(),
	)
	return NewHandlers(svc)
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, res.Content)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &out))
	return out
}

func loadFixture(t *testing.T, h *Handlers) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, os.WriteFile(path, []byte("item,units\nbolt,5\nnut,3\nbolt,2\n"), 0o644))

	res, err := h.HandleLoad(context.Background(), makeRequest(map[string]any{"path": path}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := resultJSON(t, res)
	assert.Equal(t, "stock.csv", out["filename"])
	assert.Equal(t, float64(3), out["rows"])
	return out["file_id"].(string)
}

func TestToolNames(t *testing.T) {
	assert.Equal(t, []string{
		"chart_preprocess", "chart_render", "chart_spec", "dataset_load",
		"dataset_summarize", "goal_generate", "persona_generate",
	}, ToolNames())
}

func TestLoadErrors(t *testing.T) {
	h := testHandlers(t)

	res, err := h.HandleLoad(context.Background(), makeRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "INVALID_INPUT", resultJSON(t, res)["error"].(map[string]any)["code"])

	res, err = h.HandleLoad(context.Background(), makeRequest(map[string]any{"path": "/does/not/exist.csv"}))
	require.NoError(t, err)
	assert.Equal(t, "NOT_FOUND", resultJSON(t, res)["error"].(map[string]any)["code"])
}

func TestPipelineTools(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()
	id := loadFixture(t, h)

	res, err := h.HandleSummarize(ctx, makeRequest(map[string]any{"file_id": id, "method": "default"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	summary := resultJSON(t, res)
	assert.Equal(t, []any{"item", "units"}, summary["field_names"])

	res, err = h.HandlePersonas(ctx, makeRequest(map[string]any{"summary": summary, "n": 2}))
	require.NoError(t, err)
	personas := resultJSON(t, res)["personas"].([]any)
	require.Len(t, personas, 1)

	res, err = h.HandleGoals(ctx, makeRequest(map[string]any{"summary": summary, "persona": personas[0]}))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["goals"], 1)

	res, err = h.HandleGoals(ctx, makeRequest(map[string]any{"summary": summary, "instruction": "which item sells most, units trend"}))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["goals"], 2)

	res, err = h.HandleChartSpec(ctx, makeRequest(map[string]any{"file_id": id, "question": "Units per item"}))
	require.NoError(t, err)
	spec := resultJSON(t, res)
	assert.Equal(t, "bar", spec["chart"])

	spec["agg"] = "sum"
	res, err = h.HandlePreprocess(ctx, makeRequest(map[string]any{"file_id": id, "chart_spec": spec}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	prepared := resultJSON(t, res)
	assert.Equal(t, float64(2), prepared["rows"])
	first := prepared["records"].([]any)[0].(map[string]any)
	assert.Equal(t, "bolt", first["item"])
	assert.Equal(t, float64(7), first["units"])

	res, err = h.HandleRender(ctx, makeRequest(map[string]any{"file_id": id, "chart_spec": spec}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	rendered := resultJSON(t, res)
	assert.Equal(t, "interactive", rendered["engine"])
}

func TestSpecToolErrors(t *testing.T) {
	h := testHandlers(t)
	ctx := context.Background()
	id := loadFixture(t, h)

	res, err := h.HandleRender(ctx, makeRequest(map[string]any{"file_id": id}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.HandlePreprocess(ctx, makeRequest(map[string]any{"file_id": id, "chart_spec": map[string]any{"chart": "bar", "x": "ghost"}}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "VALIDATION_ERROR", resultJSON(t, res)["error"].(map[string]any)["code"])

	res, err = h.HandleChartSpec(ctx, makeRequest(map[string]any{"file_id": "bogus", "question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
