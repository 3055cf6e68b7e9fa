package ai

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"vizora/domain/chart"
	"vizora/domain/goal"
	"vizora/internal"
	"vizora/internal/errors"
	"vizora/ports"
)

// ChartSpecGenerator asks the model for a chart spec answering one question.
type ChartSpecGenerator struct {
	llm     ports.LLMClient
	prompts *PromptManager
}

func NewChartSpecGenerator(llm ports.LLMClient, prompts *PromptManager) *ChartSpecGenerator {
	return &ChartSpecGenerator{llm: llm, prompts: prompts}
}

// Generate returns the model's spec unvalidated. The model may answer with an
// {"error": ...} object, which is returned as a spec like any other.
func (g *ChartSpecGenerator) Generate(ctx context.Context, columns []string, question string) (chart.RawSpec, error) {
	return g.generate(ctx, columns, question, "")
}

func (g *ChartSpecGenerator) generate(ctx context.Context, columns []string, question, hint string) (chart.RawSpec, error) {
	cols, err := json.Marshal(columns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode columns")
	}
	if hint != "" {
		hint = "Suggested visualization: " + hint
	}

	types := make([]string, len(chart.ChartTypes))
	for i, c := range chart.ChartTypes {
		types[i] = string(c)
	}
	aggs := make([]string, len(chart.Aggregations))
	for i, a := range chart.Aggregations {
		aggs[i] = string(a)
	}

	prompt, err := g.prompts.RenderPrompt(PromptChartSpec, map[string]string{
		"COLUMNS":      string(cols),
		"QUESTION":     question,
		"HINT":         hint,
		"CHART_TYPES":  strings.Join(types, ", "),
		"AGGREGATIONS": strings.Join(aggs, ", "),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render chart spec prompt")
	}

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, errors.ExternalServiceError("llm", err)
	}
	internal.DefaultLogger.Debug("[ChartSpec] Raw response for %q: %s", truncate(question, 80), truncate(raw, 400))
	doc, err := parseObject(raw)
	if err != nil {
		return nil, errors.MalformedOutput("chart spec", err)
	}
	spec, ok := doc.Value().(map[string]any)
	if !ok {
		return nil, errors.MalformedOutput("chart spec", nil)
	}
	return chart.RawSpec(spec), nil
}

// GenerateAndValidate generates a spec and validates it against columns.
// Generation failures are reported as error results.
func (g *ChartSpecGenerator) GenerateAndValidate(ctx context.Context, columns []string, question string) chart.SpecResult {
	return g.forQuestion(ctx, columns, question, "")
}

// ForGoal is GenerateAndValidate with the goal's chart intent passed as a hint.
func (g *ChartSpecGenerator) ForGoal(ctx context.Context, columns []string, gl goal.Goal) chart.SpecResult {
	if strings.TrimSpace(gl.Question) == "" {
		return chart.Failed("No question in goal")
	}
	return g.forQuestion(ctx, columns, gl.Question, gl.ChartIntent())
}

func (g *ChartSpecGenerator) forQuestion(ctx context.Context, columns []string, question, hint string) chart.SpecResult {
	raw, err := g.generate(ctx, columns, question, hint)
	if err != nil {
		log.Printf("[ChartSpec] Generation failed for %q: %v", truncate(question, 80), err)
		return chart.Failed(err.Error())
	}
	result := chart.Validate(raw, columns)
	if !result.OK() {
		log.Printf("[ChartSpec] Rejected spec for %q: %s", truncate(question, 80), result.Error)
	}
	return result
}

// GenerateForGoals builds one spec per goal, in goal order. A failing goal
// gets an error entry; the rest of the batch is unaffected.
func (g *ChartSpecGenerator) GenerateForGoals(ctx context.Context, goals []goal.Goal, columns []string) []chart.GoalSpec {
	out := make([]chart.GoalSpec, 0, len(goals))
	for _, gl := range goals {
		out = append(out, chart.GoalSpec{Goal: gl, ChartSpec: g.ForGoal(ctx, columns, gl)})
	}
	return out
}
