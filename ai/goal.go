package ai

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"
	"vizora/ports"

	"github.com/tidwall/gjson"
)

// GoalGenerator turns a summary into analysis goals, either for a persona or
// from the user's own questions.
type GoalGenerator struct {
	llm     ports.LLMClient
	prompts *PromptManager
}

func NewGoalGenerator(llm ports.LLMClient, prompts *PromptManager) *GoalGenerator {
	return &GoalGenerator{llm: llm, prompts: prompts}
}

// FromPersona asks for n goals written for persona.
func (g *GoalGenerator) FromPersona(ctx context.Context, summary *dataset.DatasetSummary, persona goal.Persona, n int) ([]goal.Goal, error) {
	if n <= 0 {
		n = 5
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode summary")
	}
	prompt, err := g.prompts.RenderPrompt(PromptGoalsPersona, map[string]string{
		"N":                 strconv.Itoa(n),
		"PERSONA":           persona.Persona,
		"PERSONA_RATIONALE": persona.Rationale,
		"DATASET_SUMMARY":   string(summaryJSON),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render goal prompt")
	}

	goals, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(goals) > n {
		goals = goals[:n]
	}
	log.Printf("[GoalGenerator] Generated %d goals for persona %q", len(goals), persona.Persona)
	return goals, nil
}

// FromQueries asks for one goal per query, each tagged with a suggested chart.
func (g *GoalGenerator) FromQueries(ctx context.Context, summary *dataset.DatasetSummary, queries []string) ([]goal.Goal, error) {
	if len(queries) == 0 {
		return nil, errors.InvalidInput("no queries given")
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode summary")
	}
	types := make([]string, len(chart.ChartTypes))
	for i, c := range chart.ChartTypes {
		types[i] = string(c)
	}
	prompt, err := g.prompts.RenderPrompt(PromptGoalsQueries, map[string]string{
		"QUERIES":         strings.Join(queries, "\n"),
		"DATASET_SUMMARY": string(summaryJSON),
		"CHART_TYPES":     strings.Join(types, ", "),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render goal prompt")
	}

	goals, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	log.Printf("[GoalGenerator] Generated %d goals from %d queries", len(goals), len(queries))
	return goals, nil
}

func (g *GoalGenerator) complete(ctx context.Context, prompt string) ([]goal.Goal, error) {
	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, errors.ExternalServiceError("llm", err)
	}
	items, err := parseList(raw)
	if err != nil {
		return nil, errors.MalformedOutput("goals", err)
	}

	goals := make([]goal.Goal, 0, len(items))
	for _, item := range items {
		goals = append(goals, decodeGoal(item))
	}
	valid := goal.Normalize(goals)
	if dropped := len(goals) - len(valid); dropped > 0 {
		log.Printf("[GoalGenerator] Dropped %d goals without question or rationale", dropped)
	}
	return valid, nil
}

func decodeGoal(item gjson.Result) goal.Goal {
	g := goal.Goal{
		Index:         int(item.Get("index").Int()),
		Question:      strings.TrimSpace(item.Get("question").String()),
		Rationale:     strings.TrimSpace(item.Get("rationale").String()),
		Visualization: strings.TrimSpace(item.Get("visualization").String()),
	}
	if tag := item.Get("suggested_chart").String(); tag != "" {
		if ct, ok := chart.ParseChartType(tag); ok {
			g.SuggestedChart = string(ct)
		}
	}
	return g
}
