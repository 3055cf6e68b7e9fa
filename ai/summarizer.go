package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"vizora/domain/dataset"
	"vizora/internal/errors"
	"vizora/internal/profiling"
	"vizora/ports"
)

// SummaryMethod selects how much work Summarize does.
type SummaryMethod string

const (
	SummaryDefault SummaryMethod = "default" // profiles only
	SummaryLLM     SummaryMethod = "llm"     // profiles enriched by the model
	SummaryColumns SummaryMethod = "columns" // column names only
)

func ParseSummaryMethod(s string) (SummaryMethod, error) {
	switch m := SummaryMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case SummaryDefault, SummaryLLM, SummaryColumns:
		return m, nil
	case "":
		return SummaryDefault, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown summary method %q", s))
}

// Summarizer builds a DatasetSummary from a table.
type Summarizer struct {
	llm      ports.LLMClient
	prompts  *PromptManager
	profiler *profiling.ColumnProfiler
	samples  int
}

func NewSummarizer(llm ports.LLMClient, prompts *PromptManager, profiler *profiling.ColumnProfiler) *Summarizer {
	return &Summarizer{llm: llm, prompts: prompts, profiler: profiler, samples: profiling.DefaultSamples}
}

// Summarize profiles the table and, for SummaryLLM, asks the model for
// semantic types, descriptions and a narrative. Enrichment output that cannot
// be parsed fails the call.
func (s *Summarizer) Summarize(ctx context.Context, table *dataset.Table, fileName string, method SummaryMethod) (*dataset.DatasetSummary, error) {
	summary := &dataset.DatasetSummary{
		Name:       fileName,
		FileName:   fileName,
		FieldNames: append([]string{}, table.Columns...),
	}
	if method == SummaryColumns {
		summary.SummaryText = describeColumns(fileName, table.NumRows(), table.Columns)
		return summary, nil
	}

	summary.Fields = s.profiler.ProfileColumns(table, s.samples)
	if method != SummaryLLM {
		summary.SummaryText = describeColumns(fileName, table.NumRows(), table.Columns)
		return summary, nil
	}

	if err := s.enrich(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

type enrichedField struct {
	Column       string `json:"column"`
	SemanticType string `json:"semantic_type"`
	Description  string `json:"description"`
}

func (s *Summarizer) enrich(ctx context.Context, summary *dataset.DatasetSummary) error {
	if s.llm == nil {
		return errors.InternalError("summary enrichment requested without a language model")
	}
	profile, err := json.MarshalIndent(summary.Fields, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode dataset profile")
	}
	prompt, err := s.prompts.RenderPrompt(PromptSummarize, map[string]string{
		"DATASET_NAME":    summary.Name,
		"DATASET_PROFILE": string(profile),
	})
	if err != nil {
		return errors.Wrap(err, "failed to render summary prompt")
	}

	log.Printf("[Summarizer] Enriching %d columns of %s", len(summary.Fields), summary.Name)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return errors.ExternalServiceError("llm", err)
	}

	doc, err := parseObject(raw)
	if err != nil {
		return errors.MalformedOutput("dataset summary", err)
	}

	summary.DatasetDescription = strings.TrimSpace(doc.Get("dataset_description").String())
	summary.SummaryText = strings.TrimSpace(doc.Get("summary_text").String())
	if summary.SummaryText == "" {
		summary.SummaryText = summary.DatasetDescription
	}

	matched := 0
	for _, item := range doc.Get("fields").Array() {
		var f enrichedField
		if err := json.Unmarshal([]byte(item.Raw), &f); err != nil {
			continue
		}
		if field, ok := summary.Field(f.Column); ok {
			field.Properties.SemanticType = strings.TrimSpace(f.SemanticType)
			field.Properties.Description = strings.TrimSpace(f.Description)
			matched++
		}
	}
	log.Printf("[Summarizer] ✓ Enriched %d/%d columns", matched, len(summary.Fields))
	return nil
}

func describeColumns(name string, rows int, columns []string) string {
	return fmt.Sprintf("%s has %d rows and %d columns: %s.", name, rows, len(columns), strings.Join(columns, ", "))
}
