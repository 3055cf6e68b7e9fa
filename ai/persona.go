package ai

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"
	"vizora/ports"
)

// PersonaGenerator proposes stakeholders for a dataset, most relevant first.
type PersonaGenerator struct {
	llm     ports.LLMClient
	prompts *PromptManager
}

func NewPersonaGenerator(llm ports.LLMClient, prompts *PromptManager) *PersonaGenerator {
	return &PersonaGenerator{llm: llm, prompts: prompts}
}

// Generate returns up to n personas. A parseable response with no usable
// persona yields the default one.
func (g *PersonaGenerator) Generate(ctx context.Context, summary *dataset.DatasetSummary, n int) ([]goal.Persona, error) {
	if n <= 0 {
		n = 1
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode summary")
	}
	prompt, err := g.prompts.RenderPrompt(PromptPersonas, map[string]string{
		"N":               strconv.Itoa(n),
		"DATASET_SUMMARY": string(summaryJSON),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render persona prompt")
	}

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, errors.ExternalServiceError("llm", err)
	}
	items, err := parseList(raw)
	if err != nil {
		return nil, errors.MalformedOutput("personas", err)
	}

	personas := make([]goal.Persona, 0, len(items))
	for _, item := range items {
		p := goal.Persona{
			Persona:   strings.TrimSpace(item.Get("persona").String()),
			Rationale: strings.TrimSpace(item.Get("rationale").String()),
		}
		if p.Persona == "" {
			continue
		}
		personas = append(personas, p)
		if len(personas) == n {
			break
		}
	}
	if len(personas) == 0 {
		log.Printf("[PersonaGenerator] No usable personas in response, using default")
		return []goal.Persona{goal.DefaultPersona}, nil
	}
	log.Printf("[PersonaGenerator] Generated %d personas (primary: %s)", len(personas), personas[0].Persona)
	return personas, nil
}
