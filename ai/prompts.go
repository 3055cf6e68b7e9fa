package ai

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Prompt template names
const (
	PromptSummarize    = "summarize"
	PromptPersonas     = "personas"
	PromptGoalsPersona = "goals_persona"
	PromptGoalsQueries = "goals_queries"
	PromptChartSpec    = "chart_spec"
)

// Global map to track initialized prompt directories (to avoid duplicate logs)
var (
	initializedDirs   = make(map[string]bool)
	initializedDirsMu sync.Mutex
)

// PromptManager loads prompt templates, preferring files in PromptsDir over
// the embedded defaults.
type PromptManager struct {
	PromptsDir string
}

// NewPromptManager creates a prompt manager. An empty dir uses only the embedded templates.
func NewPromptManager(promptsDir string) *PromptManager {
	if promptsDir != "" {
		initializedDirsMu.Lock()
		if !initializedDirs[promptsDir] {
			initializedDirs[promptsDir] = true
			log.Printf("[PromptManager] Using prompt overrides from: %s", promptsDir)
		}
		initializedDirsMu.Unlock()
	}
	return &PromptManager{PromptsDir: promptsDir}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	if pm.PromptsDir != "" {
		content, err := os.ReadFile(filepath.Join(pm.PromptsDir, name+".txt"))
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
	}

	content, err := embeddedPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	// one pass, so values that happen to contain {NAME} are left alone
	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template), nil
}
