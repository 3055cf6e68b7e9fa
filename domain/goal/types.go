package goal

import "strings"

// Persona is a stakeholder an analysis is written for.
type Persona struct {
	Persona   string `json:"persona"`
	Rationale string `json:"rationale"`
}

// DefaultPersona is used when the model proposes none.
var DefaultPersona = Persona{Persona: "agent", Rationale: "Default persona"}

// Goal is one analytical question to answer with a chart.
type Goal struct {
	Index          int    `json:"index"`
	Question       string `json:"question"`
	Rationale      string `json:"rationale"`
	Visualization  string `json:"visualization,omitempty"`
	SuggestedChart string `json:"suggested_chart,omitempty"`
}

// Valid reports whether the goal carries both a question and a rationale.
func (g Goal) Valid() bool {
	return strings.TrimSpace(g.Question) != "" && strings.TrimSpace(g.Rationale) != ""
}

// ChartIntent is the visualization hint, whichever variant produced the goal.
func (g Goal) ChartIntent() string {
	if g.SuggestedChart != "" {
		return g.SuggestedChart
	}
	return g.Visualization
}

// Normalize drops invalid goals and renumbers the rest 0..n-1 so indexes are
// unique within the batch.
func Normalize(goals []Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if !g.Valid() {
			continue
		}
		g.Index = len(out)
		out = append(out, g)
	}
	return out
}

// SplitQueries turns a free-text instruction into individual queries,
// splitting on commas and newlines.
func SplitQueries(instruction string) []string {
	fields := strings.FieldsFunc(instruction, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
