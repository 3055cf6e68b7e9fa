// Package report renders an analysis bundle as a markdown document or a
// standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"vizora/app"
	"vizora/internal/render"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
img { max-width: 100%; }
.error { color: #a00; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Markdown renders the bundle: dataset summary, personas, then one section
// per goal with its chart or the reason there is none.
func Markdown(b *app.AnalysisBundle) string {
	var sb strings.Builder
	name := b.Filename
	if name == "" {
		name = "dataset"
	}
	fmt.Fprintf(&sb, "# Analysis of %s\n\n", escape(name))

	if b.Summary != nil {
		if b.Summary.DatasetDescription != "" {
			fmt.Fprintf(&sb, "%s\n\n", escape(b.Summary.DatasetDescription))
		}
		if b.SummaryText != "" && b.SummaryText != b.Summary.DatasetDescription {
			fmt.Fprintf(&sb, "%s\n\n", escape(b.SummaryText))
		}
		if len(b.Summary.Fields) > 0 {
			sb.WriteString("## Columns\n\n| Column | Type | Unique | Description |\n|---|---|---|---|\n")
			for _, f := range b.Summary.Fields {
				desc := f.Properties.Description
				if f.Properties.SemanticType != "" {
					desc = strings.TrimSpace(f.Properties.SemanticType + ": " + desc)
				}
				fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n",
					cell(f.Column), f.Properties.DType, f.Properties.NumUniqueValues, cell(desc))
			}
			sb.WriteString("\n")
		}
	}

	if len(b.Personas) > 0 {
		sb.WriteString("## Personas\n\n")
		for _, p := range b.Personas {
			fmt.Fprintf(&sb, "- **%s**: %s\n", escape(p.Persona), escape(p.Rationale))
		}
		sb.WriteString("\n")
	}

	if len(b.Charts) > 0 {
		sb.WriteString("## Goals\n\n")
	}
	for _, c := range b.Charts {
		fmt.Fprintf(&sb, "### %d. %s\n\n", c.Goal.Index+1, escape(c.Goal.Question))
		if c.Goal.Rationale != "" {
			fmt.Fprintf(&sb, "_%s_\n\n", escape(c.Goal.Rationale))
		}
		if c.ChartSpec.OK() {
			fmt.Fprintf(&sb, "Chart: %s\n\n", escape(render.Title(*c.ChartSpec.Spec)))
		}
		switch {
		case c.ChartDataStatic != nil:
			if uri, ok := c.ChartDataStatic.(string); ok {
				fmt.Fprintf(&sb, "![%s](%s)\n\n", escape(c.Goal.Question), uri)
			}
		case c.ChartDataInteractive != nil:
			sb.WriteString("Interactive figure only; see the JSON response.\n\n")
		}
		if c.Error != "" {
			fmt.Fprintf(&sb, "> Chart unavailable: %s\n\n", escape(c.Error))
		}
	}
	return sb.String()
}

// HTML renders Markdown(b) into a self-contained page.
func HTML(b *app.AnalysisBundle) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(b)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: "Analysis of " + b.Filename, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("failed to render report page: %w", err)
	}
	return out.Bytes(), nil
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func escape(s string) string {
	return mdEscaper.Replace(strings.TrimSpace(s))
}

// cell also escapes pipes and flattens newlines so text stays in its table cell.
func cell(s string) string {
	s = strings.ReplaceAll(escape(s), "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
