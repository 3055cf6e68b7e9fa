// Package mcp exposes the pipeline steps as MCP tools over stdio.
package mcp

import (
	"sort"

	"vizora/app"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"dataset_load": {
		def: mcp.NewTool("dataset_load",
			mcp.WithDescription("Load a CSV, TSV, JSON, XLSX or Parquet file from disk and register it. Returns a file_id for the other tools."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the data file")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"dataset_summarize": {
		def: mcp.NewTool("dataset_summarize",
			mcp.WithDescription("Profile every column of a registered dataset and optionally enrich the profile with semantic types."),
			mcp.WithString("file_id", mcp.Required()),
			mcp.WithString("method", mcp.Description("default, llm or columns"), mcp.Enum("default", "llm", "columns")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummarize },
	},
	"persona_generate": {
		def: mcp.NewTool("persona_generate",
			mcp.WithDescription("Propose stakeholder personas for a dataset summary, most relevant first."),
			mcp.WithObject("summary", mcp.Required(), mcp.Description("Output of dataset_summarize")),
			mcp.WithNumber("n", mcp.Description("Number of personas (default 3)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePersonas },
	},
	"goal_generate": {
		def: mcp.NewTool("goal_generate",
			mcp.WithDescription("Generate analysis goals, either for a persona or from a free-text instruction."),
			mcp.WithObject("summary", mcp.Required()),
			mcp.WithObject("persona", mcp.Description("Persona to write goals for")),
			mcp.WithString("instruction", mcp.Description("Comma or newline separated questions; overrides persona")),
			mcp.WithNumber("n", mcp.Description("Number of goals for a persona (default 5)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGoals },
	},
	"chart_spec": {
		def: mcp.NewTool("chart_spec",
			mcp.WithDescription("Ask the model for a chart specification answering a question, validated against the dataset columns."),
			mcp.WithString("file_id", mcp.Required()),
			mcp.WithString("question", mcp.Required()),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChartSpec },
	},
	"chart_preprocess": {
		def: mcp.NewTool("chart_preprocess",
			mcp.WithDescription("Apply a chart specification's projection, null filtering, aggregation, sort and limit. Returns the resulting rows."),
			mcp.WithString("file_id", mcp.Required()),
			mcp.WithObject("chart_spec", mcp.Required()),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePreprocess },
	},
	"chart_render": {
		def: mcp.NewTool("chart_render",
			mcp.WithDescription("Render a chart specification: an interactive figure when possible, else a PNG data URI."),
			mcp.WithString("file_id", mcp.Required()),
			mcp.WithObject("chart_spec", mcp.Required()),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRender },
	},
}

// ToolNames lists the registered tools in name order.
func ToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewServer(analysis *app.AnalysisService, version string) *server.MCPServer {
	s := server.NewMCPServer("vizora", version, server.WithToolCapabilities(true))
	h := NewHandlers(analysis)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools on stdin/stdout until EOF.
func Run(analysis *app.AnalysisService, version string) error {
	return server.ServeStdio(NewServer(analysis, version))
}
