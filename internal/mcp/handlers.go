package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vizora/ai"
	"vizora/app"
	"vizora/domain/chart"
	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers adapts tool calls to the analysis service.
type Handlers struct {
	analysis *app.AnalysisService
}

func NewHandlers(analysis *app.AnalysisService) *Handlers {
	return &Handlers{analysis: analysis}
}

type loadRequest struct {
	Path string `json:"path"`
}

type summarizeRequest struct {
	FileID string `json:"file_id"`
	Method string `json:"method,omitempty"`
}

type personasRequest struct {
	Summary *dataset.DatasetSummary `json:"summary"`
	N       int                     `json:"n,omitempty"`
}

type goalsRequest struct {
	Summary     *dataset.DatasetSummary `json:"summary"`
	Persona     *goal.Persona           `json:"persona,omitempty"`
	Instruction string                  `json:"instruction,omitempty"`
	N           int                     `json:"n,omitempty"`
}

type chartSpecRequest struct {
	FileID   string `json:"file_id"`
	Question string `json:"question"`
}

type specRequest struct {
	FileID    string        `json:"file_id"`
	ChartSpec chart.RawSpec `json:"chart_spec"`
}

func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[loadRequest](req)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.InvalidInput("path is required")), nil
	}
	f, err := os.Open(input.Path)
	if err != nil {
		return errorResult(errors.NotFound("file " + input.Path)), nil
	}
	defer f.Close()

	rec, err := h.analysis.Register(ctx, filepath.Base(input.Path), f)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"file_id":  rec.FileID,
		"filename": rec.Filename,
		"rows":     rec.Table.NumRows(),
		"columns":  rec.Table.Columns,
	})
}

func (h *Handlers) HandleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[summarizeRequest](req)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	id, err := core.ParseFileID(input.FileID)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	method, err := ai.ParseSummaryMethod(input.Method)
	if err != nil {
		return errorResult(err), nil
	}
	summary, err := h.analysis.SummarizeFile(ctx, id, method)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(summary)
}

func (h *Handlers) HandlePersonas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[personasRequest](req)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	if input.Summary == nil {
		return errorResult(errors.InvalidInput("summary is required")), nil
	}
	personas, err := h.analysis.Personas(ctx, input.Summary, input.N)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"personas": personas})
}

func (h *Handlers) HandleGoals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[goalsRequest](req)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	if input.Summary == nil {
		return errorResult(errors.InvalidInput("summary is required")), nil
	}

	var goals []goal.Goal
	if input.Instruction != "" {
		goals, err = h.analysis.GoalsFromInstruction(ctx, input.Summary, input.Instruction)
	} else {
		var persona goal.Persona
		if input.Persona != nil {
			persona = *input.Persona
		}
		goals, err = h.analysis.Goals(ctx, input.Summary, persona, input.N)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"goals": goals})
}

// HandleChartSpec returns the validated spec, or {"error": reason} when the
// model's answer was rejected. A rejection is not a tool failure.
func (h *Handlers) HandleChartSpec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[chartSpecRequest](req)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	id, err := core.ParseFileID(input.FileID)
	if err != nil {
		return errorResult(errors.InvalidInput(err.Error())), nil
	}
	result, err := h.analysis.ChartSpec(ctx, id, input.Question)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) HandlePreprocess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, raw, errResult := decodeSpecRequest(req)
	if errResult != nil {
		return errResult, nil
	}
	frame, spec, err := h.analysis.Prepare(ctx, id, raw)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"chart_spec": spec,
		"columns":    frame.Columns,
		"records":    frame.Records(),
		"rows":       frame.NumRows(),
	})
}

func (h *Handlers) HandleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, raw, errResult := decodeSpecRequest(req)
	if errResult != nil {
		return errResult, nil
	}
	result, err := h.analysis.RenderChart(ctx, id, raw)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func decodeSpecRequest(req mcp.CallToolRequest) (core.FileID, chart.RawSpec, *mcp.CallToolResult) {
	input, err := decode[specRequest](req)
	if err != nil {
		return "", nil, errorResult(errors.InvalidInput(err.Error()))
	}
	id, err := core.ParseFileID(input.FileID)
	if err != nil {
		return "", nil, errorResult(errors.InvalidInput(err.Error()))
	}
	if len(input.ChartSpec) == 0 {
		return "", nil, errorResult(errors.InvalidInput("chart_spec is required"))
	}
	return id, input.ChartSpec, nil
}

// decode round-trips the tool arguments through JSON into T.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// errorResult reports err as a tool error. Internal causes are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	code := errors.GetCode(err)
	message := err.Error()
	if !errors.IsAppError(err) || code == errors.CodeInternalError || code == errors.CodeDatabaseError {
		code, message = errors.CodeInternalError, "an internal error occurred"
	}
	content, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
