package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"vizora/ai"
	"vizora/domain/chart"
	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"
	"vizora/internal/preprocess"
	"vizora/internal/render"
	"vizora/ports"

	"golang.org/x/sync/semaphore"
)

// Approach tags which path produced a bundle.
const (
	ApproachUploadNoInstruction   = "upload_no_instruction"
	ApproachUploadWithInstruction = "upload_with_instruction"
	ApproachQueryWithInstruction  = "query_with_instruction"
)

// PipelineOptions are the per-service defaults; requests may override the counts.
type PipelineOptions struct {
	NumPersonas   int
	NumGoals      int
	Concurrency   int
	SummaryMethod ai.SummaryMethod
}

func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{NumPersonas: 3, NumGoals: 5, Concurrency: 4, SummaryMethod: ai.SummaryLLM}
}

// ChartRecord is the outcome of one goal's spec, preprocess and render steps.
// Error holds the first failure that stopped the goal short of a chart.
type ChartRecord struct {
	Goal                  goal.Goal        `json:"goal"`
	ChartSpec             chart.SpecResult `json:"chart_spec"`
	PreprocessError       string           `json:"preprocess_error,omitempty"`
	Engine                chart.Engine     `json:"engine,omitempty"`
	ChartDataInteractive  any              `json:"chart_data_interactive"`
	ChartErrorInteractive string           `json:"chart_error_interactive,omitempty"`
	ChartDataStatic       any              `json:"chart_data_static"`
	ChartErrorStatic      string           `json:"chart_error_static,omitempty"`
	Error                 string           `json:"error,omitempty"`
}

// AnalysisBundle is the full response for one dataset.
type AnalysisBundle struct {
	RunID           core.RunID              `json:"run_id"`
	FileID          core.FileID             `json:"file_id,omitempty"`
	Filename        string                  `json:"filename"`
	Summary         *dataset.DatasetSummary `json:"summary_json"`
	SummaryText     string                  `json:"summary_text"`
	Personas        []goal.Persona          `json:"personas"`
	SelectedPersona goal.Persona            `json:"selected_persona"`
	Goals           []goal.Goal             `json:"goals"`
	Charts          []ChartRecord           `json:"charts"`
	Approach        string                  `json:"approach"`
	Columns         []string                `json:"columns"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// AnalyzeRequest runs the pipeline on a table. Zero counts use the defaults.
type AnalyzeRequest struct {
	FileID      core.FileID
	Filename    string
	Table       *dataset.Table
	Instruction string
	NumPersonas int
	NumGoals    int
	approach    string
}

// AnalysisService sequences summary, personas, goals and the per-goal chart loop.
type AnalysisService struct {
	loader     ports.TableLoader
	store      ports.DatasetStore
	summarizer *ai.Summarizer
	personas   *ai.PersonaGenerator
	goals      *ai.GoalGenerator
	specs      *ai.ChartSpecGenerator
	renderer   *render.Renderer
	exporter   ports.ChartExporter
	opts       PipelineOptions
}

func NewAnalysisService(
	loader ports.TableLoader,
	store ports.DatasetStore,
	summarizer *ai.Summarizer,
	personas *ai.PersonaGenerator,
	goals *ai.GoalGenerator,
	specs *ai.ChartSpecGenerator,
	renderer *render.Renderer,
	exporter ports.ChartExporter,
	opts PipelineOptions,
) *AnalysisService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &AnalysisService{
		loader:     loader,
		store:      store,
		summarizer: summarizer,
		personas:   personas,
		goals:      goals,
		specs:      specs,
		renderer:   renderer,
		exporter:   exporter,
		opts:       opts,
	}
}

// Upload loads and registers a file, then analyzes it.
func (s *AnalysisService) Upload(ctx context.Context, filename string, r io.Reader, instruction string, nPersonas, nGoals int) (*AnalysisBundle, error) {
	rec, err := s.Register(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, AnalyzeRequest{
		FileID:      rec.FileID,
		Filename:    rec.Filename,
		Table:       rec.Table,
		Instruction: instruction,
		NumPersonas: nPersonas,
		NumGoals:    nGoals,
	})
}

// Register loads a file and stores it without analyzing.
func (s *AnalysisService) Register(ctx context.Context, filename string, r io.Reader) (*dataset.UploadedFile, error) {
	table, err := s.loader.Load(filename, r)
	if err != nil {
		return nil, err
	}
	return s.store.Put(ctx, filename, table)
}

// Query re-runs the instruction flow against a registered upload.
func (s *AnalysisService) Query(ctx context.Context, fileID core.FileID, instruction string) (*AnalysisBundle, error) {
	if len(goal.SplitQueries(instruction)) == 0 {
		return nil, errors.InvalidInput("instruction is required")
	}
	rec, err := s.store.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, AnalyzeRequest{
		FileID:      rec.FileID,
		Filename:    rec.Filename,
		Table:       rec.Table,
		Instruction: instruction,
		approach:    ApproachQueryWithInstruction,
	})
}

// Analyze runs the whole pipeline. Summary, persona and goal failures fail
// the request; per-goal failures are recorded in that goal's ChartRecord.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisBundle, error) {
	if req.Table == nil || len(req.Table.Columns) == 0 {
		return nil, errors.InvalidInput("dataset has no columns")
	}
	start := time.Now()
	bundle := &AnalysisBundle{
		RunID:    core.NewRunID(),
		FileID:   req.FileID,
		Filename: req.Filename,
		Columns:  append([]string{}, req.Table.Columns...),
	}
	log.Printf("[Analysis] Run %s on %s (%d rows)", bundle.RunID, req.Filename, req.Table.NumRows())

	summary, err := s.summarizer.Summarize(ctx, req.Table, req.Filename, s.opts.SummaryMethod)
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize dataset")
	}
	bundle.Summary, bundle.SummaryText = summary, summary.SummaryText

	queries := goal.SplitQueries(req.Instruction)
	if len(queries) > 0 {
		personas, err := s.personas.Generate(ctx, summary, 1)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate personas")
		}
		bundle.SelectedPersona = primary(personas)
		bundle.Personas = []goal.Persona{bundle.SelectedPersona}

		bundle.Goals, err = s.goals.FromQueries(ctx, summary, queries)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate goals")
		}
		bundle.Approach = ApproachUploadWithInstruction
	} else {
		personas, err := s.personas.Generate(ctx, summary, orDefault(req.NumPersonas, s.opts.NumPersonas))
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate personas")
		}
		bundle.Personas = personas
		bundle.SelectedPersona = primary(personas)

		bundle.Goals, err = s.goals.FromPersona(ctx, summary, bundle.SelectedPersona, orDefault(req.NumGoals, s.opts.NumGoals))
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate goals")
		}
		bundle.Approach = ApproachUploadNoInstruction
	}
	if req.approach != "" {
		bundle.Approach = req.approach
	}

	bundle.Charts = s.ChartsForGoals(ctx, req.Table, bundle.Goals)
	bundle.GeneratedAt = time.Now().UTC()

	charted := 0
	for _, c := range bundle.Charts {
		if c.Engine != "" {
			charted++
		}
	}
	log.Printf("[Analysis] ✓ Run %s done: %d/%d goals charted in %v", bundle.RunID, charted, len(bundle.Goals), time.Since(start).Round(time.Millisecond))
	return bundle, nil
}

// ChartsForGoals runs spec, preprocess and render for each goal with bounded
// concurrency. Each goal works on its own copy of table; records come back
// in goal order and the loop never stops early.
func (s *AnalysisService) ChartsForGoals(ctx context.Context, table *dataset.Table, goals []goal.Goal) []ChartRecord {
	records := make([]ChartRecord, len(goals))
	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))
	var wg sync.WaitGroup

	for i, g := range goals {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(goals); j++ {
				records[j] = ChartRecord{Goal: goals[j], ChartSpec: chart.Failed(err.Error()), Error: err.Error()}
			}
			break
		}
		wg.Add(1)
		go func(i int, g goal.Goal) {
			defer wg.Done()
			defer sem.Release(1)
			records[i] = s.chartForGoal(ctx, table.Clone(), g)
		}(i, g)
	}
	wg.Wait()
	return records
}

func (s *AnalysisService) chartForGoal(ctx context.Context, table *dataset.Table, g goal.Goal) (rec ChartRecord) {
	rec.Goal = g
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Analysis] Goal %d panicked: %v", g.Index, r)
			rec.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	rec.ChartSpec = s.specs.ForGoal(ctx, table.Columns, g)
	if !rec.ChartSpec.OK() {
		rec.Error = rec.ChartSpec.Error
		return rec
	}
	spec := *rec.ChartSpec.Spec

	frame, err := preprocess.Process(table, spec)
	if err != nil {
		rec.PreprocessError = err.Error()
		rec.Error = rec.PreprocessError
		return rec
	}

	result := s.renderer.Render(frame, spec)
	if a, ok := result.Attempt(chart.EngineInteractive); ok {
		rec.ChartDataInteractive, rec.ChartErrorInteractive = a.Payload, a.Error
	}
	if a, ok := result.Attempt(chart.EngineStatic); ok {
		rec.ChartDataStatic, rec.ChartErrorStatic = a.Payload, a.Error
	}
	rec.Engine = result.Engine
	if !result.OK() {
		rec.Error = result.Error
	}
	return rec
}

// Summarize loads a file and summarizes it without registering it.
func (s *AnalysisService) Summarize(ctx context.Context, filename string, r io.Reader, method ai.SummaryMethod) (*dataset.DatasetSummary, error) {
	table, err := s.loader.Load(filename, r)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = s.opts.SummaryMethod
	}
	return s.summarizer.Summarize(ctx, table, filename, method)
}

// Personas and Goals expose the single-step generators.
func (s *AnalysisService) Personas(ctx context.Context, summary *dataset.DatasetSummary, n int) ([]goal.Persona, error) {
	return s.personas.Generate(ctx, summary, orDefault(n, s.opts.NumPersonas))
}

func (s *AnalysisService) Goals(ctx context.Context, summary *dataset.DatasetSummary, persona goal.Persona, n int) ([]goal.Goal, error) {
	if persona.Persona == "" {
		persona = goal.DefaultPersona
	}
	return s.goals.FromPersona(ctx, summary, persona, orDefault(n, s.opts.NumGoals))
}

// ExtractColumns names an upload's columns without keeping it.
func (s *AnalysisService) ExtractColumns(filename string, r io.Reader) ([]string, error) {
	return s.loader.Columns(filename, r)
}

// Files lists registered uploads.
func (s *AnalysisService) Files(ctx context.Context) ([]dataset.UploadInfo, error) {
	return s.store.List(ctx)
}

// ChartSpec generates and validates a spec for a question about a registered upload.
func (s *AnalysisService) ChartSpec(ctx context.Context, fileID core.FileID, question string) (chart.SpecResult, error) {
	if question == "" {
		return chart.SpecResult{}, errors.InvalidInput("question is required")
	}
	rec, err := s.store.Get(ctx, fileID)
	if err != nil {
		return chart.SpecResult{}, err
	}
	return s.specs.GenerateAndValidate(ctx, rec.Table.Columns, question), nil
}

// SummarizeFile summarizes a registered upload.
func (s *AnalysisService) SummarizeFile(ctx context.Context, fileID core.FileID, method ai.SummaryMethod) (*dataset.DatasetSummary, error) {
	rec, err := s.store.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = s.opts.SummaryMethod
	}
	return s.summarizer.Summarize(ctx, rec.Table, rec.Filename, method)
}

// GoalsFromInstruction turns a free-text instruction into goals.
func (s *AnalysisService) GoalsFromInstruction(ctx context.Context, summary *dataset.DatasetSummary, instruction string) ([]goal.Goal, error) {
	queries := goal.SplitQueries(instruction)
	if len(queries) == 0 {
		return nil, errors.InvalidInput("instruction is required")
	}
	return s.goals.FromQueries(ctx, summary, queries)
}

// Prepare validates raw against a registered upload and preprocesses a copy
// of its table for that spec.
func (s *AnalysisService) Prepare(ctx context.Context, fileID core.FileID, raw chart.RawSpec) (*dataset.Table, chart.ChartSpec, error) {
	rec, err := s.store.Get(ctx, fileID)
	if err != nil {
		return nil, chart.ChartSpec{}, err
	}
	result := chart.Validate(raw, rec.Table.Columns)
	if !result.OK() {
		return nil, chart.ChartSpec{}, errors.ValidationError(result.Error)
	}
	frame, err := preprocess.Process(rec.Table, *result.Spec)
	if err != nil {
		return nil, chart.ChartSpec{}, err
	}
	return frame, *result.Spec, nil
}

// RenderChart prepares raw against a registered upload and renders it.
// Engine failures are reported in the result, not as an error.
func (s *AnalysisService) RenderChart(ctx context.Context, fileID core.FileID, raw chart.RawSpec) (chart.ChartResult, error) {
	frame, spec, err := s.Prepare(ctx, fileID, raw)
	if err != nil {
		return chart.ChartResult{}, err
	}
	return s.renderer.Render(frame, spec), nil
}

// Export writes a workbook with the prepared data and a native chart.
func (s *AnalysisService) Export(ctx context.Context, fileID core.FileID, raw chart.RawSpec, w io.Writer) error {
	if s.exporter == nil {
		return errors.InternalError("workbook export is not configured")
	}
	frame, spec, err := s.Prepare(ctx, fileID, raw)
	if err != nil {
		return err
	}
	return s.exporter.Export(w, frame, spec, render.Title(spec))
}

func primary(personas []goal.Persona) goal.Persona {
	if len(personas) == 0 {
		return goal.DefaultPersona
	}
	return personas[0]
}

func orDefault(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
