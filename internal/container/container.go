package container

import (
	"context"
	"fmt"
	"io"
	"log"

	"vizora/adapters/excel"
	"vizora/adapters/filewatcher"
	"vizora/adapters/llm"
	"vizora/adapters/memstore"
	"vizora/adapters/postgres"
	"vizora/adapters/tabular"
	"vizora/ai"
	"vizora/app"
	"vizora/internal"
	"vizora/internal/config"
	"vizora/internal/profiling"
	"vizora/internal/render"
	"vizora/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	LLM    ports.LLMClient
	Store  ports.DatasetStore
	Loader *tabular.Loader

	// AI components
	Prompts    *ai.PromptManager
	Summarizer *ai.Summarizer
	Personas   *ai.PersonaGenerator
	Goals      *ai.GoalGenerator
	ChartSpecs *ai.ChartSpecGenerator

	// Rendering and export
	Renderer *render.Renderer
	Exporter *excel.Exporter

	// Services
	Analysis *app.AnalysisService
	Inbox    *app.InboxService

	closers []io.Closer
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.LogLevel))

	c := &Container{Config: cfg}

	if err := c.initLLM(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if err := c.initStore(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := c.initServices(); err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Printf("Container initialized: provider=%s model=%s store=%s", cfg.LLM.Provider, cfg.LLM.Model, cfg.Store.Driver)
	return c, nil
}

func (c *Container) initLLM(ctx context.Context) error {
	lc := c.Config.LLM
	client, err := llm.NewClient(ctx, llm.Config{
		Provider:      lc.Provider,
		APIKey:        lc.APIKey,
		BaseURL:       lc.BaseURL,
		Model:         lc.Model,
		FallbackModel: lc.FallbackModel,
		MaxTokens:     lc.MaxTokens,
		Temperature:   lc.Temperature,
		Timeout:       lc.Timeout,
	})
	if err != nil {
		return err
	}
	c.LLM = client
	if closer, ok := client.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	c.Prompts = ai.NewPromptManager(lc.PromptsDir)
	return nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Store.Driver {
	case "postgres":
		store, err := postgres.Open(ctx, c.Config.Store.DatabaseURL)
		if err != nil {
			return err
		}
		c.Store = store
		c.closers = append(c.closers, store)
	default:
		c.Store = memstore.New()
	}
	return nil
}

func (c *Container) initServices() error {
	method, err := ai.ParseSummaryMethod(c.Config.Pipeline.SummaryMethod)
	if err != nil {
		return err
	}

	c.Loader = tabular.NewLoader(tabular.Options{
		MaxRows: c.Config.Data.MaxRows,
		Seed:    c.Config.Data.SampleSeed,
	})
	c.Summarizer = ai.NewSummarizer(c.LLM, c.Prompts, profiling.NewColumnProfiler(c.Config.Data.SampleSeed))
	c.Personas = ai.NewPersonaGenerator(c.LLM, c.Prompts)
	c.Goals = ai.NewGoalGenerator(c.LLM, c.Prompts)
	c.ChartSpecs = ai.NewChartSpecGenerator(c.LLM, c.Prompts)
	c.Renderer = render.NewDefaultRenderer()
	c.Exporter = excel.NewExporter()

	c.Analysis = app.NewAnalysisService(
		c.Loader,
		c.Store,
		c.Summarizer,
		c.Personas,
		c.Goals,
		c.ChartSpecs,
		c.Renderer,
		c.Exporter,
		app.PipelineOptions{
			NumPersonas:   c.Config.Pipeline.NumPersonas,
			NumGoals:      c.Config.Pipeline.NumGoals,
			Concurrency:   c.Config.Pipeline.Concurrency,
			SummaryMethod: method,
		},
	)
	return nil
}

// InitInbox creates the drop-directory watcher. Call only when an inbox
// directory is configured.
func (c *Container) InitInbox() error {
	if c.Config.Data.InboxDir == "" {
		return fmt.Errorf("no inbox directory configured")
	}
	watcher, err := filewatcher.NewFSNotifyWatcher(tabular.Supported)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	c.closers = append(c.closers, closerFunc(watcher.Stop))
	c.Inbox = app.NewInboxService(watcher, c.Loader, c.Store)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Shutdown releases the store connection, the watcher and any provider client.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
