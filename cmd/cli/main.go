package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vizora/ai"
	"vizora/app"
	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/internal/config"
	"vizora/internal/container"
	"vizora/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vizora",
		Short: "Vizora CLI: profile a data file and generate chart-backed analysis goals",
	}

	rootCmd.AddCommand(
		newSummarizeCmd(),
		newPersonasCmd(),
		newAnalyzeCmd(),
		newSpecCmd(),
		newRenderCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSummarizeCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Profile every column of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := ai.ParseSummaryMethod(method)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				summary, err := summarize(cmd.Context(), svc, args[0], m)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&method, "method", "default", "Summary method: default, llm or columns")
	return cmd
}

func newPersonasCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "personas [file]",
		Short: "Propose stakeholder personas for a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				summary, err := summarize(cmd.Context(), svc, args[0], ai.SummaryLLM)
				if err != nil {
					return err
				}
				personas, err := svc.Personas(cmd.Context(), summary, n)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), personas)
			})
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 3, "Number of personas")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var instruction, format, out string
	var nPersonas, nGoals int

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Run the full pipeline and write a JSON, Markdown or HTML report",
		Long: `Summarize a data file, pick goals and render one chart per goal.

Example: vizora analyze sales.csv --instruction "revenue by region, monthly trend" --format html --out report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				bundle, err := svc.Upload(cmd.Context(), filepath.Base(args[0]), f, instruction, nPersonas, nGoals)
				if err != nil {
					return err
				}

				w, closeOut, err := output(cmd, out)
				if err != nil {
					return err
				}
				defer closeOut()
				return writeReport(w, bundle, format)
			})
		},
	}

	cmd.Flags().StringVar(&instruction, "instruction", "", "Comma or newline separated questions")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, markdown or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default stdout)")
	cmd.Flags().IntVar(&nPersonas, "personas", 0, "Number of personas (0 uses the configured default)")
	cmd.Flags().IntVar(&nGoals, "goals", 0, "Number of goals (0 uses the configured default)")
	return cmd
}

func newSpecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spec [file] [question]",
		Short: "Ask the model for a chart specification answering a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				rec, err := register(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				result, err := svc.ChartSpec(cmd.Context(), rec.FileID, args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newRenderCmd() *cobra.Command {
	var specJSON string

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Preprocess and render a chart specification",
		Long: `Render a chart specification against a data file. The result names the
engine that produced it and carries every engine attempt.

Example: vizora render sales.csv --spec '{"chart":"bar","x":"region","y":"revenue","agg":"sum"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseSpec(specJSON)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				rec, err := register(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				result, err := svc.RenderChart(cmd.Context(), rec.FileID, raw)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&specJSON, "spec", "", "Chart specification as JSON")
	cmd.MarkFlagRequired("spec")
	return cmd
}

func newExportCmd() *cobra.Command {
	var specJSON, out string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the preprocessed chart data and a native chart to an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseSpec(specJSON)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), func(svc *app.AnalysisService) error {
				rec, err := register(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := svc.Export(cmd.Context(), rec.FileID, raw, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&specJSON, "spec", "", "Chart specification as JSON")
	cmd.Flags().StringVarP(&out, "out", "o", "chart.xlsx", "Workbook path")
	cmd.MarkFlagRequired("spec")
	return cmd
}

// withService builds the container from the environment and runs fn.
func withService(ctx context.Context, fn func(*app.AnalysisService) error) error {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())
	return fn(c.Analysis)
}

func register(ctx context.Context, svc *app.AnalysisService, path string) (*dataset.UploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svc.Register(ctx, filepath.Base(path), f)
}

func summarize(ctx context.Context, svc *app.AnalysisService, path string, method ai.SummaryMethod) (*dataset.DatasetSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svc.Summarize(ctx, filepath.Base(path), f, method)
}

func parseSpec(s string) (chart.RawSpec, error) {
	var raw chart.RawSpec
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid --spec: %w", err)
	}
	return raw, nil
}

func output(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func writeReport(w io.Writer, bundle *app.AnalysisBundle, format string) error {
	switch format {
	case "json":
		return printJSON(w, bundle)
	case "markdown", "md":
		_, err := io.WriteString(w, report.Markdown(bundle))
		return err
	case "html":
		page, err := report.HTML(bundle)
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
