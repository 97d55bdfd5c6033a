package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alienxp03/ideagen/internal/config"
	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/experiment"
	"github.com/alienxp03/ideagen/internal/export"
	"github.com/alienxp03/ideagen/internal/literature"
	"github.com/alienxp03/ideagen/internal/pipeline"
	"github.com/alienxp03/ideagen/internal/storage"
	"github.com/alienxp03/ideagen/internal/vectorindex"
	"github.com/alienxp03/ideagen/web/handlers"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ideagen",
	Short: "Multi-agent research idea generation",
	Long: `ideagen generates research ideas through a multi-round debate between
AI scientist personas, grounds the debate in retrieved literature, and
evaluates the output with tournament ranking and novelty scoring.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config path (default: ~/.ideagen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.ideagen/ideagen.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(experimentCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.LoadFrom(path)
}

func getStorage() (storage.Storage, error) {
	path := dbPath
	if path == "" {
		path = storage.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	return store, nil
}

// buildRunner assembles a pipeline runner from the configuration. The vector
// index and search client are attached when retrieval is wanted and the
// pieces are configured.
func buildRunner(cfg *config.Config, providerName, model string, withSearch bool) (*pipeline.Runner, func(), error) {
	if providerName == "" {
		providerName = cfg.Defaults.Provider
	}
	if model == "" {
		model = cfg.Defaults.Model
	}

	llm, err := cfg.CreateProvider(providerName)
	if err != nil {
		return nil, nil, err
	}
	if !llm.Available() {
		return nil, nil, fmt.Errorf("provider %s is not available (is the CLI installed?)", providerName)
	}

	runner := pipeline.NewRunner(llm, model, cfg.CreateEmbedder(), cfg.Defaults.ResultsDir).
		WithDebate(cfg.Defaults.DebateRounds, cfg.Defaults.TeamSize).
		WithDedupeThreshold(cfg.Defaults.DedupeThreshold).
		WithTournamentRounds(cfg.Defaults.TournamentRounds).
		WithLiteratureLimits(cfg.Literature.Iterations, cfg.Literature.PapersPerIteration)

	cleanup := func() {}

	store, err := getStorage()
	if err != nil {
		return nil, nil, err
	}
	runner = runner.WithStore(store)
	cleanup = func() { store.Close() }

	if withSearch {
		runner = runner.WithSearchClient(literature.NewHTTPClient(cfg.Literature.APIKey, 0))

		ix, err := vectorIndex(cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		runner = runner.WithIndex(ix)
		prev := cleanup
		cleanup = func() { ix.Close(); prev() }
	}

	return runner, cleanup, nil
}

func vectorIndex(cfg *config.Config) (*vectorindex.Index, error) {
	return vectorindex.Open(filepath.Join(config.DataDir(), "index.db"), cfg.CreateEmbedder())
}

// run command

var (
	providerFlag    string
	modelFlag       string
	experimentFlag  string
	noCritiqueFlag  bool
	noRetrievalFlag bool
	noViewpointFlag bool
	noAbstractsFlag bool
	skipDecompFlag  bool
	finalRoundFlag  bool
	evaluateFlag    bool
	baselineFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run the idea generation pipeline for a query",
	Long: `Run the full pipeline: decompose the query, review literature, debate,
deduplicate, and optionally evaluate the resulting ideas.

Examples:
  ideagen run "How can sparse attention improve long-context reasoning?"
  ideagen run "LLM agents for scientific discovery" --no-critique
  ideagen run "Efficient fine-tuning" --evaluate --baseline baseline_ideas.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "LLM provider")
	runCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model name")
	runCmd.Flags().StringVar(&experimentFlag, "experiment", "", "Use a named experiment configuration from the config file")
	runCmd.Flags().BoolVar(&noCritiqueFlag, "no-critique", false, "Skip the critic round")
	runCmd.Flags().BoolVar(&noRetrievalFlag, "no-retrieval", false, "Disable literature retrieval during the debate")
	runCmd.Flags().BoolVar(&noViewpointFlag, "no-viewpoint", false, "Retrieve with the bare query instead of persona viewpoints")
	runCmd.Flags().BoolVar(&noAbstractsFlag, "no-abstracts", false, "Skip abstract generation for final ideas")
	runCmd.Flags().BoolVar(&skipDecompFlag, "skip-decomposition", false, "Skip query decomposition")
	runCmd.Flags().BoolVar(&finalRoundFlag, "final-round-synthesis", false, "Synthesize from the final round instead of the full history")
	runCmd.Flags().BoolVar(&evaluateFlag, "evaluate", false, "Rank and score the ideas after the run")
	runCmd.Flags().StringVar(&baselineFlag, "baseline", "", "Baseline ideas file for evaluation (JSON)")
}

func buildRunOptions(cfg *config.Config) (core.RunOptions, error) {
	if experimentFlag != "" {
		for _, exp := range cfg.Experiments {
			if exp.Name == experimentFlag {
				return exp, nil
			}
		}
		return core.RunOptions{}, fmt.Errorf("experiment configuration not found: %s", experimentFlag)
	}

	opts := core.DefaultRunOptions()
	if noCritiqueFlag {
		opts.Name = "no_critique"
		opts.CritiqueEnabled = false
	}
	if noRetrievalFlag {
		opts.Name = "no_retrieval"
		opts.Retrieval = core.RetrievalOff
	} else if noViewpointFlag {
		opts.Name = "no_viewpoint"
		opts.Retrieval = core.RetrievalInitialQuery
	}
	if finalRoundFlag {
		opts.Name = "final_round_synthesis"
		opts.Synthesis = core.SynthesisFinalRound
	}
	if skipDecompFlag {
		opts.SkipQueryDecomp = true
	}
	if noAbstractsFlag {
		opts.GenerateAbstracts = false
	}
	return opts, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := buildRunOptions(cfg)
	if err != nil {
		return err
	}

	runner, cleanup, err := buildRunner(cfg, providerFlag, modelFlag, opts.Retrieval != core.RetrievalOff)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("\nGenerating ideas for: %s\n", query)
	fmt.Printf("Configuration: %s\n\n", opts.Name)

	start := time.Now()
	result, err := runner.Run(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	fmt.Printf("Run %s completed in %s\n\n", result.Run.ID[:8], time.Since(start).Round(time.Second))
	for i, idea := range result.State.FinalDeduplicatedIdeas {
		fmt.Printf("%d. %s\n   %s\n\n", i+1, idea.Title, idea.Description)
	}
	fmt.Printf("State: %s\n", result.Run.StatePath)

	if evaluateFlag {
		baseline, err := loadIdeas(baselineFlag)
		if err != nil {
			return err
		}
		if len(baseline) == 0 {
			fmt.Println("No baseline file given, generating a zero-shot baseline...")
			baseline, err = runner.GenerateBaseline(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("baseline generation failed: %w", err)
			}
		}
		var papers []literature.Paper
		if result.Report != nil {
			papers = result.Report.DiscoveredPapers
		}

		eval, err := runner.Evaluate(cmd.Context(), result.Run, result.State.FinalDeduplicatedIdeas, baseline, papers)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		fmt.Println("\nEvaluation:")
		for _, n := range []int{3, 5, 10, 20} {
			if p, ok := eval.Precision[n]; ok {
				fmt.Printf("  precision@%d: %.3f\n", n, p)
			}
		}
		fmt.Printf("  overall novelty: %.3f\n", eval.Novelty.OverallNovelty)
		fmt.Printf("  ranked ideas: %s\n", result.Run.RankedPath)
	}

	return nil
}

// loadIdeas reads a JSON array of ideas from a file. An empty path yields an
// empty list.
func loadIdeas(path string) ([]core.Idea, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ideas file: %w", err)
	}
	var ideas []core.Idea
	if err := json.Unmarshal(data, &ideas); err != nil {
		return nil, fmt.Errorf("failed to parse ideas file: %w", err)
	}
	return ideas, nil
}

// experiment command

var (
	queriesFlag string
	summaryFlag string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Run the configured experiment batch",
	Long: `Run every experiment configuration from the config file against a query
set, maintaining a live results summary. Interrupted batches resume from
the summary file.

The queries file holds one query per line; blank lines and lines starting
with # are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Experiments) == 0 {
			return fmt.Errorf("no experiment configurations in config file")
		}

		queries, err := loadQueries(queriesFlag)
		if err != nil {
			return err
		}

		baseline, err := loadIdeas(baselineFlag)
		if err != nil {
			return err
		}

		runner, cleanup, err := buildRunner(cfg, providerFlag, modelFlag, true)
		if err != nil {
			return err
		}
		defer cleanup()

		summaryPath := summaryFlag
		if summaryPath == "" {
			summaryPath = filepath.Join(cfg.Defaults.ResultsDir, "experiment_summary.json")
		}

		fmt.Printf("\nRunning %d configurations over %d queries\n", len(cfg.Experiments), len(queries))
		fmt.Printf("Summary: %s\n\n", summaryPath)

		driver := experiment.NewDriver(runner, baseline, summaryPath)
		results, err := driver.Run(cmd.Context(), cfg.Experiments, queries)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONFIG\tRUNS\tP@3\tP@5\tP@10\tP@20\tNOVELTY")
		for _, exp := range cfg.Experiments {
			s, ok := results.Summary[exp.Name]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
				exp.Name, s.NumSuccessfulRuns,
				s.AvgPrecisionAt3, s.AvgPrecisionAt5, s.AvgPrecisionAt10, s.AvgPrecisionAt20,
				s.AvgNovelty.OverallNovelty)
		}
		w.Flush()
		return nil
	},
}

func init() {
	experimentCmd.Flags().StringVar(&queriesFlag, "queries", "", "File with one query per line (required)")
	experimentCmd.Flags().StringVar(&summaryFlag, "summary", "", "Live summary path (default: <results>/experiment_summary.json)")
	experimentCmd.Flags().StringVar(&baselineFlag, "baseline", "", "Baseline ideas file for evaluation (JSON)")
	experimentCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "LLM provider")
	experimentCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model name")
	experimentCmd.MarkFlagRequired("queries")
}

func loadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}

	var queries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return queries, nil
}

// runs command

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(50, 0)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs found. Start one with: ideagen run \"Your research query\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tQUERY\tCONFIG\tSTATUS\tCREATED")
		for _, r := range runs {
			query := r.Query
			if len(query) > 40 {
				query = query[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID[:8], query, r.ConfigName, r.Status, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

// findRun resolves a run by ID prefix.
func findRun(store storage.Storage, prefix string) (*core.Run, error) {
	runs, err := store.ListRuns(100, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if strings.HasPrefix(r.ID, prefix) {
			return store.GetRun(r.ID)
		}
	}
	return nil, fmt.Errorf("run not found: %s", prefix)
}

// show command

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show run details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := findRun(store, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("\nRun: %s\n", run.ID)
		fmt.Printf("  Query: %s\n", run.Query)
		fmt.Printf("  Configuration: %s\n", run.ConfigName)
		fmt.Printf("  Status: %s\n", run.Status)
		fmt.Printf("  Created: %s\n", run.CreatedAt.Format(time.RFC3339))
		if run.CompletedAt != nil {
			fmt.Printf("  Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
		}
		if run.Error != "" {
			fmt.Printf("  Error: %s\n", run.Error)
		}
		for _, artifact := range []struct{ label, path string }{
			{"Literature report", run.ReportPath},
			{"Workflow state", run.StatePath},
			{"Deduplicated ideas", run.DedupPath},
			{"Ranked ideas", run.RankedPath},
		} {
			if artifact.path != "" {
				fmt.Printf("  %s: %s\n", artifact.label, artifact.path)
			}
		}
		return nil
	},
}

// delete command

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a run record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := findRun(store, args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteRun(run.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted run: %s\n", run.ID)
		return nil
	},
}

// export command

var exportFormatFlag string

var exportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := findRun(store, args[0])
		if err != nil {
			return err
		}
		if run.StatePath == "" {
			return fmt.Errorf("run %s has no persisted state to export", run.ID[:8])
		}

		data, err := os.ReadFile(run.StatePath)
		if err != nil {
			return fmt.Errorf("failed to read run state: %w", err)
		}
		var state core.DebateState
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("failed to parse run state: %w", err)
		}

		report := &export.Report{Run: run, State: &state}
		if run.RankedPath != "" {
			if eval, err := pipeline.LoadEvaluation(run); err == nil {
				report.Evaluation = eval
			}
		}

		exporter, err := export.GetExporter(export.Format(exportFormatFlag))
		if err != nil {
			return err
		}

		filename := export.GenerateFilename(run, exporter.FileExtension())
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()

		if err := exporter.Export(report, f); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported to %s\n", filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", "markdown", "Export format (markdown, pdf, json)")
}

// providers command

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured LLM providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := cfg.CreateRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY\tMODELS\tSTATUS")
		for _, p := range registry.List() {
			status := "not installed"
			if p.Available() {
				status = "available"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name(), p.DisplayName(), strings.Join(p.Models(), ", "), status)
		}
		w.Flush()
		return nil
	},
}

// serve command

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		registry, err := cfg.CreateRegistry()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		h := handlers.New(store, registry)
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: h.Router(),
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			fmt.Println("\nShutting down...")
			server.Close()
		}()

		fmt.Printf("\nStarting ideagen API on http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop the server")

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "P", 0, "Server port (default from config)")
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(config.GenerateExample()), 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote example config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
