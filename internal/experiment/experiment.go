// Package experiment runs batches of pipeline configurations over a query
// set and maintains a live results summary. The summary file is rewritten
// after every run, so an interrupted batch resumes where it stopped.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/literature"
	"github.com/alienxp03/ideagen/internal/novelty"
	"github.com/alienxp03/ideagen/internal/pipeline"
)

// QueryResult is the raw outcome of one (configuration, query) run.
type QueryResult struct {
	Query     string          `json:"query"`
	Precision map[int]float64 `json:"precision"`
	Novelty   novelty.Scores  `json:"novelty"`
}

// ConfigSummary aggregates the results of one configuration across queries.
type ConfigSummary struct {
	NumSuccessfulRuns int            `json:"num_successful_runs"`
	AvgPrecisionAt3   float64        `json:"avg_precision_at_3"`
	AvgPrecisionAt5   float64        `json:"avg_precision_at_5"`
	AvgPrecisionAt10  float64        `json:"avg_precision_at_10"`
	AvgPrecisionAt20  float64        `json:"avg_precision_at_20"`
	AvgNovelty        novelty.Scores `json:"avg_novelty_scores"`
}

// Results is the persisted state of a batch: per-configuration aggregates
// plus every raw result they were computed from.
type Results struct {
	Summary map[string]ConfigSummary `json:"summary"`
	Raw     map[string][]QueryResult `json:"raw_results"`
}

// NewResults returns an empty results set.
func NewResults() *Results {
	return &Results{
		Summary: make(map[string]ConfigSummary),
		Raw:     make(map[string][]QueryResult),
	}
}

// Has reports whether a (configuration, query) pair already has a raw result.
func (r *Results) Has(config, query string) bool {
	for _, res := range r.Raw[config] {
		if res.Query == query {
			return true
		}
	}
	return false
}

// Driver executes experiment batches.
type Driver struct {
	runner      *pipeline.Runner
	baseline    []core.Idea
	generated   map[string][]core.Idea
	summaryPath string
}

// NewDriver creates a driver. The baseline ideas are the comparison pool for
// tournament ranking; with an empty baseline the driver generates a zero-shot
// pool per query instead. The summary path is where live results are written.
func NewDriver(runner *pipeline.Runner, baseline []core.Idea, summaryPath string) *Driver {
	return &Driver{
		runner:      runner,
		baseline:    baseline,
		generated:   make(map[string][]core.Idea),
		summaryPath: summaryPath,
	}
}

// Run executes every configuration against every query, skipping pairs the
// summary file already covers. A failed run is logged and skipped; the batch
// always continues. The returned results include both resumed and new runs.
func (d *Driver) Run(ctx context.Context, configs []core.RunOptions, queries []string) (*Results, error) {
	results, err := d.load()
	if err != nil {
		return nil, err
	}

	for _, cfg := range configs {
		for _, query := range queries {
			if results.Has(cfg.Name, query) {
				slog.Info("skipping completed run", "config", cfg.Name, "query", query)
				continue
			}
			if err := ctx.Err(); err != nil {
				return results, err
			}

			slog.Info("starting experiment run", "config", cfg.Name, "query", query)
			res, err := d.runOne(ctx, cfg, query)
			if err != nil {
				slog.Error("experiment run failed", "config", cfg.Name, "query", query, "error", err)
				continue
			}

			results.Raw[cfg.Name] = append(results.Raw[cfg.Name], *res)
			results.Summary[cfg.Name] = summarize(results.Raw[cfg.Name])

			if err := d.save(results); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func (d *Driver) runOne(ctx context.Context, cfg core.RunOptions, query string) (*QueryResult, error) {
	result, err := d.runner.Run(ctx, query, cfg)
	if err != nil {
		return nil, err
	}

	var papers []literature.Paper
	if result.Report != nil {
		papers = result.Report.DiscoveredPapers
	}

	baseline, err := d.baselineFor(ctx, query)
	if err != nil {
		return nil, err
	}
	eval, err := d.runner.Evaluate(ctx, result.Run, result.State.FinalDeduplicatedIdeas, baseline, papers)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Query:     query,
		Precision: eval.Precision,
		Novelty:   eval.Novelty,
	}, nil
}

// baselineFor returns the comparison pool for a query: the fixed baseline
// when one was supplied, otherwise a generated zero-shot pool cached per
// query so every configuration ranks against the same ideas.
func (d *Driver) baselineFor(ctx context.Context, query string) ([]core.Idea, error) {
	if len(d.baseline) > 0 {
		return d.baseline, nil
	}
	if ideas, ok := d.generated[query]; ok {
		return ideas, nil
	}

	slog.Info("generating zero-shot baseline", "query", query)
	ideas, err := d.runner.GenerateBaseline(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("baseline generation failed: %w", err)
	}
	d.generated[query] = ideas
	return ideas, nil
}

// summarize recomputes the aggregate for one configuration. Precision
// averages only cover the runs whose pools were large enough for the cutoff.
func summarize(raw []QueryResult) ConfigSummary {
	summary := ConfigSummary{NumSuccessfulRuns: len(raw)}

	avgAt := func(n int) float64 {
		var sum float64
		count := 0
		for _, r := range raw {
			if p, ok := r.Precision[n]; ok {
				sum += p
				count++
			}
		}
		if count == 0 {
			return 0
		}
		return sum / float64(count)
	}
	summary.AvgPrecisionAt3 = avgAt(3)
	summary.AvgPrecisionAt5 = avgAt(5)
	summary.AvgPrecisionAt10 = avgAt(10)
	summary.AvgPrecisionAt20 = avgAt(20)

	scores := make([]novelty.Scores, 0, len(raw))
	for _, r := range raw {
		scores = append(scores, r.Novelty)
	}
	summary.AvgNovelty = novelty.Average(scores)

	return summary
}

// load reads the existing summary file, or returns empty results when the
// batch has not run before.
func (d *Driver) load() (*Results, error) {
	data, err := os.ReadFile(d.summaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewResults(), nil
		}
		return nil, fmt.Errorf("failed to read experiment summary: %w", err)
	}

	results := NewResults()
	if err := json.Unmarshal(data, results); err != nil {
		return nil, fmt.Errorf("failed to parse experiment summary: %w", err)
	}
	if results.Summary == nil {
		results.Summary = make(map[string]ConfigSummary)
	}
	if results.Raw == nil {
		results.Raw = make(map[string][]QueryResult)
	}
	return results, nil
}

func (d *Driver) save(results *Results) error {
	dir := filepath.Dir(d.summaryPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal experiment summary: %w", err)
	}
	if err := os.WriteFile(d.summaryPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write experiment summary: %w", err)
	}
	return nil
}
