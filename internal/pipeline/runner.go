// Package pipeline orchestrates a full idea-generation run: query
// decomposition, literature review, vector indexing, the debate itself,
// deduplication, and the evaluation pass that ranks and scores the output.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/debate"
	"github.com/alienxp03/ideagen/internal/dedupe"
	"github.com/alienxp03/ideagen/internal/literature"
	"github.com/alienxp03/ideagen/internal/novelty"
	"github.com/alienxp03/ideagen/internal/provider"
	"github.com/alienxp03/ideagen/internal/storage"
	"github.com/alienxp03/ideagen/internal/tournament"
	"github.com/alienxp03/ideagen/internal/vectorindex"
)

// Runner wires the pipeline stages together. Stages communicate only through
// the filesystem artifacts and the state value, so any stage can be rerun
// from its inputs.
type Runner struct {
	llm      provider.Provider
	model    string
	embedder provider.Embedder

	search literature.SearchClient
	index  *vectorindex.Index
	store  storage.Storage

	resultsDir string

	debateRounds     int
	teamSize         int
	dedupeThreshold  float64
	tournamentRounds int
	litIterations    int
	litPerIteration  int
}

// NewRunner creates a runner with default stage settings. The search client,
// vector index, and run store are optional; stages that need a missing
// dependency are skipped or degraded.
func NewRunner(llm provider.Provider, model string, embedder provider.Embedder, resultsDir string) *Runner {
	return &Runner{
		llm:              llm,
		model:            model,
		embedder:         embedder,
		resultsDir:       resultsDir,
		debateRounds:     debate.DefaultRounds,
		teamSize:         debate.DefaultTeamSize,
		dedupeThreshold:  dedupe.DefaultThreshold,
		tournamentRounds: tournament.DefaultRounds,
		litIterations:    literature.DefaultIterations,
		litPerIteration:  literature.DefaultPapersPerIteration,
	}
}

// WithSearchClient attaches a paper search client, enabling the literature
// review stage.
func (r *Runner) WithSearchClient(c literature.SearchClient) *Runner {
	r.search = c
	return r
}

// WithIndex attaches a vector index, enabling retrieval during the debate.
func (r *Runner) WithIndex(ix *vectorindex.Index) *Runner {
	r.index = ix
	return r
}

// WithStore attaches a run store for persistent run records.
func (r *Runner) WithStore(s storage.Storage) *Runner {
	r.store = s
	return r
}

// WithDebate overrides the debate round count and team size.
func (r *Runner) WithDebate(rounds, teamSize int) *Runner {
	if rounds > 0 {
		r.debateRounds = rounds
	}
	if teamSize > 0 {
		r.teamSize = teamSize
	}
	return r
}

// WithDedupeThreshold overrides the similarity threshold for deduplication.
func (r *Runner) WithDedupeThreshold(threshold float64) *Runner {
	if threshold > 0 {
		r.dedupeThreshold = threshold
	}
	return r
}

// WithTournamentRounds overrides the number of ranking rounds.
func (r *Runner) WithTournamentRounds(rounds int) *Runner {
	if rounds > 0 {
		r.tournamentRounds = rounds
	}
	return r
}

// WithLiteratureLimits overrides the literature review iteration limits.
func (r *Runner) WithLiteratureLimits(iterations, perIteration int) *Runner {
	r.litIterations = iterations
	r.litPerIteration = perIteration
	return r
}

// Report is the final literature report persisted for a run: the query, its
// decomposition, and every paper the review discovered.
type Report struct {
	InitialQuery     string             `json:"initial_query"`
	QueryAnalysis    ReportAnalysis     `json:"query_analysis"`
	DiscoveredPapers []literature.Paper `json:"discovered_papers"`
}

// ReportAnalysis is the decomposition block embedded in the report.
type ReportAnalysis struct {
	Topics    []string  `json:"topics"`
	Timeline  *Timeline `json:"timeline,omitempty"`
	Intention string    `json:"intention"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Run      *core.Run
	Analysis QueryAnalysis
	Report   *Report
	State    *core.DebateState
}

// Run executes the full pipeline for one query. The run record tracks the
// paths of every artifact written; a stage failure marks the run failed and
// returns the error.
func (r *Runner) Run(ctx context.Context, query string, opts core.RunOptions) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	run := &core.Run{
		ID:         core.GenerateID(),
		Timestamp:  core.NewRunTimestamp(now),
		Query:      query,
		ConfigName: opts.Name,
		Status:     core.RunInProgress,
		CreatedAt:  now,
	}
	if r.store != nil {
		if err := r.store.CreateRun(run); err != nil {
			return nil, err
		}
	}

	slog.Info("starting pipeline run", "run_id", run.ID, "query", query, "config", opts.Name)

	result, err := r.execute(ctx, query, opts, run)
	if err != nil {
		slog.Error("pipeline run failed", "run_id", run.ID, "error", err)
		run.Status = core.RunFailed
		run.Error = err.Error()
		r.finishRun(run)
		return nil, err
	}

	run.Status = core.RunCompleted
	r.finishRun(run)
	slog.Info("pipeline run completed", "run_id", run.ID, "final_ideas", len(result.State.FinalDeduplicatedIdeas))
	result.Run = run
	return result, nil
}

func (r *Runner) finishRun(run *core.Run) {
	done := time.Now()
	run.CompletedAt = &done
	if r.store == nil {
		return
	}
	if err := r.store.UpdateRun(run); err != nil {
		slog.Warn("failed to update run record", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) execute(ctx context.Context, query string, opts core.RunOptions, run *core.Run) (*Result, error) {
	// Stage 1: query decomposition.
	var analysis QueryAnalysis
	if opts.SkipQueryDecomp {
		slog.Info("skipping query decomposition")
		analysis = PassthroughAnalysis(query)
	} else {
		var err error
		analysis, err = DecomposeQuery(ctx, r.llm, r.model, query)
		if err != nil {
			return nil, err
		}
		slog.Info("query decomposed", "topics", analysis.Topics, "intention", analysis.Intention)
	}

	state := core.NewDebateState(query, analysis.Topics, analysis.Intention, run.Timestamp)

	// Stage 2: literature review.
	var report *Report
	if r.search != nil {
		agent := literature.NewAgent(r.search, r.llm, r.model).
			WithLimits(r.litIterations, r.litPerIteration)
		papers, err := agent.Run(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("literature review failed: %w", err)
		}
		report = &Report{
			InitialQuery: query,
			QueryAnalysis: ReportAnalysis{
				Topics:    analysis.Topics,
				Timeline:  analysis.Timeline,
				Intention: analysis.Intention,
			},
			DiscoveredPapers: papers,
		}

		path, err := r.writeArtifact(fmt.Sprintf("lit_review_report_%s.json", run.Timestamp), report)
		if err != nil {
			return nil, err
		}
		run.ReportPath = path
		slog.Info("literature review complete", "papers", len(papers))
	} else {
		slog.Info("no search client configured, skipping literature review")
	}

	// Stage 3: vector indexing and retriever setup.
	engine := debate.New(r.llm, r.model, opts).
		WithRounds(r.debateRounds).
		WithTeamSize(r.teamSize)
	if opts.Retrieval != core.RetrievalOff && r.index != nil && report != nil && len(report.DiscoveredPapers) > 0 {
		collection := vectorindex.CollectionName(run.Timestamp)
		n, err := r.index.IndexPapers(ctx, collection, report.DiscoveredPapers)
		if err != nil {
			return nil, fmt.Errorf("vector indexing failed: %w", err)
		}
		slog.Info("papers indexed", "collection", collection, "chunks", n)
		engine = engine.WithRetriever(r.index.Collection(collection, vectorindex.DefaultDocsPerQuery))
	}

	// Stage 4: the debate.
	state, err := engine.Run(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("debate failed: %w", err)
	}

	// Stage 5: deduplication of the final ideas.
	dedup := dedupe.New(r.embedder, r.dedupeThreshold)
	kept, err := dedup.Run(ctx, withAbstracts(state.FinalIdeas, state.FinalAbstracts))
	if err != nil {
		return nil, fmt.Errorf("deduplication failed: %w", err)
	}
	state = state.Clone()
	state.FinalDeduplicatedIdeas = kept

	statePath, err := r.writeArtifact(fmt.Sprintf("workflow_state_%s.json", run.Timestamp), state)
	if err != nil {
		return nil, err
	}
	run.StatePath = statePath

	dedupReport := dedupe.Report{
		OriginalQuery:       query,
		Intention:           state.Intention,
		Topics:              state.Topics,
		SimilarityThreshold: dedup.Threshold(),
		OriginalIdeaCount:   len(state.FinalIdeas),
		DeduplicatedCount:   len(kept),
		FinalIdeas:          kept,
	}
	dedupPath, err := r.writeArtifact(fmt.Sprintf("deduplicated_ideas_%s.json", run.Timestamp), dedupReport)
	if err != nil {
		return nil, err
	}
	run.DedupPath = dedupPath
	slog.Info("deduplication complete", "before", len(state.FinalIdeas), "after", len(kept))

	return &Result{Analysis: analysis, Report: report, State: state}, nil
}

// withAbstracts enriches final ideas with their generated abstracts, matched
// by title. Ideas without an abstract pass through unchanged.
func withAbstracts(ideas []core.Idea, abstracts []core.IdeaAbstract) []core.Idea {
	byTitle := make(map[string]string, len(abstracts))
	for _, a := range abstracts {
		byTitle[a.Title] = a.Abstract
	}
	out := make([]core.Idea, len(ideas))
	for i, idea := range ideas {
		if abstract, ok := byTitle[idea.Title]; ok {
			idea = idea.WithAbstract(abstract)
		}
		out[i] = idea
	}
	return out
}

// Evaluation is the outcome of ranking and scoring one run's ideas against a
// baseline pool. It persists as two artifacts: the ranked ideas as a bare
// ordered list, and the precision/novelty summary alongside it.
type Evaluation struct {
	Query       string            `json:"query"`
	RankedIdeas []core.RankedIdea `json:"ranked_ideas"`
	Precision   map[int]float64   `json:"precision"`
	Novelty     novelty.Scores    `json:"avg_novelty_scores"`
}

// evaluationSummary is the persisted precision/novelty half of an Evaluation.
type evaluationSummary struct {
	Query     string          `json:"query"`
	Precision map[int]float64 `json:"precision"`
	Novelty   novelty.Scores  `json:"avg_novelty_scores"`
}

// evaluationSummaryPath derives the summary path from a run's ranked-ideas
// artifact. The two files always sit in the same directory.
func evaluationSummaryPath(run *core.Run) string {
	if run.RankedPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(run.RankedPath), fmt.Sprintf("evaluation_%s.json", run.Timestamp))
}

// LoadEvaluation reassembles a run's evaluation from its persisted artifacts.
// The ranked-ideas list is required; a missing summary leaves the precision
// and novelty fields empty.
func LoadEvaluation(run *core.Run) (*Evaluation, error) {
	if run.RankedPath == "" {
		return nil, fmt.Errorf("run has no ranked ideas")
	}
	data, err := os.ReadFile(run.RankedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranked ideas: %w", err)
	}
	var ranked []core.RankedIdea
	if err := json.Unmarshal(data, &ranked); err != nil {
		return nil, fmt.Errorf("failed to parse ranked ideas: %w", err)
	}

	eval := &Evaluation{Query: run.Query, RankedIdeas: ranked}
	if data, err := os.ReadFile(evaluationSummaryPath(run)); err == nil {
		var summary evaluationSummary
		if json.Unmarshal(data, &summary) == nil {
			eval.Precision = summary.Precision
			eval.Novelty = summary.Novelty
		}
	}
	return eval, nil
}

// Evaluate ranks the generated ideas against the baseline pool in a
// head-to-head tournament, computes precision at the standard cutoffs, and
// scores the generated ideas for novelty against the discovered papers. The
// evaluation is persisted under the run timestamp.
func (r *Runner) Evaluate(ctx context.Context, run *core.Run, generated, baseline []core.Idea, papers []literature.Paper) (*Evaluation, error) {
	pool := make([]core.Idea, 0, len(generated)+len(baseline))
	for _, idea := range generated {
		pool = append(pool, idea.WithSource(core.SourceNonBaseline))
	}
	for _, idea := range baseline {
		pool = append(pool, idea.WithSource(core.SourceBaseline))
	}

	judge := tournament.NewLLMJudge(r.llm, r.model)
	ranked, err := tournament.NewRanker(judge, r.tournamentRounds, nil).Rank(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("tournament ranking failed: %w", err)
	}

	precision, err := tournament.PrecisionSuite(ranked, nil)
	if err != nil {
		return nil, err
	}

	scorer := novelty.NewScorer(r.embedder, 0)
	scores := make([]novelty.Scores, 0, len(generated))
	for _, idea := range generated {
		s, err := scorer.Score(ctx, idea, papers)
		if err != nil {
			return nil, fmt.Errorf("novelty scoring failed for %q: %w", idea.Title, err)
		}
		scores = append(scores, s)
	}

	eval := &Evaluation{
		Query:       run.Query,
		RankedIdeas: ranked,
		Precision:   precision,
		Novelty:     novelty.Average(scores),
	}

	path, err := r.writeArtifact(fmt.Sprintf("ranked_ideas_%s.json", run.Timestamp), ranked)
	if err != nil {
		return nil, err
	}
	run.RankedPath = path

	summary := evaluationSummary{Query: eval.Query, Precision: eval.Precision, Novelty: eval.Novelty}
	if _, err := r.writeArtifact(fmt.Sprintf("evaluation_%s.json", run.Timestamp), summary); err != nil {
		return nil, err
	}
	if r.store != nil {
		if err := r.store.UpdateRun(run); err != nil {
			slog.Warn("failed to update run record", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("evaluation complete", "ranked", len(ranked), "precision", precision)
	return eval, nil
}

// writeArtifact writes a JSON artifact into the results directory and
// returns its path.
func (r *Runner) writeArtifact(name string, v any) (string, error) {
	if err := os.MkdirAll(r.resultsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(r.resultsDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
