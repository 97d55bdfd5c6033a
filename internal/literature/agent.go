package literature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alienxp03/ideagen/internal/provider"
)

// Defaults for the iterative review loop.
const (
	DefaultIterations         = 5
	DefaultPapersPerIteration = 10
	groundingPapers           = 5
)

// Agent runs an iterative literature review: it executes a search, scores
// the results against the original topic, and asks the LLM to formulate the
// next search based on the best papers collected so far.
type Agent struct {
	client       SearchClient
	llm          provider.Provider
	model        string
	iterations   int
	perIteration int
	pause        time.Duration

	papers      map[string]Paper
	order       []string
	pastQueries []string
}

// NewAgent creates a review agent using the given search client and LLM.
func NewAgent(client SearchClient, llm provider.Provider, model string) *Agent {
	return &Agent{
		client:       client,
		llm:          llm,
		model:        model,
		iterations:   DefaultIterations,
		perIteration: DefaultPapersPerIteration,
		pause:        5 * time.Second,
	}
}

// WithLimits overrides the iteration count and papers fetched per iteration.
func (a *Agent) WithLimits(iterations, perIteration int) *Agent {
	if iterations > 0 {
		a.iterations = iterations
	}
	if perIteration > 0 {
		a.perIteration = perIteration
	}
	return a
}

// WithPause overrides the delay between iterations.
func (a *Agent) WithPause(pause time.Duration) *Agent {
	a.pause = pause
	return a
}

// Run performs the review for the given topic and returns the collected
// papers sorted by relevance score, best first. The loop stops after the
// configured number of iterations, or earlier once three consecutive
// iterations add nothing new.
func (a *Agent) Run(ctx context.Context, query string) ([]Paper, error) {
	a.papers = make(map[string]Paper)
	a.order = nil
	a.pastQueries = nil

	current := fmt.Sprintf("KeywordQuery(%q)", query)
	unproductive := 0

	for i := 0; i < a.iterations; i++ {
		slog.Info("literature review iteration", "iteration", i+1, "total", a.iterations)

		found, err := a.execute(ctx, current)
		if err != nil {
			slog.Warn("search failed", "query", current, "error", err)
			found = nil
		}

		fresh := a.unseen(filterPapers(found))
		if len(fresh) == 0 {
			unproductive++
			if unproductive >= 3 {
				slog.Info("stopping review early", "reason", "no new papers in three iterations")
				break
			}
			current, err = a.nextQuery(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to formulate next search: %w", err)
			}
			continue
		}
		unproductive = 0

		scores, err := a.scorePapers(ctx, query, fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to score papers: %w", err)
		}

		for _, p := range fresh {
			p.Score = scores[p.ID]
			a.papers[p.ID] = p
			a.order = append(a.order, p.ID)
		}
		slog.Info("paper bank updated", "added", len(fresh), "total", len(a.papers))

		current, err = a.nextQuery(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to formulate next search: %w", err)
		}

		if a.pause > 0 && i+1 < a.iterations {
			select {
			case <-time.After(a.pause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	collected := make([]Paper, 0, len(a.order))
	for _, id := range a.order {
		collected = append(collected, a.papers[id])
	}
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Score > collected[j].Score
	})
	return dedupPapers(collected), nil
}

// unseen filters out papers already in the bank.
func (a *Agent) unseen(papers []Paper) []Paper {
	fresh := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if _, seen := a.papers[p.ID]; !seen {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// execute parses a tool call and runs the corresponding search. The raw
// query text is recorded so later prompts can list past searches.
func (a *Agent) execute(ctx context.Context, query string) ([]Paper, error) {
	a.pastQueries = append(a.pastQueries, query)

	kind, arg, ok := parseToolCall(query)
	if !ok {
		slog.Warn("unrecognized search instruction", "query", query)
		return nil, nil
	}

	switch kind {
	case "KeywordQuery":
		return a.client.SearchByKeyword(ctx, arg, a.perIteration)
	case "PaperQuery":
		return a.client.Recommendations(ctx, arg, a.perIteration)
	case "GetReferences":
		return a.client.References(ctx, arg)
	}
	return nil, nil
}

// parseToolCall extracts the function name and quoted argument from a tool
// call like KeywordQuery("sparse attention"). Any reasoning block the model
// emitted before the call is discarded first.
func parseToolCall(raw string) (kind, arg string, ok bool) {
	cleaned := strings.TrimSpace(provider.StripThinking(raw))

	for _, name := range []string{"KeywordQuery", "PaperQuery", "GetReferences"} {
		prefix := name + `("`
		if !strings.HasPrefix(cleaned, prefix) {
			continue
		}
		rest := cleaned[len(prefix):]
		end := strings.LastIndex(rest, `")`)
		if end == -1 {
			return "", "", false
		}
		return name, rest[:end], true
	}
	return "", "", false
}

// nextQuery asks the LLM for a new search, grounded on the best papers
// collected so far.
func (a *Agent) nextQuery(ctx context.Context) (string, error) {
	top := a.topPapers(groundingPapers)

	prompt := fmt.Sprintf(`You are a research assistant doing a literature review. Your goal is to build a comprehensive list of relevant papers.

You have access to the following functions:
1. KeywordQuery("keyword"): Search for papers using a keyword. Good for broad exploration.
2. PaperQuery("paperId"): Find papers similar to a given paper. Good for deepening a thread.
3. GetReferences("paperId"): Get the papers cited by a given paper. Good for finding foundational work.

You have already run the following queries:
%s

Based on the current top papers in your collection, generate a NEW, DIVERSE query to expand the search.
Current Top Papers:
---
%s
---

Formulate your new query as a single function call (e.g., KeywordQuery("new deep learning methods")).
DO NOT provide any other text or explanation.
Do not write this in a code block. All I want is the plain query.
DO NOT combine more than 3 search entities.
Each concept should be nice and concise, not more than 3 words.`,
		strings.Join(a.pastQueries, "\n"),
		formatPapersForPrompt(top, false))

	var raw string
	var err error
	if a.model != "" {
		raw, err = a.llm.GenerateWithModel(ctx, prompt, a.model)
	} else {
		raw, err = a.llm.Generate(ctx, prompt)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// topPapers returns the k highest-scored papers in the bank.
func (a *Agent) topPapers(k int) []Paper {
	all := make([]Paper, 0, len(a.order))
	for _, id := range a.order {
		all = append(all, a.papers[id])
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// scorePapers asks the LLM to rate each paper's relevance to the topic from
// 1 to 10. A response that cannot be parsed is treated as all-zero scores
// rather than a failure.
func (a *Agent) scorePapers(ctx context.Context, topic string, papers []Paper) (map[string]int, error) {
	if len(papers) == 0 {
		return map[string]int{}, nil
	}

	prompt := fmt.Sprintf(`You are a research assistant. Your task is to score papers for their relevance to the following research topic:
%q

Score each paper from 1 to 10 based on its direct relevance. A score of 10 means it is extremely relevant.
Focus on papers that propose novel methods or findings. Give lower scores to surveys, reviews, or tangentially related work.

Here are the papers to score:
---
%s
---

Provide your response as a single JSON object where keys are paperIds and values are the integer scores.
Example: {"paperId1": 8, "paperId2": 5}`,
		topic, formatPapersForPrompt(papers, true))

	scores, err := provider.InvokeStructured[map[string]int](ctx, a.llm, a.model, prompt)
	if err != nil {
		var malformed *provider.MalformedOutputError
		if errors.As(err, &malformed) {
			slog.Warn("could not parse paper scores", "reason", malformed.Reason)
			return map[string]int{}, nil
		}
		return nil, err
	}
	return scores, nil
}
