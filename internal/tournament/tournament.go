// Package tournament ranks ideas through repeated head-to-head comparisons
// judged by a language model.
package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// DefaultRounds is the number of tournament rounds when none is configured.
const DefaultRounds = 10

// Judge decides which of two ideas is stronger. It returns 1 if the first
// idea wins and 2 if the second does.
type Judge interface {
	BetterIdea(ctx context.Context, first, second core.Idea) (int, error)
}

// LLMJudge asks a provider to pick the stronger of two ideas. Calls that
// fail are retried a fixed number of times with a fixed delay; this is the
// only retried LLM path in the system.
type LLMJudge struct {
	provider provider.Provider
	model    string
	tries    int
	delay    time.Duration
}

// NewLLMJudge creates a judge backed by the given provider and model.
func NewLLMJudge(p provider.Provider, model string) *LLMJudge {
	return &LLMJudge{provider: p, model: model, tries: 3, delay: 5 * time.Second}
}

// WithRetry overrides the retry count and delay between attempts.
func (j *LLMJudge) WithRetry(tries int, delay time.Duration) *LLMJudge {
	j.tries = tries
	j.delay = delay
	return j
}

// BetterIdea prompts the model for a verdict. A response whose trimmed text
// is exactly "1" credits the first idea; any other response, including prose
// refusals and malformed output, credits the second. That asymmetric
// fallback keeps a noisy judge from stalling a tournament, at the cost of a
// bias toward the second slot on garbage output.
func (j *LLMJudge) BetterIdea(ctx context.Context, first, second core.Idea) (int, error) {
	prompt := judgePrompt(first, second)

	var lastErr error
	for attempt := 0; attempt < j.tries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(j.delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		var raw string
		var err error
		if j.model != "" {
			raw, err = j.provider.GenerateWithModel(ctx, prompt, j.model)
		} else {
			raw, err = j.provider.Generate(ctx, prompt)
		}
		if err != nil {
			lastErr = err
			slog.Warn("judge call failed", "attempt", attempt+1, "tries", j.tries, "error", err)
			continue
		}

		if strings.TrimSpace(raw) == "1" {
			return 1, nil
		}
		return 2, nil
	}

	return 0, fmt.Errorf("judge failed after %d attempts: %w", j.tries, lastErr)
}

func judgePrompt(first, second core.Idea) string {
	return "You are a reviewer specialized in Natural Language Processing and Large Language Models. " +
		"You are given two research project summaries. One of them is likely to be accepted by a top AI conference (like ICLR or ACL) " +
		"and the other one is likely to be rejected. Your task is to identify the one with higher potential.\n\n" +
		"The two project proposals are:\n\n" +
		"Paper 1:\n" + formatForJudge(first) + "\n\n" +
		"Paper 2:\n" + formatForJudge(second) + "\n\n" +
		"Now, decide which one is the better idea. Directly return a number 1 or 2 and nothing else."
}

func formatForJudge(idea core.Idea) string {
	abstract := idea.Abstract
	if abstract == "" {
		abstract = "N/A"
	}
	return "Title: " + idea.Title + "\nAbstract: " + abstract
}

// Ranker runs a multi-round Swiss-style tournament over a pool of ideas.
type Ranker struct {
	judge  Judge
	rounds int
	rng    *rand.Rand
}

// NewRanker creates a ranker. A non-positive round count falls back to the
// default; a nil rng is seeded from the clock.
func NewRanker(judge Judge, rounds int, rng *rand.Rand) *Ranker {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Ranker{judge: judge, rounds: rounds, rng: rng}
}

// Rank scores every idea against randomly drawn opponents and returns the
// pool sorted by descending score.
//
// Every idea starts at score 1. Each round shuffles the pool, pairs
// adjacent ideas, and awards the winner of each pair one point; with an odd
// pool the leftover idea receives a bye point. Ideas with identical
// (title, description, reasoning) text share one score entry. A judge error
// aborts the whole tournament.
func (r *Ranker) Rank(ctx context.Context, ideas []core.Idea) ([]core.RankedIdea, error) {
	if len(ideas) == 0 {
		return nil, nil
	}

	scores := make(map[string]int)
	for _, idea := range ideas {
		scores[idea.Key()] = 1
	}

	pool := append([]core.Idea(nil), ideas...)
	for round := 0; round < r.rounds; round++ {
		slog.Info("starting tournament round", "round", round+1, "total", r.rounds, "pool", len(pool))

		r.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		if len(pool)%2 != 0 {
			scores[pool[len(pool)-1].Key()]++
		}

		for i := 0; i+1 < len(pool); i += 2 {
			winner, err := r.judge.BetterIdea(ctx, pool[i], pool[i+1])
			if err != nil {
				return nil, fmt.Errorf("tournament round %d failed: %w", round+1, err)
			}
			if winner == 1 {
				scores[pool[i].Key()]++
			} else {
				scores[pool[i+1].Key()]++
			}
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return scores[pool[i].Key()] > scores[pool[j].Key()]
	})

	ranked := make([]core.RankedIdea, len(pool))
	for i, idea := range pool {
		ranked[i] = core.RankedIdea{
			Title:       idea.Title,
			Description: idea.Description,
			Reasoning:   idea.Reasoning,
			Source:      idea.Source,
			Score:       scores[idea.Key()],
		}
	}
	return ranked, nil
}
