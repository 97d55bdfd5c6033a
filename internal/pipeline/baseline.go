package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// DefaultBaselineIdeas is the number of ideas requested from the zero-shot
// baseline workflow.
const DefaultBaselineIdeas = 20

type baselineIdeaListWire struct {
	FinalIdeas []core.Idea `json:"final_ideas"`
}

// GenerateBaseline produces a comparison pool for tournament ranking with a
// two-step zero-shot workflow: one call generates candidate ideas from the
// bare query, a second call critiques and refines them. The refined list is
// the baseline.
func (r *Runner) GenerateBaseline(ctx context.Context, query string) ([]core.Idea, error) {
	slog.Info("generating baseline ideas", "query", query)

	generated, err := provider.InvokeStructured[baselineIdeaListWire](ctx, r.llm, r.model, baselineGenerationPrompt(query, DefaultBaselineIdeas))
	if err != nil {
		return nil, fmt.Errorf("baseline generation failed: %w", err)
	}
	if len(generated.FinalIdeas) == 0 {
		return nil, fmt.Errorf("baseline generation returned no ideas")
	}
	slog.Info("baseline ideas generated", "count", len(generated.FinalIdeas))

	refined, err := provider.InvokeStructured[baselineIdeaListWire](ctx, r.llm, r.model, baselineCritiquePrompt(query, generated.FinalIdeas, DefaultBaselineIdeas))
	if err != nil {
		return nil, fmt.Errorf("baseline refinement failed: %w", err)
	}
	if len(refined.FinalIdeas) == 0 {
		return nil, fmt.Errorf("baseline refinement returned no ideas")
	}
	for _, idea := range refined.FinalIdeas {
		if err := idea.Validate(); err != nil {
			return nil, fmt.Errorf("invalid baseline idea: %w", err)
		}
	}

	slog.Info("baseline refinement complete", "count", len(refined.FinalIdeas))
	return refined.FinalIdeas, nil
}

func baselineGenerationPrompt(query string, n int) string {
	return fmt.Sprintf(`You are a scientist generating novel research ideas.

Research query: %q

Generate %d novel, concrete research ideas addressing the query. Each idea
needs a short title, a description of the proposed work, and the reasoning
for why it is promising.

Respond with a single JSON object of this exact shape and nothing else:
{"final_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`, query, n)
}

func baselineCritiquePrompt(query string, ideas []core.Idea, n int) string {
	var b strings.Builder
	for _, idea := range ideas {
		b.WriteString(fmt.Sprintf("- Title: %s\n  Description: %s\n", idea.Title, idea.Description))
	}

	return fmt.Sprintf(`You are a critical reviewer of research ideas.

Research query: %q

Candidate ideas:
%s
Evaluate the candidates for novelty, feasibility, and relevance to the query.
Discard weak ideas, sharpen the rest, and return the %d strongest refined
ideas.

Respond with a single JSON object of this exact shape and nothing else:
{"final_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`, query, b.String(), n)
}
