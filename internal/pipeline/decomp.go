package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/alienxp03/ideagen/internal/provider"
)

// Intention classes a query can be assigned during decomposition.
const (
	IntentionExploratory = "Exploratory"
	IntentionComparative = "Comparative"
	IntentionDescriptive = "Descriptive"
	IntentionCausal      = "Causal"
	IntentionRelational  = "Relational"
)

// Timeline is the optional time scope extracted from a query.
type Timeline struct {
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	SpecificYear string `json:"specific_year,omitempty"`
}

// QueryAnalysis is the structured decomposition of a research query.
type QueryAnalysis struct {
	Query     string    `json:"query"`
	Topics    []string  `json:"topics"`
	Timeline  *Timeline `json:"timeline,omitempty"`
	Intention string    `json:"intention"`
}

// Validate checks the analysis against its structural constraints and fills
// an empty intention with Exploratory.
func (a *QueryAnalysis) Validate() error {
	if strings.TrimSpace(a.Query) == "" {
		return fmt.Errorf("query analysis is missing the query")
	}
	if len(a.Topics) == 0 {
		return fmt.Errorf("query analysis has no topics")
	}
	if len(a.Topics) > 3 {
		a.Topics = a.Topics[:3]
	}
	if a.Intention == "" {
		a.Intention = IntentionExploratory
	}
	switch a.Intention {
	case IntentionExploratory, IntentionComparative, IntentionDescriptive, IntentionCausal, IntentionRelational:
	default:
		return fmt.Errorf("unknown intention: %s", a.Intention)
	}
	return nil
}

// PassthroughAnalysis returns the analysis used when decomposition is
// skipped: the raw query stands in as the single topic.
func PassthroughAnalysis(query string) QueryAnalysis {
	return QueryAnalysis{
		Query:     query,
		Topics:    []string{query},
		Intention: IntentionExploratory,
	}
}

// DecomposeQuery asks the LLM to break a research query into topics, a time
// scope, and an intention class.
func DecomposeQuery(ctx context.Context, llm provider.Provider, model, query string) (QueryAnalysis, error) {
	analysis, err := provider.InvokeStructured[QueryAnalysis](ctx, llm, model, decompositionPrompt(query))
	if err != nil {
		return QueryAnalysis{}, fmt.Errorf("query decomposition failed: %w", err)
	}
	if analysis.Query == "" {
		analysis.Query = query
	}
	if err := analysis.Validate(); err != nil {
		return QueryAnalysis{}, fmt.Errorf("query decomposition failed: %w", err)
	}
	return analysis, nil
}

func decompositionPrompt(query string) string {
	return fmt.Sprintf(`Analyze the following research query and decompose it into structured components.

Query: %q

Extract:
- topics: at most 3 key topics, each 1-3 words
- timeline: any time scope mentioned in the query (start_date, end_date, or specific_year), as strings; omit fields that are not mentioned
- intention: exactly one of Exploratory, Comparative, Descriptive, Causal, Relational

Respond with a single JSON object of this exact shape and nothing else:
{"query": %q, "topics": ["..."], "timeline": {"start_date": "", "end_date": "", "specific_year": ""}, "intention": "..."}`, query, query)
}
