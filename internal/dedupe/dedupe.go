// Package dedupe filters near-duplicate ideas by embedding similarity.
//
// The suppression is greedy and order-dependent: ideas are scanned in their
// original order, each survivor suppresses every later idea above the
// threshold, and a suppressed idea suppresses nothing. Comparisons are
// anchored to the earliest surviving representative of a near-duplicate
// group rather than forming transitive clusters. That asymmetry is the
// intended behavior, not an oversight; changing it to transitive clustering
// changes output sets.
package dedupe

import (
	"context"
	"fmt"
	"math"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// DefaultThreshold is the similarity above which a later idea is suppressed.
const DefaultThreshold = 0.8

// Deduplicator removes near-duplicate ideas from a list.
type Deduplicator struct {
	embedder  provider.Embedder
	threshold float64
}

// New creates a deduplicator. A zero threshold is replaced by the default.
func New(embedder provider.Embedder, threshold float64) *Deduplicator {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{embedder: embedder, threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (d *Deduplicator) Threshold() float64 { return d.threshold }

// Report describes the outcome of one deduplication pass. It is persisted
// verbatim as the deduplicated-ideas record.
type Report struct {
	OriginalQuery       string      `json:"original_query"`
	Intention           string      `json:"intention"`
	Topics              []string    `json:"topics"`
	SimilarityThreshold float64     `json:"similarity_threshold"`
	OriginalIdeaCount   int         `json:"original_idea_count"`
	DeduplicatedCount   int         `json:"deduplicated_idea_count"`
	FinalIdeas          []core.Idea `json:"final_ideas"`
}

// Run filters ideas, preserving original relative order. Empty input
// returns empty output without invoking the embedder; a single idea is
// always kept.
func (d *Deduplicator) Run(ctx context.Context, ideas []core.Idea) ([]core.Idea, error) {
	if len(ideas) == 0 {
		return nil, nil
	}
	if len(ideas) == 1 {
		return append([]core.Idea(nil), ideas...), nil
	}

	texts := make([]string, len(ideas))
	for i, idea := range ideas {
		texts[i] = ideaText(idea)
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed ideas: %w", err)
	}
	if len(vectors) != len(ideas) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d ideas", len(vectors), len(ideas))
	}

	// Full pairwise matrix up front; fine for low hundreds of ideas.
	sims := similarityMatrix(vectors)

	suppressed := make([]bool, len(ideas))
	kept := make([]core.Idea, 0, len(ideas))
	for i := range ideas {
		if suppressed[i] {
			continue
		}
		kept = append(kept, ideas[i])
		for j := i + 1; j < len(ideas); j++ {
			if !suppressed[j] && sims[i][j] > d.threshold {
				suppressed[j] = true
			}
		}
	}

	return kept, nil
}

// ideaText builds the text that represents an idea for embedding:
// title + abstract when an abstract exists, otherwise
// title + description + reasoning.
func ideaText(idea core.Idea) string {
	if idea.Abstract != "" {
		return idea.Title + "\n" + idea.Abstract
	}
	return idea.Title + "\n" + idea.Description + "\n" + idea.Reasoning
}

func similarityMatrix(vectors [][]float64) [][]float64 {
	n := len(vectors)
	sims := make([][]float64, n)
	for i := range sims {
		sims[i] = make([]float64, n)
		sims[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := cosine(vectors[i], vectors[j])
			sims[i][j] = s
			sims[j][i] = s
		}
	}
	return sims
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
