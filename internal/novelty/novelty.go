// Package novelty scores ideas against discovered literature, separating
// dissimilarity from pre-cutoff work, dissimilarity from contemporary work,
// and the citation impact of the closest contemporary papers.
package novelty

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/literature"
	"github.com/alienxp03/ideagen/internal/provider"
)

const (
	// DefaultCutoffYear splits papers into historical (before) and
	// contemporary (from the cutoff on).
	DefaultCutoffYear = 2023

	// topK bounds both the nearest-neighbor set for dissimilarity and the
	// most-similar set for impact.
	topK = 5
)

// Scores holds the novelty metrics for one idea. Overall novelty rewards
// ideas far from historical work yet close to high-impact contemporary work.
type Scores struct {
	HistoricalDissimilarity   float64 `json:"historical_dissimilarity"`
	ContemporaryDissimilarity float64 `json:"contemporary_dissimilarity"`
	ContemporaryImpact        float64 `json:"contemporary_impact"`
	OverallNovelty            float64 `json:"overall_novelty"`
}

// Scorer computes novelty metrics using an embedding model.
type Scorer struct {
	embedder   provider.Embedder
	cutoffYear int
}

// NewScorer creates a scorer. A zero cutoff year uses the default.
func NewScorer(embedder provider.Embedder, cutoffYear int) *Scorer {
	if cutoffYear == 0 {
		cutoffYear = DefaultCutoffYear
	}
	return &Scorer{embedder: embedder, cutoffYear: cutoffYear}
}

// Score computes the novelty metrics for one idea against the discovered
// papers. Papers without a year or abstract are ignored. With no usable
// papers on either side of the cutoff, all metrics are zero.
func (s *Scorer) Score(ctx context.Context, idea core.Idea, papers []literature.Paper) (Scores, error) {
	var past, contemporary []literature.Paper
	for _, p := range papers {
		if p.Year == 0 || p.Abstract == "" {
			continue
		}
		if p.Year < s.cutoffYear {
			past = append(past, p)
		} else {
			contemporary = append(contemporary, p)
		}
	}

	if len(past) == 0 && len(contemporary) == 0 {
		return Scores{}, nil
	}

	// One embedding call: the idea first, then both paper groups.
	texts := make([]string, 0, 1+len(past)+len(contemporary))
	texts = append(texts, idea.Title+" "+idea.Description)
	for _, p := range past {
		texts = append(texts, p.Abstract)
	}
	for _, p := range contemporary {
		texts = append(texts, p.Abstract)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return Scores{}, fmt.Errorf("failed to embed idea and abstracts: %w", err)
	}
	if len(vectors) != len(texts) {
		return Scores{}, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	ideaVec := vectors[0]
	pastVecs := vectors[1 : 1+len(past)]
	conVecs := vectors[1+len(past):]

	out := Scores{
		HistoricalDissimilarity:   meanNearestDistance(ideaVec, pastVecs),
		ContemporaryDissimilarity: meanNearestDistance(ideaVec, conVecs),
	}

	if len(contemporary) > 0 {
		out.ContemporaryImpact = meanCitationsOfMostSimilar(ideaVec, conVecs, contemporary)
	}
	if out.ContemporaryDissimilarity > 0 {
		out.OverallNovelty = out.HistoricalDissimilarity * out.ContemporaryImpact / out.ContemporaryDissimilarity
	}
	return out, nil
}

// meanNearestDistance returns the average Euclidean distance from vec to
// its topK nearest neighbors, or 0 with no neighbors.
func meanNearestDistance(vec []float64, neighbors [][]float64) float64 {
	if len(neighbors) == 0 {
		return 0
	}

	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		distances[i] = euclidean(vec, n)
	}
	sort.Float64s(distances)

	k := topK
	if len(distances) < k {
		k = len(distances)
	}
	var sum float64
	for _, d := range distances[:k] {
		sum += d
	}
	return sum / float64(k)
}

// meanCitationsOfMostSimilar averages the citation counts of the topK
// papers most cosine-similar to the idea.
func meanCitationsOfMostSimilar(vec []float64, paperVecs [][]float64, papers []literature.Paper) float64 {
	type scored struct {
		similarity float64
		citations  int
	}
	all := make([]scored, len(papers))
	for i := range papers {
		all[i] = scored{similarity: cosine(vec, paperVecs[i]), citations: papers[i].CitationCount}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].similarity > all[j].similarity
	})

	k := topK
	if len(all) < k {
		k = len(all)
	}
	var sum float64
	for _, s := range all[:k] {
		sum += float64(s.citations)
	}
	return sum / float64(k)
}

// Average returns the per-metric arithmetic mean, or zeros for no input.
func Average(scores []Scores) Scores {
	if len(scores) == 0 {
		return Scores{}
	}
	var out Scores
	for _, s := range scores {
		out.HistoricalDissimilarity += s.HistoricalDissimilarity
		out.ContemporaryDissimilarity += s.ContemporaryDissimilarity
		out.ContemporaryImpact += s.ContemporaryImpact
		out.OverallNovelty += s.OverallNovelty
	}
	n := float64(len(scores))
	out.HistoricalDissimilarity /= n
	out.ContemporaryDissimilarity /= n
	out.ContemporaryImpact /= n
	out.OverallNovelty /= n
	return out
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
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
