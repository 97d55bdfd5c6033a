package novelty

import (
	"context"
	"math"
	"testing"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/literature"
)

// mapEmbedder returns a fixed vector per text and records what it embedded.
type mapEmbedder struct {
	vectors map[string][]float64
	calls   int
	texts   []string
}

func (m *mapEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	m.calls++
	m.texts = append(m.texts, texts...)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = m.vectors[t]
	}
	return out, nil
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, want %f", name, got, want)
	}
}

func TestScoreNoPapers(t *testing.T) {
	emb := &mapEmbedder{}
	s := NewScorer(emb, 0)

	got, err := s.Score(context.Background(), core.Idea{Title: "T", Description: "D"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Scores{}) {
		t.Errorf("expected zero scores, got %+v", got)
	}
	if emb.calls != 0 {
		t.Errorf("embedder invoked %d times with no papers", emb.calls)
	}
}

func TestScoreMetrics(t *testing.T) {
	idea := core.Idea{Title: "Sparse", Description: "probes"}
	papers := []literature.Paper{
		{ID: "p1", Title: "old far", Year: 2019, Abstract: "far past", CitationCount: 500},
		{ID: "p2", Title: "old near", Year: 2021, Abstract: "near past", CitationCount: 300},
		{ID: "c1", Title: "new near", Year: 2023, Abstract: "near con", CitationCount: 100},
		{ID: "c2", Title: "new far", Year: 2024, Abstract: "far con", CitationCount: 10},
	}
	emb := &mapEmbedder{vectors: map[string][]float64{
		"Sparse probes": {1, 0},
		"far past":      {4, 4}, // distance 5
		"near past":     {1, 1}, // distance 1
		"near con":      {2, 0}, // distance 1, cosine 1
		"far con":       {0, 1}, // distance sqrt(2), cosine 0
	}}
	s := NewScorer(emb, 2023)

	got, err := s.Score(context.Background(), idea, papers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hd := 3.0
	cd := (1 + math.Sqrt2) / 2
	ci := 55.0
	approx(t, "historical dissimilarity", got.HistoricalDissimilarity, hd)
	approx(t, "contemporary dissimilarity", got.ContemporaryDissimilarity, cd)
	approx(t, "contemporary impact", got.ContemporaryImpact, ci)
	approx(t, "overall novelty", got.OverallNovelty, hd*ci/cd)

	if emb.calls != 1 {
		t.Errorf("embedder invoked %d times, want a single batched call", emb.calls)
	}
}

func TestScoreSkipsUnusablePapers(t *testing.T) {
	idea := core.Idea{Title: "T", Description: "D"}
	papers := []literature.Paper{
		{ID: "no-year", Abstract: "text"},
		{ID: "no-abstract", Year: 2020},
		{ID: "ok", Year: 2020, Abstract: "usable"},
	}
	emb := &mapEmbedder{vectors: map[string][]float64{
		"T D":    {1, 0},
		"usable": {0, 1},
	}}
	s := NewScorer(emb, 2023)

	if _, err := s.Score(context.Background(), idea, papers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the idea and the single usable abstract reach the embedder.
	if len(emb.texts) != 2 {
		t.Errorf("embedded %d texts, want 2: %v", len(emb.texts), emb.texts)
	}
}

func TestScoreZeroContemporaryDistance(t *testing.T) {
	idea := core.Idea{Title: "T", Description: "D"}
	papers := []literature.Paper{
		{ID: "c", Year: 2024, Abstract: "identical", CitationCount: 40},
	}
	emb := &mapEmbedder{vectors: map[string][]float64{
		"T D":       {1, 0},
		"identical": {1, 0},
	}}
	s := NewScorer(emb, 2023)

	got, err := s.Score(context.Background(), idea, papers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, "contemporary dissimilarity", got.ContemporaryDissimilarity, 0)
	approx(t, "contemporary impact", got.ContemporaryImpact, 40)
	// Division by zero distance is defined as zero novelty.
	approx(t, "overall novelty", got.OverallNovelty, 0)
}

func TestAverage(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if got := Average(nil); got != (Scores{}) {
			t.Errorf("got %+v, want zeros", got)
		}
	})

	t.Run("Mean", func(t *testing.T) {
		got := Average([]Scores{
			{HistoricalDissimilarity: 2, ContemporaryDissimilarity: 4, ContemporaryImpact: 10, OverallNovelty: 5},
			{HistoricalDissimilarity: 4, ContemporaryDissimilarity: 0, ContemporaryImpact: 30, OverallNovelty: 1},
		})
		approx(t, "historical dissimilarity", got.HistoricalDissimilarity, 3)
		approx(t, "contemporary dissimilarity", got.ContemporaryDissimilarity, 2)
		approx(t, "contemporary impact", got.ContemporaryImpact, 20)
		approx(t, "overall novelty", got.OverallNovelty, 3)
	})
}
