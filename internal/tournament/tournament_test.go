package tournament

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// scriptJudge always picks the same winner and counts invocations.
type scriptJudge struct {
	winner int
	calls  int
	err    error
}

func (j *scriptJudge) BetterIdea(ctx context.Context, first, second core.Idea) (int, error) {
	j.calls++
	if j.err != nil {
		return 0, j.err
	}
	return j.winner, nil
}

// flakyProvider fails a set number of times before answering.
type flakyProvider struct {
	provider.Provider
	failures int
	response string
	calls    int
}

func (p *flakyProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", errors.New("transient failure")
	}
	return p.response, nil
}

func (p *flakyProvider) GenerateWithModel(ctx context.Context, prompt, model string) (string, error) {
	return p.Generate(ctx, prompt)
}

func pool(titles ...string) []core.Idea {
	out := make([]core.Idea, len(titles))
	for i, title := range titles {
		out[i] = core.Idea{Title: title, Description: "desc " + title, Reasoning: "why"}
	}
	return out
}

func totalScore(ranked []core.RankedIdea) int {
	total := 0
	for _, r := range ranked {
		total += r.Score
	}
	return total
}

func TestRankEmptyPool(t *testing.T) {
	judge := &scriptJudge{winner: 1}
	r := NewRanker(judge, 3, rand.New(rand.NewSource(1)))

	ranked, err := r.Rank(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("expected empty result, got %d", len(ranked))
	}
	if judge.calls != 0 {
		t.Errorf("judge invoked %d times for empty pool", judge.calls)
	}
}

func TestRankSingleton(t *testing.T) {
	judge := &scriptJudge{winner: 1}
	r := NewRanker(judge, 4, rand.New(rand.NewSource(1)))

	ranked, err := r.Rank(context.Background(), pool("only"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if judge.calls != 0 {
		t.Errorf("judge invoked %d times for a single idea", judge.calls)
	}
	// 1 base point plus one bye per round.
	if len(ranked) != 1 || ranked[0].Score != 5 {
		t.Errorf("got %+v, want single idea with score 5", ranked)
	}
}

func TestRankScoreAccounting(t *testing.T) {
	t.Run("EvenPool", func(t *testing.T) {
		judge := &scriptJudge{winner: 1}
		rounds := 3
		r := NewRanker(judge, rounds, rand.New(rand.NewSource(7)))

		ranked, err := r.Rank(context.Background(), pool("a", "b", "c", "d"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 4 base points plus 2 match points per round.
		if got, want := totalScore(ranked), 4+rounds*2; got != want {
			t.Errorf("total score %d, want %d", got, want)
		}
		if judge.calls != rounds*2 {
			t.Errorf("judge invoked %d times, want %d", judge.calls, rounds*2)
		}
	})

	t.Run("OddPoolGetsBye", func(t *testing.T) {
		judge := &scriptJudge{winner: 2}
		rounds := 4
		r := NewRanker(judge, rounds, rand.New(rand.NewSource(7)))

		ranked, err := r.Rank(context.Background(), pool("a", "b", "c"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 3 base points plus one match point and one bye point per round.
		if got, want := totalScore(ranked), 3+rounds*2; got != want {
			t.Errorf("total score %d, want %d", got, want)
		}
		if judge.calls != rounds {
			t.Errorf("judge invoked %d times, want %d", judge.calls, rounds)
		}
	})

	t.Run("ScoresNeverBelowOne", func(t *testing.T) {
		judge := &scriptJudge{winner: 1}
		r := NewRanker(judge, 5, rand.New(rand.NewSource(11)))

		ranked, err := r.Rank(context.Background(), pool("a", "b", "c", "d", "e"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, idea := range ranked {
			if idea.Score < 1 {
				t.Errorf("idea %q has score %d", idea.Title, idea.Score)
			}
		}
	})
}

func TestRankSortedDescending(t *testing.T) {
	judge := &scriptJudge{winner: 1}
	r := NewRanker(judge, 6, rand.New(rand.NewSource(3)))

	ranked, err := r.Rank(context.Background(), pool("a", "b", "c", "d", "e", "f"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not descending at %d: %d after %d", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRankDeterministicWithSeed(t *testing.T) {
	run := func() []core.RankedIdea {
		judge := &scriptJudge{winner: 2}
		r := NewRanker(judge, 5, rand.New(rand.NewSource(42)))
		ranked, err := r.Rank(context.Background(), pool("a", "b", "c", "d", "e"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return ranked
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run diverged at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRankJudgeErrorAborts(t *testing.T) {
	judge := &scriptJudge{err: errors.New("judge unavailable")}
	r := NewRanker(judge, 2, rand.New(rand.NewSource(1)))

	_, err := r.Rank(context.Background(), pool("a", "b"))
	if err == nil || !strings.Contains(err.Error(), "judge unavailable") {
		t.Errorf("expected judge failure to surface, got %v", err)
	}
}

func TestJudgeVerdictParsing(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     int
	}{
		{"PlainOne", "1", 1},
		{"OneWithWhitespace", " 1\n", 1},
		{"PlainTwo", "2", 2},
		{"ProseFallsBackToSecond", "I think Paper 1 is stronger.", 2},
		{"EmptyFallsBackToSecond", "", 2},
	}

	ideas := pool("first", "second")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			judge := NewLLMJudge(provider.NewMockProvider(tc.response), "")
			got, err := judge.BetterIdea(context.Background(), ideas[0], ideas[1])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("response %q: got winner %d, want %d", tc.response, got, tc.want)
			}
		})
	}
}

func TestJudgePromptIncludesBothIdeas(t *testing.T) {
	mock := provider.NewMockProvider("1")
	judge := NewLLMJudge(mock, "")

	a := core.Idea{Title: "Sparse attention probes", Abstract: "We probe sparse attention."}
	b := core.Idea{Title: "Curriculum distillation", Abstract: "We distill with a curriculum."}
	if _, err := judge.BetterIdea(context.Background(), a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := mock.Prompts()[0]
	for _, want := range []string{"Paper 1:", "Paper 2:", a.Title, a.Abstract, b.Title, b.Abstract} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestJudgeRetriesThenSucceeds(t *testing.T) {
	flaky := &flakyProvider{failures: 2, response: "1"}
	judge := NewLLMJudge(flaky, "").WithRetry(3, 0)

	ideas := pool("first", "second")
	got, err := judge.BetterIdea(context.Background(), ideas[0], ideas[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("got winner %d, want 1", got)
	}
	if flaky.calls != 3 {
		t.Errorf("provider called %d times, want 3", flaky.calls)
	}
}

func TestJudgeRetriesExhausted(t *testing.T) {
	flaky := &flakyProvider{failures: 10, response: "1"}
	judge := NewLLMJudge(flaky, "").WithRetry(3, 0)

	ideas := pool("first", "second")
	_, err := judge.BetterIdea(context.Background(), ideas[0], ideas[1])
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected exhaustion error, got %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("provider called %d times, want 3", flaky.calls)
	}
}
