package literature

import (
	"context"
	"strings"
	"testing"

	"github.com/alienxp03/ideagen/internal/provider"
)

// scriptClient returns a fixed result per call, in order, across all three
// search methods.
type scriptClient struct {
	results [][]Paper
	calls   int
	queries []string
}

func (c *scriptClient) next(query string) []Paper {
	c.queries = append(c.queries, query)
	if c.calls >= len(c.results) {
		c.calls++
		return nil
	}
	out := c.results[c.calls]
	c.calls++
	return out
}

func (c *scriptClient) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]Paper, error) {
	return c.next("keyword:" + keyword), nil
}

func (c *scriptClient) Recommendations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	return c.next("similar:" + paperID), nil
}

func (c *scriptClient) References(ctx context.Context, paperID string) ([]Paper, error) {
	return c.next("references:" + paperID), nil
}

func paper(id, title string, score int) Paper {
	return Paper{ID: id, Title: title, Abstract: "abstract of " + title, Year: 2022, Score: score}
}

func TestAgentCollectsAndRanks(t *testing.T) {
	client := &scriptClient{results: [][]Paper{
		{paper("A", "alpha methods", 0), paper("B", "beta methods", 0)},
		{paper("C", "gamma methods", 0), paper("A", "alpha methods", 0)},
	}}
	llm := provider.NewMockProvider(
		`{"A": 9, "B": 5}`,          // scores for iteration 1
		`PaperQuery("A")`,           // next search
		`{"C": 7}`,                  // scores for iteration 2
		`KeywordQuery("unused")`,    // next search after final iteration
	)
	agent := NewAgent(client, llm, "").WithLimits(2, 10).WithPause(0)

	got, err := agent.Run(context.Background(), "alpha beta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d papers, want 3: %+v", len(got), got)
	}
	wantOrder := []string{"A", "C", "B"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Score != 9 || got[1].Score != 7 || got[2].Score != 5 {
		t.Errorf("wrong scores: %+v", got)
	}

	// Seed search uses the topic, second search follows the LLM's call.
	if client.queries[0] != "keyword:alpha beta" {
		t.Errorf("seed query wrong: %s", client.queries[0])
	}
	if client.queries[1] != "similar:A" {
		t.Errorf("follow-up query wrong: %s", client.queries[1])
	}
}

func TestAgentDeduplicatesByID(t *testing.T) {
	same := paper("A", "alpha methods", 0)
	client := &scriptClient{results: [][]Paper{
		{same},
		{same}, // nothing new, second iteration is unproductive
	}}
	llm := provider.NewMockProvider(
		`{"A": 6}`,
		`KeywordQuery("again")`,
		`KeywordQuery("again")`,
	)
	agent := NewAgent(client, llm, "").WithLimits(2, 10).WithPause(0)

	got, err := agent.Run(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "A" {
		t.Errorf("expected single deduplicated paper, got %+v", got)
	}
}

func TestAgentStopsAfterThreeEmptyIterations(t *testing.T) {
	client := &scriptClient{} // every search comes back empty
	llm := provider.NewMockProvider(`KeywordQuery("retry")`)
	agent := NewAgent(client, llm, "").WithLimits(10, 10).WithPause(0)

	got, err := agent.Run(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no papers, got %+v", got)
	}
	if client.calls != 3 {
		t.Errorf("searched %d times before giving up, want 3", client.calls)
	}
}

func TestAgentSkipsFilteredPapers(t *testing.T) {
	client := &scriptClient{results: [][]Paper{
		{
			{ID: "s", Title: "A Survey of Everything", Abstract: "text", Year: 2022},
			{ID: "n", Title: "no abstract here", Year: 2022},
		},
	}}
	llm := provider.NewMockProvider(`KeywordQuery("next")`)
	agent := NewAgent(client, llm, "").WithLimits(1, 10).WithPause(0)

	got, err := agent.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("filtered papers leaked through: %+v", got)
	}
}

func TestAgentUnparseableScoresDefaultToZero(t *testing.T) {
	client := &scriptClient{results: [][]Paper{
		{paper("A", "alpha methods", 0)},
	}}
	llm := provider.NewMockProvider(
		"I cannot score these.",
		`KeywordQuery("next")`,
	)
	agent := NewAgent(client, llm, "").WithLimits(1, 10).WithPause(0)

	got, err := agent.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Score != 0 {
		t.Errorf("expected paper kept with zero score, got %+v", got)
	}
}

func TestParseToolCall(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantKind string
		wantArg  string
		wantOK   bool
	}{
		{"Keyword", `KeywordQuery("sparse attention")`, "KeywordQuery", "sparse attention", true},
		{"Paper", `PaperQuery("abc123")`, "PaperQuery", "abc123", true},
		{"References", `GetReferences("abc123")`, "GetReferences", "abc123", true},
		{"AfterThinking", "<think>hmm, references</think>\nGetReferences(\"xyz\")", "GetReferences", "xyz", true},
		{"Unknown", `DeleteEverything("now")`, "", "", false},
		{"Unterminated", `KeywordQuery("oops`, "", "", false},
		{"Prose", "I would search for sparse attention.", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, arg, ok := parseToolCall(tc.raw)
			if kind != tc.wantKind || arg != tc.wantArg || ok != tc.wantOK {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", kind, arg, ok, tc.wantKind, tc.wantArg, tc.wantOK)
			}
		})
	}
}

func TestFilterPapers(t *testing.T) {
	in := []Paper{
		{ID: "1", Title: "Novel Methods", Abstract: "a"},
		{ID: "2", Title: "A Survey of Methods", Abstract: "a"},
		{ID: "3", Title: "A Review of Methods", Abstract: "a"},
		{ID: "4", Title: "Position Paper on Methods", Abstract: "a"},
		{ID: "", Title: "Missing ID", Abstract: "a"},
		{ID: "5", Title: "Missing Abstract"},
	}
	got := filterPapers(in)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("got %+v, want only paper 1", got)
	}
}

func TestDedupPapers(t *testing.T) {
	in := []Paper{
		{ID: "1", Title: "Sparse Attention Probes", Abstract: "first"},
		{ID: "2", Title: "sparse  attention probes", Abstract: "different"}, // same title modulo case and spacing
		{ID: "3", Title: "Something Else", Abstract: "first"},              // same abstract
		{ID: "4", Title: "Genuinely New", Abstract: "fresh"},
	}
	got := dedupPapers(in)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "4" {
		t.Errorf("got %+v, want papers 1 and 4", got)
	}
}

func TestFormatPapersForPrompt(t *testing.T) {
	papers := []Paper{
		{ID: "a", Title: " Padded Title ", Abstract: "full text"},
		{ID: "b", Title: "No Abstract", TLDR: "short gist"},
	}

	got := formatPapersForPrompt(papers, true)
	for _, want := range []string{"paperId: a", "title: Padded Title", "abstract: full text", "paperId: b", "tldr: short gist"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	bare := formatPapersForPrompt(papers, false)
	if strings.Contains(bare, "abstract:") || strings.Contains(bare, "tldr:") {
		t.Errorf("abstract leaked into title-only format:\n%s", bare)
	}
}
