package vectorindex

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alienxp03/ideagen/internal/literature"
)

// keywordEmbedder assigns vectors by keyword so similarity is predictable.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		switch {
		case strings.Contains(t, "attention"):
			out[i] = []float64{1, 0}
		case strings.Contains(t, "diffusion"):
			out[i] = []float64{0, 1}
		default:
			out[i] = []float64{0.7, 0.7}
		}
	}
	return out, nil
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"), keywordEmbedder{})
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndexAndQuery(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	papers := []literature.Paper{
		{ID: "p1", Title: "Sparse attention", Abstract: "attention mechanisms at scale"},
		{ID: "p2", Title: "Image diffusion", Abstract: "diffusion for generation"},
	}
	n, err := ix.IndexPapers(ctx, CollectionName("20250101_120000"), papers)
	if err != nil {
		t.Fatalf("indexing failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("stored %d chunks, want 2", n)
	}

	docs, err := ix.Query(ctx, CollectionName("20250101_120000"), "attention probes", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1 || !strings.Contains(docs[0], "Sparse attention") {
		t.Errorf("wrong nearest chunk: %v", docs)
	}
}

func TestIndexReplacesCollection(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	collection := CollectionName("20250101_120000")

	first := []literature.Paper{{ID: "old", Title: "old attention paper", Abstract: "attention"}}
	if _, err := ix.IndexPapers(ctx, collection, first); err != nil {
		t.Fatalf("first indexing failed: %v", err)
	}

	second := []literature.Paper{{ID: "new", Title: "new diffusion paper", Abstract: "diffusion"}}
	if _, err := ix.IndexPapers(ctx, collection, second); err != nil {
		t.Fatalf("second indexing failed: %v", err)
	}

	docs, err := ix.Query(ctx, collection, "anything", 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1 || !strings.Contains(docs[0], "new diffusion paper") {
		t.Errorf("old chunks survived reindexing: %v", docs)
	}
}

func TestIndexSkipsEmptyPapers(t *testing.T) {
	ix := openTestIndex(t)

	n, err := ix.IndexPapers(context.Background(), "c", []literature.Paper{{ID: "empty"}})
	if err != nil {
		t.Fatalf("indexing failed: %v", err)
	}
	if n != 0 {
		t.Errorf("stored %d chunks for a paper with no text, want 0", n)
	}
}

func TestCollectionRetrieve(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	name := CollectionName("20250101_120000")

	t.Run("MissingCollection", func(t *testing.T) {
		got, err := ix.Collection("nonexistent", 3).Retrieve(ctx, "attention")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "not found") {
			t.Errorf("expected not-found message, got %q", got)
		}
	})

	papers := []literature.Paper{
		{ID: "p1", Title: "Sparse attention", Abstract: "attention mechanisms"},
		{ID: "p2", Title: "Image diffusion", Abstract: "diffusion for generation"},
	}
	if _, err := ix.IndexPapers(ctx, name, papers); err != nil {
		t.Fatalf("indexing failed: %v", err)
	}

	t.Run("FormatsDocuments", func(t *testing.T) {
		got, err := ix.Collection(name, 2).Retrieve(ctx, "attention probes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "--- Document 1 ---") || !strings.Contains(got, "--- Document 2 ---") {
			t.Errorf("documents not formatted:\n%s", got)
		}
		if !strings.Contains(got, "Sparse attention") {
			t.Errorf("most relevant chunk missing:\n%s", got)
		}
	})
}

func TestSplitText(t *testing.T) {
	t.Run("ShortTextSingleChunk", func(t *testing.T) {
		got := splitText("short")
		if len(got) != 1 || got[0] != "short" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("LongTextOverlaps", func(t *testing.T) {
		long := strings.Repeat("a", chunkSize+chunkSize/2)
		got := splitText(long)
		if len(got) != 2 {
			t.Fatalf("got %d chunks, want 2", len(got))
		}
		if len(got[0]) != chunkSize {
			t.Errorf("first chunk is %d bytes, want %d", len(got[0]), chunkSize)
		}
		// Consecutive chunks share the overlap region.
		total := 0
		for _, c := range got {
			total += len(c)
		}
		if want := len(long) + chunkOverlap; total != want {
			t.Errorf("chunks cover %d bytes, want %d with overlap", total, want)
		}
	})
}
