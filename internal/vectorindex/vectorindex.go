// Package vectorindex stores embedded text chunks in SQLite and serves
// nearest-neighbor queries for grounding debate prompts in discovered
// literature. Collections are per run; queries are brute-force cosine
// scans, which is fine at literature-review scale.
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alienxp03/ideagen/internal/literature"
	"github.com/alienxp03/ideagen/internal/provider"
)

const (
	// CollectionBaseName prefixes per-run collection names.
	CollectionBaseName = "lit_review_papers"

	// DefaultDocsPerQuery is how many chunks a retrieval returns.
	DefaultDocsPerQuery = 3

	chunkSize    = 10000
	chunkOverlap = 2000
)

// CollectionName returns the collection for a given run timestamp.
func CollectionName(runTimestamp string) string {
	return CollectionBaseName + "_" + runTimestamp
}

// Index is a SQLite-backed embedding store.
type Index struct {
	db       *sql.DB
	path     string
	embedder provider.Embedder
}

// Open opens (or creates) an index at the given path.
func Open(dbPath string, embedder provider.Embedder) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to index database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		paper_id TEXT NOT NULL,
		title TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index schema: %w", err)
	}

	return &Index{db: db, path: dbPath, embedder: embedder}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// HasCollection reports whether any chunks exist for the collection.
func (ix *Index) HasCollection(collection string) (bool, error) {
	var count int
	err := ix.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	return count > 0, nil
}

// IndexPapers chunks, embeds, and stores the papers under the collection,
// replacing any previous contents. Papers with no text are skipped. Returns
// the number of chunks stored.
func (ix *Index) IndexPapers(ctx context.Context, collection string, papers []literature.Paper) (int, error) {
	type chunk struct {
		paperID string
		title   string
		index   int
		content string
	}

	var chunks []chunk
	var texts []string
	for _, p := range papers {
		if p.Title == "" && p.Abstract == "" && p.TLDR == "" {
			continue
		}
		text := paperText(p)
		for i, piece := range splitText(text) {
			chunks = append(chunks, chunk{paperID: p.ID, title: p.Title, index: i, content: piece})
			texts = append(texts, piece)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return 0, fmt.Errorf("failed to clear collection %q: %w", collection, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO chunks (id, collection, paper_id, title, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		encoded, err := json.Marshal(vectors[i])
		if err != nil {
			return 0, fmt.Errorf("failed to encode embedding: %w", err)
		}
		id := fmt.Sprintf("%s_chunk_%d", c.paperID, c.index)
		if _, err := stmt.Exec(id, collection, c.paperID, c.title, c.index, c.content, string(encoded)); err != nil {
			return 0, fmt.Errorf("failed to insert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chunks: %w", err)
	}
	return len(chunks), nil
}

// Query embeds the query text and returns the contents of the k most
// similar chunks, best first.
func (ix *Index) Query(ctx context.Context, collection, query string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultDocsPerQuery
	}

	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for the query", len(vectors))
	}
	queryVec := vectors[0]

	rows, err := ix.db.QueryContext(ctx, `SELECT content, embedding FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", collection, err)
	}
	defer rows.Close()

	type scored struct {
		content    string
		similarity float64
	}
	var all []scored
	for rows.Next() {
		var content, encoded string
		if err := rows.Scan(&content, &encoded); err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		var vec []float64
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		all = append(all, scored{content: content, similarity: cosine(queryVec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].similarity > all[j].similarity
	})
	if len(all) > k {
		all = all[:k]
	}

	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.content
	}
	return out, nil
}

// Collection pins an index to one collection with a fixed result count,
// satisfying the retrieval interface debate prompts use.
type Collection struct {
	index *Index
	name  string
	k     int
}

// Collection returns a retrieval handle for the named collection.
func (ix *Index) Collection(name string, k int) *Collection {
	if k <= 0 {
		k = DefaultDocsPerQuery
	}
	return &Collection{index: ix, name: name, k: k}
}

// Retrieve returns the most relevant chunks formatted as a context block.
// A missing or empty collection yields an explanatory message rather than
// an error, so prompts degrade gracefully.
func (c *Collection) Retrieve(ctx context.Context, query string) (string, error) {
	exists, err := c.index.HasCollection(c.name)
	if err != nil {
		return "", err
	}
	if !exists {
		return fmt.Sprintf("Collection %q not found. Run literature indexing for this run before the debate.", c.name), nil
	}

	docs, err := c.index.Query(ctx, c.name, query, c.k)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No relevant documents found in the database.", nil
	}

	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Document %d ---\n%s", i+1, doc)
	}
	return b.String(), nil
}

// paperText builds the indexable text for a paper from its metadata.
func paperText(p literature.Paper) string {
	return fmt.Sprintf("Title: %s\n\nAbstract: %s\n\nTLDR: %s", p.Title, p.Abstract, p.TLDR)
}

// splitText slices text into overlapping windows.
func splitText(text string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	step := chunkSize - chunkOverlap
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
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
