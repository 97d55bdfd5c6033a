package literature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientSearchByKeyword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "sparse attention" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("api key header missing, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{
					"paperId": "p1",
					"title": "Sparse Attention",
					"year": 2021,
					"abstract": "We study sparsity.",
					"citationCount": 42,
					"venue": "ICLR",
					"tldr": {"text": "sparsity works"},
					"authors": [{"name": "A. Author"}, {"name": "B. Author"}]
				},
				{
					"paperId": "p2",
					"title": "No Extras",
					"year": null,
					"abstract": null,
					"citationCount": 0,
					"tldr": null,
					"authors": []
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient("secret", 0).WithBaseURLs(server.URL, server.URL).WithPause(0)
	got, err := client.SearchByKeyword(context.Background(), "sparse attention", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d papers, want 2", len(got))
	}

	first := got[0]
	if first.ID != "p1" || first.Year != 2021 || first.CitationCount != 42 {
		t.Errorf("wrong paper fields: %+v", first)
	}
	if first.TLDR != "sparsity works" {
		t.Errorf("tldr not flattened: %q", first.TLDR)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "A. Author" {
		t.Errorf("authors not flattened: %v", first.Authors)
	}

	// Null year and abstract decode to zero values.
	if got[1].Year != 0 || got[1].Abstract != "" {
		t.Errorf("null fields mishandled: %+v", got[1])
	}
}

func TestHTTPClientRecommendations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"recommendedPapers": [{"paperId": "r1", "title": "Related", "year": 2022, "citationCount": 7}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient("", 0).WithBaseURLs(server.URL, server.URL).WithPause(0)
	got, err := client.Recommendations(context.Background(), "p1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPClientReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"references": [{"paperId": "ref1", "title": "Foundational", "year": 2015}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient("", 0).WithBaseURLs(server.URL, server.URL).WithPause(0)
	got, err := client.References(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ref1" || got[0].Year != 2015 {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient("", 0).WithBaseURLs(server.URL, server.URL).WithPause(0)
	if _, err := client.SearchByKeyword(context.Background(), "x", 5); err == nil {
		t.Error("expected error for non-200 status")
	}
}
