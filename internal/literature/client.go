package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGraphURL          = "https://api.semanticscholar.org/graph/v1"
	defaultRecommendationURL = "https://api.semanticscholar.org/recommendations/v1/papers/forpaper"

	searchFields = "title,year,citationCount,abstract,tldr,authors,venue"
)

// SearchClient looks up papers in a scholarly index.
type SearchClient interface {
	SearchByKeyword(ctx context.Context, keyword string, limit int) ([]Paper, error)
	Recommendations(ctx context.Context, paperID string, limit int) ([]Paper, error)
	References(ctx context.Context, paperID string) ([]Paper, error)
}

// HTTPClient talks to the Semantic Scholar API. Each request is preceded by
// a fixed pause to stay under the public rate limit.
type HTTPClient struct {
	graphURL string
	recURL   string
	apiKey   string
	client   *http.Client
	pause    time.Duration
}

// NewHTTPClient creates a Semantic Scholar client. An empty API key is
// allowed but subject to heavier rate limiting.
func NewHTTPClient(apiKey string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		graphURL: defaultGraphURL,
		recURL:   defaultRecommendationURL,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		pause:    3 * time.Second,
	}
}

// WithBaseURLs overrides the API endpoints, used for tests against a local
// server.
func (c *HTTPClient) WithBaseURLs(graphURL, recURL string) *HTTPClient {
	c.graphURL = graphURL
	c.recURL = recURL
	return c
}

// WithPause overrides the delay inserted before every request.
func (c *HTTPClient) WithPause(pause time.Duration) *HTTPClient {
	c.pause = pause
	return c
}

// apiPaper mirrors the wire shape, where authors are objects and tldr is
// nested.
type apiPaper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Year          int    `json:"year"`
	Abstract      string `json:"abstract"`
	CitationCount int    `json:"citationCount"`
	Venue         string `json:"venue"`
	TLDR          *struct {
		Text string `json:"text"`
	} `json:"tldr"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (p apiPaper) toPaper() Paper {
	out := Paper{
		ID:            p.PaperID,
		Title:         p.Title,
		Year:          p.Year,
		Abstract:      p.Abstract,
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
	}
	if p.TLDR != nil {
		out.TLDR = p.TLDR.Text
	}
	for _, a := range p.Authors {
		out.Authors = append(out.Authors, a.Name)
	}
	return out
}

func toPapers(in []apiPaper) []Paper {
	out := make([]Paper, len(in))
	for i, p := range in {
		out[i] = p.toPaper()
	}
	return out
}

// SearchByKeyword retrieves papers matching a keyword query.
func (c *HTTPClient) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("query", keyword)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", searchFields)

	var decoded struct {
		Data []apiPaper `json:"data"`
	}
	if err := c.get(ctx, c.graphURL+"/paper/search?"+params.Encode(), &decoded); err != nil {
		return nil, fmt.Errorf("keyword search for %q failed: %w", keyword, err)
	}
	return toPapers(decoded.Data), nil
}

// Recommendations retrieves papers similar to the given paper.
func (c *HTTPClient) Recommendations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", searchFields)

	var decoded struct {
		RecommendedPapers []apiPaper `json:"recommendedPapers"`
	}
	if err := c.get(ctx, c.recURL+"/"+url.PathEscape(paperID)+"?"+params.Encode(), &decoded); err != nil {
		return nil, fmt.Errorf("recommendations for paper %q failed: %w", paperID, err)
	}
	return toPapers(decoded.RecommendedPapers), nil
}

// References retrieves the papers cited by the given paper.
func (c *HTTPClient) References(ctx context.Context, paperID string) ([]Paper, error) {
	params := url.Values{}
	params.Set("fields", "references.paperId,references.title,references.year,references.abstract,references.citationCount")

	var decoded struct {
		References []apiPaper `json:"references"`
	}
	if err := c.get(ctx, c.graphURL+"/paper/"+url.PathEscape(paperID)+"?"+params.Encode(), &decoded); err != nil {
		return nil, fmt.Errorf("references for paper %q failed: %w", paperID, err)
	}
	return toPapers(decoded.References), nil
}

func (c *HTTPClient) get(ctx context.Context, rawURL string, out any) error {
	if c.pause > 0 {
		select {
		case <-time.After(c.pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(payload))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
