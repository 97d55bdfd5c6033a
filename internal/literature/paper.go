// Package literature discovers and ranks related work through an iterative,
// LLM-steered search over a scholarly paper API.
package literature

import (
	"strings"
)

// Paper is one scholarly paper as returned by the search API, plus the
// relevance score assigned during review.
type Paper struct {
	ID            string   `json:"paperId"`
	Title         string   `json:"title"`
	Year          int      `json:"year,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	TLDR          string   `json:"tldr,omitempty"`
	Venue         string   `json:"venue,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	CitationCount int      `json:"citationCount"`
	Score         int      `json:"score,omitempty"`
}

// filterPapers drops surveys, reviews, and position papers, plus anything
// missing an ID or abstract.
func filterPapers(papers []Paper) []Paper {
	kept := make([]Paper, 0, len(papers))
	for _, p := range papers {
		title := strings.ToLower(p.Title)
		if strings.Contains(title, "survey") || strings.Contains(title, "review") || strings.Contains(title, "position paper") {
			continue
		}
		if p.ID == "" || p.Abstract == "" {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// dedupPapers removes papers whose normalized title or abstract was already
// seen, keeping the first occurrence.
func dedupPapers(papers []Paper) []Paper {
	seenTitles := make(map[string]bool)
	seenAbstracts := make(map[string]bool)

	kept := make([]Paper, 0, len(papers))
	for _, p := range papers {
		title := strings.Join(strings.Fields(strings.ToLower(p.Title)), "")
		if seenTitles[title] || (p.Abstract != "" && seenAbstracts[p.Abstract]) {
			continue
		}
		seenTitles[title] = true
		if p.Abstract != "" {
			seenAbstracts[p.Abstract] = true
		}
		kept = append(kept, p)
	}
	return kept
}

// formatPapersForPrompt renders papers as the plain-text block LLM prompts
// expect: paperId and title always, abstract (or tldr as fallback) when
// requested.
func formatPapersForPrompt(papers []Paper, includeAbstract bool) string {
	var b strings.Builder
	for _, p := range papers {
		b.WriteString("paperId: " + p.ID + "\n")
		b.WriteString("title: " + strings.TrimSpace(p.Title) + "\n")
		if includeAbstract {
			if p.Abstract != "" {
				b.WriteString("abstract: " + strings.TrimSpace(p.Abstract) + "\n")
			} else if p.TLDR != "" {
				b.WriteString("tldr: " + strings.TrimSpace(p.TLDR) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
