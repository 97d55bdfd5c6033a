package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/alienxp03/ideagen/internal/provider"
)

const baselineGenJSON = `{"final_ideas": [
	{"title": "Raw idea one", "description": "First candidate.", "reasoning": "Obvious."},
	{"title": "Raw idea two", "description": "Second candidate.", "reasoning": "Also obvious."}
]}`

const baselineRefinedJSON = `{"final_ideas": [
	{"title": "Refined idea", "description": "The strong candidate, sharpened.", "reasoning": "Survived critique."}
]}`

func TestGenerateBaseline(t *testing.T) {
	llm := provider.NewMockProvider(baselineGenJSON, baselineRefinedJSON)
	runner := NewRunner(llm, "", fixedEmbedder{}, t.TempDir())

	ideas, err := runner.GenerateBaseline(context.Background(), "sparse attention probes")
	if err != nil {
		t.Fatalf("baseline generation failed: %v", err)
	}

	if len(ideas) != 1 || ideas[0].Title != "Refined idea" {
		t.Errorf("baseline = %+v, want the refined list", ideas)
	}
	if llm.Calls() != 2 {
		t.Errorf("made %d calls, want 2 (generate, refine)", llm.Calls())
	}

	// The critique prompt carries the candidates forward.
	prompts := llm.Prompts()
	if !strings.Contains(prompts[1], "Raw idea one") || !strings.Contains(prompts[1], "Raw idea two") {
		t.Errorf("critique prompt missing candidates: %s", prompts[1])
	}
	if !strings.Contains(prompts[0], "sparse attention probes") {
		t.Errorf("generation prompt missing query: %s", prompts[0])
	}
}

func TestGenerateBaselineEmptyGeneration(t *testing.T) {
	llm := provider.NewMockProvider(`{"final_ideas": []}`)
	runner := NewRunner(llm, "", fixedEmbedder{}, t.TempDir())

	if _, err := runner.GenerateBaseline(context.Background(), "q"); err == nil {
		t.Error("expected error when generation returns no ideas")
	}
}

func TestGenerateBaselineEmptyRefinement(t *testing.T) {
	llm := provider.NewMockProvider(baselineGenJSON, `{"final_ideas": []}`)
	runner := NewRunner(llm, "", fixedEmbedder{}, t.TempDir())

	if _, err := runner.GenerateBaseline(context.Background(), "q"); err == nil {
		t.Error("expected error when refinement returns no ideas")
	}
}
