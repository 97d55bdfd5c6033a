package core

import "fmt"

// RetrievalMode controls how supporting context is retrieved for each
// debater during idea generation. The three modes are mutually exclusive.
type RetrievalMode string

const (
	// RetrievalOff skips retrieval entirely.
	RetrievalOff RetrievalMode = "off"
	// RetrievalInitialQuery retrieves with the bare initial query.
	RetrievalInitialQuery RetrievalMode = "initial_query"
	// RetrievalPersonaViewpoint retrieves with a persona-specific query.
	RetrievalPersonaViewpoint RetrievalMode = "persona_viewpoint"
)

// SynthesisMode controls the input to the final synthesis stage.
type SynthesisMode string

const (
	// SynthesisHistory synthesizes from the full accumulated round history.
	SynthesisHistory SynthesisMode = "history"
	// SynthesisFinalRound synthesizes from only the last round's raw
	// contributions and criticism, bypassing history.
	SynthesisFinalRound SynthesisMode = "final_round"
)

// PromptVariant selects between the default and ablation idea-generation
// prompts. It changes the prompt text only, never the control flow.
type PromptVariant string

const (
	PromptDefault  PromptVariant = "default"
	PromptAblation PromptVariant = "ablation"
)

// RunOptions is the consolidated configuration for a pipeline run. It
// replaces the four independent ablation booleans of earlier iterations with
// named modes so invalid combinations cannot be expressed.
type RunOptions struct {
	Name               string        `json:"name" yaml:"name"`
	Retrieval          RetrievalMode `json:"retrieval" yaml:"retrieval"`
	Synthesis          SynthesisMode `json:"synthesis" yaml:"synthesis"`
	CritiqueEnabled    bool          `json:"critique_enabled" yaml:"critique_enabled"`
	Prompt             PromptVariant `json:"prompt" yaml:"prompt"`
	SkipQueryDecomp    bool          `json:"skip_query_decomp" yaml:"skip_query_decomp"`
	GenerateAbstracts  bool          `json:"generate_abstracts" yaml:"generate_abstracts"`
}

// DefaultRunOptions returns the full-system configuration.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Name:              "full_system",
		Retrieval:         RetrievalPersonaViewpoint,
		Synthesis:         SynthesisHistory,
		CritiqueEnabled:   true,
		Prompt:            PromptDefault,
		GenerateAbstracts: true,
	}
}

// Validate checks that every mode carries a known value, filling empty modes
// with their defaults.
func (o *RunOptions) Validate() error {
	if o.Retrieval == "" {
		o.Retrieval = RetrievalPersonaViewpoint
	}
	if o.Synthesis == "" {
		o.Synthesis = SynthesisHistory
	}
	if o.Prompt == "" {
		o.Prompt = PromptDefault
	}
	switch o.Retrieval {
	case RetrievalOff, RetrievalInitialQuery, RetrievalPersonaViewpoint:
	default:
		return fmt.Errorf("invalid retrieval mode: %s", o.Retrieval)
	}
	switch o.Synthesis {
	case SynthesisHistory, SynthesisFinalRound:
	default:
		return fmt.Errorf("invalid synthesis mode: %s", o.Synthesis)
	}
	switch o.Prompt {
	case PromptDefault, PromptAblation:
	default:
		return fmt.Errorf("invalid prompt variant: %s", o.Prompt)
	}
	return nil
}
