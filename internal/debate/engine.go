// Package debate runs the multi-round, multi-persona ideation debate: a
// persona pool is generated and narrowed to a team, the team debates in
// rounds moderated by a critic and a summarizer, and a synthesizer distills
// the final idea list.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/provider"
)

// Structural constants of the debate.
const (
	DefaultRounds   = 3
	DefaultTeamSize = 3
	PersonaPoolMin  = 5
	PersonaPoolMax  = 10
)

// Sentinel texts used in prompts for the first round and the first speaker.
// Downstream prompt expectations depend on these exact strings.
const (
	firstRoundSummary  = "This is the first round."
	noContributionsYet = "No one has contributed yet in this round. You are the first."
)

// Retriever supplies literature context for a query. The debate treats
// retrieval as best-effort: a failed retrieval degrades to an empty context.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Engine drives the debate state machine. Every transition takes a state,
// works on a clone, and returns the clone; the input state is never
// mutated.
type Engine struct {
	llm       provider.Provider
	model     string
	retriever Retriever
	opts      core.RunOptions

	rounds   int
	teamSize int
	poolMin  int
	poolMax  int
}

// New creates an engine with the default round count and team size.
func New(llm provider.Provider, model string, opts core.RunOptions) *Engine {
	return &Engine{
		llm:      llm,
		model:    model,
		opts:     opts,
		rounds:   DefaultRounds,
		teamSize: DefaultTeamSize,
		poolMin:  PersonaPoolMin,
		poolMax:  PersonaPoolMax,
	}
}

// WithRetriever attaches a literature retriever.
func (e *Engine) WithRetriever(r Retriever) *Engine {
	e.retriever = r
	return e
}

// WithRounds overrides the number of debate rounds.
func (e *Engine) WithRounds(rounds int) *Engine {
	if rounds > 0 {
		e.rounds = rounds
	}
	return e
}

// WithTeamSize overrides the number of debaters.
func (e *Engine) WithTeamSize(size int) *Engine {
	if size > 0 {
		e.teamSize = size
	}
	return e
}

// Run executes the full debate for the given initial state and returns the
// final state. Any transition failure aborts the debate.
func (e *Engine) Run(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	state, err := e.GeneratePersonaPool(ctx, state)
	if err != nil {
		return nil, err
	}
	state, err = e.SelectTeam(ctx, state)
	if err != nil {
		return nil, err
	}

	for state.CurrentRound <= e.rounds {
		state, err = e.RunIdeaRound(ctx, state)
		if err != nil {
			return nil, err
		}
		if e.opts.CritiqueEnabled {
			state, err = e.RunCriticRound(ctx, state)
			if err != nil {
				return nil, err
			}
		} else {
			slog.Info("skipping critic round", "round", state.CurrentRound)
		}
		state, err = e.SummarizeRound(ctx, state)
		if err != nil {
			return nil, err
		}
	}

	state, err = e.SynthesizeFinalIdeas(ctx, state)
	if err != nil {
		return nil, err
	}

	if e.opts.GenerateAbstracts {
		state, err = e.GenerateAbstracts(ctx, state)
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// GeneratePersonaPool asks the LLM for a pool of candidate personas. An
// empty or invalid pool is fatal: nothing downstream can run without
// debaters.
func (e *Engine) GeneratePersonaPool(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	slog.Info("generating persona pool", "min", e.poolMin, "max", e.poolMax)

	prompt := personaPoolPrompt(state.InitialQuery, state.Topics, state.Intention, e.poolMin, e.poolMax)
	pool, err := provider.InvokeStructured[personaListWire](ctx, e.llm, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate persona pool: %w", err)
	}
	if len(pool.Personalities) == 0 {
		return nil, fmt.Errorf("persona pool is empty")
	}
	for _, p := range pool.Personalities {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid persona in pool: %w", err)
		}
	}

	slog.Info("persona pool generated", "count", len(pool.Personalities))
	next := state.Clone()
	next.PersonaPool = pool.Personalities
	return next, nil
}

// SelectTeam narrows the pool to the debate team and initializes the round
// counter and history.
func (e *Engine) SelectTeam(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	slog.Info("selecting debate team", "pool", len(state.PersonaPool), "team_size", e.teamSize)

	prompt := teamSelectionPrompt(state.Intention, state.Topics, e.teamSize, state.PersonaPool)
	selection, err := provider.InvokeStructured[teamSelectionWire](ctx, e.llm, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to select team: %w", err)
	}
	if len(selection.Selections) == 0 {
		return nil, fmt.Errorf("team selection returned no personas")
	}

	team := make([]core.Persona, 0, len(selection.Selections))
	for _, s := range selection.Selections {
		if err := s.Persona.Validate(); err != nil {
			return nil, fmt.Errorf("invalid persona selected: %w", err)
		}
		slog.Info("selected debater", "name", s.Persona.Name, "reason", s.Reason)
		team = append(team, s.Persona)
	}

	next := state.Clone()
	next.Personalities = team
	next.CurrentRound = 1
	next.History = []string{}
	return next, nil
}

// RunIdeaRound runs one round of sequential idea generation. Debaters speak
// in team order; each sees the previous round's summary, retrieved
// literature context, and what earlier debaters proposed this round.
func (e *Engine) RunIdeaRound(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	slog.Info("starting idea generation round", "round", state.CurrentRound)

	summaryText := firstRoundSummary
	if state.CurrentSummary != nil {
		summaryText = state.CurrentSummary.Summary
	}

	contributions := make([]core.Contribution, 0, len(state.Personalities))
	previous := noContributionsYet

	for _, persona := range state.Personalities {
		litContext := e.retrieveContext(ctx, state, persona)

		var prompt string
		if e.opts.Prompt == core.PromptAblation {
			prompt = ablationIdeaGenerationPrompt(persona, state.InitialQuery, summaryText, previous)
		} else {
			prompt = ideaGenerationPrompt(persona, state.InitialQuery, summaryText, litContext, previous)
		}

		contribution, err := provider.InvokeStructured[core.Contribution](ctx, e.llm, e.model, prompt)
		if err != nil {
			return nil, fmt.Errorf("debater %s failed in round %d: %w", persona.Name, state.CurrentRound, err)
		}
		if contribution.DebaterName == "" {
			contribution.DebaterName = persona.Name
		}
		slog.Info("debater contributed", "name", contribution.DebaterName, "ideas", len(contribution.Ideas))
		contributions = append(contributions, contribution)

		if previous == noContributionsYet {
			previous = formatContribution(contribution)
		} else {
			previous += "\n\n" + formatContribution(contribution)
		}
	}

	next := state.Clone()
	next.RoundContributions = contributions
	return next, nil
}

// retrieveContext fetches literature context for one debater according to
// the retrieval mode. Failures degrade to an empty context.
func (e *Engine) retrieveContext(ctx context.Context, state *core.DebateState, persona core.Persona) string {
	if e.opts.Retrieval == core.RetrievalOff || e.retriever == nil {
		return ""
	}

	query := state.InitialQuery
	if e.opts.Retrieval == core.RetrievalPersonaViewpoint {
		query = fmt.Sprintf("%s from the perspective of %s", state.InitialQuery, persona.Viewpoint)
	}

	context, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		slog.Warn("retrieval failed", "query", query, "error", err)
		return ""
	}
	return context
}

// RunCriticRound has the critic analyze the round's contributions.
func (e *Engine) RunCriticRound(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	slog.Info("running critic round", "round", state.CurrentRound)

	prompt := criticPrompt(formatContributions(state.RoundContributions))
	criticism, err := provider.InvokeStructured[core.Criticism](ctx, e.llm, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("critic failed in round %d: %w", state.CurrentRound, err)
	}

	next := state.Clone()
	next.CurrentCriticism = &criticism
	return next, nil
}

// SummarizeRound produces the moderator's summary, appends it to the
// history, and advances the round counter. With the critic disabled the
// summary is built from the contributions alone.
func (e *Engine) SummarizeRound(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	slog.Info("summarizing round", "round", state.CurrentRound)

	ideasText := formatContributions(state.RoundContributions)
	var prompt string
	if e.opts.CritiqueEnabled && state.CurrentCriticism != nil {
		prompt = roundSummaryPrompt(ideasText, state.CurrentCriticism.Critique)
	} else {
		prompt = ablationRoundSummaryPrompt(ideasText)
	}

	summary, err := provider.InvokeStructured[core.RoundSummary](ctx, e.llm, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize round %d: %w", state.CurrentRound, err)
	}

	next := state.Clone()
	next.CurrentSummary = &summary
	next.History = append(next.History, fmt.Sprintf("**Round %d Summary:**\n%s", state.CurrentRound, summary.Summary))
	next.CurrentRound = state.CurrentRound + 1
	return next, nil
}

// SynthesizeFinalIdeas distills the debate into the final idea list, either
// from the accumulated history or from only the final round.
func (e *Engine) SynthesizeFinalIdeas(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	var prompt string
	if e.opts.Synthesis == core.SynthesisFinalRound {
		slog.Info("synthesizing final ideas from final round")
		criticism := ""
		if state.CurrentCriticism != nil {
			criticism = state.CurrentCriticism.Critique
		}
		prompt = finalRoundSynthesisPrompt(formatContributions(state.RoundContributions), criticism)
	} else {
		slog.Info("synthesizing final ideas from history", "rounds", len(state.History))
		prompt = finalSynthesisPrompt(strings.Join(state.History, "\n\n"))
	}

	ideas, err := provider.InvokeStructured[finalIdeaListWire](ctx, e.llm, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("final synthesis failed: %w", err)
	}
	for _, idea := range ideas.FinalIdeas {
		if err := idea.Validate(); err != nil {
			return nil, fmt.Errorf("invalid synthesized idea: %w", err)
		}
	}

	slog.Info("final synthesis complete", "ideas", len(ideas.FinalIdeas))
	next := state.Clone()
	next.FinalIdeas = ideas.FinalIdeas
	return next, nil
}

// GenerateAbstracts writes a scientific abstract for each final idea. With
// no final ideas it sets an empty list without any LLM calls.
func (e *Engine) GenerateAbstracts(ctx context.Context, state *core.DebateState) (*core.DebateState, error) {
	next := state.Clone()
	next.FinalAbstracts = []core.IdeaAbstract{}

	if len(state.FinalIdeas) == 0 {
		slog.Info("no final ideas, skipping abstract generation")
		return next, nil
	}

	for i, idea := range state.FinalIdeas {
		slog.Info("generating abstract", "index", i+1, "total", len(state.FinalIdeas), "title", idea.Title)

		prompt := abstractPrompt(idea.Title, idea.Description)
		var text string
		var err error
		if e.model != "" {
			text, err = e.llm.GenerateWithModel(ctx, prompt, e.model)
		} else {
			text, err = e.llm.Generate(ctx, prompt)
		}
		if err != nil {
			return nil, fmt.Errorf("abstract generation failed for %q: %w", idea.Title, err)
		}

		next.FinalAbstracts = append(next.FinalAbstracts, core.IdeaAbstract{
			Title:    idea.Title,
			Abstract: strings.TrimSpace(text),
		})
	}
	return next, nil
}
