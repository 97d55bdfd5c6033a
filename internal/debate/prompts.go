package debate

import (
	"fmt"
	"strings"

	"github.com/alienxp03/ideagen/internal/core"
)

// Wire shapes for structured LLM responses.

type personaListWire struct {
	Personalities []core.Persona `json:"personalities"`
}

type teamSelectionWire struct {
	Selections []struct {
		Persona core.Persona `json:"persona"`
		Reason  string       `json:"reason"`
	} `json:"selections"`
}

type finalIdeaListWire struct {
	FinalIdeas []core.Idea `json:"final_ideas"`
}

func personaPoolPrompt(query string, topics []string, intention string, minCount, maxCount int) string {
	return fmt.Sprintf(`You are assembling a panel of scientists for a research ideation debate.

Research query: %q
User intention: %s
Key topics: %s

Generate a diverse pool of between %d and %d candidate scientist personas. Each persona must bring a distinct disciplinary background and a distinct viewpoint on the query. Avoid near-duplicates.

Respond with a single JSON object of this exact shape and nothing else:
{"personalities": [{"name": "...", "background": "...", "viewpoint": "..."}]}`,
		query, intention, strings.Join(topics, ", "), minCount, maxCount)
}

func teamSelectionPrompt(intention string, topics []string, teamSize int, pool []core.Persona) string {
	var candidates strings.Builder
	for _, p := range pool {
		fmt.Fprintf(&candidates, "- Name: %s\n  Background: %s\n  Viewpoint: %s\n", p.Name, p.Background, p.Viewpoint)
	}

	return fmt.Sprintf(`You are selecting the final debate team from a pool of candidate scientists.

User intention: %s
Key topics: %s

Candidates:
%s
Select exactly %d candidates whose viewpoints are maximally complementary for generating novel research ideas. For each selection give a short reason.

Respond with a single JSON object of this exact shape and nothing else:
{"selections": [{"persona": {"name": "...", "background": "...", "viewpoint": "..."}, "reason": "..."}]}`,
		intention, strings.Join(topics, ", "), candidates.String(), teamSize)
}

func ideaGenerationPrompt(p core.Persona, query, roundSummary, context, previousContributions string) string {
	return fmt.Sprintf(`You are %s, a scientist with the following background: %s
Your viewpoint: %s

You are participating in a multi-round debate to generate novel research ideas for this query:
%q

Summary of the previous round:
%s

Relevant literature context:
%s

Contributions from scientists who spoke before you in this round:
%s

Propose 2-3 genuinely novel research ideas from your viewpoint. Build on or react to the previous contributions rather than repeating them. For each idea give a concise title, a description of the proposed work, and your reasoning for why it is promising.

Respond with a single JSON object of this exact shape and nothing else:
{"debater_name": %q, "proposed_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`,
		p.Name, p.Background, p.Viewpoint, query, roundSummary, context, previousContributions, p.Name)
}

// ablationIdeaGenerationPrompt is the stripped prompt variant: no literature
// context section, used to measure how much grounding contributes.
func ablationIdeaGenerationPrompt(p core.Persona, query, roundSummary, previousContributions string) string {
	return fmt.Sprintf(`You are %s, a scientist with the following background: %s
Your viewpoint: %s

You are participating in a multi-round debate to generate novel research ideas for this query:
%q

Summary of the previous round:
%s

Contributions from scientists who spoke before you in this round:
%s

Propose 2-3 genuinely novel research ideas from your viewpoint. Build on or react to the previous contributions rather than repeating them. For each idea give a concise title, a description of the proposed work, and your reasoning for why it is promising.

Respond with a single JSON object of this exact shape and nothing else:
{"debater_name": %q, "proposed_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`,
		p.Name, p.Background, p.Viewpoint, query, roundSummary, previousContributions, p.Name)
}

func criticPrompt(ideasText string) string {
	return fmt.Sprintf(`You are an impartial critic in a research ideation debate. Analyze the novelty, feasibility, and potential impact of the ideas proposed this round. Be specific: name weak ideas and say why, and point out overlaps between proposals.

Proposed ideas:
%s

Respond with a single JSON object of this exact shape and nothing else:
{"critique": "..."}`, ideasText)
}

func roundSummaryPrompt(ideasText, critique string) string {
	return fmt.Sprintf(`You are the debate moderator. Write a concise summary of this round that the scientists can build on next round: the strongest ideas, the critic's main objections, and the directions worth deepening.

Proposed ideas:
%s

Critic's analysis:
%s

Respond with a single JSON object of this exact shape and nothing else:
{"summary": "..."}`, ideasText, critique)
}

// ablationRoundSummaryPrompt summarizes without critic feedback, for runs
// where the critic round is disabled.
func ablationRoundSummaryPrompt(ideasText string) string {
	return fmt.Sprintf(`You are the debate moderator. Write a concise summary of this round that the scientists can build on next round: the strongest ideas and the directions worth deepening.

Proposed ideas:
%s

Respond with a single JSON object of this exact shape and nothing else:
{"summary": "..."}`, ideasText)
}

func finalSynthesisPrompt(history string) string {
	return fmt.Sprintf(`You are the synthesizer concluding a multi-round research ideation debate. Below is the full history of round summaries. Distill the debate into a final list of the most novel, concrete research ideas. Merge overlapping proposals and drop weak ones.

Debate history:
%s

Respond with a single JSON object of this exact shape and nothing else:
{"final_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`, history)
}

func finalRoundSynthesisPrompt(ideasText, criticism string) string {
	return fmt.Sprintf(`You are the synthesizer concluding a research ideation debate. Using only the final round's proposals and the critic's analysis of them, distill a final list of the most novel, concrete research ideas. Merge overlapping proposals and drop weak ones.

Final round ideas:
%s

Critic's analysis:
%s

Respond with a single JSON object of this exact shape and nothing else:
{"final_ideas": [{"title": "...", "description": "...", "reasoning": "..."}]}`, ideasText, criticism)
}

func abstractPrompt(title, description string) string {
	return fmt.Sprintf(`Write a scientific abstract for the following research idea, in the style of a top AI conference paper: motivation, proposed method, and expected contribution, in 150-250 words. Respond with the abstract text only.

Title: %s
Description: %s`, title, description)
}

// formatContributions renders every contribution of a round for critic and
// summary prompts.
func formatContributions(contribs []core.Contribution) string {
	blocks := make([]string, 0, len(contribs))
	for _, c := range contribs {
		var b strings.Builder
		fmt.Fprintf(&b, "Ideas from %s:\n", c.DebaterName)
		lines := make([]string, 0, len(c.Ideas))
		for _, idea := range c.Ideas {
			lines = append(lines, fmt.Sprintf("- Title: %s\n  Description: %s\n  Reasoning: %s", idea.Title, idea.Description, idea.Reasoning))
		}
		b.WriteString(strings.Join(lines, "\n"))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// formatContribution renders one contribution for the in-round chain, where
// each debater sees what earlier debaters proposed.
func formatContribution(c core.Contribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contribution from %s:\n", c.DebaterName)
	for _, idea := range c.Ideas {
		fmt.Fprintf(&b, "- Idea: %s\n  - Description: %s\n  - Reasoning: %s\n", idea.Title, idea.Description, idea.Reasoning)
	}
	return b.String()
}
