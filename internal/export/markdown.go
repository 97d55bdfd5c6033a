package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// MarkdownExporter exports run reports to Markdown format.
type MarkdownExporter struct{}

// Export writes the report as Markdown.
func (e *MarkdownExporter) Export(report *Report, w io.Writer) error {
	var sb strings.Builder
	run := report.Run
	state := report.State

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", run.Query))

	// Metadata
	sb.WriteString("## Run Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", run.ID))
	sb.WriteString(fmt.Sprintf("- **Configuration:** %s\n", run.ConfigName))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("- **Intention:** %s\n", state.Intention))
	sb.WriteString(fmt.Sprintf("- **Topics:** %s\n", strings.Join(state.Topics, ", ")))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", run.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	if run.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Completed:** %s\n", run.CompletedAt.Format("January 2, 2006 at 3:04 PM")))
	}
	sb.WriteString("\n")

	// Debate team
	if len(state.Personalities) > 0 {
		sb.WriteString("## Debate Team\n\n")
		for _, p := range state.Personalities {
			sb.WriteString(fmt.Sprintf("### %s\n", p.Name))
			sb.WriteString(fmt.Sprintf("- **Background:** %s\n", p.Background))
			sb.WriteString(fmt.Sprintf("- **Viewpoint:** %s\n", p.Viewpoint))
			sb.WriteString("\n")
		}
	}

	// Round history
	if len(state.History) > 0 {
		sb.WriteString("## Debate History\n\n")
		for _, entry := range state.History {
			sb.WriteString(entry)
			sb.WriteString("\n\n---\n\n")
		}
	}

	// Final ideas
	sb.WriteString("## Final Ideas\n\n")
	ideas := finalIdeas(state)
	if len(ideas) == 0 {
		sb.WriteString("*No ideas produced.*\n\n")
	}
	for i, idea := range ideas {
		sb.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, idea.Title))
		sb.WriteString(idea.Description)
		sb.WriteString("\n\n")
		if idea.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("**Reasoning:** %s\n\n", idea.Reasoning))
		}
		if idea.Abstract != "" {
			sb.WriteString(fmt.Sprintf("**Abstract:** %s\n\n", idea.Abstract))
		}
	}

	// Evaluation
	if eval := report.Evaluation; eval != nil {
		sb.WriteString("## Evaluation\n\n")

		if len(eval.Precision) > 0 {
			cutoffs := make([]int, 0, len(eval.Precision))
			for n := range eval.Precision {
				cutoffs = append(cutoffs, n)
			}
			sort.Ints(cutoffs)
			for _, n := range cutoffs {
				sb.WriteString(fmt.Sprintf("- **Precision@%d:** %.3f\n", n, eval.Precision[n]))
			}
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("- **Historical dissimilarity:** %.3f\n", eval.Novelty.HistoricalDissimilarity))
		sb.WriteString(fmt.Sprintf("- **Contemporary dissimilarity:** %.3f\n", eval.Novelty.ContemporaryDissimilarity))
		sb.WriteString(fmt.Sprintf("- **Contemporary impact:** %.3f\n", eval.Novelty.ContemporaryImpact))
		sb.WriteString(fmt.Sprintf("- **Overall novelty:** %.3f\n\n", eval.Novelty.OverallNovelty))

		if len(eval.RankedIdeas) > 0 {
			sb.WriteString("### Ranking\n\n")
			sb.WriteString("| Rank | Title | Score | Source |\n")
			sb.WriteString("|------|-------|-------|--------|\n")
			for i, r := range eval.RankedIdeas {
				sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s |\n", i+1, r.Title, r.Score, r.Source))
			}
			sb.WriteString("\n")
		}
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from ideagen*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
