// Package export handles exporting run reports to various formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/pipeline"
)

// Format represents an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Report bundles everything an export covers: the run record, the final
// debate state, and the evaluation if one was performed.
type Report struct {
	Run        *core.Run            `json:"run"`
	State      *core.DebateState    `json:"state"`
	Evaluation *pipeline.Evaluation `json:"evaluation,omitempty"`
}

// Exporter defines the interface for exporting run reports.
type Exporter interface {
	Export(report *Report, w io.Writer) error
	FileExtension() string
}

// GetExporter returns an exporter for the given format.
func GetExporter(format Format) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// GenerateFilename creates a filename for the export.
func GenerateFilename(run *core.Run, ext string) string {
	query := run.Query
	if len(query) > 50 {
		query = query[:50]
	}

	// Replace unsafe characters
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	query = replacer.Replace(query)

	return fmt.Sprintf("ideas_%s_%s.%s", run.Timestamp, query, ext)
}

// finalIdeas returns the deduplicated ideas when present, otherwise the raw
// synthesis output.
func finalIdeas(state *core.DebateState) []core.Idea {
	if len(state.FinalDeduplicatedIdeas) > 0 {
		return state.FinalDeduplicatedIdeas
	}
	return state.FinalIdeas
}
