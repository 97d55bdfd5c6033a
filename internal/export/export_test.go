package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/novelty"
	"github.com/alienxp03/ideagen/internal/pipeline"
)

func sampleReport() *Report {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	done := created.Add(10 * time.Minute)

	state := core.NewDebateState("sparse attention probes", []string{"sparse attention"}, "Exploratory", "20250101_120000")
	state.Personalities = []core.Persona{
		{Name: "Ada", Background: "systems", Viewpoint: "efficiency first"},
	}
	state.History = []string{"**Round 1 Summary:**\nProbes look promising."}
	state.FinalIdeas = []core.Idea{
		{Title: "Sparse probes", Description: "Probe attention sparsity.", Reasoning: "Cheap to test."},
		{Title: "Dense probes", Description: "Probe dense attention."},
	}
	state.FinalDeduplicatedIdeas = []core.Idea{
		{Title: "Sparse probes", Description: "Probe attention sparsity.", Reasoning: "Cheap to test."},
	}

	return &Report{
		Run: &core.Run{
			ID:          "run-1",
			Timestamp:   "20250101_120000",
			Query:       "sparse attention probes",
			ConfigName:  "full_system",
			Status:      core.RunCompleted,
			CreatedAt:   created,
			CompletedAt: &done,
		},
		State: state,
		Evaluation: &pipeline.Evaluation{
			Query: "sparse attention probes",
			RankedIdeas: []core.RankedIdea{
				{Title: "Sparse probes", Score: 8, Source: core.SourceNonBaseline},
				{Title: "Baseline idea", Score: 5, Source: core.SourceBaseline},
			},
			Precision: map[int]float64{3: 0.667},
			Novelty:   novelty.Scores{OverallNovelty: 1.5},
		},
	}
}

func TestGetExporter(t *testing.T) {
	for _, format := range []Format{FormatMarkdown, FormatPDF, FormatJSON} {
		if _, err := GetExporter(format); err != nil {
			t.Errorf("GetExporter(%s) failed: %v", format, err)
		}
	}
	if _, err := GetExporter("docx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGenerateFilename(t *testing.T) {
	run := &core.Run{
		Timestamp: "20250101_120000",
		Query:     "sparse attention: how/why?",
	}
	got := GenerateFilename(run, "md")
	if got != "ideas_20250101_120000_sparse_attention-_how-why.md" {
		t.Errorf("unexpected filename: %s", got)
	}
}

func TestMarkdownExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(sampleReport(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# sparse attention probes",
		"- **Configuration:** full_system",
		"### Ada",
		"**Round 1 Summary:**",
		"### 1. Sparse probes",
		"**Precision@3:** 0.667",
		"| 1 | Sparse probes | 8 | non_baseline |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	// Deduplicated ideas take precedence over the raw synthesis output.
	if strings.Contains(out, "Dense probes") {
		t.Error("markdown includes suppressed idea")
	}
}

func TestMarkdownExportWithoutEvaluation(t *testing.T) {
	report := sampleReport()
	report.Evaluation = nil

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(report, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.Contains(buf.String(), "## Evaluation") {
		t.Error("evaluation section rendered without an evaluation")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(sampleReport(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.Run.ID != "run-1" {
		t.Errorf("run ID = %s", decoded.Run.ID)
	}
	if len(decoded.State.FinalDeduplicatedIdeas) != 1 {
		t.Errorf("deduplicated ideas = %d", len(decoded.State.FinalDeduplicatedIdeas))
	}
	if decoded.Evaluation == nil || decoded.Evaluation.Novelty.OverallNovelty != 1.5 {
		t.Errorf("evaluation not preserved: %+v", decoded.Evaluation)
	}
}

func TestPDFExportProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := (&PDFExporter{}).Export(sampleReport(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", buf.Bytes()[:8])
	}
}

func TestFileExtensions(t *testing.T) {
	cases := map[Format]string{
		FormatMarkdown: "md",
		FormatPDF:      "pdf",
		FormatJSON:     "json",
	}
	for format, ext := range cases {
		exporter, err := GetExporter(format)
		if err != nil {
			t.Fatalf("GetExporter(%s) failed: %v", format, err)
		}
		if exporter.FileExtension() != ext {
			t.Errorf("%s extension = %s, want %s", format, exporter.FileExtension(), ext)
		}
	}
}
