package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter exports run reports to PDF format.
type PDFExporter struct{}

// Export writes the report as PDF.
func (e *PDFExporter) Export(report *Report, w io.Writer) error {
	run := report.Run
	state := report.State

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	// Add first page
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, e.sanitizeText(run.Query), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Run Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", run.ID)
	e.addMetadataRow(pdf, "Configuration:", run.ConfigName)
	e.addMetadataRow(pdf, "Status:", string(run.Status))
	e.addMetadataRow(pdf, "Intention:", state.Intention)
	e.addMetadataRow(pdf, "Topics:", strings.Join(state.Topics, ", "))
	e.addMetadataRow(pdf, "Created:", run.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	if run.CompletedAt != nil {
		e.addMetadataRow(pdf, "Completed:", run.CompletedAt.Format("January 2, 2006 at 3:04 PM"))
	}
	pdf.Ln(5)

	// Debate team
	if len(state.Personalities) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Debate Team")
		pdf.Ln(8)

		for _, p := range state.Personalities {
			pdf.SetFillColor(230, 230, 250)
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(0, 6, e.sanitizeText(p.Name), "", 1, "", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, e.sanitizeText(fmt.Sprintf("Background: %s\nViewpoint: %s", p.Background, p.Viewpoint)), "", "", false)
			pdf.Ln(3)
		}
		pdf.Ln(3)
	}

	// Final ideas
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Final Ideas")
	pdf.Ln(8)

	ideas := finalIdeas(state)
	if len(ideas) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No ideas produced.")
		pdf.Ln(6)
	} else {
		for i, idea := range ideas {
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			pdf.SetFillColor(200, 230, 255)
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(0, 7, e.sanitizeText(fmt.Sprintf("%d. %s", i+1, idea.Title)), "", 1, "", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, e.sanitizeText(idea.Description), "", "", false)
			if idea.Reasoning != "" {
				pdf.SetFont("Arial", "I", 9)
				pdf.MultiCell(0, 5, e.sanitizeText("Reasoning: "+idea.Reasoning), "", "", false)
			}
			pdf.Ln(5)
		}
	}

	// Evaluation
	if eval := report.Evaluation; eval != nil {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Evaluation")
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 10)
		cutoffs := make([]int, 0, len(eval.Precision))
		for n := range eval.Precision {
			cutoffs = append(cutoffs, n)
		}
		sort.Ints(cutoffs)
		for _, n := range cutoffs {
			e.addMetadataRow(pdf, fmt.Sprintf("Precision@%d:", n), fmt.Sprintf("%.3f", eval.Precision[n]))
		}
		e.addMetadataRow(pdf, "Overall novelty:", fmt.Sprintf("%.3f", eval.Novelty.OverallNovelty))
		pdf.Ln(3)

		if len(eval.RankedIdeas) > 0 {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(15, 6, "Rank", "1", 0, "", false, 0, "")
			pdf.CellFormat(110, 6, "Title", "1", 0, "", false, 0, "")
			pdf.CellFormat(20, 6, "Score", "1", 0, "", false, 0, "")
			pdf.CellFormat(25, 6, "Source", "1", 1, "", false, 0, "")

			pdf.SetFont("Arial", "", 9)
			for i, r := range eval.RankedIdeas {
				if pdf.GetY() > 260 {
					pdf.AddPage()
				}
				title := r.Title
				if len(title) > 60 {
					title = title[:60] + "..."
				}
				pdf.CellFormat(15, 6, fmt.Sprintf("%d", i+1), "1", 0, "", false, 0, "")
				pdf.CellFormat(110, 6, e.sanitizeText(title), "1", 0, "", false, 0, "")
				pdf.CellFormat(20, 6, fmt.Sprintf("%d", r.Score), "1", 0, "", false, 0, "")
				pdf.CellFormat(25, 6, r.Source, "1", 1, "", false, 0, "")
			}
		}
	}

	// Footer
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 10, "Exported from ideagen", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(35, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, e.sanitizeText(value))
	pdf.Ln(5)
}

// Sanitize text for PDF (remove problematic characters)
func (e *PDFExporter) sanitizeText(text string) string {
	// gofpdf uses Windows-1252 encoding by default
	// Replace common Unicode characters that might cause issues
	replacer := strings.NewReplacer(
		"\u2018", "'", // Left single quote
		"\u2019", "'", // Right single quote
		"\u201C", "\"", // Left double quote
		"\u201D", "\"", // Right double quote
		"\u2013", "-", // En dash
		"\u2014", "--", // Em dash
		"\u2026", "...", // Ellipsis
		"\u2022", "*", // Bullet
		"\u00A0", " ", // Non-breaking space
	)
	return replacer.Replace(text)
}
