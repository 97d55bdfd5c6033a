// Package handlers provides the HTTP API for browsing runs and their
// artifacts. The API is read-only: runs are created from the CLI, the web
// surface only inspects them.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alienxp03/ideagen/internal/core"
	"github.com/alienxp03/ideagen/internal/export"
	"github.com/alienxp03/ideagen/internal/pipeline"
	"github.com/alienxp03/ideagen/internal/provider"
	"github.com/alienxp03/ideagen/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store    storage.Storage
	registry *provider.Registry
}

// New creates a new Handler.
func New(store storage.Storage, registry *provider.Registry) *Handler {
	return &Handler{store: store, registry: registry}
}

// Router builds the HTTP router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/providers", h.handleListProviders)
	r.Get("/api/runs", h.handleListRuns)
	r.Get("/api/runs/{id}", h.handleGetRun)
	r.Get("/api/runs/{id}/state", h.handleRunState)
	r.Get("/api/runs/{id}/report", h.handleRunArtifact(func(run *core.Run) string { return run.ReportPath }))
	r.Get("/api/runs/{id}/ideas", h.handleRunArtifact(func(run *core.Run) string { return run.DedupPath }))
	r.Get("/api/runs/{id}/ranked", h.handleRunArtifact(func(run *core.Run) string { return run.RankedPath }))
	r.Get("/api/runs/{id}/export/{format}", h.handleExportRun)

	return r
}

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Name        string   `json:"name"`
		DisplayName string   `json:"display_name"`
		Models      []string `json:"models"`
		Available   bool     `json:"available"`
	}

	infos := make([]providerInfo, 0)
	for _, p := range h.registry.List() {
		infos = append(infos, providerInfo{
			Name:        p.Name(),
			DisplayName: p.DisplayName(),
			Models:      p.Models(),
			Available:   p.Available(),
		})
	}
	writeJSON(w, infos)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	runs, err := h.store.ListRuns(limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*core.RunSummary{}
	}
	writeJSON(w, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, run)
}

// handleRunState serves the persisted workflow state of a run.
func (h *Handler) handleRunState(w http.ResponseWriter, r *http.Request) {
	h.handleRunArtifact(func(run *core.Run) string { return run.StatePath })(w, r)
}

// handleRunArtifact serves one of the JSON artifacts a run record points at.
func (h *Handler) handleRunArtifact(path func(*core.Run) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := h.lookupRun(w, r)
		if !ok {
			return
		}

		p := path(run)
		if p == "" {
			http.Error(w, "artifact not available for this run", http.StatusNotFound)
			return
		}

		data, err := os.ReadFile(p)
		if err != nil {
			slog.Warn("artifact unreadable", "run_id", run.ID, "path", p, "error", err)
			http.Error(w, "artifact not available for this run", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func (h *Handler) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	exporter, err := export.GetExporter(export.Format(chi.URLParam(r, "format")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := loadReport(run)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	filename := export.GenerateFilename(run, exporter.FileExtension())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	switch exporter.FileExtension() {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case "md":
		w.Header().Set("Content-Type", "text/markdown")
	default:
		w.Header().Set("Content-Type", "application/json")
	}

	if err := exporter.Export(report, w); err != nil {
		slog.Error("export failed", "run_id", run.ID, "error", err)
	}
}

// loadReport assembles an export report from a run's artifacts. The state is
// required; the evaluation is optional.
func loadReport(run *core.Run) (*export.Report, error) {
	if run.StatePath == "" {
		return nil, fmt.Errorf("run has no persisted state")
	}
	data, err := os.ReadFile(run.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}
	var state core.DebateState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state: %w", err)
	}

	report := &export.Report{Run: run, State: &state}
	if run.RankedPath != "" {
		if eval, err := pipeline.LoadEvaluation(run); err == nil {
			report.Evaluation = eval
		}
	}
	return report, nil
}

func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (*core.Run, bool) {
	run, err := h.store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if run == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
