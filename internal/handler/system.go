package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/uniprep/copilot/internal/handler/views"
	"github.com/uniprep/copilot/internal/i18n"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Database  databaseHealth `json:"database"`
	LLM       llmHealth      `json:"llm"`
}

type databaseHealth struct {
	OK            bool   `json:"ok"`
	SchemaVersion string `json:"schemaVersion,omitempty"`
}

type llmHealth struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	langs := make([]string, 0, len(i18n.Languages()))
	for _, tag := range i18n.Languages() {
		langs = append(langs, tag.String())
	}
	page := views.Welcome(views.WelcomeData{
		Title:     i18n.T(ctx, "AppTitle"),
		Tagline:   i18n.T(ctx, "AppTagline"),
		Status:    i18n.T(ctx, "ApiRunning"),
		LangLabel: i18n.T(ctx, "SupportedLanguages"),
		Languages: strings.Join(langs, ", "),
		Model:     h.llm.Model(),
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(ctx, w); err != nil {
		slog.Error("render welcome page", "error", err)
	}
}

func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Pong!"))
}

// handleHealth answers 503 when the database cannot be reached.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Message:   i18n.T(r.Context(), "ApiRunning"),
		Timestamp: time.Now().UTC(),
		LLM:       llmHealth{Configured: h.llm.Configured(), Model: h.llm.Model()},
	}
	status := http.StatusOK
	version, err := h.store.Health()
	if err != nil {
		slog.Error("database health check failed", "error", err)
		resp.Status = "DEGRADED"
		status = http.StatusServiceUnavailable
	} else {
		resp.Database = databaseHealth{OK: true, SchemaVersion: version}
	}
	writeJSON(w, status, resp)
}

// handleTestKey runs the API key diagnostics. Failures answer 500 with the
// diagnosis as the body.
func (h *Handler) handleTestKey(w http.ResponseWriter, r *http.Request) {
	d := h.llm.Diagnose(r.Context())
	status := http.StatusOK
	if !d.Valid {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, d)
}
