package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/auth"
	"github.com/uniprep/copilot/internal/extract"
	"github.com/uniprep/copilot/internal/i18n"
	"github.com/uniprep/copilot/internal/llm"
	"github.com/uniprep/copilot/internal/llm/prompts"
	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

const (
	// DefaultMaxUpload is the context file size limit when none is configured.
	DefaultMaxUpload = 10 << 20

	maxJSONBody = 50 << 20
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	llm    *llm.Client
	tokens *auth.Issuer
	config model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, tokens *auth.Issuer, cfg model.ServerConfig) (*Handler, error) {
	if len(cfg.UploadPatterns) == 0 {
		cfg.UploadPatterns = extract.DefaultPatterns
	}
	if err := extract.ValidatePatterns(cfg.UploadPatterns); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUpload
	}
	if err := prompts.Load(); err != nil {
		return nil, err
	}
	return &Handler{store: s, llm: l, tokens: tokens, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.recoverer)
	r.Use(i18n.Middleware())
	r.NotFound(h.handleNotFound)

	r.Get("/", h.handleIndex)
	r.Get("/ping", h.handlePing)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/test-ai-key", h.handleTestKey)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.handleRegister)
			r.Post("/login", h.handleLogin)
			r.Post("/refresh", h.handleRefresh)
			r.With(h.requireAuth).Get("/me", h.handleMe)
			r.With(h.requireAuth).Post("/logout", h.handleLogout)
		})

		r.Route("/community/posts", func(r chi.Router) {
			r.Get("/", h.handleListPosts)
			r.Get("/{id}", h.handleGetPost)
			r.Get("/{id}/comments", h.handleListComments)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAuth)
				r.Post("/", h.handleCreatePost)
				r.Post("/{id}/vote", h.handleVote)
				r.Post("/{id}/comment", h.handleComment)
				r.Post("/{id}/clone", h.handleClonePost)
				r.Post("/{id}/report", h.handleReportPost)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/users/profile", h.handleGetProfile)
			r.Put("/users/profile", h.handleUpdateProfile)
			r.Get("/users/progress", h.handleProgress)

			r.Route("/subjects", func(r chi.Router) {
				r.Get("/", h.handleListSubjects)
				r.Post("/", h.handleCreateSubject)
				r.Get("/{id}", h.handleGetSubject)
				r.Put("/{id}", h.handleUpdateSubject)
				r.Delete("/{id}", h.handleDeleteSubject)
			})

			r.Route("/context", func(r chi.Router) {
				r.Post("/", h.handleCreateContext)
				r.Get("/{id}", h.handleListContexts)
				r.Get("/{id}/search", h.handleSearchContexts)
				r.Put("/{id}", h.handleUpdateContext)
				r.Delete("/{id}", h.handleDeleteContext)
			})

			r.Route("/styles", func(r chi.Router) {
				r.Get("/", h.handleListStyles)
				r.Get("/defaults", h.handleStylePresets)
				r.Post("/", h.handleCreateStyle)
				r.Put("/{id}", h.handleUpdateStyle)
				r.Delete("/{id}", h.handleDeleteStyle)
				r.Put("/{id}/activate", h.handleActivateStyle)
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/item/{id}", h.handleGetContent)
				r.Get("/{id}", h.handleListContent)
				r.Post("/notes", h.handleGenerateNotes)
				r.Post("/report", h.handleGenerateReport)
				r.Post("/ppt", h.handleGeneratePPT)
				r.Put("/{id}", h.handleUpdateContent)
				r.Delete("/{id}", h.handleDeleteContent)
			})

			r.Route("/exam", func(r chi.Router) {
				r.Post("/blueprint", h.handleBlueprint)
				r.Post("/planner", h.handlePlanner)
				r.Post("/rapid-sheets", h.handleRapidSheets)
				r.Post("/mock-paper", h.handleMockPaper)
				r.Get("/plans/{id}", h.handleGetExamPlan)
			})

			r.Route("/quiz", func(r chi.Router) {
				r.Post("/", h.handleCreateQuiz)
				r.Post("/attempt", h.handleAttempt)
				r.Get("/analytics/{id}", h.handleQuizAnalytics)
				r.Get("/{id}", h.handleListQuizzes)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", h.handleListSessions)
				r.Post("/start", h.handleStartSession)
				r.Put("/{id}/end", h.handleEndSession)
			})
		})
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// message answers with a localized {"message": ...} body.
func (h *Handler) message(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, messageBody{Message: i18n.T(r.Context(), msgID)})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusBadRequest, "InvalidRequest")
}

func (h *Handler) required(w http.ResponseWriter, r *http.Request, field string) {
	writeJSON(w, http.StatusBadRequest, messageBody{
		Message: i18n.Td(r.Context(), "FieldRequired", map[string]any{"Field": field}),
	})
}

// fail logs err and answers 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request error",
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	)
	body := errorBody{Message: i18n.T(r.Context(), "InternalError")}
	if h.config.Development() {
		body.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// storeError answers 404 with notFoundID for store.ErrNotFound and 500 otherwise.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFoundID string) {
	if errors.Is(err, store.ErrNotFound) {
		h.message(w, r, http.StatusNotFound, notFoundID)
		return
	}
	h.fail(w, r, err)
}

// llmError answers with the status and message of a classified LLM failure.
func (h *Handler) llmError(w http.ResponseWriter, r *http.Request, err error) {
	var le *llm.Error
	if !errors.As(err, &le) {
		h.fail(w, r, err)
		return
	}
	slog.Warn("generation failed", "url", r.URL.Path, "status", le.Status, "error", err)
	writeJSON(w, le.Status, messageBody{Message: le.Message})
}

// recoverer turns a panic into a JSON 500. The stack is included in development.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			slog.Error("panic serving request", "panic", rec, "url", r.URL.String(), "stack", string(stack))
			body := errorBody{Message: fmt.Sprint(rec)}
			if h.config.Development() {
				body.Stack = string(stack)
			}
			writeJSON(w, http.StatusInternalServerError, body)
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusNotFound, "RouteNotFound")
}

func userID(r *http.Request) string {
	return model.UserIDFromContext(r.Context())
}

// queryInt parses an integer query parameter, returning def when it is
// missing or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
