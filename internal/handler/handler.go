package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/casesim/internal/i18n"
	"github.com/pavelanni/casesim/internal/llm"
	"github.com/pavelanni/casesim/internal/model"
	"github.com/pavelanni/casesim/internal/registry"
	"github.com/pavelanni/casesim/internal/session"
	"github.com/pavelanni/casesim/internal/store"
)

// Reviewer gives advisory feedback on a free-text answer.
type Reviewer interface {
	ReviewAnswer(ctx context.Context, step model.Step, answer string) (*llm.Review, error)
}

// Config holds the HTTP surface's runtime settings.
type Config struct {
	BasePath string // URL prefix for sub-path deployments (e.g. "/es")
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	reviewer Reviewer
	registry *registry.Registry
	config   Config
}

// New creates a Handler. A nil reviewer disables the review endpoint. Extra
// registry options are applied after the handler's own completion hook.
func New(s *store.Store, reviewer Reviewer, cfg Config, opts ...registry.Option) *Handler {
	h := &Handler{store: s, reviewer: reviewer, config: cfg}
	h.registry = registry.New(append([]registry.Option{registry.OnComplete(h.saveResult)}, opts...)...)
	return h
}

// Registry returns the live sessions, so the caller can run the exam timer.
func (h *Handler) Registry() *registry.Registry {
	return h.registry
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cases", h.handleListCases)
	r.Get("/cases/{caseID}", h.handleGetCase)
	r.Post("/cases/{caseID}/sessions", h.handleStartSession)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/answers/{stepID}/review", h.handleReview)
		r.Delete("/", h.handleDiscard)

		r.Group(func(r chi.Router) {
			r.Use(h.withSession)
			r.Get("/", h.handleGetSession)
			r.Put("/mode", h.handleSetMode)
			r.Post("/answers", h.handleAnswer)
			r.Put("/answers/{stepID}/points", h.handleAdjustPoints)
			r.Post("/next", h.handleNext)
			r.Post("/navigate", h.handleNavigate)
			r.Post("/submit", h.handleSubmit)
			r.Get("/report", h.handleReport)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.With(requireRole(model.UserRoleAdmin, model.UserRoleInstructor)).Get("/results", h.handleListResults)
		r.With(requireRole(model.UserRoleAdmin, model.UserRoleInstructor)).Get("/results/{sessionID}", h.handleGetResult)
		r.With(requireRole(model.UserRoleAdmin)).Post("/admin/cases", h.handleImportCases)
		r.With(requireRole(model.UserRoleAdmin)).Post("/admin/users", h.handleCreateUser)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(model.ContextWithBasePath(r.Context(), h.config.BasePath)))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError responds with a localized message for msgID.
func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: msgID, Message: appI18n.T(r.Context(), msgID)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// caseView is a case as shown to students: correctness, rationales and
// criteria stay hidden.
type caseView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Steps []stepView `json:"steps"`
}

type stepView struct {
	ID        string         `json:"id"`
	Kind      model.StepKind `json:"kind"`
	Prompt    string         `json:"prompt"`
	Options   []optionView   `json:"options,omitempty"`
	MaxPoints int            `json:"max_points"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func newStepView(s model.Step) stepView {
	v := stepView{ID: s.ID, Kind: s.Kind, Prompt: s.Prompt, MaxPoints: s.Points()}
	for _, o := range s.Options {
		v.Options = append(v.Options, optionView{ID: o.ID, Text: o.Text})
	}
	return v
}

func newCaseView(c model.Case) caseView {
	v := caseView{ID: c.ID, Title: c.Title, Steps: make([]stepView, 0, len(c.Steps))}
	for _, s := range c.Steps {
		v.Steps = append(v.Steps, newStepView(s))
	}
	return v
}

func (h *Handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.store.ListCases()
	if err != nil {
		slog.Error("failed to list cases", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	views := make([]caseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, newCaseView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCaseView(*c))
}

func (h *Handler) loadCase(w http.ResponseWriter, r *http.Request) (*model.Case, bool) {
	c, err := h.store.GetCase(chi.URLParam(r, "caseID"))
	if err != nil {
		slog.Error("failed to get case", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if c == nil {
		writeError(w, r, http.StatusNotFound, "CaseNotFound")
		return nil, false
	}
	return c, true
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	e := h.registry.Start(*c)

	var resp sessionResponse
	e.View(func(ctrl *session.Controller) { resp = newSessionResponse(e.ID, ctrl) })
	w.Header().Set("Location", h.path("/sessions/"+e.ID))
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, ok := h.registry.Get(id); !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}
	h.registry.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// saveResult persists a session that reached its terminal index.
func (h *Handler) saveResult(e *registry.Entry) {
	var res model.CaseResult
	e.View(func(ctrl *session.Controller) {
		res = buildResult(e, ctrl, time.Now())
	})
	if _, err := h.store.SaveResult(res); err != nil {
		slog.Error("failed to save result", "session_id", e.ID, "error", err)
		return
	}
	slog.Info("session finished",
		"session_id", e.ID,
		"case_id", res.CaseID,
		"score", res.Score,
		"total", res.Total,
		"percentage", res.Percentage,
		"category", res.Category,
		"expired", res.Expired,
	)
}
