package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/casesim/internal/grading"
	appI18n "github.com/pavelanni/casesim/internal/i18n"
	"github.com/pavelanni/casesim/internal/model"
	"github.com/pavelanni/casesim/internal/registry"
	"github.com/pavelanni/casesim/internal/session"
)

type sessionResponse struct {
	ID string `json:"id"`
	session.State
	RemainingSeconds *int      `json:"remaining_seconds"`
	CurrentStep      *stepView `json:"current_step"`
}

func newSessionResponse(id string, ctrl *session.Controller) sessionResponse {
	resp := sessionResponse{ID: id, State: ctrl.State(), RemainingSeconds: ctrl.Remaining()}
	if !ctrl.Completed() {
		v := newStepView(ctrl.Case().Steps[ctrl.Index()])
		resp.CurrentStep = &v
	}
	return resp
}

// buildResult flattens a finished session into its persisted form.
func buildResult(e *registry.Entry, ctrl *session.Controller, now time.Time) model.CaseResult {
	sum := ctrl.Summary()
	c := ctrl.Case()
	res := model.CaseResult{
		SessionID:      e.ID,
		CaseID:         c.ID,
		CaseTitle:      c.Title,
		Mode:           ctrl.Mode(),
		Score:          sum.Score,
		Total:          sum.Total,
		Percentage:     sum.Percentage,
		Category:       string(sum.Category),
		Expired:        ctrl.Expired(),
		ElapsedSeconds: ctrl.Elapsed(),
		StartedAt:      e.StartedAt,
		FinishedAt:     now,
	}
	for _, ss := range sum.Steps {
		st := model.StepResult{StepID: ss.StepID, Kind: ss.Kind, Answered: ss.Answered, Points: ss.Points, Max: ss.Max}
		if a, ok := ctrl.Answer(ss.StepID); ok {
			st.OptionID = a.OptionID
			st.Correct = a.Correct
			st.Text = a.Text
		}
		res.Steps = append(res.Steps, st)
	}
	return res
}

// withSession loads the live session named in the URL, brings its timer up to
// date and runs the rest of the chain with the controller in the context. Safe
// methods only read the session; the others hold it for writing.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, r, http.StatusNotFound, "SessionNotFound")
			return
		}
		h.registry.Touch(e)

		serve := func(ctrl *session.Controller) {
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), ctrl)))
		}
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			e.View(serve)
			return
		}
		e.Do(serve)
	})
}

// respondState writes the session state after a transition.
func respondState(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	writeJSON(w, http.StatusOK, newSessionResponse(chi.URLParam(r, "sessionID"), ctrl))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondState(w, r, session.MustFromContext(r.Context()))
}

type modeRequest struct {
	Mode model.Mode `json:"mode"`
}

func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if !req.Mode.IsValid() {
		writeError(w, r, http.StatusBadRequest, "InvalidMode")
		return
	}
	ctrl.SetMode(req.Mode)
	respondState(w, r, ctrl)
}

type answerRequest struct {
	StepID   string `json:"step_id"`
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	Points   *int   `json:"points"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil || req.StepID == "" {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	step, ok := ctrl.Case().Step(req.StepID)
	if !ok {
		respondState(w, r, ctrl)
		return
	}
	var sub session.Submission
	switch {
	case step.Kind == model.StepChoice:
		sub = session.Choice(req.OptionID)
	case req.Points != nil:
		sub = session.ScoredText(req.Text, *req.Points)
	default:
		sub = session.Text(req.Text)
	}
	ctrl.RecordAnswer(req.StepID, sub)

	slog.Debug("answer recorded", "session_id", chi.URLParam(r, "sessionID"), "step_id", req.StepID)
	respondState(w, r, ctrl)
}

type pointsRequest struct {
	Points int `json:"points"`
}

func (h *Handler) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	var req pointsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	ctrl.AdjustPoints(chi.URLParam(r, "stepID"), req.Points)
	respondState(w, r, ctrl)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	ctrl.GoToNextStep()
	respondState(w, r, ctrl)
}

type navigateRequest struct {
	Index int `json:"index"`
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	ctrl.NavigateTo(req.Index)
	respondState(w, r, ctrl)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	ctrl.AutoSubmit()
	respondState(w, r, ctrl)
}

type reportResponse struct {
	grading.Summary
	CategoryLabel string               `json:"category_label"`
	Text          string               `json:"text"`
	AnsweredText  string               `json:"answered_text"`
	Expired       bool                 `json:"expired"`
	Answers       []model.AnswerRecord `json:"answers"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctrl := session.MustFromContext(r.Context())
	if !ctrl.Completed() {
		writeError(w, r, http.StatusConflict, "SessionNotCompleted")
		return
	}
	sum := ctrl.Summary()
	writeJSON(w, http.StatusOK, reportResponse{
		Summary:       sum,
		CategoryLabel: appI18n.Category(r.Context(), string(sum.Category)),
		Text: appI18n.Td(r.Context(), "ScoreSummary", map[string]any{
			"Score":      sum.Score,
			"Total":      sum.Total,
			"Percentage": sum.Percentage,
		}),
		AnsweredText: appI18n.Tp(r.Context(), "StepsAnswered", len(ctrl.Answers())),
		Expired:      ctrl.Expired(),
		Answers:      ctrl.Answers(),
	})
}

type reviewResponse struct {
	StepID    string `json:"step_id"`
	Score     int    `json:"score"`
	MaxPoints int    `json:"max_points"`
	Feedback  string `json:"feedback"`
}

// handleReview asks the assistant about a recorded free-text answer. The
// session is only locked while the answer is copied out, never during the call.
func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	if h.reviewer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "AssistantDisabled")
		return
	}
	e, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	stepID := chi.URLParam(r, "stepID")
	var (
		step     model.Step
		rec      model.AnswerRecord
		answered bool
	)
	e.View(func(ctrl *session.Controller) {
		step, _ = ctrl.Case().Step(stepID)
		rec, answered = ctrl.Answer(stepID)
	})
	if !answered || step.Kind != model.StepFreeText {
		writeError(w, r, http.StatusConflict, "StepNotAnswered")
		return
	}

	review, err := h.reviewer.ReviewAnswer(r.Context(), step, rec.Text)
	if err != nil {
		slog.Error("assistant review failed", "session_id", e.ID, "step_id", stepID, "error", err)
		writeError(w, r, http.StatusBadGateway, "AssistantFailed")
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{
		StepID:    stepID,
		Score:     review.Score,
		MaxPoints: review.MaxPoints,
		Feedback:  review.Feedback,
	})
}
