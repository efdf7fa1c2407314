// Package api exposes the progression engine over JSON/HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"net/http"

	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/gating"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/quiz"
	"github.com/p-n-ai/pai-progress/internal/report"
)

const maxBodyBytes = 1 << 16

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// NotificationLister lists stored notifications. *notify.PostgresSink
// implements it.
type NotificationLister interface {
	List(ctx context.Context, learnerID string, limit int) ([]notify.Event, error)
}

// Handler serves the progression API.
type Handler struct {
	engine        *progression.Engine
	checks        map[string]HealthCheck
	notifications NotificationLister
}

// Option configures a Handler.
type Option func(*Handler)

// WithHealthCheck adds a dependency checked by /readyz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

// WithNotifications enables the notification history endpoint.
func WithNotifications(l NotificationLister) Option {
	return func(h *Handler) { h.notifications = l }
}

func NewHandler(engine *progression.Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, checks: make(map[string]HealthCheck)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP router.
func (h *Handler) Routes() *http.ServeMux {
	const stage = "/v1/learners/{learner}/skills/{skill}/stages/{stage}"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("GET /v1/learners/{learner}/skills/{skill}", h.handleOverview)
	mux.HandleFunc("GET /v1/learners/{learner}/skills/{skill}/export.xlsx", h.handleExport)
	mux.HandleFunc("POST "+stage+"/video", h.handleVideo)
	mux.HandleFunc("POST "+stage+"/quiz", h.handleStartQuiz)
	mux.HandleFunc("POST "+stage+"/quiz/retake", h.handleRetakeQuiz)
	mux.HandleFunc("POST "+stage+"/quiz/answer", h.handleAnswer)
	mux.HandleFunc("POST "+stage+"/quiz/advance", h.handleAdvance)
	mux.HandleFunc("GET "+stage+"/quiz/review", h.handleReview)
	mux.HandleFunc("GET /v1/learners/{learner}/streak", h.handleStreak)
	mux.HandleFunc("GET /v1/learners/{learner}/notifications", h.handleNotifications)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.engine.Overview(r.Context(), r.PathValue("learner"), r.PathValue("skill"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

type videoRequest struct {
	Minutes *float64 `json:"minutes"`
}

func (h *Handler) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Minutes == nil || math.IsNaN(*req.Minutes) || math.IsInf(*req.Minutes, 0) {
		writeError(w, fmt.Errorf("%w: minutes is required", progression.ErrInvalidInput))
		return
	}

	res, err := h.engine.WatchVideo(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"), *req.Minutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.StartQuiz(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleRetakeQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.RetakeQuiz(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type answerRequest struct {
	Option *int `json:"option"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Option == nil {
		writeError(w, fmt.Errorf("%w: option is required", progression.ErrInvalidInput))
		return
	}

	view, err := h.engine.AnswerQuiz(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"), *req.Option)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type advanceResponse struct {
	Quiz  progression.QuizView    `json:"quiz"`
	Stage progression.StageResult `json:"stage"`
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	view, res, err := h.engine.AdvanceQuiz(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{Quiz: view, Stage: res})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.ReviewQuiz(r.Context(), r.PathValue("learner"), r.PathValue("skill"), r.PathValue("stage"))
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []quiz.ReviewItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleStreak(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Streak(r.Context(), r.PathValue("learner"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notifications == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "notification history is not enabled"})
		return
	}
	events, err := h.notifications.List(r.Context(), r.PathValue("learner"), 50)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []notify.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	learner, skill := r.PathValue("learner"), r.PathValue("skill")
	ov, err := h.engine.Overview(r.Context(), learner, skill)
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.engine.Streak(r.Context(), learner)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": learner + "-" + skill + ".xlsx",
	}))
	if err := report.WriteWorkbook(w, ov, s); err != nil {
		slog.Error("export failed", "learner_id", learner, "skill_id", skill, "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", progression.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, progression.ErrInvalidInput),
		errors.Is(err, quiz.ErrOptionOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, progression.ErrStageLocked):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrUnknownSkill),
		errors.Is(err, catalog.ErrUnknownStage),
		errors.Is(err, gating.ErrIndexOutOfRange),
		errors.Is(err, progression.ErrNoActiveQuiz):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrIncompleteAnswer),
		errors.Is(err, quiz.ErrSessionFinalized),
		errors.Is(err, quiz.ErrNotFinalized):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrUnreachableThreshold),
		errors.Is(err, quiz.ErrNoQuestions),
		errors.Is(err, quiz.ErrInvalidQuestion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
