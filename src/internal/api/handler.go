package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/peerloop/feedback-market/src/internal/api/apiErrors"
	"github.com/peerloop/feedback-market/src/internal/model"
	"github.com/peerloop/feedback-market/src/internal/service"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

func RegisterRoutes(r *chi.Mux, h *Handler) {
	r.Post("/users", withTimeout(h.upsertUser))
	r.Post("/projects", withTimeout(h.createProject))
	r.Get("/projects/{projectID}", withTimeout(h.getProject))
	r.Patch("/projects/{projectID}", withTimeout(h.updateProject))
	r.Post("/projects/{projectID}/assign", withTimeout(h.assignReviewers))
	r.Get("/assignments", withTimeout(h.getAssignments))
	r.Post("/assignments/{assignmentID}/review", withTimeout(h.submitReview))
	r.Put("/assignments/{assignmentID}/draft", withTimeout(h.saveDraft))
	r.Get("/assignments/{assignmentID}/draft", withTimeout(h.getDraft))
	r.Post("/reviews/{reviewID}/helpful", withTimeout(h.markHelpful))
	r.Post("/reviews/{reviewID}/reply", withTimeout(h.replyToReview))
	r.Get("/credits/balance", withTimeout(h.getBalance))
	r.Get("/credits/history", withTimeout(h.getHistory))
	r.Get("/credits/stats", withTimeout(h.getStats))
	r.Post("/credits/adjust", withTimeout(h.adjustCredits))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

// userID returns the authenticated caller supplied by the auth collaborator.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func (h *Handler) upsertUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID              string   `json:"user_id"`
		Username            string   `json:"username"`
		Skills              []string `json:"skills"`
		OnboardingCompleted bool     `json:"onboarding_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	u, created, err := h.svc.UpsertUser(r.Context(), model.User{
		UserID:              req.UserID,
		Username:            req.Username,
		Skills:              req.Skills,
		OnboardingCompleted: req.OnboardingCompleted,
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"user": u})
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var req service.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	p, assignments, err := h.svc.CreateProject(r.Context(), owner, req)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project": p, "assignments": assignments})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	p, err := h.svc.GetProject(r.Context(), projectID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	assignments, err := h.svc.GetProjectAssignments(r.Context(), projectID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p, "assignments": assignments})
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var patch model.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	p, upgraded, err := h.svc.UpdateProject(r.Context(), owner, chi.URLParam(r, "projectID"), patch)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p, "version_upgraded": upgraded})
}

func (h *Handler) assignReviewers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DesiredCount int `json:"desired_count"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
			return
		}
	}
	assignments, err := h.svc.AutoAssignReviewers(r.Context(), chi.URLParam(r, "projectID"), req.DesiredCount)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"assignments": assignments})
}

func (h *Handler) getAssignments(w http.ResponseWriter, r *http.Request) {
	reviewer := userID(r)
	if reviewer == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	assignments, err := h.svc.GetAssignmentsForReviewer(r.Context(), reviewer)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	reviewer := userID(r)
	if reviewer == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var sections model.ReviewSections
	if err := json.NewDecoder(r.Body).Decode(&sections); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	rv, err := h.svc.SubmitReview(r.Context(), chi.URLParam(r, "assignmentID"), reviewer, sections)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"review": rv})
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	reviewer := userID(r)
	if reviewer == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var sections model.ReviewSections
	if err := json.NewDecoder(r.Body).Decode(&sections); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	d, err := h.svc.SaveReviewDraft(r.Context(), chi.URLParam(r, "assignmentID"), reviewer, sections)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": d})
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	reviewer := userID(r)
	if reviewer == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	d, err := h.svc.GetReviewDraft(r.Context(), chi.URLParam(r, "assignmentID"), reviewer)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": d})
}

func (h *Handler) markHelpful(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var req struct {
		Helpful *bool `json:"helpful"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	rv, err := h.svc.MarkReviewHelpful(r.Context(), owner, chi.URLParam(r, "reviewID"), req.Helpful)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": rv})
}

func (h *Handler) replyToReview(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	var req struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "invalid body")
		return
	}
	rv, err := h.svc.ReplyToReview(r.Context(), owner, chi.URLParam(r, "reviewID"), req.Reply)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": rv})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	balance, err := h.svc.GetUserCredits(r.Context(), user)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": user, "balance": balance})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	history, err := h.svc.GetCreditHistory(r.Context(), user, limit, offset)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": user, "transactions": history})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "X-User-Id required")
		return
	}
	stats, err := h.svc.GetCreditStats(r.Context(), user)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) adjustCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Amount      int64  `json:"amount"`
		Type        string `json:"transaction_type"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationError, "user_id and amount required")
		return
	}
	if req.Type == "" {
		req.Type = string(model.TxAdminAdjustment)
	}
	t, err := h.svc.AdjustCredits(r.Context(), req.UserID, req.Amount, model.TransactionType(req.Type), req.Description)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": t})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": errCode, "message": message},
	})
}

func handleSvcError(w http.ResponseWriter, err error) {
	var e apiErrors.APIError
	switch {
	case errors.As(err, &e):
		switch e.Code {
		case apiErrors.ValidationError:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.VersionDowngrade:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.InsufficientCredits:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.AlreadySubmitted:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.AssignmentExpired:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.NotFound:
			writeError(w, http.StatusNotFound, e.Code, e.Message)
		default:
			writeError(w, http.StatusInternalServerError, apiErrors.InternalError, e.Message)
		}
	default:
		writeError(w, http.StatusInternalServerError, apiErrors.InternalError, err.Error())
	}
}
