package http

import (
	"net/http"

	"github.com/Strob0t/ValidationHub/internal/adapter/ws"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
	"github.com/Strob0t/ValidationHub/internal/service"
)

// Handlers bundles the HTTP handlers with their backing services.
type Handlers struct {
	Lifecycle   *service.LifecycleService
	Subscribers *service.SubscriberService
	Feed        *ws.Feed
}

// NewHandlers creates the handler set.
func NewHandlers(lc *service.LifecycleService, sub *service.SubscriberService, feed *ws.Feed) *Handlers {
	return &Handlers{Lifecycle: lc, Subscribers: sub, Feed: feed}
}

type submitResponse struct {
	ValidationID string            `json:"validation_id"`
	Status       validation.Status `json:"status"`
}

type statusResponse struct {
	Status   validation.Status `json:"status"`
	Feedback string            `json:"feedback,omitempty"`
}

type webhookRegistration struct {
	AgentID     string `json:"agent_id,omitempty"`
	ReviewerID  string `json:"reviewer_id,omitempty"`
	CallbackURL string `json:"callback_url"`
}

// SubmitValidation handles POST /validate.
func (h *Handlers) SubmitValidation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[validation.SubmitRequest](w, r)
	if !ok {
		return
	}

	rec, err := h.Lifecycle.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "Validation not found")
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		ValidationID: rec.ValidationID,
		Status:       rec.Status,
	})
}

// GetValidationStatus handles GET /validate/{action_id}.
func (h *Handlers) GetValidationStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Lifecycle.Status(r.Context(), urlParam(r, "action_id"))
	if err != nil {
		writeDomainError(w, err, "Validation not found")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:   rec.Status,
		Feedback: rec.Feedback,
	})
}

// ReviewValidation handles POST /validate/{action_id}/review.
func (h *Handlers) ReviewValidation(w http.ResponseWriter, r *http.Request) {
	review, ok := readJSON[validation.Review](w, r)
	if !ok {
		return
	}

	if _, err := h.Lifecycle.Review(r.Context(), urlParam(r, "action_id"), review); err != nil {
		writeDomainError(w, err, "Validation not found")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Action reviewed successfully"})
}

// ListValidations handles GET /validations. An optional ?status= query
// restricts the result to one review state.
func (h *Handlers) ListValidations(w http.ResponseWriter, r *http.Request) {
	status := validation.Status(r.URL.Query().Get("status"))
	switch status {
	case "", validation.StatusPending, validation.StatusApproved, validation.StatusRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	records, err := h.Lifecycle.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, err, "Validation not found")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// RegisterAgentWebhook handles POST /agents/webhook.
func (h *Handlers) RegisterAgentWebhook(w http.ResponseWriter, r *http.Request) {
	reg, ok := readJSON[webhookRegistration](w, r)
	if !ok {
		return
	}

	if err := h.Subscribers.RegisterAgent(r.Context(), reg.AgentID, reg.CallbackURL); err != nil {
		writeDomainError(w, err, "Agent not found")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Webhook registered successfully"})
}

// RegisterReviewerWebhook handles POST /reviewers/webhook.
func (h *Handlers) RegisterReviewerWebhook(w http.ResponseWriter, r *http.Request) {
	reg, ok := readJSON[webhookRegistration](w, r)
	if !ok {
		return
	}

	if err := h.Subscribers.RegisterReviewer(r.Context(), reg.ReviewerID, reg.CallbackURL); err != nil {
		writeDomainError(w, err, "Reviewer not found")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Reviewer webhook registered successfully"})
}

// LiveFeed handles GET /ws, upgrading to a WebSocket event feed.
func (h *Handlers) LiveFeed(w http.ResponseWriter, r *http.Request) {
	h.Feed.HandleWS(w, r)
}
