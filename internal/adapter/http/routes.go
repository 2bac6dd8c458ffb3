package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Paths are
// deliberately unversioned so agent SDKs speak the same surface regardless
// of deployment.
func MountRoutes(r chi.Router, h *Handlers) {
	// Validation lifecycle
	r.Post("/validate", h.SubmitValidation)
	r.Get("/validate/{action_id}", h.GetValidationStatus)
	r.Post("/validate/{action_id}/review", h.ReviewValidation)
	r.Get("/validations", h.ListValidations)

	// Webhook registration
	r.Post("/agents/webhook", h.RegisterAgentWebhook)
	r.Post("/reviewers/webhook", h.RegisterReviewerWebhook)

	// Live event feed for dashboards
	r.Get("/ws", h.LiveFeed)
}
