package validation

// Event type discriminators for outbound notifications.
const (
	EventNewPendingAction = "new_pending_action"
	EventActionReviewed   = "action_reviewed"
)

// Event is the payload delivered to webhook subscribers. Fields not relevant
// to the event type are omitted from the wire form.
type Event struct {
	Event        string `json:"event"`
	ActionID     string `json:"action_id"`
	ValidationID string `json:"validation_id,omitempty"`
	Status       Status `json:"status,omitempty"`
	Feedback     string `json:"feedback,omitempty"`
}

// NewPendingActionEvent announces a freshly submitted action to reviewers.
func NewPendingActionEvent(actionID, validationID string) Event {
	return Event{
		Event:        EventNewPendingAction,
		ActionID:     actionID,
		ValidationID: validationID,
	}
}

// ActionReviewedEvent announces a review decision to the submitting agent.
func ActionReviewedEvent(actionID string, status Status, feedback string) Event {
	return Event{
		Event:    EventActionReviewed,
		ActionID: actionID,
		Status:   status,
		Feedback: feedback,
	}
}
