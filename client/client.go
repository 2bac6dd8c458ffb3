// Package client is the Go SDK for the validation hub. Agents use it to
// submit actions for human review and poll for the outcome; reviewer
// tooling uses it to list and decide pending actions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// Client talks to a validation hub instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the hub at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitResult is the hub's response to a submission.
type SubmitResult struct {
	ValidationID string            `json:"validation_id"`
	Status       validation.Status `json:"status"`
	ActionID     string            `json:"-"`
}

// StatusResult is the review state of a submitted action.
type StatusResult struct {
	Status   validation.Status `json:"status"`
	Feedback string            `json:"feedback,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// SubmitAction submits an action for human validation. When req.ActionID is
// empty a unique one is generated from the action type, and the result
// carries it back so the caller can poll.
func (c *Client) SubmitAction(ctx context.Context, req validation.SubmitRequest) (*SubmitResult, error) {
	if req.ActionID == "" {
		req.ActionID = newActionID(req.ActionType)
	}

	var result SubmitResult
	if err := c.post(ctx, "/validate", req, &result); err != nil {
		return nil, err
	}
	result.ActionID = req.ActionID
	return &result, nil
}

// Status fetches the current review state of an action.
func (c *Client) Status(ctx context.Context, actionID string) (*StatusResult, error) {
	var result StatusResult
	if err := c.get(ctx, "/validate/"+actionID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Review records a decision on a pending action.
func (c *Client) Review(ctx context.Context, actionID string, review validation.Review) error {
	return c.post(ctx, "/validate/"+actionID+"/review", review, nil)
}

// List returns all validation records, restricted to one status when
// non-empty, keyed by action_id.
func (c *Client) List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error) {
	path := "/validations"
	if status != "" {
		path += "?status=" + string(status)
	}
	var result map[string]*validation.Record
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RegisterAgentWebhook registers the callback URL the hub should notify when
// this agent's actions are reviewed.
func (c *Client) RegisterAgentWebhook(ctx context.Context, agentID, callbackURL string) error {
	body := map[string]string{"agent_id": agentID, "callback_url": callbackURL}
	return c.post(ctx, "/agents/webhook", body, nil)
}

// RegisterReviewerWebhook registers the callback URL the hub should notify
// of every new pending action.
func (c *Client) RegisterReviewerWebhook(ctx context.Context, reviewerID, callbackURL string) error {
	body := map[string]string{"reviewer_id": reviewerID, "callback_url": callbackURL}
	return c.post(ctx, "/reviewers/webhook", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// newActionID derives a readable unique action handle, e.g. "send_email_9f8e7d6c".
func newActionID(actionType string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if actionType == "" {
		return "action_" + suffix
	}
	return actionType + "_" + suffix
}
