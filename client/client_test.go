package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestSubmitActionGeneratesActionID(t *testing.T) {
	var gotPath string
	var gotReq validation.SubmitRequest

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"validation_id": "val_abc12345",
			"status":        "pending",
		})
	})

	result, err := c.SubmitAction(context.Background(), validation.SubmitRequest{
		AgentID:    "agent-1",
		UserID:     "user-1",
		ActionType: "send_email",
		Content:    "draft",
	})
	if err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}

	if gotPath != "/validate" {
		t.Fatalf("expected /validate, got %s", gotPath)
	}
	if !strings.HasPrefix(gotReq.ActionID, "send_email_") {
		t.Fatalf("expected generated action_id with type prefix, got %q", gotReq.ActionID)
	}
	if result.ActionID != gotReq.ActionID {
		t.Fatalf("result should echo the generated action_id")
	}
	if result.Status != validation.StatusPending {
		t.Fatalf("expected pending, got %q", result.Status)
	}
}

func TestSubmitActionKeepsExplicitActionID(t *testing.T) {
	var gotReq validation.SubmitRequest

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]string{"validation_id": "val_x", "status": "pending"})
	})

	_, err := c.SubmitAction(context.Background(), validation.SubmitRequest{
		AgentID:    "agent-1",
		UserID:     "user-1",
		ActionID:   "my-action",
		ActionType: "send_email",
		Content:    "draft",
	})
	if err != nil {
		t.Fatalf("SubmitAction: %v", err)
	}
	if gotReq.ActionID != "my-action" {
		t.Fatalf("explicit action_id was replaced: %q", gotReq.ActionID)
	}
}

func TestStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate/act-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "approved", "feedback": "ok"})
	})

	result, err := c.Status(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if result.Status != validation.StatusApproved || result.Feedback != "ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStatusSurfacesAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Validation not found"})
	})

	_, err := c.Status(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "Validation not found") {
		t.Fatalf("error should carry the API message, got %v", err)
	}
}

func TestReview(t *testing.T) {
	var gotReview validation.Review

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate/act-1/review" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReview)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Action reviewed successfully"})
	})

	err := c.Review(context.Background(), "act-1", validation.Review{
		Status:   validation.StatusRejected,
		Feedback: "not allowed",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if gotReview.Status != validation.StatusRejected || gotReview.Feedback != "not allowed" {
		t.Fatalf("unexpected review payload: %+v", gotReview)
	}
}

func TestListPassesStatusFilter(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validations" || r.URL.Query().Get("status") != "pending" {
			t.Fatalf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]*validation.Record{})
	})

	if _, err := c.List(context.Background(), validation.StatusPending); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestRegisterWebhooks(t *testing.T) {
	var paths []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})

	if err := c.RegisterAgentWebhook(context.Background(), "agent-1", "http://a.example.com"); err != nil {
		t.Fatalf("RegisterAgentWebhook: %v", err)
	}
	if err := c.RegisterReviewerWebhook(context.Background(), "rev-1", "http://r.example.com"); err != nil {
		t.Fatalf("RegisterReviewerWebhook: %v", err)
	}

	if len(paths) != 2 || paths[0] != "/agents/webhook" || paths[1] != "/reviewers/webhook" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}
