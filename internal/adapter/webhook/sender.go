// Package webhook implements the delivery port as JSON-over-HTTP POSTs to
// subscriber callback endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// SignatureHeader carries the optional HMAC-SHA256 hex digest of the body.
const SignatureHeader = "X-Hub-Signature-256"

// Sender delivers events as HTTP POSTs. Each attempt is bounded by the
// configured timeout so an unreachable endpoint cannot hold resources.
type Sender struct {
	client        *http.Client
	signingSecret string
}

// NewSender creates a Sender. When signingSecret is non-empty, every request
// carries an HMAC-SHA256 signature of the body so subscribers can verify the
// origin.
func NewSender(timeout time.Duration, signingSecret string) *Sender {
	return &Sender{
		client:        &http.Client{Timeout: timeout},
		signingSecret: signingSecret,
	}
}

// Send POSTs the event to the endpoint. A non-2xx response is an error.
func (s *Sender) Send(ctx context.Context, endpoint string, event validation.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.signingSecret != "" {
		req.Header.Set(SignatureHeader, "sha256="+sign(s.signingSecret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: endpoint returned %d", endpoint, resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
