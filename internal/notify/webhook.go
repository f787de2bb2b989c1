package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// WebhookSender posts alerts as JSON to an arbitrary HTTP endpoint,
// optionally signed with HMAC-SHA256.
type WebhookSender struct {
	url    string
	signer *crypto.WebhookSigner
	client *http.Client
}

// NewWebhookSender creates a WebhookSender. An empty secret disables signing.
func NewWebhookSender(url, secret string) *WebhookSender {
	w := &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	if secret != "" {
		w.signer = crypto.NewWebhookSigner(secret)
	}
	return w
}

type webhookPayload struct {
	Event       string              `json:"event"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	Opportunity *domain.Opportunity `json:"opportunity,omitempty"`
}

// Send posts a text-only notification.
func (w *WebhookSender) Send(ctx context.Context, title, message string) error {
	return w.post(ctx, webhookPayload{Event: "message", Title: title, Message: message})
}

// SendOpportunity posts the rendered alert together with the opportunity.
func (w *WebhookSender) SendOpportunity(ctx context.Context, opp domain.Opportunity, title, message string) error {
	return w.post(ctx, webhookPayload{Event: "opportunity", Title: title, Message: message, Opportunity: &opp})
}

func (w *WebhookSender) post(ctx context.Context, p webhookPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.signer != nil {
		for k, v := range w.signer.Headers(body) {
			req.Header.Set(k, v)
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}
