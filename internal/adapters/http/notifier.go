package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/ports"
)

// WebhookNotifier implements ports.Notifier by posting each digest page as
// a JSON payload to a webhook URL.
type WebhookNotifier struct {
	url    string
	client ports.HTTPClient
	log    zerolog.Logger
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string, client ports.HTTPClient, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: client, log: log}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts one page. Non-2xx responses are failures; the pipeline treats
// them as at-most-once delivery losses, never retries.
func (n *WebhookNotifier) Send(ctx context.Context, page string) error {
	body, err := json.Marshal(webhookPayload{Content: page})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
