package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// WebhookSink posts events as chat webhook embeds.
type WebhookSink struct {
	url       string
	avatarURL string
	client    HTTPDoer
}

// NewWebhookSink builds sink. A nil client gets a default one with timeout.
func NewWebhookSink(url, avatarURL string, client HTTPDoer) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{
		url:       strings.TrimSpace(url),
		avatarURL: strings.TrimSpace(avatarURL),
		client:    client,
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Send posts the rendered embed. Any non-2xx response is an error.
func (s *WebhookSink) Send(ctx context.Context, event Event) error {
	msg, err := BuildMessage(event, s.avatarURL)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
