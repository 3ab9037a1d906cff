package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type WebhookSender struct {
	URL  string
	HTTP *http.Client
}

type webhookPayload struct {
	Service string `json:"service"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

func (s WebhookSender) Send(ctx context.Context, event, message string) error {
	if s.URL == "" {
		return errors.New("webhook url missing")
	}
	b, err := json.Marshal(webhookPayload{Service: "paydrop", Event: event, Message: message})
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode}
	}
	return nil
}

type httpError struct {
	StatusCode int
}

func (e *httpError) Error() string {
	return "webhook http status " + http.StatusText(e.StatusCode)
}
