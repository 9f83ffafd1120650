package store

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/productsense/research/models"
)

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string                  `json:"type"` // "research.completed"
	Timestamp int64                   `json:"timestamp"`
	Record    *models.CanonicalRecord `json:"record"`
}

// WebhookSink POSTs finished records to a configured endpoint. When a secret
// is set, the body is signed with HMAC-SHA256 and the hex digest sent as
// X-Research-Signature: sha256=<hex>.
type WebhookSink struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewWebhookSink creates a WebhookSink. Pass nil to use a default client
// with a 10s timeout.
func NewWebhookSink(url, secret string, httpClient *http.Client) *WebhookSink {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, secret: secret, httpClient: httpClient}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Store delivers the record with up to 3 retries (1s, 5s, 30s backoff).
// The retry loop respects ctx cancellation.
func (s *WebhookSink) Store(ctx context.Context, record *models.CanonicalRecord) error {
	event := &Event{
		Type:      "research.completed",
		Timestamp: time.Now().Unix(),
		Record:    record,
	}

	delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
	var lastErr error
	for attempt, delay := range delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if lastErr = s.deliver(ctx, event); lastErr == nil {
			if attempt > 0 {
				slog.Info("webhook delivered after retry",
					"url", s.url, "attempt", attempt+1)
			}
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", s.url, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("webhook sink: all retries exhausted: %w", lastErr)
}

func (s *WebhookSink) deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Research-Webhook/1.0")

	if s.secret != "" {
		mac := hmac.New(sha256.New, []byte(s.secret))
		mac.Write(body)
		req.Header.Set("X-Research-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
