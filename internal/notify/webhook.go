package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"call-assistant/pkg/utils"
)

const (
	HeaderSignature = "X-CallAssistant-Signature"
	HeaderEvent     = "X-CallAssistant-Event"
)

// WebhookSender posts event payloads to a business's webhook_url.
type WebhookSender struct {
	client     *http.Client
	maxElapsed time.Duration
}

func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		client:     &http.Client{Timeout: timeout},
		maxElapsed: 30 * time.Second,
	}
}

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Send delivers body, retrying 5xx and transport errors with backoff. A 4xx
// answer is final. The signature header is omitted without a secret.
func (s *WebhookSender) Send(ctx context.Context, url, secret, event string, body []byte) error {
	return utils.Retry(ctx, s.maxElapsed, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return utils.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderEvent, event)
		if secret != "" {
			req.Header.Set(HeaderSignature, Sign(secret, body))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		default:
			return utils.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
	})
}
