package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a delivery attempt. Webhook delivery is best-effort:
// failures are logged and swallowed, never retried, and never allowed to
// block or fail game-state progression.
const DefaultTimeout = 3 * time.Second

// Notifier POSTs JSON event payloads to operator callback URLs.
type Notifier struct {
	client *http.Client
	logger *zap.Logger
}

// NewNotifier creates a Notifier with the given delivery timeout.
func NewNotifier(timeout time.Duration, logger *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify delivers one payload. Any failure is logged at warn level and
// dropped; callers never see an error.
func (n *Notifier) Notify(ctx context.Context, url string, payload interface{}) {
	if url == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.String("url", url), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
	}
}
