// Package webhook delivers terminal job records to client-supplied URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/metrics"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Notifier POSTs the full job record as JSON to the job's webhook URL.
// Jobs without a webhook URL are skipped silently.
type Notifier struct {
	client *http.Client
	logger *zap.Logger
}

// New creates a Notifier with the given delivery timeout.
func New(timeout time.Duration, logger *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify delivers the job record. A non-2xx response is an error so the
// caller can log it, but delivery is always best-effort.
func (n *Notifier) Notify(ctx context.Context, job scrape.Job) error {
	if job.Input.WebhookURL == "" {
		return nil
	}

	body, err := json.Marshal(job)
	if err != nil {
		metrics.ObserveWebhookDelivery("error")
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Input.WebhookURL, bytes.NewReader(body))
	if err != nil {
		metrics.ObserveWebhookDelivery("error")
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Skyscraper-Job-ID", job.ID)
	req.Header.Set("X-Skyscraper-Status", string(job.Status))

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.ObserveWebhookDelivery("error")
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveWebhookDelivery("rejected")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	metrics.ObserveWebhookDelivery("delivered")
	n.logger.Debug("webhook delivered",
		zap.String("job_id", job.ID),
		zap.String("url", job.Input.WebhookURL))
	return nil
}
