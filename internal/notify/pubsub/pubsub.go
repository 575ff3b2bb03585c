// Package pubsub publishes terminal job events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// event is the wire shape published per terminal job. The full result is
// deliberately omitted; consumers poll the API for payloads.
type event struct {
	JobID       string           `json:"job_id"`
	Status      scrape.JobStatus `json:"status"`
	URL         string           `json:"url"`
	Format      scrape.Format    `json:"format"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Error       *scrape.JobError `json:"error,omitempty"`
}

// Notifier publishes job lifecycle events to a Pub/Sub topic.
type Notifier struct {
	topic  *pubsub.Topic
	client *pubsub.Client
}

// New creates a Notifier for the given topic.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// NewFromProject opens a client and topic handle.
func NewFromProject(ctx context.Context, projectID, topicName string) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	n := New(client.Topic(topicName))
	n.client = client
	return n, nil
}

// Close flushes pending publishes and releases the client, if owned.
func (n *Notifier) Close() error {
	if n.topic != nil {
		n.topic.Stop()
	}
	if n.client != nil {
		return n.client.Close()
	}
	return nil
}

// Notify publishes the terminal event and waits for server confirmation.
func (n *Notifier) Notify(ctx context.Context, job scrape.Job) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}

	data, err := json.Marshal(event{
		JobID:       job.ID,
		Status:      job.Status,
		URL:         job.Input.URL,
		Format:      job.Input.Format,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id": job.ID,
			"status": string(job.Status),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
