// Package jobs owns the job lifecycle: submission, lookup and the state
// transitions performed by pipeline workers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/metrics"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// ErrInvalidInput marks submission failures caused by the client's input
// rather than by the system.
var ErrInvalidInput = errors.New("invalid job input")

// Manager is the single writer of job state. Stores are dumb put/get
// layers; every transition is validated here so the
// queued→running→{completed|failed} order holds regardless of backend.
type Manager struct {
	store  scrape.JobStore
	queue  scrape.Queue
	clock  scrape.Clock
	ids    scrape.IDGenerator
	logger *zap.Logger
}

// New creates a Manager.
func New(store scrape.JobStore, queue scrape.Queue, clock scrape.Clock, ids scrape.IDGenerator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, queue: queue, clock: clock, ids: ids, logger: logger}
}

// Submit validates the input, records a queued job and enqueues it for
// the worker pool. The returned record is the client's initial view.
func (m *Manager) Submit(ctx context.Context, input scrape.JobInput) (scrape.Job, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return scrape.Job{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id, err := m.ids.NewID()
	if err != nil {
		return scrape.Job{}, fmt.Errorf("generate job id: %w", err)
	}

	job := scrape.Job{
		ID:        id,
		Status:    scrape.JobStatusQueued,
		Input:     normalized,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.PutJob(ctx, job); err != nil {
		return scrape.Job{}, fmt.Errorf("store job: %w", err)
	}

	item := scrape.QueueItem{
		JobID:     job.ID,
		Input:     job.Input,
		Submitted: job.CreatedAt.UnixNano(),
	}
	if err := m.queue.Enqueue(ctx, item); err != nil {
		if _, failErr := m.Fail(ctx, job.ID, scrape.NewStageError(scrape.StageCompliance,
			fmt.Errorf("enqueue: %w", err))); failErr != nil {
			m.logger.Error("failed to record enqueue failure",
				zap.String("job_id", job.ID), zap.Error(failErr))
		}
		return scrape.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	m.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("url", job.Input.URL),
		zap.String("format", string(job.Input.Format)))
	return job, nil
}

// Get returns a job by ID.
func (m *Manager) Get(ctx context.Context, jobID string) (scrape.Job, error) {
	return m.store.GetJob(ctx, jobID)
}

// List returns jobs most-recent-first.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]scrape.Job, error) {
	return m.store.ListJobs(ctx, limit, offset)
}

// Stats returns job counts by state.
func (m *Manager) Stats(ctx context.Context) (scrape.JobStats, error) {
	return m.store.CountJobs(ctx)
}

// MarkRunning moves a queued job to running.
func (m *Manager) MarkRunning(ctx context.Context, jobID string) (scrape.Job, error) {
	return m.mutate(ctx, jobID, func(job *scrape.Job) error {
		if job.Status != scrape.JobStatusQueued {
			return fmt.Errorf("job %s is %s, not queued", job.ID, job.Status)
		}
		job.Status = scrape.JobStatusRunning
		return nil
	})
}

// AttachCompliance records the compliance verdict on a running job.
func (m *Manager) AttachCompliance(ctx context.Context, jobID string, verdict scrape.ComplianceVerdict) (scrape.Job, error) {
	return m.mutate(ctx, jobID, func(job *scrape.Job) error {
		job.Compliance = &verdict
		return nil
	})
}

// Complete moves a running job to completed with its result.
func (m *Manager) Complete(ctx context.Context, jobID string, result scrape.JobResult) (scrape.Job, error) {
	job, err := m.mutate(ctx, jobID, func(job *scrape.Job) error {
		job.Status = scrape.JobStatusCompleted
		job.Result = &result
		job.Error = nil
		now := m.clock.Now()
		job.CompletedAt = &now
		return nil
	})
	if err != nil {
		return scrape.Job{}, err
	}
	metrics.ObserveJob(string(scrape.JobStatusCompleted))
	m.logger.Info("job completed", zap.String("job_id", jobID))
	return job, nil
}

// Fail moves a non-terminal job to failed, recording the stage and cause.
func (m *Manager) Fail(ctx context.Context, jobID string, stageErr *scrape.StageError) (scrape.Job, error) {
	job, err := m.mutate(ctx, jobID, func(job *scrape.Job) error {
		job.Status = scrape.JobStatusFailed
		job.Error = &scrape.JobError{
			Stage: stageErr.Stage,
			Cause: stageErr.Err.Error(),
		}
		job.Result = nil
		now := m.clock.Now()
		job.CompletedAt = &now
		return nil
	})
	if err != nil {
		return scrape.Job{}, err
	}
	metrics.ObserveJob(string(scrape.JobStatusFailed))
	m.logger.Warn("job failed",
		zap.String("job_id", jobID),
		zap.String("stage", stageErr.Stage),
		zap.Error(stageErr.Err))
	return job, nil
}

// mutate loads, transforms and rewrites a job record. Terminal records
// reject every mutation.
func (m *Manager) mutate(ctx context.Context, jobID string, fn func(*scrape.Job) error) (scrape.Job, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return scrape.Job{}, err
	}
	if job.Status.Terminal() {
		return scrape.Job{}, fmt.Errorf("job %s: %w", jobID, scrape.ErrTerminal)
	}
	if err := fn(&job); err != nil {
		return scrape.Job{}, err
	}
	if err := m.store.PutJob(ctx, job); err != nil {
		return scrape.Job{}, fmt.Errorf("store job: %w", err)
	}
	return job, nil
}

func normalizeInput(input scrape.JobInput) (scrape.JobInput, error) {
	input.URL = strings.TrimSpace(input.URL)
	input.Instruction = strings.TrimSpace(input.Instruction)

	if err := validateURL(input.URL); err != nil {
		return scrape.JobInput{}, fmt.Errorf("url: %w", err)
	}
	if input.Instruction == "" {
		return scrape.JobInput{}, fmt.Errorf("instruction is required")
	}

	format, err := scrape.ParseFormat(string(input.Format))
	if err != nil {
		return scrape.JobInput{}, err
	}
	input.Format = format

	if input.WebhookURL != "" {
		if err := validateURL(input.WebhookURL); err != nil {
			return scrape.JobInput{}, fmt.Errorf("webhook_url: %w", err)
		}
	}
	if input.TimeoutSeconds < 0 {
		return scrape.JobInput{}, fmt.Errorf("timeout_seconds must be >= 0")
	}
	return input, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("value is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
