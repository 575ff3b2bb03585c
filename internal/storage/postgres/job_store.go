// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// defaultListLimit applies when a caller asks for zero rows.
const defaultListLimit = 20

// JobStoreConfig controls the Postgres connection pool used for job rows.
type JobStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore persists job records in Postgres. The full record is stored
// as jsonb; status and created_at are lifted into columns for counting
// and ordering.
type JobStore struct {
	pool pgxPool
}

// NewJobStore creates a Postgres-backed JobStore using the provided config.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool pgxPool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// PutJob inserts or replaces a job record.
func (s *JobStore) PutJob(ctx context.Context, job scrape.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	query := `
INSERT INTO jobs (id, status, created_at, record)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET status = $2, record = $4`

	if _, err := s.pool.Exec(ctx, query, job.ID, string(job.Status), job.CreatedAt, record); err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scrape.Job, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM jobs WHERE id = $1`, jobID).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return scrape.Job{}, scrape.ErrNotFound
	}
	if err != nil {
		return scrape.Job{}, fmt.Errorf("select job: %w", err)
	}

	var job scrape.Job
	if err := json.Unmarshal(record, &job); err != nil {
		return scrape.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs most-recent-first.
func (s *JobStore) ListJobs(ctx context.Context, limit, offset int) ([]scrape.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT record FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()

	var jobs []scrape.Job
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var job scrape.Job
		if err := json.Unmarshal(record, &job); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns job counts grouped by status.
func (s *JobStore) CountJobs(ctx context.Context) (scrape.JobStats, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return scrape.JobStats{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var stats scrape.JobStats
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return scrape.JobStats{}, fmt.Errorf("scan count: %w", err)
		}
		switch scrape.JobStatus(status) {
		case scrape.JobStatusQueued:
			stats.Queued = count
		case scrape.JobStatusRunning:
			stats.Running = count
		case scrape.JobStatusCompleted:
			stats.Completed = count
		case scrape.JobStatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return scrape.JobStats{}, fmt.Errorf("iterate counts: %w", err)
	}
	return stats, nil
}
