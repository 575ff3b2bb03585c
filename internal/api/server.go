// Package api exposes the HTTP interface for the scraping service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/config"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/jobs"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/metrics"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Server wires HTTP handlers to the job manager and compliance checker.
type Server struct {
	router     chi.Router
	manager    *jobs.Manager
	compliance scrape.ComplianceChecker
	clock      scrape.Clock
	cfg        config.Config
	logger     *zap.Logger
	started    time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	manager *jobs.Manager,
	compliance scrape.ComplianceChecker,
	clock scrape.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager:    manager,
		compliance: compliance,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		started:    clock.Now(),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/scrape", s.submitJob)
		r.Get("/jobs", s.listJobs)
		r.Get("/jobs/{job_id}", s.getJob)
		r.Get("/compliance", s.checkCompliance)
		r.Get("/status", s.status)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store backs every endpoint; if it answers, we are ready.
	if _, err := s.manager.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitResponse struct {
	JobID   string           `json:"job_id"`
	Status  scrape.JobStatus `json:"status"`
	Message string           `json:"message"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var input scrape.JobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	job, err := s.manager.Submit(r.Context(), input)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("job submission failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not accept job")
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "scraping job accepted",
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.manager.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, scrape.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type listResponse struct {
	Jobs   []scrape.Job `json:"jobs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be >= 0")
		return
	}

	list, err := s.manager.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job listing failed")
		return
	}
	if list == nil {
		list = []scrape.Job{}
	}
	writeJSON(w, http.StatusOK, listResponse{Jobs: list, Limit: limit, Offset: offset})
}

func (s *Server) checkCompliance(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	verdict := s.compliance.Check(r.Context(), target)
	writeJSON(w, http.StatusOK, verdict)
}

type statusResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Jobs          scrape.JobStats `json:"jobs"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        "ok",
		UptimeSeconds: int64(s.clock.Now().Sub(s.started).Seconds()),
		Jobs:          stats,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
