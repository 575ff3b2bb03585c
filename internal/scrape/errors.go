package scrape

import "errors"

// Sentinel errors shared across store and manager implementations.
var (
	// ErrNotFound indicates an unknown job identifier.
	ErrNotFound = errors.New("job not found")

	// ErrTerminal indicates an attempt to mutate a completed or failed job.
	ErrTerminal = errors.New("job already in terminal state")

	// ErrComplianceDenied indicates the site's policy forbids crawling.
	ErrComplianceDenied = errors.New("crawling disallowed by site policy")
)

// StageError wraps a pipeline failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

// NewStageError wraps err with its originating stage name.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
