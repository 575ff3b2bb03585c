// Package scrape defines core types shared across subsystems.
package scrape

import (
	"fmt"
	"net/http"
	"time"
)

// JobStatus represents the lifecycle state of an extraction job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Format identifies a supported export format.
type Format string

// Export formats accepted at submission time.
const (
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatXML       Format = "xml"
	FormatDashboard Format = "dashboard"
)

// ParseFormat validates a client-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatXML, FormatDashboard:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Pipeline stage identifiers recorded on failed jobs.
const (
	StageCompliance = "compliance"
	StageFetch      = "fetch"
	StageParse      = "parse"
	StageExtract    = "extract"
	StageExport     = "export"
)

// JobInput captures everything the client supplied at submission.
type JobInput struct {
	URL                  string `json:"url"`
	Instruction          string `json:"instruction"`
	Format               Format `json:"format"`
	WebhookURL           string `json:"webhook_url,omitempty"`
	TimeoutSeconds       int    `json:"timeout_seconds,omitempty"`
	Render               bool   `json:"render,omitempty"`
	StructuredExtraction bool   `json:"structured_extraction,omitempty"`
	StrictSchema         bool   `json:"strict_schema,omitempty"`
	AntiDetection        bool   `json:"anti_detection,omitempty"`
}

// ComplianceVerdict is the crawl-permission decision for a URL.
type ComplianceVerdict struct {
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason"`
	PolicySource string `json:"policy_source,omitempty"`
}

// JobError records the stage that aborted a failed job and why.
type JobError struct {
	Stage string `json:"stage"`
	Cause string `json:"cause"`
}

// Job represents the record persisted for each extraction request.
type Job struct {
	ID          string             `json:"id"`
	Status      JobStatus          `json:"status"`
	Input       JobInput           `json:"input"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Compliance  *ComplianceVerdict `json:"compliance,omitempty"`
	Result      *JobResult         `json:"result,omitempty"`
	Error       *JobError          `json:"error,omitempty"`
}

// JobResult holds everything produced by a completed pipeline run.
type JobResult struct {
	Document   NormalizedDocument  `json:"document"`
	Extraction ExtractionResult    `json:"extraction"`
	Artifacts  map[Format]Artifact `json:"artifacts"`
	Stats      DocumentStats       `json:"stats"`
}

// DocumentStats summarizes what the structural parse found.
type DocumentStats struct {
	ContentLength int    `json:"content_length"`
	ContentHash   string `json:"content_hash,omitempty"`
	LinksFound    int    `json:"links_found"`
	ImagesFound   int    `json:"images_found"`
	TablesFound   int    `json:"tables_found"`
	FormsFound    int    `json:"forms_found"`
}

// Artifact is a rendered export for a completed job.
type Artifact struct {
	Format      Format `json:"format"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// FetchRequest captures everything needed to retrieve a page.
type FetchRequest struct {
	URL           string
	Timeout       time.Duration
	Render        bool
	AntiDetection bool
	Headers       http.Header
}

// RawPage is the result returned by a Fetcher implementation.
type RawPage struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Link is an anchor extracted from a page, href resolved to absolute form.
type Link struct {
	Text  string `json:"text"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// Image is an image reference, src resolved to absolute form.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// Table is an extracted table; the first row is treated as the header
// when present.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// FormInput describes one input element of a form.
type FormInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required"`
}

// Form describes an extracted form element.
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Inputs []FormInput `json:"inputs"`
}

// ItemList is an ordered or unordered list extracted from a page.
type ItemList struct {
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

// NormalizedDocument is the structured representation of a fetched page.
// Collections are truncated to fixed caps to bound payload size.
type NormalizedDocument struct {
	URL      string              `json:"url"`
	Title    string              `json:"title"`
	Text     string              `json:"text"`
	Meta     map[string]string   `json:"meta"`
	Links    []Link              `json:"links"`
	Images   []Image             `json:"images"`
	Headings map[string][]string `json:"headings"`
	Tables   []Table             `json:"tables"`
	Forms    []Form              `json:"forms"`
	Lists    []ItemList          `json:"lists"`
}

// ResultKind tags the shape of a semantic extraction result.
type ResultKind string

// Known extraction result shapes.
const (
	KindTabular      ResultKind = "tabular"
	KindEntities     ResultKind = "entities"
	KindFreeform     ResultKind = "freeform"
	KindUnstructured ResultKind = "unstructured"
)

// ExtractionResult is the instruction-shaped output of the semantic
// extraction stage. Data is empty and RawText set when the reasoning
// service's response could not be parsed as structured data.
type ExtractionResult struct {
	Kind       ResultKind          `json:"kind"`
	Data       map[string]any      `json:"data"`
	Entities   map[string][]string `json:"entities,omitempty"`
	Confidence float64             `json:"confidence"`
	RawText    string              `json:"raw_text,omitempty"`
	Degraded   bool                `json:"degraded,omitempty"`
}

// ExtractOptions controls semantic extraction behavior per job.
type ExtractOptions struct {
	StructuredExtraction bool
	StrictSchema         bool
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Input     JobInput
	Submitted int64
}

// JobStats is a read-only snapshot of the job table by state.
type JobStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
