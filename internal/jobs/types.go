// Package jobs defines the background job model: refresh jobs recompute a
// user's analysis snapshot off the request path.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRefreshAnalysis recomputes a user's dashboard snapshot.
	JobTypeRefreshAnalysis JobType = "refresh_analysis"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RefreshAnalysisJob asks the worker to recompute one user's snapshot.
type RefreshAnalysisJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID is the user whose analysis should be recomputed.
	UserID string `json:"user_id"`

	// Reason records what triggered the refresh ("api", "mutation", ...).
	Reason string `json:"reason,omitempty"`

	// RunID is filled in once the analysis run has been recorded.
	RunID string `json:"run_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *RefreshAnalysisJob) GetID() string {
	return j.JobID
}

func (j *RefreshAnalysisJob) GetType() JobType {
	return JobTypeRefreshAnalysis
}

func (j *RefreshAnalysisJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows different queue implementations (in-memory,
// Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishRefreshAnalysis publishes an analysis refresh job.
	PublishRefreshAnalysis(ctx context.Context, job *RefreshAnalysisJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error means the job failed and
// should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can report refresh progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *RefreshAnalysisJob) error
	GetJob(ctx context.Context, jobID string) (*RefreshAnalysisJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*RefreshAnalysisJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by user.
	UserID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
