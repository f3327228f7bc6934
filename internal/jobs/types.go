// Package jobs defines asynchronous batch-analysis jobs and the queue
// abstractions they flow through.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/orchestrator"
	"github.com/dvloznov/expense-insights/internal/receipts"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAnalyzeBatch runs the full analysis flow over a batch.
	JobTypeAnalyzeBatch JobType = "analyze_batch"
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

// AnalyzeBatchJob runs the extract/tax/compliance/summary flow over one
// batch. Exactly one of Records or Transactions is set: raw receipts go
// through extraction first, normalized rows skip it.
type AnalyzeBatchJob struct {
	JobID string `json:"job_id"`

	Records      []receipts.Record    `json:"records,omitempty"`
	Transactions []domain.Transaction `json:"transactions,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is set once the job completes successfully.
	Result *orchestrator.Result `json:"result,omitempty"`

	// Error contains failure details for failed jobs.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *AnalyzeBatchJob) GetID() string        { return j.JobID }
func (j *AnalyzeBatchJob) GetType() JobType     { return JobTypeAnalyzeBatch }
func (j *AnalyzeBatchJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction allows swapping the in-memory queue for Cloud Tasks or
// Pub/Sub without touching callers.
type Publisher interface {
	PublishAnalyzeBatch(ctx context.Context, job *AnalyzeBatchJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job state so callers can poll status.
type JobStore interface {
	SaveJob(ctx context.Context, job *AnalyzeBatchJob) error
	GetJob(ctx context.Context, jobID string) (*AnalyzeBatchJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalyzeBatchJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}

// Handler adapts the orchestrator into a JobHandler. Archive hooks run
// after a job succeeds; they must not fail the job.
func Handler(o *orchestrator.Orchestrator, archive ...func(ctx context.Context, job *AnalyzeBatchJob)) JobHandler {
	return func(ctx context.Context, job Job) error {
		batch, ok := job.(*AnalyzeBatchJob)
		if !ok {
			return nil
		}
		var (
			result orchestrator.Result
			err    error
		)
		if len(batch.Records) > 0 {
			result, err = o.Analyze(ctx, batch.Records)
		} else {
			result, err = o.AnalyzeTransactions(ctx, batch.Transactions)
		}
		if err != nil {
			return err
		}
		batch.Result = &result
		for _, fn := range archive {
			fn(ctx, batch)
		}
		return nil
	}
}
