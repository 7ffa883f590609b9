package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/household-ledger/internal/store"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypePersistSnapshot writes a committed snapshot to the configured
	// persistence backend.
	JobTypePersistSnapshot JobType = "persist_snapshot"
	// JobTypeSyncWarehouse mirrors a snapshot into the BigQuery warehouse.
	JobTypeSyncWarehouse JobType = "sync_warehouse"
	// JobTypeSyncNotion mirrors a snapshot's transactions into Notion.
	JobTypeSyncNotion JobType = "sync_notion"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusSkipped indicates a newer revision was already handled.
	JobStatusSkipped JobStatus = "skipped"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// SnapshotJob carries one committed ledger snapshot to a background sink.
type SnapshotJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	Type JobType `json:"type"`

	// Revision is the snapshot revision the job carries.
	Revision int64 `json:"revision"`

	// Mutation names the mutation that produced the revision.
	Mutation string `json:"mutation,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Snapshot is the payload. Job stores do not keep it.
	Snapshot store.Snapshot `json:"-"`
}

// Finished reports whether the job has reached a terminal status.
func (j *SnapshotJob) Finished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusSkipped, JobStatusFailed:
		return true
	}
	return false
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues a snapshot job.
	Publish(ctx context.Context, job *SnapshotJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It returns an error if the job failed and
// should be retried, or ErrSkipped when the job was superseded.
type JobHandler func(ctx context.Context, job *SnapshotJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SnapshotJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*SnapshotJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SnapshotJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}
