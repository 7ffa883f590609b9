package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/jobs"
)

// ErrClosed is returned when publishing to or starting a stopped queue.
var ErrClosed = errors.New("queue is closed")

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// With a single worker, jobs are handled in publish order.
type Queue struct {
	jobChan   chan *jobs.SnapshotJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	backoff   time.Duration
	retries   int
	log       zerolog.Logger
	closed    bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers (default 1).
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithBackoff sets the base retry delay; the nth retry waits n times this.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

// WithMaxRetries sets the retry limit for jobs published without one.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.retries = n
		}
	}
}

// WithLogger sets the queue's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before Publish blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:   make(chan *jobs.SnapshotJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   1,
		backoff:   time.Second,
		retries:   3,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish implements the Publisher interface.
func (q *Queue) Publish(ctx context.Context, job *jobs.SnapshotJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.retries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrClosed
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			q.drain(ctx, handler)
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// drain handles jobs still buffered when the queue is stopped, so the last
// committed snapshot is not lost on shutdown.
func (q *Queue) drain(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		default:
			return
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.SnapshotJob, handler jobs.JobHandler) {
	log := q.log.With().Str("job_id", job.JobID).Str("job_type", string(job.Type)).Int64("revision", job.Revision).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Debug().Msg("Job completed")
	case errors.Is(err, jobs.ErrSkipped):
		job.Status = jobs.JobStatusSkipped
		job.Error = ""
		log.Debug().Msg("Job skipped")
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).Int("retry", job.RetryCount+1).Msg("Job failed, retrying")

	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Msg("Job failed")
	}

	q.save(ctx, job)

	if job.Status == jobs.JobStatusRetrying {
		retry := *job
		retry.RetryCount++
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		time.AfterFunc(time.Duration(retry.RetryCount)*q.backoff, func() {
			if err := q.Publish(context.Background(), &retry); err != nil {
				log.Error().Err(err).Msg("Failed to requeue job")
			}
		})
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.SnapshotJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
