package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

// ErrSkipped is returned by handlers for jobs whose revision was superseded.
var ErrSkipped = errors.New("superseded by a newer revision")

// ErrNoHandler is returned by a Router for a job type it does not know.
var ErrNoHandler = errors.New("no handler for job type")

// SnapshotPublisher is a ledger observer that publishes one job per
// configured type for every committed snapshot. Publishing failures are
// logged and otherwise ignored; the next commit carries the full state.
type SnapshotPublisher struct {
	publisher Publisher
	types     []JobType
	timeout   time.Duration
	log       zerolog.Logger
}

// NewSnapshotPublisher creates an observer publishing jobs of the given
// types.
func NewSnapshotPublisher(p Publisher, log zerolog.Logger, types ...JobType) *SnapshotPublisher {
	return &SnapshotPublisher{publisher: p, types: types, timeout: 2 * time.Second, log: log}
}

// Committed implements ledger.Observer.
func (o *SnapshotPublisher) Committed(ctx context.Context, s store.Snapshot, m ledger.Mutation) {
	// Enqueueing must not outlive a full queue: observers run under the
	// dispatcher lock.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	for _, t := range o.types {
		job := &SnapshotJob{Type: t, Revision: s.Revision, Mutation: m.Kind(), Snapshot: s}
		if err := o.publisher.Publish(pctx, job); err != nil {
			o.log.Warn().Err(err).Str("job_type", string(t)).Int64("revision", s.Revision).Msg("Failed to publish snapshot job")
		}
	}
}

var _ ledger.Observer = (*SnapshotPublisher)(nil)

// Router dispatches jobs to per-type handlers and drops jobs whose revision
// is not newer than the last one a handler completed for that type.
type Router struct {
	mu       sync.Mutex
	handlers map[JobType]func(ctx context.Context, s store.Snapshot) error
	done     map[JobType]int64
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[JobType]func(ctx context.Context, s store.Snapshot) error),
		done:     make(map[JobType]int64),
	}
}

// Handle registers fn for jobs of type t.
func (r *Router) Handle(t JobType, fn func(ctx context.Context, s store.Snapshot) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = fn
}

// Types lists the registered job types.
func (r *Router) Types() []JobType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]JobType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Process is a JobHandler.
func (r *Router) Process(ctx context.Context, job *SnapshotJob) error {
	r.mu.Lock()
	fn, ok := r.handlers[job.Type]
	stale := job.Revision <= r.done[job.Type]
	r.mu.Unlock()

	if !ok {
		return ErrNoHandler
	}
	if stale {
		return ErrSkipped
	}
	if err := fn(ctx, job.Snapshot); err != nil {
		return err
	}

	r.mu.Lock()
	if job.Revision > r.done[job.Type] {
		r.done[job.Type] = job.Revision
	}
	r.mu.Unlock()
	return nil
}
