package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*SnapshotJob
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, job *SnapshotJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestSnapshotPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	obs := NewSnapshotPublisher(pub, zerolog.Nop(), JobTypePersistSnapshot, JobTypeSyncWarehouse)

	d := ledger.NewDispatcher(store.Seed(testNow), zerolog.Nop(), obs)
	if _, err := d.Dispatch(context.Background(), ledger.ToggleTheme{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(pub.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(pub.jobs))
	}
	for _, j := range pub.jobs {
		if j.Revision != 1 || j.Snapshot.Revision != 1 {
			t.Errorf("expected revision 1, got job %d snapshot %d", j.Revision, j.Snapshot.Revision)
		}
		if j.Mutation != "toggle_theme" {
			t.Errorf("expected mutation toggle_theme, got %s", j.Mutation)
		}
	}

	pub.err = errors.New("queue full")
	if _, err := d.Dispatch(context.Background(), ledger.ToggleTheme{}); err != nil {
		t.Fatalf("publish failures must not reject the mutation: %v", err)
	}
}

func TestRouterSkipsStaleRevisions(t *testing.T) {
	r := NewRouter()
	var handled []int64
	r.Handle(JobTypePersistSnapshot, func(ctx context.Context, s store.Snapshot) error {
		handled = append(handled, s.Revision)
		return nil
	})

	job := func(rev int64) *SnapshotJob {
		s := store.Empty()
		s.Revision = rev
		return &SnapshotJob{Type: JobTypePersistSnapshot, Revision: rev, Snapshot: s}
	}

	ctx := context.Background()
	tests := []struct {
		rev  int64
		want error
	}{
		{2, nil},
		{1, ErrSkipped},
		{2, ErrSkipped},
		{3, nil},
	}
	for _, tt := range tests {
		if err := r.Process(ctx, job(tt.rev)); !errors.Is(err, tt.want) {
			t.Errorf("revision %d: expected %v, got %v", tt.rev, tt.want, err)
		}
	}
	if len(handled) != 2 {
		t.Errorf("expected 2 handled revisions, got %v", handled)
	}

	if err := r.Process(ctx, &SnapshotJob{Type: JobTypeSyncNotion, Revision: 1}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

func TestRouterRetriesFailedRevision(t *testing.T) {
	r := NewRouter()
	fail := true
	r.Handle(JobTypeSyncWarehouse, func(ctx context.Context, s store.Snapshot) error {
		if fail {
			return errors.New("bigquery unavailable")
		}
		return nil
	})
	ctx := context.Background()
	j := &SnapshotJob{Type: JobTypeSyncWarehouse, Revision: 4}
	if err := r.Process(ctx, j); err == nil {
		t.Fatal("expected failure")
	}
	fail = false
	if err := r.Process(ctx, j); err != nil {
		t.Fatalf("a failed revision must be retryable: %v", err)
	}
	if len(r.Types()) != 1 {
		t.Errorf("expected one registered type")
	}
}

var testNow = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
