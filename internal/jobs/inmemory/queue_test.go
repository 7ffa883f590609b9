package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/jobs"
	"github.com/dvloznov/household-ledger/internal/store"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestQueueProcessesInOrder(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	q := NewQueue(10, st)

	var mu sync.Mutex
	var got []int64
	err := q.Start(ctx, func(ctx context.Context, job *jobs.SnapshotJob) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job.Snapshot.Revision)
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for rev := int64(1); rev <= 5; rev++ {
		s := store.Empty()
		s.Revision = rev
		if err := q.Publish(ctx, &jobs.SnapshotJob{Type: jobs.JobTypePersistSnapshot, Revision: rev, Snapshot: s}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 5 {
		t.Fatalf("expected 5 jobs handled, got %d", len(got))
	}
	for i, rev := range got {
		if rev != int64(i+1) {
			t.Errorf("job %d: expected revision %d, got %d", i, i+1, rev)
		}
	}

	list, _ := st.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if len(list) != 5 {
		t.Errorf("expected 5 completed jobs, got %d", len(list))
	}
}

func TestQueueRetries(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	q := NewQueue(10, st, WithBackoff(time.Millisecond))

	var mu sync.Mutex
	attempts := 0
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.SnapshotJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("bucket unavailable")
		}
		return nil
	})

	job := &jobs.SnapshotJob{Type: jobs.JobTypePersistSnapshot, Revision: 1}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool {
		j, err := st.GetJob(ctx, job.JobID)
		return err == nil && j.Status == jobs.JobStatusCompleted
	})
	j, _ := st.GetJob(ctx, job.JobID)
	if j.RetryCount != 2 {
		t.Errorf("expected 2 retries, got %d", j.RetryCount)
	}
	_ = q.Stop(ctx)
}

func TestQueueGivesUp(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	q := NewQueue(10, st, WithBackoff(time.Millisecond))
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.SnapshotJob) error {
		return errors.New("permanent")
	})

	job := &jobs.SnapshotJob{Type: jobs.JobTypeSyncWarehouse, Revision: 1, MaxRetries: 1}
	_ = q.Publish(ctx, job)

	waitFor(t, func() bool {
		j, err := st.GetJob(ctx, job.JobID)
		return err == nil && j.Status == jobs.JobStatusFailed
	})
	_ = q.Stop(ctx)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Publish(context.Background(), &jobs.SnapshotJob{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Start(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStoreDropsSnapshotAndFilters(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	s := store.Empty()
	s.Revision = 9
	s.Users = nil
	now := time.Now()
	jobsIn := []*jobs.SnapshotJob{
		{JobID: "a", Type: jobs.JobTypePersistSnapshot, Status: jobs.JobStatusCompleted, CreatedAt: now.Add(-2 * time.Minute), Snapshot: s},
		{JobID: "b", Type: jobs.JobTypeSyncWarehouse, Status: jobs.JobStatusFailed, CreatedAt: now.Add(-time.Minute)},
		{JobID: "c", Type: jobs.JobTypePersistSnapshot, Status: jobs.JobStatusPending, CreatedAt: now},
	}
	for _, j := range jobsIn {
		if err := st.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	got, _ := st.GetJob(ctx, "a")
	if got.Snapshot.Revision != 0 {
		t.Error("expected snapshot payload not to be stored")
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by type", jobs.JobFilter{Type: jobs.JobTypePersistSnapshot}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"b"}},
		{"paged", jobs.JobFilter{Limit: 1, Offset: 1}, []string{"b"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := st.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(list) != len(tt.want) {
				t.Fatalf("expected %d jobs, got %d", len(tt.want), len(list))
			}
			for i, id := range tt.want {
				if list[i].JobID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, list[i].JobID)
				}
			}
		})
	}

	if _, err := st.GetJob(ctx, "zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown job, got %v", err)
	}
}

func TestStoreEvictsFinishedJobs(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	st.retention = 3
	base := time.Now()
	for i, id := range []string{"j1", "j2", "j3", "j4", "j5"} {
		status := jobs.JobStatusCompleted
		if id == "j1" {
			status = jobs.JobStatusRunning
		}
		_ = st.SaveJob(ctx, &jobs.SnapshotJob{JobID: id, Status: status, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	if _, err := st.GetJob(ctx, "j1"); err != nil {
		t.Error("unfinished job must not be evicted")
	}
	if _, err := st.GetJob(ctx, "j2"); err == nil {
		t.Error("expected oldest finished job to be evicted")
	}
	list, _ := st.ListJobs(ctx, jobs.JobFilter{})
	if len(list) != 3 {
		t.Errorf("expected 3 retained jobs, got %d", len(list))
	}
}
