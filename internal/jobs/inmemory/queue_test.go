package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.AnalyzeBatchJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	handled := make(chan string, 1)
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		handled <- job.GetID()
		return nil
	}))

	job := &jobs.AnalyzeBatchJob{
		Transactions: []domain.Transaction{{Description: "UBER TRIP", Amount: -12}},
	}
	require.NoError(t, q.PublishAnalyzeBatch(context.Background(), job))
	assert.NotEmpty(t, job.JobID)

	select {
	case id := <-handled:
		assert.Equal(t, job.JobID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never called")
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueueFailedJobRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store)
	defer q.Close()

	calls := make(chan struct{}, 8)
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		calls <- struct{}{}
		return errors.New("model offline")
	}))

	job := &jobs.AnalyzeBatchJob{MaxRetries: 1}
	require.NoError(t, q.PublishAnalyzeBatch(context.Background(), job))

	// First attempt plus one retry.
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("attempt %d never ran", i+1)
		}
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "model offline", done.Error)
	assert.Equal(t, 1, done.RetryCount)
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())
	err := q.PublishAnalyzeBatch(context.Background(), &jobs.AnalyzeBatchJob{})
	require.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.Error(t, store.SaveJob(ctx, &jobs.AnalyzeBatchJob{}), "missing ID must be rejected")

	job := &jobs.AnalyzeBatchJob{JobID: "j1", Status: jobs.JobStatusPending}
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)

	// Mutating the returned copy must not affect stored state.
	got.Status = jobs.JobStatusFailed
	again, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, again.Status)

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", jobs.JobStatusCompleted, ""))
	final, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, final.Status)

	listed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = store.GetJob(ctx, "missing")
	require.Error(t, err)
}
