package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrains(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	q := NewQueue[string]("notifications", func(ctx context.Context, payload string) error {
		mu.Lock()
		seen = append(seen, payload)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})

	require.ErrorIs(t, q.Enqueue("early", "x"), ErrQueueClosed)

	q.Start(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue("job", "payload"))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10)
	assert.ErrorIs(t, q.Enqueue("late", "x"), ErrQueueClosed)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue[int]("retry", func(ctx context.Context, payload int) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue("job-1", 1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	q.Stop()
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueDrainsAfterParentCancelled(t *testing.T) {
	var (
		mu      sync.Mutex
		handled int
		errs    []error
	)
	release := make(chan struct{})
	q := NewQueue[int]("notifications", func(ctx context.Context, payload int) error {
		<-release
		mu.Lock()
		handled++
		errs = append(errs, ctx.Err())
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1})

	parent, cancel := context.WithCancel(context.Background())
	q.Start(parent)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue("job", i))
	}
	cancel()
	close(release)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, handled)
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
