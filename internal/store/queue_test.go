package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushPopFail(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q, err := NewQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	first := NewImportJob("https://example.com/a")
	second := NewImportJob("https://example.com/b")
	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))

	queued, _ := mr.List("queue:import")
	assert.Len(t, queued, 2)

	// FIFO
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "https://example.com/a", got.URL)

	require.NoError(t, q.Fail(ctx, got, "simulated 404 error"))
	failed, err := q.Failed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, first.ID, failed[0].Job.ID)
	assert.Equal(t, "simulated 404 error", failed[0].Error)
}

func TestQueue_PopHonoursCancellation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q, err := NewQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = q.Pop(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestQueue_PopReturnsOnCancelWithoutDeadline(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	q, err := NewQueue(mr.Addr())
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Pop did not return after cancel")
	}
}
