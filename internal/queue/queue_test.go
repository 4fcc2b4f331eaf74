package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery/codequery/internal/logging"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func testQueue(client *redis.Client, name string) *Queue {
	return New(client, name, 100*time.Millisecond, logging.New(logr.Discard()))
}

func TestQueue_RoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	q := testQueue(client, "analysis")
	ctx := context.Background()

	original := Message{RepositoryID: 42, TaskID: "task-abc"}
	require.NoError(t, q.Enqueue(ctx, original))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msg, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, original, *msg)
}

func TestQueue_PopFIFOOrder(t *testing.T) {
	_, client := setupTestRedis(t)
	q := testQueue(client, "analysis")
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Enqueue(ctx, Message{RepositoryID: i, TaskID: "t"}))
	}
	for i := int64(1); i <= 3; i++ {
		msg, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, i, msg.RepositoryID)
	}
}

func TestQueue_Probe(t *testing.T) {
	mr, client := setupTestRedis(t)
	q := testQueue(client, "analysis")
	ctx := context.Background()

	assert.True(t, q.Probe(ctx))

	mr.Close()
	assert.False(t, q.Probe(ctx))
}

func TestQueue_Consume(t *testing.T) {
	_, client := setupTestRedis(t)
	q := testQueue(client, "analysis")

	require.NoError(t, q.Enqueue(context.Background(), Message{RepositoryID: 9, TaskID: "t-9"}))

	runner := &recordingRunner{done: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- q.Consume(ctx, runner) }()

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner never invoked")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("consume did not stop on cancellation")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.runs, 1)
	assert.Equal(t, int64(9), runner.runs[0].RepositoryID)
	assert.Equal(t, "t-9", runner.runs[0].TaskID)
}
