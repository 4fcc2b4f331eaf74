package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery/codequery/internal/logging"
)

type recordingRunner struct {
	mu   sync.Mutex
	runs []Message
	done chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, repoID int64, taskID string) error {
	r.mu.Lock()
	r.runs = append(r.runs, Message{RepositoryID: repoID, TaskID: taskID})
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

func TestDispatch_QueuesWhenBrokerReachable(t *testing.T) {
	_, client := setupTestRedis(t)
	q := testQueue(client, "analysis")
	runner := &recordingRunner{}
	d := NewDispatcher(q, runner, logging.New(logr.Discard()))

	taskID := d.Dispatch(context.Background(), 5)
	assert.NotEqual(t, LocalTaskID, taskID)
	assert.NotEmpty(t, taskID)

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msg, err := q.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int64(5), msg.RepositoryID)
	assert.Equal(t, taskID, msg.TaskID)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.runs, "queued dispatch must not run locally")
}

func TestDispatch_FallsBackWhenBrokerUnreachable(t *testing.T) {
	mr, client := setupTestRedis(t)
	q := testQueue(client, "analysis")
	mr.Close()

	runner := &recordingRunner{done: make(chan struct{}, 1)}
	d := NewDispatcher(q, runner, logging.New(logr.Discard()))

	taskID := d.Dispatch(context.Background(), 11)
	assert.Equal(t, LocalTaskID, taskID)

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("local fallback never ran the pipeline")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.runs, 1)
	assert.Equal(t, int64(11), runner.runs[0].RepositoryID)
	assert.Equal(t, LocalTaskID, runner.runs[0].TaskID)
}

func TestDispatch_NilQueueRunsLocally(t *testing.T) {
	runner := &recordingRunner{done: make(chan struct{}, 1)}
	d := NewDispatcher(nil, runner, logging.New(logr.Discard()))

	taskID := d.Dispatch(context.Background(), 3)
	assert.Equal(t, LocalTaskID, taskID)

	select {
	case <-runner.done:
	case <-time.After(5 * time.Second):
		t.Fatal("local fallback never ran the pipeline")
	}
}
