package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codequery/codequery/internal/logging"
)

// LocalTaskID is the sentinel returned when the broker is unreachable and the
// run executes in-process instead.
const LocalTaskID = "local-task"

// PipelineRunner executes one analysis run.
type PipelineRunner interface {
	Run(ctx context.Context, repoID int64, taskID string) error
}

// Dispatcher hands analysis work to the durable queue, falling back to a
// deferred in-process run when the broker is unreachable. Exactly one of the
// two paths executes per request.
type Dispatcher struct {
	queue  *Queue
	runner PipelineRunner
	log    logging.Logger
}

func NewDispatcher(q *Queue, runner PipelineRunner, log logging.Logger) *Dispatcher {
	return &Dispatcher{queue: q, runner: runner, log: log.WithName("dispatcher")}
}

// Dispatch requests analysis of a repository and returns the task identifier
// the caller can report. The identifier is LocalTaskID when the work runs
// locally.
func (d *Dispatcher) Dispatch(ctx context.Context, repoID int64) string {
	if d.queue != nil && d.queue.Probe(ctx) {
		taskID := uuid.NewString()
		if err := d.queue.Enqueue(ctx, Message{RepositoryID: repoID, TaskID: taskID}); err == nil {
			d.log.Info("queued analysis", "repository_id", repoID, "task_id", taskID)
			return taskID
		} else {
			d.log.Error(err, "enqueue failed, running locally", "repository_id", repoID)
		}
	}

	// Deferred local execution: detach from the request context so the
	// triggering response is never blocked on the run.
	go func() {
		if err := d.runner.Run(context.Background(), repoID, LocalTaskID); err != nil {
			d.log.Error(err, "local analysis run failed", "repository_id", repoID)
		}
	}()
	d.log.Info("broker unreachable, running analysis locally", "repository_id", repoID)
	return LocalTaskID
}

// Consume processes queued analysis requests serially until the context is
// cancelled. One run at a time per worker: embedding benefits from exclusive
// access to the loaded model.
func (q *Queue) Consume(ctx context.Context, runner PipelineRunner) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := q.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.log.Error(err, "queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		q.log.Info("picked up analysis", "repository_id", msg.RepositoryID, "task_id", msg.TaskID)
		if err := runner.Run(ctx, msg.RepositoryID, msg.TaskID); err != nil {
			q.log.Error(err, "analysis run failed", "repository_id", msg.RepositoryID)
		}
	}
}
