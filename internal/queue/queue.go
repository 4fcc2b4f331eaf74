package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/codequery/codequery/internal/logging"
)

// Message is one analysis request on the durable queue.
type Message struct {
	RepositoryID int64  `json:"repository_id"`
	TaskID       string `json:"task_id"`
}

// Queue is the Redis-backed analysis queue. Reachability is checked with a
// short bounded probe so a dead broker never stalls request handling.
type Queue struct {
	client       *redis.Client
	name         string
	probeTimeout time.Duration
	log          logging.Logger
}

func New(client *redis.Client, name string, probeTimeout time.Duration, log logging.Logger) *Queue {
	if probeTimeout <= 0 {
		probeTimeout = 500 * time.Millisecond
	}
	return &Queue{client: client, name: name, probeTimeout: probeTimeout, log: log.WithName("queue")}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url, name string, probeTimeout time.Duration, log logging.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), name, probeTimeout, log), nil
}

// Probe reports whether the broker answers PING within the probe timeout.
func (q *Queue) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, q.probeTimeout)
	defer cancel()
	if err := q.client.Ping(ctx).Err(); err != nil {
		q.log.Info("queue unreachable", "reason", err.Error())
		return false
	}
	return true
}

// Enqueue pushes a message for a worker to pick up.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next message. A timeout without work
// returns (nil, nil).
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Message, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal queue message: %w", err)
	}
	return &msg, nil
}

// Length returns the number of queued messages.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}
