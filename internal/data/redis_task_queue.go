package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/target/swift-ingestion/internal/core"
)

// DefaultQueueName is the Redis list ingestion tasks are pushed onto.
const DefaultQueueName = "swift:ingestion"

// RedisTaskQueueOptions configures a RedisTaskQueue.
type RedisTaskQueueOptions struct {
	Client       redis.UniversalClient
	Name         string
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// RedisTaskQueue is a reliable list queue: tasks move to a processing list on delivery
// and stay there until acknowledged.
type RedisTaskQueue struct {
	client     redis.UniversalClient
	queue      string
	processing string
	now        TimeProvider
	logger     *slog.Logger
}

// NewRedisTaskQueue creates a queue over the given client.
func NewRedisTaskQueue(opts RedisTaskQueueOptions) (*RedisTaskQueue, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultQueueName
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTaskQueue{
		client:     opts.Client,
		queue:      name,
		processing: name + ":processing",
		now:        tp,
		logger:     logger.With("component", "task_queue", "queue", name),
	}, nil
}

var _ core.TaskQueue = (*RedisTaskQueue)(nil)

// Enqueue pushes a task for jobID.
func (q *RedisTaskQueue) Enqueue(ctx context.Context, jobID string) (*core.Task, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrJobIDRequired
	}
	task := &core.Task{
		ID:         uuid.NewString(),
		JobID:      jobID,
		EnqueuedAt: q.now.Now().UTC(),
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	task.Payload = string(payload)

	if err := q.client.LPush(ctx, q.queue, task.Payload).Err(); err != nil {
		return nil, fmt.Errorf("redis lpush: %w", err)
	}
	return task, nil
}

// Dequeue waits up to timeout for the oldest task.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*core.Task, error) {
	payload, err := q.client.BLMove(ctx, q.queue, q.processing, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis blmove: %w", err)
	}

	var task core.Task
	if decodeErr := json.Unmarshal([]byte(payload), &task); decodeErr != nil || task.JobID == "" {
		q.logger.WarnContext(ctx, "dropping malformed task", "payload", payload, "error", decodeErr)
		if remErr := q.client.LRem(ctx, q.processing, 1, payload).Err(); remErr != nil {
			return nil, fmt.Errorf("redis lrem malformed task: %w", remErr)
		}
		return nil, nil
	}
	task.Payload = payload
	return &task, nil
}

// Ack removes the delivered task from the processing list.
func (q *RedisTaskQueue) Ack(ctx context.Context, task *core.Task) error {
	if task == nil || task.Payload == "" {
		return errors.New("delivered task is required")
	}
	if err := q.client.LRem(ctx, q.processing, 1, task.Payload).Err(); err != nil {
		return fmt.Errorf("redis lrem: %w", err)
	}
	return nil
}

// RequeueInFlight moves every processing entry back to the tail consumers read from.
func (q *RedisTaskQueue) RequeueInFlight(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.LMove(ctx, q.processing, q.queue, "LEFT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("redis lmove: %w", err)
		}
		moved++
	}
}

// Depth returns the number of queued and in-flight tasks.
func (q *RedisTaskQueue) Depth(ctx context.Context) (queued, inFlight int64, err error) {
	pipe := q.client.Pipeline()
	queuedCmd := pipe.LLen(ctx, q.queue)
	inFlightCmd := pipe.LLen(ctx, q.processing)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis llen: %w", err)
	}
	return queuedCmd.Val(), inFlightCmd.Val(), nil
}
