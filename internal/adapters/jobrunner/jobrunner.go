// Package jobrunner consumes the ingestion task queue and executes jobs with a worker pool.
package jobrunner

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/observability/metrics"
	"github.com/target/swift-ingestion/internal/observability/statsd"
	"github.com/target/swift-ingestion/internal/service"
)

const (
	defaultPollTimeout   = 5 * time.Second
	defaultJobTimeout    = 300 * time.Second
	defaultDepthInterval = 30 * time.Second
	dequeueBackoff       = time.Second
	ackTimeout           = 5 * time.Second
)

// Executor runs one ingestion job to completion.
type Executor interface {
	Execute(ctx context.Context, jobID string) (service.Outcome, error)
}

// DepthReporter reports queue depth for the queue gauge. *data.RedisTaskQueue implements it.
type DepthReporter interface {
	Depth(ctx context.Context) (queued, inFlight int64, err error)
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	Queue    core.TaskQueue // Required
	Executor Executor       // Required
	Logger   *slog.Logger

	Concurrency int           // number of worker goroutines; defaults to 1
	PollTimeout time.Duration // blocking dequeue timeout; defaults to 5s
	JobTimeout  time.Duration // per-job time limit; defaults to 300s

	Metrics       statsd.Sink
	Depth         DepthReporter // Optional: enables the queue depth gauge
	DepthInterval time.Duration
}

// Runner pulls job ids off the queue and executes them.
type Runner struct {
	queue         core.TaskQueue
	exec          Executor
	logger        *slog.Logger
	workers       int
	pollTimeout   time.Duration
	jobTimeout    time.Duration
	metrics       statsd.Sink
	depth         DepthReporter
	depthInterval time.Duration
}

// NewRunner validates options and constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("task queue is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		queue:         opts.Queue,
		exec:          opts.Executor,
		logger:        logger.With("component", "ingestion_worker"),
		workers:       max(opts.Concurrency, 1),
		pollTimeout:   opts.PollTimeout,
		jobTimeout:    opts.JobTimeout,
		metrics:       opts.Metrics,
		depth:         opts.Depth,
		depthInterval: opts.DepthInterval,
	}
	if r.pollTimeout <= 0 {
		r.pollTimeout = defaultPollTimeout
	}
	if r.jobTimeout <= 0 {
		r.jobTimeout = defaultJobTimeout
	}
	if r.depthInterval <= 0 {
		r.depthInterval = defaultDepthInterval
	}
	return r, nil
}

// Run recovers tasks left in flight by a previous process, then starts the workers.
// It returns nil once ctx is cancelled and every worker has finished its current job.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting ingestion workers",
		"workers", r.workers, "poll_timeout", r.pollTimeout, "job_timeout", r.jobTimeout)

	if moved, err := r.queue.RequeueInFlight(ctx); err != nil {
		r.logger.WarnContext(ctx, "requeue in-flight tasks failed", "error", err)
	} else if moved > 0 {
		r.logger.InfoContext(ctx, "requeued in-flight tasks", "count", moved)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.workers {
		name := "worker-" + strconv.Itoa(i)
		g.Go(func() error { return r.workerLoop(gctx, name) })
	}
	if r.depth != nil && r.metrics != nil {
		g.Go(func() error {
			r.reportDepth(gctx)
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) workerLoop(ctx context.Context, name string) error {
	logger := r.logger.With("worker", name)
	for ctx.Err() == nil {
		task, err := r.queue.Dequeue(ctx, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WarnContext(ctx, "dequeue failed", "error", err)
			if !wait(ctx, dequeueBackoff) {
				return nil
			}
			continue
		}
		if task == nil {
			continue
		}
		metrics.EmitDequeued(r.metrics, name)
		r.processTask(ctx, logger, task)
	}
	return nil
}

// processTask executes the job under the per-job time limit. Tasks whose job could
// not be read or written stay unacknowledged and are requeued on the next start.
func (r *Runner) processTask(ctx context.Context, logger *slog.Logger, task *core.Task) {
	logger = logger.With("job_id", task.JobID, "task_id", task.ID)

	jobCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	out, err := r.exec.Execute(jobCtx, task.JobID)
	cancel()
	if err != nil {
		logger.ErrorContext(ctx, "execute job failed; task left in flight", "error", err)
		return
	}

	switch {
	case out.Skipped:
		logger.InfoContext(ctx, "task skipped", "status", out.Status)
	case out.Err != nil:
		logger.WarnContext(ctx, "job failed", "status", out.Status, "error", out.Err)
	default:
		logger.InfoContext(ctx, "job finished",
			"status", out.Status,
			"total", out.Counts.Total,
			"successful", out.Counts.Successful,
			"failed", out.Counts.Failed,
		)
	}

	ackCtx, ackCancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer ackCancel()
	if err := r.queue.Ack(ackCtx, task); err != nil {
		logger.WarnContext(ctx, "ack task failed", "error", err)
	}
}

func (r *Runner) reportDepth(ctx context.Context) {
	ticker := time.NewTicker(r.depthInterval)
	defer ticker.Stop()
	for {
		queued, inFlight, err := r.depth.Depth(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.DebugContext(ctx, "queue depth unavailable", "error", err)
		} else {
			metrics.EmitQueueDepth(r.metrics, queued, inFlight)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
