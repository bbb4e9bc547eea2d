package temporal

import (
	"context"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for a Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the task queue this worker polls.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize limits concurrent activity executions.
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize limits concurrent workflow task executions.
	MaxConcurrentWorkflowTaskExecutionSize int

	// MaxConcurrentActivityTaskPollers is the number of activity task pollers.
	MaxConcurrentActivityTaskPollers int

	// MaxConcurrentWorkflowTaskPollers is the number of workflow task pollers.
	MaxConcurrentWorkflowTaskPollers int
}

// DefaultWorkerConfig returns a WorkerConfig with sensible defaults for the
// sweep worker, which runs a single low-volume scheduled workflow.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
		MaxConcurrentActivityTaskPollers:       4,
		MaxConcurrentWorkflowTaskPollers:       2,
	}
}

func workerOptionsFromConfig(cfg WorkerConfig) worker.Options {
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxConcurrentWorkflowTaskExecutionSize,
		MaxConcurrentActivityTaskPollers:       cfg.MaxConcurrentActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       cfg.MaxConcurrentWorkflowTaskPollers,
	}
}

// NewWorker creates a Temporal worker for the given task queue. Workflows and
// activities must be registered by the caller before the worker is started.
func NewWorker(c client.Client, cfg WorkerConfig) worker.Worker {
	return worker.New(c, cfg.TaskQueue, workerOptionsFromConfig(cfg))
}

// StartWorker runs the worker until ctx is cancelled or the worker fails.
// It blocks; run it from the worker entrypoint's main goroutine.
func StartWorker(ctx context.Context, w worker.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
