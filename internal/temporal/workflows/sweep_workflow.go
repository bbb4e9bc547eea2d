// Package workflows contains Temporal workflow definitions for the
// editorial service.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	editorialtemporal "github.com/openjournal/editorial-service/internal/temporal"
	"github.com/openjournal/editorial-service/internal/temporal/activities"
)

const (
	sweepActivityTimeout = 2 * time.Minute

	defaultSweepInterval    = time.Minute
	defaultIterationsPerRun = 500
)

// DeadlineSweepWorkflow runs the deadline sweep activity on a fixed interval.
// After IterationsPerRun sweeps it continues as new, keeping the workflow
// history bounded for an effectively infinite loop.
func DeadlineSweepWorkflow(ctx workflow.Context, input editorialtemporal.SweepWorkflowInput) error {
	if input.Interval <= 0 {
		input.Interval = defaultSweepInterval
	}
	if input.IterationsPerRun <= 0 {
		input.IterationsPerRun = defaultIterationsPerRun
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("deadline sweep loop starting",
		"interval", input.Interval.String(),
		"iterations_per_run", input.IterationsPerRun)

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: sweepActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	var a *activities.SweepActivities
	for i := 0; i < input.IterationsPerRun; i++ {
		err := workflow.ExecuteActivity(activityCtx, a.SweepDeadlines).Get(ctx, nil)
		if err != nil {
			// The next tick retries a failed sweep from scratch, so log
			// and keep the loop alive rather than failing the workflow.
			logger.Error("deadline sweep activity failed", "error", err)
		}

		if err := workflow.Sleep(ctx, input.Interval); err != nil {
			return err
		}
	}

	return workflow.NewContinueAsNewError(ctx, DeadlineSweepWorkflow, input)
}
