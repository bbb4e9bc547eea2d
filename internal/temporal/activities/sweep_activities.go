// Package activities contains Temporal activity implementations for the
// editorial service's scheduled workflows.
package activities

import (
	"context"

	"github.com/rs/zerolog"

	editorial "github.com/openjournal/editorial-service/internal/workflow"
)

// DeadlineSweeper marks overdue deadlines. Implemented by workflow.Monitor.
type DeadlineSweeper interface {
	Sweep(ctx context.Context) (*editorial.SweepResult, error)
}

// SweepActivities holds activities for the deadline sweep workflow.
type SweepActivities struct {
	monitor DeadlineSweeper
	logger  zerolog.Logger
}

// NewSweepActivities creates a new SweepActivities.
func NewSweepActivities(monitor DeadlineSweeper, logger zerolog.Logger) *SweepActivities {
	return &SweepActivities{
		monitor: monitor,
		logger:  logger.With().Str("component", "sweep_activities").Logger(),
	}
}

// SweepDeadlines runs one deadline sweep and reports how many deadlines
// newly became overdue. A sweep skipped because another instance holds the
// advisory lock is not an error.
func (a *SweepActivities) SweepDeadlines(ctx context.Context) (*editorial.SweepResult, error) {
	result, err := a.monitor.Sweep(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("deadline sweep failed")
		return nil, err
	}

	if result.Skipped {
		a.logger.Debug().Msg("deadline sweep skipped, lock held elsewhere")
	} else {
		a.logger.Info().Int("newly_overdue", result.NewlyOverdue).Msg("deadline sweep completed")
	}
	return result, nil
}
