package workflows

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	editorialtemporal "github.com/openjournal/editorial-service/internal/temporal"
	"github.com/openjournal/editorial-service/internal/temporal/activities"
	editorial "github.com/openjournal/editorial-service/internal/workflow"
)

func TestDeadlineSweepWorkflow_ContinuesAsNewAfterIterations(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var a *activities.SweepActivities
	env.OnActivity(a.SweepDeadlines, mock.Anything).
		Return(&editorial.SweepResult{NewlyOverdue: 1}, nil).
		Times(3)

	env.ExecuteWorkflow(DeadlineSweepWorkflow, editorialtemporal.SweepWorkflowInput{
		Interval:         30 * time.Second,
		IterationsPerRun: 3,
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.True(t, workflow.IsContinueAsNewError(err))
	env.AssertExpectations(t)
}

func TestDeadlineSweepWorkflow_SurvivesActivityFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var a *activities.SweepActivities
	env.OnActivity(a.SweepDeadlines, mock.Anything).
		Return(nil, errors.New("database unavailable")).
		Once()
	env.OnActivity(a.SweepDeadlines, mock.Anything).
		Return(&editorial.SweepResult{NewlyOverdue: 2}, nil).
		Once()

	env.ExecuteWorkflow(DeadlineSweepWorkflow, editorialtemporal.SweepWorkflowInput{
		Interval:         30 * time.Second,
		IterationsPerRun: 2,
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.True(t, workflow.IsContinueAsNewError(err))
	env.AssertExpectations(t)
}

func TestDeadlineSweepWorkflow_DefaultsApplied(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var a *activities.SweepActivities
	env.OnActivity(a.SweepDeadlines, mock.Anything).
		Return(&editorial.SweepResult{Skipped: true}, nil).
		Times(2)

	// IterationsPerRun 0 falls back to the default; cancel after two sweeps
	// so the test does not simulate the full run.
	env.RegisterDelayedCallback(func() {
		env.CancelWorkflow()
	}, defaultSweepInterval+defaultSweepInterval/2)

	env.ExecuteWorkflow(DeadlineSweepWorkflow, editorialtemporal.SweepWorkflowInput{})

	require.True(t, env.IsWorkflowCompleted())
	env.AssertExpectations(t)
}
