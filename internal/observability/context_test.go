package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "req-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestIDFromContext(ctx)
		assert.Equal(t, "", result)
	})
}

func TestActorContext(t *testing.T) {
	t.Run("stores and retrieves actor ID and role", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithActor(ctx, "user-456", "EDITOR")

		actorID, actorRole := ActorFromContext(ctx)
		assert.Equal(t, "user-456", actorID)
		assert.Equal(t, "EDITOR", actorRole)
	})

	t.Run("returns empty strings when not set", func(t *testing.T) {
		ctx := context.Background()
		actorID, actorRole := ActorFromContext(ctx)
		assert.Equal(t, "", actorID)
		assert.Equal(t, "", actorRole)
	})

	t.Run("handles partial values", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithActor(ctx, "user-only", "")

		actorID, actorRole := ActorFromContext(ctx)
		assert.Equal(t, "user-only", actorID)
		assert.Equal(t, "", actorRole)
	})
}

func TestManuscriptIDContext(t *testing.T) {
	t.Run("stores and retrieves manuscript ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithManuscriptID(ctx, "ms-abc")

		assert.Equal(t, "ms-abc", ManuscriptIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, "", ManuscriptIDFromContext(ctx))
	})
}

func TestWorkflowContext(t *testing.T) {
	t.Run("stores and retrieves workflow and run IDs", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithWorkflow(ctx, "wf-123", "run-456")

		workflowID, runID := WorkflowFromContext(ctx)
		assert.Equal(t, "wf-123", workflowID)
		assert.Equal(t, "run-456", runID)
	})

	t.Run("returns empty strings when not set", func(t *testing.T) {
		ctx := context.Background()
		workflowID, runID := WorkflowFromContext(ctx)
		assert.Equal(t, "", workflowID)
		assert.Equal(t, "", runID)
	})
}

func TestRequestContextFull(t *testing.T) {
	t.Run("stores and retrieves full request context", func(t *testing.T) {
		ctx := context.Background()
		rc := RequestContext{
			RequestID:    "req-123",
			ActorID:      "user-456",
			ActorRole:    "SENIOR_EDITOR",
			ManuscriptID: "ms-789",
			WorkflowID:   "wf-123",
			RunID:        "run-456",
		}

		ctx = WithRequestContextFull(ctx, rc)
		result := RequestContextFromContext(ctx)

		assert.Equal(t, rc.RequestID, result.RequestID)
		assert.Equal(t, rc.ActorID, result.ActorID)
		assert.Equal(t, rc.ActorRole, result.ActorRole)
		assert.Equal(t, rc.ManuscriptID, result.ManuscriptID)
		assert.Equal(t, rc.WorkflowID, result.WorkflowID)
		assert.Equal(t, rc.RunID, result.RunID)
	})

	t.Run("handles partial context", func(t *testing.T) {
		ctx := context.Background()
		rc := RequestContext{
			RequestID: "req-only",
		}

		ctx = WithRequestContextFull(ctx, rc)
		result := RequestContextFromContext(ctx)

		assert.Equal(t, "req-only", result.RequestID)
		assert.Equal(t, "", result.ActorID)
		assert.Equal(t, "", result.ManuscriptID)
	})

	t.Run("returns empty context when nothing set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestContextFromContext(ctx)

		assert.Equal(t, RequestContext{}, result)
	})
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()

	// Chain multiple context additions
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActor(ctx, "user-1", "CHIEF_EDITOR")
	ctx = WithManuscriptID(ctx, "ms-1")
	ctx = WithWorkflow(ctx, "wf-1", "run-1")

	// All values should be retrievable
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	actorID, actorRole := ActorFromContext(ctx)
	assert.Equal(t, "user-1", actorID)
	assert.Equal(t, "CHIEF_EDITOR", actorRole)

	assert.Equal(t, "ms-1", ManuscriptIDFromContext(ctx))

	workflowID, runID := WorkflowFromContext(ctx)
	assert.Equal(t, "wf-1", workflowID)
	assert.Equal(t, "run-1", runID)
}

func TestContextOverwrite(t *testing.T) {
	ctx := context.Background()

	// Set initial values
	ctx = WithRequestID(ctx, "req-1")

	// Overwrite with new values
	ctx = WithRequestID(ctx, "req-2")

	// Should have new value
	assert.Equal(t, "req-2", RequestIDFromContext(ctx))
}
