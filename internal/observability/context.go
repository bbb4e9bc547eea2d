package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	actorIDKey      contextKey = "actor_id"
	actorRoleKey    contextKey = "actor_role"
	manuscriptIDKey contextKey = "manuscript_id"
	workflowIDKey   contextKey = "workflow_id"
	runIDKey        contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithActor adds the acting user's ID and role to the context.
func WithActor(ctx context.Context, actorID, actorRole string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, actorID)
	ctx = context.WithValue(ctx, actorRoleKey, actorRole)
	return ctx
}

// ActorFromContext retrieves the acting user's ID and role from context.
// Returns empty strings if not present.
func ActorFromContext(ctx context.Context) (actorID, actorRole string) {
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			actorID = id
		}
	}
	if v := ctx.Value(actorRoleKey); v != nil {
		if role, ok := v.(string); ok {
			actorRole = role
		}
	}
	return actorID, actorRole
}

// WithManuscriptID adds a manuscript ID to the context.
func WithManuscriptID(ctx context.Context, manuscriptID string) context.Context {
	return context.WithValue(ctx, manuscriptIDKey, manuscriptID)
}

// ManuscriptIDFromContext retrieves the manuscript ID from context.
// Returns empty string if not present.
func ManuscriptIDFromContext(ctx context.Context) string {
	if v := ctx.Value(manuscriptIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// WorkflowFromContext retrieves workflow ID and run ID from context.
// Returns empty strings if not present.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	if v := ctx.Value(workflowIDKey); v != nil {
		if id, ok := v.(string); ok {
			workflowID = id
		}
	}
	if v := ctx.Value(runIDKey); v != nil {
		if id, ok := v.(string); ok {
			runID = id
		}
	}
	return workflowID, runID
}

// RequestContext contains all the context data for an editorial request.
type RequestContext struct {
	RequestID    string
	ActorID      string
	ActorRole    string
	ManuscriptID string
	WorkflowID   string
	RunID        string
}

// WithRequestContextFull adds all request context to the context.
func WithRequestContextFull(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.ActorID != "" || rc.ActorRole != "" {
		ctx = WithActor(ctx, rc.ActorID, rc.ActorRole)
	}
	if rc.ManuscriptID != "" {
		ctx = WithManuscriptID(ctx, rc.ManuscriptID)
	}
	if rc.WorkflowID != "" || rc.RunID != "" {
		ctx = WithWorkflow(ctx, rc.WorkflowID, rc.RunID)
	}
	return ctx
}

// RequestContextFromContext extracts all request context from the context.
func RequestContextFromContext(ctx context.Context) RequestContext {
	actorID, actorRole := ActorFromContext(ctx)
	workflowID, runID := WorkflowFromContext(ctx)

	return RequestContext{
		RequestID:    RequestIDFromContext(ctx),
		ActorID:      actorID,
		ActorRole:    actorRole,
		ManuscriptID: ManuscriptIDFromContext(ctx),
		WorkflowID:   workflowID,
		RunID:        runID,
	}
}
