// Package observability provides logging and metrics support for the
// editorial workflow service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for manuscripts, reviews, and deadlines
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("manuscript submitted")
//
// Add request context to logger:
//
//	logger = observability.WithRequestContext(logger, requestID, actorID, actorRole)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("editorial")
//
// Record metrics:
//
//	metrics.RecordManuscriptSubmitted()
//	metrics.RecordTransitionApplied("NEW", "UNDER_REVIEW")
//	metrics.RecordReviewSubmitted("ACCEPT", 14.2)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithActor(ctx, actorID, actorRole)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	actorID, actorRole := observability.ActorFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - actor_id: Acting user identifier
//   - actor_role: Acting user's role
//   - manuscript_id: Manuscript identifier
//   - review_id: Review assignment identifier
//   - reviewer_id: Reviewer identifier
//   - workflow_id: Temporal workflow identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
