package repository

import (
	"context"
	"time"

	"github.com/openjournal/editorial-service/internal/domain"
)

// OutboxRepository handles transactional outbox rows. Events are inserted in
// the same transaction as the state change they describe and later drained by
// the publisher.
type OutboxRepository interface {
	// Insert appends an outbox event.
	Insert(ctx context.Context, evt *domain.OutboxEvent) error

	// FetchBatch claims up to limit unpublished events, oldest first, using
	// FOR UPDATE SKIP LOCKED so concurrent publishers never double-claim.
	// Events with attempts at or above maxAttempts are skipped; maxAttempts
	// <= 0 disables the cap. Call within a transaction and MarkPublished
	// before committing.
	FetchBatch(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxEvent, error)

	// MarkPublished stamps the given events as published.
	MarkPublished(ctx context.Context, eventIDs []string, at time.Time) error

	// IncrementAttempts bumps the attempt counter after a failed publish.
	IncrementAttempts(ctx context.Context, eventIDs []string) error
}
