package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Compile-time interface verification.
var _ OutboxRepository = (*PgOutboxRepository)(nil)

// PgOutboxRepository is a PostgreSQL implementation of OutboxRepository.
type PgOutboxRepository struct {
	db DBTX
}

// NewPgOutboxRepository creates a new PostgreSQL outbox repository.
func NewPgOutboxRepository(db DBTX) *PgOutboxRepository {
	return &PgOutboxRepository{db: db}
}

// Insert appends an outbox event.
func (r *PgOutboxRepository) Insert(ctx context.Context, evt *domain.OutboxEvent) error {
	if evt == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}
	if evt.EventID == "" {
		return domain.NewValidationError("event_id", "event ID is required")
	}
	if evt.EventType == "" {
		return domain.NewValidationError("event_type", "event type is required")
	}

	metadataJSON, err := json.Marshal(evt.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO outbox_events (
			event_id, event_version, aggregate_id, aggregate_type, event_type,
			payload, metadata, attempts, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, 0, $8
		)`

	_, err = r.db.Exec(ctx, query,
		evt.EventID, evt.EventVersion, evt.AggregateID, evt.AggregateType, evt.EventType,
		evt.Payload, metadataJSON, evt.CreatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("outbox event", evt.EventID)
		}
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// FetchBatch claims up to limit unpublished events, oldest first. Events
// whose attempt counter reached maxAttempts are left for manual inspection.
func (r *PgOutboxRepository) FetchBatch(ctx context.Context, limit, maxAttempts int) ([]*domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	query := `
		SELECT event_id, event_version, aggregate_id, aggregate_type, event_type,
			payload, metadata, created_at
		FROM outbox_events
		WHERE published_at IS NULL
			AND ($2 <= 0 OR attempts < $2)
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := r.db.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox batch: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			evt          domain.OutboxEvent
			metadataJSON []byte
		)
		if err := rows.Scan(
			&evt.EventID, &evt.EventVersion, &evt.AggregateID, &evt.AggregateType, &evt.EventType,
			&evt.Payload, &metadataJSON, &evt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &evt.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, &evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

// MarkPublished stamps the given events as published.
func (r *PgOutboxRepository) MarkPublished(ctx context.Context, eventIDs []string, at time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}

	query := `
		UPDATE outbox_events
		SET published_at = $1
		WHERE event_id = ANY($2)`

	if _, err := r.db.Exec(ctx, query, at, eventIDs); err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}

	return nil
}

// IncrementAttempts bumps the attempt counter after a failed publish.
func (r *PgOutboxRepository) IncrementAttempts(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1
		WHERE event_id = ANY($1)`

	if _, err := r.db.Exec(ctx, query, eventIDs); err != nil {
		return fmt.Errorf("failed to increment outbox attempts: %w", err)
	}

	return nil
}
