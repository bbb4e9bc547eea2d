package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
)

// DeadlineRepository handles deadline persistence and overdue flag maintenance.
type DeadlineRepository interface {
	// Upsert inserts a deadline or, for an existing (manuscript, type) pair,
	// replaces its due date and assignee and clears any prior completion.
	Upsert(ctx context.Context, d *domain.Deadline) error

	// Get retrieves a deadline by ID.
	// Returns domain.ErrNotFound if no matching deadline exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Deadline, error)

	// ListByManuscript returns all deadlines for a manuscript, earliest due first.
	ListByManuscript(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Deadline, error)

	// Complete marks the manuscript's deadline of the given type fulfilled.
	// Idempotent: completing an already-completed deadline is a no-op, and a
	// missing deadline of that type is not an error.
	Complete(ctx context.Context, manuscriptID uuid.UUID, t domain.DeadlineType, at time.Time) error

	// SetOverdue persists a recomputed overdue flag for one deadline. Callers
	// are expected to invoke this only when the value changed.
	SetOverdue(ctx context.Context, id uuid.UUID, overdue bool) error

	// RefreshOverdueFlags recomputes is_overdue across all incomplete
	// deadlines in one pass, writing only rows whose value changed.
	// It returns the deadlines that newly became overdue.
	RefreshOverdueFlags(ctx context.Context, now time.Time) ([]*domain.Deadline, error)
}
