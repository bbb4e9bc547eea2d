package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Compile-time interface verification.
var _ DeadlineRepository = (*PgDeadlineRepository)(nil)

// PgDeadlineRepository is a PostgreSQL implementation of DeadlineRepository.
type PgDeadlineRepository struct {
	db DBTX
}

// NewPgDeadlineRepository creates a new PostgreSQL deadline repository.
func NewPgDeadlineRepository(db DBTX) *PgDeadlineRepository {
	return &PgDeadlineRepository{db: db}
}

const deadlineColumns = `id, manuscript_id, type, due_date, assigned_to,
		completed_at, is_overdue, created_at, updated_at`

// Upsert inserts or replaces the deadline for a (manuscript, type) pair.
func (r *PgDeadlineRepository) Upsert(ctx context.Context, d *domain.Deadline) error {
	if d == nil {
		return domain.NewValidationError("deadline", "deadline cannot be nil")
	}
	if d.ID == uuid.Nil {
		return domain.NewValidationError("id", "deadline ID is required")
	}
	if !d.Type.IsValid() {
		return domain.NewValidationError("type", "unknown deadline type: "+string(d.Type))
	}
	if d.DueDate.IsZero() {
		return domain.NewValidationError("due_date", "due date is required")
	}

	query := `
		INSERT INTO deadlines (
			id, manuscript_id, type, due_date, assigned_to,
			completed_at, is_overdue, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
		ON CONFLICT (manuscript_id, type) DO UPDATE SET
			due_date = EXCLUDED.due_date,
			assigned_to = EXCLUDED.assigned_to,
			completed_at = NULL,
			is_overdue = EXCLUDED.is_overdue,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.ManuscriptID, d.Type, d.DueDate, nullString(d.AssignedTo),
		d.CompletedAt, d.IsOverdue, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deadline: %w", err)
	}

	return nil
}

// Get retrieves a deadline by ID.
func (r *PgDeadlineRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	d, err := scanDeadline(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("deadline", id.String())
		}
		return nil, fmt.Errorf("failed to get deadline: %w", err)
	}

	return d, nil
}

// ListByManuscript returns all deadlines for a manuscript, earliest due first.
func (r *PgDeadlineRepository) ListByManuscript(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines
		WHERE manuscript_id = $1
		ORDER BY due_date ASC`

	rows, err := r.db.Query(ctx, query, manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deadlines: %w", err)
	}
	defer rows.Close()

	return collectDeadlines(rows)
}

// Complete marks the manuscript's deadline of the given type fulfilled.
// A zero-row update means the deadline is absent or already completed; both
// are success.
func (r *PgDeadlineRepository) Complete(ctx context.Context, manuscriptID uuid.UUID, t domain.DeadlineType, at time.Time) error {
	if !t.IsValid() {
		return domain.NewValidationError("type", "unknown deadline type: "+string(t))
	}

	query := `
		UPDATE deadlines
		SET completed_at = $1,
			is_overdue = FALSE,
			updated_at = $1
		WHERE manuscript_id = $2 AND type = $3 AND completed_at IS NULL`

	if _, err := r.db.Exec(ctx, query, at, manuscriptID, t); err != nil {
		return fmt.Errorf("failed to complete deadline: %w", err)
	}

	return nil
}

// SetOverdue persists a recomputed overdue flag for one deadline.
func (r *PgDeadlineRepository) SetOverdue(ctx context.Context, id uuid.UUID, overdue bool) error {
	query := `
		UPDATE deadlines
		SET is_overdue = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(ctx, query, overdue, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set overdue flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("deadline", id.String())
	}

	return nil
}

// RefreshOverdueFlags recomputes is_overdue across all deadlines in one pass.
// The WHERE clause skips rows whose stored value already matches, so unchanged
// deadlines are never rewritten.
func (r *PgDeadlineRepository) RefreshOverdueFlags(ctx context.Context, now time.Time) ([]*domain.Deadline, error) {
	query := `
		UPDATE deadlines
		SET is_overdue = (due_date < $1 AND completed_at IS NULL),
			updated_at = $1
		WHERE is_overdue IS DISTINCT FROM (due_date < $1 AND completed_at IS NULL)
		RETURNING ` + deadlineColumns

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh overdue flags: %w", err)
	}
	defer rows.Close()

	changed, err := collectDeadlines(rows)
	if err != nil {
		return nil, err
	}

	newlyOverdue := make([]*domain.Deadline, 0, len(changed))
	for _, d := range changed {
		if d.IsOverdue {
			newlyOverdue = append(newlyOverdue, d)
		}
	}

	return newlyOverdue, nil
}

// scanDeadline scans a single row into a Deadline.
func scanDeadline(row pgx.Row) (*domain.Deadline, error) {
	var (
		d          domain.Deadline
		assignedTo *string
	)
	if err := row.Scan(
		&d.ID, &d.ManuscriptID, &d.Type, &d.DueDate, &assignedTo,
		&d.CompletedAt, &d.IsOverdue, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if assignedTo != nil {
		d.AssignedTo = *assignedTo
	}
	return &d, nil
}

// collectDeadlines drains pgx.Rows into a slice of deadlines.
func collectDeadlines(rows pgx.Rows) ([]*domain.Deadline, error) {
	var deadlines []*domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deadline: %w", err)
		}
		deadlines = append(deadlines, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deadlines: %w", err)
	}

	return deadlines, nil
}
