package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Compile-time interface verification.
var _ AssignmentRepository = (*PgAssignmentRepository)(nil)

// PgAssignmentRepository is a PostgreSQL implementation of AssignmentRepository.
type PgAssignmentRepository struct {
	db DBTX
}

// NewPgAssignmentRepository creates a new PostgreSQL assignment repository.
func NewPgAssignmentRepository(db DBTX) *PgAssignmentRepository {
	return &PgAssignmentRepository{db: db}
}

const assignmentColumns = `id, manuscript_id, reviewer_id, round, invited_at, due_date,
		accepted_at, declined_at, submitted_at, recommendation, score, quality_rating,
		form_fields, created_at, updated_at`

// Create inserts a new review assignment.
func (r *PgAssignmentRepository) Create(ctx context.Context, a *domain.ReviewAssignment) error {
	if a == nil {
		return domain.NewValidationError("assignment", "assignment cannot be nil")
	}
	if a.ID == uuid.Nil {
		return domain.NewValidationError("id", "assignment ID is required")
	}
	if a.ReviewerID == "" {
		return domain.NewValidationError("reviewer_id", "reviewer ID is required")
	}
	if a.Round < 1 {
		return domain.NewValidationError("round", "round must be >= 1")
	}

	formFieldsJSON, err := json.Marshal(a.FormFields)
	if err != nil {
		return fmt.Errorf("failed to marshal form fields: %w", err)
	}

	query := `
		INSERT INTO review_assignments (
			id, manuscript_id, reviewer_id, round, invited_at, due_date,
			accepted_at, declined_at, submitted_at, recommendation, score, quality_rating,
			form_fields, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15
		)`

	_, err = r.db.Exec(ctx, query,
		a.ID, a.ManuscriptID, a.ReviewerID, a.Round, a.InvitedAt, a.DueDate,
		a.AcceptedAt, a.DeclinedAt, a.SubmittedAt, a.Recommendation, a.Score, a.QualityRating,
		formFieldsJSON, a.CreatedAt, a.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("review assignment", a.ID.String())
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return nil
}

// Get retrieves a review assignment by ID.
func (r *PgAssignmentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ReviewAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM review_assignments
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("review assignment", id.String())
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// ListByManuscript returns all assignments for a manuscript.
func (r *PgAssignmentRepository) ListByManuscript(ctx context.Context, manuscriptID uuid.UUID, round int) ([]*domain.ReviewAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM review_assignments
		WHERE manuscript_id = $1 AND ($2 <= 0 OR round = $2)
		ORDER BY round ASC, invited_at ASC`

	rows, err := r.db.Query(ctx, query, manuscriptID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

// ListByReviewer returns all assignments for a reviewer, newest first.
func (r *PgAssignmentRepository) ListByReviewer(ctx context.Context, reviewerID string) ([]*domain.ReviewAssignment, error) {
	if reviewerID == "" {
		return nil, domain.NewValidationError("reviewer_id", "reviewer ID is required")
	}

	query := `
		SELECT ` + assignmentColumns + `
		FROM review_assignments
		WHERE reviewer_id = $1
		ORDER BY invited_at DESC`

	rows, err := r.db.Query(ctx, query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewer assignments: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

// Accept records the reviewer's acceptance of an open invitation.
func (r *PgAssignmentRepository) Accept(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE review_assignments
		SET accepted_at = $1, updated_at = $1
		WHERE id = $2 AND submitted_at IS NULL AND declined_at IS NULL`

	return r.execFinalizationGated(ctx, id, query, at, id)
}

// Decline records the reviewer's refusal of an open invitation.
func (r *PgAssignmentRepository) Decline(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE review_assignments
		SET declined_at = $1, updated_at = $1
		WHERE id = $2 AND submitted_at IS NULL AND declined_at IS NULL`

	return r.execFinalizationGated(ctx, id, query, at, id)
}

// Submit finalizes the review. The one-way gate lives in the WHERE clause.
func (r *PgAssignmentRepository) Submit(ctx context.Context, id uuid.UUID, rec domain.Recommendation, score *float64, formFields map[string]string, at time.Time) error {
	if !rec.IsValid() {
		return domain.NewValidationError("recommendation", "unknown recommendation: "+string(rec))
	}
	if score != nil && (*score < 0 || *score > 10) {
		return domain.NewValidationError("score", "score must be between 0 and 10")
	}

	formFieldsJSON, err := json.Marshal(formFields)
	if err != nil {
		return fmt.Errorf("failed to marshal form fields: %w", err)
	}

	query := `
		UPDATE review_assignments
		SET submitted_at = $1,
			recommendation = $2,
			score = $3,
			form_fields = $4,
			updated_at = $1
		WHERE id = $5 AND submitted_at IS NULL AND declined_at IS NULL`

	return r.execFinalizationGated(ctx, id, query, at, rec, score, formFieldsJSON, id)
}

// Reopen clears the submission so the review can be submitted again.
func (r *PgAssignmentRepository) Reopen(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE review_assignments
		SET submitted_at = NULL,
			recommendation = NULL,
			score = NULL,
			updated_at = $1
		WHERE id = $2 AND submitted_at IS NOT NULL`

	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to reopen assignment: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewNotFoundError("review assignment", id.String())
		}
		return domain.NewValidationError("review", "review has not been submitted")
	}

	return nil
}

// SetQualityRating records the editor's rating of a submitted review.
func (r *PgAssignmentRepository) SetQualityRating(ctx context.Context, id uuid.UUID, rating float64) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("quality_rating", "quality rating must be between 1 and 5")
	}

	query := `
		UPDATE review_assignments
		SET quality_rating = $1, updated_at = $2
		WHERE id = $3 AND submitted_at IS NOT NULL`

	result, err := r.db.Exec(ctx, query, rating, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set quality rating: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewNotFoundError("review assignment", id.String())
		}
		return domain.NewValidationError("review", "review has not been submitted")
	}

	return nil
}

// CountActive returns the reviewer's current load.
func (r *PgAssignmentRepository) CountActive(ctx context.Context, reviewerID string, now time.Time) (int, error) {
	if reviewerID == "" {
		return 0, domain.NewValidationError("reviewer_id", "reviewer ID is required")
	}

	query := `
		SELECT COUNT(*)
		FROM review_assignments
		WHERE reviewer_id = $1
		  AND submitted_at IS NULL
		  AND declined_at IS NULL
		  AND due_date > $2`

	var count int
	if err := r.db.QueryRow(ctx, query, reviewerID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active assignments: %w", err)
	}

	return count, nil
}

// execFinalizationGated runs an update guarded by the one-way finalization gate
// and maps a zero-row result to NotFound or AlreadyFinalized.
func (r *PgAssignmentRepository) execFinalizationGated(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NewNotFoundError("review assignment", id.String())
		}
		return domain.NewAlreadyFinalizedError(id.String())
	}

	return nil
}

func (r *PgAssignmentRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM review_assignments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check assignment existence: %w", err)
	}
	return exists, nil
}

// assignmentScanDest holds the destination pointers for scanning an assignment row.
type assignmentScanDest struct {
	a              domain.ReviewAssignment
	formFieldsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *assignmentScanDest) destinations() []interface{} {
	return []interface{}{
		&d.a.ID, &d.a.ManuscriptID, &d.a.ReviewerID, &d.a.Round, &d.a.InvitedAt, &d.a.DueDate,
		&d.a.AcceptedAt, &d.a.DeclinedAt, &d.a.SubmittedAt, &d.a.Recommendation, &d.a.Score, &d.a.QualityRating,
		&d.formFieldsJSON, &d.a.CreatedAt, &d.a.UpdatedAt,
	}
}

// finalize performs post-scan processing.
func (d *assignmentScanDest) finalize() (*domain.ReviewAssignment, error) {
	if len(d.formFieldsJSON) > 0 {
		if err := json.Unmarshal(d.formFieldsJSON, &d.a.FormFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal form fields: %w", err)
		}
	}
	return &d.a, nil
}

// scanAssignment scans a single row into a ReviewAssignment.
func scanAssignment(row pgx.Row) (*domain.ReviewAssignment, error) {
	var dest assignmentScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// collectAssignments drains pgx.Rows into a slice of assignments.
func collectAssignments(rows pgx.Rows) ([]*domain.ReviewAssignment, error) {
	var assignments []*domain.ReviewAssignment
	for rows.Next() {
		var dest assignmentScanDest
		if err := rows.Scan(dest.destinations()...); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a, err := dest.finalize()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}
