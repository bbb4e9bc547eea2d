package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
)

// AssignmentRepository handles review assignment persistence.
//
// Finalization (submitted_at being set) is a one-way gate enforced at write
// time: Submit and Reopen carry their preconditions in the UPDATE's WHERE
// clause, never in a prior read.
type AssignmentRepository interface {
	// Create inserts a new review assignment.
	// Returns domain.ErrAlreadyExists if the reviewer is already assigned to
	// this manuscript and round.
	Create(ctx context.Context, a *domain.ReviewAssignment) error

	// Get retrieves a review assignment by ID.
	// Returns domain.ErrNotFound if no matching assignment exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.ReviewAssignment, error)

	// ListByManuscript returns all assignments for a manuscript, optionally
	// narrowed to one round (round <= 0 means all rounds).
	ListByManuscript(ctx context.Context, manuscriptID uuid.UUID, round int) ([]*domain.ReviewAssignment, error)

	// ListByReviewer returns all assignments for a reviewer, newest first.
	ListByReviewer(ctx context.Context, reviewerID string) ([]*domain.ReviewAssignment, error)

	// Accept records the reviewer's acceptance of an open invitation.
	// Returns domain.ErrAlreadyFinalized if the assignment was already
	// submitted or declined.
	Accept(ctx context.Context, id uuid.UUID, at time.Time) error

	// Decline records the reviewer's refusal of an open invitation.
	// Returns domain.ErrAlreadyFinalized if the assignment was already
	// submitted or declined.
	Decline(ctx context.Context, id uuid.UUID, at time.Time) error

	// Submit finalizes the review with its recommendation, score, and report
	// fields. The precondition submitted_at IS NULL AND declined_at IS NULL is
	// checked at write time; a failed precondition on an existing row returns
	// domain.ErrAlreadyFinalized.
	Submit(ctx context.Context, id uuid.UUID, rec domain.Recommendation, score *float64, formFields map[string]string, at time.Time) error

	// Reopen clears submitted_at, recommendation, and score so the review can
	// be submitted again. Reopening a not-submitted assignment returns
	// domain.ErrInvalidInput.
	Reopen(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetQualityRating records the editor's rating of a submitted review.
	SetQualityRating(ctx context.Context, id uuid.UUID, rating float64) error

	// CountActive returns the reviewer's current load: assignments with no
	// submitted_at, no declined_at, and a due date after now.
	CountActive(ctx context.Context, reviewerID string, now time.Time) (int, error)
}
