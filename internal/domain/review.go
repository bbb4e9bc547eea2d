package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewAssignment represents one reviewer's engagement with a manuscript in a
// given review round.
//
// Invariants: SubmittedAt and DeclinedAt are mutually exclusive; a non-nil
// Recommendation implies SubmittedAt is set.
type ReviewAssignment struct {
	ID           uuid.UUID `json:"id"`
	ManuscriptID uuid.UUID `json:"manuscript_id"`
	ReviewerID   string    `json:"reviewer_id"`
	Round        int       `json:"round"`

	InvitedAt   time.Time  `json:"invited_at"`
	DueDate     time.Time  `json:"due_date"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt  *time.Time `json:"declined_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	Recommendation *Recommendation `json:"recommendation,omitempty"`

	// Score is the reviewer's numeric assessment, 0-10.
	Score *float64 `json:"score,omitempty"`

	// QualityRating is the editor's rating of the review itself, 1-5.
	QualityRating *float64 `json:"quality_rating,omitempty"`

	// FormFields holds the free-form review report fields.
	FormFields map[string]string `json:"form_fields,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinalized returns true once the assignment has been submitted or declined.
func (a *ReviewAssignment) IsFinalized() bool {
	return a.SubmittedAt != nil || a.DeclinedAt != nil
}

// IsActionable reports whether the assignment still counts toward the
// reviewer's workload: not submitted, not declined, and not past its due date.
func (a *ReviewAssignment) IsActionable(now time.Time) bool {
	return a.SubmittedAt == nil && a.DeclinedAt == nil && a.DueDate.After(now)
}

// CompletionDays returns the elapsed days between invitation and submission.
// The second return value is false if the assignment was never submitted.
func (a *ReviewAssignment) CompletionDays() (float64, bool) {
	if a.SubmittedAt == nil {
		return 0, false
	}
	return a.SubmittedAt.Sub(a.InvitedAt).Hours() / 24, true
}
