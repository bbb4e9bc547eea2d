package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deadline tracks one dated obligation on a manuscript.
type Deadline struct {
	ID           uuid.UUID    `json:"id"`
	ManuscriptID uuid.UUID    `json:"manuscript_id"`
	Type         DeadlineType `json:"type"`
	DueDate      time.Time    `json:"due_date"`

	// AssignedTo is the user responsible for meeting the deadline, if any.
	AssignedTo string `json:"assigned_to,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// IsOverdue is a cached flag maintained by the deadline monitor.
	IsOverdue bool `json:"is_overdue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

/// IsOverdueAt recomputes the overdue flag: past due and not completed.
func (d *Deadline) IsOverdueAt(now time.Time) bool {
	return d.DueDate.Before(now) && d.CompletedAt == nil
}
