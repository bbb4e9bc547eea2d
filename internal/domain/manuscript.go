package domain

import (
	"time"

	"github.com/google/uuid"
)

// Manuscript represents a submitted work tracked through the editorial lifecycle.
type Manuscript struct {
	ID uuid.UUID `json:"id"`

	// Code is the human-facing manuscript code, e.g. "MS-2026-0042".
	Code string `json:"code"`

	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords"`

	// Category is the subject area the manuscript was submitted under.
	Category string `json:"category"`

	// AuthorID is the submitting author's user id.
	AuthorID string `json:"author_id"`

	// Status changes only through the state machine.
	Status ManuscriptStatus `json:"status"`

	// Version is bumped on every status change and used for compare-and-swap.
	Version int `json:"version"`

	CreatedAt       time.Time `json:"created_at"`
	StatusChangedAt time.Time `json:"status_changed_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsActive returns true if the manuscript can still move through the lifecycle.
func (m *Manuscript) IsActive() bool {
	return !m.Status.IsTerminal()
}

// StatusHistoryEntry is an append-only record of one applied transition.
type StatusHistoryEntry struct {
	ID           uuid.UUID        `json:"id"`
	ManuscriptID uuid.UUID        `json:"manuscript_id"`
	FromStatus   ManuscriptStatus `json:"from_status"`
	ToStatus     ManuscriptStatus `json:"to_status"`
	ActorID      string           `json:"actor_id"`
	ActorRole    Role             `json:"actor_role"`
	Note         string           `json:"note,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Decision is one entry in a manuscript's append-only decision history.
type Decision struct {
	ID           uuid.UUID        `json:"id"`
	ManuscriptID uuid.UUID        `json:"manuscript_id"`
	EditorID     string           `json:"editor_id"`
	Value        ManuscriptStatus `json:"value"`
	Note         string           `json:"note,omitempty"`
	DecidedAt    time.Time        `json:"decided_at"`
}
