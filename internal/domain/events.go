package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for outbox events.
const (
	EventTypeManuscriptSubmitted  = "manuscript.submitted"
	EventTypeManuscriptTransition = "manuscript.status_changed"
	EventTypeManuscriptPublished  = "manuscript.published"
	EventTypeReviewInvited        = "review.invited"
	EventTypeReviewAccepted       = "review.accepted"
	EventTypeReviewDeclined       = "review.declined"
	EventTypeReviewSubmitted      = "review.submitted"
	EventTypeReviewReopened       = "review.reopened"
	EventTypeDeadlineOverdue      = "deadline.overdue"
)

// OutboxEvent represents an event to be published via the outbox pattern.
type OutboxEvent struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Metadata      map[string]interface{}
	CreatedAt     time.Time
}

// NewOutboxEvent creates a new outbox event with the given parameters.
// The payload is JSON-serialized automatically.
func NewOutboxEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*OutboxEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now(),
	}, nil
}

// WithMetadata sets the metadata on the event.
func (e *OutboxEvent) WithMetadata(metadata map[string]interface{}) *OutboxEvent {
	e.Metadata = metadata
	return e
}

// ManuscriptSubmittedPayload is the payload for manuscript.submitted events.
type ManuscriptSubmittedPayload struct {
	ManuscriptID uuid.UUID `json:"manuscript_id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	AuthorID     string    `json:"author_id"`
	Category     string    `json:"category"`
}

// ManuscriptTransitionPayload is the payload for manuscript.status_changed events.
type ManuscriptTransitionPayload struct {
	ManuscriptID uuid.UUID        `json:"manuscript_id"`
	Code         string           `json:"code"`
	FromStatus   ManuscriptStatus `json:"from_status"`
	ToStatus     ManuscriptStatus `json:"to_status"`
	ActorID      string           `json:"actor_id"`
	ActorRole    Role             `json:"actor_role"`
	Note         string           `json:"note,omitempty"`
}

// ReviewInvitedPayload is the payload for review.invited events.
type ReviewInvitedPayload struct {
	ReviewID     uuid.UUID `json:"review_id"`
	ManuscriptID uuid.UUID `json:"manuscript_id"`
	ReviewerID   string    `json:"reviewer_id"`
	Round        int       `json:"round"`
	DueDate      time.Time `json:"due_date"`
}

// ReviewSubmittedPayload is the payload for review.submitted events.
type ReviewSubmittedPayload struct {
	ReviewID       uuid.UUID      `json:"review_id"`
	ManuscriptID   uuid.UUID      `json:"manuscript_id"`
	ReviewerID     string         `json:"reviewer_id"`
	Round          int            `json:"round"`
	Recommendation Recommendation `json:"recommendation"`
}

// ReviewReopenedPayload is the payload for review.reopened events.
type ReviewReopenedPayload struct {
	ReviewID     uuid.UUID `json:"review_id"`
	ManuscriptID uuid.UUID `json:"manuscript_id"`
	ReviewerID   string    `json:"reviewer_id"`
	ReopenedBy   string    `json:"reopened_by"`
	Reason       string    `json:"reason,omitempty"`
}

// DeadlineOverduePayload is the payload for deadline.overdue events.
type DeadlineOverduePayload struct {
	DeadlineID   uuid.UUID    `json:"deadline_id"`
	ManuscriptID uuid.UUID    `json:"manuscript_id"`
	Type         DeadlineType `json:"type"`
	DueDate      time.Time    `json:"due_date"`
	AssignedTo   string       `json:"assigned_to,omitempty"`
}

// AuditEntry is one append-only audit record of an actor's action.
type AuditEntry struct {
	ID         uuid.UUID              `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  Role                   `json:"actor_role"`
	Action     string                 `json:"action"`
	ObjectType string                 `json:"object_type"`
	ObjectID   string                 `json:"object_id"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
