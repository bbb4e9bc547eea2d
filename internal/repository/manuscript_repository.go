package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
)

// ManuscriptRepository handles manuscript persistence, status history, and
// the append-only decision record.
type ManuscriptRepository interface {
	// Create inserts a new manuscript in its initial state.
	// Returns domain.ErrAlreadyExists if a manuscript with the same ID or code exists.
	Create(ctx context.Context, m *domain.Manuscript) error

	// Get retrieves a manuscript by ID.
	// Returns domain.ErrNotFound if no matching manuscript exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Manuscript, error)

	// List retrieves manuscripts matching the filter criteria.
	// Returns the matching manuscripts and total count for pagination.
	List(ctx context.Context, filter ManuscriptFilter) ([]*domain.Manuscript, int64, error)

	// UpdateStatusCAS applies a status change with compare-and-swap semantics.
	// The write succeeds only if the stored status and version still match
	// expectedStatus and expectedVersion; the version is bumped on success.
	//
	// Returns domain.ErrNotFound if the manuscript does not exist, and
	// domain.ErrConflict if it exists but was modified concurrently.
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, expectedStatus domain.ManuscriptStatus, expectedVersion int, newStatus domain.ManuscriptStatus, changedAt time.Time) error

	// AppendStatusHistory appends one status-history record.
	AppendStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error

	// ListStatusHistory returns a manuscript's status history, oldest first.
	ListStatusHistory(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.StatusHistoryEntry, error)

	// AppendDecision appends one decision-history record. Decision rows are
	// never updated or deleted.
	AppendDecision(ctx context.Context, d *domain.Decision) error

	// ListDecisions returns a manuscript's decision history, oldest first.
	ListDecisions(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Decision, error)
}

// ManuscriptFilter specifies criteria for listing manuscripts.
type ManuscriptFilter struct {
	// Status filters by one or more manuscript statuses (optional).
	Status []domain.ManuscriptStatus

	// AuthorID filters by submitting author (optional).
	AuthorID string

	// Category filters by subject area (optional).
	Category string

	// CreatedAfter filters to manuscripts created after this timestamp (optional).
	CreatedAfter *time.Time

	// CreatedBefore filters to manuscripts created before this timestamp (optional).
	CreatedBefore *time.Time

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate normalizes pagination values and checks status values.
func (f *ManuscriptFilter) Validate() error {
	for _, s := range f.Status {
		if !s.IsValid() {
			return domain.NewValidationError("status", "unknown manuscript status: "+string(s))
		}
	}

	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
