package repository

import (
	"context"

	"github.com/openjournal/editorial-service/internal/domain"
)

// ReviewerRepository handles reviewer profile persistence.
type ReviewerRepository interface {
	// Upsert inserts or replaces a reviewer profile. Statistics are not
	// touched on update; use UpdateStatistics for those.
	Upsert(ctx context.Context, p *domain.ReviewerProfile) error

	// Get retrieves a reviewer profile by user ID.
	// Returns domain.ErrNotFound if no matching profile exists.
	Get(ctx context.Context, userID string) (*domain.ReviewerProfile, error)

	// ListAll returns every reviewer profile. The pool is moderate-sized, a
	// single pass over it is the matcher's candidate source.
	ListAll(ctx context.Context) ([]*domain.ReviewerProfile, error)

	// UpdateStatistics persists recomputed denormalized statistics.
	// Returns domain.ErrNotFound if no matching profile exists.
	UpdateStatistics(ctx context.Context, userID string, stats domain.ReviewerStatistics) error
}
