package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/repository"
)

// LoadCache caches per-reviewer load counts. A cache outage must never fail
// a request; the Tracker falls back to the database on any cache error.
type LoadCache interface {
	// GetLoad returns the cached load and whether the key was present.
	GetLoad(ctx context.Context, reviewerID string) (int, bool, error)

	// SetLoad stores the load under the cache's TTL.
	SetLoad(ctx context.Context, reviewerID string, load int) error

	// Invalidate drops the cached load.
	Invalidate(ctx context.Context, reviewerID string) error
}

// Tracker maintains reviewer load counts and denormalized statistics.
type Tracker struct {
	assignments repository.AssignmentRepository
	reviewers   repository.ReviewerRepository
	cache       LoadCache
	metrics     *observability.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTracker creates a Tracker. The cache may be nil, in which case every
// load read goes to the database.
func NewTracker(assignments repository.AssignmentRepository, reviewers repository.ReviewerRepository, cache LoadCache, metrics *observability.Metrics, logger zerolog.Logger) *Tracker {
	return &Tracker{
		assignments: assignments,
		reviewers:   reviewers,
		cache:       cache,
		metrics:     metrics,
		logger:      logger.With().Str("component", "workload").Logger(),
		now:         time.Now,
	}
}

// CurrentLoad returns the reviewer's number of actionable assignments: not
// submitted, not declined, and not past due. Reads go through the cache when
// one is configured.
func (t *Tracker) CurrentLoad(ctx context.Context, reviewerID string) (int, error) {
	if t.cache != nil {
		load, ok, err := t.cache.GetLoad(ctx, reviewerID)
		if err != nil {
			t.logger.Warn().Err(err).Str("reviewer_id", reviewerID).Msg("load cache read failed, falling back to database")
		} else if ok {
			if t.metrics != nil {
				t.metrics.RecordWorkloadCacheHit()
			}
			return load, nil
		} else if t.metrics != nil {
			t.metrics.RecordWorkloadCacheMiss()
		}
	}

	load, err := t.assignments.CountActive(ctx, reviewerID, t.now())
	if err != nil {
		return 0, err
	}
	if t.cache != nil {
		if err := t.cache.SetLoad(ctx, reviewerID, load); err != nil {
			t.logger.Warn().Err(err).Str("reviewer_id", reviewerID).Msg("load cache write failed")
		}
	}
	return load, nil
}

// InvalidateLoad drops the reviewer's cached load. Called after any
// assignment write that changes the count.
func (t *Tracker) InvalidateLoad(ctx context.Context, reviewerID string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Invalidate(ctx, reviewerID); err != nil {
		t.logger.Warn().Err(err).Str("reviewer_id", reviewerID).Msg("load cache invalidation failed")
	}
}

// RefreshStatistics recomputes the reviewer's denormalized statistics from
// the full assignment history, persists them, and refreshes the cached load.
func (t *Tracker) RefreshStatistics(ctx context.Context, reviewerID string) error {
	assignments, err := t.assignments.ListByReviewer(ctx, reviewerID)
	if err != nil {
		return err
	}

	stats := computeStatistics(assignments)
	if err := t.reviewers.UpdateStatistics(ctx, reviewerID, stats); err != nil {
		return err
	}

	if t.cache != nil {
		load, err := t.assignments.CountActive(ctx, reviewerID, t.now())
		if err != nil {
			t.logger.Warn().Err(err).Str("reviewer_id", reviewerID).Msg("load recount failed after statistics refresh")
			t.InvalidateLoad(ctx, reviewerID)
		} else if err := t.cache.SetLoad(ctx, reviewerID, load); err != nil {
			t.logger.Warn().Err(err).Str("reviewer_id", reviewerID).Msg("load cache write failed")
		}
	}
	return nil
}

// computeStatistics derives the persisted aggregates from the assignment
// history. Quality ratings average only over rated reviews.
func computeStatistics(assignments []*domain.ReviewAssignment) domain.ReviewerStatistics {
	var stats domain.ReviewerStatistics
	stats.TotalAssignments = len(assignments)

	var (
		completionSum float64
		ratingSum     float64
		ratedCount    int
	)
	for _, a := range assignments {
		if a.DeclinedAt != nil {
			stats.DeclinedCount++
		}
		if days, ok := a.CompletionDays(); ok {
			stats.CompletedCount++
			completionSum += days
			if stats.LastReviewAt == nil || a.SubmittedAt.After(*stats.LastReviewAt) {
				at := *a.SubmittedAt
				stats.LastReviewAt = &at
			}
		}
		if a.QualityRating != nil {
			ratingSum += *a.QualityRating
			ratedCount++
		}
	}
	if stats.CompletedCount > 0 {
		stats.AverageCompletionDays = completionSum / float64(stats.CompletedCount)
	}
	if ratedCount > 0 {
		stats.AverageQualityRating = ratingSum / float64(ratedCount)
	}
	return stats
}

var _ WorkloadProvider = (*Tracker)(nil)
