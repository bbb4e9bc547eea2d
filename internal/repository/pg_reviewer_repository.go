package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Compile-time interface verification.
var _ ReviewerRepository = (*PgReviewerRepository)(nil)

// PgReviewerRepository is a PostgreSQL implementation of ReviewerRepository.
type PgReviewerRepository struct {
	db DBTX
}

// NewPgReviewerRepository creates a new PostgreSQL reviewer repository.
func NewPgReviewerRepository(db DBTX) *PgReviewerRepository {
	return &PgReviewerRepository{db: db}
}

const reviewerColumns = `user_id, expertise, keywords, max_concurrent_reviews, unavailable_until,
		total_assignments, completed_count, declined_count,
		average_completion_days, average_quality_rating, last_review_at,
		created_at, updated_at`

// Upsert inserts or replaces a reviewer profile.
func (r *PgReviewerRepository) Upsert(ctx context.Context, p *domain.ReviewerProfile) error {
	if p == nil {
		return domain.NewValidationError("profile", "profile cannot be nil")
	}
	if p.UserID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if p.MaxConcurrentReviews < 1 {
		return domain.NewValidationError("max_concurrent_reviews", "max concurrent reviews must be >= 1")
	}

	expertiseJSON, err := json.Marshal(p.Expertise)
	if err != nil {
		return fmt.Errorf("failed to marshal expertise: %w", err)
	}
	keywordsJSON, err := json.Marshal(p.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	query := `
		INSERT INTO reviewer_profiles (
			user_id, expertise, keywords, max_concurrent_reviews, unavailable_until,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7
		)
		ON CONFLICT (user_id) DO UPDATE SET
			expertise = EXCLUDED.expertise,
			keywords = EXCLUDED.keywords,
			max_concurrent_reviews = EXCLUDED.max_concurrent_reviews,
			unavailable_until = EXCLUDED.unavailable_until,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		p.UserID, expertiseJSON, keywordsJSON, p.MaxConcurrentReviews, p.UnavailableUntil,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reviewer profile: %w", err)
	}

	return nil
}

// Get retrieves a reviewer profile by user ID.
func (r *PgReviewerRepository) Get(ctx context.Context, userID string) (*domain.ReviewerProfile, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		SELECT ` + reviewerColumns + `
		FROM reviewer_profiles
		WHERE user_id = $1`

	row := r.db.QueryRow(ctx, query, userID)
	p, err := scanReviewer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("reviewer profile", userID)
		}
		return nil, fmt.Errorf("failed to get reviewer profile: %w", err)
	}

	return p, nil
}

// ListAll returns every reviewer profile.
func (r *PgReviewerRepository) ListAll(ctx context.Context) ([]*domain.ReviewerProfile, error) {
	query := `
		SELECT ` + reviewerColumns + `
		FROM reviewer_profiles
		ORDER BY user_id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewer profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.ReviewerProfile
	for rows.Next() {
		var dest reviewerScanDest
		if err := rows.Scan(dest.destinations()...); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer profile: %w", err)
		}
		p, err := dest.finalize()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviewer profiles: %w", err)
	}

	return profiles, nil
}

// UpdateStatistics persists recomputed denormalized statistics.
func (r *PgReviewerRepository) UpdateStatistics(ctx context.Context, userID string, stats domain.ReviewerStatistics) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		UPDATE reviewer_profiles
		SET total_assignments = $1,
			completed_count = $2,
			declined_count = $3,
			average_completion_days = $4,
			average_quality_rating = $5,
			last_review_at = $6,
			updated_at = $7
		WHERE user_id = $8`

	result, err := r.db.Exec(ctx, query,
		stats.TotalAssignments, stats.CompletedCount, stats.DeclinedCount,
		stats.AverageCompletionDays, stats.AverageQualityRating, stats.LastReviewAt,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reviewer statistics: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("reviewer profile", userID)
	}

	return nil
}

// reviewerScanDest holds the destination pointers for scanning a reviewer profile row.
type reviewerScanDest struct {
	p             domain.ReviewerProfile
	expertiseJSON []byte
	keywordsJSON  []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *reviewerScanDest) destinations() []interface{} {
	return []interface{}{
		&d.p.UserID, &d.expertiseJSON, &d.keywordsJSON, &d.p.MaxConcurrentReviews, &d.p.UnavailableUntil,
		&d.p.Statistics.TotalAssignments, &d.p.Statistics.CompletedCount, &d.p.Statistics.DeclinedCount,
		&d.p.Statistics.AverageCompletionDays, &d.p.Statistics.AverageQualityRating, &d.p.Statistics.LastReviewAt,
		&d.p.CreatedAt, &d.p.UpdatedAt,
	}
}

// finalize performs post-scan processing.
func (d *reviewerScanDest) finalize() (*domain.ReviewerProfile, error) {
	if len(d.expertiseJSON) > 0 {
		if err := json.Unmarshal(d.expertiseJSON, &d.p.Expertise); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expertise: %w", err)
		}
	}
	if len(d.keywordsJSON) > 0 {
		if err := json.Unmarshal(d.keywordsJSON, &d.p.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}
	return &d.p, nil
}

// scanReviewer scans a single row into a ReviewerProfile.
func scanReviewer(row pgx.Row) (*domain.ReviewerProfile, error) {
	var dest reviewerScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
