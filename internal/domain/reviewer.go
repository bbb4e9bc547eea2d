package domain

import (
	"time"
)

// ReviewerProfile holds a reviewer's expertise and availability, plus
// denormalized statistics recomputed after every review event.
type ReviewerProfile struct {
	// UserID ties the profile 1:1 to a user account.
	UserID string `json:"user_id"`

	Expertise []string `json:"expertise"`
	Keywords  []string `json:"keywords"`

	MaxConcurrentReviews int        `json:"max_concurrent_reviews"`
	UnavailableUntil     *time.Time `json:"unavailable_until,omitempty"`

	Statistics ReviewerStatistics `json:"statistics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAvailable reports whether the reviewer is accepting assignments at the
// given time. Capacity is checked separately against the current load.
func (p *ReviewerProfile) IsAvailable(now time.Time) bool {
	return p.UnavailableUntil == nil || !p.UnavailableUntil.After(now)
}

// ReviewerStatistics are derived aggregates over a reviewer's assignments,
// persisted on the profile for matcher tie-breaks and reporting.
type ReviewerStatistics struct {
	TotalAssignments      int        `json:"total_assignments"`
	CompletedCount        int        `json:"completed_count"`
	DeclinedCount         int        `json:"declined_count"`
	AverageCompletionDays float64    `json:"average_completion_days"`
	AverageQualityRating  float64    `json:"average_quality_rating"`
	LastReviewAt          *time.Time `json:"last_review_at,omitempty"`
}

// ReviewerCandidate pairs a profile with its current load for matching.
type ReviewerCandidate struct {
	Profile     *ReviewerProfile `json:"profile"`
	CurrentLoad int              `json:"current_load"`
}

// ReviewerSuggestion is one ranked result from the reviewer matcher.
type ReviewerSuggestion struct {
	ReviewerID  string  `json:"reviewer_id"`
	MatchScore  float64 `json:"match_score"`
	CurrentLoad int     `json:"current_load"`
}
