package workflow

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/repository"
)

// Scoring weights and ranking behaviour of the reviewer matcher.
const (
	keywordWeight  = 0.7
	expertiseBonus = 0.3

	// scoreTieWindow widens ranking ties: candidates within this score
	// distance are ordered by load, then by average quality rating.
	scoreTieWindow = 0.1

	defaultMatchThreshold = 0.2
	defaultSuggestLimit   = 10
)

// WorkloadProvider supplies a reviewer's current load.
type WorkloadProvider interface {
	CurrentLoad(ctx context.Context, reviewerID string) (int, error)
}

// MatcherConfig holds the tunable parameters of the reviewer matcher.
type MatcherConfig struct {
	// Threshold is the minimum match score for a candidate to be suggested.
	Threshold float64

	// Limit is the default maximum number of suggestions returned.
	Limit int

	// DefaultMaxConcurrent caps the load of reviewers whose profile does not
	// set its own maximum.
	DefaultMaxConcurrent int
}

// Matcher ranks reviewer candidates for a manuscript by keyword similarity
// and expertise fit, filtered by availability and capacity.
type Matcher struct {
	reviewers repository.ReviewerRepository
	workload  WorkloadProvider
	cfg       MatcherConfig
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMatcher creates a Matcher. Zero-value config fields get defaults.
func NewMatcher(reviewers repository.ReviewerRepository, workload WorkloadProvider, cfg MatcherConfig, metrics *observability.Metrics, logger zerolog.Logger) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultMatchThreshold
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultSuggestLimit
	}
	if cfg.DefaultMaxConcurrent <= 0 {
		cfg.DefaultMaxConcurrent = 3
	}
	return &Matcher{
		reviewers: reviewers,
		workload:  workload,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.With().Str("component", "matcher").Logger(),
		now:       time.Now,
	}
}

// SuggestRequest describes the manuscript the matcher finds reviewers for.
type SuggestRequest struct {
	Keywords []string
	Category string

	// AuthorID is always excluded from the candidate pool.
	AuthorID string

	// Exclude lists additional reviewer IDs to skip, e.g. reviewers already
	// invited in this round.
	Exclude []string

	// Limit overrides the configured suggestion limit when positive.
	Limit int
}

// Suggest returns ranked reviewer suggestions for the request.
//
// Each eligible candidate is scored as
//
//	score = 0.7*jaccard(keywords) + 0.3 if expertise matches the category
//
// and kept when the score reaches the threshold. Candidates are ordered by
// score; within the tie window the less loaded reviewer ranks first, then the
// one with the higher average quality rating.
func (m *Matcher) Suggest(ctx context.Context, req SuggestRequest) ([]domain.ReviewerSuggestion, error) {
	start := m.now()

	profiles, err := m.reviewers.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(req.Exclude)+1)
	excluded[req.AuthorID] = true
	for _, id := range req.Exclude {
		excluded[id] = true
	}

	wantKeywords := normalizeKeywords(req.Keywords)
	now := m.now()

	type scored struct {
		suggestion domain.ReviewerSuggestion
		rating     float64
	}
	candidates := make([]scored, 0, len(profiles))

	for _, p := range profiles {
		if excluded[p.UserID] || !p.IsAvailable(now) {
			continue
		}

		load, err := m.workload.CurrentLoad(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		maxConcurrent := p.MaxConcurrentReviews
		if maxConcurrent <= 0 {
			maxConcurrent = m.cfg.DefaultMaxConcurrent
		}
		if load >= maxConcurrent {
			continue
		}

		score := keywordWeight * jaccard(wantKeywords, normalizeKeywords(p.Keywords))
		if expertiseMatches(p.Expertise, req.Category) {
			score += expertiseBonus
		}
		if score < m.cfg.Threshold {
			continue
		}

		candidates = append(candidates, scored{
			suggestion: domain.ReviewerSuggestion{
				ReviewerID:  p.UserID,
				MatchScore:  score,
				CurrentLoad: load,
			},
			rating: p.Statistics.AverageQualityRating,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		diff := a.suggestion.MatchScore - b.suggestion.MatchScore
		if diff > scoreTieWindow {
			return true
		}
		if diff < -scoreTieWindow {
			return false
		}
		if a.suggestion.CurrentLoad != b.suggestion.CurrentLoad {
			return a.suggestion.CurrentLoad < b.suggestion.CurrentLoad
		}
		return a.rating > b.rating
	})

	limit := req.Limit
	if limit <= 0 {
		limit = m.cfg.Limit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]domain.ReviewerSuggestion, len(candidates))
	for i, c := range candidates {
		out[i] = c.suggestion
	}

	if m.metrics != nil {
		m.metrics.RecordSuggestion(len(out), m.now().Sub(start).Seconds())
	}
	m.logger.Debug().
		Int("pool_size", len(profiles)).
		Int("suggested", len(out)).
		Msg("reviewer suggestions computed")

	return out, nil
}

// normalizeKeywords lowercases and trims keywords and drops empties and
// duplicates, preserving first-seen order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// jaccard computes set overlap over normalized keyword slices. Two empty
// sets score zero, not one.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inA := make(map[string]bool, len(a))
	for _, k := range a {
		inA[k] = true
	}
	intersection := 0
	for _, k := range b {
		if inA[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// expertiseMatches reports whether any expertise term and the category
// contain one another, case-insensitively.
func expertiseMatches(expertise []string, category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	for _, e := range expertise {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if strings.Contains(e, category) || strings.Contains(category, e) {
			return true
		}
	}
	return false
}
