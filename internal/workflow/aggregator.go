package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Aggregate maps the submitted recommendations of one review round to a
// suggested decision. Precedence, first rule that matches wins:
//
//  1. Two or more REJECT: REJECTED.
//  2. Two or more MAJOR: REVISION.
//  3. Two or more MINOR: REVISION.
//  4. Two or more ACCEPT: ACCEPTED.
//
// The second return value is false when no rule matches; the editor decides
// manually. The suggestion is advisory and never applied automatically.
func Aggregate(recs []domain.Recommendation) (domain.ManuscriptStatus, bool) {
	counts := make(map[domain.Recommendation]int, 4)
	for _, r := range recs {
		counts[r]++
	}
	switch {
	case counts[domain.RecommendationReject] >= 2:
		return domain.ManuscriptStatusRejected, true
	case counts[domain.RecommendationMajor] >= 2:
		return domain.ManuscriptStatusRevision, true
	case counts[domain.RecommendationMinor] >= 2:
		return domain.ManuscriptStatusRevision, true
	case counts[domain.RecommendationAccept] >= 2:
		return domain.ManuscriptStatusAccepted, true
	default:
		return "", false
	}
}

// DecisionSuggestion is the aggregated advisory outcome of a review round.
type DecisionSuggestion struct {
	// Suggestion is the suggested status, empty when HasSuggestion is false.
	Suggestion domain.ManuscriptStatus `json:"suggestion,omitempty"`

	// HasSuggestion is false when the recommendations are too few or too
	// split for any rule to fire.
	HasSuggestion bool `json:"has_suggestion"`

	// Counts tallies the submitted recommendations that were considered.
	Counts map[domain.Recommendation]int `json:"counts"`

	// Considered is the number of submitted reviews in the round.
	Considered int `json:"considered"`
}

// SuggestDecision aggregates the submitted recommendations of the given
// review round (round <= 0 means all rounds) into an advisory decision.
// Unsubmitted and declined assignments are ignored.
func (e *Engine) SuggestDecision(ctx context.Context, manuscriptID uuid.UUID, round int) (*DecisionSuggestion, error) {
	assignments, err := e.store.Repos().Assignments.ListByManuscript(ctx, manuscriptID, round)
	if err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, 0, len(assignments))
	counts := make(map[domain.Recommendation]int, 4)
	for _, a := range assignments {
		if a.SubmittedAt == nil || a.Recommendation == nil {
			continue
		}
		recs = append(recs, *a.Recommendation)
		counts[*a.Recommendation]++
	}

	suggestion, ok := Aggregate(recs)
	return &DecisionSuggestion{
		Suggestion:    suggestion,
		HasSuggestion: ok,
		Counts:        counts,
		Considered:    len(recs),
	}, nil
}
