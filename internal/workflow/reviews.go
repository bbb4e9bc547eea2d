package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/audit"
	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
)

// ReviewServiceConfig holds the tunables of the review service.
type ReviewServiceConfig struct {
	// ReviewDuration is the default horizon for review due dates when the
	// invitation does not set one.
	ReviewDuration time.Duration

	// DefaultMaxConcurrent caps reviewer load when the profile does not set
	// its own maximum. Exceeding it logs a warning but does not block the
	// editor's invitation.
	DefaultMaxConcurrent int
}

// ReviewService owns review assignments: invitations, responses,
// submissions, reopens, and quality ratings.
type ReviewService struct {
	store    Store
	workload *Tracker
	cfg      ReviewServiceConfig
	notifier Notifier
	audit    audit.Recorder
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReviewService creates a ReviewService.
func NewReviewService(store Store, workload *Tracker, cfg ReviewServiceConfig, opts Options) *ReviewService {
	if cfg.ReviewDuration <= 0 {
		cfg.ReviewDuration = 21 * 24 * time.Hour
	}
	if cfg.DefaultMaxConcurrent <= 0 {
		cfg.DefaultMaxConcurrent = 3
	}
	opts = opts.withDefaults()
	return &ReviewService{
		store:    store,
		workload: workload,
		cfg:      cfg,
		notifier: opts.Notifier,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("component", "reviews").Logger(),
		now:      opts.Now,
	}
}

// InviteRequest asks to assign a reviewer to a manuscript round.
type InviteRequest struct {
	ManuscriptID uuid.UUID
	ReviewerID   string
	Round        int

	// DueDate overrides the default review horizon when set.
	DueDate *time.Time

	Actor domain.Actor
}

// InviteReviewer creates a review assignment and its REVIEW_SUBMISSION
// deadline. The manuscript must be under review, the reviewer must have a
// profile, and the reviewer must not be the author. A reviewer at capacity
// is warned about but not refused; the editor overrides the matcher here.
func (s *ReviewService) InviteReviewer(ctx context.Context, req InviteRequest) (*domain.ReviewAssignment, error) {
	if !req.Actor.Role.IsEditorTier() {
		return nil, &domain.ForbiddenError{Role: req.Actor.Role, Operation: "invite reviewers"}
	}
	if req.ReviewerID == "" {
		return nil, domain.NewValidationError("reviewer_id", "must not be empty")
	}
	round := req.Round
	if round <= 0 {
		round = 1
	}

	now := s.now().UTC()
	dueDate := now.Add(s.cfg.ReviewDuration)
	if req.DueDate != nil {
		if !req.DueDate.After(now) {
			return nil, domain.NewValidationError("due_date", "must be in the future")
		}
		dueDate = req.DueDate.UTC()
	}

	var (
		assignment *domain.ReviewAssignment
		manuscript *domain.Manuscript
	)
	err := s.store.InTransaction(ctx, func(r Repos) error {
		m, err := r.Manuscripts.Get(ctx, req.ManuscriptID)
		if err != nil {
			return err
		}
		if m.Status != domain.ManuscriptStatusUnderReview {
			return domain.NewValidationError("manuscript", "not under review")
		}
		if m.AuthorID == req.ReviewerID {
			return domain.NewValidationError("reviewer_id", "reviewer is the manuscript author")
		}
		manuscript = m

		profile, err := r.Reviewers.Get(ctx, req.ReviewerID)
		if err != nil {
			return err
		}
		if !profile.IsAvailable(now) {
			s.logger.Warn().
				Str("reviewer_id", req.ReviewerID).
				Time("unavailable_until", *profile.UnavailableUntil).
				Msg("inviting reviewer marked unavailable")
		}

		a := &domain.ReviewAssignment{
			ID:           uuid.New(),
			ManuscriptID: m.ID,
			ReviewerID:   req.ReviewerID,
			Round:        round,
			InvitedAt:    now,
			DueDate:      dueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.Assignments.Create(ctx, a); err != nil {
			return err
		}

		if err := r.Deadlines.Upsert(ctx, &domain.Deadline{
			ID:           uuid.New(),
			ManuscriptID: m.ID,
			Type:         domain.DeadlineTypeReviewSubmission,
			DueDate:      dueDate,
			AssignedTo:   req.ReviewerID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}

		evt, err := domain.NewOutboxEvent(domain.EventTypeReviewInvited, m.ID.String(), "manuscript", domain.ReviewInvitedPayload{
			ReviewID:     a.ID,
			ManuscriptID: m.ID,
			ReviewerID:   a.ReviewerID,
			Round:        a.Round,
			DueDate:      a.DueDate,
		})
		if err != nil {
			return fmt.Errorf("building invitation event: %w", err)
		}
		if err := r.Outbox.Insert(ctx, evt); err != nil {
			return err
		}

		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.warnIfAtCapacity(ctx, req.ReviewerID)
	s.workload.InvalidateLoad(ctx, req.ReviewerID)

	if s.metrics != nil {
		s.metrics.RecordReviewInvited()
	}
	if err := s.notifier.NotifyReviewInvited(ctx, assignment, manuscript); err != nil {
		s.logger.Warn().Err(err).
			Str("review_id", assignment.ID.String()).
			Msg("invitation notification failed")
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    req.Actor.UserID,
		ActorRole:  req.Actor.Role,
		Action:     "review.invite",
		ObjectType: "review_assignment",
		ObjectID:   assignment.ID.String(),
		Detail: map[string]interface{}{
			"manuscript_id": req.ManuscriptID.String(),
			"reviewer_id":   req.ReviewerID,
			"round":         round,
		},
		CreatedAt: now,
	})
	s.logger.Info().
		Str("review_id", assignment.ID.String()).
		Str("manuscript_id", req.ManuscriptID.String()).
		Str("reviewer_id", req.ReviewerID).
		Int("round", round).
		Msg("reviewer invited")

	return assignment, nil
}

// warnIfAtCapacity logs when an invitation pushed a reviewer past their
// concurrent maximum. The count is advisory only.
func (s *ReviewService) warnIfAtCapacity(ctx context.Context, reviewerID string) {
	load, err := s.workload.CurrentLoad(ctx, reviewerID)
	if err != nil {
		return
	}
	maxConcurrent := s.cfg.DefaultMaxConcurrent
	if p, err := s.store.Repos().Reviewers.Get(ctx, reviewerID); err == nil && p.MaxConcurrentReviews > 0 {
		maxConcurrent = p.MaxConcurrentReviews
	}
	if load > maxConcurrent {
		s.logger.Warn().
			Str("reviewer_id", reviewerID).
			Int("load", load).
			Int("max_concurrent", maxConcurrent).
			Msg("reviewer over concurrent review capacity")
	}
}

// ResponseRequest carries a reviewer's accept or decline of an invitation.
type ResponseRequest struct {
	ReviewID uuid.UUID
	Accept   bool
	Actor    domain.Actor
}

// RespondToInvite records the reviewer's response. Only the invited reviewer
// may respond; a declined assignment refreshes the reviewer's statistics.
func (s *ReviewService) RespondToInvite(ctx context.Context, req ResponseRequest) error {
	now := s.now().UTC()

	var assignment *domain.ReviewAssignment
	err := s.store.InTransaction(ctx, func(r Repos) error {
		a, err := r.Assignments.Get(ctx, req.ReviewID)
		if err != nil {
			return err
		}
		if a.ReviewerID != req.Actor.UserID {
			return &domain.ForbiddenError{Role: req.Actor.Role, Operation: "respond to another reviewer's invitation"}
		}
		assignment = a

		eventType := domain.EventTypeReviewAccepted
		if req.Accept {
			err = r.Assignments.Accept(ctx, a.ID, now)
		} else {
			eventType = domain.EventTypeReviewDeclined
			err = r.Assignments.Decline(ctx, a.ID, now)
		}
		if err != nil {
			return err
		}

		evt, err := domain.NewOutboxEvent(eventType, a.ManuscriptID.String(), "manuscript", domain.ReviewInvitedPayload{
			ReviewID:     a.ID,
			ManuscriptID: a.ManuscriptID,
			ReviewerID:   a.ReviewerID,
			Round:        a.Round,
			DueDate:      a.DueDate,
		})
		if err != nil {
			return fmt.Errorf("building response event: %w", err)
		}
		return r.Outbox.Insert(ctx, evt)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewResponse(req.Accept)
	}
	if !req.Accept {
		if err := s.workload.RefreshStatistics(ctx, assignment.ReviewerID); err != nil {
			s.logger.Warn().Err(err).
				Str("reviewer_id", assignment.ReviewerID).
				Msg("statistics refresh failed after decline")
		}
		s.workload.InvalidateLoad(ctx, assignment.ReviewerID)
	}
	s.logger.Info().
		Str("review_id", req.ReviewID.String()).
		Bool("accepted", req.Accept).
		Msg("review invitation answered")

	return nil
}

// SubmitReviewRequest carries a completed review.
type SubmitReviewRequest struct {
	ReviewID       uuid.UUID
	Recommendation domain.Recommendation
	Score          *float64
	FormFields     map[string]string
	Actor          domain.Actor
}

// SubmitReview finalizes a review. The one-way gate (not already submitted
// or declined) is enforced in the repository's UPDATE predicate, never by a
// prior read. Submission completes the reviewer's REVIEW_SUBMISSION deadline
// and refreshes their statistics.
func (s *ReviewService) SubmitReview(ctx context.Context, req SubmitReviewRequest) error {
	if !req.Recommendation.IsValid() {
		return domain.NewValidationError("recommendation", "unknown recommendation: "+string(req.Recommendation))
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 10) {
		return domain.NewValidationError("score", "must be between 0 and 10")
	}

	now := s.now().UTC()

	var assignment *domain.ReviewAssignment
	err := s.store.InTransaction(ctx, func(r Repos) error {
		a, err := r.Assignments.Get(ctx, req.ReviewID)
		if err != nil {
			return err
		}
		if a.ReviewerID != req.Actor.UserID {
			return &domain.ForbiddenError{Role: req.Actor.Role, Operation: "submit another reviewer's review"}
		}
		assignment = a

		if err := r.Assignments.Submit(ctx, a.ID, req.Recommendation, req.Score, req.FormFields, now); err != nil {
			return err
		}
		if err := r.Deadlines.Complete(ctx, a.ManuscriptID, domain.DeadlineTypeReviewSubmission, now); err != nil {
			return err
		}

		evt, err := domain.NewOutboxEvent(domain.EventTypeReviewSubmitted, a.ManuscriptID.String(), "manuscript", domain.ReviewSubmittedPayload{
			ReviewID:       a.ID,
			ManuscriptID:   a.ManuscriptID,
			ReviewerID:     a.ReviewerID,
			Round:          a.Round,
			Recommendation: req.Recommendation,
		})
		if err != nil {
			return fmt.Errorf("building submission event: %w", err)
		}
		return r.Outbox.Insert(ctx, evt)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewSubmitted(string(req.Recommendation), now.Sub(assignment.InvitedAt).Hours()/24)
	}
	if err := s.workload.RefreshStatistics(ctx, assignment.ReviewerID); err != nil {
		s.logger.Warn().Err(err).
			Str("reviewer_id", assignment.ReviewerID).
			Msg("statistics refresh failed after submission")
	}
	s.workload.InvalidateLoad(ctx, assignment.ReviewerID)
	s.logger.Info().
		Str("review_id", req.ReviewID.String()).
		Str("recommendation", string(req.Recommendation)).
		Msg("review submitted")

	return nil
}

// ReopenRequest asks to clear a submitted review so it can be resubmitted.
type ReopenRequest struct {
	ReviewID uuid.UUID
	Reason   string
	Actor    domain.Actor
}

// ReopenReview clears a submitted review. Editor tier only; the write-time
// predicate rejects reopening a review that was never submitted.
func (s *ReviewService) ReopenReview(ctx context.Context, req ReopenRequest) error {
	if !req.Actor.Role.IsEditorTier() {
		return &domain.ForbiddenError{Role: req.Actor.Role, Operation: "reopen reviews"}
	}

	now := s.now().UTC()

	var assignment *domain.ReviewAssignment
	err := s.store.InTransaction(ctx, func(r Repos) error {
		a, err := r.Assignments.Get(ctx, req.ReviewID)
		if err != nil {
			return err
		}
		assignment = a

		if err := r.Assignments.Reopen(ctx, a.ID, now); err != nil {
			return err
		}

		evt, err := domain.NewOutboxEvent(domain.EventTypeReviewReopened, a.ManuscriptID.String(), "manuscript", domain.ReviewReopenedPayload{
			ReviewID:     a.ID,
			ManuscriptID: a.ManuscriptID,
			ReviewerID:   a.ReviewerID,
			ReopenedBy:   req.Actor.UserID,
			Reason:       req.Reason,
		})
		if err != nil {
			return fmt.Errorf("building reopen event: %w", err)
		}
		return r.Outbox.Insert(ctx, evt)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewReopened()
	}
	if err := s.workload.RefreshStatistics(ctx, assignment.ReviewerID); err != nil {
		s.logger.Warn().Err(err).
			Str("reviewer_id", assignment.ReviewerID).
			Msg("statistics refresh failed after reopen")
	}
	s.workload.InvalidateLoad(ctx, assignment.ReviewerID)
	s.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    req.Actor.UserID,
		ActorRole:  req.Actor.Role,
		Action:     "review.reopen",
		ObjectType: "review_assignment",
		ObjectID:   req.ReviewID.String(),
		Detail: map[string]interface{}{
			"reviewer_id": assignment.ReviewerID,
			"reason":      req.Reason,
		},
		CreatedAt: now,
	})
	s.logger.Info().
		Str("review_id", req.ReviewID.String()).
		Str("reopened_by", req.Actor.UserID).
		Msg("review reopened")

	return nil
}

// RateReview records the editor's quality rating of a submitted review and
// refreshes the reviewer's statistics.
func (s *ReviewService) RateReview(ctx context.Context, reviewID uuid.UUID, rating float64, actor domain.Actor) error {
	if !actor.Role.IsEditorTier() {
		return &domain.ForbiddenError{Role: actor.Role, Operation: "rate reviews"}
	}
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating", "must be between 1 and 5")
	}

	repos := s.store.Repos()
	a, err := repos.Assignments.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if a.SubmittedAt == nil {
		return domain.NewValidationError("review", "not submitted")
	}

	if err := repos.Assignments.SetQualityRating(ctx, reviewID, rating); err != nil {
		return err
	}
	if err := s.workload.RefreshStatistics(ctx, a.ReviewerID); err != nil {
		s.logger.Warn().Err(err).
			Str("reviewer_id", a.ReviewerID).
			Msg("statistics refresh failed after rating")
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     "review.rate",
		ObjectType: "review_assignment",
		ObjectID:   reviewID.String(),
		Detail:     map[string]interface{}{"rating": rating},
		CreatedAt:  s.now().UTC(),
	})
	return nil
}

// GetReview retrieves one review assignment.
func (s *ReviewService) GetReview(ctx context.Context, reviewID uuid.UUID) (*domain.ReviewAssignment, error) {
	return s.store.Repos().Assignments.Get(ctx, reviewID)
}

// ListReviews returns a manuscript's assignments, optionally narrowed to one
// round (round <= 0 means all rounds).
func (s *ReviewService) ListReviews(ctx context.Context, manuscriptID uuid.UUID, round int) ([]*domain.ReviewAssignment, error) {
	return s.store.Repos().Assignments.ListByManuscript(ctx, manuscriptID, round)
}

// UpsertReviewerProfile creates or replaces a reviewer profile. A reviewer
// may edit their own profile; editor tier may edit any.
func (s *ReviewService) UpsertReviewerProfile(ctx context.Context, p *domain.ReviewerProfile, actor domain.Actor) error {
	if p.UserID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	if actor.UserID != p.UserID && !actor.Role.IsEditorTier() {
		return &domain.ForbiddenError{Role: actor.Role, Operation: "edit another reviewer's profile"}
	}
	if p.MaxConcurrentReviews <= 0 {
		p.MaxConcurrentReviews = s.cfg.DefaultMaxConcurrent
	}
	p.Keywords = normalizeKeywords(p.Keywords)

	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return s.store.Repos().Reviewers.Upsert(ctx, p)
}

// GetReviewerProfile retrieves a reviewer profile by user ID.
func (s *ReviewService) GetReviewerProfile(ctx context.Context, userID string) (*domain.ReviewerProfile, error) {
	return s.store.Repos().Reviewers.Get(ctx, userID)
}
