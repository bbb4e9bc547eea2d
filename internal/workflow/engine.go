package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/audit"
	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/repository"
)

// Engine owns the manuscript lifecycle: submission, guarded status
// transitions, and the read side of the status and decision history.
type Engine struct {
	store    Store
	notifier Notifier
	audit    audit.Recorder
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// Options carries the optional collaborators shared by the workflow
// services. Zero-value fields fall back to no-op implementations.
type Options struct {
	Notifier Notifier
	Audit    audit.Recorder
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Notifier == nil {
		o.Notifier = NopNotifier{}
	}
	if o.Audit == nil {
		o.Audit = audit.Nop{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:    store,
		notifier: opts.Notifier,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("component", "workflow").Logger(),
		now:      opts.Now,
	}
}

// SubmitRequest carries a new manuscript submission.
type SubmitRequest struct {
	Title    string
	Abstract string
	Keywords []string
	Category string
	AuthorID string
}

// SubmitManuscript creates a manuscript in status NEW and records the
// submission event in the outbox within the same transaction.
func (e *Engine) SubmitManuscript(ctx context.Context, req SubmitRequest) (*domain.Manuscript, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(req.AuthorID) == "" {
		return nil, domain.NewValidationError("author_id", "must not be empty")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, domain.NewValidationError("category", "must not be empty")
	}

	now := e.now().UTC()
	m := &domain.Manuscript{
		ID:              uuid.New(),
		Title:           req.Title,
		Abstract:        req.Abstract,
		Keywords:        normalizeKeywords(req.Keywords),
		Category:        req.Category,
		AuthorID:        req.AuthorID,
		Status:          domain.ManuscriptStatusNew,
		Version:         1,
		CreatedAt:       now,
		StatusChangedAt: now,
		UpdatedAt:       now,
	}
	m.Code = manuscriptCode(m.ID, now)

	err := e.store.InTransaction(ctx, func(r Repos) error {
		if err := r.Manuscripts.Create(ctx, m); err != nil {
			return err
		}
		evt, err := domain.NewOutboxEvent(domain.EventTypeManuscriptSubmitted, m.ID.String(), "manuscript", domain.ManuscriptSubmittedPayload{
			ManuscriptID: m.ID,
			Code:         m.Code,
			Title:        m.Title,
			AuthorID:     m.AuthorID,
			Category:     m.Category,
		})
		if err != nil {
			return fmt.Errorf("building submission event: %w", err)
		}
		return r.Outbox.Insert(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordManuscriptSubmitted()
	}
	e.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    req.AuthorID,
		ActorRole:  domain.RoleAuthor,
		Action:     "manuscript.submit",
		ObjectType: "manuscript",
		ObjectID:   m.ID.String(),
		CreatedAt:  now,
	})
	e.logger.Info().
		Str("manuscript_id", m.ID.String()).
		Str("code", m.Code).
		Str("author_id", m.AuthorID).
		Msg("manuscript submitted")

	return m, nil
}

// TransitionRequest asks for one status change on a manuscript.
type TransitionRequest struct {
	ManuscriptID uuid.UUID
	Target       domain.ManuscriptStatus
	Actor        domain.Actor
	Note         string
}

/// RequestTransition applies a guarded status change. Within one transaction it:
//
//  1. Loads the manuscript and checks the transition against the lifecycle
//     table and the actor's role against the edge's allowed roles.
//  2. Applies the change with compare-and-swap on (status, version); a lost
//     race returns domain.ErrConflict and the caller re-reads and retries.
//  3. Appends the status-history entry and, for decision-bearing targets, a
//     decision record.
//  4. Completes the deadlines the change fulfils: EDITOR_DECISION on any
//     decision, REVISION_SUBMISSION when a revision returns to review, and
//     PRODUCTION on publication.
//  5. Inserts the outbox events describing the change.
//
// Notifications, audit, and metrics run after the transaction commits.
func (e *Engine) RequestTransition(ctx context.Context, req TransitionRequest) (*domain.Manuscript, error) {
	if !req.Target.IsValid() {
		return nil, domain.NewValidationError("target", "unknown manuscript status: "+string(req.Target))
	}

	var (
		updated *domain.Manuscript
		from    domain.ManuscriptStatus
	)
	now := e.now().UTC()

	err := e.store.InTransaction(ctx, func(r Repos) error {
		m, err := r.Manuscripts.Get(ctx, req.ManuscriptID)
		if err != nil {
			return err
		}
		from = m.Status

		if !CanTransition(m.Status, req.Target) {
			return domain.NewInvalidTransitionError(m.ID.String(), m.Status, req.Target)
		}
		if !roleAllowed(m.Status, req.Target, req.Actor.Role) {
			return &domain.ForbiddenError{
				Role:      req.Actor.Role,
				Operation: fmt.Sprintf("transition %s -> %s", m.Status, req.Target),
			}
		}

		if err := r.Manuscripts.UpdateStatusCAS(ctx, m.ID, m.Status, m.Version, req.Target, now); err != nil {
			return err
		}

		if err := r.Manuscripts.AppendStatusHistory(ctx, &domain.StatusHistoryEntry{
			ID:           uuid.New(),
			ManuscriptID: m.ID,
			FromStatus:   m.Status,
			ToStatus:     req.Target,
			ActorID:      req.Actor.UserID,
			ActorRole:    req.Actor.Role,
			Note:         req.Note,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		if isDecisionBearing(req.Target) {
			if err := r.Manuscripts.AppendDecision(ctx, &domain.Decision{
				ID:           uuid.New(),
				ManuscriptID: m.ID,
				EditorID:     req.Actor.UserID,
				Value:        req.Target,
				Note:         req.Note,
				DecidedAt:    now,
			}); err != nil {
				return err
			}
			if err := r.Deadlines.Complete(ctx, m.ID, domain.DeadlineTypeEditorDecision, now); err != nil {
				return err
			}
		}
		if m.Status == domain.ManuscriptStatusRevision && req.Target == domain.ManuscriptStatusUnderReview {
			if err := r.Deadlines.Complete(ctx, m.ID, domain.DeadlineTypeRevisionSubmission, now); err != nil {
				return err
			}
		}
		if req.Target == domain.ManuscriptStatusPublished {
			if err := r.Deadlines.Complete(ctx, m.ID, domain.DeadlineTypeProduction, now); err != nil {
				return err
			}
		}

		evt, err := domain.NewOutboxEvent(domain.EventTypeManuscriptTransition, m.ID.String(), "manuscript", domain.ManuscriptTransitionPayload{
			ManuscriptID: m.ID,
			Code:         m.Code,
			FromStatus:   m.Status,
			ToStatus:     req.Target,
			ActorID:      req.Actor.UserID,
			ActorRole:    req.Actor.Role,
			Note:         req.Note,
		})
		if err != nil {
			return fmt.Errorf("building transition event: %w", err)
		}
		if err := r.Outbox.Insert(ctx, evt); err != nil {
			return err
		}
		if req.Target == domain.ManuscriptStatusPublished {
			pub, err := domain.NewOutboxEvent(domain.EventTypeManuscriptPublished, m.ID.String(), "manuscript", domain.ManuscriptTransitionPayload{
				ManuscriptID: m.ID,
				Code:         m.Code,
				FromStatus:   m.Status,
				ToStatus:     req.Target,
				ActorID:      req.Actor.UserID,
				ActorRole:    req.Actor.Role,
			})
			if err != nil {
				return fmt.Errorf("building published event: %w", err)
			}
			if err := r.Outbox.Insert(ctx, pub); err != nil {
				return err
			}
		}

		after := *m
		after.Status = req.Target
		after.Version = m.Version + 1
		after.StatusChangedAt = now
		after.UpdatedAt = now
		updated = &after
		return nil
	})
	if err != nil {
		e.recordTransitionFailure(err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordTransitionApplied(string(from), string(req.Target))
		if isDecisionBearing(req.Target) {
			e.metrics.RecordDecision(string(req.Target))
		}
	}
	if err := e.notifier.NotifyStatusChanged(ctx, updated, from, req.Actor); err != nil {
		e.logger.Warn().Err(err).
			Str("manuscript_id", updated.ID.String()).
			Msg("status change notification failed")
	}
	e.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    req.Actor.UserID,
		ActorRole:  req.Actor.Role,
		Action:     "manuscript.transition",
		ObjectType: "manuscript",
		ObjectID:   updated.ID.String(),
		Detail: map[string]interface{}{
			"from": string(from),
			"to":   string(req.Target),
		},
		CreatedAt: now,
	})
	e.logger.Info().
		Str("manuscript_id", updated.ID.String()).
		Str("from", string(from)).
		Str("to", string(req.Target)).
		Str("actor_id", req.Actor.UserID).
		Msg("manuscript transitioned")

	return updated, nil
}

func (e *Engine) recordTransitionFailure(err error) {
	if e.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrConflict):
		e.metrics.RecordTransitionConflict()
	case errors.Is(err, domain.ErrInvalidTransition):
		e.metrics.RecordTransitionRejected("invalid_transition")
	case errors.Is(err, domain.ErrForbidden):
		e.metrics.RecordTransitionRejected("forbidden")
	case errors.Is(err, domain.ErrNotFound):
		e.metrics.RecordTransitionRejected("not_found")
	default:
		e.metrics.RecordTransitionRejected("error")
	}
}

// GetManuscript retrieves one manuscript by ID.
func (e *Engine) GetManuscript(ctx context.Context, id uuid.UUID) (*domain.Manuscript, error) {
	return e.store.Repos().Manuscripts.Get(ctx, id)
}

// ListManuscripts retrieves manuscripts matching the filter.
func (e *Engine) ListManuscripts(ctx context.Context, filter repository.ManuscriptFilter) ([]*domain.Manuscript, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	return e.store.Repos().Manuscripts.List(ctx, filter)
}

// StatusHistory returns a manuscript's applied transitions, oldest first.
func (e *Engine) StatusHistory(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.StatusHistoryEntry, error) {
	return e.store.Repos().Manuscripts.ListStatusHistory(ctx, manuscriptID)
}

// Decisions returns a manuscript's decision history, oldest first.
func (e *Engine) Decisions(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Decision, error) {
	return e.store.Repos().Manuscripts.ListDecisions(ctx, manuscriptID)
}

// manuscriptCode derives the human-facing code from the submission year and
// the first ID segment, e.g. "MS-2026-9F3A01BC".
func manuscriptCode(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("MS-%d-%s", at.Year(), strings.ToUpper(strings.SplitN(id.String(), "-", 2)[0]))
}
