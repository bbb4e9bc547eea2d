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

// sweepLockKey is the advisory lock key serializing deadline sweeps across
// service instances.
const sweepLockKey int64 = 0x4544_4c53

// AdvisoryLocker provides non-blocking cross-instance mutual exclusion,
// backed by Postgres advisory locks.
type AdvisoryLocker interface {
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) error
}

// Monitor maintains deadline overdue flags: editor-driven upserts,
// refresh-on-read listings, and the periodic sweep.
type Monitor struct {
	store    Store
	locker   AdvisoryLocker
	notifier Notifier
	audit    audit.Recorder
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMonitor creates a Monitor. The locker may be nil, in which case sweeps
// run unserialized.
func NewMonitor(store Store, locker AdvisoryLocker, opts Options) *Monitor {
	opts = opts.withDefaults()
	return &Monitor{
		store:    store,
		locker:   locker,
		notifier: opts.Notifier,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("component", "deadlines").Logger(),
		now:      opts.Now,
	}
}

// UpsertDeadlineRequest creates or replaces one deadline on a manuscript.
type UpsertDeadlineRequest struct {
	ManuscriptID uuid.UUID
	Type         domain.DeadlineType
	DueDate      time.Time
	AssignedTo   string
	Actor        domain.Actor
}

// UpsertDeadline creates or replaces the manuscript's deadline of the given
// type. Editor tier only. Replacing clears any prior completion.
func (m *Monitor) UpsertDeadline(ctx context.Context, req UpsertDeadlineRequest) (*domain.Deadline, error) {
	if !req.Actor.Role.IsEditorTier() {
		return nil, &domain.ForbiddenError{Role: req.Actor.Role, Operation: "manage deadlines"}
	}
	if !req.Type.IsValid() {
		return nil, domain.NewValidationError("type", "unknown deadline type: "+string(req.Type))
	}
	if req.DueDate.IsZero() {
		return nil, domain.NewValidationError("due_date", "must be set")
	}

	now := m.now().UTC()
	repos := m.store.Repos()

	if _, err := repos.Manuscripts.Get(ctx, req.ManuscriptID); err != nil {
		return nil, err
	}

	d := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: req.ManuscriptID,
		Type:         req.Type,
		DueDate:      req.DueDate.UTC(),
		AssignedTo:   req.AssignedTo,
		IsOverdue:    req.DueDate.Before(now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Deadlines.Upsert(ctx, d); err != nil {
		return nil, err
	}

	m.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    req.Actor.UserID,
		ActorRole:  req.Actor.Role,
		Action:     "deadline.upsert",
		ObjectType: "deadline",
		ObjectID:   d.ID.String(),
		Detail: map[string]interface{}{
			"manuscript_id": req.ManuscriptID.String(),
			"type":          string(req.Type),
			"due_date":      d.DueDate,
		},
		CreatedAt: now,
	})
	return d, nil
}

// ListByManuscript returns a manuscript's deadlines with the overdue flag
// refreshed on read. Rows whose recomputed value differs from the stored one
// are written back; unchanged rows are not touched.
func (m *Monitor) ListByManuscript(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Deadline, error) {
	repos := m.store.Repos()
	deadlines, err := repos.Deadlines.ListByManuscript(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for _, d := range deadlines {
		overdue := d.IsOverdueAt(now)
		if overdue == d.IsOverdue {
			continue
		}
		if err := repos.Deadlines.SetOverdue(ctx, d.ID, overdue); err != nil {
			return nil, err
		}
		d.IsOverdue = overdue
	}
	return deadlines, nil
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	// Skipped is true when another instance held the sweep lock.
	Skipped bool `json:"skipped"`

	// NewlyOverdue is the number of deadlines that became overdue.
	NewlyOverdue int `json:"newly_overdue"`
}

// Sweep recomputes overdue flags across all incomplete deadlines in one
// pass. Newly overdue deadlines get an outbox event in the same transaction
// and a best-effort notification after commit. Concurrent sweeps are
// serialized with a non-blocking advisory lock; losing the race skips the
// run rather than queueing behind it.
func (m *Monitor) Sweep(ctx context.Context) (*SweepResult, error) {
	if m.locker != nil {
		acquired, err := m.locker.AcquireAdvisoryLock(ctx, sweepLockKey)
		if err != nil {
			return nil, fmt.Errorf("acquiring sweep lock: %w", err)
		}
		if !acquired {
			m.logger.Debug().Msg("sweep lock held elsewhere, skipping")
			return &SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := m.locker.ReleaseAdvisoryLock(ctx, sweepLockKey); err != nil {
				m.logger.Warn().Err(err).Msg("releasing sweep lock failed")
			}
		}()
	}

	start := m.now()

	var newlyOverdue []*domain.Deadline
	err := m.store.InTransaction(ctx, func(r Repos) error {
		overdue, err := r.Deadlines.RefreshOverdueFlags(ctx, start.UTC())
		if err != nil {
			return err
		}
		for _, d := range overdue {
			evt, err := domain.NewOutboxEvent(domain.EventTypeDeadlineOverdue, d.ManuscriptID.String(), "manuscript", domain.DeadlineOverduePayload{
				DeadlineID:   d.ID,
				ManuscriptID: d.ManuscriptID,
				Type:         d.Type,
				DueDate:      d.DueDate,
				AssignedTo:   d.AssignedTo,
			})
			if err != nil {
				return fmt.Errorf("building overdue event: %w", err)
			}
			if err := r.Outbox.Insert(ctx, evt); err != nil {
				return err
			}
		}
		newlyOverdue = overdue
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range newlyOverdue {
		if m.metrics != nil {
			m.metrics.RecordDeadlineOverdue(string(d.Type))
		}
		if err := m.notifier.NotifyDeadlineOverdue(ctx, d); err != nil {
			m.logger.Warn().Err(err).
				Str("deadline_id", d.ID.String()).
				Msg("overdue notification failed")
		}
	}
	if m.metrics != nil {
		m.metrics.RecordDeadlineSweep(m.now().Sub(start).Seconds())
	}
	m.logger.Info().
		Int("newly_overdue", len(newlyOverdue)).
		Msg("deadline sweep completed")

	return &SweepResult{NewlyOverdue: len(newlyOverdue)}, nil
}
