package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/repository"
)

// memStore is an in-memory Store for tests. InTransaction runs the function
// against the shared repositories without rollback; tests that care about
// atomicity assert on the error path instead.
type memStore struct {
	manuscripts *memManuscripts
	assignments *memAssignments
	reviewers   *memReviewers
	deadlines   *memDeadlines
	outbox      *memOutbox

	txErr error
}

func newMemStore() *memStore {
	return &memStore{
		manuscripts: &memManuscripts{byID: map[uuid.UUID]*domain.Manuscript{}},
		assignments: &memAssignments{byID: map[uuid.UUID]*domain.ReviewAssignment{}},
		reviewers:   &memReviewers{byID: map[string]*domain.ReviewerProfile{}},
		deadlines:   &memDeadlines{},
		outbox:      &memOutbox{},
	}
}

func (s *memStore) Repos() Repos {
	return Repos{
		Manuscripts: s.manuscripts,
		Assignments: s.assignments,
		Reviewers:   s.reviewers,
		Deadlines:   s.deadlines,
		Outbox:      s.outbox,
	}
}

func (s *memStore) InTransaction(_ context.Context, fn func(Repos) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(s.Repos())
}

type memManuscripts struct {
	byID      map[uuid.UUID]*domain.Manuscript
	history   []*domain.StatusHistoryEntry
	decisions []*domain.Decision
}

func (r *memManuscripts) Create(_ context.Context, m *domain.Manuscript) error {
	if _, ok := r.byID[m.ID]; ok {
		return domain.NewAlreadyExistsError("manuscript", m.ID.String())
	}
	cp := *m
	r.byID[m.ID] = &cp
	return nil
}

func (r *memManuscripts) Get(_ context.Context, id uuid.UUID) (*domain.Manuscript, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("manuscript", id.String())
	}
	cp := *m
	return &cp, nil
}

func (r *memManuscripts) List(_ context.Context, filter repository.ManuscriptFilter) ([]*domain.Manuscript, int64, error) {
	var out []*domain.Manuscript
	for _, m := range r.byID {
		if filter.AuthorID != "" && m.AuthorID != filter.AuthorID {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, s := range filter.Status {
				if m.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memManuscripts) UpdateStatusCAS(_ context.Context, id uuid.UUID, expectedStatus domain.ManuscriptStatus, expectedVersion int, newStatus domain.ManuscriptStatus, changedAt time.Time) error {
	m, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("manuscript", id.String())
	}
	if m.Status != expectedStatus || m.Version != expectedVersion {
		return domain.NewConflictError("manuscript", id.String())
	}
	m.Status = newStatus
	m.Version++
	m.StatusChangedAt = changedAt
	m.UpdatedAt = changedAt
	return nil
}

func (r *memManuscripts) AppendStatusHistory(_ context.Context, entry *domain.StatusHistoryEntry) error {
	cp := *entry
	r.history = append(r.history, &cp)
	return nil
}

func (r *memManuscripts) ListStatusHistory(_ context.Context, manuscriptID uuid.UUID) ([]*domain.StatusHistoryEntry, error) {
	var out []*domain.StatusHistoryEntry
	for _, e := range r.history {
		if e.ManuscriptID == manuscriptID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memManuscripts) AppendDecision(_ context.Context, d *domain.Decision) error {
	cp := *d
	r.decisions = append(r.decisions, &cp)
	return nil
}

func (r *memManuscripts) ListDecisions(_ context.Context, manuscriptID uuid.UUID) ([]*domain.Decision, error) {
	var out []*domain.Decision
	for _, d := range r.decisions {
		if d.ManuscriptID == manuscriptID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memAssignments struct {
	byID map[uuid.UUID]*domain.ReviewAssignment
}

func (r *memAssignments) Create(_ context.Context, a *domain.ReviewAssignment) error {
	for _, existing := range r.byID {
		if existing.ManuscriptID == a.ManuscriptID && existing.ReviewerID == a.ReviewerID && existing.Round == a.Round {
			return domain.NewAlreadyExistsError("review assignment", a.ID.String())
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAssignments) Get(_ context.Context, id uuid.UUID) (*domain.ReviewAssignment, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("review assignment", id.String())
	}
	cp := *a
	return &cp, nil
}

func (r *memAssignments) ListByManuscript(_ context.Context, manuscriptID uuid.UUID, round int) ([]*domain.ReviewAssignment, error) {
	var out []*domain.ReviewAssignment
	for _, a := range r.byID {
		if a.ManuscriptID != manuscriptID {
			continue
		}
		if round > 0 && a.Round != round {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (r *memAssignments) ListByReviewer(_ context.Context, reviewerID string) ([]*domain.ReviewAssignment, error) {
	var out []*domain.ReviewAssignment
	for _, a := range r.byID {
		if a.ReviewerID == reviewerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.After(out[j].InvitedAt) })
	return out, nil
}

func (r *memAssignments) Accept(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("review assignment", id.String())
	}
	if a.IsFinalized() {
		return domain.NewAlreadyFinalizedError(id.String())
	}
	a.AcceptedAt = &at
	a.UpdatedAt = at
	return nil
}

func (r *memAssignments) Decline(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("review assignment", id.String())
	}
	if a.IsFinalized() {
		return domain.NewAlreadyFinalizedError(id.String())
	}
	a.DeclinedAt = &at
	a.UpdatedAt = at
	return nil
}

func (r *memAssignments) Submit(_ context.Context, id uuid.UUID, rec domain.Recommendation, score *float64, formFields map[string]string, at time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("review assignment", id.String())
	}
	if a.IsFinalized() {
		return domain.NewAlreadyFinalizedError(id.String())
	}
	a.SubmittedAt = &at
	a.Recommendation = &rec
	a.Score = score
	a.FormFields = formFields
	a.UpdatedAt = at
	return nil
}

func (r *memAssignments) Reopen(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("review assignment", id.String())
	}
	if a.SubmittedAt == nil {
		return domain.NewValidationError("review", "not submitted")
	}
	a.SubmittedAt = nil
	a.Recommendation = nil
	a.Score = nil
	a.UpdatedAt = at
	return nil
}

func (r *memAssignments) SetQualityRating(_ context.Context, id uuid.UUID, rating float64) error {
	a, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("review assignment", id.String())
	}
	a.QualityRating = &rating
	return nil
}

func (r *memAssignments) CountActive(_ context.Context, reviewerID string, now time.Time) (int, error) {
	count := 0
	for _, a := range r.byID {
		if a.ReviewerID == reviewerID && a.IsActionable(now) {
			count++
		}
	}
	return count, nil
}

type memReviewers struct {
	byID map[string]*domain.ReviewerProfile
}

func (r *memReviewers) Upsert(_ context.Context, p *domain.ReviewerProfile) error {
	cp := *p
	if existing, ok := r.byID[p.UserID]; ok {
		cp.Statistics = existing.Statistics
	}
	r.byID[p.UserID] = &cp
	return nil
}

func (r *memReviewers) Get(_ context.Context, userID string) (*domain.ReviewerProfile, error) {
	p, ok := r.byID[userID]
	if !ok {
		return nil, domain.NewNotFoundError("reviewer profile", userID)
	}
	cp := *p
	return &cp, nil
}

func (r *memReviewers) ListAll(_ context.Context) ([]*domain.ReviewerProfile, error) {
	out := make([]*domain.ReviewerProfile, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memReviewers) UpdateStatistics(_ context.Context, userID string, stats domain.ReviewerStatistics) error {
	p, ok := r.byID[userID]
	if !ok {
		return domain.NewNotFoundError("reviewer profile", userID)
	}
	p.Statistics = stats
	return nil
}

type memDeadlines struct {
	rows []*domain.Deadline
}

func (r *memDeadlines) find(manuscriptID uuid.UUID, t domain.DeadlineType) *domain.Deadline {
	for _, d := range r.rows {
		if d.ManuscriptID == manuscriptID && d.Type == t {
			return d
		}
	}
	return nil
}

func (r *memDeadlines) Upsert(_ context.Context, d *domain.Deadline) error {
	if existing := r.find(d.ManuscriptID, d.Type); existing != nil {
		existing.DueDate = d.DueDate
		existing.AssignedTo = d.AssignedTo
		existing.CompletedAt = nil
		existing.IsOverdue = d.IsOverdue
		existing.UpdatedAt = d.UpdatedAt
		return nil
	}
	cp := *d
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memDeadlines) Get(_ context.Context, id uuid.UUID) (*domain.Deadline, error) {
	for _, d := range r.rows {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("deadline", id.String())
}

func (r *memDeadlines) ListByManuscript(_ context.Context, manuscriptID uuid.UUID) ([]*domain.Deadline, error) {
	var out []*domain.Deadline
	for _, d := range r.rows {
		if d.ManuscriptID == manuscriptID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *memDeadlines) Complete(_ context.Context, manuscriptID uuid.UUID, t domain.DeadlineType, at time.Time) error {
	d := r.find(manuscriptID, t)
	if d == nil || d.CompletedAt != nil {
		return nil
	}
	d.CompletedAt = &at
	d.IsOverdue = false
	d.UpdatedAt = at
	return nil
}

func (r *memDeadlines) SetOverdue(_ context.Context, id uuid.UUID, overdue bool) error {
	for _, d := range r.rows {
		if d.ID == id {
			d.IsOverdue = overdue
			return nil
		}
	}
	return domain.NewNotFoundError("deadline", id.String())
}

func (r *memDeadlines) RefreshOverdueFlags(_ context.Context, now time.Time) ([]*domain.Deadline, error) {
	var newly []*domain.Deadline
	for _, d := range r.rows {
		overdue := d.IsOverdueAt(now)
		if overdue == d.IsOverdue {
			continue
		}
		d.IsOverdue = overdue
		if overdue {
			cp := *d
			newly = append(newly, &cp)
		}
	}
	return newly, nil
}

type memOutbox struct {
	events   []*domain.OutboxEvent
	attempts map[string]int
}

func (r *memOutbox) Insert(_ context.Context, evt *domain.OutboxEvent) error {
	cp := *evt
	r.events = append(r.events, &cp)
	return nil
}

func (r *memOutbox) FetchBatch(_ context.Context, limit, maxAttempts int) ([]*domain.OutboxEvent, error) {
	out := make([]*domain.OutboxEvent, 0, limit)
	for _, e := range r.events {
		if len(out) >= limit {
			break
		}
		if maxAttempts > 0 && r.attempts[e.EventID] >= maxAttempts {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memOutbox) MarkPublished(_ context.Context, eventIDs []string, _ time.Time) error {
	published := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		published[id] = true
	}
	kept := r.events[:0]
	for _, e := range r.events {
		if !published[e.EventID] {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

func (r *memOutbox) IncrementAttempts(_ context.Context, eventIDs []string) error {
	if r.attempts == nil {
		r.attempts = map[string]int{}
	}
	for _, id := range eventIDs {
		r.attempts[id]++
	}
	return nil
}

// eventTypes returns the inserted outbox event types in order.
func (r *memOutbox) eventTypes() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

// fakeCache implements LoadCache with observable call counts.
type fakeCache struct {
	loads       map[string]int
	getErr      error
	setErr      error
	sets        int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{loads: map[string]int{}}
}

func (c *fakeCache) GetLoad(_ context.Context, reviewerID string) (int, bool, error) {
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	load, ok := c.loads[reviewerID]
	return load, ok, nil
}

func (c *fakeCache) SetLoad(_ context.Context, reviewerID string, load int) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.loads[reviewerID] = load
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, reviewerID string) error {
	delete(c.loads, reviewerID)
	c.invalidated = append(c.invalidated, reviewerID)
	return nil
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	statusChanges []domain.ManuscriptStatus
	invitations   []uuid.UUID
	overdue       []uuid.UUID
	err           error
}

func (n *fakeNotifier) NotifyStatusChanged(_ context.Context, m *domain.Manuscript, _ domain.ManuscriptStatus, _ domain.Actor) error {
	n.statusChanges = append(n.statusChanges, m.Status)
	return n.err
}

func (n *fakeNotifier) NotifyReviewInvited(_ context.Context, a *domain.ReviewAssignment, _ *domain.Manuscript) error {
	n.invitations = append(n.invitations, a.ID)
	return n.err
}

func (n *fakeNotifier) NotifyDeadlineOverdue(_ context.Context, d *domain.Deadline) error {
	n.overdue = append(n.overdue, d.ID)
	return n.err
}

// fakeLocker implements AdvisoryLocker.
type fakeLocker struct {
	held     bool
	acquired []int64
	released []int64
}

func (l *fakeLocker) AcquireAdvisoryLock(_ context.Context, key int64) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLocker) ReleaseAdvisoryLock(_ context.Context, key int64) error {
	l.released = append(l.released, key)
	return nil
}

// fixedClock returns a now func pinned to the given time.
func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func seedManuscript(s *memStore, status domain.ManuscriptStatus) *domain.Manuscript {
	m := &domain.Manuscript{
		ID:       uuid.New(),
		Code:     fmt.Sprintf("MS-2026-%04d", len(s.manuscripts.byID)+1),
		Title:    "Adaptive Mesh Refinement in Coastal Models",
		Keywords: []string{"hydrodynamics", "mesh refinement"},
		Category: "computational fluid dynamics",
		AuthorID: "author-1",
		Status:   status,
		Version:  1,
	}
	s.manuscripts.byID[m.ID] = m
	return m
}
