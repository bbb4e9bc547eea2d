package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjournal/editorial-service/internal/domain"
)

func newTestMonitor(store *memStore, locker AdvisoryLocker, notifier Notifier) *Monitor {
	opts := Options{Now: fixedClock(testTime)}
	if notifier != nil {
		opts.Notifier = notifier
	}
	return NewMonitor(store, locker, opts)
}

func TestUpsertDeadline(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	monitor := newTestMonitor(store, nil, nil)
	m := seedManuscript(store, domain.ManuscriptStatusRevision)

	due := testTime.Add(14 * 24 * time.Hour)
	d, err := monitor.UpsertDeadline(context.Background(), UpsertDeadlineRequest{
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeRevisionSubmission,
		DueDate:      due,
		AssignedTo:   m.AuthorID,
		Actor:        testEditor,
	})
	require.NoError(t, err)

	assert.Equal(t, due, d.DueDate)
	assert.False(t, d.IsOverdue)
	assert.Equal(t, m.AuthorID, d.AssignedTo)

	stored := store.deadlines.find(m.ID, domain.DeadlineTypeRevisionSubmission)
	require.NotNil(t, stored)
	assert.Equal(t, due, stored.DueDate)
}

func TestUpsertDeadline_ReplacesAndClearsCompletion(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	monitor := newTestMonitor(store, nil, nil)
	m := seedManuscript(store, domain.ManuscriptStatusRevision)

	first := testTime.Add(7 * 24 * time.Hour)
	_, err := monitor.UpsertDeadline(context.Background(), UpsertDeadlineRequest{
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeRevisionSubmission,
		DueDate:      first,
		Actor:        testEditor,
	})
	require.NoError(t, err)
	require.NoError(t, store.deadlines.Complete(context.Background(), m.ID, domain.DeadlineTypeRevisionSubmission, testTime))

	second := testTime.Add(30 * 24 * time.Hour)
	_, err = monitor.UpsertDeadline(context.Background(), UpsertDeadlineRequest{
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeRevisionSubmission,
		DueDate:      second,
		Actor:        testEditor,
	})
	require.NoError(t, err)

	stored := store.deadlines.find(m.ID, domain.DeadlineTypeRevisionSubmission)
	require.NotNil(t, stored)
	assert.Equal(t, second, stored.DueDate)
	assert.Nil(t, stored.CompletedAt, "replacing a deadline reopens it")

	all, err := store.deadlines.ListByManuscript(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "one deadline per manuscript and type")
}

func TestUpsertDeadline_Rejections(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	monitor := newTestMonitor(store, nil, nil)
	m := seedManuscript(store, domain.ManuscriptStatusRevision)
	due := testTime.Add(time.Hour)

	tests := []struct {
		name    string
		req     UpsertDeadlineRequest
		wantErr error
	}{
		{
			"reviewer cannot manage deadlines",
			UpsertDeadlineRequest{ManuscriptID: m.ID, Type: domain.DeadlineTypeProduction, DueDate: due, Actor: testReviewer},
			domain.ErrForbidden,
		},
		{
			"unknown type",
			UpsertDeadlineRequest{ManuscriptID: m.ID, Type: "GRACE_PERIOD", DueDate: due, Actor: testEditor},
			domain.ErrInvalidInput,
		},
		{
			"missing due date",
			UpsertDeadlineRequest{ManuscriptID: m.ID, Type: domain.DeadlineTypeProduction, Actor: testEditor},
			domain.ErrInvalidInput,
		},
		{
			"unknown manuscript",
			UpsertDeadlineRequest{ManuscriptID: uuid.New(), Type: domain.DeadlineTypeProduction, DueDate: due, Actor: testEditor},
			domain.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := monitor.UpsertDeadline(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListByManuscript_RefreshOnRead(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	monitor := newTestMonitor(store, nil, nil)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)

	// Past due, stale flag: refreshed on read.
	stale := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeReviewSubmission,
		DueDate:      testTime.Add(-24 * time.Hour),
	}
	// Past due but completed: never overdue.
	completedAt := testTime.Add(-time.Hour)
	completed := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeEditorDecision,
		DueDate:      testTime.Add(-48 * time.Hour),
		CompletedAt:  &completedAt,
	}
	// Future due date.
	future := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeProduction,
		DueDate:      testTime.Add(24 * time.Hour),
	}
	store.deadlines.rows = append(store.deadlines.rows, stale, completed, future)

	got, err := monitor.ListByManuscript(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byType := map[domain.DeadlineType]*domain.Deadline{}
	for _, d := range got {
		byType[d.Type] = d
	}
	assert.True(t, byType[domain.DeadlineTypeReviewSubmission].IsOverdue)
	assert.False(t, byType[domain.DeadlineTypeEditorDecision].IsOverdue)
	assert.False(t, byType[domain.DeadlineTypeProduction].IsOverdue)

	assert.True(t, stale.IsOverdue, "changed flag written back")
}

func TestSweep(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &fakeNotifier{}
	locker := &fakeLocker{}
	monitor := newTestMonitor(store, locker, notifier)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)

	overdue := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeReviewSubmission,
		DueDate:      testTime.Add(-24 * time.Hour),
		AssignedTo:   "rev-1",
	}
	alreadyFlagged := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeEditorDecision,
		DueDate:      testTime.Add(-48 * time.Hour),
		IsOverdue:    true,
	}
	future := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: m.ID,
		Type:         domain.DeadlineTypeProduction,
		DueDate:      testTime.Add(24 * time.Hour),
	}
	store.deadlines.rows = append(store.deadlines.rows, overdue, alreadyFlagged, future)

	result, err := monitor.Sweep(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.NewlyOverdue, "already-flagged rows are not re-reported")
	assert.True(t, overdue.IsOverdue)

	assert.Equal(t, []string{domain.EventTypeDeadlineOverdue}, store.outbox.eventTypes())
	assert.Equal(t, []uuid.UUID{overdue.ID}, notifier.overdue)

	assert.Equal(t, []int64{sweepLockKey}, locker.acquired)
	assert.Equal(t, []int64{sweepLockKey}, locker.released)
}

func TestSweep_LockHeldElsewhere(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	locker := &fakeLocker{held: true}
	monitor := newTestMonitor(store, locker, nil)

	result, err := monitor.Sweep(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Empty(t, locker.released, "skipped sweep never releases a lock it does not hold")
}

func TestSweep_NoDeadlines(t *testing.T) {
	t.Parallel()

	monitor := newTestMonitor(newMemStore(), nil, nil)

	result, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.NewlyOverdue)
}
