package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjournal/editorial-service/internal/domain"
)

func TestDeadlineUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	d := &domain.Deadline{
		ID:           uuid.New(),
		ManuscriptID: uuid.New(),
		Type:         domain.DeadlineTypeRevisionSubmission,
		DueDate:      now.Add(30 * 24 * time.Hour),
		AssignedTo:   "user-author-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO deadlines").
		WithArgs(
			d.ID, d.ManuscriptID, d.Type, d.DueDate, pgxmock.AnyArg(),
			pgxmock.AnyArg(), d.IsOverdue, pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPgDeadlineRepository(mock)
	require.NoError(t, repo.Upsert(context.Background(), d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineUpsertValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgDeadlineRepository(mock)
	ctx := context.Background()

	err = repo.Upsert(ctx, &domain.Deadline{ID: uuid.New(), Type: "QUARTERLY", DueDate: time.Now()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = repo.Upsert(ctx, &domain.Deadline{ID: uuid.New(), Type: domain.DeadlineTypeProduction})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineCompleteIsIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	manuscriptID := uuid.New()
	now := time.Now().UTC()

	// Zero rows affected: the deadline is absent or already completed.
	// Either way Complete succeeds.
	mock.ExpectExec("UPDATE deadlines").
		WithArgs(now, manuscriptID, domain.DeadlineTypeRevisionSubmission).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPgDeadlineRepository(mock)
	require.NoError(t, repo.Complete(context.Background(), manuscriptID, domain.DeadlineTypeRevisionSubmission, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineRefreshOverdueFlags(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	overdueID := uuid.New()
	clearedID := uuid.New()
	manuscriptID := uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "manuscript_id", "type", "due_date", "assigned_to",
		"completed_at", "is_overdue", "created_at", "updated_at",
	}).AddRow(
		overdueID, manuscriptID, domain.DeadlineTypeReviewSubmission, now.Add(-24*time.Hour), (*string)(nil),
		(*time.Time)(nil), true, now, now,
	).AddRow(
		clearedID, manuscriptID, domain.DeadlineTypeProduction, now.Add(24*time.Hour), (*string)(nil),
		(*time.Time)(nil), false, now, now,
	)

	mock.ExpectQuery("UPDATE deadlines").
		WithArgs(now).
		WillReturnRows(rows)

	repo := NewPgDeadlineRepository(mock)
	newlyOverdue, err := repo.RefreshOverdueFlags(context.Background(), now)
	require.NoError(t, err)

	// Only the row that flipped to overdue is reported back.
	require.Len(t, newlyOverdue, 1)
	assert.Equal(t, overdueID, newlyOverdue[0].ID)
	assert.True(t, newlyOverdue[0].IsOverdue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineSetOverdueNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE deadlines").
		WithArgs(true, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPgDeadlineRepository(mock)
	err = repo.SetOverdue(context.Background(), id, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
