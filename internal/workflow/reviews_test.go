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

func newTestReviewService(store *memStore, notifier Notifier) *ReviewService {
	opts := Options{Now: fixedClock(testTime)}
	if notifier != nil {
		opts.Notifier = notifier
	}
	tracker := newTestTracker(store, nil)
	return NewReviewService(store, tracker, ReviewServiceConfig{}, opts)
}

var (
	testEditor   = domain.Actor{UserID: "editor-1", Role: domain.RoleEditor}
	testReviewer = domain.Actor{UserID: "rev-1", Role: domain.RoleReviewer}
)

func TestInviteReviewer(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &fakeNotifier{}
	svc := newTestReviewService(store, notifier)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)
	seedReviewer(store, "rev-1", []string{"hydrodynamics"}, nil)

	a, err := svc.InviteReviewer(context.Background(), InviteRequest{
		ManuscriptID: m.ID,
		ReviewerID:   "rev-1",
		Actor:        testEditor,
	})
	require.NoError(t, err)

	assert.Equal(t, m.ID, a.ManuscriptID)
	assert.Equal(t, "rev-1", a.ReviewerID)
	assert.Equal(t, 1, a.Round)
	assert.Equal(t, testTime.Add(21*24*time.Hour), a.DueDate, "default review horizon")

	d := store.deadlines.find(m.ID, domain.DeadlineTypeReviewSubmission)
	require.NotNil(t, d, "invitation creates the review deadline")
	assert.Equal(t, a.DueDate, d.DueDate)
	assert.Equal(t, "rev-1", d.AssignedTo)

	assert.Equal(t, []string{domain.EventTypeReviewInvited}, store.outbox.eventTypes())
	assert.Equal(t, []uuid.UUID{a.ID}, notifier.invitations)
}

func TestInviteReviewer_CustomDueDate(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)
	seedReviewer(store, "rev-1", nil, nil)

	due := testTime.Add(7 * 24 * time.Hour)
	a, err := svc.InviteReviewer(context.Background(), InviteRequest{
		ManuscriptID: m.ID,
		ReviewerID:   "rev-1",
		DueDate:      &due,
		Actor:        testEditor,
	})
	require.NoError(t, err)
	assert.Equal(t, due, a.DueDate)
}

func TestInviteReviewer_Rejections(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)
	fresh := seedManuscript(store, domain.ManuscriptStatusNew)
	seedReviewer(store, "rev-1", nil, nil)

	past := testTime.Add(-time.Hour)

	tests := []struct {
		name    string
		req     InviteRequest
		wantErr error
	}{
		{
			"reviewer role cannot invite",
			InviteRequest{ManuscriptID: m.ID, ReviewerID: "rev-1", Actor: testReviewer},
			domain.ErrForbidden,
		},
		{
			"manuscript not under review",
			InviteRequest{ManuscriptID: fresh.ID, ReviewerID: "rev-1", Actor: testEditor},
			domain.ErrInvalidInput,
		},
		{
			"author cannot review own manuscript",
			InviteRequest{ManuscriptID: m.ID, ReviewerID: m.AuthorID, Actor: testEditor},
			domain.ErrInvalidInput,
		},
		{
			"unknown reviewer",
			InviteRequest{ManuscriptID: m.ID, ReviewerID: "rev-ghost", Actor: testEditor},
			domain.ErrNotFound,
		},
		{
			"unknown manuscript",
			InviteRequest{ManuscriptID: uuid.New(), ReviewerID: "rev-1", Actor: testEditor},
			domain.ErrNotFound,
		},
		{
			"due date in the past",
			InviteRequest{ManuscriptID: m.ID, ReviewerID: "rev-1", DueDate: &past, Actor: testEditor},
			domain.ErrInvalidInput,
		},
		{
			"missing reviewer id",
			InviteRequest{ManuscriptID: m.ID, Actor: testEditor},
			domain.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.InviteReviewer(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInviteReviewer_DuplicateRound(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)
	seedReviewer(store, "rev-1", nil, nil)

	req := InviteRequest{ManuscriptID: m.ID, ReviewerID: "rev-1", Round: 2, Actor: testEditor}
	_, err := svc.InviteReviewer(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.InviteReviewer(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func inviteForTest(t *testing.T, store *memStore, svc *ReviewService, reviewerID string) *domain.ReviewAssignment {
	t.Helper()
	m := seedManuscript(store, domain.ManuscriptStatusUnderReview)
	seedReviewer(store, reviewerID, nil, nil)
	a, err := svc.InviteReviewer(context.Background(), InviteRequest{
		ManuscriptID: m.ID,
		ReviewerID:   reviewerID,
		Actor:        testEditor,
	})
	require.NoError(t, err)
	return a
}

func TestRespondToInvite_Accept(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.RespondToInvite(context.Background(), ResponseRequest{
		ReviewID: a.ID,
		Accept:   true,
		Actor:    testReviewer,
	})
	require.NoError(t, err)

	stored := store.assignments.byID[a.ID]
	require.NotNil(t, stored.AcceptedAt)
	assert.Nil(t, stored.DeclinedAt)
	assert.Contains(t, store.outbox.eventTypes(), domain.EventTypeReviewAccepted)
}

func TestRespondToInvite_Decline(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.RespondToInvite(context.Background(), ResponseRequest{
		ReviewID: a.ID,
		Accept:   false,
		Actor:    testReviewer,
	})
	require.NoError(t, err)

	stored := store.assignments.byID[a.ID]
	require.NotNil(t, stored.DeclinedAt)
	assert.Contains(t, store.outbox.eventTypes(), domain.EventTypeReviewDeclined)

	stats := store.reviewers.byID["rev-1"].Statistics
	assert.Equal(t, 1, stats.DeclinedCount, "decline refreshes statistics")
}

func TestRespondToInvite_WrongReviewer(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.RespondToInvite(context.Background(), ResponseRequest{
		ReviewID: a.ID,
		Accept:   true,
		Actor:    domain.Actor{UserID: "rev-2", Role: domain.RoleReviewer},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRespondToInvite_AlreadyFinalized(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	req := ResponseRequest{ReviewID: a.ID, Accept: false, Actor: testReviewer}
	require.NoError(t, svc.RespondToInvite(context.Background(), req))

	err := svc.RespondToInvite(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestSubmitReview(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	score := 7.5
	err := svc.SubmitReview(context.Background(), SubmitReviewRequest{
		ReviewID:       a.ID,
		Recommendation: domain.RecommendationMinor,
		Score:          &score,
		FormFields:     map[string]string{"comments_to_authors": "tighten section 3"},
		Actor:          testReviewer,
	})
	require.NoError(t, err)

	stored := store.assignments.byID[a.ID]
	require.NotNil(t, stored.SubmittedAt)
	require.NotNil(t, stored.Recommendation)
	assert.Equal(t, domain.RecommendationMinor, *stored.Recommendation)
	assert.Equal(t, 7.5, *stored.Score)

	d := store.deadlines.find(a.ManuscriptID, domain.DeadlineTypeReviewSubmission)
	require.NotNil(t, d)
	assert.NotNil(t, d.CompletedAt, "submission completes the review deadline")

	assert.Contains(t, store.outbox.eventTypes(), domain.EventTypeReviewSubmitted)
	assert.Equal(t, 1, store.reviewers.byID["rev-1"].Statistics.CompletedCount)
}

func TestSubmitReview_Validation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	badScore := 11.0
	tests := []struct {
		name string
		req  SubmitReviewRequest
	}{
		{"unknown recommendation", SubmitReviewRequest{ReviewID: a.ID, Recommendation: "MAYBE", Actor: testReviewer}},
		{"score out of range", SubmitReviewRequest{ReviewID: a.ID, Recommendation: domain.RecommendationAccept, Score: &badScore, Actor: testReviewer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SubmitReview(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSubmitReview_Twice(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	req := SubmitReviewRequest{ReviewID: a.ID, Recommendation: domain.RecommendationAccept, Actor: testReviewer}
	require.NoError(t, svc.SubmitReview(context.Background(), req))

	err := svc.SubmitReview(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestSubmitReview_WrongReviewer(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.SubmitReview(context.Background(), SubmitReviewRequest{
		ReviewID:       a.ID,
		Recommendation: domain.RecommendationAccept,
		Actor:          domain.Actor{UserID: "rev-2", Role: domain.RoleReviewer},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReopenReview(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	require.NoError(t, svc.SubmitReview(context.Background(), SubmitReviewRequest{
		ReviewID:       a.ID,
		Recommendation: domain.RecommendationMajor,
		Actor:          testReviewer,
	}))

	err := svc.ReopenReview(context.Background(), ReopenRequest{
		ReviewID: a.ID,
		Reason:   "report missing required sections",
		Actor:    testEditor,
	})
	require.NoError(t, err)

	stored := store.assignments.byID[a.ID]
	assert.Nil(t, stored.SubmittedAt)
	assert.Nil(t, stored.Recommendation)
	assert.Contains(t, store.outbox.eventTypes(), domain.EventTypeReviewReopened)

	// The reopened review can be submitted again.
	require.NoError(t, svc.SubmitReview(context.Background(), SubmitReviewRequest{
		ReviewID:       a.ID,
		Recommendation: domain.RecommendationMinor,
		Actor:          testReviewer,
	}))
}

func TestReopenReview_NotSubmitted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.ReopenReview(context.Background(), ReopenRequest{ReviewID: a.ID, Actor: testEditor})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReopenReview_EditorTierOnly(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.ReopenReview(context.Background(), ReopenRequest{ReviewID: a.ID, Actor: testReviewer})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRateReview(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	require.NoError(t, svc.SubmitReview(context.Background(), SubmitReviewRequest{
		ReviewID:       a.ID,
		Recommendation: domain.RecommendationAccept,
		Actor:          testReviewer,
	}))

	require.NoError(t, svc.RateReview(context.Background(), a.ID, 4.5, testEditor))

	stored := store.assignments.byID[a.ID]
	require.NotNil(t, stored.QualityRating)
	assert.Equal(t, 4.5, *stored.QualityRating)
	assert.InDelta(t, 4.5, store.reviewers.byID["rev-1"].Statistics.AverageQualityRating, 1e-9)
}

func TestRateReview_Rejections(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)
	a := inviteForTest(t, store, svc, "rev-1")

	err := svc.RateReview(context.Background(), a.ID, 4.0, testReviewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.RateReview(context.Background(), a.ID, 6.0, testEditor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.RateReview(context.Background(), a.ID, 4.0, testEditor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "unsubmitted review cannot be rated")
}

func TestUpsertReviewerProfile(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestReviewService(store, nil)

	p := &domain.ReviewerProfile{
		UserID:    "rev-1",
		Keywords:  []string{" Hydrodynamics ", "hydrodynamics", "Turbulence"},
		Expertise: []string{"fluid dynamics"},
	}
	require.NoError(t, svc.UpsertReviewerProfile(context.Background(), p, testReviewer))

	stored := store.reviewers.byID["rev-1"]
	assert.Equal(t, []string{"hydrodynamics", "turbulence"}, stored.Keywords)
	assert.Equal(t, 3, stored.MaxConcurrentReviews, "default concurrent cap applied")
}

func TestUpsertReviewerProfile_Forbidden(t *testing.T) {
	t.Parallel()

	svc := newTestReviewService(newMemStore(), nil)

	err := svc.UpsertReviewerProfile(context.Background(), &domain.ReviewerProfile{UserID: "rev-2"}, testReviewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
