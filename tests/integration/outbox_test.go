//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/repository"
)

func TestOutboxLifecycle(t *testing.T) {
	cleanTable(t, "outbox_events")
	repo := repository.NewPgOutboxRepository(testPool)
	ctx := context.Background()

	evt, err := domain.NewOutboxEvent("manuscript.submitted", "ms-outbox-1", "manuscript",
		map[string]string{"title": "integration test"})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, evt))

	// Fetch claims the unpublished event.
	events, err := repo.FetchBatch(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, evt.EventID, events[0].EventID)
	assert.Equal(t, "manuscript.submitted", events[0].EventType)
	assert.JSONEq(t, `{"title": "integration test"}`, string(events[0].Payload))

	// Published events are not fetched again.
	require.NoError(t, repo.MarkPublished(ctx, []string{evt.EventID}, time.Now().UTC()))
	events, err = repo.FetchBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutboxAttemptCap(t *testing.T) {
	cleanTable(t, "outbox_events")
	repo := repository.NewPgOutboxRepository(testPool)
	ctx := context.Background()

	evt, err := domain.NewOutboxEvent("manuscript.submitted", "ms-outbox-2", "manuscript",
		map[string]string{"title": "poison message"})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, evt))

	require.NoError(t, repo.IncrementAttempts(ctx, []string{evt.EventID}))
	require.NoError(t, repo.IncrementAttempts(ctx, []string{evt.EventID}))

	// At the cap the event is left for manual inspection.
	events, err := repo.FetchBatch(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, events)

	// With the cap disabled it is still claimable.
	events, err = repo.FetchBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
