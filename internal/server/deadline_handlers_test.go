package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/workflow"
)

func TestUpsertDeadline_Success(t *testing.T) {
	t.Parallel()

	manuscriptID := uuid.New()
	deps := newTestDeps()
	var captured workflow.UpsertDeadlineRequest
	deps.deadlines.upsertFn = func(_ context.Context, req workflow.UpsertDeadlineRequest) (*domain.Deadline, error) {
		captured = req
		return &domain.Deadline{
			ID:           uuid.New(),
			ManuscriptID: req.ManuscriptID,
			Type:         req.Type,
			DueDate:      req.DueDate,
			AssignedTo:   req.AssignedTo,
		}, nil
	}
	s := newTestServer(deps, &editorActor)

	body := `{"type":"EDITOR_DECISION","due_date":"2026-05-01T00:00:00Z","assigned_to":"editor-2"}`
	rr := serveHTTP(s, httptest.NewRequest(http.MethodPut, "/api/v1/manuscripts/"+manuscriptID.String()+"/deadlines", jsonBody(body)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, manuscriptID, captured.ManuscriptID)
	assert.Equal(t, domain.DeadlineTypeEditorDecision, captured.Type)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), captured.DueDate.UTC())
	assert.Equal(t, "editor-2", captured.AssignedTo)
	assert.Equal(t, editorActor, captured.Actor)

	var d domain.Deadline
	decodeJSON(t, rr, &d)
	assert.Equal(t, domain.DeadlineTypeEditorDecision, d.Type)
}

func TestUpsertDeadline_MissingDueDate(t *testing.T) {
	t.Parallel()

	s := newTestServer(newTestDeps(), &editorActor)
	body := `{"type":"EDITOR_DECISION"}`
	rr := serveHTTP(s, httptest.NewRequest(http.MethodPut, "/api/v1/manuscripts/"+uuid.NewString()+"/deadlines", jsonBody(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpsertDeadline_BadDueDate(t *testing.T) {
	t.Parallel()

	s := newTestServer(newTestDeps(), &editorActor)
	body := `{"type":"EDITOR_DECISION","due_date":"soon"}`
	rr := serveHTTP(s, httptest.NewRequest(http.MethodPut, "/api/v1/manuscripts/"+uuid.NewString()+"/deadlines", jsonBody(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpsertDeadline_UnknownType(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.deadlines.upsertFn = func(_ context.Context, req workflow.UpsertDeadlineRequest) (*domain.Deadline, error) {
		return nil, domain.NewValidationError("type", "unknown deadline type: "+string(req.Type))
	}
	s := newTestServer(deps, &editorActor)

	body := `{"type":"GRACE_PERIOD","due_date":"2026-05-01T00:00:00Z"}`
	rr := serveHTTP(s, httptest.NewRequest(http.MethodPut, "/api/v1/manuscripts/"+uuid.NewString()+"/deadlines", jsonBody(body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListDeadlines(t *testing.T) {
	t.Parallel()

	manuscriptID := uuid.New()
	deps := newTestDeps()
	deps.deadlines.listFn = func(_ context.Context, id uuid.UUID) ([]*domain.Deadline, error) {
		assert.Equal(t, manuscriptID, id)
		return []*domain.Deadline{{
			ID:           uuid.New(),
			ManuscriptID: id,
			Type:         domain.DeadlineTypeReviewSubmission,
			IsOverdue:    true,
		}}, nil
	}
	s := newTestServer(deps, &editorActor)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts/"+manuscriptID.String()+"/deadlines", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp listDeadlinesResponse
	decodeJSON(t, rr, &resp)
	require.Len(t, resp.Deadlines, 1)
	assert.True(t, resp.Deadlines[0].IsOverdue)
}

func TestListDeadlines_EmptyIsArray(t *testing.T) {
	t.Parallel()

	s := newTestServer(newTestDeps(), &editorActor)
	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts/"+uuid.NewString()+"/deadlines", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"deadlines":[]`)
}

func TestSweepDeadlines(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.deadlines.sweepFn = func(_ context.Context) (*workflow.SweepResult, error) {
		return &workflow.SweepResult{NewlyOverdue: 3}, nil
	}
	s := newTestServer(deps, &editorActor)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/v1/deadlines/sweep", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp workflow.SweepResult
	decodeJSON(t, rr, &resp)
	assert.Equal(t, 3, resp.NewlyOverdue)
}

func TestSweepDeadlines_EditorTierOnly(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	swept := false
	deps.deadlines.sweepFn = func(_ context.Context) (*workflow.SweepResult, error) {
		swept = true
		return &workflow.SweepResult{}, nil
	}
	s := newTestServer(deps, &reviewerActor)

	rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/v1/deadlines/sweep", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, swept)
}
