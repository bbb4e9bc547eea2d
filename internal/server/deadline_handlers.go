package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/workflow"
)

type upsertDeadlineRequest struct {
	Type       string `json:"type" validate:"required"`
	DueDate    string `json:"due_date" validate:"required"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// upsertDeadline handles PUT /manuscripts/{manuscriptID}/deadlines. One
// deadline per (manuscript, type); replacing clears any prior completion.
func (s *Server) upsertDeadline(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	var req upsertDeadlineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid due_date format: expected RFC3339")
		return
	}

	deadline, err := s.deadlines.UpsertDeadline(r.Context(), workflow.UpsertDeadlineRequest{
		ManuscriptID: manuscriptID,
		Type:         domain.DeadlineType(req.Type),
		DueDate:      dueDate,
		AssignedTo:   req.AssignedTo,
		Actor:        actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deadline)
}

type listDeadlinesResponse struct {
	Deadlines []*domain.Deadline `json:"deadlines"`
}

// listDeadlines handles GET /manuscripts/{manuscriptID}/deadlines. Overdue
// flags are recomputed on read.
func (s *Server) listDeadlines(w http.ResponseWriter, r *http.Request) {
	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	deadlines, err := s.deadlines.ListByManuscript(r.Context(), manuscriptID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if deadlines == nil {
		deadlines = []*domain.Deadline{}
	}

	writeJSON(w, http.StatusOK, listDeadlinesResponse{Deadlines: deadlines})
}

// sweepDeadlines handles POST /deadlines/sweep. Manual trigger for the
// overdue sweep; editor tier only.
func (s *Server) sweepDeadlines(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	if !actor.Role.IsEditorTier() {
		writeError(w, http.StatusForbidden, kindForbidden, "forbidden")
		return
	}

	result, err := s.deadlines.Sweep(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
