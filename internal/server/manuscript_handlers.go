package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openjournal/editorial-service/internal/auth"
	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/repository"
	"github.com/openjournal/editorial-service/internal/workflow"
)

// actorFromRequest extracts the authenticated actor, writing a 401 response
// when the auth middleware has not populated one.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthorized, "unauthorized")
		return domain.Actor{}, false
	}
	return actor, true
}

// decodeBody decodes a size-limited JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid JSON request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, validationMessage(err))
		return false
	}
	return true
}

type submitManuscriptRequest struct {
	Title    string   `json:"title" validate:"required,max=500"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty" validate:"max=20"`
	Category string   `json:"category" validate:"required,max=100"`
}

// submitManuscript handles POST /manuscripts. The authenticated user becomes
// the manuscript's author.
func (s *Server) submitManuscript(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req submitManuscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.manuscripts.SubmitManuscript(r.Context(), workflow.SubmitRequest{
		Title:    req.Title,
		Abstract: req.Abstract,
		Keywords: req.Keywords,
		Category: req.Category,
		AuthorID: actor.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// getManuscript handles GET /manuscripts/{manuscriptID}.
func (s *Server) getManuscript(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	m, err := s.manuscripts.GetManuscript(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

type listManuscriptsResponse struct {
	Manuscripts   []*domain.Manuscript `json:"manuscripts"`
	NextPageToken string               `json:"next_page_token,omitempty"`
	TotalCount    int                  `json:"total_count"`
}

// listManuscripts handles GET /manuscripts with optional status, author,
// category and date filters.
func (s *Server) listManuscripts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.ManuscriptFilter{
		AuthorID: r.URL.Query().Get("author_id"),
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		for _, st := range strings.Split(statusParam, ",") {
			filter.Status = append(filter.Status, domain.ManuscriptStatus(strings.TrimSpace(st)))
		}
	}

	if createdAfter := r.URL.Query().Get("created_after"); createdAfter != "" {
		t, parseErr := time.Parse(time.RFC3339, createdAfter)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, kindValidation, "invalid created_after format: expected RFC3339")
			return
		}
		filter.CreatedAfter = &t
	}
	if createdBefore := r.URL.Query().Get("created_before"); createdBefore != "" {
		t, parseErr := time.Parse(time.RFC3339, createdBefore)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, kindValidation, "invalid created_before format: expected RFC3339")
			return
		}
		filter.CreatedBefore = &t
	}

	manuscripts, totalCount, err := s.manuscripts.ListManuscripts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listManuscriptsResponse{
		Manuscripts:   manuscripts,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

type transitionRequest struct {
	Target string `json:"target" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// transitionManuscript handles POST /manuscripts/{manuscriptID}/transition.
func (s *Server) transitionManuscript(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	id, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	var req transitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.manuscripts.RequestTransition(r.Context(), workflow.TransitionRequest{
		ManuscriptID: id,
		Target:       domain.ManuscriptStatus(req.Target),
		Actor:        actor,
		Note:         req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

type manuscriptHistoryResponse struct {
	StatusHistory []*domain.StatusHistoryEntry `json:"status_history"`
	Decisions     []*domain.Decision           `json:"decisions"`
}

// getManuscriptHistory handles GET /manuscripts/{manuscriptID}/history. It
// returns the status transitions alongside the editorial decision history.
func (s *Server) getManuscriptHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	history, err := s.manuscripts.StatusHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	decisions, err := s.manuscripts.Decisions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if history == nil {
		history = []*domain.StatusHistoryEntry{}
	}
	if decisions == nil {
		decisions = []*domain.Decision{}
	}

	writeJSON(w, http.StatusOK, manuscriptHistoryResponse{
		StatusHistory: history,
		Decisions:     decisions,
	})
}
