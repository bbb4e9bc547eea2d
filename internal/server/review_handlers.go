package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/workflow"
)

type inviteReviewerRequest struct {
	ReviewerID string  `json:"reviewer_id" validate:"required"`
	Round      int     `json:"round,omitempty" validate:"omitempty,min=1"`
	DueDate    *string `json:"due_date,omitempty"`
}

// inviteReviewer handles POST /manuscripts/{manuscriptID}/reviews.
func (s *Server) inviteReviewer(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	var req inviteReviewerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	invite := workflow.InviteRequest{
		ManuscriptID: manuscriptID,
		ReviewerID:   req.ReviewerID,
		Round:        req.Round,
		Actor:        actor,
	}
	if req.DueDate != nil {
		t, parseErr := time.Parse(time.RFC3339, *req.DueDate)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, kindValidation, "invalid due_date format: expected RFC3339")
			return
		}
		invite.DueDate = &t
	}

	assignment, err := s.reviews.InviteReviewer(r.Context(), invite)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, assignment)
}

type listReviewsResponse struct {
	Reviews []*domain.ReviewAssignment `json:"reviews"`
}

// listReviews handles GET /manuscripts/{manuscriptID}/reviews with an
// optional round filter.
func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	round := 0
	if roundParam := r.URL.Query().Get("round"); roundParam != "" {
		parsed, parseErr := strconv.Atoi(roundParam)
		if parseErr != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, kindValidation, "round must be a positive integer")
			return
		}
		round = parsed
	}

	reviews, err := s.reviews.ListReviews(r.Context(), manuscriptID, round)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.ReviewAssignment{}
	}

	writeJSON(w, http.StatusOK, listReviewsResponse{Reviews: reviews})
}

// getReview handles GET /reviews/{reviewID}.
func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := parseUUID(w, chi.URLParam(r, "reviewID"), "review_id")
	if !ok {
		return
	}

	assignment, err := s.reviews.GetReview(r.Context(), reviewID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

type reviewResponseRequest struct {
	Accept bool `json:"accept"`
}

// respondToInvite handles POST /reviews/{reviewID}/response.
func (s *Server) respondToInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	reviewID, ok := parseUUID(w, chi.URLParam(r, "reviewID"), "review_id")
	if !ok {
		return
	}

	var req reviewResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.reviews.RespondToInvite(r.Context(), workflow.ResponseRequest{
		ReviewID: reviewID,
		Accept:   req.Accept,
		Actor:    actor,
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": req.Accept})
}

type submitReviewRequest struct {
	Recommendation string            `json:"recommendation" validate:"required"`
	Score          *float64          `json:"score,omitempty" validate:"omitempty,min=0,max=10"`
	FormFields     map[string]string `json:"form_fields,omitempty"`
}

// submitReview handles POST /reviews/{reviewID}/submission.
func (s *Server) submitReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	reviewID, ok := parseUUID(w, chi.URLParam(r, "reviewID"), "review_id")
	if !ok {
		return
	}

	var req submitReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.reviews.SubmitReview(r.Context(), workflow.SubmitReviewRequest{
		ReviewID:       reviewID,
		Recommendation: domain.Recommendation(req.Recommendation),
		Score:          req.Score,
		FormFields:     req.FormFields,
		Actor:          actor,
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

type reopenReviewRequest struct {
	Reason string `json:"reason,omitempty"`
}

// reopenReview handles POST /reviews/{reviewID}/reopen. Editor tier only,
// enforced by the review service.
func (s *Server) reopenReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	reviewID, ok := parseUUID(w, chi.URLParam(r, "reviewID"), "review_id")
	if !ok {
		return
	}

	var req reopenReviewRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	if err := s.reviews.ReopenReview(r.Context(), workflow.ReopenRequest{
		ReviewID: reviewID,
		Reason:   req.Reason,
		Actor:    actor,
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reopened"})
}

type rateReviewRequest struct {
	Rating float64 `json:"rating" validate:"min=1,max=5"`
}

// rateReview handles POST /reviews/{reviewID}/rating.
func (s *Server) rateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	reviewID, ok := parseUUID(w, chi.URLParam(r, "reviewID"), "review_id")
	if !ok {
		return
	}

	var req rateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.reviews.RateReview(r.Context(), reviewID, req.Rating, actor); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rated"})
}

type suggestionsResponse struct {
	Suggestions []domain.ReviewerSuggestion `json:"suggestions"`
}

// suggestReviewers handles GET /manuscripts/{manuscriptID}/reviewer-suggestions.
// Reviewers already invited for the manuscript are excluded, regardless of
// round, unless they declined.
func (s *Server) suggestReviewers(w http.ResponseWriter, r *http.Request) {
	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	m, err := s.manuscripts.GetManuscript(r.Context(), manuscriptID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	assignments, err := s.reviews.ListReviews(r.Context(), manuscriptID, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var exclude []string
	for _, a := range assignments {
		if a.DeclinedAt == nil {
			exclude = append(exclude, a.ReviewerID)
		}
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, parseErr := strconv.Atoi(limitParam); parseErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	suggestions, err := s.suggester.Suggest(r.Context(), workflow.SuggestRequest{
		Keywords: m.Keywords,
		Category: m.Category,
		AuthorID: m.AuthorID,
		Exclude:  exclude,
		Limit:    limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.ReviewerSuggestion{}
	}

	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

type recommendationResponse struct {
	workflow.DecisionSuggestion
	Message string `json:"message,omitempty"`
}

// roundRecommendation handles
// GET /manuscripts/{manuscriptID}/rounds/{roundNo}/recommendation.
func (s *Server) roundRecommendation(w http.ResponseWriter, r *http.Request) {
	manuscriptID, ok := parseUUID(w, chi.URLParam(r, "manuscriptID"), "manuscript_id")
	if !ok {
		return
	}

	round, err := strconv.Atoi(chi.URLParam(r, "roundNo"))
	if err != nil || round < 1 {
		writeError(w, http.StatusBadRequest, kindValidation, "round must be a positive integer")
		return
	}

	suggestion, err := s.manuscripts.SuggestDecision(r.Context(), manuscriptID, round)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := recommendationResponse{DecisionSuggestion: *suggestion}
	if !suggestion.HasSuggestion {
		resp.Message = "manual decision required"
	}

	writeJSON(w, http.StatusOK, resp)
}

type reviewerProfileRequest struct {
	Expertise            []string `json:"expertise,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	MaxConcurrentReviews int      `json:"max_concurrent_reviews,omitempty" validate:"omitempty,min=1"`
	UnavailableUntil     *string  `json:"unavailable_until,omitempty"`
}

// upsertReviewerProfile handles PUT /reviewers/{reviewerID}. Reviewers may
// edit their own profile; editors may edit anyone's.
func (s *Server) upsertReviewerProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	reviewerID := chi.URLParam(r, "reviewerID")
	if reviewerID == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "reviewer_id is required")
		return
	}

	var req reviewerProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := &domain.ReviewerProfile{
		UserID:               reviewerID,
		Expertise:            req.Expertise,
		Keywords:             req.Keywords,
		MaxConcurrentReviews: req.MaxConcurrentReviews,
	}
	if req.UnavailableUntil != nil {
		t, parseErr := time.Parse(time.RFC3339, *req.UnavailableUntil)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, kindValidation, "invalid unavailable_until format: expected RFC3339")
			return
		}
		profile.UnavailableUntil = &t
	}

	if err := s.reviews.UpsertReviewerProfile(r.Context(), profile, actor); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// getReviewerProfile handles GET /reviewers/{reviewerID}.
func (s *Server) getReviewerProfile(w http.ResponseWriter, r *http.Request) {
	reviewerID := chi.URLParam(r, "reviewerID")
	if reviewerID == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "reviewer_id is required")
		return
	}

	profile, err := s.reviews.GetReviewerProfile(r.Context(), reviewerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
