// Package server provides the HTTP REST API for the editorial workflow
// service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/database"
	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/repository"
	"github.com/openjournal/editorial-service/internal/workflow"
)

// ManuscriptService covers the manuscript lifecycle operations the API
// exposes. Implemented by workflow.Engine.
type ManuscriptService interface {
	SubmitManuscript(ctx context.Context, req workflow.SubmitRequest) (*domain.Manuscript, error)
	RequestTransition(ctx context.Context, req workflow.TransitionRequest) (*domain.Manuscript, error)
	GetManuscript(ctx context.Context, id uuid.UUID) (*domain.Manuscript, error)
	ListManuscripts(ctx context.Context, filter repository.ManuscriptFilter) ([]*domain.Manuscript, int64, error)
	StatusHistory(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.StatusHistoryEntry, error)
	Decisions(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Decision, error)
	SuggestDecision(ctx context.Context, manuscriptID uuid.UUID, round int) (*workflow.DecisionSuggestion, error)
}

// ReviewService covers review assignment operations. Implemented by
// workflow.ReviewService.
type ReviewService interface {
	InviteReviewer(ctx context.Context, req workflow.InviteRequest) (*domain.ReviewAssignment, error)
	RespondToInvite(ctx context.Context, req workflow.ResponseRequest) error
	SubmitReview(ctx context.Context, req workflow.SubmitReviewRequest) error
	ReopenReview(ctx context.Context, req workflow.ReopenRequest) error
	RateReview(ctx context.Context, reviewID uuid.UUID, rating float64, actor domain.Actor) error
	GetReview(ctx context.Context, reviewID uuid.UUID) (*domain.ReviewAssignment, error)
	ListReviews(ctx context.Context, manuscriptID uuid.UUID, round int) ([]*domain.ReviewAssignment, error)
	UpsertReviewerProfile(ctx context.Context, p *domain.ReviewerProfile, actor domain.Actor) error
	GetReviewerProfile(ctx context.Context, userID string) (*domain.ReviewerProfile, error)
}

// SuggestionService ranks reviewer candidates. Implemented by
// workflow.Matcher.
type SuggestionService interface {
	Suggest(ctx context.Context, req workflow.SuggestRequest) ([]domain.ReviewerSuggestion, error)
}

// DeadlineService covers deadline management. Implemented by
// workflow.Monitor.
type DeadlineService interface {
	UpsertDeadline(ctx context.Context, req workflow.UpsertDeadlineRequest) (*domain.Deadline, error)
	ListByManuscript(ctx context.Context, manuscriptID uuid.UUID) ([]*domain.Deadline, error)
	Sweep(ctx context.Context) (*workflow.SweepResult, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server

	manuscripts ManuscriptService
	reviews     ReviewService
	suggester   SuggestionService
	deadlines   DeadlineService

	db             *database.DB
	logger         zerolog.Logger
	authMiddleware func(http.Handler) http.Handler
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates the HTTP server with all dependencies.
func NewServer(
	cfg Config,
	manuscripts ManuscriptService,
	reviews ReviewService,
	suggester SuggestionService,
	deadlines DeadlineService,
	db *database.DB,
	logger zerolog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) *Server {
	s := &Server{
		manuscripts:    manuscripts,
		reviews:        reviews,
		suggester:      suggester,
		deadlines:      deadlines,
		db:             db,
		logger:         logger.With().Str("component", "http-server").Logger(),
		authMiddleware: authMiddleware,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.authMiddleware != nil {
			r.Use(s.authMiddleware)
		}

		r.Route("/manuscripts", func(r chi.Router) {
			r.Post("/", s.submitManuscript)
			r.Get("/", s.listManuscripts)

			r.Route("/{manuscriptID}", func(r chi.Router) {
				r.Get("/", s.getManuscript)
				r.Post("/transition", s.transitionManuscript)
				r.Get("/history", s.getManuscriptHistory)

				r.Post("/reviews", s.inviteReviewer)
				r.Get("/reviews", s.listReviews)
				r.Get("/reviewer-suggestions", s.suggestReviewers)
				r.Get("/rounds/{roundNo}/recommendation", s.roundRecommendation)

				r.Put("/deadlines", s.upsertDeadline)
				r.Get("/deadlines", s.listDeadlines)
			})
		})

		r.Route("/reviews/{reviewID}", func(r chi.Router) {
			r.Get("/", s.getReview)
			r.Post("/response", s.respondToInvite)
			r.Post("/submission", s.submitReview)
			r.Post("/reopen", s.reopenReview)
			r.Post("/rating", s.rateReview)
		})

		r.Route("/reviewers/{reviewerID}", func(r chi.Router) {
			r.Put("/", s.upsertReviewerProfile)
			r.Get("/", s.getReviewerProfile)
		})

		r.Post("/deadlines/sweep", s.sweepDeadlines)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler reports whether the service can take traffic.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing left to do.
		_ = err
	}
}
