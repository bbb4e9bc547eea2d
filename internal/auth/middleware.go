package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
)

type actorContextKey struct{}

// WithActor stores the authenticated actor in the context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Middleware resolves the bearer token to an actor and rejects requests
// without one. The actor lands in the request context for handlers and in
// the logging context for request logs.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			actor, err := tm.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := WithActor(r.Context(), actor)
			ctx = observability.WithActor(ctx, actor.UserID, string(actor.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
