package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/domain"
)

func newTestManager() *TokenManager {
	return NewTokenManager(config.AuthConfig{
		Secret:   "test-secret-test-secret-test-secret",
		Issuer:   "editorial-service",
		Audience: "editorial-service",
		TokenTTL: time.Hour,
	})
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	tm := newTestManager()

	token, expiresAt, err := tm.Issue("editor-1", domain.RoleEditor)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	actor, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "editor-1", actor.UserID)
	assert.Equal(t, domain.RoleEditor, actor.Role)
}

func TestIssue_UnknownRole(t *testing.T) {
	t.Parallel()

	_, _, err := newTestManager().Issue("user-1", "SUPERUSER")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerify_Rejections(t *testing.T) {
	t.Parallel()

	tm := newTestManager()

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, err := tm.Verify("not.a.token")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other := NewTokenManager(config.AuthConfig{
			Secret: "another-secret-entirely", Issuer: "editorial-service",
			Audience: "editorial-service", TokenTTL: time.Hour,
		})
		token, _, err := other.Issue("editor-1", domain.RoleEditor)
		require.NoError(t, err)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other := NewTokenManager(config.AuthConfig{
			Secret: "test-secret-test-secret-test-secret", Issuer: "someone-else",
			Audience: "editorial-service", TokenTTL: time.Hour,
		})
		token, _, err := other.Issue("editor-1", domain.RoleEditor)
		require.NoError(t, err)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		issuing := newTestManager()
		issuing.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := issuing.Issue("editor-1", domain.RoleEditor)
		require.NoError(t, err)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tm := newTestManager()
	token, _, err := tm.Issue("chief-1", domain.RoleChiefEditor)
	require.NoError(t, err)

	var seen domain.Actor
	handler := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.Actor{UserID: "chief-1", Role: domain.RoleChiefEditor}, seen)
}

func TestMiddleware_Unauthorized(t *testing.T) {
	t.Parallel()

	tm := newTestManager()
	handler := Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic Zm9vOmJhcg=="},
		{"invalid token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
