package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openjournal/editorial-service/internal/domain"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    domain.ManuscriptStatus
		to      domain.ManuscriptStatus
		allowed bool
	}{
		{"new to desk reject", domain.ManuscriptStatusNew, domain.ManuscriptStatusDeskReject, true},
		{"new to under review", domain.ManuscriptStatusNew, domain.ManuscriptStatusUnderReview, true},
		{"new to accepted skips review", domain.ManuscriptStatusNew, domain.ManuscriptStatusAccepted, false},
		{"under review to revision", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusRevision, true},
		{"under review to accepted", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusAccepted, true},
		{"under review to rejected", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusRejected, true},
		{"under review to published", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusPublished, false},
		{"revision back to review", domain.ManuscriptStatusRevision, domain.ManuscriptStatusUnderReview, true},
		{"revision to rejected", domain.ManuscriptStatusRevision, domain.ManuscriptStatusRejected, true},
		{"revision to accepted", domain.ManuscriptStatusRevision, domain.ManuscriptStatusAccepted, false},
		{"accepted to production", domain.ManuscriptStatusAccepted, domain.ManuscriptStatusInProduction, true},
		{"accepted to published", domain.ManuscriptStatusAccepted, domain.ManuscriptStatusPublished, false},
		{"production to published", domain.ManuscriptStatusInProduction, domain.ManuscriptStatusPublished, true},
		{"desk reject is terminal", domain.ManuscriptStatusDeskReject, domain.ManuscriptStatusUnderReview, false},
		{"rejected is terminal", domain.ManuscriptStatusRejected, domain.ManuscriptStatusUnderReview, false},
		{"published is terminal", domain.ManuscriptStatusPublished, domain.ManuscriptStatusInProduction, false},
		{"no self transition", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusUnderReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedTargets(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []domain.ManuscriptStatus{
		domain.ManuscriptStatusDeskReject,
		domain.ManuscriptStatusUnderReview,
	}, AllowedTargets(domain.ManuscriptStatusNew))

	assert.Nil(t, AllowedTargets(domain.ManuscriptStatusPublished))
	assert.Nil(t, AllowedTargets(domain.ManuscriptStatusRejected))
}

func TestAllowedTargets_ReturnsCopy(t *testing.T) {
	t.Parallel()

	targets := AllowedTargets(domain.ManuscriptStatusNew)
	targets[0] = domain.ManuscriptStatusPublished
	assert.NotContains(t, AllowedTargets(domain.ManuscriptStatusNew), domain.ManuscriptStatusPublished)
}

func TestAllowedRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		from  domain.ManuscriptStatus
		to    domain.ManuscriptStatus
		role  domain.Role
		allow bool
	}{
		{"editor desk rejects", domain.ManuscriptStatusNew, domain.ManuscriptStatusDeskReject, domain.RoleEditor, true},
		{"author cannot move own manuscript", domain.ManuscriptStatusNew, domain.ManuscriptStatusUnderReview, domain.RoleAuthor, false},
		{"reviewer cannot decide", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusAccepted, domain.RoleReviewer, false},
		{"editor decides review outcome", domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusRejected, domain.RoleEditor, true},
		{"editor cannot start production", domain.ManuscriptStatusAccepted, domain.ManuscriptStatusInProduction, domain.RoleEditor, false},
		{"senior editor starts production", domain.ManuscriptStatusAccepted, domain.ManuscriptStatusInProduction, domain.RoleSeniorEditor, true},
		{"chief editor starts production", domain.ManuscriptStatusAccepted, domain.ManuscriptStatusInProduction, domain.RoleChiefEditor, true},
		{"senior editor cannot publish", domain.ManuscriptStatusInProduction, domain.ManuscriptStatusPublished, domain.RoleSeniorEditor, false},
		{"only chief editor publishes", domain.ManuscriptStatusInProduction, domain.ManuscriptStatusPublished, domain.RoleChiefEditor, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.allow, roleAllowed(tt.from, tt.to, tt.role))
		})
	}
}

func TestAllowedRoles_UnknownEdge(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AllowedRoles(domain.ManuscriptStatusNew, domain.ManuscriptStatusPublished))
}

func TestIsDecisionBearing(t *testing.T) {
	t.Parallel()

	assert.True(t, isDecisionBearing(domain.ManuscriptStatusDeskReject))
	assert.True(t, isDecisionBearing(domain.ManuscriptStatusAccepted))
	assert.True(t, isDecisionBearing(domain.ManuscriptStatusRevision))
	assert.True(t, isDecisionBearing(domain.ManuscriptStatusRejected))

	assert.False(t, isDecisionBearing(domain.ManuscriptStatusUnderReview))
	assert.False(t, isDecisionBearing(domain.ManuscriptStatusInProduction))
	assert.False(t, isDecisionBearing(domain.ManuscriptStatusPublished))
}
