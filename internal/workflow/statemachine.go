package workflow

import (
	"github.com/openjournal/editorial-service/internal/domain"
)

// transitionKey identifies one edge of the lifecycle graph.
type transitionKey struct {
	from domain.ManuscriptStatus
	to   domain.ManuscriptStatus
}

// transitionTable is the closed set of permitted status changes. Statuses
// absent from the map (DESK_REJECT, REJECTED, PUBLISHED) are terminal.
var transitionTable = map[domain.ManuscriptStatus][]domain.ManuscriptStatus{
	domain.ManuscriptStatusNew: {
		domain.ManuscriptStatusDeskReject,
		domain.ManuscriptStatusUnderReview,
	},
	domain.ManuscriptStatusUnderReview: {
		domain.ManuscriptStatusRevision,
		domain.ManuscriptStatusAccepted,
		domain.ManuscriptStatusRejected,
	},
	domain.ManuscriptStatusRevision: {
		domain.ManuscriptStatusUnderReview,
		domain.ManuscriptStatusRejected,
	},
	domain.ManuscriptStatusAccepted: {
		domain.ManuscriptStatusInProduction,
	},
	domain.ManuscriptStatusInProduction: {
		domain.ManuscriptStatusPublished,
	},
}

var (
	editorTier = []domain.Role{
		domain.RoleEditor,
		domain.RoleSeniorEditor,
		domain.RoleChiefEditor,
	}
	seniorTier = []domain.Role{
		domain.RoleSeniorEditor,
		domain.RoleChiefEditor,
	}
	chiefOnly = []domain.Role{
		domain.RoleChiefEditor,
	}
)

// transitionRoles maps each permitted edge to the roles allowed to request it.
// Moving into production requires a senior editor; publishing is reserved for
// the chief editor.
var transitionRoles = map[transitionKey][]domain.Role{
	{domain.ManuscriptStatusNew, domain.ManuscriptStatusDeskReject}:          editorTier,
	{domain.ManuscriptStatusNew, domain.ManuscriptStatusUnderReview}:         editorTier,
	{domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusRevision}:    editorTier,
	{domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusAccepted}:    editorTier,
	{domain.ManuscriptStatusUnderReview, domain.ManuscriptStatusRejected}:    editorTier,
	{domain.ManuscriptStatusRevision, domain.ManuscriptStatusUnderReview}:    editorTier,
	{domain.ManuscriptStatusRevision, domain.ManuscriptStatusRejected}:       editorTier,
	{domain.ManuscriptStatusAccepted, domain.ManuscriptStatusInProduction}:   seniorTier,
	{domain.ManuscriptStatusInProduction, domain.ManuscriptStatusPublished}:  chiefOnly,
}

// CanTransition reports whether the lifecycle table permits the status change.
func CanTransition(from, to domain.ManuscriptStatus) bool {
	for _, t := range transitionTable[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from the given status. The
// returned slice is a copy; terminal statuses yield nil.
func AllowedTargets(from domain.ManuscriptStatus) []domain.ManuscriptStatus {
	targets := transitionTable[from]
	if len(targets) == 0 {
		return nil
	}
	out := make([]domain.ManuscriptStatus, len(targets))
	copy(out, targets)
	return out
}

// AllowedRoles returns the roles that may request the given transition, or
// nil for edges the table does not permit.
func AllowedRoles(from, to domain.ManuscriptStatus) []domain.Role {
	roles := transitionRoles[transitionKey{from, to}]
	if len(roles) == 0 {
		return nil
	}
	out := make([]domain.Role, len(roles))
	copy(out, roles)
	return out
}

func roleAllowed(from, to domain.ManuscriptStatus, role domain.Role) bool {
	for _, r := range transitionRoles[transitionKey{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// isDecisionBearing reports whether a transition into the given status
// records an editorial decision on the manuscript.
func isDecisionBearing(to domain.ManuscriptStatus) bool {
	switch to {
	case domain.ManuscriptStatusDeskReject, domain.ManuscriptStatusAccepted,
		domain.ManuscriptStatusRevision, domain.ManuscriptStatusRejected:
		return true
	default:
		return false
	}
}
