// Package domain provides domain models and business logic for the Editorial Workflow Service.
package domain

// ManuscriptStatus represents the lifecycle states of a manuscript.
// These values must match the database enum manuscript_status.
type ManuscriptStatus string

const (
	ManuscriptStatusNew          ManuscriptStatus = "NEW"
	ManuscriptStatusDeskReject   ManuscriptStatus = "DESK_REJECT"
	ManuscriptStatusUnderReview  ManuscriptStatus = "UNDER_REVIEW"
	ManuscriptStatusRevision     ManuscriptStatus = "REVISION"
	ManuscriptStatusAccepted     ManuscriptStatus = "ACCEPTED"
	ManuscriptStatusRejected     ManuscriptStatus = "REJECTED"
	ManuscriptStatusInProduction ManuscriptStatus = "IN_PRODUCTION"
	ManuscriptStatusPublished    ManuscriptStatus = "PUBLISHED"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s ManuscriptStatus) IsTerminal() bool {
	switch s {
	case ManuscriptStatusDeskReject, ManuscriptStatusRejected, ManuscriptStatusPublished:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is a member of the closed state set.
func (s ManuscriptStatus) IsValid() bool {
	switch s {
	case ManuscriptStatusNew, ManuscriptStatusDeskReject, ManuscriptStatusUnderReview,
		ManuscriptStatusRevision, ManuscriptStatusAccepted, ManuscriptStatusRejected,
		ManuscriptStatusInProduction, ManuscriptStatusPublished:
		return true
	default:
		return false
	}
}

// Recommendation represents a reviewer's categorical verdict.
// These values must match the database enum recommendation.
type Recommendation string

const (
	RecommendationAccept Recommendation = "ACCEPT"
	RecommendationMinor  Recommendation = "MINOR"
	RecommendationMajor  Recommendation = "MAJOR"
	RecommendationReject Recommendation = "REJECT"
)

// IsValid returns true if the recommendation is a member of the closed set.
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendationAccept, RecommendationMinor, RecommendationMajor, RecommendationReject:
		return true
	default:
		return false
	}
}

// DeadlineType represents the kind of obligation a deadline tracks.
// These values must match the database enum deadline_type.
type DeadlineType string

const (
	DeadlineTypeReviewSubmission   DeadlineType = "REVIEW_SUBMISSION"
	DeadlineTypeRevisionSubmission DeadlineType = "REVISION_SUBMISSION"
	DeadlineTypeEditorDecision     DeadlineType = "EDITOR_DECISION"
	DeadlineTypeProduction         DeadlineType = "PRODUCTION"
)

// IsValid returns true if the deadline type is a member of the closed set.
func (t DeadlineType) IsValid() bool {
	switch t {
	case DeadlineTypeReviewSubmission, DeadlineTypeRevisionSubmission,
		DeadlineTypeEditorDecision, DeadlineTypeProduction:
		return true
	default:
		return false
	}
}

// Role represents an actor's role within the journal.
// These values must match the database enum user_role.
type Role string

const (
	RoleAuthor       Role = "AUTHOR"
	RoleReviewer     Role = "REVIEWER"
	RoleEditor       Role = "EDITOR"
	RoleSeniorEditor Role = "SENIOR_EDITOR"
	RoleChiefEditor  Role = "CHIEF_EDITOR"
)

// IsValid returns true if the role is a member of the closed set.
func (r Role) IsValid() bool {
	switch r {
	case RoleAuthor, RoleReviewer, RoleEditor, RoleSeniorEditor, RoleChiefEditor:
		return true
	default:
		return false
	}
}

// IsEditorTier returns true for roles that may perform editor actions such as
// inviting reviewers and reopening reviews.
func (r Role) IsEditorTier() bool {
	switch r {
	case RoleEditor, RoleSeniorEditor, RoleChiefEditor:
		return true
	default:
		return false
	}
}

// Actor is the authenticated identity attached to every request.
type Actor struct {
	UserID string
	Role   Role
}
