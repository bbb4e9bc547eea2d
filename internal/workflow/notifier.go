package workflow

import (
	"context"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Notifier delivers best-effort notifications after a state change commits.
// Implementations must not block the request path for long; failures are
// logged and counted, never surfaced to the caller.
type Notifier interface {
	// NotifyStatusChanged informs the author (and assigned reviewers for
	// decision outcomes) that the manuscript moved to a new status.
	NotifyStatusChanged(ctx context.Context, m *domain.Manuscript, from domain.ManuscriptStatus, actor domain.Actor) error

	// NotifyReviewInvited informs a reviewer of a new invitation.
	NotifyReviewInvited(ctx context.Context, a *domain.ReviewAssignment, m *domain.Manuscript) error

	// NotifyDeadlineOverdue informs the assignee that a deadline lapsed.
	NotifyDeadlineOverdue(ctx context.Context, d *domain.Deadline) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyStatusChanged(context.Context, *domain.Manuscript, domain.ManuscriptStatus, domain.Actor) error {
	return nil
}

func (NopNotifier) NotifyReviewInvited(context.Context, *domain.ReviewAssignment, *domain.Manuscript) error {
	return nil
}

func (NopNotifier) NotifyDeadlineOverdue(context.Context, *domain.Deadline) error {
	return nil
}

var _ Notifier = NopNotifier{}
