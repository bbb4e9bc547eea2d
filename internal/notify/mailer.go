// Package notify delivers editorial email notifications over SMTP.
//
// Every delivery is best-effort: the workflow services log and count
// failures but never surface them to the caller.
package notify

import (
	"context"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/domain"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/workflow"
)

// AddressResolver maps a user id to a mailbox address.
type AddressResolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

// AddressResolverFunc adapts a function to the AddressResolver interface.
type AddressResolverFunc func(ctx context.Context, userID string) (string, error)

// Resolve implements AddressResolver.
func (f AddressResolverFunc) Resolve(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// DomainResolver forms addresses as userID@domain. Stands in until the
// identity service exposes mailbox lookup.
type DomainResolver struct {
	Domain string
}

// Resolve implements AddressResolver.
func (r DomainResolver) Resolve(_ context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	return userID + "@" + r.Domain, nil
}

// Mailer sends editorial notifications over SMTP with a token-bucket rate
// limit shared across all notification kinds.
type Mailer struct {
	dialer    *mail.Dialer
	from      string
	resolver  AddressResolver
	limiter   *rate.Limiter
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewMailer creates a Mailer from configuration.
func NewMailer(cfg config.MailConfig, resolver AddressResolver, metrics *observability.Metrics, logger zerolog.Logger) *Mailer {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		dialer.Timeout = cfg.Timeout
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Mailer{
		dialer:   dialer,
		from:     cfg.From,
		resolver: resolver,
		limiter:  rate.NewLimiter(limit, burst),
		metrics:  metrics,
		logger:   logger.With().Str("component", "mailer").Logger(),
	}
}

// NotifyStatusChanged emails the author about the manuscript's new status.
func (m *Mailer) NotifyStatusChanged(ctx context.Context, manuscript *domain.Manuscript, from domain.ManuscriptStatus, _ domain.Actor) error {
	subject := fmt.Sprintf("[%s] Status update: %s", manuscript.Code, manuscript.Status)
	body := fmt.Sprintf(
		"Your manuscript %q (%s) moved from %s to %s.",
		manuscript.Title, manuscript.Code, from, manuscript.Status,
	)
	return m.send(ctx, "status_changed", manuscript.AuthorID, subject, body)
}

// NotifyReviewInvited emails the reviewer about a new invitation.
func (m *Mailer) NotifyReviewInvited(ctx context.Context, a *domain.ReviewAssignment, manuscript *domain.Manuscript) error {
	subject := fmt.Sprintf("[%s] Review invitation", manuscript.Code)
	body := fmt.Sprintf(
		"You are invited to review %q (%s), round %d. The review is due %s.",
		manuscript.Title, manuscript.Code, a.Round, a.DueDate.Format("2 January 2006"),
	)
	return m.send(ctx, "review_invited", a.ReviewerID, subject, body)
}

// NotifyDeadlineOverdue emails the deadline's assignee. Deadlines without an
// assignee are skipped.
func (m *Mailer) NotifyDeadlineOverdue(ctx context.Context, d *domain.Deadline) error {
	if d.AssignedTo == "" {
		return nil
	}
	subject := fmt.Sprintf("Overdue: %s", d.Type)
	body := fmt.Sprintf(
		"The %s deadline for manuscript %s passed on %s.",
		d.Type, d.ManuscriptID, d.DueDate.Format("2 January 2006"),
	)
	return m.send(ctx, "deadline_overdue", d.AssignedTo, subject, body)
}

func (m *Mailer) send(ctx context.Context, kind, userID, subject, body string) error {
	if !m.limiter.Allow() {
		m.logger.Warn().
			Str("kind", kind).
			Str("user_id", userID).
			Msg("notification dropped by rate limit")
		m.recordFailure(kind)
		return fmt.Errorf("notification rate limit exceeded")
	}

	to, err := m.resolver.Resolve(ctx, userID)
	if err != nil {
		m.recordFailure(kind)
		return fmt.Errorf("resolving address for %s: %w", userID, err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.recordFailure(kind)
		return fmt.Errorf("sending %s mail: %w", kind, err)
	}

	if m.metrics != nil {
		m.metrics.RecordNotificationSent(kind)
	}
	m.logger.Debug().
		Str("kind", kind).
		Str("user_id", userID).
		Msg("notification sent")
	return nil
}

func (m *Mailer) recordFailure(kind string) {
	if m.metrics != nil {
		m.metrics.RecordNotificationFailed(kind)
	}
}

var _ workflow.Notifier = (*Mailer)(nil)
