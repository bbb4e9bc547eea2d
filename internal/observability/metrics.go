package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the editorial workflow service.
// Metrics are organized by subsystem: manuscripts, transitions, reviews, matching,
// deadlines, notifications, and the outbox. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// ManuscriptsSubmitted counts the total number of manuscripts submitted.
	ManuscriptsSubmitted prometheus.Counter

	// ManuscriptsPublished counts the total number of manuscripts that reached publication.
	ManuscriptsPublished prometheus.Counter

	// TransitionsApplied counts successful status transitions, labeled by from and to status.
	TransitionsApplied *prometheus.CounterVec

	// TransitionsRejected counts rejected transition requests, labeled by reason.
	TransitionsRejected *prometheus.CounterVec

	// TransitionConflicts counts transitions lost to a concurrent update.
	TransitionConflicts prometheus.Counter

	// DecisionsRecorded counts editorial decisions, labeled by outcome status.
	DecisionsRecorded *prometheus.CounterVec

	// ReviewsInvited counts review invitations sent.
	ReviewsInvited prometheus.Counter

	// ReviewsAccepted counts invitations accepted by reviewers.
	ReviewsAccepted prometheus.Counter

	// ReviewsDeclined counts invitations declined by reviewers.
	ReviewsDeclined prometheus.Counter

	// ReviewsSubmitted counts reviews submitted, labeled by recommendation.
	ReviewsSubmitted *prometheus.CounterVec

	// ReviewsReopened counts submitted reviews reopened by an editor.
	ReviewsReopened prometheus.Counter

	// ReviewCompletionDays observes the days between invitation and submission.
	ReviewCompletionDays prometheus.Histogram

	// SuggestionsServed counts reviewer suggestion requests served.
	SuggestionsServed prometheus.Counter

	// SuggestionDuration observes the duration of reviewer matching in seconds.
	SuggestionDuration prometheus.Histogram

	// CandidatesPerSuggestion observes the number of eligible candidates per matching run.
	CandidatesPerSuggestion prometheus.Histogram

	// WorkloadCacheHits counts workload lookups served from cache.
	WorkloadCacheHits prometheus.Counter

	// WorkloadCacheMisses counts workload lookups that fell through to the database.
	WorkloadCacheMisses prometheus.Counter

	// DeadlineSweeps counts completed overdue sweeps.
	DeadlineSweeps prometheus.Counter

	// DeadlinesFlaggedOverdue counts deadlines newly flagged overdue, labeled by type.
	DeadlinesFlaggedOverdue *prometheus.CounterVec

	// SweepDuration observes the duration of overdue sweeps in seconds.
	SweepDuration prometheus.Histogram

	// NotificationsSent counts notifications sent, labeled by kind.
	NotificationsSent *prometheus.CounterVec

	// NotificationsFailed counts notification delivery failures, labeled by kind.
	NotificationsFailed *prometheus.CounterVec

	// OutboxPublished counts outbox events published to the broker.
	OutboxPublished prometheus.Counter

	// OutboxPublishFailed counts outbox publish failures.
	OutboxPublishFailed prometheus.Counter

	// OutboxLag observes the age of events at publish time in seconds.
	OutboxLag prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Manuscripts
		ManuscriptsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manuscripts_submitted_total",
			Help:      "Total number of manuscripts submitted",
		}),
		ManuscriptsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manuscripts_published_total",
			Help:      "Total number of manuscripts published",
		}),

		// Transitions
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_applied_total",
			Help:      "Total number of status transitions applied",
		}, []string{"from", "to"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_rejected_total",
			Help:      "Total number of status transitions rejected",
		}, []string{"reason"}),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_conflicts_total",
			Help:      "Total number of transitions lost to a concurrent update",
		}),
		DecisionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_recorded_total",
			Help:      "Total number of editorial decisions recorded",
		}, []string{"outcome"}),

		// Reviews
		ReviewsInvited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_invited_total",
			Help:      "Total number of review invitations sent",
		}),
		ReviewsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_accepted_total",
			Help:      "Total number of review invitations accepted",
		}),
		ReviewsDeclined: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_declined_total",
			Help:      "Total number of review invitations declined",
		}),
		ReviewsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_submitted_total",
			Help:      "Total number of reviews submitted by recommendation",
		}, []string{"recommendation"}),
		ReviewsReopened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_reopened_total",
			Help:      "Total number of submitted reviews reopened",
		}),
		ReviewCompletionDays: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "review_completion_days",
			Help:      "Days between review invitation and submission",
			Buckets:   []float64{1, 3, 7, 14, 21, 30, 45, 60, 90},
		}),

		// Matching
		SuggestionsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_served_total",
			Help:      "Total number of reviewer suggestion requests served",
		}),
		SuggestionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestion_duration_seconds",
			Help:      "Duration of reviewer matching in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CandidatesPerSuggestion: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_suggestion",
			Help:      "Number of eligible candidates per matching run",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		WorkloadCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workload_cache_hits_total",
			Help:      "Total number of workload lookups served from cache",
		}),
		WorkloadCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workload_cache_misses_total",
			Help:      "Total number of workload lookups that fell through to the database",
		}),

		// Deadlines
		DeadlineSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deadline_sweeps_total",
			Help:      "Total number of completed overdue sweeps",
		}),
		DeadlinesFlaggedOverdue: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deadlines_flagged_overdue_total",
			Help:      "Total number of deadlines newly flagged overdue by type",
		}, []string{"type"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of overdue sweeps in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		// Notifications
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications sent by kind",
		}, []string{"kind"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification delivery failures by kind",
		}, []string{"kind"}),

		// Outbox
		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Total number of outbox events published",
		}),
		OutboxPublishFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_failed_total",
			Help:      "Total number of outbox publish failures",
		}),
		OutboxLag: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_lag_seconds",
			Help:      "Age of outbox events at publish time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}
}

// RecordManuscriptSubmitted records that a manuscript has been submitted.
func (m *Metrics) RecordManuscriptSubmitted() {
	m.ManuscriptsSubmitted.Inc()
}

// RecordTransitionApplied records a successful status transition.
func (m *Metrics) RecordTransitionApplied(from, to string) {
	m.TransitionsApplied.WithLabelValues(from, to).Inc()
	if to == "PUBLISHED" {
		m.ManuscriptsPublished.Inc()
	}
}

// RecordTransitionRejected records a rejected transition request.
func (m *Metrics) RecordTransitionRejected(reason string) {
	m.TransitionsRejected.WithLabelValues(reason).Inc()
}

// RecordTransitionConflict records a transition lost to a concurrent update.
func (m *Metrics) RecordTransitionConflict() {
	m.TransitionConflicts.Inc()
	m.TransitionsRejected.WithLabelValues("conflict").Inc()
}

// RecordDecision records an editorial decision by outcome status.
func (m *Metrics) RecordDecision(outcome string) {
	m.DecisionsRecorded.WithLabelValues(outcome).Inc()
}

// RecordReviewInvited records a review invitation.
func (m *Metrics) RecordReviewInvited() {
	m.ReviewsInvited.Inc()
}

// RecordReviewResponse records a reviewer's response to an invitation.
func (m *Metrics) RecordReviewResponse(accepted bool) {
	if accepted {
		m.ReviewsAccepted.Inc()
	} else {
		m.ReviewsDeclined.Inc()
	}
}

// RecordReviewSubmitted records a submitted review.
func (m *Metrics) RecordReviewSubmitted(recommendation string, completionDays float64) {
	m.ReviewsSubmitted.WithLabelValues(recommendation).Inc()
	m.ReviewCompletionDays.Observe(completionDays)
}

// RecordReviewReopened records a submitted review being reopened.
func (m *Metrics) RecordReviewReopened() {
	m.ReviewsReopened.Inc()
}

// RecordSuggestion records a reviewer matching run.
func (m *Metrics) RecordSuggestion(candidateCount int, durationSeconds float64) {
	m.SuggestionsServed.Inc()
	m.SuggestionDuration.Observe(durationSeconds)
	m.CandidatesPerSuggestion.Observe(float64(candidateCount))
}

// RecordWorkloadCacheHit records a workload lookup served from cache.
func (m *Metrics) RecordWorkloadCacheHit() {
	m.WorkloadCacheHits.Inc()
}

// RecordWorkloadCacheMiss records a workload lookup that fell through to the database.
func (m *Metrics) RecordWorkloadCacheMiss() {
	m.WorkloadCacheMisses.Inc()
}

// RecordDeadlineSweep records a completed overdue sweep.
func (m *Metrics) RecordDeadlineSweep(durationSeconds float64) {
	m.DeadlineSweeps.Inc()
	m.SweepDuration.Observe(durationSeconds)
}

// RecordDeadlineOverdue records a deadline newly flagged overdue.
func (m *Metrics) RecordDeadlineOverdue(deadlineType string) {
	m.DeadlinesFlaggedOverdue.WithLabelValues(deadlineType).Inc()
}

// RecordNotificationSent records a sent notification.
func (m *Metrics) RecordNotificationSent(kind string) {
	m.NotificationsSent.WithLabelValues(kind).Inc()
}

// RecordNotificationFailed records a notification delivery failure.
func (m *Metrics) RecordNotificationFailed(kind string) {
	m.NotificationsFailed.WithLabelValues(kind).Inc()
}

// RecordOutboxPublished records outbox events published to the broker.
func (m *Metrics) RecordOutboxPublished(count int, lagSeconds float64) {
	m.OutboxPublished.Add(float64(count))
	m.OutboxLag.Observe(lagSeconds)
}

// RecordOutboxPublishFailed records an outbox publish failure.
func (m *Metrics) RecordOutboxPublishFailed() {
	m.OutboxPublishFailed.Inc()
}
