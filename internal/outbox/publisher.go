// Package outbox drains transactional outbox rows to Kafka.
//
// Events are claimed with FOR UPDATE SKIP LOCKED and marked published in the
// same transaction, so concurrent publishers never double-deliver a row. A
// failed Kafka write rolls the claim back and bumps the attempt counter.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/workflow"
)

// MessageWriter is the subset of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter creates a kafka writer from configuration.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
}

// Config holds the publisher's polling parameters.
type Config struct {
	// PollInterval is the pause between empty drains.
	PollInterval time.Duration

	// BatchSize caps the events claimed per transaction.
	BatchSize int

	// MaxRetries is the attempt count after which an event is abandoned and
	// left in the table for manual inspection. <= 0 retries forever.
	MaxRetries int
}

// Publisher polls the outbox and forwards events to Kafka.
type Publisher struct {
	store   workflow.Store
	writer  MessageWriter
	cfg     Config
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher. Zero-value config fields get defaults.
func NewPublisher(store workflow.Store, writer MessageWriter, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Publisher{
		store:   store,
		writer:  writer,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With().Str("component", "outbox_publisher").Logger(),
		now:     time.Now,
	}
}

// envelope is the wire shape of one outbox event.
type envelope struct {
	EventID       string                 `json:"event_id"`
	EventVersion  int                    `json:"event_version"`
	AggregateID   string                 `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	Payload       json.RawMessage        `json:"payload"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Run drains the outbox until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("poll_interval", p.cfg.PollInterval).
		Int("batch_size", p.cfg.BatchSize).
		Msg("starting outbox publisher")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox publisher stopped")
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := p.DrainOnce(ctx)
				if err != nil {
					p.logger.Error().Err(err).Msg("outbox drain failed")
					break
				}
				if n < p.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// DrainOnce claims one batch, writes it to Kafka, and marks it published.
// Returns the number of events published.
func (p *Publisher) DrainOnce(ctx context.Context) (int, error) {
	var (
		published int
		failedIDs []string
	)
	err := p.store.InTransaction(ctx, func(r workflow.Repos) error {
		events, err := r.Outbox.FetchBatch(ctx, p.cfg.BatchSize, p.cfg.MaxRetries)
		if err != nil {
			return fmt.Errorf("fetching outbox batch: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, len(events))
		ids := make([]string, len(events))
		for i, evt := range events {
			value, err := json.Marshal(envelope{
				EventID:       evt.EventID,
				EventVersion:  evt.EventVersion,
				AggregateID:   evt.AggregateID,
				AggregateType: evt.AggregateType,
				EventType:     evt.EventType,
				Payload:       evt.Payload,
				Metadata:      evt.Metadata,
				CreatedAt:     evt.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("marshaling event %s: %w", evt.EventID, err)
			}
			msgs[i] = kafka.Message{
				Key:   []byte(evt.AggregateID),
				Value: value,
				Headers: []kafka.Header{
					{Key: "event_type", Value: []byte(evt.EventType)},
					{Key: "event_id", Value: []byte(evt.EventID)},
				},
			}
			ids[i] = evt.EventID
		}

		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			failedIDs = ids
			return fmt.Errorf("writing to kafka: %w", err)
		}

		now := p.now().UTC()
		if err := r.Outbox.MarkPublished(ctx, ids, now); err != nil {
			return fmt.Errorf("marking events published: %w", err)
		}

		published = len(events)
		if p.metrics != nil {
			oldest := events[0].CreatedAt
			p.metrics.RecordOutboxPublished(published, now.Sub(oldest).Seconds())
		}
		return nil
	})
	if err != nil {
		if len(failedIDs) > 0 {
			p.recordFailure(ctx, failedIDs)
		}
		return 0, err
	}
	if published > 0 {
		p.logger.Debug().Int("published", published).Msg("outbox batch published")
	}
	return published, nil
}

// recordFailure bumps attempt counters outside the rolled-back transaction.
func (p *Publisher) recordFailure(ctx context.Context, eventIDs []string) {
	if p.metrics != nil {
		p.metrics.RecordOutboxPublishFailed()
	}
	if err := p.store.Repos().Outbox.IncrementAttempts(ctx, eventIDs); err != nil {
		p.logger.Warn().Err(err).Msg("incrementing outbox attempts failed")
	}
}
