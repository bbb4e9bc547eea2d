// Package audit records who did what to which object. Entries are written
// best-effort to the structured log; they are not part of any transaction.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/openjournal/editorial-service/internal/domain"
)

// Recorder records audit entries for editorial actions.
type Recorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// LogRecorder writes audit entries to a zerolog logger with a fixed
// "audit" component field.
type LogRecorder struct {
	logger zerolog.Logger
}

// NewLogRecorder creates a LogRecorder over the given logger.
func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.With().Str("component", "audit").Logger()}
}

// Record writes one audit entry at info level.
func (r *LogRecorder) Record(_ context.Context, entry domain.AuditEntry) {
	evt := r.logger.Info().
		Str("actor_id", entry.ActorID).
		Str("actor_role", string(entry.ActorRole)).
		Str("action", entry.Action).
		Str("object_type", entry.ObjectType).
		Str("object_id", entry.ObjectID)
	if len(entry.Detail) > 0 {
		evt = evt.Interface("detail", entry.Detail)
	}
	evt.Msg("audit")
}

// Nop is a Recorder that discards every entry.
type Nop struct{}

// Record discards the entry.
func (Nop) Record(context.Context, domain.AuditEntry) {}

var _ Recorder = (*LogRecorder)(nil)
var _ Recorder = Nop{}
