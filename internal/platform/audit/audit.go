// Package audit records who did what to which entity. Entries capture the
// actor, action, entity and a JSON snapshot of the change.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/platform/db"
)

// Entry is a single audit record.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// PGRecorder writes audit entries to Postgres. It joins an enclosing
// transaction when one is present in the context so audited writes and their
// audit entries commit atomically.
type PGRecorder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPGRecorder creates a Postgres-backed Recorder.
func NewPGRecorder(pool *pgxpool.Pool, logger zerolog.Logger) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger}
}

// Record inserts the entry. Missing IDs and timestamps are filled in.
func (r *PGRecorder) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var changes []byte
	if e.Changes != nil {
		var err error
		changes, err = json.Marshal(e.Changes)
		if err != nil {
			return err
		}
	}

	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, changes, e.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("entity_type", e.EntityType).
			Str("entity_id", e.EntityID).
			Msg("write audit entry")
	}
	return err
}

// LogRecorder writes audit entries to the structured log instead of the
// database. Used when auditing must not depend on Postgres availability.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (r *LogRecorder) Record(_ context.Context, e Entry) error {
	r.Logger.Info().
		Str("actor_id", e.ActorID).
		Str("action", e.Action).
		Str("entity_type", e.EntityType).
		Str("entity_id", e.EntityID).
		Interface("changes", e.Changes).
		Msg("audit")
	return nil
}

// MemRecorder is an in-memory Recorder for tests.
type MemRecorder struct {
	Entries []Entry
}

func (r *MemRecorder) Record(_ context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.Entries = append(r.Entries, e)
	return nil
}
