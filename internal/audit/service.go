// Package audit records who changed contract discounts and when. Entries are
// append-only rows in Postgres; failures are logged and never block the write
// they describe.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Entry is one recorded admin action.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	ActorSub   string          `json:"actor_sub"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, resource string, limit, offset int) ([]Entry, error)
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s PGStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO audit_log (id, actor_sub, action, resource, resource_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		e.ID, e.ActorSub, e.Action, e.Resource, e.ResourceID, e.Metadata)
	return err
}

func (s PGStore) List(ctx context.Context, resource string, limit, offset int) ([]Entry, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, actor_sub, action, resource, resource_id, metadata, created_at
		 FROM audit_log
		 WHERE ($1 = '' OR resource = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		resource, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorSub, &e.Action, &e.Resource, &e.ResourceID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recorder is the write-side facade used by admin services.
type Recorder struct {
	Store   Store
	Enabled bool
	Logger  zerolog.Logger
}

// Record persists one entry. Metadata must already be valid JSON or nil.
func (r Recorder) Record(ctx context.Context, actorSub, action, resource, resourceID string, metadata json.RawMessage) {
	if !r.Enabled || r.Store == nil {
		return
	}
	entry := Entry{
		ID:         uuid.New(),
		ActorSub:   actorSub,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Metadata:   metadata,
	}
	if err := r.Store.Insert(ctx, entry); err != nil {
		r.Logger.Error().Err(err).Str("action", action).Str("resource", resource).Msg("audit insert failed")
	}
}
