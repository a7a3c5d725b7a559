package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID        uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	Resource  string
	EntityID  *uuid.UUID
	Metadata  json.RawMessage
	CreatedAt time.Time
}

type CreateAuditLogParams struct {
	ActorID  *uuid.UUID
	Action   string
	Resource string
	EntityID *uuid.UUID
	Metadata []byte
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (uuid.UUID, error) {
	metadata := arg.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_id, action, resource, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id`,
		arg.ActorID, arg.Action, arg.Resource, arg.EntityID, string(metadata)).Scan(&id)
	return id, mapErr(err)
}

// ListAuditLogs returns newest first; an empty resource lists everything.
func (q *Queries) ListAuditLogs(ctx context.Context, resource string, limit, offset int64) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, actor_id, action, resource, entity_id, metadata::text, created_at
		FROM audit_logs
		WHERE ($1::text = '' OR resource = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, resource, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var (
			l    AuditLog
			meta string
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.Resource, &l.EntityID, &meta, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Metadata = json.RawMessage(meta)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (q *Queries) CountAuditLogs(ctx context.Context, resource string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE ($1::text = '' OR resource = $1)`, resource).Scan(&n)
	return n, err
}
