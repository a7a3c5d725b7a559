package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/logging"
	"github.com/vendora/vendora-backend/internal/rbac"
)

const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionCheckout         = "checkout"
	ActionStatusChange     = "status_change"
	ActionRoleAssign       = "role_assign"
	ActionPermissionUpdate = "permission_update"
	ActionUpload           = "upload"
)

type Entry struct {
	ActorID  uuid.UUID
	Action   string
	Resource rbac.Resource
	EntityID uuid.UUID
	Metadata map[string]any
}

// Logger writes audit rows. Pass the transaction's Queries so the row
// commits or rolls back with the change it describes.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Record(ctx context.Context, q *database.Queries, e Entry) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
	}

	params := database.CreateAuditLogParams{
		Action:   e.Action,
		Resource: string(e.Resource),
		Metadata: meta,
	}
	if e.ActorID != uuid.Nil {
		params.ActorID = &e.ActorID
	}
	if e.EntityID != uuid.Nil {
		params.EntityID = &e.EntityID
	}

	if _, err := q.CreateAuditLog(ctx, params); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	logging.Debug("audit",
		"actor_id", e.ActorID,
		"action", e.Action,
		"resource", e.Resource,
		"entity_id", e.EntityID)
	return nil
}
