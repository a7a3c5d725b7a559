package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

var (
	errOwnerRole   = errors.New("owners cannot be assigned a role")
	errRoleMissing = errors.New("role does not exist")
)

type AssignRoleRequest struct {
	RoleID uuid.UUID `json:"role_id" validate:"required"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceUser, rbac.ActionRead, false); !ok {
		return
	}
	limit, offset, errb := paginationFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}

	q := s.db.Queries()
	users, err := q.ListUsers(r.Context(), limit, offset)
	if err != nil {
		internalError(w, r, "Failed to list users", err)
		return
	}
	total, err := q.CountUsers(r.Context())
	if err != nil {
		internalError(w, r, "Failed to count users", err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(mapSlice(users, toUserResponse), total, limit, offset))
}

// AssignRole moves a user to another role. The change applies on the user's
// next request since every request reloads the user.
func (s *Server) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.authorize(w, r, rbac.ResourceUser, rbac.ActionUpdate, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}
	var req AssignRoleRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var updated database.User
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		target, err := q.GetUserByID(r.Context(), id)
		if err != nil {
			return err
		}
		if target.IsOwner {
			return errOwnerRole
		}
		role, err := q.GetRole(r.Context(), req.RoleID)
		if errors.Is(err, database.ErrNotFound) {
			return errRoleMissing
		}
		if err != nil {
			return err
		}
		if err := q.UpdateUserRole(r.Context(), id, role.ID); err != nil {
			return err
		}

		meta := map[string]any{"role": role.Name}
		if target.RoleName != nil {
			meta["previous_role"] = *target.RoleName
		}
		if err := s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  actor.ID,
			Action:   audit.ActionRoleAssign,
			Resource: rbac.ResourceUser,
			EntityID: id,
			Metadata: meta,
		}); err != nil {
			return err
		}

		updated, err = q.GetUserByID(r.Context(), id)
		return err
	})
	switch {
	case errors.Is(err, errRoleMissing):
		writeError(w, ValidationErr("Unknown role", []ErrorDetail{{Field: "role_id", Message: "role does not exist"}}))
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("User"))
	case errors.Is(err, errOwnerRole):
		writeError(w, ConflictErr("Owner accounts cannot be demoted"))
	case err != nil:
		internalError(w, r, "Failed to assign role", err)
	default:
		writeJSON(w, http.StatusOK, toUserResponse(updated))
	}
}
