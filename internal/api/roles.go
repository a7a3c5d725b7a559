package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/rbac"
)

type CreateRoleRequest struct {
	Name        string     `json:"name" validate:"required,max=64,slug"`
	Scope       rbac.Scope `json:"scope" validate:"required,oneof=admin store"`
	Description string     `json:"description" validate:"max=500"`
}

// UpdatePermissionRequest is a partial update of one matrix cell; omitted
// fields keep their value.
type UpdatePermissionRequest struct {
	CanCreate *bool `json:"can_create"`
	CanRead   *bool `json:"can_read"`
	CanUpdate *bool `json:"can_update"`
	CanDelete *bool `json:"can_delete"`
	SelfOnly  *bool `json:"self_only"`
}

func (u UpdatePermissionRequest) apply(p rbac.Permission) rbac.Permission {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.CanCreate, u.CanCreate)
	set(&p.CanRead, u.CanRead)
	set(&p.CanUpdate, u.CanUpdate)
	set(&p.CanDelete, u.CanDelete)
	set(&p.SelfOnly, u.SelfOnly)
	return p
}

func (s *Server) ListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceRole, rbac.ActionRead, false); !ok {
		return
	}
	roles, err := s.db.Queries().ListRoles(r.Context())
	if err != nil {
		internalError(w, r, "Failed to list roles", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(roles, func(role rbac.Role) RoleResponse {
		return RoleResponse{Role: role}
	}))
}

func (s *Server) GetRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceRole, rbac.ActionRead, false); !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	q := s.db.Queries()
	role, err := q.GetRole(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Role"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load role", err)
		return
	}
	// straight from the table so admins never look at a stale cache entry
	perms, err := q.RolePermissions(r.Context(), id)
	if err != nil {
		internalError(w, r, "Failed to load role permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{Role: role, Permissions: perms})
}

func (s *Server) CreateRole(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceRole, rbac.ActionCreate, false)
	if !ok {
		return
	}
	var req CreateRoleRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var (
		role  rbac.Role
		perms []rbac.Permission
	)
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		role, err = q.CreateRole(r.Context(), req.Name, req.Scope, strings.TrimSpace(req.Description))
		if err != nil {
			return err
		}
		perms = rbac.DefaultPermissions(role.ID)
		for _, p := range perms {
			if err := q.InsertPermission(r.Context(), p); err != nil {
				return err
			}
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionCreate,
			Resource: rbac.ResourceRole,
			EntityID: role.ID,
			Metadata: map[string]any{"name": role.Name, "scope": role.Scope},
		})
	})
	if errors.Is(err, database.ErrConflict) {
		writeError(w, ConflictErr("Role name is already in use"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to create role", err)
		return
	}
	writeJSON(w, http.StatusCreated, RoleResponse{Role: role, Permissions: perms})
}

// UpdatePermission edits one role × resource cell. Locked cells are refused.
func (s *Server) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceRole, rbac.ActionUpdate, false)
	if !ok {
		return
	}
	roleID, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}
	resource := rbac.Resource(chi.URLParam(r, "resource"))
	if !resource.Valid() {
		writeError(w, ValidationErr("Unknown resource", []ErrorDetail{{Field: "resource", Message: "is not a registered resource"}}))
		return
	}
	var req UpdatePermissionRequest
	if errb := s.decodeJSON(r, &req); errb != nil {
		writeError(w, errb)
		return
	}

	var updated rbac.Permission
	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		current, err := q.GetPermissionForUpdate(r.Context(), roleID, resource)
		if err != nil {
			return err
		}
		if current.Locked {
			return rbac.ErrPermissionLocked
		}
		if updated, err = q.UpdatePermission(r.Context(), req.apply(current)); err != nil {
			return err
		}
		if err := q.TouchRole(r.Context(), roleID); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionPermissionUpdate,
			Resource: rbac.ResourceRole,
			EntityID: roleID,
			Metadata: map[string]any{"resource": resource, "before": current, "after": updated},
		})
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("Permission"))
		return
	case errors.Is(err, rbac.ErrPermissionLocked):
		writeError(w, ConflictErr("Permission is locked").WithContext(ErrorContext{"resource": resource}))
		return
	case err != nil:
		internalError(w, r, "Failed to update permission", err)
		return
	}

	s.invalidateRole(r, roleID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) DeleteRole(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceRole, rbac.ActionDelete, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	err := s.db.InTx(r.Context(), func(q *database.Queries) error {
		role, err := q.GetRole(r.Context(), id)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return rbac.ErrSystemRole
		}
		n, err := q.CountUsersWithRole(r.Context(), id)
		if err != nil {
			return err
		}
		if n > 0 {
			return rbac.ErrRoleInUse
		}
		if err := q.DeleteRole(r.Context(), id); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionDelete,
			Resource: rbac.ResourceRole,
			EntityID: id,
			Metadata: map[string]any{"name": role.Name},
		})
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, NotFound("Role"))
		return
	case errors.Is(err, rbac.ErrSystemRole):
		writeError(w, ConflictErr("System roles cannot be deleted"))
		return
	case errors.Is(err, rbac.ErrRoleInUse), errors.Is(err, database.ErrConflict):
		writeError(w, ConflictErr("Role is still assigned to users"))
		return
	case err != nil:
		internalError(w, r, "Failed to delete role", err)
		return
	}

	s.invalidateRole(r, id)
	w.WriteHeader(http.StatusNoContent)
}

// cache entries expire on their own; a failed delete only leaves them stale
// for up to the TTL
func (s *Server) invalidateRole(r *http.Request, roleID uuid.UUID) {
	if err := s.permissions.Invalidate(r.Context(), roleID); err != nil {
		logRequestError(r, "Failed to invalidate permission cache", err)
	}
}
