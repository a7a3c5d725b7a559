package rbac

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnknownResource  = errors.New("rbac: unknown resource")
	ErrUnknownAction    = errors.New("rbac: unknown action")
	ErrInvalidPrincipal = errors.New("rbac: principal has no role and is not an owner")
	ErrPermissionLocked = errors.New("rbac: permission is locked")
	ErrSystemRole       = errors.New("rbac: system roles cannot be modified")
	ErrRoleInUse        = errors.New("rbac: role is still assigned to users")
)

// Resource names a protected entity class. The set is closed; add new values
// to allResources and to the seed migration together.
type Resource string

const (
	ResourceProduct  Resource = "product"
	ResourceCategory Resource = "category"
	ResourceOrder    Resource = "order"
	ResourceCart     Resource = "cart"
	ResourceCustomer Resource = "customer"
	ResourceUser     Resource = "user"
	ResourceRole     Resource = "role"
	ResourceMedia    Resource = "media"
	ResourceAudit    Resource = "audit"
)

var allResources = []Resource{
	ResourceProduct,
	ResourceCategory,
	ResourceOrder,
	ResourceCart,
	ResourceCustomer,
	ResourceUser,
	ResourceRole,
	ResourceMedia,
	ResourceAudit,
}

// Resources returns the registered resources in display order.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

func (r Resource) Valid() bool {
	for _, known := range allResources {
		if r == known {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Scope separates back-office roles from storefront roles.
type Scope string

const (
	ScopeAdmin Scope = "admin"
	ScopeStore Scope = "store"
)

func (s Scope) Valid() bool {
	return s == ScopeAdmin || s == ScopeStore
}

// System role names, seeded in db/migrations.
const (
	RoleAdministrator = "administrator"
	RoleStaff         = "staff"
	RoleCustomer      = "customer"
)

type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Scope       Scope     `json:"scope"`
	IsSystem    bool      `json:"is_system"`
	Description string    `json:"description"`
}

// Permission is one cell of the role × resource matrix.
type Permission struct {
	RoleID    uuid.UUID `json:"role_id"`
	Resource  Resource  `json:"resource"`
	CanCreate bool      `json:"can_create"`
	CanRead   bool      `json:"can_read"`
	CanUpdate bool      `json:"can_update"`
	CanDelete bool      `json:"can_delete"`
	SelfOnly  bool      `json:"self_only"`
	Locked    bool      `json:"locked"`
}

// Allows reports the grant for a single action.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	}
	return false
}

// PermissionSet holds the fetched rows of a single role keyed by resource.
type PermissionSet map[Resource]Permission

func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p.Resource] = p
	}
	return set
}

// DefaultPermissions is the matrix a new role starts with: one row per
// resource, nothing granted.
func DefaultPermissions(roleID uuid.UUID) []Permission {
	perms := make([]Permission, 0, len(allResources))
	for _, r := range allResources {
		perms = append(perms, Permission{RoleID: roleID, Resource: r})
	}
	return perms
}

// Principal is the acting user as seen by the evaluator.
type Principal struct {
	UserID  uuid.UUID
	RoleID  uuid.UUID
	IsOwner bool
}

func (p Principal) HasRole() bool {
	return p.RoleID != uuid.Nil
}
