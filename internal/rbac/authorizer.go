package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PermissionStore loads the permission rows of a role. Implementations own
// any caching and its invalidation.
type PermissionStore interface {
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
}

// ReadScope is what a principal may list for a resource.
type ReadScope int

const (
	ReadNone ReadScope = iota
	ReadOwn
	ReadAll
)

func (s ReadScope) String() string {
	switch s {
	case ReadOwn:
		return "own"
	case ReadAll:
		return "all"
	default:
		return "none"
	}
}

// Authorizer fetches a principal's permission set and runs Evaluate on it.
type Authorizer struct {
	store PermissionStore
}

func NewAuthorizer(store PermissionStore) *Authorizer {
	return &Authorizer{store: store}
}

func (a *Authorizer) Can(ctx context.Context, principal Principal, resource Resource, action Action, isSelfOwned bool) (bool, error) {
	perms, err := a.load(ctx, principal)
	if err != nil {
		return false, err
	}
	return Evaluate(principal, perms, resource, action, isSelfOwned)
}

// ReadScope answers whether list endpoints should return every record, only
// the principal's own records, or nothing.
func (a *Authorizer) ReadScope(ctx context.Context, principal Principal, resource Resource) (ReadScope, error) {
	perms, err := a.load(ctx, principal)
	if err != nil {
		return ReadNone, err
	}

	all, err := Evaluate(principal, perms, resource, ActionRead, false)
	if err != nil {
		return ReadNone, err
	}
	if all {
		return ReadAll, nil
	}

	own, err := Evaluate(principal, perms, resource, ActionRead, true)
	if err != nil {
		return ReadNone, err
	}
	if own {
		return ReadOwn, nil
	}
	return ReadNone, nil
}

// owners and role-less principals never reach the store; Evaluate settles them
func (a *Authorizer) load(ctx context.Context, principal Principal) (PermissionSet, error) {
	if principal.IsOwner || !principal.HasRole() {
		return nil, nil
	}
	rows, err := a.store.RolePermissions(ctx, principal.RoleID)
	if err != nil {
		return nil, fmt.Errorf("loading permissions for role %s: %w", principal.RoleID, err)
	}
	return NewPermissionSet(rows), nil
}
