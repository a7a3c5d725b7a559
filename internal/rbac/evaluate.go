package rbac

import "fmt"

// Evaluate decides whether principal may perform action on resource.
//
// perms is the permission set of the principal's role, already loaded by the
// caller. isSelfOwned says whether the record being acted on belongs to the
// principal and only matters for selfOnly grants. A denial is reported as
// false with a nil error; errors are reserved for caller bugs.
//
// selfOnly is not applied to create: ownership of a record that does not
// exist yet is fixed by the caller when it persists the record.
func Evaluate(principal Principal, perms PermissionSet, resource Resource, action Action, isSelfOwned bool) (bool, error) {
	if !resource.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	if !action.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if principal.IsOwner {
		return true, nil
	}
	if !principal.HasRole() {
		return false, ErrInvalidPrincipal
	}

	perm, ok := perms[resource]
	if !ok || perm.RoleID != principal.RoleID {
		return false, nil
	}
	if !perm.Allows(action) {
		return false, nil
	}
	if perm.SelfOnly && action != ActionCreate && !isSelfOwned {
		return false, nil
	}
	return true, nil
}
