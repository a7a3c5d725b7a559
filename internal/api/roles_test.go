package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/rbac"
	"github.com/vendora/vendora-backend/internal/testutil"
)

func TestServer_Roles(t *testing.T) {
	env := newTestEnv(t)
	admin := env.db.NewUser(t).AsAdministrator().Create()
	staff := env.db.NewUser(t).AsStaff().Create()

	t.Run("staff cannot manage roles", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/roles", Token: env.token(staff)})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("new role starts with an empty matrix", func(t *testing.T) {
		resp := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/roles",
			Body:   map[string]string{"name": "warehouse", "scope": "admin", "description": "Stock keepers"},
			Token:  env.token(admin),
		})

		require.Equal(t, http.StatusCreated, resp.Code)
		perms := resp.Body["permissions"].([]interface{})
		assert.Len(t, perms, len(rbac.Resources()))
		for _, p := range perms {
			cell := p.(map[string]interface{})
			for _, col := range []string{"can_create", "can_read", "can_update", "can_delete", "self_only", "locked"} {
				assert.Equal(t, false, cell[col], "%s.%s", cell["resource"], col)
			}
		}

		dup := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/roles",
			Body:   map[string]string{"name": "warehouse", "scope": "admin"},
			Token:  env.token(admin),
		})
		assert.Equal(t, http.StatusConflict, dup.Code)
	})

	t.Run("bad scope", func(t *testing.T) {
		resp := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/roles",
			Body:   map[string]string{"name": "odd", "scope": "global"},
			Token:  env.token(admin),
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("locked cells cannot be edited", func(t *testing.T) {
		role, err := env.db.Queries().GetRoleByName(context.Background(), rbac.RoleCustomer)
		require.NoError(t, err)

		resp := env.do(testutil.Request{
			Method: http.MethodPatch,
			Path:   "/api/v1/roles/" + role.ID.String() + "/permissions/cart",
			Body:   map[string]bool{"self_only": false},
			Token:  env.token(admin),
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("unknown resource", func(t *testing.T) {
		role := env.db.NewRole(t).Create()
		resp := env.do(testutil.Request{
			Method: http.MethodPatch,
			Path:   "/api/v1/roles/" + role.ID.String() + "/permissions/invoice",
			Body:   map[string]bool{"can_read": true},
			Token:  env.token(admin),
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("system roles and roles in use cannot be deleted", func(t *testing.T) {
		system, err := env.db.Queries().GetRoleByName(context.Background(), rbac.RoleStaff)
		require.NoError(t, err)
		resp := env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/roles/" + system.ID.String(), Token: env.token(admin)})
		assert.Equal(t, http.StatusConflict, resp.Code)

		custom := env.db.NewRole(t).Create()
		env.db.NewUser(t).WithRole(custom.ID).Create()
		resp = env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/roles/" + custom.ID.String(), Token: env.token(admin)})
		assert.Equal(t, http.StatusConflict, resp.Code)

		unused := env.db.NewRole(t).Create()
		resp = env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/roles/" + unused.ID.String(), Token: env.token(admin)})
		assert.Equal(t, http.StatusNoContent, resp.Code)
	})
}

// Grants must take effect on the next request even though permission rows are
// cached in Redis.
func TestServer_PermissionChangesApplyImmediately(t *testing.T) {
	env := newTestEnv(t)
	admin := env.db.NewUser(t).AsAdministrator().Create()
	role := env.db.NewRole(t).WithName("auditor").Create()
	auditor := env.db.NewUser(t).WithRole(role.ID).Create()

	listAudit := func() int {
		return env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/audit-logs", Token: env.token(auditor)}).Code
	}

	require.Equal(t, http.StatusForbidden, listAudit())

	grant := env.do(testutil.Request{
		Method: http.MethodPatch,
		Path:   "/api/v1/roles/" + role.ID.String() + "/permissions/audit",
		Body:   map[string]bool{"can_read": true},
		Token:  env.token(admin),
	})
	require.Equal(t, http.StatusOK, grant.Code)
	assert.Equal(t, true, grant.Body["can_read"])
	assert.Equal(t, false, grant.Body["can_delete"])

	assert.Equal(t, http.StatusOK, listAudit())

	revoke := env.do(testutil.Request{
		Method: http.MethodPatch,
		Path:   "/api/v1/roles/" + role.ID.String() + "/permissions/audit",
		Body:   map[string]bool{"can_read": false},
		Token:  env.token(admin),
	})
	require.Equal(t, http.StatusOK, revoke.Code)
	assert.Equal(t, http.StatusForbidden, listAudit())
}

func TestServer_OwnerAndRolelessUsers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.NewUser(t).AsOwner().Create()
	roleless := env.db.NewUser(t).AsOwner().Create()
	_, err := env.db.Pool().Exec(context.Background(), `UPDATE users SET is_owner = FALSE WHERE id = $1`, roleless.ID)
	require.NoError(t, err)

	t.Run("owner passes every check without a role", func(t *testing.T) {
		for _, path := range []string{"/api/v1/roles", "/api/v1/users", "/api/v1/audit-logs", "/api/v1/orders", "/api/v1/media"} {
			resp := env.do(testutil.Request{Method: http.MethodGet, Path: path, Token: env.token(owner)})
			assert.Equal(t, http.StatusOK, resp.Code, path)
		}
	})

	t.Run("roleless non-owner is denied", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/orders", Token: env.token(roleless)})
		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, CodePermissionDenied, resp.ErrorCode())
	})

	t.Run("owner cannot be demoted", func(t *testing.T) {
		role, err := env.db.Queries().GetRoleByName(context.Background(), rbac.RoleCustomer)
		require.NoError(t, err)

		resp := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/users/" + owner.ID.String() + "/role",
			Body:   map[string]string{"role_id": role.ID.String()},
			Token:  env.token(owner),
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

func TestServer_AssignRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.db.NewUser(t).AsAdministrator().Create()
	customer := env.db.NewUser(t).Create()
	staffRole, err := env.db.Queries().GetRoleByName(context.Background(), rbac.RoleStaff)
	require.NoError(t, err)

	t.Run("promotion applies on the next request", func(t *testing.T) {
		before := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/admin/products", Token: env.token(customer)})
		require.Equal(t, http.StatusForbidden, before.Code)

		resp := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/users/" + customer.ID.String() + "/role",
			Body:   map[string]string{"role_id": staffRole.ID.String()},
			Token:  env.token(admin),
		})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, rbac.RoleStaff, resp.Body["role_name"])
		assert.EqualValues(t, 1, env.auditCount(rbac.ResourceUser))

		after := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/admin/products", Token: env.token(customer)})
		assert.Equal(t, http.StatusOK, after.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		resp := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/users/" + customer.ID.String() + "/role",
			Body:   map[string]string{"role_id": "00000000-0000-0000-0000-000000000001"},
			Token:  env.token(admin),
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("list users", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/users?limit=1", Token: env.token(admin)})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.List(), 1)
		assert.EqualValues(t, 2, resp.Body["meta"].(map[string]interface{})["total"])
	})
}
