package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/testutil"
)

func TestServer_Customers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.db.NewUser(t).WithName("Alice").Create()
	bob := env.db.NewUser(t).WithName("Bob").Create()
	staff := env.db.NewUser(t).AsStaff().Create()

	t.Run("self read and update", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/customers/" + alice.ID.String(), Token: env.token(alice)})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Alice", resp.Body["name"])

		upd := env.do(testutil.Request{
			Method: http.MethodPatch,
			Path:   "/api/v1/customers/" + alice.ID.String(),
			Body:   map[string]string{"name": "Alice Liddell"},
			Token:  env.token(alice),
		})
		require.Equal(t, http.StatusOK, upd.Code)
		assert.Equal(t, "Alice Liddell", upd.Body["name"])
	})

	t.Run("other customers are off limits", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/customers/" + bob.ID.String(), Token: env.token(alice)})
		assert.Equal(t, http.StatusForbidden, resp.Code)

		upd := env.do(testutil.Request{
			Method: http.MethodPatch,
			Path:   "/api/v1/customers/" + bob.ID.String(),
			Body:   map[string]string{"name": "Mallory"},
			Token:  env.token(alice),
		})
		assert.Equal(t, http.StatusForbidden, upd.Code)
	})

	t.Run("staff reads any customer", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/customers/" + bob.ID.String(), Token: env.token(staff)})
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/customers/not-a-uuid", Token: env.token(staff)})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
