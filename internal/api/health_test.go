package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/middleware"
	"github.com/vendora/vendora-backend/internal/testutil"
)

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	t.Run("health", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/health"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "ok", resp.Body["status"])
		assert.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("ready checks database and redis", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/ready"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "ready", resp.Body["status"])
		checks := resp.Body["checks"].(map[string]interface{})
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "ok", checks["redis"])
	})

	t.Run("unknown route is a JSON 404", func(t *testing.T) {
		resp := env.do(testutil.Request{Method: http.MethodGet, Path: "/api/v1/nope"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, CodeResourceNotFound, resp.ErrorCode())
	})
}
