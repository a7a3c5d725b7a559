package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("ORDER_PENDING_TTL", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Orders.PendingTTL)
	assert.Equal(t, "@every 5m", cfg.Orders.ExpiryCron)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Checkout.AllowedReturnOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("PERMISSION_CACHE_TTL", "30s")
	t.Setenv("CHECKOUT_ALLOWED_RETURN_ORIGINS", "https://shop.example.com, https://m.example.com ,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.Logging.Compress)
	assert.Equal(t, 30*time.Second, cfg.Cache.PermissionTTL)
	assert.Equal(t, []string{"https://shop.example.com", "https://m.example.com"}, cfg.Checkout.AllowedReturnOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("JWT_EXPIRY", "soon")

	cfg := Load()

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiry)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.ConnectionString())
}
