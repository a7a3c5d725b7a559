package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vendora/vendora-backend/internal/database"
)

// TestDatabase wraps a real PostgreSQL database for testing
type TestDatabase struct {
	*database.Database
	container testcontainers.Container
}

// NewTestDatabase creates a new test database using testcontainers
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vendora_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(30*time.Second),
			),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "Failed to create connection pool")
	require.NoError(t, pool.Ping(ctx), "Failed to ping database")

	return &TestDatabase{
		Database:  database.FromPool(pool),
		container: postgresContainer,
	}
}

// RunMigrations applies the embedded goose migrations, seeds included
func (tdb *TestDatabase) RunMigrations(t *testing.T) {
	err := database.Migrate(context.Background(), tdb.Pool())
	require.NoError(t, err, "Failed to run goose migrations")
}

// Cleanup closes the pool and terminates the container
func (tdb *TestDatabase) Cleanup() {
	tdb.Close()
	_ = tdb.container.Terminate(context.Background())
}

// CleanupDatabase truncates data tables and drops custom roles. System roles
// and their seeded permissions are kept.
func (tdb *TestDatabase) CleanupDatabase(t *testing.T) {
	ctx := context.Background()

	tables := []string{
		"audit_logs",
		"media",
		"order_items",
		"orders",
		"cart_items",
		"products",
		"categories",
		"users",
	}
	for _, table := range tables {
		if _, err := tdb.Pool().Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Logf("Failed to truncate table %s: %v", table, err)
		}
	}

	if _, err := tdb.Pool().Exec(ctx, "DELETE FROM roles WHERE NOT is_system"); err != nil {
		t.Logf("Failed to delete custom roles: %v", err)
	}
}
