package auth_test

import (
	"context"
	"testing"

	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*database.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("huddle_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = database.RunMigrations(connStr, "file://../../migrations")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, connStr, 5)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestStore_FindByEmailAndID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := auth.NewStore(pool)
	ctx := context.Background()

	var tenantID, userID string
	require.NoError(t, pool.QueryRow(ctx,
		"INSERT INTO tenants (name) VALUES ($1) RETURNING id", "Acme").Scan(&tenantID))
	require.NoError(t, pool.QueryRow(ctx,
		"INSERT INTO users (tenant_id, email, name) VALUES ($1, $2, $3) RETURNING id",
		tenantID, "alice@acme.test", "Alice").Scan(&userID))

	byEmail, err := store.FindByEmail(ctx, "alice@acme.test")
	require.NoError(t, err)
	assert.Equal(t, userID, byEmail.UserID)
	assert.Equal(t, tenantID, byEmail.TenantID)
	assert.Equal(t, "Alice", byEmail.Name)

	byID, err := store.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@acme.test", byID.Email)

	_, err = store.FindByEmail(ctx, "ghost@acme.test")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = store.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = store.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
